package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"jobmate/research-service/internal/apperr"
	"jobmate/research-service/internal/auth/authtest"
	"jobmate/research-service/internal/httpx"
	"jobmate/research-service/internal/jobs"
)

// memStore mirrors the owner rules of the Postgres store.
type memStore struct {
	mu        sync.Mutex
	rows      map[string]*jobs.Job
	relations map[[2]string]jobs.Relation
	papers    map[string]bool
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]*jobs.Job{}, relations: map[[2]string]jobs.Relation{}, papers: map[string]bool{}}
}

func owns(j *jobs.Job, owner string) bool { return j.CreatedBy != nil && *j.CreatedBy == owner }

func (m *memStore) List(_ context.Context, f jobs.Filter) ([]jobs.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []jobs.Job{}
	for _, j := range m.rows {
		if f.Company != "" && !strings.Contains(strings.ToLower(j.Company), strings.ToLower(f.Company)) {
			continue
		}
		if f.Owner != "" && !owns(j, f.Owner) {
			continue
		}
		out = append(out, *j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (m *memStore) Get(_ context.Context, id string) (*jobs.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.rows[id]
	if !ok {
		return nil, apperr.NotFound("Job not found")
	}
	cp := *j
	return &cp, nil
}

func (m *memStore) Upsert(_ context.Context, j *jobs.Job) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if existing, ok := m.rows[j.ID]; ok {
		same := (existing.CreatedBy == nil && j.CreatedBy == nil) ||
			(existing.CreatedBy != nil && j.CreatedBy != nil && *existing.CreatedBy == *j.CreatedBy)
		if !same {
			return false, apperr.Conflict("Job id already in use")
		}
		j.CreatedAt, j.UpdatedAt = existing.CreatedAt, now
		cp := *j
		m.rows[j.ID] = &cp
		return false, nil
	}
	j.CreatedAt, j.UpdatedAt = now, now
	cp := *j
	m.rows[j.ID] = &cp
	return true, nil
}

func (m *memStore) Update(_ context.Context, id, owner string, p jobs.Patch) (*jobs.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.rows[id]
	if !ok || !owns(j, owner) {
		return nil, apperr.NotFound("Job not found")
	}
	if p.Title != nil {
		j.Title = *p.Title
	}
	if p.SalaryMax != nil {
		j.SalaryMax = p.SalaryMax
	}
	cp := *j
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, id, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.rows[id]; ok && owns(j, owner) {
		delete(m.rows, id)
	}
	return nil
}

func (m *memStore) AdminDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memStore) Dedup(context.Context) (int64, error) { return 0, nil }

func (m *memStore) RelatedPapers(_ context.Context, jobID string) ([]jobs.RelatedPaper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []jobs.RelatedPaper{}
	for k, rel := range m.relations {
		if k[0] == jobID {
			rp := jobs.RelatedPaper{RelevanceScore: rel.RelevanceScore, Reason: rel.Reason}
			rp.ID = rel.PaperID
			out = append(out, rp)
		}
	}
	return out, nil
}

func (m *memStore) LinkPaper(_ context.Context, rel jobs.Relation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.papers[rel.PaperID] {
		return apperr.NotFound("Paper not found")
	}
	m.relations[[2]string{rel.JobID, rel.PaperID}] = rel
	return nil
}

func (m *memStore) UnlinkPaper(_ context.Context, jobID, paperID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.relations, [2]string{jobID, paperID})
	return nil
}

func TestSave_RoundTripAndUpsert(t *testing.T) {
	store := newMemStore()
	svc := jobs.NewService(store)
	ctx := context.Background()

	cmd := jobs.SaveCommand{ID: "job-1", Title: "Backend Engineer", Company: "Acme", SalaryMin: intp(90), SalaryMax: intp(140)}
	saved, inserted, err := svc.Save(ctx, "u1", cmd)
	if err != nil || !inserted {
		t.Fatalf("Save = %v, %v", inserted, err)
	}
	got, err := svc.Get(ctx, saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != cmd.Title || got.Company != cmd.Company || *got.SalaryMin != 90 || *got.SalaryMax != 140 {
		t.Errorf("round trip = %+v", got)
	}

	cmd.Title = "Senior Backend Engineer"
	if _, inserted, err = svc.Save(ctx, "u1", cmd); err != nil || inserted {
		t.Fatalf("re-save = %v, %v; want update", inserted, err)
	}
	if len(store.rows) != 1 || store.rows["job-1"].Title != "Senior Backend Engineer" {
		t.Errorf("rows = %d, title %q", len(store.rows), store.rows["job-1"].Title)
	}
}

func TestSave_ForeignIDConflicts(t *testing.T) {
	svc := jobs.NewService(newMemStore())
	ctx := context.Background()
	cmd := jobs.SaveCommand{ID: "job-1", Title: "T", Company: "C"}
	if _, _, err := svc.Save(ctx, "u1", cmd); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Save(ctx, "u2", cmd); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestSave_Validation(t *testing.T) {
	svc := jobs.NewService(newMemStore())
	for name, cmd := range map[string]jobs.SaveCommand{
		"blank title":    {Title: "  ", Company: "C"},
		"blank company":  {Title: "T", Company: " "},
		"inverted range": {Title: "T", Company: "C", SalaryMin: intp(200), SalaryMax: intp(100)},
	} {
		_, _, err := svc.Save(context.Background(), "u1", cmd)
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: err = %v, want validation error", name, err)
		}
	}
}

func TestUpdate_ForeignLooksMissing(t *testing.T) {
	svc := jobs.NewService(newMemStore())
	ctx := context.Background()
	j, _, _ := svc.Save(ctx, "owner", jobs.SaveCommand{Title: "T", Company: "C"})

	title := "x"
	_, errForeign := svc.Update(ctx, "intruder", j.ID, jobs.Patch{Title: &title})
	_, errMissing := svc.Update(ctx, "intruder", "nope", jobs.Patch{Title: &title})
	if !errors.Is(errForeign, apperr.ErrNotFound) || errForeign.Error() != errMissing.Error() {
		t.Fatalf("foreign %v vs missing %v", errForeign, errMissing)
	}
}

func TestImportedJobsAreNotUserEditable(t *testing.T) {
	svc := jobs.NewService(newMemStore())
	ctx := context.Background()
	j, _, err := svc.Import(ctx, jobs.SaveCommand{ID: "scraped-1", Title: "T", Company: "C"})
	if err != nil {
		t.Fatal(err)
	}
	title := "x"
	if _, err := svc.Update(ctx, "u1", j.ID, jobs.Patch{Title: &title}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if _, _, err := svc.Save(ctx, "u1", jobs.SaveCommand{ID: "scraped-1", Title: "T", Company: "C"}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("claiming scraped id: err = %v, want conflict", err)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	store := newMemStore()
	svc := jobs.NewService(store)
	ctx := context.Background()
	j, _, _ := svc.Save(ctx, "owner", jobs.SaveCommand{Title: "T", Company: "C"})

	if err := svc.Delete(ctx, "intruder", j.ID); err != nil || len(store.rows) != 1 {
		t.Fatalf("intruder delete: %v, rows %d", err, len(store.rows))
	}
	for i := 0; i < 2; i++ {
		if err := svc.Delete(ctx, "owner", j.ID); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}
	if len(store.rows) != 0 {
		t.Fatal("row survived")
	}
}

func TestLinkPaper(t *testing.T) {
	store := newMemStore()
	store.papers["p1"] = true
	svc := jobs.NewService(store)
	ctx := context.Background()
	j, _, _ := svc.Save(ctx, "owner", jobs.SaveCommand{Title: "T", Company: "C"})

	score := 0.8
	if _, err := svc.LinkPaper(ctx, "intruder", j.ID, jobs.LinkCommand{PaperID: "p1", RelevanceScore: &score}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("intruder link: %v", err)
	}
	if _, err := svc.LinkPaper(ctx, "owner", j.ID, jobs.LinkCommand{PaperID: "missing", RelevanceScore: &score}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing paper: %v", err)
	}
	for _, s := range []float64{0.8, 0.3} {
		s := s
		if _, err := svc.LinkPaper(ctx, "owner", j.ID, jobs.LinkCommand{PaperID: "p1", RelevanceScore: &s}); err != nil {
			t.Fatal(err)
		}
	}
	related, err := svc.RelatedPapers(ctx, j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(related) != 1 || related[0].RelevanceScore != 0.3 {
		t.Fatalf("related = %+v, want one upserted link", related)
	}
}

func newMux(store jobs.Store) *http.ServeMux {
	mux := http.NewServeMux()
	jobs.NewHandler(jobs.NewService(store), authtest.Stages(), httpx.AdminKey("k")).RegisterRoutes(mux)
	return mux
}

func TestHandler_SummaryUnknownCompany(t *testing.T) {
	store := newMemStore()
	jobs.NewService(store).Import(context.Background(), jobs.SaveCommand{Title: "T", Company: "Acme"})
	rec := httptest.NewRecorder()
	newMux(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/get-summary?company=unknown-co", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Success bool         `json:"success"`
		Summary jobs.Summary `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.Summary.TotalJobs != 0 {
		t.Errorf("body = %+v", body)
	}
}

func TestHandler_LinkValidation(t *testing.T) {
	store := newMemStore()
	j, _, _ := jobs.NewService(store).Save(context.Background(), "owner", jobs.SaveCommand{Title: "T", Company: "C"})
	req := authtest.As(httptest.NewRequest(http.MethodPost, "/jobs/"+j.ID+"/papers",
		strings.NewReader(`{"paper_id":"p1","relevance_score":1.5}`)), "owner")
	rec := httptest.NewRecorder()
	newMux(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "relevance_score must be <= 1") {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}
}

func TestHandler_UnknownMethod(t *testing.T) {
	rec := httptest.NewRecorder()
	newMux(newMemStore()).ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/jobs/x", nil))
	if rec.Code != http.StatusMethodNotAllowed || !strings.Contains(rec.Body.String(), "Method not allowed") {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}
}
