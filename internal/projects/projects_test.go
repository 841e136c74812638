package projects_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"jobmate/research-service/internal/apperr"
	"jobmate/research-service/internal/auth/authtest"
	"jobmate/research-service/internal/events"
	"jobmate/research-service/internal/projects"
)

type memStore struct {
	mu   sync.Mutex
	rows map[string]*projects.Project
}

func (m *memStore) Insert(_ context.Context, p *projects.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*projects.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, apperr.NotFound("Project not found")
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) List(_ context.Context, f projects.Filter) ([]projects.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []projects.Project{}
	for _, p := range m.rows {
		if (f.Public && p.IsPublic) || (!f.Public && p.UserID == f.Owner) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m *memStore) Update(_ context.Context, id, owner string, patch projects.Patch) (*projects.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok || p.UserID != owner {
		return nil, apperr.NotFound("Project not found")
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Progress != nil {
		p.Progress = *patch.Progress
	}
	if patch.LinkedJobs != nil {
		p.LinkedJobs = *patch.LinkedJobs
	}
	if patch.LinkedPapers != nil {
		p.LinkedPapers = *patch.LinkedPapers
	}
	if patch.IsPublic != nil {
		p.IsPublic = *patch.IsPublic
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, id, owner string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.rows[id]; ok && p.UserID == owner {
		delete(m.rows, id)
		return true, nil
	}
	return false, nil
}

type recorder struct {
	mu       sync.Mutex
	channels []string
}

func (r *recorder) Publish(_ context.Context, channel string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = append(r.channels, channel)
}

func newService() (*projects.Service, *memStore, *recorder) {
	store := &memStore{rows: map[string]*projects.Project{}}
	pub := &recorder{}
	return projects.NewService(store, pub), store, pub
}

func intp(n int) *int { return &n }

func TestCreate_Defaults(t *testing.T) {
	svc, _, _ := newService()
	p, err := svc.Create(context.Background(), "u1", projects.CreateCommand{
		Title:      "  Switch to ML  ",
		LinkedJobs: []string{"j1", " j1 ", "", "j2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Title != "Switch to ML" || p.Status != projects.StatusPlanning || p.Priority != "medium" || p.Category != "other" {
		t.Fatalf("project = %+v", p)
	}
	if strings.Join(p.LinkedJobs, ",") != "j1,j2" || p.LinkedPapers == nil {
		t.Fatalf("links = %v / %v", p.LinkedJobs, p.LinkedPapers)
	}
}

func TestCreate_AtFullProgressIsCompleted(t *testing.T) {
	svc, _, _ := newService()
	p, err := svc.Create(context.Background(), "u1", projects.CreateCommand{Title: "done", Progress: intp(100)})
	if err != nil || p.Status != projects.StatusCompleted {
		t.Fatalf("project = %+v, %v", p, err)
	}
}

func TestSetProgress_CompletesAndPublishesOnce(t *testing.T) {
	svc, _, pub := newService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, "u1", projects.CreateCommand{Title: "p", Status: projects.StatusInProgress})

	got, err := svc.SetProgress(ctx, "u1", p.ID, 60)
	if err != nil || got.Status != projects.StatusInProgress || got.Progress != 60 {
		t.Fatalf("60%% = %+v, %v", got, err)
	}
	got, err = svc.SetProgress(ctx, "u1", p.ID, 100)
	if err != nil || got.Status != projects.StatusCompleted {
		t.Fatalf("100%% = %+v, %v", got, err)
	}
	svc.SetProgress(ctx, "u1", p.ID, 100)

	if len(pub.channels) != 1 || pub.channels[0] != events.ProjectCompleted {
		t.Fatalf("events = %v", pub.channels)
	}
}

func TestUpdate_ProgressCompletesToo(t *testing.T) {
	svc, _, pub := newService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, "u1", projects.CreateCommand{Title: "p"})

	got, err := svc.Update(ctx, "u1", p.ID, projects.Patch{Progress: intp(100)})
	if err != nil || got.Status != projects.StatusCompleted {
		t.Fatalf("update = %+v, %v", got, err)
	}
	if len(pub.channels) != 1 {
		t.Fatalf("events = %v", pub.channels)
	}
}

func TestSetProgress_OutOfRange(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, "u1", projects.CreateCommand{Title: "p"})
	for _, n := range []int{-1, 101} {
		var ve *apperr.ValidationError
		if _, err := svc.SetProgress(ctx, "u1", p.ID, n); !errors.As(err, &ve) {
			t.Errorf("progress %d: err = %v", n, err)
		}
	}
}

func TestUpdate_LinkSetsReplacedWholesale(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, "u1", projects.CreateCommand{
		Title: "p", LinkedJobs: []string{"j1", "j2"}, LinkedPapers: []string{"p1"},
	})

	got, err := svc.Update(ctx, "u1", p.ID, projects.Patch{LinkedJobs: &[]string{"j3"}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got.LinkedJobs, ",") != "j3" {
		t.Errorf("linked_jobs = %v, want [j3]", got.LinkedJobs)
	}
	if strings.Join(got.LinkedPapers, ",") != "p1" {
		t.Errorf("linked_papers = %v, want untouched", got.LinkedPapers)
	}
}

func TestForeignAndMissingLookAlike(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, "u1", projects.CreateCommand{Title: "private"})

	_, foreign := svc.Update(ctx, "u2", p.ID, projects.Patch{Title: strp("mine now")})
	_, missing := svc.Update(ctx, "u2", "nope", projects.Patch{Title: strp("x")})
	if foreign == nil || missing == nil || foreign.Error() != missing.Error() {
		t.Fatalf("foreign %v vs missing %v", foreign, missing)
	}
	if !errors.Is(foreign, apperr.ErrNotFound) {
		t.Errorf("foreign err = %v", foreign)
	}

	if err := svc.Delete(ctx, "u2", p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("foreign delete err = %v", err)
	}
	if _, ok := store.rows[p.ID]; !ok {
		t.Error("foreign delete removed the row")
	}
	if _, err := svc.Get(ctx, "u2", p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("foreign get of private project err = %v", err)
	}
}

func TestPublicVisibility(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	pub, _ := svc.Create(ctx, "u1", projects.CreateCommand{Title: "open", IsPublic: true})
	svc.Create(ctx, "u1", projects.CreateCommand{Title: "closed"})

	if _, err := svc.Get(ctx, "", pub.ID); err != nil {
		t.Errorf("anonymous get of public project: %v", err)
	}
	list, _ := svc.ListPublic(ctx, projects.Filter{Limit: 20})
	if len(list) != 1 || list[0].ID != pub.ID {
		t.Fatalf("public list = %+v", list)
	}
	own, _ := svc.List(ctx, "u1", projects.Filter{Limit: 20})
	if len(own) != 2 {
		t.Fatalf("own list = %d, want 2", len(own))
	}
}

func strp(s string) *string { return &s }

// ── Handler ────────────────────────────────────────────────────────────────

func newMux() (*http.ServeMux, *projects.Service) {
	svc, _, _ := newService()
	mux := http.NewServeMux()
	projects.NewHandler(svc, authtest.Stages()).RegisterRoutes(mux)
	return mux, svc
}

func TestHandler_InvalidEnum(t *testing.T) {
	mux, _ := newMux()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authtest.As(httptest.NewRequest(http.MethodPost, "/projects",
		strings.NewReader(`{"title":"p","status":"abandoned"}`)), "u1"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_Progress(t *testing.T) {
	mux, svc := newMux()
	p, _ := svc.Create(context.Background(), "u1", projects.CreateCommand{Title: "p"})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authtest.As(httptest.NewRequest(http.MethodPut, "/projects/"+p.ID+"/progress",
		strings.NewReader(`{"progress":100}`)), "u1"))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"completed"`) {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, authtest.As(httptest.NewRequest(http.MethodPut, "/projects/"+p.ID+"/progress",
		strings.NewReader(`{"progress":150}`)), "u1"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("over 100: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, authtest.As(httptest.NewRequest(http.MethodPut, "/projects/"+p.ID+"/progress",
		strings.NewReader(`{}`)), "u1"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing progress: status = %d", rec.Code)
	}
}

func TestHandler_ForeignDelete(t *testing.T) {
	mux, svc := newMux()
	p, _ := svc.Create(context.Background(), "u1", projects.CreateCommand{Title: "p"})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authtest.As(httptest.NewRequest(http.MethodDelete, "/projects/"+p.ID, nil), "u2"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
