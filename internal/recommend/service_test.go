package recommend_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jobmate/research-service/internal/apperr"
	"jobmate/research-service/internal/auth/authtest"
	"jobmate/research-service/internal/jobs"
	"jobmate/research-service/internal/papers"
	"jobmate/research-service/internal/recommend"
)

type fixedProfile struct {
	company string
	skills  []string
}

func (f fixedProfile) Profile(_ context.Context, _ string, asOf time.Time) (recommend.Profile, error) {
	p := recommend.NewProfile(asOf)
	p.Add(f.company, f.skills)
	return p, nil
}

type jobList []jobs.Job

func (l jobList) Unseen(_ context.Context, _ string, limit int) ([]jobs.Job, error) {
	if len(l) > limit {
		return l[:limit], nil
	}
	return l, nil
}

type paperList []papers.Paper

func (l paperList) Unseen(_ context.Context, _ string, limit int) ([]papers.Paper, error) {
	if len(l) > limit {
		return l[:limit], nil
	}
	return l, nil
}

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newService() *recommend.Service {
	js := jobList{
		{ID: "j-none", Company: "Other"},
		{ID: "j-skill", Company: "Other", Skills: []string{"go"}},
		{ID: "j-company", Company: "Acme", Skills: []string{"go", "sql"}},
	}
	recent := now.AddDate(0, 0, -3)
	ps := paperList{
		{ID: "p-recent", Company: "Lab", PublicationDate: &recent},
		{ID: "p-tag", Company: "Lab", Tags: []string{"sql"}},
	}
	return recommend.NewService(fixedProfile{"acme", []string{"Go", "SQL"}}, js, ps).
		WithClock(func() time.Time { return now })
}

func TestRecommend_JobsRankedAndZeroDropped(t *testing.T) {
	recs, err := newService().Recommend(context.Background(), "u1", "jobs", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Job.ID != "j-company" || recs[1].Job.ID != "j-skill" {
		t.Fatalf("recs = %+v", recs)
	}
	if recs[0].Score != 50 || recs[1].Score != 10 || recs[0].Paper != nil {
		t.Fatalf("scores = %d, %d", recs[0].Score, recs[1].Score)
	}
}

func TestRecommend_Papers(t *testing.T) {
	recs, err := newService().Recommend(context.Background(), "u1", "papers", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Paper.ID != "p-tag" || recs[1].Paper.ID != "p-recent" {
		t.Fatalf("recs = %+v", recs)
	}
}

func TestRecommend_LimitAndType(t *testing.T) {
	svc := newService()
	recs, _ := svc.Recommend(context.Background(), "u1", "", 1)
	if len(recs) != 1 || recs[0].Type != "job" {
		t.Fatalf("default type/limit: %+v", recs)
	}
	_, err := svc.Recommend(context.Background(), "u1", "videos", 10)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestRecommend_CandidatePoolCapped(t *testing.T) {
	var js jobList
	for i := 0; i < 80; i++ {
		js = append(js, jobs.Job{ID: fmt.Sprint(i), Company: "Acme"})
	}
	svc := recommend.NewService(fixedProfile{company: "Acme"}, js, paperList{})
	recs, _ := svc.Recommend(context.Background(), "u1", "jobs", 500)
	if len(recs) != recommend.MaxLimit {
		t.Fatalf("len = %d, want %d", len(recs), recommend.MaxLimit)
	}
}

func TestHandler_RequiresAuth(t *testing.T) {
	mux := http.NewServeMux()
	recommend.NewHandler(newService(), authtest.Stages()).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recommendations", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, authtest.As(httptest.NewRequest(http.MethodGet, "/recommendations?type=papers", nil), "u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body)
	}
}
