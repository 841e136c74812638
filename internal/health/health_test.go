package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobmate/research-service/internal/health"
)

func up(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestCheck(t *testing.T) {
	cases := []struct {
		name             string
		db, redis        health.Pinger
		status, dbStatus string
		serving          bool
	}{
		{"all up", health.PingFunc(up), health.PingFunc(up), health.StatusOK, health.StatusOK, true},
		{"nothing configured", nil, nil, health.StatusOK, health.StatusNotConfigured, true},
		{"redis down", health.PingFunc(up), health.PingFunc(down), health.StatusDegraded, health.StatusOK, true},
		{"database down", health.PingFunc(down), nil, health.StatusDegraded, health.StatusUnavailable, false},
	}
	for _, tc := range cases {
		c := &health.Checker{Service: "research-service", Version: "test", Database: tc.db, Redis: tc.redis}
		r := c.Check(context.Background())
		if r.Status != tc.status || r.Database != tc.dbStatus || r.Serving() != tc.serving {
			t.Errorf("%s: got %+v serving=%v", tc.name, r, r.Serving())
		}
	}
}

func TestHandler(t *testing.T) {
	c := &health.Checker{Service: "research-service", Version: "1.2.3", Database: health.PingFunc(up)}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var r health.Report
	if err := json.NewDecoder(rec.Body).Decode(&r); err != nil {
		t.Fatal(err)
	}
	want := health.Report{Status: "ok", Service: "research-service", Version: "1.2.3", Database: "ok", Redis: "not_configured"}
	if r != want {
		t.Fatalf("report = %+v", r)
	}

	rec = httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d", rec.Code)
	}
}
