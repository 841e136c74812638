// Package health reports whether the service's backing stores are reachable.
package health

import (
	"context"
	"net/http"
	"time"

	"jobmate/research-service/internal/httpx"
)

// Component states.
const (
	StatusOK            = "ok"
	StatusDegraded      = "degraded"
	StatusUnavailable   = "unavailable"
	StatusNotConfigured = "not_configured"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function (e.g. a go-redis Ping) to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Report is the body of GET /health.
type Report struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Version  string `json:"version"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Serving reports whether requests can be served: Postgres answers or was
// never configured.
func (r Report) Serving() bool {
	return r.Database != StatusUnavailable
}

// Checker pings the configured stores. A nil Pinger means not configured.
type Checker struct {
	Service  string
	Version  string
	Database Pinger
	Redis    Pinger
}

// Check pings every configured store.
func (c *Checker) Check(ctx context.Context) Report {
	r := Report{
		Status:   StatusOK,
		Service:  c.Service,
		Version:  c.Version,
		Database: probe(ctx, c.Database),
		Redis:    probe(ctx, c.Redis),
	}
	if r.Database == StatusUnavailable || r.Redis == StatusUnavailable {
		r.Status = StatusDegraded
	}
	return r
}

func probe(ctx context.Context, p Pinger) string {
	if p == nil {
		return StatusNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return StatusUnavailable
	}
	return StatusOK
}

// Handler serves GET /health. It always answers 200; the body says what
// is down.
func (c *Checker) Handler() http.Handler {
	return httpx.Methods{http.MethodGet: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, c.Check(r.Context()))
	})}
}
