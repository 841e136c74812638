package ingest

// Routes (all behind the admin key):
//
//	POST /admin/ingest            → queue a run {source}; 202 {task_id, status}
//	GET  /admin/ingest/sources    → configured rules
//	GET  /admin/ingest/{taskId}   → task status and counters

import (
	"net/http"

	"jobmate/research-service/internal/httpx"
)

// SubmitCommand is the body of POST /admin/ingest.
type SubmitCommand struct {
	Source string `json:"source" validate:"max=100"`
}

// Handler serves the ingestion routes.
type Handler struct {
	runner *Runner
	admin  httpx.Middleware
}

// NewHandler returns a Handler. admin gates every route.
func NewHandler(runner *Runner, admin httpx.Middleware) *Handler {
	return &Handler{runner: runner, admin: admin}
}

// RegisterRoutes mounts the ingestion routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/admin/ingest", h.admin(httpx.Methods{http.MethodPost: http.HandlerFunc(h.submit)}))
	mux.Handle("/admin/ingest/sources", h.admin(httpx.Methods{http.MethodGet: http.HandlerFunc(h.sources)}))
	mux.Handle("/admin/ingest/{taskId}", h.admin(httpx.Methods{http.MethodGet: http.HandlerFunc(h.status)}))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var cmd SubmitCommand
	if r.ContentLength != 0 {
		if err := httpx.Decode(r, &cmd); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
	}
	t, err := h.runner.Submit(r.Context(), cmd.Source)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.Accepted(w, map[string]any{"task_id": t.ID, "status": t.State, "source": t.Source})
}

func (h *Handler) sources(w http.ResponseWriter, r *http.Request) {
	type source struct {
		Name   string `json:"name"`
		Kind   Kind   `json:"kind"`
		Render bool   `json:"render"`
		URLs   int    `json:"urls"`
	}
	out := []source{}
	for _, rule := range h.runner.Sources() {
		out = append(out, source{Name: rule.Name, Kind: rule.Kind, Render: rule.Render, URLs: len(rule.URLs)})
	}
	httpx.OK(w, map[string]any{"sources": out, "count": len(out)})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	t, err := h.runner.Status(r.Context(), r.PathValue("taskId"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"task": t})
}
