package votes

// Routes:
//
//	POST   /votes                                   → cast or flip a vote (auth)
//	DELETE /votes?target_type=&target_id=           → withdraw own vote (auth)
//	GET    /votes/status?target_type=&target_id=    → tally plus own vote (optional auth)

import (
	"net/http"

	"jobmate/research-service/internal/auth"
	"jobmate/research-service/internal/httpx"
)

// Handler serves the vote routes.
type Handler struct {
	svc  *Service
	auth httpx.Auth
}

// NewHandler returns a Handler.
func NewHandler(svc *Service, a httpx.Auth) *Handler {
	return &Handler{svc: svc, auth: a}
}

// RegisterRoutes mounts the vote routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/votes", httpx.Methods{
		http.MethodPost:   h.auth.Require(http.HandlerFunc(h.cast)),
		http.MethodDelete: h.auth.Require(http.HandlerFunc(h.remove)),
	})
	mux.Handle("/votes/status", httpx.Methods{
		http.MethodGet: h.auth.Optional(http.HandlerFunc(h.status)),
	})
}

func (h *Handler) cast(w http.ResponseWriter, r *http.Request) {
	var cmd CastCommand
	if err := httpx.Decode(r, &cmd); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	userID := auth.UserID(r.Context())
	v, action, err := h.svc.Cast(r.Context(), userID, cmd)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	st, err := h.svc.Status(r.Context(), userID, string(v.TargetType), v.TargetID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	payload := map[string]any{"vote": v, "action": action, "status": st}
	if action == Created {
		httpx.Created(w, payload)
		return
	}
	httpx.OK(w, payload)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	removed, err := h.svc.Remove(r.Context(), auth.UserID(r.Context()), q.Get("target_type"), q.Get("target_id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"removed": removed})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	st, err := h.svc.Status(r.Context(), auth.UserID(r.Context()), q.Get("target_type"), q.Get("target_id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"status": st})
}
