package comments

// Routes:
//
//	GET    /comments?target_type=&target_id=  → threaded list with vote tallies (optional auth)
//	POST   /comments                          → comment or reply (auth)
//	PUT    /comments/{id}                     → edit own comment (auth)
//	DELETE /comments/{id}                     → delete own comment (auth)

import (
	"net/http"

	"jobmate/research-service/internal/auth"
	"jobmate/research-service/internal/httpx"
)

// Handler serves the comment routes.
type Handler struct {
	svc  *Service
	auth httpx.Auth
}

// NewHandler returns a Handler.
func NewHandler(svc *Service, a httpx.Auth) *Handler {
	return &Handler{svc: svc, auth: a}
}

// RegisterRoutes mounts the comment routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/comments", httpx.Methods{
		http.MethodGet:  h.auth.Optional(http.HandlerFunc(h.list)),
		http.MethodPost: h.auth.Require(http.HandlerFunc(h.create)),
	})
	mux.Handle("/comments/{id}", httpx.Methods{
		http.MethodPut:    h.auth.Require(http.HandlerFunc(h.edit)),
		http.MethodDelete: h.auth.Require(http.HandlerFunc(h.delete)),
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	thread, total, err := h.svc.List(r.Context(), auth.UserID(r.Context()), q.Get("target_type"), q.Get("target_id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"comments": thread, "count": total})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var cmd CreateCommand
	if err := httpx.Decode(r, &cmd); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	c, err := h.svc.Create(r.Context(), auth.UserID(r.Context()), cmd)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.Created(w, map[string]any{"comment": c})
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	var cmd EditCommand
	if err := httpx.Decode(r, &cmd); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	c, err := h.svc.Edit(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), cmd)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"comment": c})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Delete(r.Context(), auth.UserID(r.Context()), r.PathValue("id")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"message": "Comment deleted"})
}
