package bookmarks

// Routes (all require authentication):
//
//	POST   /bookmarks                  → add
//	GET    /bookmarks?type=            → list own bookmarks
//	GET    /bookmarks/check?type=&id=  → is the target bookmarked
//	PUT    /bookmarks/{id}             → edit notes, tags, favorite flag
//	DELETE /bookmarks?type=&id=        → remove

import (
	"net/http"

	"jobmate/research-service/internal/auth"
	"jobmate/research-service/internal/httpx"
)

// Handler serves the bookmark routes.
type Handler struct {
	svc  *Service
	auth httpx.Auth
}

// NewHandler returns a Handler.
func NewHandler(svc *Service, a httpx.Auth) *Handler {
	return &Handler{svc: svc, auth: a}
}

// RegisterRoutes mounts the bookmark routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/bookmarks", h.auth.Require(httpx.Methods{
		http.MethodGet:    http.HandlerFunc(h.list),
		http.MethodPost:   http.HandlerFunc(h.add),
		http.MethodDelete: http.HandlerFunc(h.remove),
	}))
	mux.Handle("/bookmarks/check", h.auth.Require(httpx.Methods{http.MethodGet: http.HandlerFunc(h.check)}))
	mux.Handle("/bookmarks/{id}", h.auth.Require(httpx.Methods{http.MethodPut: http.HandlerFunc(h.update)}))
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var cmd AddCommand
	if err := httpx.Decode(r, &cmd); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	b, err := h.svc.Add(r.Context(), auth.UserID(r.Context()), cmd)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.Created(w, map[string]any{"bookmark": b})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r)
	out, err := h.svc.List(r.Context(), auth.UserID(r.Context()), r.URL.Query().Get("type"), limit, offset)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"bookmarks": out, "count": len(out)})
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b, err := h.svc.Check(r.Context(), auth.UserID(r.Context()), q.Get("type"), q.Get("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"bookmarked": b != nil, "bookmark": b})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var p Patch
	if err := httpx.Decode(r, &p); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	b, err := h.svc.Update(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), p)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"bookmark": b})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := h.svc.Remove(r.Context(), auth.UserID(r.Context()), q.Get("type"), q.Get("id")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"message": "Bookmark removed"})
}
