package projects

// Routes (all but GET /projects/public and GET /projects/{id} require auth):
//
//	POST   /projects                 → create
//	GET    /projects                 → own projects (status, category, limit, offset)
//	GET    /projects/public          → public projects
//	GET    /projects/{id}            → one project, own or public
//	PUT    /projects/{id}            → partial update, link sets replaced wholesale
//	PUT    /projects/{id}/progress   → set progress; 100 completes the project
//	DELETE /projects/{id}            → delete

import (
	"net/http"

	"jobmate/research-service/internal/auth"
	"jobmate/research-service/internal/httpx"
)

// Handler serves the project routes.
type Handler struct {
	svc  *Service
	auth httpx.Auth
}

// NewHandler returns a Handler.
func NewHandler(svc *Service, a httpx.Auth) *Handler {
	return &Handler{svc: svc, auth: a}
}

// RegisterRoutes mounts the project routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/projects", httpx.Methods{
		http.MethodGet:  h.auth.Require(http.HandlerFunc(h.list)),
		http.MethodPost: h.auth.Require(http.HandlerFunc(h.create)),
	})
	mux.Handle("/projects/public", httpx.Methods{http.MethodGet: http.HandlerFunc(h.listPublic)})
	mux.Handle("/projects/{id}", httpx.Methods{
		http.MethodGet:    h.auth.Optional(http.HandlerFunc(h.get)),
		http.MethodPut:    h.auth.Require(http.HandlerFunc(h.update)),
		http.MethodDelete: h.auth.Require(http.HandlerFunc(h.delete)),
	})
	mux.Handle("/projects/{id}/progress", httpx.Methods{
		http.MethodPut: h.auth.Require(http.HandlerFunc(h.progress)),
	})
}

func filterOf(r *http.Request) Filter {
	limit, offset := httpx.Page(r)
	q := r.URL.Query()
	return Filter{Status: q.Get("status"), Category: q.Get("category"), Limit: limit, Offset: offset}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.List(r.Context(), auth.UserID(r.Context()), filterOf(r))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"projects": out, "count": len(out)})
}

func (h *Handler) listPublic(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListPublic(r.Context(), filterOf(r))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"projects": out, "count": len(out)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"project": p})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var cmd CreateCommand
	if err := httpx.Decode(r, &cmd); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	p, err := h.svc.Create(r.Context(), auth.UserID(r.Context()), cmd)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.Created(w, map[string]any{"project": p})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var patch Patch
	if err := httpx.Decode(r, &patch); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	p, err := h.svc.Update(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"project": p})
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	var cmd ProgressCommand
	if err := httpx.Decode(r, &cmd); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	p, err := h.svc.SetProgress(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), *cmd.Progress)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"project": p})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), auth.UserID(r.Context()), r.PathValue("id")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"message": "Project deleted"})
}
