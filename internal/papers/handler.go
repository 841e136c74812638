package papers

// Routes:
//
//	GET    /papers               → list (company, tag, author, q, mine, limit, offset)
//	POST   /papers               → save, upserting on url
//	GET    /papers/{id}          → one paper
//	PUT    /papers/{id}          → partial update, owner only
//	DELETE /papers/{id}          → delete, owner only, idempotent
//	POST   /admin/papers         → import an unowned paper
//	POST   /admin/papers/dedup   → remove duplicate titles
//	DELETE /admin/papers/{id}    → delete any paper

import (
	"net/http"

	"jobmate/research-service/internal/auth"
	"jobmate/research-service/internal/httpx"
)

// Handler serves the paper routes.
type Handler struct {
	svc   *Service
	auth  httpx.Auth
	admin httpx.Middleware
}

// NewHandler returns a Handler. admin gates the /admin routes.
func NewHandler(svc *Service, a httpx.Auth, admin httpx.Middleware) *Handler {
	return &Handler{svc: svc, auth: a, admin: admin}
}

// RegisterRoutes mounts the paper routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/papers", httpx.Methods{
		http.MethodGet:  h.auth.Optional(http.HandlerFunc(h.list)),
		http.MethodPost: h.auth.Require(http.HandlerFunc(h.create)),
	})
	mux.Handle("/papers/{id}", httpx.Methods{
		http.MethodGet:    http.HandlerFunc(h.get),
		http.MethodPut:    h.auth.Require(http.HandlerFunc(h.update)),
		http.MethodDelete: h.auth.Require(http.HandlerFunc(h.delete)),
	})
	mux.Handle("/admin/papers", h.admin(httpx.Methods{http.MethodPost: http.HandlerFunc(h.importPaper)}))
	mux.Handle("/admin/papers/dedup", h.admin(httpx.Methods{http.MethodPost: http.HandlerFunc(h.dedup)}))
	mux.Handle("/admin/papers/{id}", h.admin(httpx.Methods{http.MethodDelete: http.HandlerFunc(h.adminDelete)}))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := httpx.Page(r)
	f := Filter{
		Company: q.Get("company"),
		Tag:     q.Get("tag"),
		Author:  q.Get("author"),
		Q:       q.Get("q"),
		Limit:   limit,
		Offset:  offset,
	}
	if httpx.QueryBool(r, "mine") {
		if f.Owner = auth.UserID(r.Context()); f.Owner == "" {
			httpx.Error(w, http.StatusUnauthorized, "Authentication required", "")
			return
		}
	}
	out, err := h.svc.List(r.Context(), f)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"papers": out, "count": len(out)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"paper": p})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var cmd CreateCommand
	if err := httpx.Decode(r, &cmd); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	p, inserted, err := h.svc.Create(r.Context(), auth.UserID(r.Context()), cmd)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeSaved(w, p, inserted)
}

func (h *Handler) importPaper(w http.ResponseWriter, r *http.Request) {
	var cmd CreateCommand
	if err := httpx.Decode(r, &cmd); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	p, inserted, err := h.svc.Import(r.Context(), cmd)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeSaved(w, p, inserted)
}

func writeSaved(w http.ResponseWriter, p *Paper, inserted bool) {
	if inserted {
		httpx.Created(w, map[string]any{"paper": p, "action": "created"})
		return
	}
	httpx.OK(w, map[string]any{"paper": p, "action": "updated"})
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
	httpx.OK(w, map[string]any{"paper": p})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), auth.UserID(r.Context()), r.PathValue("id")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"message": "Paper deleted"})
}

func (h *Handler) adminDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.AdminDelete(r.Context(), r.PathValue("id")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"message": "Paper deleted"})
}

func (h *Handler) dedup(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Dedup(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"removed": n})
}
