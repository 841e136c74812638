package resources

// Routes ({kind} is user, job or interview):
//
//	GET    /resources/{kind}        → list visible rows (tag, company, job_id, type, q, mine)
//	POST   /resources/{kind}        → create
//	GET    /resources/{kind}/{id}   → one row, public or own
//	PUT    /resources/{kind}/{id}   → partial update, owner only
//	DELETE /resources/{kind}/{id}   → delete, owner only, idempotent

import (
	"net/http"

	"jobmate/research-service/internal/auth"
	"jobmate/research-service/internal/httpx"
)

// Handler serves the resource routes.
type Handler struct {
	svc  *Service
	auth httpx.Auth
}

// NewHandler returns a Handler.
func NewHandler(svc *Service, a httpx.Auth) *Handler {
	return &Handler{svc: svc, auth: a}
}

// RegisterRoutes mounts the resource routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/resources/{kind}", httpx.Methods{
		http.MethodGet:  h.auth.Optional(h.withKind(h.list)),
		http.MethodPost: h.auth.Require(h.withKind(h.create)),
	})
	mux.Handle("/resources/{kind}/{id}", httpx.Methods{
		http.MethodGet:    h.auth.Optional(h.withKind(h.get)),
		http.MethodPut:    h.auth.Require(h.withKind(h.update)),
		http.MethodDelete: h.auth.Require(h.withKind(h.delete)),
	})
}

type kindHandler func(w http.ResponseWriter, r *http.Request, k Kind)

func (h *Handler) withKind(next kindHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		k, err := ParseKind(r.PathValue("kind"))
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		next(w, r, k)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, k Kind) {
	q := r.URL.Query()
	limit, offset := httpx.Page(r)
	f := Filter{
		Viewer:  auth.UserID(r.Context()),
		Tag:     q.Get("tag"),
		Company: q.Get("company"),
		JobID:   q.Get("job_id"),
		Type:    q.Get("type"),
		Q:       q.Get("q"),
		Limit:   limit,
		Offset:  offset,
	}
	if httpx.QueryBool(r, "mine") {
		if f.Viewer == "" {
			httpx.Error(w, http.StatusUnauthorized, "Authentication required", "")
			return
		}
		f.Owner = f.Viewer
	}
	out, err := h.svc.List(r.Context(), k, f)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"resources": out, "count": len(out)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, k Kind) {
	res, err := h.svc.Get(r.Context(), k, r.PathValue("id"), auth.UserID(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"resource": res})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, k Kind) {
	var cmd CreateCommand
	if err := httpx.Decode(r, &cmd); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	res, err := h.svc.Create(r.Context(), k, auth.UserID(r.Context()), cmd)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.Created(w, map[string]any{"resource": res})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, k Kind) {
	var p Patch
	if err := httpx.Decode(r, &p); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	res, err := h.svc.Update(r.Context(), k, auth.UserID(r.Context()), r.PathValue("id"), p)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"resource": res})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request, k Kind) {
	if err := h.svc.Delete(r.Context(), k, auth.UserID(r.Context()), r.PathValue("id")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"message": "Resource deleted"})
}
