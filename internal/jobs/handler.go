package jobs

// Routes:
//
//	GET    /jobs                              → list (company, skill, location, q, mine, limit, offset)
//	POST   /jobs                              → save; a given id upserts
//	GET    /jobs/{id}                         → one job
//	PUT    /jobs/{id}                         → partial update, owner only
//	DELETE /jobs/{id}                         → delete, owner only, idempotent
//	GET    /jobs/{id}/papers                  → related research
//	POST   /jobs/{id}/papers                  → link a paper, job owner only
//	DELETE /jobs/{id}/papers/{paperId}        → unlink, job owner only
//	GET    /get-summary                       → aggregate over jobs (company filter)
//	POST   /admin/jobs                        → import an unowned job
//	POST   /admin/jobs/dedup                  → remove duplicate listings
//	DELETE /admin/jobs/{id}                   → delete any job
//	POST   /admin/jobs/{id}/papers            → link a paper to any job
//	DELETE /admin/jobs/{id}/papers/{paperId}  → unlink from any job

import (
	"net/http"

	"jobmate/research-service/internal/auth"
	"jobmate/research-service/internal/httpx"
)

// Handler serves the job routes.
type Handler struct {
	svc   *Service
	auth  httpx.Auth
	admin httpx.Middleware
}

// NewHandler returns a Handler. admin gates the /admin routes.
func NewHandler(svc *Service, a httpx.Auth, admin httpx.Middleware) *Handler {
	return &Handler{svc: svc, auth: a, admin: admin}
}

// RegisterRoutes mounts the job routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/jobs", httpx.Methods{
		http.MethodGet:  h.auth.Optional(http.HandlerFunc(h.list)),
		http.MethodPost: h.auth.Require(http.HandlerFunc(h.save)),
	})
	mux.Handle("/jobs/{id}", httpx.Methods{
		http.MethodGet:    http.HandlerFunc(h.get),
		http.MethodPut:    h.auth.Require(http.HandlerFunc(h.update)),
		http.MethodDelete: h.auth.Require(http.HandlerFunc(h.delete)),
	})
	mux.Handle("/jobs/{id}/papers", httpx.Methods{
		http.MethodGet:  http.HandlerFunc(h.relatedPapers),
		http.MethodPost: h.auth.Require(http.HandlerFunc(h.linkPaper)),
	})
	mux.Handle("/jobs/{id}/papers/{paperId}", httpx.Methods{
		http.MethodDelete: h.auth.Require(http.HandlerFunc(h.unlinkPaper)),
	})
	mux.Handle("/get-summary", httpx.Methods{http.MethodGet: http.HandlerFunc(h.summary)})

	mux.Handle("/admin/jobs", h.admin(httpx.Methods{http.MethodPost: http.HandlerFunc(h.importJob)}))
	mux.Handle("/admin/jobs/dedup", h.admin(httpx.Methods{http.MethodPost: http.HandlerFunc(h.dedup)}))
	mux.Handle("/admin/jobs/{id}", h.admin(httpx.Methods{http.MethodDelete: http.HandlerFunc(h.adminDelete)}))
	mux.Handle("/admin/jobs/{id}/papers", h.admin(httpx.Methods{http.MethodPost: http.HandlerFunc(h.adminLinkPaper)}))
	mux.Handle("/admin/jobs/{id}/papers/{paperId}", h.admin(httpx.Methods{http.MethodDelete: http.HandlerFunc(h.adminUnlinkPaper)}))
}

// ─── Jobs ────────────────────────────────────────────────────────────────────

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := httpx.Page(r)
	f := Filter{
		Company:  q.Get("company"),
		Skill:    q.Get("skill"),
		Location: q.Get("location"),
		Q:        q.Get("q"),
		Limit:    limit,
		Offset:   offset,
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
	httpx.OK(w, map[string]any{"jobs": out, "count": len(out)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	j, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"job": j})
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var cmd SaveCommand
	if err := httpx.Decode(r, &cmd); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	j, inserted, err := h.svc.Save(r.Context(), auth.UserID(r.Context()), cmd)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeSaved(w, j, inserted)
}

func (h *Handler) importJob(w http.ResponseWriter, r *http.Request) {
	var cmd SaveCommand
	if err := httpx.Decode(r, &cmd); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	j, inserted, err := h.svc.Import(r.Context(), cmd)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeSaved(w, j, inserted)
}

func writeSaved(w http.ResponseWriter, j *Job, inserted bool) {
	if inserted {
		httpx.Created(w, map[string]any{"job": j, "action": "created"})
		return
	}
	httpx.OK(w, map[string]any{"job": j, "action": "updated"})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var p Patch
	if err := httpx.Decode(r, &p); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	j, err := h.svc.Update(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), p)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"job": j})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), auth.UserID(r.Context()), r.PathValue("id")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"message": "Job deleted"})
}

func (h *Handler) adminDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.AdminDelete(r.Context(), r.PathValue("id")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"message": "Job deleted"})
}

func (h *Handler) dedup(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Dedup(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"removed": n})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Summary(r.Context(), r.URL.Query().Get("company"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"summary": s})
}

// ─── Related papers ──────────────────────────────────────────────────────────

func (h *Handler) relatedPapers(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.RelatedPapers(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"papers": out, "count": len(out)})
}

func (h *Handler) linkPaper(w http.ResponseWriter, r *http.Request) {
	var cmd LinkCommand
	if err := httpx.Decode(r, &cmd); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	rel, err := h.svc.LinkPaper(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), cmd)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"relation": rel})
}

func (h *Handler) adminLinkPaper(w http.ResponseWriter, r *http.Request) {
	var cmd LinkCommand
	if err := httpx.Decode(r, &cmd); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	rel, err := h.svc.LinkPaperAdmin(r.Context(), r.PathValue("id"), cmd)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"relation": rel})
}

func (h *Handler) unlinkPaper(w http.ResponseWriter, r *http.Request) {
	err := h.svc.UnlinkPaper(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), r.PathValue("paperId"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"message": "Paper unlinked"})
}

func (h *Handler) adminUnlinkPaper(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.UnlinkPaperAdmin(r.Context(), r.PathValue("id"), r.PathValue("paperId")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"message": "Paper unlinked"})
}
