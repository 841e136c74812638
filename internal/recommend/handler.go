package recommend

// Routes:
//
//	GET /recommendations?type=jobs|papers&limit=  → ranked unseen items (auth)

import (
	"net/http"

	"jobmate/research-service/internal/auth"
	"jobmate/research-service/internal/httpx"
)

// Handler serves the recommendation route.
type Handler struct {
	svc  *Service
	auth httpx.Auth
}

// NewHandler returns a Handler.
func NewHandler(svc *Service, a httpx.Auth) *Handler {
	return &Handler{svc: svc, auth: a}
}

// RegisterRoutes mounts the recommendation route on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/recommendations", httpx.Methods{
		http.MethodGet: h.auth.Require(http.HandlerFunc(h.list)),
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("type")
	recs, err := h.svc.Recommend(r.Context(), auth.UserID(r.Context()), kind, httpx.QueryInt(r, "limit", DefaultLimit))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"recommendations": recs, "count": len(recs)})
}
