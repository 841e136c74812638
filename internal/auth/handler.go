package auth

// Routes:
//
//	POST /auth/register   → create account, sign in (201)
//	POST /auth/login      → sign in with username or email
//	POST /auth/logout     → revoke the current session (or all of them)
//	GET  /auth/me         → current account

import (
	"net/http"
	"time"

	"jobmate/research-service/internal/httpx"
)

// Handler serves the /auth routes.
type Handler struct {
	svc          *Service
	cookieSecure bool
}

// NewHandler returns a Handler. secure sets the Secure cookie attribute.
func NewHandler(svc *Service, secure bool) *Handler {
	return &Handler{svc: svc, cookieSecure: secure}
}

// RegisterRoutes mounts the auth routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/auth/register", httpx.Methods{http.MethodPost: http.HandlerFunc(h.register)})
	mux.Handle("/auth/login", httpx.Methods{http.MethodPost: http.HandlerFunc(h.login)})
	mux.Handle("/auth/logout", httpx.Methods{http.MethodPost: http.HandlerFunc(h.logout)})
	mux.Handle("/auth/me", httpx.Methods{http.MethodGet: RequireAuth(h.svc)(http.HandlerFunc(h.me))})
}

// ─── Handlers ────────────────────────────────────────────────────────────────

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var cmd RegisterCommand
	if err := httpx.Decode(r, &cmd); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	g, err := h.svc.Register(r.Context(), cmd)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.setCookie(w, g.Token, g.ExpiresAt)
	httpx.Created(w, map[string]any{"user": g.User, "token": g.Token, "expires_at": g.ExpiresAt})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var cmd LoginCommand
	if err := httpx.Decode(r, &cmd); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	g, err := h.svc.Login(r.Context(), cmd)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.setCookie(w, g.Token, g.ExpiresAt)
	httpx.OK(w, map[string]any{"user": g.User, "token": g.Token, "expires_at": g.ExpiresAt})
}

type logoutCommand struct {
	LogoutAll bool `json:"logoutAll"`
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var cmd logoutCommand
	// The body is optional; an empty or malformed one means logoutAll=false.
	if err := httpx.Decode(r, &cmd); err != nil {
		cmd = logoutCommand{}
	}
	h.svc.Logout(r.Context(), TokenFromRequest(r), cmd.LogoutAll)
	h.clearCookie(w)
	httpx.OK(w, map[string]any{"message": "Logged out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, _ := FromContext(r.Context())
	u, err := h.svc.Me(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, map[string]any{"user": u})
}

// ─── Cookies ─────────────────────────────────────────────────────────────────

func (h *Handler) setCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(TokenTTL / time.Second),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
