package auth

import (
	"net/http"
	"strings"

	"jobmate/research-service/internal/httpx"
)

// CookieName is the cookie carrying the bearer token.
const CookieName = "token"

// TokenFromRequest reads the cookie first, then the Authorization header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireAuth rejects requests without a valid token.
func RequireAuth(svc *Service) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				httpx.Error(w, http.StatusUnauthorized, "Authentication required", "")
				return
			}
			id, ok := svc.Verify(r.Context(), token)
			if !ok {
				httpx.Error(w, http.StatusUnauthorized, "Invalid or expired token", "")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(svc *Service) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := TokenFromRequest(r); token != "" {
				if id, ok := svc.Verify(r.Context(), token); ok {
					r = r.WithContext(WithIdentity(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Stages returns both middlewares bundled for handler registration.
func Stages(svc *Service) httpx.Auth {
	return httpx.Auth{Require: RequireAuth(svc), Optional: OptionalAuth(svc)}
}
