// Package authtest provides request-stage stand-ins for handler tests.
package authtest

import (
	"net/http"

	"jobmate/research-service/internal/auth"
	"jobmate/research-service/internal/httpx"
)

// UserHeader names the header the stand-in stages read the caller id from.
const UserHeader = "X-Test-User"

// Stages authenticates a request as the user named in UserHeader.
func Stages() httpx.Auth {
	return httpx.Auth{Require: require, Optional: optional}
}

// As sets the caller of r.
func As(r *http.Request, userID string) *http.Request {
	r.Header.Set(UserHeader, userID)
	return r
}

func require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get(UserHeader)
		if uid == "" {
			httpx.Error(w, http.StatusUnauthorized, "Authentication required", "")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), &auth.Identity{UserID: uid})))
	})
}

func optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid := r.Header.Get(UserHeader); uid != "" {
			r = r.WithContext(auth.WithIdentity(r.Context(), &auth.Identity{UserID: uid}))
		}
		next.ServeHTTP(w, r)
	})
}
