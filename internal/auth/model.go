// Package auth issues and verifies bearer tokens, keeps the server-side
// session table that makes them revocable, and provides the RequireAuth /
// OptionalAuth request stages.
package auth

import (
	"context"
	"time"
)

// User is the JSON shape of an account. The password hash never leaves the server.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	DisplayName  string     `json:"display_name"`
	IsActive     bool       `json:"is_active"`
	IsVerified   bool       `json:"is_verified"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// Identity is the caller resolved from a verified token.
type Identity struct {
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
}

// IdentityOf returns the token identity for u.
func IdentityOf(u *User) Identity {
	return Identity{UserID: u.ID, Username: u.Username, Email: u.Email, IsVerified: u.IsVerified}
}

// Session is one row of the sessions table.
type Session struct {
	Token     string    `json:"session_token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ctxKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity injected by RequireAuth / OptionalAuth.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*Identity)
	return id, ok && id != nil
}

// UserID returns the caller's id, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	if id, ok := FromContext(ctx); ok {
		return id.UserID
	}
	return ""
}
