package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"jobmate/research-service/internal/apperr"
)

var (
	errNotConfigured      = apperr.Unavailable("Authentication not configured")
	errInvalidCredentials = apperr.Unauthenticated("Invalid credentials")
	errAccountDisabled    = apperr.Forbidden("Account disabled")

	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// RegisterCommand is the body of POST /auth/register.
type RegisterCommand struct {
	Username    string `json:"username" validate:"required,min=3,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

// LoginCommand is the body of POST /auth/login. Login is a username or email.
type LoginCommand struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Grant is a freshly issued credential.
type Grant struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

// Service implements account and session operations.
type Service struct {
	users    UserStore
	sessions SessionStore
	cache    SessionCache
	tokens   *TokenManager
	now      func() time.Time
}

// NewService wires the auth service. tokens may be nil when no signing secret
// is configured; every operation then reports the service unavailable.
func NewService(users UserStore, sessions SessionStore, cache SessionCache, tokens *TokenManager) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{users: users, sessions: sessions, cache: cache, tokens: tokens, now: time.Now}
}

// WithClock overrides the time source; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Register creates an account and signs the caller in.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*Grant, error) {
	if s.tokens == nil {
		return nil, errNotConfigured
	}
	cmd.Username = strings.TrimSpace(cmd.Username)
	cmd.Email = strings.ToLower(strings.TrimSpace(cmd.Email))
	if !usernamePattern.MatchString(cmd.Username) {
		return nil, apperr.Invalid("Validation failed", "username may contain only letters, digits and underscores")
	}
	if utf8.RuneCountInString(cmd.Password) < MinPasswordLength {
		return nil, apperr.Invalid("Password too short",
			fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}

	emailTaken, usernameTaken, err := s.users.Taken(ctx, cmd.Email, cmd.Username)
	if err != nil {
		return nil, err
	}
	if emailTaken {
		return nil, errEmailTaken
	}
	if usernameTaken {
		return nil, errUsernameTaken
	}

	hash, err := HashPassword(cmd.Password)
	if err != nil {
		return nil, err
	}
	display := strings.TrimSpace(cmd.DisplayName)
	if display == "" {
		display = cmd.Username
	}
	u := &User{
		ID:           uuid.NewString(),
		Username:     cmd.Username,
		Email:        cmd.Email,
		PasswordHash: hash,
		DisplayName:  display,
		IsActive:     true,
	}
	// The unique indexes catch a concurrent registration that slipped past Taken.
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.grant(ctx, u)
}

// Login checks credentials. Unknown login and wrong password are reported identically.
func (s *Service) Login(ctx context.Context, cmd LoginCommand) (*Grant, error) {
	if s.tokens == nil {
		return nil, errNotConfigured
	}
	u, err := s.users.ByLogin(ctx, strings.TrimSpace(cmd.Login))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(u.PasswordHash, cmd.Password) {
		return nil, errInvalidCredentials
	}
	if !u.IsActive {
		return nil, errAccountDisabled
	}
	now := s.now()
	if err := s.users.TouchLogin(ctx, u.ID, now); err != nil {
		slog.Warn("record last login failed", "user_id", u.ID, "err", err)
	} else {
		u.LastLoginAt = &now
	}
	return s.grant(ctx, u)
}

func (s *Service) grant(ctx context.Context, u *User) (*Grant, error) {
	token, exp, err := s.tokens.Issue(IdentityOf(u))
	if err != nil {
		return nil, err
	}
	sess := Session{Token: token, UserID: u.ID, ExpiresAt: exp}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	s.cache.Set(ctx, sess)
	return &Grant{User: u, Token: token, ExpiresAt: exp}, nil
}

// Logout revokes token, or every session of its owner when all is set.
// Failures are logged; the caller is signed out client-side regardless.
func (s *Service) Logout(ctx context.Context, token string, all bool) {
	if token == "" {
		return
	}
	s.cache.Delete(ctx, token)
	if all && s.tokens != nil {
		userID, err := s.tokens.Subject(token)
		if err == nil {
			s.cache.DeleteForUser(ctx, userID)
			if err := s.sessions.DeleteForUser(ctx, userID); err != nil {
				slog.Warn("logout all failed", "user_id", userID, "err", err)
			}
			return
		}
		slog.Warn("logout all: token unreadable, revoking this session only", "err", err)
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		slog.Warn("logout failed", "err", err)
	}
}

// Verify resolves token to an identity. It never returns an error: any
// failure means the token is not accepted.
func (s *Service) Verify(ctx context.Context, token string) (*Identity, bool) {
	if s.tokens == nil || token == "" {
		return nil, false
	}
	id, err := s.tokens.Parse(token)
	if err != nil {
		return nil, false
	}

	now := s.now()
	if sess, ok := s.cache.Get(ctx, token); ok {
		if sess.UserID == id.UserID && now.Before(sess.ExpiresAt) {
			return id, true
		}
		s.cache.Delete(ctx, token)
	}

	sess, err := s.sessions.Get(ctx, token)
	switch {
	case errors.Is(err, apperr.ErrUnavailable):
		// No session table to consult; the signature alone decides.
		return id, true
	case errors.Is(err, apperr.ErrNotFound):
		return nil, false
	case err != nil:
		slog.Warn("session lookup failed", "err", err)
		return nil, false
	}
	if sess.UserID != id.UserID || !now.Before(sess.ExpiresAt) {
		if err := s.sessions.Delete(ctx, token); err != nil {
			slog.Warn("purge stale session failed", "err", err)
		}
		return nil, false
	}
	s.cache.Set(ctx, *sess)
	return id, true
}

// Me returns the account behind id.
func (s *Service) Me(ctx context.Context, id *Identity) (*User, error) {
	if id == nil {
		return nil, apperr.Unauthenticated("Authentication required")
	}
	return s.users.ByID(ctx, id.UserID)
}

// SweepExpired deletes expired session rows.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("expired sessions removed", "count", n)
	}
	return n, nil
}
