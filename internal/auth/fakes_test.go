package auth_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"jobmate/research-service/internal/apperr"
	"jobmate/research-service/internal/auth"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*auth.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]*auth.User{}} }

func (m *memUsers) Create(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperr.Conflict("Email already registered")
		}
	}
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) Taken(_ context.Context, email, username string) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var e, n bool
	for _, u := range m.users {
		e = e || strings.EqualFold(u.Email, email)
		n = n || strings.EqualFold(u.Username, username)
	}
	return e, n, nil
}

func (m *memUsers) ByLogin(_ context.Context, login string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, login) || strings.EqualFold(u.Email, login) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *memUsers) ByID(_ context.Context, id string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) TouchLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func (m *memUsers) disable(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			u.IsActive = false
		}
	}
}

type memSessions struct {
	mu   sync.Mutex
	rows map[string]auth.Session
}

func newMemSessions() *memSessions { return &memSessions{rows: map[string]auth.Session{}} }

func (m *memSessions) Create(_ context.Context, s auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.Token] = s
	return nil
}

func (m *memSessions) Get(_ context.Context, token string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[token]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &s, nil
}

func (m *memSessions) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, token)
	return nil
}

func (m *memSessions) DeleteForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, s := range m.rows {
		if s.UserID == userID {
			delete(m.rows, k)
		}
	}
	return nil
}

func (m *memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, s := range m.rows {
		if s.ExpiresAt.Before(now) {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// unavailableSessions behaves like a store with no database behind it.
type unavailableSessions struct{}

var errNoDB = apperr.Unavailable("Database not configured")

func (unavailableSessions) Create(context.Context, auth.Session) error { return errNoDB }
func (unavailableSessions) Get(context.Context, string) (*auth.Session, error) {
	return nil, errNoDB
}
func (unavailableSessions) Delete(context.Context, string) error        { return errNoDB }
func (unavailableSessions) DeleteForUser(context.Context, string) error { return errNoDB }
func (unavailableSessions) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, errNoDB
}

const testSecret = "test-secret"

func newTestService() (*auth.Service, *memUsers, *memSessions) {
	users, sessions := newMemUsers(), newMemSessions()
	svc := auth.NewService(users, sessions, nil, auth.NewTokenManager(testSecret))
	return svc, users, sessions
}
