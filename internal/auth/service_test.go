package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobmate/research-service/internal/apperr"
	"jobmate/research-service/internal/auth"
)

func register(t *testing.T, svc *auth.Service, username, email string) *auth.Grant {
	t.Helper()
	g, err := svc.Register(context.Background(), auth.RegisterCommand{
		Username: username, Email: email, Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	return g
}

func TestRegister_ShortPassword(t *testing.T) {
	svc, users, _ := newTestService()
	_, err := svc.Register(context.Background(), auth.RegisterCommand{
		Username: "bob", Email: "bob@example.com", Password: "123",
	})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if ve.Msg != "Password too short" || ve.Details != "Password must be at least 6 characters long" {
		t.Errorf("got %q / %q", ve.Msg, ve.Details)
	}
	if len(users.users) != 0 {
		t.Error("a user was created despite the validation failure")
	}
}

func TestRegister_PasswordLengthCountsCharacters(t *testing.T) {
	svc, _, _ := newTestService()
	// Five characters, ten bytes.
	_, err := svc.Register(context.Background(), auth.RegisterCommand{
		Username: "bob", Email: "bob@example.com", Password: "ééééé",
	})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) || ve.Msg != "Password too short" {
		t.Fatalf("err = %v, want Password too short", err)
	}

	if _, err := svc.Register(context.Background(), auth.RegisterCommand{
		Username: "bob", Email: "bob@example.com", Password: "éééééé",
	}); err != nil {
		t.Fatalf("six-character password rejected: %v", err)
	}
}

func TestRegister_RejectsBadUsername(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Register(context.Background(), auth.RegisterCommand{
		Username: "bob smith", Email: "bob@example.com", Password: "secret123",
	})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()
	register(t, svc, "alice", "alice@example.com")

	_, err := svc.Register(context.Background(), auth.RegisterCommand{
		Username: "alice2", Email: "ALICE@example.com", Password: "secret123",
	})
	if !errors.Is(err, apperr.ErrConflict) || apperr.Message(err) != "Email already registered" {
		t.Fatalf("err = %v, want conflict 'Email already registered'", err)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _, _ := newTestService()
	register(t, svc, "alice", "alice@example.com")

	_, err := svc.Register(context.Background(), auth.RegisterCommand{
		Username: "Alice", Email: "other@example.com", Password: "secret123",
	})
	if !errors.Is(err, apperr.ErrConflict) || apperr.Message(err) != "Username already taken" {
		t.Fatalf("err = %v, want conflict 'Username already taken'", err)
	}
}

func TestRegister_IssuesSession(t *testing.T) {
	svc, _, sessions := newTestService()
	g := register(t, svc, "alice", "alice@example.com")

	if g.User.DisplayName != "alice" {
		t.Errorf("display name = %q, want username fallback", g.User.DisplayName)
	}
	if sessions.count() != 1 {
		t.Errorf("sessions = %d, want 1", sessions.count())
	}
	id, ok := svc.Verify(context.Background(), g.Token)
	if !ok || id.UserID != g.User.ID {
		t.Fatalf("Verify = %+v, %v", id, ok)
	}
}

func TestLogin_GenericFailure(t *testing.T) {
	svc, _, _ := newTestService()
	register(t, svc, "alice", "alice@example.com")

	for _, cmd := range []auth.LoginCommand{
		{Login: "alice", Password: "wrong-pass"},
		{Login: "nobody", Password: "secret123"},
	} {
		_, err := svc.Login(context.Background(), cmd)
		if !errors.Is(err, apperr.ErrUnauthenticated) || apperr.Message(err) != "Invalid credentials" {
			t.Errorf("Login(%s) err = %v, want 'Invalid credentials'", cmd.Login, err)
		}
	}
}

func TestLogin_ByEmailUpdatesLastLogin(t *testing.T) {
	svc, _, _ := newTestService()
	register(t, svc, "alice", "alice@example.com")

	g, err := svc.Login(context.Background(), auth.LoginCommand{Login: "alice@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if g.User.LastLoginAt == nil {
		t.Error("last_login_at not set")
	}
}

func TestLogin_DisabledAccount(t *testing.T) {
	svc, users, _ := newTestService()
	register(t, svc, "alice", "alice@example.com")
	users.disable("alice")

	_, err := svc.Login(context.Background(), auth.LoginCommand{Login: "alice", Password: "secret123"})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	svc, _, _ := newTestService()
	g := register(t, svc, "alice", "alice@example.com")

	svc.Logout(context.Background(), g.Token, false)
	if _, ok := svc.Verify(context.Background(), g.Token); ok {
		t.Error("token still valid after logout")
	}
}

func TestLogout_AllSessions(t *testing.T) {
	svc, _, sessions := newTestService()
	g1 := register(t, svc, "alice", "alice@example.com")
	g2, err := svc.Login(context.Background(), auth.LoginCommand{Login: "alice", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	svc.Logout(context.Background(), g1.Token, true)
	if sessions.count() != 0 {
		t.Errorf("sessions left = %d, want 0", sessions.count())
	}
	if _, ok := svc.Verify(context.Background(), g2.Token); ok {
		t.Error("second session survived logoutAll")
	}
}

func TestLogout_AllSessionsWithExpiredToken(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	users, sessions := newMemUsers(), newMemSessions()
	svc := auth.NewService(users, sessions, nil, auth.NewTokenManager(testSecret).WithClock(clock)).WithClock(clock)

	g1 := register(t, svc, "alice", "alice@example.com")
	if _, err := svc.Login(context.Background(), auth.LoginCommand{Login: "alice", Password: "secret123"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	now = now.Add(auth.TokenTTL + time.Hour)
	svc.Logout(context.Background(), g1.Token, true)
	if sessions.count() != 0 {
		t.Fatalf("sessions left = %d, want 0", sessions.count())
	}
}

func TestVerify_PurgesExpiredSession(t *testing.T) {
	svc, _, sessions := newTestService()
	g := register(t, svc, "alice", "alice@example.com")

	// The row expires before the token does.
	sessions.rows[g.Token] = auth.Session{Token: g.Token, UserID: g.User.ID, ExpiresAt: time.Now().Add(-time.Minute)}
	if _, ok := svc.Verify(context.Background(), g.Token); ok {
		t.Fatal("Verify accepted a token with an expired session")
	}
	if sessions.count() != 0 {
		t.Error("expired session row not purged")
	}
}

func TestVerify_WithoutSessionStore(t *testing.T) {
	tokens := auth.NewTokenManager(testSecret)
	svc := auth.NewService(newMemUsers(), unavailableSessions{}, nil, tokens)
	token, _, err := tokens.Issue(auth.Identity{UserID: "u1", Username: "alice"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	id, ok := svc.Verify(context.Background(), token)
	if !ok || id.UserID != "u1" {
		t.Fatalf("Verify = %+v, %v; want signature-only acceptance", id, ok)
	}
}

func TestService_NotConfigured(t *testing.T) {
	svc := auth.NewService(newMemUsers(), newMemSessions(), nil, nil)
	_, err := svc.Register(context.Background(), auth.RegisterCommand{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	if !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}
	if _, ok := svc.Verify(context.Background(), "anything"); ok {
		t.Error("Verify accepted a token with no secret configured")
	}
}

func TestSweepExpired(t *testing.T) {
	svc, _, sessions := newTestService()
	now := time.Now()
	sessions.rows["old"] = auth.Session{Token: "old", UserID: "u1", ExpiresAt: now.Add(-time.Hour)}
	sessions.rows["new"] = auth.Session{Token: "new", UserID: "u1", ExpiresAt: now.Add(time.Hour)}

	n, err := svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if n != 1 || sessions.count() != 1 {
		t.Errorf("removed %d, left %d; want 1, 1", n, sessions.count())
	}
}
