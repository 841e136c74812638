package auth

import (
	"context"
	"fmt"
	"time"

	"jobmate/research-service/internal/apperr"
	"jobmate/research-service/internal/db"
)

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Taken(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error)
	ByLogin(ctx context.Context, login string) (*User, error)
	ByID(ctx context.Context, id string) (*User, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// SessionStore persists issued tokens for server-side revocation.
type SessionStore interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

var (
	errEmailTaken    = apperr.Conflict("Email already registered")
	errUsernameTaken = apperr.Conflict("Username already taken")
)

// PGUserStore implements UserStore on Postgres.
type PGUserStore struct {
	db db.DBTX
}

// NewPGUserStore returns a UserStore backed by conn.
func NewPGUserStore(conn db.DBTX) *PGUserStore { return &PGUserStore{db: conn} }

const userColumns = `id, username, email, password_hash, display_name, is_active, is_verified, created_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName,
		&u.IsActive, &u.IsVerified, &u.CreatedAt, &u.LastLoginAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PGUserStore) Create(ctx context.Context, u *User) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO users (id, username, email, password_hash, display_name, is_active, is_verified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.DisplayName, u.IsActive, u.IsVerified,
	).Scan(&u.CreatedAt)
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, "users_email_key"):
		return errEmailTaken
	case db.IsUniqueViolation(err, "users_username_key"):
		return errUsernameTaken
	}
	return fmt.Errorf("insert user: %w", err)
}

func (s *PGUserStore) Taken(ctx context.Context, email, username string) (bool, bool, error) {
	var emailTaken, usernameTaken bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1)),
		        EXISTS (SELECT 1 FROM users WHERE lower(username) = lower($2))`,
		email, username,
	).Scan(&emailTaken, &usernameTaken)
	if err != nil {
		return false, false, fmt.Errorf("check user uniqueness: %w", err)
	}
	return emailTaken, usernameTaken, nil
}

func (s *PGUserStore) ByLogin(ctx context.Context, login string) (*User, error) {
	u, err := scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE lower(username) = lower($1) OR lower(email) = lower($1)
		 LIMIT 1`,
		login,
	))
	if db.IsNoRows(err) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user by login: %w", err)
	}
	return u, nil
}

func (s *PGUserStore) ByID(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("user by id: %w", err)
	}
	return u, nil
}

func (s *PGUserStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.Exec(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id)
	return err
}

// PGSessionStore implements SessionStore on Postgres.
type PGSessionStore struct {
	db db.DBTX
}

// NewPGSessionStore returns a SessionStore backed by conn.
func NewPGSessionStore(conn db.DBTX) *PGSessionStore { return &PGSessionStore{db: conn} }

func (s *PGSessionStore) Create(ctx context.Context, sess Session) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO sessions (session_token, user_id, expires_at) VALUES ($1, $2, $3)`,
		sess.Token, sess.UserID, sess.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *PGSessionStore) Get(ctx context.Context, token string) (*Session, error) {
	var sess Session
	err := s.db.QueryRow(ctx,
		`SELECT session_token, user_id, expires_at FROM sessions WHERE session_token = $1`,
		token,
	).Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt)
	if db.IsNoRows(err) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

func (s *PGSessionStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE session_token = $1`, token)
	return err
}

func (s *PGSessionStore) DeleteForUser(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (s *PGSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
