// Package votes records one up or down vote per user and target, and
// tallies votes from the rows on every read.
package votes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"jobmate/research-service/internal/apperr"
	"jobmate/research-service/internal/db"
	"jobmate/research-service/internal/target"
)

// Polarities.
const (
	Up   = 1
	Down = -1
)

// Vote is the JSON shape of a votes row.
type Vote struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	TargetType target.Type `json:"target_type"`
	TargetID   string      `json:"target_id"`
	VoteType   int         `json:"vote_type"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Status is the tally of one target plus the viewer's own vote.
type Status struct {
	UserVote  *int `json:"user_vote"`
	Upvotes   int  `json:"upvotes"`
	Downvotes int  `json:"downvotes"`
	Score     int  `json:"score"`
}

// CastCommand is the body of POST /votes.
type CastCommand struct {
	TargetType string `json:"target_type" validate:"required,oneof=job paper resource user_resource comment"`
	target.IDFields
	VoteType int `json:"vote_type" validate:"required,oneof=1 -1"`
}

// Cast outcomes.
const (
	Created = "created"
	Updated = "updated"
)

var errAlready = apperr.Conflict("Already voted")

// Store persists votes.
type Store interface {
	Find(ctx context.Context, userID string, ref target.Ref) (*Vote, error)
	Insert(ctx context.Context, v *Vote) error
	SetType(ctx context.Context, id string, voteType int) error
	Delete(ctx context.Context, userID string, ref target.Ref) (bool, error)
	Tally(ctx context.Context, ref target.Ref, viewerID string) (Status, error)
}

// ─── Service ─────────────────────────────────────────────────────────────────

// Service implements the voting rules.
type Service struct {
	store   Store
	targets target.Checker
}

// NewService returns a Service.
func NewService(store Store, targets target.Checker) *Service {
	return &Service{store: store, targets: targets}
}

// Cast records the caller's vote. The same polarity twice is a conflict; the
// opposite polarity flips the existing row in place.
func (s *Service) Cast(ctx context.Context, userID string, cmd CastCommand) (*Vote, string, error) {
	if cmd.VoteType != Up && cmd.VoteType != Down {
		return nil, "", apperr.Invalid("Validation failed", "vote_type must be 1 or -1")
	}
	t, err := votable(cmd.TargetType)
	if err != nil {
		return nil, "", err
	}
	ref, err := cmd.IDFields.Resolve(t)
	if err != nil {
		return nil, "", err
	}
	if err := target.MustExist(ctx, s.targets, ref, userID); err != nil {
		return nil, "", err
	}

	existing, err := s.store.Find(ctx, userID, ref)
	switch {
	case err == nil && existing.VoteType == cmd.VoteType:
		return nil, "", errAlready
	case err == nil:
		if err := s.store.SetType(ctx, existing.ID, cmd.VoteType); err != nil {
			return nil, "", err
		}
		existing.VoteType = cmd.VoteType
		return existing, Updated, nil
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, "", err
	}

	v := &Vote{ID: uuid.NewString(), UserID: userID, TargetType: t, TargetID: ref.ID, VoteType: cmd.VoteType}
	// A concurrent cast can slip between Find and Insert; the unique index
	// reports it as a conflict.
	if err := s.store.Insert(ctx, v); err != nil {
		return nil, "", err
	}
	return v, Created, nil
}

// Remove withdraws the caller's vote and reports whether one existed.
func (s *Service) Remove(ctx context.Context, userID, typ, id string) (bool, error) {
	ref, err := parseRef(typ, id)
	if err != nil {
		return false, err
	}
	return s.store.Delete(ctx, userID, ref)
}

// Status tallies a target visible to viewerID, which may be empty.
func (s *Service) Status(ctx context.Context, viewerID, typ, id string) (Status, error) {
	ref, err := parseRef(typ, id)
	if err != nil {
		return Status{}, err
	}
	if err := target.MustExist(ctx, s.targets, ref, viewerID); err != nil {
		return Status{}, err
	}
	return s.store.Tally(ctx, ref, viewerID)
}

func votable(s string) (target.Type, error) {
	t, err := target.Parse(s)
	if err != nil {
		return "", err
	}
	if !t.Votable() {
		return "", apperr.Invalid("Invalid target type", fmt.Sprintf("%s cannot be voted on", t))
	}
	return t, nil
}

func parseRef(typ, id string) (target.Ref, error) {
	t, err := votable(typ)
	if err != nil {
		return target.Ref{}, err
	}
	if id == "" {
		return target.Ref{}, apperr.Invalid("Validation failed", "target_id is required")
	}
	return target.Ref{Type: t, ID: id}, nil
}

// ─── Postgres store ──────────────────────────────────────────────────────────

// PGStore implements Store on Postgres.
type PGStore struct {
	db db.DBTX
}

// NewPGStore returns a Store backed by conn.
func NewPGStore(conn db.DBTX) *PGStore { return &PGStore{db: conn} }

func (s *PGStore) Find(ctx context.Context, userID string, ref target.Ref) (*Vote, error) {
	var v Vote
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, target_type, vote_type, created_at, updated_at FROM votes
		 WHERE user_id = $1 AND target_type = $2 AND `+ref.Type.Column()+` = $3`,
		userID, ref.Type, ref.ID,
	).Scan(&v.ID, &v.UserID, &v.TargetType, &v.VoteType, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find vote: %w", err)
	}
	v.TargetID = ref.ID
	return &v, nil
}

func (s *PGStore) Insert(ctx context.Context, v *Vote) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO votes (id, user_id, target_type, `+v.TargetType.Column()+`, vote_type)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		v.ID, v.UserID, v.TargetType, v.TargetID, v.VoteType,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
	switch {
	case db.IsUniqueViolation(err, "votes_target_key"):
		return errAlready
	case db.IsForeignKeyViolation(err):
		return target.ErrNotFound
	case err != nil:
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

func (s *PGStore) SetType(ctx context.Context, id string, voteType int) error {
	if _, err := s.db.Exec(ctx,
		`UPDATE votes SET vote_type = $1, updated_at = NOW() WHERE id = $2`, voteType, id); err != nil {
		return fmt.Errorf("update vote: %w", err)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, userID string, ref target.Ref) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM votes WHERE user_id = $1 AND target_type = $2 AND `+ref.Type.Column()+` = $3`,
		userID, ref.Type, ref.ID)
	if err != nil {
		return false, fmt.Errorf("delete vote: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGStore) Tally(ctx context.Context, ref target.Ref, viewerID string) (Status, error) {
	var st Status
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE vote_type = 1),
		        COUNT(*) FILTER (WHERE vote_type = -1),
		        MAX(vote_type) FILTER (WHERE user_id = $3)
		 FROM votes
		 WHERE target_type = $1 AND `+ref.Type.Column()+` = $2`,
		ref.Type, ref.ID, viewerID,
	).Scan(&st.Upvotes, &st.Downvotes, &st.UserVote)
	if err != nil {
		return Status{}, fmt.Errorf("tally votes: %w", err)
	}
	st.Score = st.Upvotes - st.Downvotes
	return st, nil
}
