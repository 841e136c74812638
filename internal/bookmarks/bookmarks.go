// Package bookmarks lets a user keep at most one bookmark per target.
package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"jobmate/research-service/internal/apperr"
	"jobmate/research-service/internal/db"
	"jobmate/research-service/internal/target"
)

// Bookmark is the JSON shape of a bookmarks row.
type Bookmark struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	BookmarkType target.Type `json:"bookmark_type"`
	TargetID     string      `json:"target_id"`
	JobID        *string     `json:"job_id"`
	PaperID      *string     `json:"paper_id"`
	ResourceID   *string     `json:"resource_id"`
	Notes        string      `json:"notes"`
	Tags         []string    `json:"tags"`
	IsFavorite   bool        `json:"is_favorite"`
	CreatedAt    time.Time   `json:"created_at"`
}

// AddCommand is the body of POST /bookmarks.
type AddCommand struct {
	BookmarkType string `json:"bookmark_type" validate:"required,oneof=job paper resource user_resource"`
	target.IDFields
	Notes      string   `json:"notes" validate:"max=2000"`
	Tags       []string `json:"tags" validate:"max=50,dive,required"`
	IsFavorite bool     `json:"is_favorite"`
}

// Patch is the body of PUT /bookmarks/{id}.
type Patch struct {
	Notes      *string   `json:"notes" validate:"omitempty,max=2000"`
	Tags       *[]string `json:"tags" validate:"omitempty,max=50,dive,required"`
	IsFavorite *bool     `json:"is_favorite"`
}

var (
	errAlready      = apperr.Conflict("Already bookmarked")
	errNotFound     = apperr.NotFound("Bookmark not found")
	errNothingToSet = apperr.Invalid("Validation failed", "no updatable fields provided")
)

// Store persists bookmarks.
type Store interface {
	Find(ctx context.Context, userID string, ref target.Ref) (*Bookmark, error)
	Insert(ctx context.Context, b *Bookmark) error
	Delete(ctx context.Context, userID string, ref target.Ref) (bool, error)
	List(ctx context.Context, userID string, t target.Type, limit, offset int) ([]Bookmark, error)
	Update(ctx context.Context, userID, id string, p Patch) (*Bookmark, error)
}

// ─── Service ─────────────────────────────────────────────────────────────────

// Service implements the bookmark rules.
type Service struct {
	store   Store
	targets target.Checker
}

// NewService returns a Service.
func NewService(store Store, targets target.Checker) *Service {
	return &Service{store: store, targets: targets}
}

func bookmarkable(s string) (target.Type, error) {
	t, err := target.Parse(s)
	if err != nil {
		return "", err
	}
	if !t.Bookmarkable() {
		return "", apperr.Invalid("Invalid bookmark type", fmt.Sprintf("%s cannot be bookmarked", t))
	}
	return t, nil
}

// Add bookmarks a target for userID. The target must exist and must not be
// bookmarked already.
func (s *Service) Add(ctx context.Context, userID string, cmd AddCommand) (*Bookmark, error) {
	t, err := bookmarkable(cmd.BookmarkType)
	if err != nil {
		return nil, err
	}
	ref, err := cmd.IDFields.Resolve(t)
	if err != nil {
		return nil, err
	}
	if err := target.MustExist(ctx, s.targets, ref, userID); err != nil {
		return nil, err
	}
	// Check-then-insert can race; the unique index turns the loser into a conflict.
	if _, err := s.store.Find(ctx, userID, ref); err == nil {
		return nil, errAlready
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	b := &Bookmark{
		ID:           uuid.NewString(),
		UserID:       userID,
		BookmarkType: t,
		TargetID:     ref.ID,
		Notes:        strings.TrimSpace(cmd.Notes),
		Tags:         normalizeTags(cmd.Tags),
		IsFavorite:   cmd.IsFavorite,
	}
	b.setTarget(ref)
	if err := s.store.Insert(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Remove deletes the caller's bookmark on (type, id). Nothing matched is not found.
func (s *Service) Remove(ctx context.Context, userID, typ, id string) error {
	t, err := bookmarkable(typ)
	if err != nil {
		return err
	}
	if id == "" {
		return apperr.Invalid("Validation failed", "id is required")
	}
	ok, err := s.store.Delete(ctx, userID, target.Ref{Type: t, ID: id})
	if err != nil {
		return err
	}
	if !ok {
		return errNotFound
	}
	return nil
}

// List returns the caller's bookmarks, optionally of one type.
func (s *Service) List(ctx context.Context, userID, typ string, limit, offset int) ([]Bookmark, error) {
	var t target.Type
	if typ != "" {
		var err error
		if t, err = bookmarkable(typ); err != nil {
			return nil, err
		}
	}
	return s.store.List(ctx, userID, t, limit, offset)
}

// Check returns the caller's bookmark on (type, id), or nil.
func (s *Service) Check(ctx context.Context, userID, typ, id string) (*Bookmark, error) {
	t, err := bookmarkable(typ)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperr.Invalid("Validation failed", "id is required")
	}
	b, err := s.store.Find(ctx, userID, target.Ref{Type: t, ID: id})
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return b, err
}

// Update edits notes, tags or the favorite flag of the caller's bookmark.
func (s *Service) Update(ctx context.Context, userID, id string, p Patch) (*Bookmark, error) {
	if p.Notes == nil && p.Tags == nil && p.IsFavorite == nil {
		return nil, errNothingToSet
	}
	if p.Tags != nil {
		tags := normalizeTags(*p.Tags)
		p.Tags = &tags
	}
	return s.store.Update(ctx, userID, id, p)
}

func (b *Bookmark) setTarget(ref target.Ref) {
	id := ref.ID
	switch ref.Type.Column() {
	case "job_id":
		b.JobID = &id
	case "paper_id":
		b.PaperID = &id
	default:
		b.ResourceID = &id
	}
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ─── Postgres store ──────────────────────────────────────────────────────────

// PGStore implements Store on Postgres.
type PGStore struct {
	db db.DBTX
}

// NewPGStore returns a Store backed by conn.
func NewPGStore(conn db.DBTX) *PGStore { return &PGStore{db: conn} }

const columns = `id, user_id, bookmark_type, COALESCE(job_id, paper_id, resource_id), job_id, paper_id, resource_id, notes, tags, is_favorite, created_at`

func scan(row pgx.Row) (*Bookmark, error) {
	var b Bookmark
	if err := row.Scan(&b.ID, &b.UserID, &b.BookmarkType, &b.TargetID, &b.JobID, &b.PaperID, &b.ResourceID,
		&b.Notes, &b.Tags, &b.IsFavorite, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *PGStore) Find(ctx context.Context, userID string, ref target.Ref) (*Bookmark, error) {
	b, err := scan(s.db.QueryRow(ctx,
		`SELECT `+columns+` FROM bookmarks
		 WHERE user_id = $1 AND bookmark_type = $2 AND `+ref.Type.Column()+` = $3`,
		userID, ref.Type, ref.ID))
	if db.IsNoRows(err) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find bookmark: %w", err)
	}
	return b, nil
}

func (s *PGStore) Insert(ctx context.Context, b *Bookmark) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO bookmarks (id, user_id, bookmark_type, job_id, paper_id, resource_id, notes, tags, is_favorite)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		b.ID, b.UserID, b.BookmarkType, b.JobID, b.PaperID, b.ResourceID, b.Notes, b.Tags, b.IsFavorite,
	).Scan(&b.CreatedAt)
	switch {
	case db.IsUniqueViolation(err, "bookmarks_target_key"):
		return errAlready
	case db.IsForeignKeyViolation(err):
		return target.ErrNotFound
	case err != nil:
		return fmt.Errorf("insert bookmark: %w", err)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, userID string, ref target.Ref) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM bookmarks WHERE user_id = $1 AND bookmark_type = $2 AND `+ref.Type.Column()+` = $3`,
		userID, ref.Type, ref.ID)
	if err != nil {
		return false, fmt.Errorf("delete bookmark: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGStore) List(ctx context.Context, userID string, t target.Type, limit, offset int) ([]Bookmark, error) {
	var w db.Where
	w.Add("user_id = %s", userID)
	if t != "" {
		w.Add("bookmark_type = %s", t)
	}
	q := `SELECT ` + columns + ` FROM bookmarks` + w.SQL() +
		` ORDER BY is_favorite DESC, created_at DESC LIMIT ` + w.Arg(limit) + ` OFFSET ` + w.Arg(offset)
	rows, err := s.db.Query(ctx, q, w.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	out := []Bookmark{}
	for rows.Next() {
		b, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, userID, id string, p Patch) (*Bookmark, error) {
	var w db.Where
	set := db.NewSet(&w)
	if p.Notes != nil {
		set.Add("notes", *p.Notes)
	}
	if p.Tags != nil {
		set.Add("tags", *p.Tags)
	}
	if p.IsFavorite != nil {
		set.Add("is_favorite", *p.IsFavorite)
	}
	w.Add("id = %s", id)
	w.Add("user_id = %s", userID)

	b, err := scan(s.db.QueryRow(ctx, `UPDATE bookmarks SET `+set.SQL()+w.SQL()+` RETURNING `+columns, w.Args()...))
	if db.IsNoRows(err) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update bookmark: %w", err)
	}
	return b, nil
}
