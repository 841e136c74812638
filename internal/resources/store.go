package resources

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"jobmate/research-service/internal/apperr"
	"jobmate/research-service/internal/db"
)

// Store persists resources of every kind.
type Store interface {
	List(ctx context.Context, k Kind, f Filter) ([]Resource, error)
	Get(ctx context.Context, k Kind, id, viewer string) (*Resource, error)
	Create(ctx context.Context, r *Resource) error
	Update(ctx context.Context, k Kind, id, owner string, p Patch) (*Resource, error)
	Delete(ctx context.Context, k Kind, id, owner string) error
}

var (
	errNotFound     = apperr.NotFound("Resource not found")
	errJobNotFound  = apperr.NotFound("Job not found")
	errNothingToSet = apperr.Invalid("Validation failed", "no updatable fields provided")
)

// PGStore implements Store on Postgres.
type PGStore struct {
	db db.DBTX
}

// NewPGStore returns a Store backed by conn.
func NewPGStore(conn db.DBTX) *PGStore { return &PGStore{db: conn} }

const columns = `id, user_id, title, description, content, url, resource_type, tags, visibility, job_id, company, created_at, updated_at`

func scan(k Kind, row pgx.Row) (*Resource, error) {
	r := Resource{Kind: k}
	if err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Description, &r.Content, &r.URL, &r.ResourceType,
		&r.Tags, &r.Visibility, &r.JobID, &r.Company, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PGStore) List(ctx context.Context, k Kind, f Filter) ([]Resource, error) {
	var w db.Where
	w.Add("(visibility = 'public' OR user_id = %s)", f.Viewer)
	if f.Owner != "" {
		w.Add("user_id = %s", f.Owner)
	}
	if f.Tag != "" {
		w.Add("EXISTS (SELECT 1 FROM unnest(tags) t WHERE t ILIKE %s)", db.Like(f.Tag))
	}
	if f.Company != "" {
		w.Add("company ILIKE %s", db.Like(f.Company))
	}
	if f.JobID != "" {
		w.Add("job_id = %s", f.JobID)
	}
	if f.Type != "" {
		w.Add("resource_type = %s", f.Type)
	}
	if f.Q != "" {
		w.Add("title ILIKE %s", db.Like(f.Q))
	}
	q := `SELECT ` + columns + ` FROM ` + k.Table() + w.SQL() +
		` ORDER BY created_at DESC, id LIMIT ` + w.Arg(f.Limit) + ` OFFSET ` + w.Arg(f.Offset)

	rows, err := s.db.Query(ctx, q, w.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", k.Table(), err)
	}
	defer rows.Close()

	out := []Resource{}
	for rows.Next() {
		r, err := scan(k, rows)
		if err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *PGStore) Get(ctx context.Context, k Kind, id, viewer string) (*Resource, error) {
	r, err := scan(k, s.db.QueryRow(ctx,
		`SELECT `+columns+` FROM `+k.Table()+` WHERE id = $1 AND (visibility = 'public' OR user_id = $2)`,
		id, viewer))
	if db.IsNoRows(err) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get resource: %w", err)
	}
	return r, nil
}

func (s *PGStore) Create(ctx context.Context, r *Resource) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO `+r.Kind.Table()+` (id, user_id, title, description, content, url, resource_type, tags, visibility, job_id, company)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at`,
		r.ID, r.UserID, r.Title, r.Description, r.Content, r.URL, r.ResourceType, r.Tags, r.Visibility, r.JobID, r.Company,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if db.IsForeignKeyViolation(err) {
		return errJobNotFound
	}
	if err != nil {
		return fmt.Errorf("insert resource: %w", err)
	}
	return nil
}

func (s *PGStore) Update(ctx context.Context, k Kind, id, owner string, p Patch) (*Resource, error) {
	var w db.Where
	set := db.NewSet(&w)
	if p.Title != nil {
		set.Add("title", *p.Title)
	}
	if p.Description != nil {
		set.Add("description", *p.Description)
	}
	if p.Content != nil {
		set.Add("content", *p.Content)
	}
	if p.URL != nil {
		set.Add("url", *p.URL)
	}
	if p.ResourceType != nil {
		set.Add("resource_type", *p.ResourceType)
	}
	if p.Tags != nil {
		set.Add("tags", *p.Tags)
	}
	if p.Visibility != nil {
		set.Add("visibility", *p.Visibility)
	}
	if p.Company != nil {
		set.Add("company", *p.Company)
	}
	if set.Len() == 0 {
		return nil, errNothingToSet
	}
	set.Raw("updated_at = NOW()")
	w.Add("id = %s", id)
	w.Add("user_id = %s", owner)

	r, err := scan(k, s.db.QueryRow(ctx, `UPDATE `+k.Table()+` SET `+set.SQL()+w.SQL()+` RETURNING `+columns, w.Args()...))
	if db.IsNoRows(err) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update resource: %w", err)
	}
	return r, nil
}

func (s *PGStore) Delete(ctx context.Context, k Kind, id, owner string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM `+k.Table()+` WHERE id = $1 AND user_id = $2`, id, owner); err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	return nil
}
