package projects

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"jobmate/research-service/internal/apperr"
	"jobmate/research-service/internal/db"
)

// Store persists projects.
type Store interface {
	Insert(ctx context.Context, p *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context, f Filter) ([]Project, error)
	Update(ctx context.Context, id, owner string, patch Patch) (*Project, error)
	Delete(ctx context.Context, id, owner string) (bool, error)
}

var (
	errNotFound     = apperr.NotFound("Project not found")
	errNothingToSet = apperr.Invalid("Validation failed", "no updatable fields provided")
)

// PGStore implements Store on Postgres.
type PGStore struct {
	db db.DBTX
}

// NewPGStore returns a Store backed by conn.
func NewPGStore(conn db.DBTX) *PGStore { return &PGStore{db: conn} }

const columns = `id, user_id, title, description, status, priority, category, progress, tags,
	linked_jobs, linked_papers, linked_resources, notes, is_public, created_at, updated_at`

func scan(row pgx.Row) (*Project, error) {
	var p Project
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.Status, &p.Priority, &p.Category,
		&p.Progress, &p.Tags, &p.LinkedJobs, &p.LinkedPapers, &p.LinkedResources, &p.Notes, &p.IsPublic,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PGStore) Insert(ctx context.Context, p *Project) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO projects (id, user_id, title, description, status, priority, category, progress, tags,
		                       linked_jobs, linked_papers, linked_resources, notes, is_public)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.Title, p.Description, p.Status, p.Priority, p.Category, p.Progress, p.Tags,
		p.LinkedJobs, p.LinkedPapers, p.LinkedResources, p.Notes, p.IsPublic,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id string) (*Project, error) {
	p, err := scan(s.db.QueryRow(ctx, `SELECT `+columns+` FROM projects WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]Project, error) {
	var w db.Where
	if f.Public {
		w.Add("is_public")
	} else {
		w.Add("user_id = %s", f.Owner)
	}
	if f.Status != "" {
		w.Add("status = %s", f.Status)
	}
	if f.Category != "" {
		w.Add("category = %s", f.Category)
	}
	q := `SELECT ` + columns + ` FROM projects` + w.SQL() +
		` ORDER BY updated_at DESC LIMIT ` + w.Arg(f.Limit) + ` OFFSET ` + w.Arg(f.Offset)

	rows, err := s.db.Query(ctx, q, w.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := []Project{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Update applies patch to a project owned by owner.
func (s *PGStore) Update(ctx context.Context, id, owner string, patch Patch) (*Project, error) {
	var w db.Where
	set := db.NewSet(&w)
	if patch.Title != nil {
		set.Add("title", *patch.Title)
	}
	if patch.Description != nil {
		set.Add("description", *patch.Description)
	}
	if patch.Status != nil {
		set.Add("status", *patch.Status)
	}
	if patch.Priority != nil {
		set.Add("priority", *patch.Priority)
	}
	if patch.Category != nil {
		set.Add("category", *patch.Category)
	}
	if patch.Progress != nil {
		set.Add("progress", *patch.Progress)
	}
	if patch.Tags != nil {
		set.Add("tags", *patch.Tags)
	}
	if patch.LinkedJobs != nil {
		set.Add("linked_jobs", *patch.LinkedJobs)
	}
	if patch.LinkedPapers != nil {
		set.Add("linked_papers", *patch.LinkedPapers)
	}
	if patch.LinkedResources != nil {
		set.Add("linked_resources", *patch.LinkedResources)
	}
	if patch.Notes != nil {
		set.Add("notes", *patch.Notes)
	}
	if patch.IsPublic != nil {
		set.Add("is_public", *patch.IsPublic)
	}
	if set.Len() == 0 {
		return nil, errNothingToSet
	}
	set.Raw("updated_at = NOW()")
	w.Add("id = %s", id)
	w.Add("user_id = %s", owner)

	p, err := scan(s.db.QueryRow(ctx, `UPDATE projects SET `+set.SQL()+w.SQL()+` RETURNING `+columns, w.Args()...))
	if db.IsNoRows(err) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

func (s *PGStore) Delete(ctx context.Context, id, owner string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM projects WHERE id = $1 AND user_id = $2`, id, owner)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
