package papers

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"jobmate/research-service/internal/apperr"
	"jobmate/research-service/internal/db"
)

// Store persists papers.
type Store interface {
	List(ctx context.Context, f Filter) ([]Paper, error)
	Get(ctx context.Context, id string) (*Paper, error)
	Upsert(ctx context.Context, p *Paper) (inserted bool, err error)
	Update(ctx context.Context, id, owner string, patch Patch) (*Paper, error)
	Delete(ctx context.Context, id, owner string) error
	AdminDelete(ctx context.Context, id string) error
	Dedup(ctx context.Context) (int64, error)
}

var (
	errNotFound     = apperr.NotFound("Paper not found")
	errURLForeign   = apperr.Conflict("Paper URL already saved by another user")
	errNothingToSet = apperr.Invalid("Validation failed", "no updatable fields provided")
)

// PGStore implements Store on Postgres.
type PGStore struct {
	db db.DBTX
}

// NewPGStore returns a Store backed by conn.
func NewPGStore(conn db.DBTX) *PGStore { return &PGStore{db: conn} }

const columns = `id, title, authors, publication_date, abstract, url, company, tags, created_by, created_at, updated_at`

func scan(row pgx.Row) (*Paper, error) {
	var p Paper
	if err := row.Scan(&p.ID, &p.Title, &p.Authors, &p.PublicationDate, &p.Abstract, &p.URL,
		&p.Company, &p.Tags, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]Paper, error) {
	var w db.Where
	if f.Company != "" {
		w.Add("company ILIKE %s", db.Like(f.Company))
	}
	if f.Tag != "" {
		w.Add("EXISTS (SELECT 1 FROM unnest(tags) t WHERE t ILIKE %s)", db.Like(f.Tag))
	}
	if f.Author != "" {
		w.Add("EXISTS (SELECT 1 FROM unnest(authors) a WHERE a ILIKE %s)", db.Like(f.Author))
	}
	if f.Q != "" {
		w.Add("title ILIKE %s", db.Like(f.Q))
	}
	if f.Owner != "" {
		w.Add("created_by = %s", f.Owner)
	}
	q := `SELECT ` + columns + ` FROM research_papers` + w.SQL() +
		` ORDER BY publication_date DESC NULLS LAST, created_at DESC LIMIT ` + w.Arg(f.Limit) + ` OFFSET ` + w.Arg(f.Offset)

	rows, err := s.db.Query(ctx, q, w.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	defer rows.Close()

	out := []Paper{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *PGStore) Get(ctx context.Context, id string) (*Paper, error) {
	p, err := scan(s.db.QueryRow(ctx, `SELECT `+columns+` FROM research_papers WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get paper: %w", err)
	}
	return p, nil
}

// Upsert inserts p or overwrites the row with the same url. A row owned by
// someone else is left alone and reported as a conflict.
func (s *PGStore) Upsert(ctx context.Context, p *Paper) (bool, error) {
	var inserted bool
	err := s.db.QueryRow(ctx,
		`INSERT INTO research_papers (id, title, authors, publication_date, abstract, url, company, tags, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (url) DO UPDATE SET
		   title = EXCLUDED.title,
		   authors = EXCLUDED.authors,
		   publication_date = COALESCE(EXCLUDED.publication_date, research_papers.publication_date),
		   abstract = EXCLUDED.abstract,
		   company = EXCLUDED.company,
		   tags = EXCLUDED.tags,
		   updated_at = NOW()
		 WHERE research_papers.created_by IS NOT DISTINCT FROM EXCLUDED.created_by
		 RETURNING id, created_at, updated_at, (xmax = 0)`,
		p.ID, p.Title, nonNil(p.Authors), p.PublicationDate, p.Abstract, p.URL, p.Company, nonNil(p.Tags), p.CreatedBy,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &inserted)
	if db.IsNoRows(err) {
		return false, errURLForeign
	}
	if err != nil {
		return false, fmt.Errorf("upsert paper: %w", err)
	}
	return inserted, nil
}

func (s *PGStore) Update(ctx context.Context, id, owner string, patch Patch) (*Paper, error) {
	var w db.Where
	set := db.NewSet(&w)
	if patch.Title != nil {
		set.Add("title", *patch.Title)
	}
	if patch.Authors != nil {
		set.Add("authors", nonNil(*patch.Authors))
	}
	if patch.PublicationDate != nil {
		d, err := parseDate(*patch.PublicationDate)
		if err != nil {
			return nil, err
		}
		set.Add("publication_date", d)
	}
	if patch.Abstract != nil {
		set.Add("abstract", *patch.Abstract)
	}
	if patch.URL != nil {
		set.Add("url", *patch.URL)
	}
	if patch.Company != nil {
		set.Add("company", *patch.Company)
	}
	if patch.Tags != nil {
		set.Add("tags", nonNil(*patch.Tags))
	}
	if set.Len() == 0 {
		return nil, errNothingToSet
	}
	set.Raw("updated_at = NOW()")
	w.Add("id = %s", id)
	w.Add("created_by = %s", owner)

	p, err := scan(s.db.QueryRow(ctx, `UPDATE research_papers SET `+set.SQL()+w.SQL()+` RETURNING `+columns, w.Args()...))
	switch {
	case db.IsNoRows(err):
		return nil, errNotFound
	case db.IsUniqueViolation(err, "research_papers_url_key"):
		return nil, apperr.Conflict("Paper URL already exists")
	case err != nil:
		return nil, fmt.Errorf("update paper: %w", err)
	}
	return p, nil
}

func (s *PGStore) Delete(ctx context.Context, id, owner string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM research_papers WHERE id = $1 AND created_by = $2`, id, owner); err != nil {
		return fmt.Errorf("delete paper: %w", err)
	}
	return nil
}

func (s *PGStore) AdminDelete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM research_papers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete paper: %w", err)
	}
	return nil
}

// Dedup keeps the most recently updated paper of each case-insensitive title.
func (s *PGStore) Dedup(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM research_papers p USING (
			SELECT id, ROW_NUMBER() OVER (
				PARTITION BY lower(title)
				ORDER BY updated_at DESC, created_at DESC, id
			) AS rn
			FROM research_papers
		) d
		WHERE p.id = d.id AND d.rn > 1`)
	if err != nil {
		return 0, fmt.Errorf("dedup papers: %w", err)
	}
	return tag.RowsAffected(), nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, apperr.Invalid("Validation failed", "publication_date must be YYYY-MM-DD")
	}
	return &d, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Unseen returns the newest papers userID has neither bookmarked nor voted on.
func (s *PGStore) Unseen(ctx context.Context, userID string, limit int) ([]Paper, error) {
	rows, err := s.db.Query(ctx, `SELECT `+columns+` FROM research_papers p
		WHERE NOT EXISTS (SELECT 1 FROM bookmarks b WHERE b.user_id = $1 AND b.paper_id = p.id)
		  AND NOT EXISTS (SELECT 1 FROM votes v WHERE v.user_id = $1 AND v.paper_id = p.id)
		ORDER BY publication_date DESC NULLS LAST, created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("unseen papers: %w", err)
	}
	defer rows.Close()

	out := []Paper{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
