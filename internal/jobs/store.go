package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"jobmate/research-service/internal/apperr"
	"jobmate/research-service/internal/db"
)

// Store persists jobs and job↔paper relations.
type Store interface {
	List(ctx context.Context, f Filter) ([]Job, error)
	Get(ctx context.Context, id string) (*Job, error)
	Upsert(ctx context.Context, j *Job) (inserted bool, err error)
	Update(ctx context.Context, id, owner string, p Patch) (*Job, error)
	Delete(ctx context.Context, id, owner string) error
	AdminDelete(ctx context.Context, id string) error
	Dedup(ctx context.Context) (int64, error)
	RelatedPapers(ctx context.Context, jobID string) ([]RelatedPaper, error)
	LinkPaper(ctx context.Context, rel Relation) error
	UnlinkPaper(ctx context.Context, jobID, paperID string) error
}

var (
	errNotFound      = apperr.NotFound("Job not found")
	errPaperNotFound = apperr.NotFound("Paper not found")
	errIDForeign     = apperr.Conflict("Job id already in use")
	errNothingToSet  = apperr.Invalid("Validation failed", "no updatable fields provided")
)

// PGStore implements Store on Postgres.
type PGStore struct {
	db db.DBTX
}

// NewPGStore returns a Store backed by conn.
func NewPGStore(conn db.DBTX) *PGStore { return &PGStore{db: conn} }

const columns = `id, title, company, location, department, salary_min, salary_max, skills, description, url, source, created_by, created_at, updated_at`

func scan(row pgx.Row) (*Job, error) {
	var j Job
	if err := row.Scan(&j.ID, &j.Title, &j.Company, &j.Location, &j.Department, &j.SalaryMin, &j.SalaryMax,
		&j.Skills, &j.Description, &j.URL, &j.Source, &j.CreatedBy, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]Job, error) {
	var w db.Where
	if f.Company != "" {
		w.Add("company ILIKE %s", db.Like(f.Company))
	}
	if f.Skill != "" {
		w.Add("EXISTS (SELECT 1 FROM unnest(skills) s WHERE s ILIKE %s)", db.Like(f.Skill))
	}
	if f.Location != "" {
		w.Add("location ILIKE %s", db.Like(f.Location))
	}
	if f.Q != "" {
		w.Add("title ILIKE %s", db.Like(f.Q))
	}
	if f.Owner != "" {
		w.Add("created_by = %s", f.Owner)
	}
	q := `SELECT ` + columns + ` FROM jobs` + w.SQL() +
		` ORDER BY updated_at DESC, id LIMIT ` + w.Arg(f.Limit) + ` OFFSET ` + w.Arg(f.Offset)

	rows, err := s.db.Query(ctx, q, w.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := []Job{}
	for rows.Next() {
		j, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (s *PGStore) Get(ctx context.Context, id string) (*Job, error) {
	j, err := scan(s.db.QueryRow(ctx, `SELECT `+columns+` FROM jobs WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// Upsert inserts j or overwrites the row with the same id when it has the
// same owner (or both are unowned). Otherwise the id is reported as taken.
func (s *PGStore) Upsert(ctx context.Context, j *Job) (bool, error) {
	var inserted bool
	err := s.db.QueryRow(ctx,
		`INSERT INTO jobs (id, title, company, location, department, salary_min, salary_max, skills, description, url, source, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title,
		   company = EXCLUDED.company,
		   location = EXCLUDED.location,
		   department = EXCLUDED.department,
		   salary_min = EXCLUDED.salary_min,
		   salary_max = EXCLUDED.salary_max,
		   skills = EXCLUDED.skills,
		   description = EXCLUDED.description,
		   url = EXCLUDED.url,
		   source = EXCLUDED.source,
		   updated_at = NOW()
		 WHERE jobs.created_by IS NOT DISTINCT FROM EXCLUDED.created_by
		 RETURNING created_at, updated_at, (xmax = 0)`,
		j.ID, j.Title, j.Company, j.Location, j.Department, j.SalaryMin, j.SalaryMax, nonNil(j.Skills),
		j.Description, j.URL, j.Source, j.CreatedBy,
	).Scan(&j.CreatedAt, &j.UpdatedAt, &inserted)
	if db.IsNoRows(err) {
		return false, errIDForeign
	}
	if err != nil {
		return false, fmt.Errorf("upsert job: %w", err)
	}
	return inserted, nil
}

func (s *PGStore) Update(ctx context.Context, id, owner string, p Patch) (*Job, error) {
	var w db.Where
	set := db.NewSet(&w)
	if p.Title != nil {
		set.Add("title", *p.Title)
	}
	if p.Company != nil {
		set.Add("company", *p.Company)
	}
	if p.Location != nil {
		set.Add("location", *p.Location)
	}
	if p.Department != nil {
		set.Add("department", *p.Department)
	}
	if p.SalaryMin != nil {
		set.Add("salary_min", *p.SalaryMin)
	}
	if p.SalaryMax != nil {
		set.Add("salary_max", *p.SalaryMax)
	}
	if p.Skills != nil {
		set.Add("skills", nonNil(*p.Skills))
	}
	if p.Description != nil {
		set.Add("description", *p.Description)
	}
	if p.URL != nil {
		set.Add("url", *p.URL)
	}
	if set.Len() == 0 {
		return nil, errNothingToSet
	}
	set.Raw("updated_at = NOW()")
	w.Add("id = %s", id)
	w.Add("created_by = %s", owner)

	j, err := scan(s.db.QueryRow(ctx, `UPDATE jobs SET `+set.SQL()+w.SQL()+` RETURNING `+columns, w.Args()...))
	if db.IsNoRows(err) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	return j, nil
}

func (s *PGStore) Delete(ctx context.Context, id, owner string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM jobs WHERE id = $1 AND created_by = $2`, id, owner); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

func (s *PGStore) AdminDelete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

// Dedup keeps the most recently updated job per case-insensitive
// (title, company, location).
func (s *PGStore) Dedup(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM jobs j USING (
			SELECT id, ROW_NUMBER() OVER (
				PARTITION BY lower(title), lower(company), lower(location)
				ORDER BY updated_at DESC, created_at DESC, id
			) AS rn
			FROM jobs
		) d
		WHERE j.id = d.id AND d.rn > 1`)
	if err != nil {
		return 0, fmt.Errorf("dedup jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) RelatedPapers(ctx context.Context, jobID string) ([]RelatedPaper, error) {
	rows, err := s.db.Query(ctx,
		`SELECT p.id, p.title, p.authors, p.publication_date, p.abstract, p.url, p.company, p.tags,
		        p.created_by, p.created_at, p.updated_at, r.relevance_score, r.reason
		 FROM job_paper_relations r
		 JOIN research_papers p ON p.id = r.paper_id
		 WHERE r.job_id = $1
		 ORDER BY r.relevance_score DESC, p.title`, jobID)
	if err != nil {
		return nil, fmt.Errorf("related papers: %w", err)
	}
	defer rows.Close()

	out := []RelatedPaper{}
	for rows.Next() {
		var rp RelatedPaper
		p := &rp.Paper
		if err := rows.Scan(&p.ID, &p.Title, &p.Authors, &p.PublicationDate, &p.Abstract, &p.URL, &p.Company,
			&p.Tags, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt, &rp.RelevanceScore, &rp.Reason); err != nil {
			return nil, fmt.Errorf("scan related paper: %w", err)
		}
		out = append(out, rp)
	}
	return out, rows.Err()
}

// LinkPaper upserts the (job, paper) pair.
func (s *PGStore) LinkPaper(ctx context.Context, rel Relation) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO job_paper_relations (job_id, paper_id, relevance_score, reason)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (job_id, paper_id) DO UPDATE SET
		   relevance_score = EXCLUDED.relevance_score,
		   reason = EXCLUDED.reason`,
		rel.JobID, rel.PaperID, rel.RelevanceScore, rel.Reason)
	if db.IsForeignKeyViolation(err) {
		return errPaperNotFound
	}
	if err != nil {
		return fmt.Errorf("link paper: %w", err)
	}
	return nil
}

func (s *PGStore) UnlinkPaper(ctx context.Context, jobID, paperID string) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM job_paper_relations WHERE job_id = $1 AND paper_id = $2`, jobID, paperID); err != nil {
		return fmt.Errorf("unlink paper: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Unseen returns the newest jobs userID has neither bookmarked nor voted on.
func (s *PGStore) Unseen(ctx context.Context, userID string, limit int) ([]Job, error) {
	rows, err := s.db.Query(ctx, `SELECT `+columns+` FROM jobs j
		WHERE NOT EXISTS (SELECT 1 FROM bookmarks b WHERE b.user_id = $1 AND b.job_id = j.id)
		  AND NOT EXISTS (SELECT 1 FROM votes v WHERE v.user_id = $1 AND v.job_id = j.id)
		ORDER BY created_at DESC, id LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("unseen jobs: %w", err)
	}
	defer rows.Close()

	out := []Job{}
	for rows.Next() {
		j, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}
