package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"jobmate/research-service/internal/apperr"
	"jobmate/research-service/internal/db"
	"jobmate/research-service/internal/jobs"
	"jobmate/research-service/internal/papers"
)

// Limits.
const (
	CandidatePool = 50
	DefaultLimit  = 10
	MaxLimit      = 50
)

// Kinds of recommendation.
const (
	KindJobs   = "jobs"
	KindPapers = "papers"
)

// ProfileStore loads the rows a user bookmarked or upvoted.
type ProfileStore interface {
	Profile(ctx context.Context, userID string, asOf time.Time) (Profile, error)
}

// JobSource lists jobs a user has not interacted with.
type JobSource interface {
	Unseen(ctx context.Context, userID string, limit int) ([]jobs.Job, error)
}

// PaperSource lists papers a user has not interacted with.
type PaperSource interface {
	Unseen(ctx context.Context, userID string, limit int) ([]papers.Paper, error)
}

// Recommendation is one ranked item. Exactly one of Job and Paper is set.
type Recommendation struct {
	Type    string        `json:"type"`
	Score   int           `json:"score"`
	Reasons []string      `json:"reasons"`
	Job     *jobs.Job     `json:"job,omitempty"`
	Paper   *papers.Paper `json:"paper,omitempty"`
}

// Service ranks candidates for a user.
type Service struct {
	profiles ProfileStore
	jobs     JobSource
	papers   PaperSource
	now      func() time.Time
}

// NewService returns a Service.
func NewService(profiles ProfileStore, j JobSource, p PaperSource) *Service {
	return &Service{profiles: profiles, jobs: j, papers: p, now: time.Now}
}

// WithClock overrides the time used for paper recency.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Recommend returns up to limit items of kind, best first. Items scoring
// zero are dropped.
func (s *Service) Recommend(ctx context.Context, userID, kind string, limit int) ([]Recommendation, error) {
	if kind == "" {
		kind = KindJobs
	}
	if kind != KindJobs && kind != KindPapers {
		return nil, apperr.Invalid("Invalid type", "type must be jobs or papers")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	profile, err := s.profiles.Profile(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}

	var out []Recommendation
	switch kind {
	case KindJobs:
		cands, err := s.jobs.Unseen(ctx, userID, CandidatePool)
		if err != nil {
			return nil, err
		}
		for i := range cands {
			j := &cands[i]
			score, reasons := Score(Candidate{Company: j.Company, Skills: j.Skills, SalaryMax: j.SalaryMax}, profile)
			if score > 0 {
				out = append(out, Recommendation{Type: "job", Score: score, Reasons: reasons, Job: j})
			}
		}
	case KindPapers:
		cands, err := s.papers.Unseen(ctx, userID, CandidatePool)
		if err != nil {
			return nil, err
		}
		for i := range cands {
			p := &cands[i]
			score, reasons := Score(Candidate{Company: p.Company, Skills: p.Tags, Published: p.PublicationDate}, profile)
			if score > 0 {
				out = append(out, Recommendation{Type: "paper", Score: score, Reasons: reasons, Paper: p})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []Recommendation{}
	}
	return out, nil
}

// PGProfileStore builds profiles from bookmarks and upvotes in Postgres.
type PGProfileStore struct {
	db db.DBTX
}

// NewPGProfileStore returns a ProfileStore backed by conn.
func NewPGProfileStore(conn db.DBTX) *PGProfileStore { return &PGProfileStore{db: conn} }

func (s *PGProfileStore) Profile(ctx context.Context, userID string, asOf time.Time) (Profile, error) {
	rows, err := s.db.Query(ctx, `
		SELECT j.company, j.skills FROM jobs j
		WHERE EXISTS (SELECT 1 FROM bookmarks b WHERE b.user_id = $1 AND b.job_id = j.id)
		   OR EXISTS (SELECT 1 FROM votes v WHERE v.user_id = $1 AND v.job_id = j.id AND v.vote_type = 1)
		UNION ALL
		SELECT p.company, p.tags FROM research_papers p
		WHERE EXISTS (SELECT 1 FROM bookmarks b WHERE b.user_id = $1 AND b.paper_id = p.id)
		   OR EXISTS (SELECT 1 FROM votes v WHERE v.user_id = $1 AND v.paper_id = p.id AND v.vote_type = 1)`,
		userID)
	if err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}
	defer rows.Close()

	p := NewProfile(asOf)
	for rows.Next() {
		var (
			company string
			skills  []string
		)
		if err := rows.Scan(&company, &skills); err != nil {
			return Profile{}, fmt.Errorf("scan profile: %w", err)
		}
		p.Add(company, skills)
	}
	return p, rows.Err()
}
