package jobs

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"jobmate/research-service/internal/apperr"
)

// summaryScanLimit bounds how many rows /get-summary aggregates.
const summaryScanLimit = 1000

// Service implements job operations on top of a Store.
type Service struct {
	store Store
}

// NewService returns a Service.
func NewService(store Store) *Service { return &Service{store: store} }

// List returns jobs matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]Job, error) {
	return s.store.List(ctx, f)
}

// Get returns one job.
func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	return s.store.Get(ctx, id)
}

// Save stores a job owned by userID. Re-saving the same id updates the row.
func (s *Service) Save(ctx context.Context, userID string, cmd SaveCommand) (*Job, bool, error) {
	j, err := fromCommand(cmd)
	if err != nil {
		return nil, false, err
	}
	j.CreatedBy = &userID
	inserted, err := s.store.Upsert(ctx, j)
	if err != nil {
		return nil, false, err
	}
	return j, inserted, nil
}

// Import upserts an unowned job, as ingestion and admin tooling do.
func (s *Service) Import(ctx context.Context, cmd SaveCommand) (*Job, bool, error) {
	j, err := fromCommand(cmd)
	if err != nil {
		return nil, false, err
	}
	inserted, err := s.store.Upsert(ctx, j)
	if err != nil {
		return nil, false, err
	}
	return j, inserted, nil
}

// Update applies p to a job owned by userID. Missing and foreign rows are
// both reported as not found.
func (s *Service) Update(ctx context.Context, userID, id string, p Patch) (*Job, error) {
	if p.Empty() {
		return nil, errNothingToSet
	}
	if err := checkSalary(p.SalaryMin, p.SalaryMax); err != nil {
		return nil, err
	}
	for _, f := range []**string{&p.Title, &p.Company} {
		if *f != nil {
			v := strings.TrimSpace(**f)
			if v == "" {
				return nil, apperr.Invalid("Validation failed", "title and company cannot be blank")
			}
			*f = &v
		}
	}
	return s.store.Update(ctx, id, userID, p)
}

// Delete removes a job owned by userID. Deleting an absent row succeeds.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.store.Delete(ctx, id, userID)
}

// AdminDelete removes a job regardless of owner.
func (s *Service) AdminDelete(ctx context.Context, id string) error {
	return s.store.AdminDelete(ctx, id)
}

// Dedup removes duplicate listings, keeping the newest of each.
func (s *Service) Dedup(ctx context.Context) (int64, error) {
	n, err := s.store.Dedup(ctx)
	if err != nil {
		return 0, err
	}
	slog.Info("jobs deduplicated", "removed", n)
	return n, nil
}

// Summary aggregates the jobs whose company matches company ("" for all).
func (s *Service) Summary(ctx context.Context, company string) (Summary, error) {
	jobs, err := s.store.List(ctx, Filter{Company: company, Limit: summaryScanLimit})
	if err != nil {
		return Summary{}, err
	}
	return Summarize(jobs), nil
}

// RelatedPapers returns the papers linked to jobID.
func (s *Service) RelatedPapers(ctx context.Context, jobID string) ([]RelatedPaper, error) {
	if _, err := s.store.Get(ctx, jobID); err != nil {
		return nil, err
	}
	return s.store.RelatedPapers(ctx, jobID)
}

// LinkPaper links a paper to a job owned by userID.
func (s *Service) LinkPaper(ctx context.Context, userID, jobID string, cmd LinkCommand) (Relation, error) {
	if err := s.owned(ctx, userID, jobID); err != nil {
		return Relation{}, err
	}
	return s.link(ctx, jobID, cmd)
}

// LinkPaperAdmin links a paper to any job.
func (s *Service) LinkPaperAdmin(ctx context.Context, jobID string, cmd LinkCommand) (Relation, error) {
	if _, err := s.store.Get(ctx, jobID); err != nil {
		return Relation{}, err
	}
	return s.link(ctx, jobID, cmd)
}

func (s *Service) link(ctx context.Context, jobID string, cmd LinkCommand) (Relation, error) {
	rel := Relation{JobID: jobID, PaperID: cmd.PaperID, Reason: strings.TrimSpace(cmd.Reason)}
	if cmd.RelevanceScore != nil {
		rel.RelevanceScore = *cmd.RelevanceScore
	}
	if rel.RelevanceScore < 0 || rel.RelevanceScore > 1 {
		return Relation{}, apperr.Invalid("Validation failed", "relevance_score must be between 0 and 1")
	}
	if err := s.store.LinkPaper(ctx, rel); err != nil {
		return Relation{}, err
	}
	return rel, nil
}

// UnlinkPaper removes a link from a job owned by userID. Removing an absent
// link succeeds.
func (s *Service) UnlinkPaper(ctx context.Context, userID, jobID, paperID string) error {
	if err := s.owned(ctx, userID, jobID); err != nil {
		return err
	}
	return s.store.UnlinkPaper(ctx, jobID, paperID)
}

// UnlinkPaperAdmin removes a link from any job.
func (s *Service) UnlinkPaperAdmin(ctx context.Context, jobID, paperID string) error {
	return s.store.UnlinkPaper(ctx, jobID, paperID)
}

func (s *Service) owned(ctx context.Context, userID, jobID string) error {
	j, err := s.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if j.CreatedBy == nil || *j.CreatedBy != userID {
		return errNotFound
	}
	return nil
}

func fromCommand(cmd SaveCommand) (*Job, error) {
	title, company := strings.TrimSpace(cmd.Title), strings.TrimSpace(cmd.Company)
	switch {
	case title == "":
		return nil, apperr.Invalid("Validation failed", "title is required")
	case company == "":
		return nil, apperr.Invalid("Validation failed", "company is required")
	}
	if err := checkSalary(cmd.SalaryMin, cmd.SalaryMax); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(cmd.ID)
	if id == "" {
		id = uuid.NewString()
	}
	return &Job{
		ID:          id,
		Title:       title,
		Company:     company,
		Location:    strings.TrimSpace(cmd.Location),
		Department:  strings.TrimSpace(cmd.Department),
		SalaryMin:   cmd.SalaryMin,
		SalaryMax:   cmd.SalaryMax,
		Skills:      normalizeSkills(cmd.Skills),
		Description: cmd.Description,
		URL:         strings.TrimSpace(cmd.URL),
		Source:      cmd.Source,
	}, nil
}

func checkSalary(lo, hi *int) error {
	if lo != nil && hi != nil && *lo > *hi {
		return apperr.Invalid("Validation failed", "salary_min must not exceed salary_max")
	}
	return nil
}

func normalizeSkills(skills []string) []string {
	seen := make(map[string]bool, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	return out
}
