package papers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"jobmate/research-service/internal/apperr"
)

// Service implements paper operations on top of a Store.
type Service struct {
	store Store
}

// NewService returns a Service.
func NewService(store Store) *Service { return &Service{store: store} }

// List returns papers matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]Paper, error) {
	return s.store.List(ctx, f)
}

// Get returns one paper.
func (s *Service) Get(ctx context.Context, id string) (*Paper, error) {
	return s.store.Get(ctx, id)
}

// Create saves a paper owned by userID, upserting on url.
func (s *Service) Create(ctx context.Context, userID string, cmd CreateCommand) (*Paper, bool, error) {
	p, err := fromCommand(cmd)
	if err != nil {
		return nil, false, err
	}
	p.CreatedBy = &userID
	inserted, err := s.store.Upsert(ctx, p)
	if err != nil {
		return nil, false, err
	}
	return p, inserted, nil
}

// Import upserts an unowned paper, as ingestion and admin tooling do.
func (s *Service) Import(ctx context.Context, cmd CreateCommand) (*Paper, bool, error) {
	p, err := fromCommand(cmd)
	if err != nil {
		return nil, false, err
	}
	inserted, err := s.store.Upsert(ctx, p)
	if err != nil {
		return nil, false, err
	}
	return p, inserted, nil
}

// Update applies patch to a paper owned by userID. Missing and foreign rows
// are both reported as not found.
func (s *Service) Update(ctx context.Context, userID, id string, patch Patch) (*Paper, error) {
	if patch.Empty() {
		return nil, errNothingToSet
	}
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		if t == "" {
			return nil, apperr.Invalid("Validation failed", "title is required")
		}
		patch.Title = &t
	}
	return s.store.Update(ctx, id, userID, patch)
}

// Delete removes a paper owned by userID. Deleting an absent row succeeds.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.store.Delete(ctx, id, userID)
}

// AdminDelete removes a paper regardless of owner.
func (s *Service) AdminDelete(ctx context.Context, id string) error {
	return s.store.AdminDelete(ctx, id)
}

// Dedup removes papers sharing a title, keeping the newest.
func (s *Service) Dedup(ctx context.Context) (int64, error) {
	n, err := s.store.Dedup(ctx)
	if err != nil {
		return 0, err
	}
	slog.Info("papers deduplicated", "removed", n)
	return n, nil
}

func fromCommand(cmd CreateCommand) (*Paper, error) {
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return nil, apperr.Invalid("Validation failed", "title is required")
	}
	date, err := parseDate(cmd.PublicationDate)
	if err != nil {
		return nil, err
	}
	return &Paper{
		ID:              uuid.NewString(),
		Title:           title,
		Authors:         nonNil(cmd.Authors),
		PublicationDate: date,
		Abstract:        cmd.Abstract,
		URL:             strings.TrimSpace(cmd.URL),
		Company:         strings.TrimSpace(cmd.Company),
		Tags:            normalizeTags(cmd.Tags),
	}, nil
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
