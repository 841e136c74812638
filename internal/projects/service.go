package projects

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"jobmate/research-service/internal/apperr"
	"jobmate/research-service/internal/events"
)

// Service implements project operations on top of a Store.
type Service struct {
	store  Store
	events events.Publisher
}

// NewService returns a Service. pub receives EVENT_PROJECT_COMPLETED.
func NewService(store Store, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{store: store, events: pub}
}

// Create saves a new project owned by userID.
func (s *Service) Create(ctx context.Context, userID string, cmd CreateCommand) (*Project, error) {
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return nil, apperr.Invalid("Validation failed", "title is required")
	}
	p := &Project{
		ID:              uuid.NewString(),
		UserID:          userID,
		Title:           title,
		Description:     cmd.Description,
		Status:          orDefault(cmd.Status, StatusPlanning),
		Priority:        orDefault(cmd.Priority, "medium"),
		Category:        orDefault(cmd.Category, "other"),
		Tags:            idSet(cmd.Tags),
		LinkedJobs:      idSet(cmd.LinkedJobs),
		LinkedPapers:    idSet(cmd.LinkedPapers),
		LinkedResources: idSet(cmd.LinkedResources),
		Notes:           cmd.Notes,
		IsPublic:        cmd.IsPublic,
	}
	if cmd.Progress != nil {
		p.Progress = *cmd.Progress
	}
	if p.Progress < ProgressMin || p.Progress > ProgressDone {
		return nil, errProgressRange
	}
	if p.Progress == ProgressDone {
		p.Status = StatusCompleted
	}
	if err := s.store.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns the caller's projects.
func (s *Service) List(ctx context.Context, userID string, f Filter) ([]Project, error) {
	f.Owner, f.Public = userID, false
	return s.store.List(ctx, f)
}

// ListPublic returns every public project.
func (s *Service) ListPublic(ctx context.Context, f Filter) ([]Project, error) {
	f.Owner, f.Public = "", true
	return s.store.List(ctx, f)
}

// Get returns a project the viewer owns or that is public. Anything else is
// not found.
func (s *Service) Get(ctx context.Context, viewerID, id string) (*Project, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsPublic && p.UserID != viewerID {
		return nil, errNotFound
	}
	return p, nil
}

// Update applies patch to a project owned by userID. Link sets present in
// patch replace the stored ones. Progress reaching 100 completes the project.
func (s *Service) Update(ctx context.Context, userID, id string, patch Patch) (*Project, error) {
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
	for _, set := range []*[]string{patch.Tags, patch.LinkedJobs, patch.LinkedPapers, patch.LinkedResources} {
		if set != nil {
			*set = idSet(*set)
		}
	}
	return s.apply(ctx, userID, id, patch)
}

// SetProgress updates progress alone, completing the project at 100.
func (s *Service) SetProgress(ctx context.Context, userID, id string, progress int) (*Project, error) {
	return s.apply(ctx, userID, id, Patch{Progress: &progress})
}

func (s *Service) apply(ctx context.Context, userID, id string, patch Patch) (*Project, error) {
	if patch.Progress != nil {
		if *patch.Progress < ProgressMin || *patch.Progress > ProgressDone {
			return nil, errProgressRange
		}
		if *patch.Progress == ProgressDone {
			done := StatusCompleted
			patch.Status = &done
		}
	}

	before, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	p, err := s.store.Update(ctx, id, userID, patch)
	if err != nil {
		return nil, err
	}
	if before.Status != StatusCompleted && p.Status == StatusCompleted {
		s.events.Publish(ctx, events.ProjectCompleted, map[string]any{
			"projectId": p.ID,
			"userId":    p.UserID,
			"title":     p.Title,
		})
	}
	return p, nil
}

// Delete removes a project owned by userID. Missing and foreign projects are
// both not found.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	removed, err := s.store.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !removed {
		return errNotFound
	}
	return nil
}

func (s *Service) owned(ctx context.Context, userID, id string) (*Project, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, errNotFound
	}
	return p, nil
}

var errProgressRange = apperr.Invalid("Validation failed", "progress must be between 0 and 100")

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// idSet trims, drops blanks and removes duplicates, keeping first-seen order.
func idSet(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
