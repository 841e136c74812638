package resources

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"jobmate/research-service/internal/apperr"
)

const defaultResourceType = "link"

// Service implements resource operations on top of a Store.
type Service struct {
	store Store
}

// NewService returns a Service.
func NewService(store Store) *Service { return &Service{store: store} }

// List returns resources of kind k visible to f.Viewer.
func (s *Service) List(ctx context.Context, k Kind, f Filter) ([]Resource, error) {
	return s.store.List(ctx, k, f)
}

// Get returns one resource. Private rows of other users are not found.
func (s *Service) Get(ctx context.Context, k Kind, id, viewer string) (*Resource, error) {
	return s.store.Get(ctx, k, id, viewer)
}

// Create stores a resource owned by userID. A resource needs a url or content.
func (s *Service) Create(ctx context.Context, k Kind, userID string, cmd CreateCommand) (*Resource, error) {
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return nil, apperr.Invalid("Validation failed", "title is required")
	}
	url, content := strings.TrimSpace(cmd.URL), strings.TrimSpace(cmd.Content)
	if url == "" && content == "" {
		return nil, apperr.Invalid("Validation failed", "url or content is required")
	}
	r := &Resource{
		ID:           uuid.NewString(),
		Kind:         k,
		UserID:       userID,
		Title:        title,
		Description:  cmd.Description,
		Content:      content,
		URL:          url,
		ResourceType: strings.TrimSpace(cmd.ResourceType),
		Tags:         normalizeTags(cmd.Tags),
		Visibility:   cmd.Visibility,
		Company:      strings.TrimSpace(cmd.Company),
	}
	if r.ResourceType == "" {
		r.ResourceType = defaultResourceType
	}
	if r.Visibility == "" {
		r.Visibility = Public
	}
	if id := strings.TrimSpace(cmd.JobID); id != "" {
		r.JobID = &id
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Update applies p to a resource owned by userID. Visibility changes read
// access only; the owner stays the sole writer.
func (s *Service) Update(ctx context.Context, k Kind, userID, id string, p Patch) (*Resource, error) {
	if p.Empty() {
		return nil, errNothingToSet
	}
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return nil, apperr.Invalid("Validation failed", "title is required")
		}
		p.Title = &t
	}
	if p.Tags != nil {
		tags := normalizeTags(*p.Tags)
		p.Tags = &tags
	}
	return s.store.Update(ctx, k, id, userID, p)
}

// Delete removes a resource owned by userID. Deleting an absent row succeeds.
func (s *Service) Delete(ctx context.Context, k Kind, userID, id string) error {
	return s.store.Delete(ctx, k, id, userID)
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
