package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"jobmate/research-service/internal/apperr"
	"jobmate/research-service/internal/target"
)

var (
	errNotFound       = apperr.NotFound("Comment not found")
	errParentNotFound = apperr.NotFound("Parent comment not found")
)

// Service implements the comment thread rules.
type Service struct {
	store   Store
	targets target.Checker
}

// NewService returns a Service.
func NewService(store Store, targets target.Checker) *Service {
	return &Service{store: store, targets: targets}
}

// validContent trims s and enforces the length bounds.
func validContent(s string) (string, error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n < MinContentLength || n > MaxContentLength {
		return "", apperr.Invalid("Validation failed",
			fmt.Sprintf("content must be between %d and %d characters", MinContentLength, MaxContentLength))
	}
	return s, nil
}

func commentable(s string) (target.Type, error) {
	t, err := target.Parse(s)
	if err != nil {
		return "", err
	}
	if !t.Commentable() {
		return "", apperr.Invalid("Invalid target type", fmt.Sprintf("%s cannot be commented on", t))
	}
	return t, nil
}

// List returns the thread on a target visible to viewerID (may be empty).
// Tombstoned comments keep their place.
func (s *Service) List(ctx context.Context, viewerID, typ, id string) ([]*Comment, int, error) {
	t, err := commentable(typ)
	if err != nil {
		return nil, 0, err
	}
	if id == "" {
		return nil, 0, apperr.Invalid("Validation failed", "target_id is required")
	}
	ref := target.Ref{Type: t, ID: id}
	if err := target.MustExist(ctx, s.targets, ref, viewerID); err != nil {
		return nil, 0, err
	}
	flat, err := s.store.ListByTarget(ctx, ref)
	if err != nil {
		return nil, 0, err
	}
	return BuildThread(flat), len(flat), nil
}

// Create posts a comment or a reply. A reply inherits nothing: its target
// must equal its parent's, and the parent must not be deleted.
func (s *Service) Create(ctx context.Context, userID string, cmd CreateCommand) (*Comment, error) {
	t, err := commentable(cmd.TargetType)
	if err != nil {
		return nil, err
	}
	content, err := validContent(cmd.Content)
	if err != nil {
		return nil, err
	}
	ref := target.Ref{Type: t, ID: strings.TrimSpace(cmd.TargetID)}

	c := &Comment{
		ID:         uuid.NewString(),
		UserID:     userID,
		TargetType: ref.Type,
		TargetID:   ref.ID,
		Content:    content,
		Replies:    []*Comment{},
	}

	if pid := strings.TrimSpace(cmd.ParentCommentID); pid != "" {
		parent, err := s.store.Get(ctx, pid)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, errParentNotFound
		}
		if err != nil {
			return nil, err
		}
		if parent.TargetType != ref.Type || parent.TargetID != ref.ID {
			return nil, apperr.Invalid("Validation failed", "reply target must match the parent comment's target")
		}
		if StateOf(parent) == StateSoftDeleted {
			return nil, apperr.Invalid("Cannot reply to a deleted comment", "")
		}
		c.ParentCommentID = &parent.ID
	} else if err := target.MustExist(ctx, s.targets, ref, userID); err != nil {
		return nil, err
	}

	if err := s.store.Insert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Edit replaces the content of the caller's comment. Missing and foreign
// comments are both not found; deleted ones cannot be edited.
func (s *Service) Edit(ctx context.Context, userID, id string, cmd EditCommand) (*Comment, error) {
	content, err := validContent(cmd.Content)
	if err != nil {
		return nil, err
	}
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, errNotFound
	}
	if !IsTransitionAllowed(StateOf(c), StateEdited) {
		return nil, apperr.Invalid("Comment has been deleted", "deleted comments cannot be edited")
	}
	return s.store.UpdateContent(ctx, id, content)
}

// Delete removes the caller's comment: a tombstone while live replies hang
// below it, a hard delete otherwise. Absent and foreign comments are left
// untouched and reported as success.
func (s *Service) Delete(ctx context.Context, userID, id string) (State, error) {
	c, err := s.store.Get(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return StateHardDeleted, nil
	}
	if err != nil {
		return "", err
	}
	if c.UserID != userID {
		return StateOf(c), nil
	}

	active, err := s.store.CountActiveDescendants(ctx, id)
	if err != nil {
		return "", err
	}
	from, to := StateOf(c), DeleteTarget(active)
	if from == to {
		return from, nil
	}
	if !IsTransitionAllowed(from, to) {
		return "", fmt.Errorf("comment %s: transition %s → %s not allowed", id, from, to)
	}

	if to == StateSoftDeleted {
		if err := s.store.SoftDelete(ctx, id); err != nil {
			return "", err
		}
		return to, nil
	}
	if err := s.store.HardDelete(ctx, id); err != nil {
		return "", err
	}
	s.pruneAncestors(ctx, c.ParentCommentID)
	return to, nil
}

// pruneAncestors hard-deletes tombstoned ancestors left with no live replies.
func (s *Service) pruneAncestors(ctx context.Context, parentID *string) {
	for parentID != nil {
		parent, err := s.store.Get(ctx, *parentID)
		if err != nil || StateOf(parent) != StateSoftDeleted {
			return
		}
		active, err := s.store.CountActiveDescendants(ctx, parent.ID)
		if err != nil || active > 0 {
			return
		}
		if err := s.store.HardDelete(ctx, parent.ID); err != nil {
			slog.Warn("prune tombstoned comment failed", "comment_id", parent.ID, "err", err)
			return
		}
		parentID = parent.ParentCommentID
	}
}
