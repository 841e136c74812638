// Package target names the entity families that bookmarks, votes and
// comments attach to and checks that a referenced row exists.
package target

import (
	"context"
	"fmt"
	"strings"

	"jobmate/research-service/internal/apperr"
	"jobmate/research-service/internal/db"
)

// Type is a target family.
type Type string

const (
	Job          Type = "job"
	Paper        Type = "paper"
	Resource     Type = "resource"
	UserResource Type = "user_resource"
	Comment      Type = "comment"
)

// ErrNotFound is reported when the referenced row does not exist.
var ErrNotFound = apperr.NotFound("Target not found")

// table maps a Type onto its backing table.
var table = map[Type]string{
	Job:          "jobs",
	Paper:        "research_papers",
	Resource:     "job_resources",
	UserResource: "user_resources",
	Comment:      "comments",
}

// Parse validates s as a Type.
func Parse(s string) (Type, error) {
	t := Type(s)
	if _, ok := table[t]; !ok {
		return "", apperr.Invalid("Invalid target type",
			fmt.Sprintf("target type %q must be one of job, paper, resource, user_resource, comment", s))
	}
	return t, nil
}

// Bookmarkable reports whether t may be bookmarked.
func (t Type) Bookmarkable() bool { return t != Comment && t.valid() }

// Commentable reports whether t may carry a comment thread.
func (t Type) Commentable() bool { return t != Comment && t.valid() }

// Votable reports whether t may be voted on.
func (t Type) Votable() bool { return t.valid() }

func (t Type) valid() bool {
	_, ok := table[t]
	return ok
}

// Column is the foreign-key column a vote or bookmark row stores the id in.
// resource and user_resource share resource_id; the type column disambiguates.
func (t Type) Column() string {
	switch t {
	case Job:
		return "job_id"
	case Paper:
		return "paper_id"
	case Comment:
		return "comment_id"
	}
	return "resource_id"
}

// Ref identifies one row of one family.
type Ref struct {
	Type Type
	ID   string
}

// IDFields are the per-family id fields of a request body. Exactly the one
// matching the declared type must be set.
type IDFields struct {
	JobID      string `json:"job_id,omitempty"`
	PaperID    string `json:"paper_id,omitempty"`
	ResourceID string `json:"resource_id,omitempty"`
	CommentID  string `json:"comment_id,omitempty"`
}

// Resolve picks the id matching t, rejecting a missing field or extra ones.
func (f IDFields) Resolve(t Type) (Ref, error) {
	fields := map[string]string{
		"job_id":      f.JobID,
		"paper_id":    f.PaperID,
		"resource_id": f.ResourceID,
		"comment_id":  f.CommentID,
	}
	want := t.Column()
	if fields[want] == "" {
		return Ref{}, apperr.Invalid("Validation failed", fmt.Sprintf("%s is required for type %s", want, t))
	}
	for name, v := range fields {
		if name != want && v != "" {
			return Ref{}, apperr.Invalid("Validation failed", fmt.Sprintf("%s is not allowed for type %s", name, t))
		}
	}
	return Ref{Type: t, ID: fields[want]}, nil
}

// Checker reports whether a target row is visible to viewerID.
type Checker interface {
	Exists(ctx context.Context, ref Ref, viewerID string) (bool, error)
}

// PGChecker implements Checker on Postgres.
type PGChecker struct {
	db db.DBTX
}

// NewPGChecker returns a Checker backed by conn.
func NewPGChecker(conn db.DBTX) *PGChecker { return &PGChecker{db: conn} }

// visible is the read filter of the resource tables: public rows, or the
// viewer's own. The viewer id is always bound as $2.
const visible = `(visibility = 'public' OR user_id = $2)`

// Exists treats private resources as absent for anyone but their owner, and
// soft-deleted comments, or comments on a target the viewer cannot see, as
// absent.
func (c *PGChecker) Exists(ctx context.Context, ref Ref, viewerID string) (bool, error) {
	tbl, ok := table[ref.Type]
	if !ok {
		return false, nil
	}
	q := `SELECT EXISTS (SELECT 1 FROM ` + tbl + ` c WHERE c.id = $1`
	switch ref.Type {
	case Resource, UserResource:
		q += ` AND ` + visible
	case Comment:
		q += ` AND NOT c.is_deleted AND (
			c.target_type IN ('job', 'paper')
			OR (c.target_type = 'resource' AND EXISTS (
				SELECT 1 FROM ` + table[Resource] + ` WHERE id = c.target_id AND ` + visible + `))
			OR (c.target_type = 'user_resource' AND EXISTS (
				SELECT 1 FROM ` + table[UserResource] + ` WHERE id = c.target_id AND ` + visible + `)))`
	}
	q += `)`

	args := []any{ref.ID}
	if strings.Contains(q, "$2") {
		args = append(args, viewerID)
	}
	var found bool
	if err := c.db.QueryRow(ctx, q, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("check %s exists: %w", ref.Type, err)
	}
	return found, nil
}

// MustExist returns ErrNotFound when ref is not visible to viewerID.
func MustExist(ctx context.Context, c Checker, ref Ref, viewerID string) error {
	ok, err := c.Exists(ctx, ref, viewerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
