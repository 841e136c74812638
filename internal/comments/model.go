package comments

import (
	"sort"
	"time"

	"jobmate/research-service/internal/target"
)

// Comment is the JSON shape of a comment. Upvotes and Downvotes are tallied
// from the votes table on read.
type Comment struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	Username        string      `json:"username"`
	TargetType      target.Type `json:"target_type"`
	TargetID        string      `json:"target_id"`
	ParentCommentID *string     `json:"parent_comment_id"`
	Content         string      `json:"content"`
	IsEdited        bool        `json:"is_edited"`
	IsDeleted       bool        `json:"is_deleted"`
	Upvotes         int         `json:"upvotes"`
	Downvotes       int         `json:"downvotes"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Replies         []*Comment  `json:"replies"`
}

// Content bounds, in characters, after trimming.
const (
	MinContentLength = 1
	MaxContentLength = 5000
)

// CreateCommand is the body of POST /comments.
type CreateCommand struct {
	TargetType      string `json:"target_type" validate:"required,oneof=job paper resource user_resource"`
	TargetID        string `json:"target_id" validate:"required"`
	ParentCommentID string `json:"parent_comment_id"`
	Content         string `json:"content" validate:"required"`
}

// EditCommand is the body of PUT /comments/{id}.
type EditCommand struct {
	Content string `json:"content" validate:"required"`
}

// BuildThread arranges a flat list into reply trees ordered oldest first.
// A comment whose parent is absent from the list is promoted to a root.
func BuildThread(flat []Comment) []*Comment {
	nodes := make(map[string]*Comment, len(flat))
	order := make([]*Comment, 0, len(flat))
	for i := range flat {
		c := flat[i]
		c.Replies = []*Comment{}
		nodes[c.ID] = &c
		order = append(order, &c)
	}
	sort.SliceStable(order, func(a, b int) bool { return order[a].CreatedAt.Before(order[b].CreatedAt) })

	roots := []*Comment{}
	for _, c := range order {
		if c.ParentCommentID != nil {
			if parent, ok := nodes[*c.ParentCommentID]; ok && parent != c {
				parent.Replies = append(parent.Replies, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	return roots
}
