package comments

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"jobmate/research-service/internal/db"
	"jobmate/research-service/internal/target"
)

// Store persists comments.
type Store interface {
	Get(ctx context.Context, id string) (*Comment, error)
	ListByTarget(ctx context.Context, ref target.Ref) ([]Comment, error)
	Insert(ctx context.Context, c *Comment) error
	UpdateContent(ctx context.Context, id, content string) (*Comment, error)
	CountActiveDescendants(ctx context.Context, id string) (int, error)
	SoftDelete(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) error
}

// PGStore implements Store on Postgres.
type PGStore struct {
	db db.DBTX
}

// NewPGStore returns a Store backed by conn.
func NewPGStore(conn db.DBTX) *PGStore { return &PGStore{db: conn} }

const selectComment = `
	SELECT c.id, c.user_id, COALESCE(u.username, ''), c.target_type, c.target_id, c.parent_comment_id,
	       c.content, c.is_edited, c.is_deleted, c.created_at, c.updated_at,
	       COUNT(v.id) FILTER (WHERE v.vote_type = 1),
	       COUNT(v.id) FILTER (WHERE v.vote_type = -1)
	FROM comments c
	LEFT JOIN users u ON u.id = c.user_id
	LEFT JOIN votes v ON v.comment_id = c.id`

const groupComment = ` GROUP BY c.id, u.username`

func scan(row pgx.Row) (*Comment, error) {
	var c Comment
	if err := row.Scan(&c.ID, &c.UserID, &c.Username, &c.TargetType, &c.TargetID, &c.ParentCommentID,
		&c.Content, &c.IsEdited, &c.IsDeleted, &c.CreatedAt, &c.UpdatedAt, &c.Upvotes, &c.Downvotes); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PGStore) Get(ctx context.Context, id string) (*Comment, error) {
	c, err := scan(s.db.QueryRow(ctx, selectComment+` WHERE c.id = $1`+groupComment, id))
	if db.IsNoRows(err) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

func (s *PGStore) ListByTarget(ctx context.Context, ref target.Ref) ([]Comment, error) {
	rows, err := s.db.Query(ctx,
		selectComment+` WHERE c.target_type = $1 AND c.target_id = $2`+groupComment+` ORDER BY c.created_at, c.id`,
		ref.Type, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := []Comment{}
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *PGStore) Insert(ctx context.Context, c *Comment) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO comments (id, user_id, target_type, target_id, parent_comment_id, content)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		c.ID, c.UserID, c.TargetType, c.TargetID, c.ParentCommentID, c.Content,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if db.IsForeignKeyViolation(err) {
		return errParentNotFound
	}
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// UpdateContent rewrites a live comment and marks it edited.
func (s *PGStore) UpdateContent(ctx context.Context, id, content string) (*Comment, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE comments SET content = $1, is_edited = TRUE, updated_at = NOW()
		 WHERE id = $2 AND NOT is_deleted`, content, id)
	if err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, errNotFound
	}
	return s.Get(ctx, id)
}

// CountActiveDescendants counts live comments anywhere below id.
func (s *PGStore) CountActiveDescendants(ctx context.Context, id string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		WITH RECURSIVE sub AS (
			SELECT id, is_deleted FROM comments WHERE parent_comment_id = $1
			UNION ALL
			SELECT c.id, c.is_deleted FROM comments c JOIN sub ON c.parent_comment_id = sub.id
		)
		SELECT COUNT(*) FILTER (WHERE NOT is_deleted) FROM sub`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count replies: %w", err)
	}
	return n, nil
}

func (s *PGStore) SoftDelete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx,
		`UPDATE comments SET content = $1, is_deleted = TRUE, updated_at = NOW() WHERE id = $2`,
		Tombstone, id); err != nil {
		return fmt.Errorf("soft delete comment: %w", err)
	}
	return nil
}

// HardDelete removes id; the foreign key cascades to its (fully deleted) subtree.
func (s *PGStore) HardDelete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("hard delete comment: %w", err)
	}
	return nil
}
