package repo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/boardtype"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/comment/entity"
)

type CommentRepo struct {
	db *sqlx.DB
}

func NewCommentRepo(db *sqlx.DB) *CommentRepo { return &CommentRepo{db: db} }

const commentColumns = `id, board_type, board_id, parent_id, author_id, content, like_count, is_deleted, created_at, updated_at`

func (r *CommentRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS comments (
  id BIGINT PRIMARY KEY,
  board_type TEXT NOT NULL,
  board_id BIGINT NOT NULL,
  parent_id BIGINT REFERENCES comments(id),
  author_id BIGINT NOT NULL,
  content TEXT NOT NULL,
  like_count INTEGER NOT NULL DEFAULT 0,
  is_deleted BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_comments_board_top ON comments(board_type, board_id, id DESC) WHERE parent_id IS NULL;
CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_id, id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts c with its pre-assigned id.
func (r *CommentRepo) Create(ctx context.Context, c *entity.Comment) error {
	const q = `INSERT INTO comments (id, board_type, board_id, parent_id, author_id, content, created_at, updated_at)
		VALUES (:id, :board_type, :board_id, :parent_id, :author_id, :content, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, q, c)
	return err
}

// GetByID returns sql.ErrNoRows when absent. Deleted comments are returned.
func (r *CommentRepo) GetByID(ctx context.Context, id int64) (*entity.Comment, error) {
	var c entity.Comment
	if err := r.db.GetContext(ctx, &c, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateContent writes an edit unless the comment was deleted meanwhile.
func (r *CommentRepo) UpdateContent(ctx context.Context, c entity.Comment) (bool, error) {
	const q = `UPDATE comments SET content = $2, updated_at = $3 WHERE id = $1 AND is_deleted = false`
	return affected(r.db.ExecContext(ctx, q, c.ID, c.Content, c.UpdatedAt))
}

// SoftDelete reports false when the comment was already deleted.
func (r *CommentRepo) SoftDelete(ctx context.Context, c entity.Comment) (bool, error) {
	const q = `UPDATE comments SET is_deleted = true, updated_at = $2 WHERE id = $1 AND is_deleted = false`
	return affected(r.db.ExecContext(ctx, q, c.ID, c.UpdatedAt))
}

// FetchTopLevel returns up to limit top-level comments of a board, newest
// first, strictly below cursor. A zero cursor starts from the newest.
func (r *CommentRepo) FetchTopLevel(ctx context.Context, t boardtype.Type, boardID, cursor int64, limit int) ([]entity.Comment, error) {
	q := `SELECT ` + commentColumns + ` FROM comments
		WHERE board_type = $1 AND board_id = $2 AND parent_id IS NULL
		AND ($3::bigint = 0 OR id < $3::bigint)
		ORDER BY id DESC LIMIT $4`
	out := []entity.Comment{}
	if err := r.db.SelectContext(ctx, &out, q, t, boardID, cursor, limit); err != nil {
		return nil, err
	}
	return out, nil
}

// FindReplies loads the direct replies of every parent in one query, oldest first.
func (r *CommentRepo) FindReplies(ctx context.Context, parentIDs []int64) ([]entity.Comment, error) {
	out := []entity.Comment{}
	if len(parentIDs) == 0 {
		return out, nil
	}
	q := `SELECT ` + commentColumns + ` FROM comments WHERE parent_id = ANY($1) ORDER BY id ASC`
	if err := r.db.SelectContext(ctx, &out, q, pq.Array(parentIDs)); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CommentRepo) AdjustLikeCount(ctx context.Context, id int64, delta int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE comments SET like_count = GREATEST(like_count + $2, 0) WHERE id = $1`, id, delta)
	return err
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
