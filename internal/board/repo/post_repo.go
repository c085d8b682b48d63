package repo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/board/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/boardtype"
)

type PostRepo struct {
	db *sqlx.DB
}

func NewPostRepo(db *sqlx.DB) *PostRepo { return &PostRepo{db: db} }

const postColumns = `id, board_type, author_id, title, content, language, like_count, comment_count, view_count, is_deleted, created_at, updated_at`

func (r *PostRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS board_posts (
  id BIGSERIAL PRIMARY KEY,
  board_type TEXT NOT NULL,
  author_id BIGINT NOT NULL,
  title TEXT NOT NULL,
  content TEXT NOT NULL,
  language TEXT NOT NULL DEFAULT '',
  like_count INTEGER NOT NULL DEFAULT 0,
  comment_count INTEGER NOT NULL DEFAULT 0,
  view_count INTEGER NOT NULL DEFAULT 0,
  is_deleted BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_board_posts_type_id ON board_posts(board_type, id DESC) WHERE is_deleted = false;
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// List returns a page of live posts, newest first.
func (r *PostRepo) List(ctx context.Context, t boardtype.Type, limit, offset int) ([]entity.Post, error) {
	q := `SELECT ` + postColumns + ` FROM board_posts
		WHERE board_type = $1 AND is_deleted = false
		ORDER BY id DESC LIMIT $2 OFFSET $3`
	out := []entity.Post{}
	if err := r.db.SelectContext(ctx, &out, q, t, limit, offset); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostRepo) Count(ctx context.Context, t boardtype.Type) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM board_posts WHERE board_type = $1 AND is_deleted = false`, t)
	return n, err
}

// GetByID returns sql.ErrNoRows for a missing or deleted post.
func (r *PostRepo) GetByID(ctx context.Context, t boardtype.Type, id int64) (*entity.Post, error) {
	q := `SELECT ` + postColumns + ` FROM board_posts WHERE id = $1 AND board_type = $2 AND is_deleted = false`
	var p entity.Post
	if err := r.db.GetContext(ctx, &p, q, id, t); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostRepo) IncrementView(ctx context.Context, t boardtype.Type, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE board_posts SET view_count = view_count + 1 WHERE id = $1 AND board_type = $2 AND is_deleted = false`, id, t)
	return err
}

func (r *PostRepo) Create(ctx context.Context, p *entity.Post) (int64, error) {
	const q = `INSERT INTO board_posts (board_type, author_id, title, content, language)
		VALUES (:board_type, :author_id, :title, :content, :language)
		RETURNING id, created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, q, p)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return 0, err
		}
	}
	return p.ID, rows.Err()
}

// Update edits a live post owned by authorID.
func (r *PostRepo) Update(ctx context.Context, p *entity.Post) (bool, error) {
	const q = `UPDATE board_posts SET title = :title, content = :content, language = :language, updated_at = NOW()
		WHERE id = :id AND board_type = :board_type AND author_id = :author_id AND is_deleted = false`
	return affected(r.db.NamedExecContext(ctx, q, p))
}

func (r *PostRepo) SoftDelete(ctx context.Context, t boardtype.Type, id, authorID int64) (bool, error) {
	const q = `UPDATE board_posts SET is_deleted = true, updated_at = NOW()
		WHERE id = $1 AND board_type = $2 AND author_id = $3 AND is_deleted = false`
	return affected(r.db.ExecContext(ctx, q, id, t, authorID))
}

// AdjustLikeCount and AdjustCommentCount never drop a counter below zero.
func (r *PostRepo) AdjustLikeCount(ctx context.Context, t boardtype.Type, id int64, delta int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE board_posts SET like_count = GREATEST(like_count + $3, 0) WHERE id = $1 AND board_type = $2`, id, t, delta)
	return err
}

func (r *PostRepo) AdjustCommentCount(ctx context.Context, t boardtype.Type, id int64, delta int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE board_posts SET comment_count = GREATEST(comment_count + $3, 0) WHERE id = $1 AND board_type = $2`, id, t, delta)
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
