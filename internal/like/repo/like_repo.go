package repo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// LikeRepo stores one row per (account, target type, target id).
type LikeRepo struct {
	db *sqlx.DB
}

func NewLikeRepo(db *sqlx.DB) *LikeRepo { return &LikeRepo{db: db} }

func (r *LikeRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS likes (
  account_id BIGINT NOT NULL,
  target_type TEXT NOT NULL,
  target_id BIGINT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  PRIMARY KEY (account_id, target_type, target_id)
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Insert reports false when the like already existed.
func (r *LikeRepo) Insert(ctx context.Context, accountID int64, targetType string, targetID int64) (bool, error) {
	const q = `INSERT INTO likes (account_id, target_type, target_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	return affected(r.db.ExecContext(ctx, q, accountID, targetType, targetID))
}

// Delete reports false when there was nothing to remove.
func (r *LikeRepo) Delete(ctx context.Context, accountID int64, targetType string, targetID int64) (bool, error) {
	const q = `DELETE FROM likes WHERE account_id = $1 AND target_type = $2 AND target_id = $3`
	return affected(r.db.ExecContext(ctx, q, accountID, targetType, targetID))
}

func (r *LikeRepo) Exists(ctx context.Context, accountID int64, targetType string, targetID int64) (bool, error) {
	var ok bool
	const q = `SELECT EXISTS (SELECT 1 FROM likes WHERE account_id = $1 AND target_type = $2 AND target_id = $3)`
	err := r.db.GetContext(ctx, &ok, q, accountID, targetType, targetID)
	return ok, err
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
