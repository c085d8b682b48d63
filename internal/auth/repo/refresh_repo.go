package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// RefreshRepo persists refresh sessions, one row per issued refresh token.
type RefreshRepo struct {
	db *sqlx.DB
}

func NewRefreshRepo(db *sqlx.DB) *RefreshRepo {
	return &RefreshRepo{db: db}
}

func (r *RefreshRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS refresh_sessions (
  id BIGSERIAL PRIMARY KEY,
  token_hash TEXT NOT NULL UNIQUE,
  account_id BIGINT NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_refresh_sessions_account ON refresh_sessions(account_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *RefreshRepo) Save(ctx context.Context, tokenHash string, accountID int64, expiresAt time.Time) (int64, error) {
	const q = `INSERT INTO refresh_sessions (token_hash, account_id, expires_at) VALUES ($1, $2, $3) RETURNING id`
	var id int64
	if err := r.db.QueryRowxContext(ctx, q, tokenHash, accountID, expiresAt).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns sql.ErrNoRows for an unknown token.
func (r *RefreshRepo) Get(ctx context.Context, tokenHash string) (int64, int64, time.Time, error) {
	var row struct {
		ID        int64     `db:"id"`
		AccountID int64     `db:"account_id"`
		ExpiresAt time.Time `db:"expires_at"`
	}
	const q = `SELECT id, account_id, expires_at FROM refresh_sessions WHERE token_hash = $1`
	if err := r.db.GetContext(ctx, &row, q, tokenHash); err != nil {
		return 0, 0, time.Time{}, err
	}
	return row.ID, row.AccountID, row.ExpiresAt, nil
}

// Delete removes one session and reports whether it existed.
func (r *RefreshRepo) Delete(ctx context.Context, tokenHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteByAccount drops every session of an account.
func (r *RefreshRepo) DeleteByAccount(ctx context.Context, accountID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE account_id = $1`, accountID)
	return err
}
