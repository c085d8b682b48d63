package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/account/lifecycle"
)

// AccountRepo provides data access for the accounts table using sqlx.
type AccountRepo struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db} }

const accountColumns = `id, email, password_hash, nickname, name, avatar_url, grade, role,
	github_id, github_token, is_deleted, deleted_at, enabled, created_at, updated_at`

// EnsureTable creates the accounts table if not exists (idempotent).
func (r *AccountRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS accounts (
  id BIGSERIAL PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL DEFAULT '',
  nickname TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  avatar_url TEXT NOT NULL DEFAULT '',
  grade INT NOT NULL DEFAULT 0,
  role TEXT NOT NULL DEFAULT 'USER',
  github_id BIGINT UNIQUE,
  github_token TEXT,
  is_deleted BOOLEAN NOT NULL DEFAULT false,
  deleted_at TIMESTAMPTZ,
  enabled BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_accounts_deletion ON accounts(deleted_at) WHERE is_deleted = false;
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new account row. Returns new ID.
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) (int64, error) {
	const q = `INSERT INTO accounts (email, password_hash, nickname, name, avatar_url, grade, role, github_id, github_token, enabled)
		VALUES (:email, :password_hash, :nickname, :name, :avatar_url, :grade, :role, :github_id, :github_token, :enabled)
		RETURNING id, created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, q, a)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return 0, err
		}
		return a.ID, nil
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return 0, errors.New("no id returned")
}

func (r *AccountRepo) getOne(ctx context.Context, where string, arg any) (*entity.Account, error) {
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, `SELECT `+accountColumns+` FROM accounts WHERE `+where, arg); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID returns sql.ErrNoRows when absent.
func (r *AccountRepo) GetByID(ctx context.Context, id int64) (*entity.Account, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByEmail matches the email exactly as stored.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.getOne(ctx, "email = $1", email)
}

func (r *AccountRepo) GetByNickname(ctx context.Context, nickname string) (*entity.Account, error) {
	return r.getOne(ctx, "nickname = $1", nickname)
}

func (r *AccountRepo) GetByGithubID(ctx context.Context, githubID int64) (*entity.Account, error) {
	return r.getOne(ctx, "github_id = $1", githubID)
}

func (r *AccountRepo) ExistsEmail(ctx context.Context, email string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, email)
	return ok, err
}

func (r *AccountRepo) ExistsNickname(ctx context.Context, nickname string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `SELECT EXISTS (SELECT 1 FROM accounts WHERE nickname = $1)`, nickname)
	return ok, err
}

// UpdateProfile overwrites the editable profile fields of a live account.
func (r *AccountRepo) UpdateProfile(ctx context.Context, id int64, nickname, name, avatarURL string) error {
	const q = `UPDATE accounts SET nickname=$2, name=$3, avatar_url=$4, updated_at=NOW() WHERE id=$1 AND is_deleted=false`
	_, err := r.db.ExecContext(ctx, q, id, nickname, name, avatarURL)
	return err
}

// SetDeletedAt schedules deletion. Returns false if the account is gone or anonymized.
func (r *AccountRepo) SetDeletedAt(ctx context.Context, id int64, deletedAt time.Time) (bool, error) {
	const q = `UPDATE accounts SET deleted_at=$2, updated_at=NOW() WHERE id=$1 AND is_deleted=false`
	return affected(r.db.ExecContext(ctx, q, id, deletedAt))
}

// ClearDeletedAt cancels a scheduled deletion.
func (r *AccountRepo) ClearDeletedAt(ctx context.Context, id int64) (bool, error) {
	const q = `UPDATE accounts SET deleted_at=NULL, updated_at=NOW() WHERE id=$1 AND is_deleted=false`
	return affected(r.db.ExecContext(ctx, q, id))
}

// ApplyAnonymization writes the placeholders in one statement. The
// is_deleted guard makes a repeated call a no-op that reports false.
func (r *AccountRepo) ApplyAnonymization(ctx context.Context, id int64, z lifecycle.Anonymized) (bool, error) {
	const q = `UPDATE accounts
		SET email=$2, name=$3, is_deleted=true, enabled=false, github_id=NULL, github_token=NULL, updated_at=NOW()
		WHERE id=$1 AND is_deleted=false`
	return affected(r.db.ExecContext(ctx, q, id, z.Email, z.Name))
}

// FindDeletionCandidates returns up to limit accounts whose grace window
// elapsed and that are not anonymized yet, ordered by (deleted_at, id) and
// strictly after the (afterDeletedAt, afterID) key. The zero key starts from
// the beginning.
func (r *AccountRepo) FindDeletionCandidates(ctx context.Context, now, afterDeletedAt time.Time, afterID int64, limit int) ([]entity.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts
		WHERE is_deleted = false AND deleted_at IS NOT NULL AND deleted_at <= $1
		AND (deleted_at, id) > ($2, $3)
		ORDER BY deleted_at ASC, id ASC LIMIT $4`
	var out []entity.Account
	if err := r.db.SelectContext(ctx, &out, q, now, afterDeletedAt, afterID, limit); err != nil {
		return nil, err
	}
	return out, nil
}

// LinkGithub stores the external identity and its latest access token.
// Returns false when the account is gone or anonymized.
func (r *AccountRepo) LinkGithub(ctx context.Context, id, githubID int64, token string) (bool, error) {
	const q = `UPDATE accounts SET github_id=$2, github_token=$3, updated_at=NOW() WHERE id=$1 AND is_deleted=false`
	return affected(r.db.ExecContext(ctx, q, id, githubID, token))
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
