package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/account/lifecycle"
)

func newMockRepo(t *testing.T) (*AccountRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAccountRepo(sqlx.NewDb(db, "postgres")), mock
}

var columns = []string{"id", "email", "password_hash", "nickname", "name", "avatar_url", "grade", "role",
	"github_id", "github_token", "is_deleted", "deleted_at", "enabled", "created_at", "updated_at"}

func TestCreate(t *testing.T) {
	r, mock := newMockRepo(t)
	created := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO accounts`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(9), created, created))

	a := &entity.Account{Email: "neo@example.com", Nickname: "neo", Role: entity.RoleUser, Enabled: true}
	id, err := r.Create(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
	assert.Equal(t, created, a.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindDeletionCandidates(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)

	mock.ExpectQuery(`WHERE is_deleted = false AND deleted_at IS NOT NULL AND deleted_at <= \$1\s+AND \(deleted_at, id\) > \(\$2, \$3\)`).
		WithArgs(now, time.Time{}, int64(0), 100).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(3), "a@x.io", "h", "a", "A", "", 0, "USER", nil, nil, false, past, true, past, past))
	mock.ExpectQuery(`AND \(deleted_at, id\) > \(\$2, \$3\)`).
		WithArgs(now, past, int64(3), 100).
		WillReturnRows(sqlmock.NewRows(columns))

	out, err := r.FindDeletionCandidates(context.Background(), now, time.Time{}, 0, 100)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(3), out[0].ID)
	assert.Equal(t, entity.StatePendingDeletion, out[0].State())

	out, err = r.FindDeletionCandidates(context.Background(), now, *out[0].DeletedAt, out[0].ID, 100)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkGithubSkipsAnonymized(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE accounts SET github_id=\$2, github_token=\$3, updated_at=NOW\(\) WHERE id=\$1 AND is_deleted=false`).
		WithArgs(int64(4), int64(99), "gho_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`WHERE id=\$1 AND is_deleted=false`).
		WithArgs(int64(5), int64(99), "gho_1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := r.LinkGithub(context.Background(), 4, 99, "gho_1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.LinkGithub(context.Background(), 5, 99, "gho_1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyAnonymization(t *testing.T) {
	r, mock := newMockRepo(t)
	z := lifecycle.Anonymized{Email: lifecycle.AnonymizedEmail(42), Name: lifecycle.PlaceholderName}

	mock.ExpectExec(`UPDATE accounts\s+SET email=\$2, name=\$3, is_deleted=true, enabled=false`).
		WithArgs(int64(42), "deleted_42@deleted.com", lifecycle.PlaceholderName).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE accounts`).
		WithArgs(int64(42), "deleted_42@deleted.com", lifecycle.PlaceholderName).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := r.ApplyAnonymization(context.Background(), 42, z)
	require.NoError(t, err)
	assert.True(t, ok)

	// second application hits the is_deleted guard
	ok, err = r.ApplyAnonymization(context.Background(), 42, z)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAndClearDeletedAt(t *testing.T) {
	r, mock := newMockRepo(t)
	when := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE accounts SET deleted_at=\$2`).WithArgs(int64(5), when).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE accounts SET deleted_at=NULL`).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := r.SetDeletedAt(context.Background(), 5, when)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.ClearDeletedAt(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsEmail(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("neo@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := r.ExistsEmail(context.Background(), "neo@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}
