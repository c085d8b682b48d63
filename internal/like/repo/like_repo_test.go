package repo

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertOnConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	r := NewLikeRepo(sqlx.NewDb(db, "postgres"))

	mock.ExpectExec(`INSERT INTO likes .* ON CONFLICT DO NOTHING`).
		WithArgs(int64(1), "comment", int64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO likes .* ON CONFLICT DO NOTHING`).
		WithArgs(int64(1), "comment", int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM likes`).
		WithArgs(int64(1), "comment", int64(9)).WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	ok, err := r.Insert(ctx, 1, "comment", 9)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.Insert(ctx, 1, "comment", 9)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = r.Delete(ctx, 1, "comment", 9)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
