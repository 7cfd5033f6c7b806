package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenRepo(t *testing.T) (*TokenRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTokenRepo(db), mock
}

func TestValidateRefreshResolvesLiveToken(t *testing.T) {
	repo, mock := newTokenRepo(t)

	mock.ExpectQuery("SELECT user_id FROM refresh_tokens").
		WithArgs("abc123", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(42))

	uid, err := repo.ValidateRefresh(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateRefreshDeadToken(t *testing.T) {
	repo, mock := newTokenRepo(t)

	// Revoked and expired rows are filtered in the WHERE clause, so a
	// dead token looks exactly like an unknown one.
	mock.ExpectQuery("SELECT user_id FROM refresh_tokens").
		WithArgs("dead", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err := repo.ValidateRefresh(context.Background(), "dead")
	assert.ErrorIs(t, err, ErrRefreshInvalid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeByHashSkipsRevokedRows(t *testing.T) {
	repo, mock := newTokenRepo(t)

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at=\\? WHERE token_hash=\\? AND revoked_at IS NULL").
		WithArgs(sqlmock.AnyArg(), "abc123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RevokeByHash(context.Background(), "abc123"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeAllForUser(t *testing.T) {
	repo, mock := newTokenRepo(t)

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at=\\? WHERE user_id=\\? AND revoked_at IS NULL").
		WithArgs(sqlmock.AnyArg(), uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.RevokeAllForUser(context.Background(), 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeExpiredReportsCount(t *testing.T) {
	repo, mock := newTokenRepo(t)

	mock.ExpectExec("DELETE FROM refresh_tokens WHERE expires_at <").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := repo.PurgeExpired(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
