package repo

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/accountd/internal/model"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
)

func TestSessionRepoCreateAndGetLive(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewSessionRepo(db)

	mock.ExpectExec(`(?s)^INSERT INTO sessions`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`(?s)^SELECT token_hash, user_id, ctime, expires_at FROM sessions\s+WHERE token_hash = \$1 AND user_id = \$2 AND expires_at > \$3`).
		WithArgs("digest", "u-1", int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"token_hash", "user_id", "ctime", "expires_at"}).
			AddRow("digest", "u-1", int64(10), int64(100)))

	ctx := context.Background()
	require.NoError(t, r.Create(ctx, &model.Session{TokenHash: "digest", UserID: "u-1", Ctime: 10, ExpiresAt: 100}))

	s, err := r.GetLive(ctx, "digest", "u-1", 50)
	require.NoError(t, err)
	require.Equal(t, int64(100), s.ExpiresAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepoGetLiveMissing(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewSessionRepo(db)

	mock.ExpectQuery(`(?s)^SELECT token_hash`).
		WillReturnRows(sqlmock.NewRows([]string{"token_hash", "user_id", "ctime", "expires_at"}))

	_, err := r.GetLive(context.Background(), "digest", "u-1", 50)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestSessionRepoDeleteAndPurge(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewSessionRepo(db)

	mock.ExpectExec(`(?s)^DELETE FROM sessions WHERE .*token_hash`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`(?s)^DELETE FROM sessions WHERE expires_at <= \$1`).
		WithArgs(int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	ctx := context.Background()
	require.NoError(t, r.Delete(ctx, "digest"))
	n, err := r.DeleteExpired(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
