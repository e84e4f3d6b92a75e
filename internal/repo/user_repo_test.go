package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/accountd/internal/model"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows(userColumns).
		AddRow("u-1", "A", "a@x.com", "hash", "", "", "", "", "", int64(10), int64(10), int64(10))
}

func TestUserRepoCreate(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewUserRepo(db)

	mock.ExpectExec(`(?s)^INSERT INTO users`).WillReturnResult(sqlmock.NewResult(0, 1))

	err := r.Create(context.Background(), &model.User{ID: "u-1", Name: "A", Email: "a@x.com", PasswordHash: "hash"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoCreateDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewUserRepo(db)

	mock.ExpectExec(`(?s)^INSERT INTO users`).WillReturnError(&pq.Error{Code: "23505"})

	err := r.Create(context.Background(), &model.User{ID: "u-2", Name: "A", Email: "a@x.com"})
	require.ErrorIs(t, err, appErr.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoCreateDBError(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewUserRepo(db)

	mock.ExpectExec(`(?s)^INSERT INTO users`).WillReturnError(errors.New("db down"))

	err := r.Create(context.Background(), &model.User{ID: "u-2"})
	require.Error(t, err)
	require.False(t, appErr.IsConflict(err))
}

func TestUserRepoGetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewUserRepo(db)

	mock.ExpectQuery(`(?s)^SELECT .+ FROM users WHERE .*email`).
		WithArgs("a@x.com").
		WillReturnRows(userRows())

	user, err := r.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "u-1", user.ID)
	require.Equal(t, "hash", user.PasswordHash)
	require.Equal(t, int64(10), user.PasswordMtime)
}

func TestUserRepoGetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewUserRepo(db)

	mock.ExpectQuery(`(?s)^SELECT .+ FROM users WHERE .*id`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := r.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestUserRepoEmailExists(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewUserRepo(db)

	mock.ExpectQuery(`(?s)^SELECT id FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-1"))
	mock.ExpectQuery(`(?s)^SELECT id FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	exists, err := r.EmailExists(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = r.EmailExists(context.Background(), "b@x.com")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestUserRepoUpdateProfileOnlyTouchesProvidedFields(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewUserRepo(db)

	name := "B"
	mock.ExpectExec(`(?s)^UPDATE users SET .*name.*WHERE`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := r.UpdateProfile(context.Background(), "u-1", model.ProfilePatch{Name: &name}, 20)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoUpdatePasswordNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewUserRepo(db)

	mock.ExpectExec(`(?s)^UPDATE users SET .*password_hash.*WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.UpdatePassword(context.Background(), "missing", "hash", 20)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestUserRepoUpdateProfilePicture(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewUserRepo(db)

	mock.ExpectExec(`(?s)^UPDATE users SET .*profile_picture.*WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, r.UpdateProfilePicture(context.Background(), "u-1", "http://x/a.png", 20))
	require.NoError(t, mock.ExpectationsWereMet())
}
