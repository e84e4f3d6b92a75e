package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/accountd/internal/model"
	"github.com/xxxsen/accountd/internal/pkg/dbutil"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
)

var userColumns = []string{
	"id", "name", "email", "password_hash", "phone", "birthday", "gender",
	"address", "profile_picture", "password_mtime", "ctime", "mtime",
}

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new user. Email uniqueness is enforced by idx_users_email,
// a violation comes back as ErrConflict.
func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	data := map[string]interface{}{
		"id":              user.ID,
		"name":            user.Name,
		"email":           user.Email,
		"password_hash":   user.PasswordHash,
		"phone":           user.Phone,
		"birthday":        user.Birthday,
		"gender":          user.Gender,
		"address":         user.Address,
		"profile_picture": user.ProfilePicture,
		"password_mtime":  user.PasswordMtime,
		"ctime":           user.Ctime,
		"mtime":           user.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("users", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"email": email})
}

func (r *UserRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"id": userID})
}

func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	where := map[string]interface{}{"email": email, "_limit": []uint{0, 1}}
	sqlStr, args, err := builder.BuildSelect("users", where, []string{"id"})
	if err != nil {
		return false, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()
	exists := rows.Next()
	return exists, rows.Err()
}

func (r *UserRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.User, error) {
	sqlStr, args, err := builder.BuildSelect("users", where, userColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	var user model.User
	if err := rows.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Phone, &user.Birthday,
		&user.Gender, &user.Address, &user.ProfilePicture, &user.PasswordMtime, &user.Ctime, &user.Mtime,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile writes the non-nil fields of patch plus mtime in a single
// statement.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch, mtime int64) error {
	update := patch.Columns()
	update["mtime"] = mtime
	return r.update(ctx, userID, update)
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string, mtime int64) error {
	return r.update(ctx, userID, map[string]interface{}{
		"password_hash":  passwordHash,
		"password_mtime": mtime,
		"mtime":          mtime,
	})
}

func (r *UserRepo) UpdateProfilePicture(ctx context.Context, userID, url string, mtime int64) error {
	return r.update(ctx, userID, map[string]interface{}{
		"profile_picture": url,
		"mtime":           mtime,
	})
}

func (r *UserRepo) update(ctx context.Context, userID string, update map[string]interface{}) error {
	where := map[string]interface{}{"id": userID}
	sqlStr, args, err := builder.BuildUpdate("users", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
