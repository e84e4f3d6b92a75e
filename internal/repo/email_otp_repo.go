package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/accountd/internal/model"
	"github.com/xxxsen/accountd/internal/pkg/dbutil"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
)

type EmailOTPRepo struct {
	db *sql.DB
}

func NewEmailOTPRepo(db *sql.DB) *EmailOTPRepo {
	return &EmailOTPRepo{db: db}
}

// Upsert stores the code for otp.Email, replacing any previous one.
func (r *EmailOTPRepo) Upsert(ctx context.Context, otp *model.EmailOTP) error {
	sqlStr := `
		INSERT INTO email_otps (email, code_hash, expires_at, ctime, mtime)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (email)
		DO UPDATE SET
			code_hash = EXCLUDED.code_hash,
			expires_at = EXCLUDED.expires_at,
			mtime = EXCLUDED.mtime
	`
	args := []interface{}{otp.Email, otp.CodeHash, otp.ExpiresAt, otp.Ctime, otp.Mtime}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *EmailOTPRepo) GetByEmail(ctx context.Context, email string) (*model.EmailOTP, error) {
	where := map[string]interface{}{"email": email}
	sqlStr, args, err := builder.BuildSelect("email_otps", where, []string{"email", "code_hash", "expires_at", "ctime", "mtime"})
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
	var otp model.EmailOTP
	if err := rows.Scan(&otp.Email, &otp.CodeHash, &otp.ExpiresAt, &otp.Ctime, &otp.Mtime); err != nil {
		return nil, err
	}
	return &otp, nil
}

// Consume clears the code only if it is still the one identified by codeHash,
// so a code can be redeemed at most once. ErrNotFound means another caller
// got there first or the code was replaced.
func (r *EmailOTPRepo) Consume(ctx context.Context, email, codeHash string, mtime int64) error {
	where := map[string]interface{}{"email": email, "code_hash": codeHash}
	update := map[string]interface{}{"code_hash": "", "expires_at": 0, "mtime": mtime}
	sqlStr, args, err := builder.BuildUpdate("email_otps", where, update)
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

func (r *EmailOTPRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	const query = `DELETE FROM email_otps WHERE expires_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
