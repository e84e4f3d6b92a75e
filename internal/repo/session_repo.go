package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/accountd/internal/model"
	"github.com/xxxsen/accountd/internal/pkg/dbutil"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
)

type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, session *model.Session) error {
	data := map[string]interface{}{
		"token_hash": session.TokenHash,
		"user_id":    session.UserID,
		"ctime":      session.Ctime,
		"expires_at": session.ExpiresAt,
	}
	sqlStr, args, err := builder.BuildInsert("sessions", []map[string]interface{}{data})
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

// GetLive returns the session for tokenHash owned by userID whose expiry is
// after now.
func (r *SessionRepo) GetLive(ctx context.Context, tokenHash, userID string, now int64) (*model.Session, error) {
	const query = `SELECT token_hash, user_id, ctime, expires_at FROM sessions
		WHERE token_hash = $1 AND user_id = $2 AND expires_at > $3`
	rows, err := r.db.QueryContext(ctx, query, tokenHash, userID, now)
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
	var s model.Session
	if err := rows.Scan(&s.TokenHash, &s.UserID, &s.Ctime, &s.ExpiresAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepo) Delete(ctx context.Context, tokenHash string) error {
	sqlStr, args, err := builder.BuildDelete("sessions", map[string]interface{}{"token_hash": tokenHash})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *SessionRepo) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at <= $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
