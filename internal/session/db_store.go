package session

import (
	"context"
	"time"

	"github.com/xxxsen/accountd/internal/model"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
)

type sessionRepo interface {
	Create(ctx context.Context, session *model.Session) error
	GetLive(ctx context.Context, tokenHash, userID string, now int64) (*model.Session, error)
	Delete(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}

type DBStore struct {
	repo      sessionRepo
	retention time.Duration
	now       func() time.Time
}

func NewDBStore(repo sessionRepo, retention time.Duration) *DBStore {
	return &DBStore{repo: repo, retention: retention, now: time.Now}
}

func (s *DBStore) Open(ctx context.Context, userID, token string) error {
	now := s.now()
	return s.repo.Create(ctx, &model.Session{
		TokenHash: TokenDigest(token),
		UserID:    userID,
		Ctime:     now.Unix(),
		ExpiresAt: now.Add(s.retention).Unix(),
	})
}

func (s *DBStore) IsLive(ctx context.Context, token, userID string) (bool, error) {
	_, err := s.repo.GetLive(ctx, TokenDigest(token), userID, s.now().Unix())
	if err != nil {
		if appErr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *DBStore) Close(ctx context.Context, token string) error {
	return s.repo.Delete(ctx, TokenDigest(token))
}

// PurgeExpired removes rows past their retention window.
func (s *DBStore) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now().Unix())
}
