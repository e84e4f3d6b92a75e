package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type sessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SessionCleanupJob drops expired rows from the database session store.
type SessionCleanupJob struct {
	sessions sessionPurger
}

func NewSessionCleanupJob(sessions sessionPurger) *SessionCleanupJob {
	return &SessionCleanupJob{sessions: sessions}
}

func (j *SessionCleanupJob) Name() string {
	return "session_cleanup"
}

func (j *SessionCleanupJob) Run(ctx context.Context) error {
	if j.sessions == nil {
		return nil
	}
	removed, err := j.sessions.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("expired sessions removed", zap.Int64("count", removed))
	}
	return nil
}
