package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type otpDeleter interface {
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
}

type OTPCleanupJob struct {
	repo   otpDeleter
	maxAge time.Duration
	now    func() time.Time
}

func NewOTPCleanupJob(repo otpDeleter, maxAge time.Duration) *OTPCleanupJob {
	return &OTPCleanupJob{repo: repo, maxAge: maxAge, now: time.Now}
}

func (j *OTPCleanupJob) Name() string {
	return "otp_cleanup"
}

func (j *OTPCleanupJob) Run(ctx context.Context) error {
	if j.repo == nil {
		return nil
	}
	maxAge := j.maxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	cutoff := j.now().Add(-maxAge).Unix()
	removed, err := j.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("stale otp codes removed", zap.Int64("count", removed))
	}
	return nil
}
