package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/xxxsen/accountd/internal/model"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
	"github.com/xxxsen/accountd/internal/pkg/password"
)

const (
	otpCodeMin   = 100000
	otpCodeRange = 900000
)

// OTPService issues and checks one-time email codes. Attempts are not
// limited; callers that need throttling put it in front of the routes.
type OTPService struct {
	repo   EmailOTPRepository
	sender EmailSender
	ttl    time.Duration
	now    func() time.Time
}

func NewOTPService(repo EmailOTPRepository, sender EmailSender, ttl time.Duration) *OTPService {
	return &OTPService{repo: repo, sender: sender, ttl: ttl, now: time.Now}
}

func (s *OTPService) SendCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return appErr.ErrInvalid
	}
	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := password.Hash(code)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}
	now := s.now()
	item := &model.EmailOTP{
		Email:     email,
		CodeHash:  hash,
		ExpiresAt: now.Add(s.ttl).Unix(),
		Ctime:     now.Unix(),
		Mtime:     now.Unix(),
	}
	if err := s.repo.Upsert(ctx, item); err != nil {
		return err
	}
	minutes := int(s.ttl / time.Minute)
	return s.sender.Send(email, "Your verification code", fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes))
}

// VerifyCode returns true at most once per issued code, and only before it
// expires.
func (s *OTPService) VerifyCode(ctx context.Context, email, code string) (bool, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return false, appErr.ErrInvalid
	}
	item, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if appErr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	now := s.now().Unix()
	if item.CodeHash == "" || item.ExpiresAt <= now {
		return false, nil
	}
	ok, err := password.Verify(item.CodeHash, code)
	if err != nil || !ok {
		return false, nil
	}
	if err := s.repo.Consume(ctx, email, item.CodeHash, now); err != nil {
		if appErr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpCodeRange))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+otpCodeMin), nil
}
