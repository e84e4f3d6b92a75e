package service

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
	"github.com/xxxsen/accountd/internal/testutil"
)

type captureSender struct {
	mu   sync.Mutex
	sent map[string]string
}

func (s *captureSender) Send(to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = map[string]string{}
	}
	s.sent[to] = body
	return nil
}

var codeRe = regexp.MustCompile(`\b(\d{6})\b`)

func (s *captureSender) code(t *testing.T, to string) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	m := codeRe.FindStringSubmatch(s.sent[to])
	require.Len(t, m, 2)
	return m[1]
}

func newTestOTP(now *time.Time) (*OTPService, *captureSender, *testutil.MemOTPRepo) {
	repo := testutil.NewMemOTPRepo()
	sender := &captureSender{}
	svc := NewOTPService(repo, sender, 10*time.Minute)
	svc.now = func() time.Time { return *now }
	return svc, sender, repo
}

func TestOTPSingleUse(t *testing.T) {
	now := time.Unix(1700000000, 0)
	svc, sender, repo := newTestOTP(&now)
	ctx := context.Background()

	require.NoError(t, svc.SendCode(ctx, "User@Example.com"))
	code := sender.code(t, "user@example.com")

	stored, err := repo.GetByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	require.NotEqual(t, code, stored.CodeHash)

	ok, err := svc.VerifyCode(ctx, "user@example.com", code)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.VerifyCode(ctx, "user@example.com", code)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOTPExpires(t *testing.T) {
	now := time.Unix(1700000000, 0)
	svc, sender, _ := newTestOTP(&now)
	ctx := context.Background()

	require.NoError(t, svc.SendCode(ctx, "user@example.com"))
	code := sender.code(t, "user@example.com")

	now = now.Add(10 * time.Minute)
	ok, err := svc.VerifyCode(ctx, "user@example.com", code)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOTPWrongCodeAndUnknownEmail(t *testing.T) {
	now := time.Unix(1700000000, 0)
	svc, sender, _ := newTestOTP(&now)
	ctx := context.Background()

	ok, err := svc.VerifyCode(ctx, "nobody@example.com", "123456")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, svc.SendCode(ctx, "user@example.com"))
	code := sender.code(t, "user@example.com")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	ok, err = svc.VerifyCode(ctx, "user@example.com", wrong)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = svc.VerifyCode(ctx, "user@example.com", code)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestOTPResendReplacesCode(t *testing.T) {
	now := time.Unix(1700000000, 0)
	svc, sender, _ := newTestOTP(&now)
	ctx := context.Background()

	require.NoError(t, svc.SendCode(ctx, "user@example.com"))
	first := sender.code(t, "user@example.com")
	require.NoError(t, svc.SendCode(ctx, "user@example.com"))
	second := sender.code(t, "user@example.com")

	if first != second {
		ok, err := svc.VerifyCode(ctx, "user@example.com", first)
		require.NoError(t, err)
		require.False(t, ok)
	}
	ok, err := svc.VerifyCode(ctx, "user@example.com", second)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestOTPValidatesInput(t *testing.T) {
	now := time.Unix(1700000000, 0)
	svc, _, _ := newTestOTP(&now)
	ctx := context.Background()

	require.ErrorIs(t, svc.SendCode(ctx, " "), appErr.ErrInvalid)
	_, err := svc.VerifyCode(ctx, "user@example.com", "")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestGenerateCodeRange(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		require.NotEqual(t, byte('0'), code[0])
	}
}
