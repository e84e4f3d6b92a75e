package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/accountd/internal/model"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
	"github.com/xxxsen/accountd/internal/pkg/jwt"
	"github.com/xxxsen/accountd/internal/pkg/password"
	"github.com/xxxsen/accountd/internal/pkg/timeutil"
	"github.com/xxxsen/accountd/internal/session"
)

const (
	maxNameLen  = 128
	maxEmailLen = 255
)

type AuthService struct {
	users          UserRepository
	sessions       session.Store
	jwtSecret      []byte
	jwtTTL         time.Duration
	minPasswordLen int
}

// NewAuthService wires the auth flows. A nil sessions store makes tokens
// stateless: they stay valid until they expire and logout is a no-op.
func NewAuthService(users UserRepository, sessions session.Store, secret []byte, ttl time.Duration, minPasswordLen int) *AuthService {
	return &AuthService{
		users:          users,
		sessions:       sessions,
		jwtSecret:      secret,
		jwtTTL:         ttl,
		minPasswordLen: minPasswordLen,
	}
}

func (s *AuthService) Register(ctx context.Context, name, email, plainPassword string) (*model.User, string, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || len(plainPassword) < s.minPasswordLen || password.TooLong(plainPassword) {
		return nil, "", appErr.ErrInvalid
	}
	if utf8.RuneCountInString(name) > maxNameLen || len(email) > maxEmailLen {
		return nil, "", appErr.ErrInvalid
	}
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	now := timeutil.NowUnix()
	user := &model.User{
		ID:            newID(),
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		PasswordMtime: now,
		Ctime:         now,
		Mtime:         now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	token, err := s.issueToken(ctx, user)
	if err != nil {
		// The account is committed; the client recovers through Login.
		logutil.GetLogger(ctx).Warn("user registered without session",
			zap.String("user_id", user.ID), zap.Error(err))
		return nil, "", err
	}
	logutil.GetLogger(ctx).Info("user registered", zap.String("user_id", user.ID))
	return user.Redacted(), token, nil
}

// Login reports ErrInvalidCredentials for both an unknown email and a wrong
// password.
func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*model.User, string, error) {
	email = normalizeEmail(email)
	if email == "" || plainPassword == "" {
		return nil, "", appErr.ErrInvalid
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, "", appErr.ErrInvalidCredentials
		}
		return nil, "", err
	}
	ok, err := password.Verify(user.PasswordHash, plainPassword)
	if err != nil {
		return nil, "", fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, "", appErr.ErrInvalidCredentials
	}
	token, err := s.issueToken(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return user.Redacted(), token, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s.sessions == nil || token == "" {
		return nil
	}
	return s.sessions.Close(ctx, token)
}

// Authenticate resolves a bearer token to the owning user id. Every rejection
// is ErrUnauthorized; only session backend failures come back as other errors.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := jwt.ParseToken(token, s.jwtSecret)
	if err != nil {
		return "", appErr.ErrUnauthorized
	}
	if s.sessions == nil {
		return claims.UserID, nil
	}
	live, err := s.sessions.IsLive(ctx, token, claims.UserID)
	if err != nil {
		return "", fmt.Errorf("check session: %w", err)
	}
	if !live {
		return "", appErr.ErrUnauthorized
	}
	return claims.UserID, nil
}

func (s *AuthService) CheckEmail(ctx context.Context, email string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, appErr.ErrInvalid
	}
	return s.users.EmailExists(ctx, email)
}

// ChangePassword replaces the stored hash once current is verified. A wrong
// current password is ErrInvalidPassword and leaves the account untouched.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if current == "" || len(next) < s.minPasswordLen || password.TooLong(next) {
		return appErr.ErrInvalid
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := password.Verify(user.PasswordHash, current)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return appErr.ErrInvalidPassword
	}
	hash, err := password.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash, timeutil.NowUnix()); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("password changed", zap.String("user_id", userID))
	return nil
}

func (s *AuthService) issueToken(ctx context.Context, user *model.User) (string, error) {
	token, err := jwt.GenerateToken(user.ID, user.Email, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	if s.sessions != nil {
		if err := s.sessions.Open(ctx, user.ID, token); err != nil {
			return "", fmt.Errorf("open session: %w", err)
		}
	}
	return token, nil
}
