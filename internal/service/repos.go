package service

import (
	"context"

	"github.com/xxxsen/accountd/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, userID string) (*model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch, mtime int64) error
	UpdatePassword(ctx context.Context, userID, passwordHash string, mtime int64) error
	UpdateProfilePicture(ctx context.Context, userID, url string, mtime int64) error
}

type EmailOTPRepository interface {
	Upsert(ctx context.Context, otp *model.EmailOTP) error
	GetByEmail(ctx context.Context, email string) (*model.EmailOTP, error)
	Consume(ctx context.Context, email, codeHash string, mtime int64) error
}
