package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/accountd/internal/filestore"
	"github.com/xxxsen/accountd/internal/model"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
	"github.com/xxxsen/accountd/internal/pkg/timeutil"
)

type AccountService struct {
	users     UserRepository
	store     filestore.Store
	maxUpload int64
}

func NewAccountService(users UserRepository, store filestore.Store, maxUpload int64) *AccountService {
	return &AccountService{users: users, store: store, maxUpload: maxUpload}
}

func (s *AccountService) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Redacted(), nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch) (*model.User, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" || utf8.RuneCountInString(name) > maxNameLen {
			return nil, appErr.ErrInvalid
		}
		patch.Name = &name
	}
	if err := s.users.UpdateProfile(ctx, userID, patch, timeutil.NowUnix()); err != nil {
		return nil, err
	}
	return s.Profile(ctx, userID)
}

type UploadInput struct {
	Filename string
	Size     int64
	File     filestore.ReadSeekCloser
}

// UploadProfilePicture stores an image for userID and points the profile at
// it. Only content sniffed as image/* is accepted.
func (s *AccountService) UploadProfilePicture(ctx context.Context, userID string, in UploadInput, baseURL string) (*model.User, error) {
	if s.store == nil {
		return nil, fmt.Errorf("file store not configured")
	}
	if in.File == nil {
		return nil, appErr.ErrInvalidFile
	}
	if s.maxUpload > 0 && in.Size > s.maxUpload {
		return nil, appErr.ErrFileTooLarge
	}
	contentType, err := sniffContentType(in.File)
	if err != nil {
		return nil, appErr.ErrInvalidFile
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, appErr.ErrInvalidFile
	}
	key := buildFileKey(userID, in.Filename)
	if err := s.store.Save(ctx, key, in.File, in.Size, contentType); err != nil {
		return nil, fmt.Errorf("save file: %w", err)
	}
	url := s.store.URL(key, baseURL)
	if err := s.users.UpdateProfilePicture(ctx, userID, url, timeutil.NowUnix()); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("profile picture updated",
		zap.String("user_id", userID),
		zap.String("key", key),
		zap.String("content_type", contentType),
	)
	return s.Profile(ctx, userID)
}

func sniffContentType(file filestore.ReadSeekCloser) (string, error) {
	buf := make([]byte, 512)
	read, err := file.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if read == 0 {
		return "", appErr.ErrInvalidFile
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:read]), nil
}

func buildFileKey(userID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	base := randomHex(8)
	if userID != "" {
		base = userID + "_" + base
	}
	return base + ext
}

func randomHex(size int) string {
	buf := make([]byte, size)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
