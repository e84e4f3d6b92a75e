// Package testutil provides in-memory stand-ins for the postgres repositories
// and session stores, for service and handler tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/xxxsen/accountd/internal/model"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
	"github.com/xxxsen/accountd/internal/session"
)

type MemUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func NewMemUserRepo() *MemUserRepo {
	return &MemUserRepo{users: make(map[string]*model.User)}
}

func (r *MemUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.users {
		if item.Email == user.Email {
			return appErr.ErrConflict
		}
	}
	if _, ok := r.users[user.ID]; ok {
		return appErr.ErrConflict
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *MemUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.users {
		if item.Email == email {
			cp := *item
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (r *MemUserRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.users[userID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (r *MemUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err != nil {
		if appErr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *MemUserRepo) UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch, mtime int64) error {
	return r.update(userID, func(u *model.User) {
		if patch.Name != nil {
			u.Name = *patch.Name
		}
		if patch.Phone != nil {
			u.Phone = *patch.Phone
		}
		if patch.Birthday != nil {
			u.Birthday = *patch.Birthday
		}
		if patch.Gender != nil {
			u.Gender = *patch.Gender
		}
		if patch.Address != nil {
			u.Address = *patch.Address
		}
		u.Mtime = mtime
	})
}

func (r *MemUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string, mtime int64) error {
	return r.update(userID, func(u *model.User) {
		u.PasswordHash = passwordHash
		u.PasswordMtime = mtime
		u.Mtime = mtime
	})
}

func (r *MemUserRepo) UpdateProfilePicture(ctx context.Context, userID, url string, mtime int64) error {
	return r.update(userID, func(u *model.User) {
		u.ProfilePicture = url
		u.Mtime = mtime
	})
}

func (r *MemUserRepo) update(userID string, fn func(u *model.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.users[userID]
	if !ok {
		return appErr.ErrNotFound
	}
	fn(item)
	return nil
}

type MemOTPRepo struct {
	mu    sync.Mutex
	items map[string]*model.EmailOTP
}

func NewMemOTPRepo() *MemOTPRepo {
	return &MemOTPRepo{items: make(map[string]*model.EmailOTP)}
}

func (r *MemOTPRepo) Upsert(ctx context.Context, otp *model.EmailOTP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *otp
	if prev, ok := r.items[otp.Email]; ok {
		cp.Ctime = prev.Ctime
	}
	r.items[otp.Email] = &cp
	return nil
}

func (r *MemOTPRepo) GetByEmail(ctx context.Context, email string) (*model.EmailOTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[email]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (r *MemOTPRepo) Consume(ctx context.Context, email, codeHash string, mtime int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[email]
	if !ok || item.CodeHash == "" || item.CodeHash != codeHash {
		return appErr.ErrNotFound
	}
	item.CodeHash = ""
	item.ExpiresAt = 0
	item.Mtime = mtime
	return nil
}

// MemSessionStore is a session.Store keyed by token digest.
type MemSessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	ttl      time.Duration
}

func NewMemSessionStore(ttl time.Duration) *MemSessionStore {
	return &MemSessionStore{sessions: make(map[string]model.Session), ttl: ttl}
}

func (s *MemSessionStore) Open(ctx context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.sessions[session.TokenDigest(token)] = model.Session{
		TokenHash: session.TokenDigest(token),
		UserID:    userID,
		Ctime:     now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}
	return nil
}

func (s *MemSessionStore) IsLive(ctx context.Context, token, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.sessions[session.TokenDigest(token)]
	if !ok {
		return false, nil
	}
	return item.UserID == userID && item.ExpiresAt > time.Now().Unix(), nil
}

func (s *MemSessionStore) Close(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, session.TokenDigest(token))
	return nil
}

func (s *MemSessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
