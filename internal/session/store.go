// Package session keeps server-side records of issued tokens so a token can
// be revoked before its own expiry.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Store decides whether an otherwise valid token is still authorized.
type Store interface {
	// Open records token as a live session of userID for the retention window.
	Open(ctx context.Context, userID, token string) error
	// IsLive reports whether token has an unexpired session owned by userID.
	IsLive(ctx context.Context, token, userID string) (bool, error)
	// Close drops the session for token. Closing an unknown token is not an error.
	Close(ctx context.Context, token string) error
}

// TokenDigest is the key sessions are stored under.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
