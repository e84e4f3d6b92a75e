package service

import (
	"strings"

	"github.com/google/uuid"
)

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
