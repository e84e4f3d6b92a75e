package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength is the longest input bcrypt accepts, in bytes.
const MaxLength = 72

// TooLong reports whether plain exceeds what Hash can take.
func TooLong(plain string) bool {
	return len(plain) > MaxLength
}

func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// Verify reports whether plain produced hash. A mismatch is (false, nil); a
// malformed hash is returned as an error.
func Verify(hash, plain string) (bool, error) {
	err := Compare(hash, plain)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
