package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Hash derives a bcrypt hash from a plaintext password. The plaintext is
// never stored or logged anywhere; this is the only place it is touched.
func Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("password must not be empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify reports whether plaintext matches the stored hash.
func Verify(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
