package letter

import (
	"crypto/rand"
	"encoding/base64"
	"regexp"

	"github.com/mnhsh/letterbox/internal/apperr"
)

const (
	tokenBytes     = 32
	MinTokenLength = 32
	MaxTokenLength = 128
)

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// NewToken returns 43 URL-safe characters drawn from 32 random bytes.
func NewToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// ValidateToken checks shape only; it never touches storage.
func ValidateToken(token string) error {
	if len(token) < MinTokenLength || len(token) > MaxTokenLength {
		return apperr.ErrInvalidToken
	}
	if !tokenPattern.MatchString(token) {
		return apperr.ErrInvalidToken
	}
	return nil
}

func tokenPrefix(token string) string {
	if len(token) <= 6 {
		return token
	}
	return token[:6]
}
