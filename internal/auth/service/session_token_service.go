package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	apperrors "github.com/anonymort/whistle/internal/errors"
)

// sessionTokenService implements SessionTokenService with 32 random bytes per token and a
// SHA-256 session id.
type sessionTokenService struct{}

// NewSessionTokenService creates a new SessionTokenService.
func NewSessionTokenService() SessionTokenService {
	return &sessionTokenService{}
}

// GenerateToken returns the cookie value and the id the session is stored under.
func (s *sessionTokenService) GenerateToken() (plainToken string, sessionID string, err error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate session token")
	}

	plainToken = base64.RawURLEncoding.EncodeToString(randomBytes)
	return plainToken, s.SessionID(plainToken), nil
}

// SessionID hashes a cookie token into its stored session id (hex encoded).
func (s *sessionTokenService) SessionID(plainToken string) string {
	hash := sha256.Sum256([]byte(plainToken))
	return hex.EncodeToString(hash[:])
}
