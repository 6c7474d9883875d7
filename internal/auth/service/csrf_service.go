package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	apperrors "github.com/anonymort/whistle/internal/errors"
)

const (
	csrfSecretSize = 32
	csrfNonceSize  = 32
)

// csrfService implements CSRFService with HMAC-SHA256 over a random nonce.
type csrfService struct{}

// NewCSRFService creates a new CSRFService.
func NewCSRFService() CSRFService {
	return &csrfService{}
}

func (s *csrfService) NewSecret() ([]byte, error) {
	secret := make([]byte, csrfSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, apperrors.Wrap(err, "failed to generate csrf secret")
	}
	return secret, nil
}

func (s *csrfService) IssueToken(secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", apperrors.New("csrf secret is not initialized")
	}

	nonce := make([]byte, csrfNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", apperrors.Wrap(err, "failed to generate csrf nonce")
	}

	return base64.RawURLEncoding.EncodeToString(nonce) + "." +
		base64.RawURLEncoding.EncodeToString(sign(secret, nonce)), nil
}

func (s *csrfService) VerifyToken(secret []byte, token string) bool {
	if len(secret) == 0 || token == "" {
		return false
	}

	encodedNonce, encodedSignature, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	nonce, err := base64.RawURLEncoding.DecodeString(encodedNonce)
	if err != nil || len(nonce) != csrfNonceSize {
		return false
	}
	signature, err := base64.RawURLEncoding.DecodeString(encodedSignature)
	if err != nil {
		return false
	}

	return hmac.Equal(signature, sign(secret, nonce))
}

func sign(secret, nonce []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(nonce)
	return mac.Sum(nil)
}
