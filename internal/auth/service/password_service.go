package service

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/anonymort/whistle/internal/errors"
)

// passwordService implements PasswordService using Argon2id.
type passwordService struct {
	hasher    *pwdhash.PasswordHasher
	dummyHash string
}

// NewPasswordService creates a PasswordService with the Moderate Argon2id policy and a dummy
// hash for unknown-user logins.
func NewPasswordService() (PasswordService, error) {
	hasher, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyModerate),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create password hasher")
	}

	s := &passwordService{hasher: hasher}

	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to generate dummy password")
	}
	s.dummyHash, err = s.Hash(base64.RawURLEncoding.EncodeToString(randomBytes))
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *passwordService) Hash(password string) (string, error) {
	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash password")
	}
	return hash, nil
}

func (s *passwordService) Verify(password, hash string) bool {
	ok, err := s.hasher.Verify([]byte(password), hash)
	if err != nil {
		return false
	}
	return ok
}

func (s *passwordService) DummyHash() string {
	return s.dummyHash
}
