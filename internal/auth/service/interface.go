// Package service provides the credential primitives sessions are built on: password hashing,
// session tokens, CSRF tokens and TOTP codes.
package service

import "time"

// PasswordService hashes and verifies reviewer passwords.
type PasswordService interface {
	Hash(password string) (string, error)

	// Verify compares in constant time. Malformed hashes verify as false.
	Verify(password, hash string) bool

	// DummyHash is a valid hash of a random password. Logins for unknown users verify against
	// it so they cost the same as logins for real users.
	DummyHash() string
}

// SessionTokenService generates cookie tokens and derives the stored session id from them.
type SessionTokenService interface {
	GenerateToken() (plainToken string, sessionID string, err error)
	SessionID(plainToken string) string
}

// CSRFService issues and verifies per-session CSRF tokens.
type CSRFService interface {
	// NewSecret returns a fresh 32-byte session secret.
	NewSecret() ([]byte, error)

	// IssueToken returns "nonce.signature" in base64url, signed with secret.
	IssueToken(secret []byte) (string, error)

	// VerifyToken reports whether token was issued for secret. An empty secret never verifies.
	VerifyToken(secret []byte, token string) bool
}

// TOTPService generates and validates time based one-time passwords.
type TOTPService interface {
	Generate(accountName string) (secret string, provisioningURL string, err error)
	Validate(code, secret string, at time.Time) bool
}
