// Package service provides the cryptographic signer that makes audit entries tamper evident.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
)

const signingKeyInfo = "whistle-audit-signing-v1"

// Signer signs and verifies audit entries.
type Signer interface {
	Sign(entry *auditDomain.Entry) ([]byte, error)
	Verify(entry *auditDomain.Entry) error
}

// hmacSigner signs with HMAC-SHA256 under a key derived once from the configured secret.
type hmacSigner struct {
	key []byte
}

// NewHMACSigner derives a 32-byte signing key from secret with HKDF-SHA256.
func NewHMACSigner(secret []byte) (Signer, error) {
	if len(secret) < 32 {
		return nil, errors.New("audit signing secret must be at least 32 bytes")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(signingKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive audit signing key: %w", err)
	}

	return &hmacSigner{key: key}, nil
}

// Sign returns the 32-byte HMAC-SHA256 of the entry's canonical form.
func (s *hmacSigner) Sign(entry *auditDomain.Entry) ([]byte, error) {
	canonical, err := canonicalize(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize audit entry: %w", err)
	}

	mac := hmac.New(sha256.New, s.key)
	mac.Write(canonical)
	return mac.Sum(nil), nil
}

// Verify returns ErrSignatureInvalid when the stored signature does not match.
func (s *hmacSigner) Verify(entry *auditDomain.Entry) error {
	expected, err := s.Sign(entry)
	if err != nil {
		return err
	}
	if !hmac.Equal(entry.Signature, expected) {
		return auditDomain.ErrSignatureInvalid
	}
	return nil
}

// canonicalize encodes id || request_id || actor || action || resource || outcome || severity ||
// details || created_at. Variable length fields are length prefixed so no two entries share an
// encoding. Details are JSON encoded, which sorts map keys.
func canonicalize(entry *auditDomain.Entry) ([]byte, error) {
	buf := make([]byte, 0, 512)

	buf = append(buf, entry.ID[:]...)
	buf = appendLengthPrefixed(buf, []byte(entry.RequestID))
	buf = appendLengthPrefixed(buf, []byte(entry.ActorID))
	buf = appendLengthPrefixed(buf, []byte(entry.Action))
	buf = appendLengthPrefixed(buf, []byte(entry.Resource))
	buf = appendLengthPrefixed(buf, []byte(entry.Outcome))
	buf = appendLengthPrefixed(buf, []byte(entry.Severity))

	if len(entry.Details) > 0 {
		details, err := json.Marshal(entry.Details)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal details: %w", err)
		}
		buf = appendLengthPrefixed(buf, details)
	} else {
		buf = appendLengthPrefixed(buf, nil)
	}

	buf = binary.BigEndian.AppendUint64(buf, uint64(entry.CreatedAt.UnixMicro()))

	return buf, nil
}

// appendLengthPrefixed adds a 4-byte big-endian length followed by data.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}
