package domain

import (
	"github.com/anonymort/whistle/internal/errors"
)

// Cryptographic operation error definitions.
//
// These wrap the sentinels in internal/errors so the HTTP layer maps them without knowing about
// key pairs or envelopes.
var (
	// ErrUnsupportedAlgorithm indicates the requested sealed-box algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidEnvelope indicates an envelope is structurally incomplete (missing algorithm
	// or ciphertext, ciphertext not base64, tag mismatch at intake).
	ErrInvalidEnvelope = errors.Wrap(errors.ErrInvalidInput, "invalid envelope")

	// ErrDecryptionFailed indicates an envelope could not be opened.
	//
	// Malformed data, a wrong or destroyed key, an unknown algorithm and an integrity tag
	// mismatch all produce this same error so callers cannot use it as an oracle.
	ErrDecryptionFailed = errors.Wrap(errors.ErrDecryptionFailed, "decryption failed")

	// ErrPrivateKeyAccess is returned for every attempt to read private key material.
	ErrPrivateKeyAccess = errors.Wrap(errors.ErrForbidden, "private key material is not accessible")

	// ErrNoActiveKey indicates the key manager has not been initialized.
	ErrNoActiveKey = errors.New("no active key pair")

	// ErrKeyPairNotFound indicates the key pair does not exist.
	ErrKeyPairNotFound = errors.Wrap(errors.ErrNotFound, "key pair not found")
)
