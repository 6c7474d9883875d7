// Package usecase implements the key manager: key pair lifecycle, rotation with a grace window
// and sealing/opening against the keyring.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/anonymort/whistle/internal/crypto/domain"
)

// KeyPairRepository persists key pairs.
type KeyPairRepository interface {
	Create(ctx context.Context, keyPair *cryptoDomain.KeyPair) error
	Retire(ctx context.Context, id uuid.UUID, retiredAt time.Time) error
	ListUsable(ctx context.Context) ([]*cryptoDomain.KeyPair, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// KeyManager owns the active key pair and the retired keys still inside their grace window.
type KeyManager interface {
	// Initialize loads stored key pairs, generating the first one when none exist.
	Initialize(ctx context.Context) error

	// GenerateKeyPair creates an unsaved pair for the configured algorithm.
	GenerateKeyPair() (*cryptoDomain.KeyPair, error)

	// ActivePublicKey returns the public half of the active pair.
	ActivePublicKey() (cryptoDomain.PublicKey, error)

	// RotateKeys makes a new pair active and retires the previous one. On failure the previous
	// pair stays active.
	RotateKeys(ctx context.Context) (cryptoDomain.PublicKey, error)

	// DestroyExpired zeroes and deletes retired pairs whose grace window elapsed.
	DestroyExpired(ctx context.Context) (int, error)

	// PrivateKey always fails. Private key material never leaves the process.
	PrivateKey(ctx context.Context, id uuid.UUID) ([]byte, error)

	// Seal and SealFile encrypt to the active public key.
	Seal(plaintext []byte) (*cryptoDomain.Envelope, error)
	SealFile(record *cryptoDomain.FileRecord) (*cryptoDomain.Envelope, error)

	// Open and OpenFile try the active pair, then every retired pair still in its grace window.
	Open(ctx context.Context, envelope *cryptoDomain.Envelope) ([]byte, error)
	OpenFile(ctx context.Context, envelope *cryptoDomain.Envelope) (*cryptoDomain.FileRecord, error)
}
