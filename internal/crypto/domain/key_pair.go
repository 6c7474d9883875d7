// Package domain defines the key pairs, envelopes and file records of the one-way encryption
// layer. Reporters seal to the active public key; only the process holding the private keys can
// open, and private keys never leave it.
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// KeyPair is an asymmetric sealed-box key pair. Exactly one pair is active; retired pairs stay
// usable for opening until their grace window elapses and are then destroyed.
type KeyPair struct {
	ID         uuid.UUID
	Algorithm  Algorithm
	PublicKey  string // Encoded recipient, safe to publish
	PrivateKey []byte // Plaintext private key, only ever held in memory
	Active     bool
	CreatedAt  time.Time
	RetiredAt  *time.Time
}

// PublicKey is the only key material exposed across the network boundary.
type PublicKey struct {
	ID        uuid.UUID
	Algorithm Algorithm
	Key       string
}

// Public returns the publishable half of the pair.
func (k *KeyPair) Public() PublicKey {
	return PublicKey{ID: k.ID, Algorithm: k.Algorithm, Key: k.PublicKey}
}

// Expired reports whether a retired pair has outlived its grace window at now.
// The active pair never expires.
func (k *KeyPair) Expired(now time.Time, grace time.Duration) bool {
	if k.RetiredAt == nil {
		return false
	}
	return !now.Before(k.RetiredAt.Add(grace))
}

// Destroy zeroes the private key in place.
func (k *KeyPair) Destroy() {
	Zero(k.PrivateKey)
	k.PrivateKey = nil
}

// Zero securely overwrites a byte slice with zeros to clear sensitive data from memory.
func Zero(b []byte) {
	clear(b)
}

// KMSKeeper wraps private keys at rest. *secrets.Keeper from gocloud.dev satisfies it.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}
