// Package service implements the sealed-box constructions and the envelope format built on them.
package service

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"filippo.io/age"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	cryptoDomain "github.com/anonymort/whistle/internal/crypto/domain"
)

// Sealer is one anonymous sealed-box construction.
type Sealer interface {
	// Algorithm returns the identifier stamped on envelopes this sealer produces.
	Algorithm() cryptoDomain.Algorithm

	// GenerateKeyPair returns an encoded public key and the raw private key.
	GenerateKeyPair() (publicKey string, privateKey []byte, err error)

	// Seal encrypts plaintext to publicKey with a fresh ephemeral sender key.
	Seal(plaintext []byte, publicKey string) ([]byte, error)

	// Open decrypts ciphertext with privateKey.
	Open(ciphertext, privateKey []byte) ([]byte, error)
}

// NewSealer returns the sealer for alg.
func NewSealer(alg cryptoDomain.Algorithm) (Sealer, error) {
	switch alg {
	case cryptoDomain.AgeX25519:
		return &ageSealer{}, nil
	case cryptoDomain.NaClBoxSeal:
		return &naclSealer{}, nil
	default:
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}
}

// ageSealer seals with age X25519 recipients. Public keys are "age1..." strings and private
// keys are "AGE-SECRET-KEY-1..." identities.
type ageSealer struct{}

func (s *ageSealer) Algorithm() cryptoDomain.Algorithm {
	return cryptoDomain.AgeX25519
}

func (s *ageSealer) GenerateKeyPair() (string, []byte, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", nil, fmt.Errorf("generating age identity: %w", err)
	}
	return identity.Recipient().String(), []byte(identity.String()), nil
}

func (s *ageSealer) Seal(plaintext []byte, publicKey string) ([]byte, error) {
	recipient, err := age.ParseX25519Recipient(publicKey)
	if err != nil {
		return nil, fmt.Errorf("parsing age recipient: %w", err)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	return ciphertext.Bytes(), nil
}

func (s *ageSealer) Open(ciphertext, privateKey []byte) ([]byte, error) {
	identity, err := age.ParseX25519Identity(string(privateKey))
	if err != nil {
		return nil, fmt.Errorf("parsing age identity: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("age decrypt: %w", err)
	}
	return io.ReadAll(reader)
}

// naclSealer seals with crypto_box_seal. Public keys are base64 encoded 32-byte X25519 keys and
// private keys are the raw 32 bytes.
type naclSealer struct{}

const naclKeySize = 32

func (s *naclSealer) Algorithm() cryptoDomain.Algorithm {
	return cryptoDomain.NaClBoxSeal
}

func (s *naclSealer) GenerateKeyPair() (string, []byte, error) {
	publicKey, privateKey, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return "", nil, fmt.Errorf("generating box key pair: %w", err)
	}
	private := make([]byte, naclKeySize)
	copy(private, privateKey[:])
	cryptoDomain.Zero(privateKey[:])
	return base64.StdEncoding.EncodeToString(publicKey[:]), private, nil
}

func (s *naclSealer) Seal(plaintext []byte, publicKey string) ([]byte, error) {
	publicKeyBytes, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil || len(publicKeyBytes) != naclKeySize {
		return nil, fmt.Errorf("invalid box public key")
	}

	var recipient [naclKeySize]byte
	copy(recipient[:], publicKeyBytes)
	return box.SealAnonymous(nil, plaintext, &recipient, rand.Reader)
}

func (s *naclSealer) Open(ciphertext, privateKey []byte) ([]byte, error) {
	if len(privateKey) != naclKeySize {
		return nil, fmt.Errorf("invalid box private key")
	}

	publicKey, err := curve25519.X25519(privateKey, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("deriving box public key: %w", err)
	}

	var private, public [naclKeySize]byte
	copy(private[:], privateKey)
	copy(public[:], publicKey)
	defer cryptoDomain.Zero(private[:])

	plaintext, ok := box.OpenAnonymous(nil, ciphertext, &public, &private)
	if !ok {
		return nil, fmt.Errorf("box open failed")
	}
	return plaintext, nil
}
