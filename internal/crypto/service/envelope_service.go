package service

import (
	"crypto/subtle"
	"encoding/base64"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	cryptoDomain "github.com/anonymort/whistle/internal/crypto/domain"
	apperrors "github.com/anonymort/whistle/internal/errors"
)

// EnvelopeService seals plaintext into envelopes and opens them again.
type EnvelopeService interface {
	// Seal encrypts plaintext to the public key. Two calls with the same input never produce
	// the same ciphertext.
	Seal(plaintext []byte, publicKey cryptoDomain.PublicKey) (*cryptoDomain.Envelope, error)

	// Open decrypts envelope with keyPair. Every failure is cryptoDomain.ErrDecryptionFailed.
	Open(envelope *cryptoDomain.Envelope, keyPair *cryptoDomain.KeyPair) ([]byte, error)

	// SealFile encodes the record with deterministic CBOR and seals it.
	SealFile(record *cryptoDomain.FileRecord, publicKey cryptoDomain.PublicKey) (*cryptoDomain.Envelope, error)

	// OpenFile opens an envelope produced by SealFile.
	OpenFile(envelope *cryptoDomain.Envelope, keyPair *cryptoDomain.KeyPair) (*cryptoDomain.FileRecord, error)

	// Attest checks an externally sealed envelope is well formed and fills in the integrity
	// tag and creation time when the sender omitted them.
	Attest(envelope *cryptoDomain.Envelope) error
}

type envelopeService struct {
	encMode cbor.EncMode
	decMode cbor.DecMode
	now     func() time.Time
}

// NewEnvelopeService creates the envelope service.
func NewEnvelopeService() (EnvelopeService, error) {
	encMode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create CBOR encoder")
	}
	decMode, err := cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create CBOR decoder")
	}
	return &envelopeService{encMode: encMode, decMode: decMode, now: time.Now}, nil
}

// IntegrityTag returns the base64 BLAKE3-256 digest of raw ciphertext.
func IntegrityTag(ciphertext []byte) string {
	sum := blake3.Sum256(ciphertext)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func (s *envelopeService) Seal(
	plaintext []byte,
	publicKey cryptoDomain.PublicKey,
) (*cryptoDomain.Envelope, error) {
	sealer, err := NewSealer(publicKey.Algorithm)
	if err != nil {
		return nil, err
	}

	ciphertext, err := sealer.Seal(plaintext, publicKey.Key)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to seal")
	}

	return &cryptoDomain.Envelope{
		AlgorithmID:  string(sealer.Algorithm()),
		Ciphertext:   base64.StdEncoding.EncodeToString(ciphertext),
		IntegrityTag: IntegrityTag(ciphertext),
		CreatedAt:    s.now().UTC(),
	}, nil
}

func (s *envelopeService) Open(
	envelope *cryptoDomain.Envelope,
	keyPair *cryptoDomain.KeyPair,
) ([]byte, error) {
	if envelope == nil || keyPair == nil || len(keyPair.PrivateKey) == 0 {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	if cryptoDomain.Algorithm(envelope.AlgorithmID) != keyPair.Algorithm {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	sealer, err := NewSealer(keyPair.Algorithm)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	ciphertext, err := base64.StdEncoding.DecodeString(envelope.Ciphertext)
	if err != nil || len(ciphertext) == 0 {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	if !tagMatches(envelope.IntegrityTag, ciphertext) {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	plaintext, err := sealer.Open(ciphertext, keyPair.PrivateKey)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}

func (s *envelopeService) SealFile(
	record *cryptoDomain.FileRecord,
	publicKey cryptoDomain.PublicKey,
) (*cryptoDomain.Envelope, error) {
	if record == nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "file record is required")
	}
	record.Size = int64(len(record.Data))

	encoded, err := s.encMode.Marshal(record)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode file record")
	}
	defer cryptoDomain.Zero(encoded)

	return s.Seal(encoded, publicKey)
}

func (s *envelopeService) OpenFile(
	envelope *cryptoDomain.Envelope,
	keyPair *cryptoDomain.KeyPair,
) (*cryptoDomain.FileRecord, error) {
	plaintext, err := s.Open(envelope, keyPair)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(plaintext)

	var record cryptoDomain.FileRecord
	if err := s.decMode.Unmarshal(plaintext, &record); err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	if record.Size != int64(len(record.Data)) {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return &record, nil
}

func (s *envelopeService) Attest(envelope *cryptoDomain.Envelope) error {
	if envelope == nil || envelope.AlgorithmID == "" || envelope.Ciphertext == "" {
		return cryptoDomain.ErrInvalidEnvelope
	}
	if _, err := cryptoDomain.ParseAlgorithm(envelope.AlgorithmID); err != nil {
		return err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(envelope.Ciphertext)
	if err != nil || len(ciphertext) == 0 {
		return apperrors.Wrap(cryptoDomain.ErrInvalidEnvelope, "ciphertext must be base64")
	}

	switch {
	case envelope.IntegrityTag == "":
		envelope.IntegrityTag = IntegrityTag(ciphertext)
	case !tagMatches(envelope.IntegrityTag, ciphertext):
		return apperrors.Wrap(cryptoDomain.ErrInvalidEnvelope, "integrity tag does not match ciphertext")
	}

	if envelope.CreatedAt.IsZero() {
		envelope.CreatedAt = s.now().UTC()
	}
	return nil
}

func tagMatches(tag string, ciphertext []byte) bool {
	expected, err := base64.StdEncoding.DecodeString(tag)
	if err != nil {
		return false
	}
	sum := blake3.Sum256(ciphertext)
	return subtle.ConstantTimeCompare(expected, sum[:]) == 1
}
