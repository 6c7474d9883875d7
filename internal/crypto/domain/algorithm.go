package domain

// Algorithm identifies the sealed-box construction an envelope was produced with.
//
// Both constructions are anonymous: the sender uses an ephemeral key that is discarded after
// sealing, so an envelope never identifies who produced it.
type Algorithm string

const (
	// AgeX25519 seals with age using an X25519 recipient (https://age-encryption.org/v1).
	AgeX25519 Algorithm = "age-x25519"

	// NaClBoxSeal seals with NaCl crypto_box_seal (X25519, XSalsa20-Poly1305).
	NaClBoxSeal Algorithm = "nacl-box-seal"
)

// ParseAlgorithm validates an algorithm identifier.
func ParseAlgorithm(value string) (Algorithm, error) {
	switch Algorithm(value) {
	case AgeX25519, NaClBoxSeal:
		return Algorithm(value), nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}
