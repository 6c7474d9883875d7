// Package dto provides data transfer objects for key and envelope endpoints.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/anonymort/whistle/internal/crypto/domain"
	customValidation "github.com/anonymort/whistle/internal/validation"
)

// Envelope is the wire form of a sealed payload.
type Envelope struct {
	AlgorithmID  string    `json:"algorithmId"`
	Ciphertext   string    `json:"ciphertext"`
	IntegrityTag string    `json:"integrityTag,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

// Validate checks the envelope is structurally complete.
func (e Envelope) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.AlgorithmID,
			validation.Required,
			validation.In(string(cryptoDomain.AgeX25519), string(cryptoDomain.NaClBoxSeal)),
		),
		validation.Field(&e.Ciphertext, validation.Required, customValidation.Base64),
		validation.Field(&e.IntegrityTag, customValidation.Base64),
	)
}

// ToDomain converts the wire envelope into the domain type.
func (e Envelope) ToDomain() *cryptoDomain.Envelope {
	return &cryptoDomain.Envelope{
		AlgorithmID:  e.AlgorithmID,
		Ciphertext:   e.Ciphertext,
		IntegrityTag: e.IntegrityTag,
		CreatedAt:    e.CreatedAt,
	}
}

// MapEnvelope converts a domain envelope into its wire form.
func MapEnvelope(envelope *cryptoDomain.Envelope) *Envelope {
	if envelope == nil {
		return nil
	}
	return &Envelope{
		AlgorithmID:  envelope.AlgorithmID,
		Ciphertext:   envelope.Ciphertext,
		IntegrityTag: envelope.IntegrityTag,
		CreatedAt:    envelope.CreatedAt,
	}
}

// DecryptKind selects how an opened envelope is interpreted.
const (
	DecryptKindMessage = "message"
	DecryptKindFile    = "file"
)

// DecryptRequest asks the service to open an envelope.
type DecryptRequest struct {
	Envelope *Envelope `json:"envelope"`
	Kind     string    `json:"kind"`
}

// Validate checks the decrypt request. An empty kind means message.
func (r *DecryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Envelope, validation.Required),
		validation.Field(&r.Kind, validation.In(DecryptKindMessage, DecryptKindFile)),
	)
}

// FileResponse is an opened file record. Data is base64 encoded by encoding/json.
type FileResponse struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Data     []byte `json:"data"`
}

// DecryptResponse carries either the plaintext message or the opened file.
type DecryptResponse struct {
	Plaintext *string       `json:"plaintext,omitempty"`
	File      *FileResponse `json:"file,omitempty"`
}

// PublicKeyResponse exposes the active public key.
type PublicKeyResponse struct {
	Algorithm string `json:"algorithm"`
	PublicKey string `json:"publicKey"`
	KeyID     string `json:"keyId"`
}

// MapPublicKey converts a domain public key into its response.
func MapPublicKey(public cryptoDomain.PublicKey) PublicKeyResponse {
	return PublicKeyResponse{
		Algorithm: string(public.Algorithm),
		PublicKey: public.Key,
		KeyID:     public.ID.String(),
	}
}
