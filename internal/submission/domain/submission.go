// Package domain defines submissions: the sealed envelopes a reporter hands in, keyed by a
// reference derived from their content.
package domain

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	cryptoDomain "github.com/anonymort/whistle/internal/crypto/domain"
)

// Status tracks a submission through review.
type Status string

const (
	StatusReceived  Status = "received"
	StatusReviewing Status = "reviewing"
	StatusClosed    Status = "closed"
)

// Priority is the reporter's own urgency estimate.
type Priority string

const (
	PriorityRoutine Priority = "routine"
	PriorityUrgent  Priority = "urgent"
)

// ReferenceLength is the number of hex characters of the content hash used as reference.
const ReferenceLength = 16

// Submission holds only sealed envelopes; nothing readable without the private key is stored.
type Submission struct {
	ID              uuid.UUID
	Reference       string
	MessageEnvelope *cryptoDomain.Envelope
	FileEnvelope    *cryptoDomain.Envelope
	ContentHash     string
	SubmittedAt     time.Time
	Status          Status
	Priority        Priority
}

// HasFile reports whether a file was submitted.
func (s *Submission) HasFile() bool {
	return s.FileEnvelope != nil
}

// FileUpload is a plaintext file handed to the server for scanning and sealing.
type FileUpload struct {
	Filename string
	MIMEType string
	Data     []byte
}

// CreateSubmissionInput is everything a reporter sends. File and FileEnvelope are mutually
// exclusive. Contact is used for one notification and never stored.
type CreateSubmissionInput struct {
	MessageEnvelope *cryptoDomain.Envelope
	FileEnvelope    *cryptoDomain.Envelope
	File            *FileUpload
	Contact         string
	Priority        Priority
}

// ContentHash returns the hex BLAKE3-256 digest over the envelopes' ciphertexts. Sealing is
// randomized, so two submissions of the same text still hash differently.
func ContentHash(message, file *cryptoDomain.Envelope) string {
	hasher := blake3.New()
	if message != nil {
		_, _ = hasher.Write([]byte(message.Ciphertext))
	}
	_, _ = hasher.Write([]byte{0})
	if file != nil {
		_, _ = hasher.Write([]byte(file.Ciphertext))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

// Reference truncates a content hash into the identifier shown to the reporter.
func Reference(contentHash string) string {
	if len(contentHash) < ReferenceLength {
		return contentHash
	}
	return contentHash[:ReferenceLength]
}
