package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/anonymort/whistle/internal/crypto/domain"
	apperrors "github.com/anonymort/whistle/internal/errors"
)

func TestContentHash(t *testing.T) {
	message := &cryptoDomain.Envelope{AlgorithmID: "age-x25519", Ciphertext: "bWVzc2FnZQ=="}
	file := &cryptoDomain.Envelope{AlgorithmID: "age-x25519", Ciphertext: "ZmlsZQ=="}

	withoutFile := ContentHash(message, nil)
	withFile := ContentHash(message, file)

	assert.Len(t, withoutFile, 64)
	assert.NotEqual(t, withoutFile, withFile)
	assert.Equal(t, withFile, ContentHash(message, file))

	other := &cryptoDomain.Envelope{AlgorithmID: "age-x25519", Ciphertext: "b3RoZXI="}
	assert.NotEqual(t, withoutFile, ContentHash(other, nil))
}

func TestReference(t *testing.T) {
	hash := ContentHash(&cryptoDomain.Envelope{Ciphertext: "YQ=="}, nil)

	reference := Reference(hash)

	assert.Len(t, reference, ReferenceLength)
	assert.Equal(t, hash[:16], reference)
	assert.Equal(t, "abc", Reference("abc"))
}

func TestParsePriority(t *testing.T) {
	priority, err := ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityRoutine, priority)

	priority, err = ParsePriority("urgent")
	require.NoError(t, err)
	assert.Equal(t, PriorityUrgent, priority)

	_, err = ParsePriority("critical")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSubmission_HasFile(t *testing.T) {
	assert.False(t, (&Submission{}).HasFile())
	assert.True(t, (&Submission{FileEnvelope: &cryptoDomain.Envelope{}}).HasFile())
}
