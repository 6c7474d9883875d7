package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
)

func newTestSigner(t *testing.T) Signer {
	t.Helper()
	signer, err := NewHMACSigner(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)
	return signer
}

func newTestEntry() *auditDomain.Entry {
	return &auditDomain.Entry{
		ID:        uuid.Must(uuid.NewV7()),
		RequestID: "req-1",
		ActorID:   auditDomain.ActorAnonymous,
		Action:    auditDomain.ActionRateLimitBlock,
		Resource:  "/admin/login",
		Outcome:   auditDomain.OutcomeBlocked,
		Severity:  auditDomain.SeverityCritical,
		Details:   map[string]any{"limit": 5, "window": "15m0s"},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 123456000, time.UTC),
	}
}

func TestNewHMACSigner_ShortSecret(t *testing.T) {
	signer, err := NewHMACSigner([]byte("too-short"))
	assert.Error(t, err)
	assert.Nil(t, signer)
}

func TestHMACSigner_SignAndVerify(t *testing.T) {
	signer := newTestSigner(t)
	entry := newTestEntry()

	signature, err := signer.Sign(entry)
	require.NoError(t, err)
	assert.Len(t, signature, 32)

	entry.Signature = signature
	assert.NoError(t, signer.Verify(entry))
}

func TestHMACSigner_Deterministic(t *testing.T) {
	signer := newTestSigner(t)
	entry := newTestEntry()

	first, err := signer.Sign(entry)
	require.NoError(t, err)
	second, err := signer.Sign(entry)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestHMACSigner_DetectsTampering(t *testing.T) {
	signer := newTestSigner(t)

	tests := []struct {
		name   string
		tamper func(e *auditDomain.Entry)
	}{
		{"actor", func(e *auditDomain.Entry) { e.ActorID = "someone-else" }},
		{"outcome", func(e *auditDomain.Entry) { e.Outcome = auditDomain.OutcomeSuccess }},
		{"severity", func(e *auditDomain.Entry) { e.Severity = auditDomain.SeverityLow }},
		{"details", func(e *auditDomain.Entry) { e.Details["limit"] = 50 }},
		{"timestamp", func(e *auditDomain.Entry) { e.CreatedAt = e.CreatedAt.Add(time.Second) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := newTestEntry()
			signature, err := signer.Sign(entry)
			require.NoError(t, err)
			entry.Signature = signature

			tt.tamper(entry)

			assert.ErrorIs(t, signer.Verify(entry), auditDomain.ErrSignatureInvalid)
		})
	}
}

func TestHMACSigner_FieldBoundaries(t *testing.T) {
	signer := newTestSigner(t)

	a := newTestEntry()
	a.Action, a.Resource = "ab", "c"
	b := *a
	b.Action, b.Resource = "a", "bc"

	sigA, err := signer.Sign(a)
	require.NoError(t, err)
	sigB, err := signer.Sign(&b)
	require.NoError(t, err)

	assert.NotEqual(t, sigA, sigB)
}

func TestHMACSigner_DifferentSecrets(t *testing.T) {
	entry := newTestEntry()
	other, err := NewHMACSigner(bytes.Repeat([]byte{0x24}, 32))
	require.NoError(t, err)

	signature, err := newTestSigner(t).Sign(entry)
	require.NoError(t, err)
	entry.Signature = signature

	assert.ErrorIs(t, other.Verify(entry), auditDomain.ErrSignatureInvalid)
}
