package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureTracker(t *testing.T) {
	ctx, tracker := ContextWithFailureTracker(context.Background())

	NoteRecorded(ctx, &Entry{Action: ActionAuditList, Outcome: OutcomeSuccess})
	assert.False(t, tracker.Recorded())

	NoteRecorded(context.WithoutCancel(ctx), &Entry{Action: ActionCSRFReject, Outcome: OutcomeRejected})
	assert.True(t, tracker.Recorded())

	assert.NotPanics(t, func() {
		NoteRecorded(context.Background(), &Entry{Outcome: OutcomeFailure})
	})
}

func TestContextValues(t *testing.T) {
	ctx := ContextWithActor(ContextWithRequestID(context.Background(), "req-1"), "reviewer")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "reviewer", ActorFromContext(ctx))
	assert.Empty(t, ActorFromContext(context.Background()))
}
