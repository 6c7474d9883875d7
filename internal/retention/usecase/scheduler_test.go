package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
	auditMocks "github.com/anonymort/whistle/internal/audit/usecase/mocks"
	cryptoDomain "github.com/anonymort/whistle/internal/crypto/domain"
	"github.com/anonymort/whistle/internal/database"
	apperrors "github.com/anonymort/whistle/internal/errors"
	"github.com/anonymort/whistle/internal/metrics"
	submissionDomain "github.com/anonymort/whistle/internal/submission/domain"
	submissionRepository "github.com/anonymort/whistle/internal/submission/repository"
	"github.com/anonymort/whistle/internal/testutil"
)

type countingKeys struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (k *countingKeys) DestroyExpired(context.Context) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls++
	if k.err != nil {
		return 0, k.err
	}
	if k.calls == 1 {
		return 1, nil
	}
	return 0, nil
}

type countingSessions struct {
	deleted int64
}

func (s *countingSessions) DeleteExpired(context.Context) (int64, error) {
	deleted := s.deleted
	s.deleted = 0
	return deleted, nil
}

// blockingPurger holds a run open until release is closed.
type blockingPurger struct {
	entered chan struct{}
	release chan struct{}
}

func (p *blockingPurger) DeleteSubmittedBefore(context.Context, time.Time) (int64, error) {
	close(p.entered)
	<-p.release
	return 0, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func storeSubmission(t *testing.T, repo *submissionRepository.SQLSubmissionRepository, submittedAt time.Time) string {
	t.Helper()
	envelope := &cryptoDomain.Envelope{
		AlgorithmID: string(cryptoDomain.AgeX25519),
		Ciphertext:  fmt.Sprintf("c2VhbGVk%d", submittedAt.Unix()),
	}
	hash := submissionDomain.ContentHash(envelope, nil)
	submission := &submissionDomain.Submission{
		ID:              uuid.Must(uuid.NewV7()),
		Reference:       submissionDomain.Reference(hash),
		MessageEnvelope: envelope,
		ContentHash:     hash,
		SubmittedAt:     submittedAt,
		Status:          submissionDomain.StatusReceived,
		Priority:        submissionDomain.PriorityRoutine,
	}
	require.NoError(t, repo.Create(context.Background(), submission))
	return submission.Reference
}

func TestScheduler_PerformRetentionCheck(t *testing.T) {
	db := testutil.SetupSQLiteDB(t)
	repo := submissionRepository.NewSQLSubmissionRepository(db, database.SQLite)
	now := time.Date(2026, 9, 1, 2, 0, 0, 0, time.UTC)

	oldReference := storeSubmission(t, repo, now.Add(-91*24*time.Hour))
	recentReference := storeSubmission(t, repo, now.Add(-89*24*time.Hour))

	keys := &countingKeys{}
	sessions := &countingSessions{deleted: 4}
	ledger := &auditMocks.RecordingLedger{}
	scheduler := NewScheduler(
		Config{Window: 90 * 24 * time.Hour, Hour: 2},
		repo, keys, sessions, ledger, metrics.NewNoOpBusinessMetrics(), discardLogger(),
	)
	scheduler.now = func() time.Time { return now }
	ctx := auditDomain.ContextWithActor(context.Background(), "admin-id")

	report, err := scheduler.PerformRetentionCheck(ctx, TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, now.Add(-90*24*time.Hour), report.Cutoff)
	assert.Equal(t, int64(1), report.SubmissionsDeleted)
	assert.Equal(t, 1, report.KeysDestroyed)
	assert.Equal(t, int64(4), report.SessionsDeleted)

	_, err = repo.GetByReference(ctx, oldReference)
	assert.ErrorIs(t, err, submissionDomain.ErrSubmissionNotFound)
	_, err = repo.GetByReference(ctx, recentReference)
	assert.NoError(t, err, "89 day old submission is kept")

	entries := ledger.ByAction(auditDomain.ActionRetentionPurge)
	require.Len(t, entries, 1)
	assert.Equal(t, auditDomain.SeverityMedium, entries[0].Severity)
	assert.Equal(t, auditDomain.OutcomeSuccess, entries[0].Outcome)
	assert.Equal(t, "admin-id", entries[0].ActorID)
	assert.Equal(t, int64(1), entries[0].Details["submissions_deleted"])
	assert.Equal(t, "2026-06-03T02:00:00Z", entries[0].Details["cutoff"])

	t.Run("second run is a no-op", func(t *testing.T) {
		report, err := scheduler.PerformRetentionCheck(ctx, TriggerManual)
		require.NoError(t, err)
		assert.Zero(t, report.SubmissionsDeleted)
		assert.Zero(t, report.KeysDestroyed)
		assert.Zero(t, report.SessionsDeleted)
		_, err = repo.GetByReference(ctx, recentReference)
		assert.NoError(t, err)
	})
}

func TestScheduler_PartialFailure(t *testing.T) {
	db := testutil.SetupSQLiteDB(t)
	repo := submissionRepository.NewSQLSubmissionRepository(db, database.SQLite)
	now := time.Now().UTC()
	storeSubmission(t, repo, now.Add(-100*24*time.Hour))

	keys := &countingKeys{err: errors.New("kms unavailable")}
	ledger := &auditMocks.RecordingLedger{}
	scheduler := NewScheduler(
		Config{Window: 90 * 24 * time.Hour},
		repo, keys, &countingSessions{}, ledger, metrics.NewNoOpBusinessMetrics(), discardLogger(),
	)

	report, err := scheduler.PerformRetentionCheck(context.Background(), TriggerScheduled)

	require.Error(t, err)
	require.NotNil(t, report)
	assert.Equal(t, int64(1), report.SubmissionsDeleted, "other steps still run")
	entries := ledger.ByAction(auditDomain.ActionRetentionPurge)
	require.Len(t, entries, 1)
	assert.Equal(t, auditDomain.OutcomeFailure, entries[0].Outcome)
}

func TestScheduler_RunsDoNotOverlap(t *testing.T) {
	purger := &blockingPurger{entered: make(chan struct{}), release: make(chan struct{})}
	scheduler := NewScheduler(
		Config{Window: time.Hour},
		purger, &countingKeys{}, &countingSessions{}, &auditMocks.RecordingLedger{},
		metrics.NewNoOpBusinessMetrics(), discardLogger(),
	)

	done := make(chan error, 1)
	go func() {
		_, err := scheduler.PerformRetentionCheck(context.Background(), TriggerScheduled)
		done <- err
	}()
	<-purger.entered

	_, err := scheduler.PerformRetentionCheck(context.Background(), TriggerManual)
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	close(purger.release)
	require.NoError(t, <-done)
}

func TestScheduler_StartAndStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ledger := &auditMocks.RecordingLedger{}
	scheduler := NewScheduler(
		Config{Window: 90 * 24 * time.Hour, Hour: 3, Minute: 30},
		noopPurger{}, &countingKeys{}, &countingSessions{}, ledger, metrics.NewNoOpBusinessMetrics(), discardLogger(),
	)

	done := make(chan error, 1)
	go func() { done <- scheduler.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		return len(ledger.ByAction(auditDomain.ActionRetentionPurge)) == 1
	}, time.Second, 5*time.Millisecond, "runs once on start")

	scheduler.Stop()
	scheduler.Stop()
	require.NoError(t, <-done)

	entries := ledger.ByAction(auditDomain.ActionRetentionPurge)
	assert.Equal(t, TriggerStartup, entries[0].Details["trigger"])
	assert.Equal(t, auditDomain.ActorSystem, entries[0].ActorID)
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	scheduler := NewScheduler(
		Config{Window: time.Hour},
		noopPurger{}, &countingKeys{}, &countingSessions{}, &auditMocks.RecordingLedger{},
		metrics.NewNoOpBusinessMetrics(), discardLogger(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- scheduler.Start(ctx) }()

	cancel()
	require.NoError(t, <-done)
}

type noopPurger struct{}

func (noopPurger) DeleteSubmittedBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func TestNextRun(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		expected time.Time
	}{
		{
			name:     "later today",
			now:      time.Date(2026, 4, 10, 1, 15, 0, 0, time.UTC),
			expected: time.Date(2026, 4, 10, 2, 0, 0, 0, time.UTC),
		},
		{
			name:     "exactly at run time moves to tomorrow",
			now:      time.Date(2026, 4, 10, 2, 0, 0, 0, time.UTC),
			expected: time.Date(2026, 4, 11, 2, 0, 0, 0, time.UTC),
		},
		{
			name:     "end of month",
			now:      time.Date(2026, 4, 30, 23, 0, 0, 0, time.UTC),
			expected: time.Date(2026, 5, 1, 2, 0, 0, 0, time.UTC),
		},
		{
			name:     "non UTC input",
			now:      time.Date(2026, 4, 10, 3, 30, 0, 0, time.FixedZone("CEST", 2*3600)),
			expected: time.Date(2026, 4, 10, 2, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NextRun(tt.now, 2, 0))
		})
	}
}
