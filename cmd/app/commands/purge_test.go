package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/anonymort/whistle/internal/errors"
	retentionUseCase "github.com/anonymort/whistle/internal/retention/usecase"
)

type stubRunner struct {
	report  *retentionUseCase.Report
	err     error
	trigger string
}

func (s *stubRunner) PerformRetentionCheck(ctx context.Context, trigger string) (*retentionUseCase.Report, error) {
	s.trigger = trigger
	return s.report, s.err
}

func TestRunPurge(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	report := &retentionUseCase.Report{
		Trigger:            retentionUseCase.TriggerManual,
		Cutoff:             time.Date(2026, 7, 21, 2, 0, 0, 0, time.UTC),
		SubmissionsDeleted: 12,
		KeysDestroyed:      1,
		SessionsDeleted:    4,
	}

	t.Run("text-output", func(t *testing.T) {
		runner := &stubRunner{report: report}

		var out bytes.Buffer
		require.NoError(t, RunPurge(ctx, runner, logger, &out, "text"))

		require.Equal(t, retentionUseCase.TriggerManual, runner.trigger)
		require.Contains(t, out.String(), "cutoff 2026-07-21T02:00:00Z")
		require.Contains(t, out.String(), "Submissions deleted: 12")
	})

	t.Run("json-output", func(t *testing.T) {
		runner := &stubRunner{report: report}

		var out bytes.Buffer
		require.NoError(t, RunPurge(ctx, runner, logger, &out, "json"))

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Equal(t, float64(12), result["submissions_deleted"])
		require.Equal(t, float64(1), result["keys_destroyed"])
		require.Equal(t, float64(4), result["sessions_deleted"])
	})

	t.Run("run-in-progress", func(t *testing.T) {
		runner := &stubRunner{err: retentionUseCase.ErrRunInProgress}

		err := RunPurge(ctx, runner, logger, &bytes.Buffer{}, "text")

		require.ErrorIs(t, err, apperrors.ErrConflict)
	})
}
