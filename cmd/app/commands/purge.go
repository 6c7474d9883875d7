package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	retentionUseCase "github.com/anonymort/whistle/internal/retention/usecase"
)

// RetentionRunner runs one retention check.
type RetentionRunner interface {
	PerformRetentionCheck(ctx context.Context, trigger string) (*retentionUseCase.Report, error)
}

// RunPurge performs a manual retention check: expired submissions, key pairs past their grace
// window and expired sessions are deleted.
//
// Requirements: Database must be migrated and accessible.
func RunPurge(
	ctx context.Context,
	runner RetentionRunner,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("running manual retention check")

	report, err := runner.PerformRetentionCheck(OperatorContext(ctx), retentionUseCase.TriggerManual)
	if err != nil {
		return fmt.Errorf("failed to run retention check: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]any{
			"cutoff":              report.Cutoff.UTC().Format(time.RFC3339),
			"submissions_deleted": report.SubmissionsDeleted,
			"keys_destroyed":      report.KeysDestroyed,
			"sessions_deleted":    report.SessionsDeleted,
		}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Retention check completed (cutoff %s)\n", report.Cutoff.UTC().Format(time.RFC3339))
		_, _ = fmt.Fprintf(writer, "Submissions deleted: %d\n", report.SubmissionsDeleted)
		_, _ = fmt.Fprintf(writer, "Keys destroyed:      %d\n", report.KeysDestroyed)
		_, _ = fmt.Fprintf(writer, "Sessions deleted:    %d\n", report.SessionsDeleted)
	}

	return nil
}
