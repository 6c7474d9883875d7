package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	auditUseCase "github.com/anonymort/whistle/internal/audit/usecase"
)

// ErrLedgerTampered is returned when at least one entry fails its signature check.
var ErrLedgerTampered = errors.New("audit ledger integrity check failed")

type verifyResult struct {
	From          time.Time   `json:"from"`
	To            time.Time   `json:"to"`
	TotalChecked  int64       `json:"total_checked"`
	SignedCount   int64       `json:"signed_count"`
	UnsignedCount int64       `json:"unsigned_count"`
	ValidCount    int64       `json:"valid_count"`
	InvalidCount  int64       `json:"invalid_count"`
	InvalidLogs   []uuid.UUID `json:"invalid_logs"`
	Passed        bool        `json:"passed"`
}

// RunVerifyAuditLogs recomputes the signature of every ledger entry between from and to.
// An empty to means now. Entries written without AUDIT_SIGNING_KEY are reported as unsigned.
func RunVerifyAuditLogs(
	ctx context.Context,
	ledger auditUseCase.AuditLogUseCase,
	logger *slog.Logger,
	writer io.Writer,
	from, to string,
	now time.Time,
	format string,
) error {
	start, err := parseBound(from, now)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	end, err := parseBound(to, now)
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}
	if !end.After(start) {
		return fmt.Errorf("--to (%s) must be after --from (%s)", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	report, err := ledger.VerifyBatch(ctx, start, end)
	if err != nil {
		return fmt.Errorf("verify audit logs: %w", err)
	}

	result := verifyResult{
		From:          start,
		To:            end,
		TotalChecked:  report.TotalChecked,
		SignedCount:   report.SignedCount,
		UnsignedCount: report.UnsignedCount,
		ValidCount:    report.ValidCount,
		InvalidCount:  report.InvalidCount,
		InvalidLogs:   report.InvalidLogs,
		Passed:        report.InvalidCount == 0,
	}
	if result.InvalidLogs == nil {
		result.InvalidLogs = []uuid.UUID{}
	}

	if format == "json" {
		err = writeJSON(writer, result)
	} else {
		err = writeVerifyTable(writer, result)
	}
	if err != nil {
		return err
	}

	logger.Info("audit ledger verified",
		slog.Int64("checked", report.TotalChecked),
		slog.Int64("invalid", report.InvalidCount),
		slog.Int64("unsigned", report.UnsignedCount),
	)

	if !result.Passed {
		return fmt.Errorf("%w: %d entries", ErrLedgerTampered, report.InvalidCount)
	}
	return nil
}

// parseBound accepts a calendar date (midnight UTC) or an RFC3339 timestamp.
func parseBound(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now, nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither YYYY-MM-DD nor RFC3339", value)
	}
	return t.UTC(), nil
}

func writeVerifyTable(writer io.Writer, r verifyResult) error {
	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "range\t%s .. %s\n", r.From.Format(time.RFC3339), r.To.Format(time.RFC3339))
	_, _ = fmt.Fprintf(tw, "checked\t%d\n", r.TotalChecked)
	_, _ = fmt.Fprintf(tw, "signed\t%d\n", r.SignedCount)
	_, _ = fmt.Fprintf(tw, "unsigned\t%d\n", r.UnsignedCount)
	_, _ = fmt.Fprintf(tw, "valid\t%d\n", r.ValidCount)
	_, _ = fmt.Fprintf(tw, "invalid\t%d\n", r.InvalidCount)
	for _, id := range r.InvalidLogs {
		_, _ = fmt.Fprintf(tw, "tampered\t%s\n", id)
	}

	status := "PASSED"
	switch {
	case !r.Passed:
		status = "FAILED"
	case r.TotalChecked == 0:
		status = "EMPTY"
	}
	_, _ = fmt.Fprintf(tw, "status\t%s\n", status)
	return tw.Flush()
}
