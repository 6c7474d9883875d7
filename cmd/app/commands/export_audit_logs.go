package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/anonymort/whistle/internal/audit/http/dto"
	auditUseCase "github.com/anonymort/whistle/internal/audit/usecase"
)

const exportPageSize = 500

// exportedEntry carries the signature so the archive can be verified offline.
type exportedEntry struct {
	dto.AuditLogResponse
	Signature []byte `json:"signature,omitempty"`
}

// RunExportAuditLogs writes every ledger entry between from and to as JSON lines, newest first.
// The ledger itself is left untouched.
func RunExportAuditLogs(
	ctx context.Context,
	ledger auditUseCase.AuditLogUseCase,
	logger *slog.Logger,
	writer io.Writer,
	from, to string,
	now time.Time,
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

	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)

	var exported int
	for offset := 0; ; offset += exportPageSize {
		entries, err := ledger.List(ctx, offset, exportPageSize, &start, &end)
		if err != nil {
			return fmt.Errorf("export audit logs: %w", err)
		}
		for _, entry := range entries {
			line := exportedEntry{AuditLogResponse: dto.MapAuditLogToResponse(entry), Signature: entry.Signature}
			if err := encoder.Encode(line); err != nil {
				return fmt.Errorf("encode audit entry %s: %w", entry.ID, err)
			}
			exported++
		}
		if len(entries) < exportPageSize {
			break
		}
	}

	logger.Info("audit ledger exported",
		slog.Int("count", exported),
		slog.Time("from", start),
		slog.Time("to", end),
	)
	return nil
}
