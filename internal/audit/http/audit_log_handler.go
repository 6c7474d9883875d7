// Package http provides the administrative audit ledger endpoint.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
	"github.com/anonymort/whistle/internal/audit/http/dto"
	auditUseCase "github.com/anonymort/whistle/internal/audit/usecase"
	"github.com/anonymort/whistle/internal/httputil"
)

// AuditLogHandler handles HTTP requests for audit log operations.
type AuditLogHandler struct {
	auditLogUseCase auditUseCase.AuditLogUseCase
	logger          *slog.Logger
}

// NewAuditLogHandler creates a new audit log handler with required dependencies.
func NewAuditLogHandler(auditLogUseCase auditUseCase.AuditLogUseCase, logger *slog.Logger) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUseCase: auditLogUseCase,
		logger:          logger,
	}
}

// ListHandler returns audit entries newest first.
// GET /admin/audit-logs?offset=0&limit=50&from=2026-02-01T00:00:00Z&to=2026-02-14T23:59:59Z
// Both bounds are optional RFC3339 timestamps and inclusive. Reading the ledger is itself audited.
func (h *AuditLogHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	from, to, err := httputil.ParseTimeRange(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	ctx := c.Request.Context()
	entries, err := h.auditLogUseCase.List(ctx, offset, limit, from, to)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.auditLogUseCase.Record(ctx, &auditDomain.Entry{
		Action:   auditDomain.ActionAuditList,
		Resource: c.FullPath(),
		Outcome:  auditDomain.OutcomeSuccess,
		Severity: auditDomain.SeverityMedium,
		Details:  map[string]any{"offset": offset, "limit": limit, "count": len(entries)},
	})

	c.JSON(http.StatusOK, dto.MapAuditLogsToListResponse(entries))
}
