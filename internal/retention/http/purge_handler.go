// Package http exposes the manual retention run to administrators.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anonymort/whistle/internal/httputil"
	retentionUseCase "github.com/anonymort/whistle/internal/retention/usecase"
)

// Purger runs a retention check. *retentionUseCase.Scheduler satisfies it.
type Purger interface {
	PerformRetentionCheck(ctx context.Context, trigger string) (*retentionUseCase.Report, error)
}

// PurgeResponse reports what a manual run removed.
type PurgeResponse struct {
	Deleted         int64     `json:"deleted"`
	KeysDestroyed   int       `json:"keysDestroyed"`
	SessionsDeleted int64     `json:"sessionsDeleted"`
	Cutoff          time.Time `json:"cutoff"`
}

// PurgeHandler handles the manual purge endpoint.
type PurgeHandler struct {
	purger Purger
	logger *slog.Logger
}

// NewPurgeHandler creates a new purge handler.
func NewPurgeHandler(purger Purger, logger *slog.Logger) *PurgeHandler {
	return &PurgeHandler{purger: purger, logger: logger}
}

// Handle runs the retention check now.
// POST /purge - admin session and CSRF token. Returns 409 while a scheduled run is going.
func (h *PurgeHandler) Handle(c *gin.Context) {
	report, err := h.purger.PerformRetentionCheck(c.Request.Context(), retentionUseCase.TriggerManual)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, PurgeResponse{
		Deleted:         report.SubmissionsDeleted,
		KeysDestroyed:   report.KeysDestroyed,
		SessionsDeleted: report.SessionsDeleted,
		Cutoff:          report.Cutoff,
	})
}
