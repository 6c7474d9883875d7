// Package http provides the intake and investigator endpoints for submissions.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/anonymort/whistle/internal/errors"
	"github.com/anonymort/whistle/internal/httputil"
	"github.com/anonymort/whistle/internal/submission/http/dto"
	submissionUseCase "github.com/anonymort/whistle/internal/submission/usecase"
	customValidation "github.com/anonymort/whistle/internal/validation"
)

// SubmissionHandler handles HTTP requests for submissions.
type SubmissionHandler struct {
	submissionUseCase submissionUseCase.SubmissionUseCase
	logger            *slog.Logger
}

// NewSubmissionHandler creates a new submission handler with required dependencies.
func NewSubmissionHandler(
	submissionUseCase submissionUseCase.SubmissionUseCase,
	logger *slog.Logger,
) *SubmissionHandler {
	return &SubmissionHandler{
		submissionUseCase: submissionUseCase,
		logger:            logger,
	}
}

// CreateHandler accepts a submission.
// POST /submit - rate limited and CSRF protected. Returns 201 with the reference.
func (h *SubmissionHandler) CreateHandler(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.submissionUseCase.Reject(ctx, submissionUseCase.RejectMalformed)
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		h.submissionUseCase.Reject(ctx, rejectReason(dto.InvalidField(err)))
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input, err := req.ToDomain()
	if err != nil {
		h.submissionUseCase.Reject(ctx, submissionUseCase.RejectMalformed)
		httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrInvalidInput, "file data must be base64"), h.logger)
		return
	}

	submission, err := h.submissionUseCase.Submit(ctx, input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateSubmissionResponse{Reference: submission.Reference})
}

// ListHandler returns stored envelopes newest first.
// GET /investigator/submissions?offset=0&limit=50 - investigator or admin session.
func (h *SubmissionHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	submissions, err := h.submissionUseCase.List(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSubmissionsToListResponse(submissions))
}

func rejectReason(field string) string {
	switch field {
	case "messageEnvelope":
		return submissionUseCase.RejectInvalidMessage
	case "fileEnvelope":
		return submissionUseCase.RejectInvalidFile
	case "priority":
		return submissionUseCase.RejectInvalidPriority
	default:
		return submissionUseCase.RejectMalformed
	}
}
