// Package httputil holds the JSON error envelope and query parsing shared by every handler.
package httputil

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/anonymort/whistle/internal/errors"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// reasonCoder exposes a client safe reason, e.g. scanner rejections.
type reasonCoder interface {
	ReasonCode() string
}

type errorMapping struct {
	sentinel error
	status   int
	body     ErrorResponse
	// echo copies err.Error() into the message; only for caller input errors.
	echo bool
}

// Checked in order. ErrScanRejected precedes ErrInvalidInput because scan errors may wrap both.
var errorMappings = []errorMapping{
	{apperrors.ErrNotFound, http.StatusNotFound,
		ErrorResponse{"not_found", "NOT_FOUND", "The requested resource was not found"}, false},
	{apperrors.ErrConflict, http.StatusConflict,
		ErrorResponse{"conflict", "CONFLICT", "A conflict occurred with existing data"}, false},
	{apperrors.ErrScanRejected, http.StatusBadRequest,
		ErrorResponse{"file_rejected", "FILE_REJECTED", "The uploaded file was rejected"}, false},
	{apperrors.ErrDecryptionFailed, http.StatusBadRequest,
		ErrorResponse{"decryption_failed", "DECRYPTION_FAILED", "The envelope could not be opened"}, false},
	{apperrors.ErrInvalidInput, http.StatusBadRequest,
		ErrorResponse{"invalid_input", "INVALID_INPUT", ""}, true},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized,
		ErrorResponse{"unauthorized", "UNAUTHORIZED", "Authentication is required"}, false},
	{apperrors.ErrForbidden, http.StatusForbidden,
		ErrorResponse{"forbidden", "FORBIDDEN", "You don't have permission to access this resource"}, false},
	{apperrors.ErrTooManyRequests, http.StatusTooManyRequests,
		ErrorResponse{"rate_limit_exceeded", "RATE_LIMITED", "Too many requests, please try again later"}, false},
}

var internalError = ErrorResponse{"internal_error", "INTERNAL_ERROR", "An internal error occurred"}

// HandleErrorGin aborts c with the status and body mapped from err. Authentication,
// authorization, decryption and internal failures get fixed bodies; the cause is logged and
// attached to c.Errors, never sent.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	status, body := http.StatusInternalServerError, internalError
	for _, m := range errorMappings {
		if !apperrors.Is(err, m.sentinel) {
			continue
		}
		status, body = m.status, m.body
		if m.echo {
			body.Message = err.Error()
		}
		break
	}

	var coder reasonCoder
	if body.Error == "file_rejected" && apperrors.As(err, &coder) && coder.ReasonCode() != "" {
		body.Code = coder.ReasonCode()
	}

	if logger != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		ctx := context.Background()
		if c.Request != nil {
			ctx = c.Request.Context()
		}
		logger.LogAttrs(ctx, level, "request failed",
			slog.Int("status_code", status),
			slog.String("error_code", body.Error),
			slog.Any("error", err),
		)
	}

	// The full cause travels on the gin context for the error audit middleware.
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// HandleBadRequestGin answers 400 for bodies or parameters that could not be parsed.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	abortBadRequest(c, err, logger, "bad request", ErrorResponse{Error: "bad_request", Code: "BAD_REQUEST"})
}

// HandleValidationErrorGin answers 400 for DTOs that parsed but failed their rules.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	abortBadRequest(c, err, logger, "validation failed",
		ErrorResponse{Error: "validation_error", Code: "VALIDATION_ERROR"})
}

func abortBadRequest(c *gin.Context, err error, logger *slog.Logger, msg string, body ErrorResponse) {
	if logger != nil {
		logger.Warn(msg, slog.Any("error", err))
	}
	body.Message = err.Error()
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}
