package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/anonymort/whistle/internal/errors"
)

type reasonError struct{ code string }

func (e *reasonError) Error() string      { return "rejected: " + e.code }
func (e *reasonError) ReasonCode() string { return e.code }
func (e *reasonError) Unwrap() error      { return apperrors.ErrScanRejected }

func TestHandleErrorGin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
		expectedCode   string
	}{
		{"not found", apperrors.ErrNotFound, http.StatusNotFound, "not_found", "NOT_FOUND"},
		{"conflict", apperrors.ErrConflict, http.StatusConflict, "conflict", "CONFLICT"},
		{
			"invalid input",
			apperrors.Wrap(apperrors.ErrInvalidInput, "ciphertext is required"),
			http.StatusBadRequest,
			"invalid_input",
			"INVALID_INPUT",
		},
		{"unauthorized", apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED"},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden, "forbidden", "FORBIDDEN"},
		{
			"too many requests",
			apperrors.ErrTooManyRequests,
			http.StatusTooManyRequests,
			"rate_limit_exceeded",
			"RATE_LIMITED",
		},
		{
			"decryption failed",
			apperrors.Wrap(apperrors.ErrDecryptionFailed, "integrity tag mismatch"),
			http.StatusBadRequest,
			"decryption_failed",
			"DECRYPTION_FAILED",
		},
		{
			"scan rejected with reason",
			&reasonError{code: "EXECUTABLE_SIGNATURE"},
			http.StatusBadRequest,
			"file_rejected",
			"EXECUTABLE_SIGNATURE",
		},
		{"internal", errors.New("db down"), http.StatusInternalServerError, "internal_error", "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			HandleErrorGin(c, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var response ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedError, response.Error)
			assert.Equal(t, tt.expectedCode, response.Code)
		})
	}

	t.Run("decryption failure does not leak the cause", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		HandleErrorGin(c, apperrors.Wrap(apperrors.ErrDecryptionFailed, "integrity tag mismatch"), logger)

		assert.NotContains(t, w.Body.String(), "integrity")
		require.Len(t, c.Errors, 1)
		assert.ErrorIs(t, c.Errors.Last().Err, apperrors.ErrDecryptionFailed)
		assert.Contains(t, c.Errors.Last().Error(), "integrity tag mismatch")
	})

	t.Run("nil error writes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		HandleErrorGin(c, nil, logger)

		assert.Empty(t, w.Body.String())
		assert.Empty(t, c.Errors)
	})
}

func TestHandleValidationErrorGin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleValidationErrorGin(c, errors.New("messageEnvelope: cannot be blank."), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_error")
	require.Len(t, c.Errors, 1)
	assert.Equal(t, "messageEnvelope: cannot be blank.", c.Errors.Last().Error())
}
