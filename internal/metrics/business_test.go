package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertBizMetricLine checks that the Prometheus output contains a metric matching the given
// name, partial label pattern and value. The regex tolerates the OTel scope labels the
// Prometheus exporter adds.
func assertBizMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	pattern := name + `\{[^}]*` + labels + `[^}]*\} ` + value
	assert.Regexp(t, pattern, output)
}

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()
	w := httptest.NewRecorder()
	provider.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewBusinessMetrics(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)

	businessMetrics, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")

	require.NoError(t, err)
	assert.NotNil(t, businessMetrics)
}

func TestNoOpBusinessMetrics(t *testing.T) {
	noOp := NewNoOpBusinessMetrics()

	assert.NotPanics(t, func() {
		noOp.RecordOperation(context.Background(), "submission", "submit", "error")
		noOp.RecordDuration(context.Background(), "keys", "rotate", time.Second, "success")
		noOp.RecordSecurityEvent(context.Background(), "rate_limit_blocked", "admin_login")
	})
}

func TestBusinessMetrics_Integration(t *testing.T) {
	provider, err := NewProvider("integration_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "integration_test")
	require.NoError(t, err)

	ctx := context.Background()

	bm.RecordOperation(ctx, "submission", "submit", "success")
	bm.RecordOperation(ctx, "submission", "submit", "success")
	bm.RecordOperation(ctx, "submission", "submit", "error")
	bm.RecordOperation(ctx, "keys", "rotate", "success")

	bm.RecordDuration(ctx, "submission", "submit", 50*time.Millisecond, "success")
	bm.RecordDuration(ctx, "submission", "submit", 60*time.Millisecond, "success")
	bm.RecordDuration(ctx, "keys", "rotate", 150*time.Millisecond, "success")

	bm.RecordSecurityEvent(ctx, "rate_limit_blocked", "admin_login")
	bm.RecordSecurityEvent(ctx, "rate_limit_blocked", "admin_login")
	bm.RecordSecurityEvent(ctx, "scan_rejected", "EXECUTABLE_SIGNATURE")

	output := scrape(t, provider)

	assertBizMetricLine(t, output,
		`integration_test_operations_total`,
		`domain="submission".*operation="submit".*status="success"`,
		`2`,
	)
	assertBizMetricLine(t, output,
		`integration_test_operations_total`,
		`domain="submission".*operation="submit".*status="error"`,
		`1`,
	)
	assertBizMetricLine(t, output,
		`integration_test_operation_duration_seconds_count`,
		`domain="submission".*operation="submit".*status="success"`,
		`2`,
	)
	assertBizMetricLine(t, output,
		`integration_test_operation_duration_seconds_bucket`,
		`domain="submission".*operation="submit".*status="success".*le="0.1"`,
		`2`,
	)
	assertBizMetricLine(t, output,
		`integration_test_operation_duration_seconds_bucket`,
		`domain="keys".*operation="rotate".*le="0.1"`,
		`0`,
	)
	assertBizMetricLine(t, output,
		`integration_test_security_events_total`,
		`event="rate_limit_blocked".*reason="admin_login"`,
		`2`,
	)
	assertBizMetricLine(t, output,
		`integration_test_security_events_total`,
		`event="scan_rejected".*reason="EXECUTABLE_SIGNATURE"`,
		`1`,
	)
}
