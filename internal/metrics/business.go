package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics records use case outcomes and security decisions.
//
// Domains are "submission", "keys", "auth" and "retention". Statuses are "success" or "error".
// Security events are "rate_limit_blocked", "csrf_rejected", "scan_rejected" and
// "audit_write_failure"; reason is a low-cardinality qualifier such as a limiter category
// or a scan reason code.
type BusinessMetrics interface {
	RecordOperation(ctx context.Context, domain, operation, status string)
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)
	RecordSecurityEvent(ctx context.Context, event, reason string)
}

// durationBuckets spans a fast session lookup up to a slow Argon2id verification or purge run.
var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

type otelBusinessMetrics struct {
	operations metric.Int64Counter
	durations  metric.Float64Histogram
	security   metric.Int64Counter
}

// NewBusinessMetrics registers the business instruments on meterProvider, prefixing names with namespace.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)
	name := func(suffix string) string { return namespace + "_" + suffix }

	operations, err := meter.Int64Counter(name("operations_total"),
		metric.WithDescription("Use case invocations by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("operations counter: %w", err)
	}

	durations, err := meter.Float64Histogram(name("operation_duration_seconds"),
		metric.WithDescription("Use case latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("duration histogram: %w", err)
	}

	security, err := meter.Int64Counter(name("security_events_total"),
		metric.WithDescription("Requests rejected or failed by a security control"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("security event counter: %w", err)
	}

	return &otelBusinessMetrics{operations: operations, durations: durations, security: security}, nil
}

func operationAttrs(domain, operation, status string) metric.MeasurementOption {
	return metric.WithAttributeSet(attribute.NewSet(
		attribute.String("domain", domain),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func (b *otelBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operations.Add(ctx, 1, operationAttrs(domain, operation, status))
}

func (b *otelBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durations.Record(ctx, duration.Seconds(), operationAttrs(domain, operation, status))
}

func (b *otelBusinessMetrics) RecordSecurityEvent(ctx context.Context, event, reason string) {
	b.security.Add(ctx, 1, metric.WithAttributeSet(attribute.NewSet(
		attribute.String("event", event),
		attribute.String("reason", reason),
	)))
}

// NoOpBusinessMetrics discards everything. It is used when METRICS_ENABLED is false.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics returns a BusinessMetrics that records nothing.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return NoOpBusinessMetrics{}
}

func (NoOpBusinessMetrics) RecordOperation(context.Context, string, string, string) {}

func (NoOpBusinessMetrics) RecordDuration(context.Context, string, string, time.Duration, string) {}

func (NoOpBusinessMetrics) RecordSecurityEvent(context.Context, string, string) {}
