// Package notification delivers out-of-band messages to reporters and reviewers.
package notification

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
)

// Template identifiers.
const (
	TemplateSubmissionReceived = "submission_received"
)

// Notifier sends a templated message to destination. It reports delivery instead of failing
// so the caller's operation never depends on it.
type Notifier interface {
	Notify(ctx context.Context, destination, templateID string, data map[string]string) bool
}

// LogNotifier writes notifications to the operational log. Destinations are logged as a
// digest only.
type LogNotifier struct {
	logger    *slog.Logger
	templates map[string]struct{}
}

// NewLogNotifier creates a notifier that knows the given templates, or every built-in
// template when none are passed.
func NewLogNotifier(logger *slog.Logger, templates ...string) *LogNotifier {
	if len(templates) == 0 {
		templates = []string{TemplateSubmissionReceived}
	}
	known := make(map[string]struct{}, len(templates))
	for _, templateID := range templates {
		known[templateID] = struct{}{}
	}
	return &LogNotifier{logger: logger, templates: known}
}

// Notify logs the notification. Blank destinations and unknown templates are not delivered.
func (n *LogNotifier) Notify(ctx context.Context, destination, templateID string, data map[string]string) bool {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return false
	}
	if _, ok := n.templates[templateID]; !ok {
		n.logger.WarnContext(ctx, "unknown notification template", slog.String("template", templateID))
		return false
	}

	attrs := []any{
		slog.String("template", templateID),
		slog.String("destination_digest", Digest(destination)),
	}
	for key, value := range data {
		attrs = append(attrs, slog.String(key, value))
	}
	n.logger.InfoContext(ctx, "notification dispatched", attrs...)
	return true
}

// Digest returns a short stable fingerprint of a destination for correlation in logs.
func Digest(destination string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(destination)))
	return hex.EncodeToString(sum[:6])
}
