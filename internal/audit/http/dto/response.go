// Package dto provides data transfer objects for the audit ledger endpoints.
package dto

import (
	"time"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
)

// AuditLogResponse represents an audit entry in API responses.
type AuditLogResponse struct {
	ID        string         `json:"id"`
	RequestID string         `json:"request_id"`
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource"`
	Outcome   string         `json:"outcome"`
	Severity  string         `json:"severity"`
	Details   map[string]any `json:"details,omitempty"`
	Signed    bool           `json:"signed"`
	CreatedAt time.Time      `json:"created_at"`
}

// MapAuditLogToResponse converts a domain audit entry to an API response.
func MapAuditLogToResponse(entry *auditDomain.Entry) AuditLogResponse {
	return AuditLogResponse{
		ID:        entry.ID.String(),
		RequestID: entry.RequestID,
		ActorID:   entry.ActorID,
		Action:    entry.Action,
		Resource:  entry.Resource,
		Outcome:   string(entry.Outcome),
		Severity:  string(entry.Severity),
		Details:   entry.Details,
		Signed:    entry.IsSigned(),
		CreatedAt: entry.CreatedAt,
	}
}

// ListAuditLogsResponse represents a paginated list of audit entries.
type ListAuditLogsResponse struct {
	Data []AuditLogResponse `json:"data"`
}

// MapAuditLogsToListResponse converts domain audit entries to a list API response.
func MapAuditLogsToListResponse(entries []*auditDomain.Entry) ListAuditLogsResponse {
	responses := make([]AuditLogResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, MapAuditLogToResponse(entry))
	}
	return ListAuditLogsResponse{Data: responses}
}
