// Package repository persists audit entries with database/sql.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	auditDomain "github.com/anonymort/whistle/internal/audit/domain"
	"github.com/anonymort/whistle/internal/database"
	apperrors "github.com/anonymort/whistle/internal/errors"
)

// SQLAuditLogRepository stores audit entries in the audit_logs table of any supported dialect.
type SQLAuditLogRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLAuditLogRepository creates a new audit log repository.
func NewSQLAuditLogRepository(db *sql.DB, dialect database.Dialect) *SQLAuditLogRepository {
	return &SQLAuditLogRepository{db: db, dialect: dialect}
}

// Create inserts an audit entry.
func (r *SQLAuditLogRepository) Create(ctx context.Context, entry *auditDomain.Entry) error {
	querier := database.GetTx(ctx, r.db)

	var details []byte
	if len(entry.Details) > 0 {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit details")
		}
	}

	query := r.dialect.Rebind(`INSERT INTO audit_logs
		(id, request_id, actor_id, action, resource, outcome, severity, details, signature, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := querier.ExecContext(ctx, query,
		entry.ID.String(),
		entry.RequestID,
		entry.ActorID,
		entry.Action,
		entry.Resource,
		string(entry.Outcome),
		string(entry.Severity),
		nullableJSON(details),
		nullableBytes(entry.Signature),
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

// List returns entries newest first with optional inclusive time bounds.
func (r *SQLAuditLogRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.Entry, error) {
	querier := database.GetTx(ctx, r.db)

	var conditions []string
	var args []any
	if createdAtFrom != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, createdAtFrom.UTC())
	}
	if createdAtTo != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, createdAtTo.UTC())
	}

	query := `SELECT id, request_id, actor_id, action, resource, outcome, severity, details, signature, created_at
		FROM audit_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]*auditDomain.Entry, 0)
	for rows.Next() {
		var entry auditDomain.Entry
		var outcome, severity string
		var details, signature []byte

		if err := rows.Scan(
			&entry.ID,
			&entry.RequestID,
			&entry.ActorID,
			&entry.Action,
			&entry.Resource,
			&outcome,
			&severity,
			&details,
			&signature,
			&entry.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit log")
		}

		entry.Outcome = auditDomain.Outcome(outcome)
		entry.Severity = auditDomain.Severity(severity)
		entry.Signature = signature
		entry.CreatedAt = entry.CreatedAt.UTC()
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal audit details")
			}
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}
	return entries, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
