package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/anonymort/whistle/internal/auth/domain"
	"github.com/anonymort/whistle/internal/database"
	apperrors "github.com/anonymort/whistle/internal/errors"
)

// SQLSessionRepository implements session persistence for every supported dialect.
type SQLSessionRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLSessionRepository creates a new session repository.
func NewSQLSessionRepository(db *sql.DB, dialect database.Dialect) *SQLSessionRepository {
	return &SQLSessionRepository{db: db, dialect: dialect}
}

// Create inserts a new session.
func (r *SQLSessionRepository) Create(ctx context.Context, session *authDomain.Session) error {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.Rebind(`INSERT INTO sessions
		(id, account_id, role, csrf_secret, issued_at, expires_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	var accountID any
	if session.AccountID != nil {
		accountID = session.AccountID.String()
	}
	var csrfSecret any
	if len(session.CSRFSecret) > 0 {
		csrfSecret = session.CSRFSecret
	}

	_, err := querier.ExecContext(ctx, query,
		session.ID,
		accountID,
		string(session.Role),
		csrfSecret,
		session.IssuedAt.UTC(),
		session.ExpiresAt.UTC(),
		session.LastSeenAt.UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create session")
	}
	return nil
}

// Get retrieves a session by id.
func (r *SQLSessionRepository) Get(ctx context.Context, id string) (*authDomain.Session, error) {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.Rebind(`SELECT id, account_id, role, csrf_secret, issued_at, expires_at, last_seen_at
		FROM sessions WHERE id = ?`)

	var (
		session   authDomain.Session
		accountID sql.NullString
		role      string
	)
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&accountID,
		&role,
		&session.CSRFSecret,
		&session.IssuedAt,
		&session.ExpiresAt,
		&session.LastSeenAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authDomain.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get session")
	}

	if accountID.Valid {
		parsed, err := uuid.Parse(accountID.String)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse session account id")
		}
		session.AccountID = &parsed
	}
	session.Role = authDomain.Role(role)
	session.IssuedAt = session.IssuedAt.UTC()
	session.ExpiresAt = session.ExpiresAt.UTC()
	session.LastSeenAt = session.LastSeenAt.UTC()
	return &session, nil
}

// Touch updates the activity timestamps of a session.
func (r *SQLSessionRepository) Touch(ctx context.Context, id string, lastSeenAt, expiresAt time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.Rebind(`UPDATE sessions SET last_seen_at = ?, expires_at = ? WHERE id = ?`)
	// MySQL reports zero affected rows for no-op updates, so the row count is not checked.
	if _, err := querier.ExecContext(ctx, query, lastSeenAt.UTC(), expiresAt.UTC(), id); err != nil {
		return apperrors.Wrap(err, "failed to touch session")
	}
	return nil
}

// SetCSRFSecret stores the secret unless one is already present.
func (r *SQLSessionRepository) SetCSRFSecret(ctx context.Context, id string, secret []byte) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.Rebind(`UPDATE sessions SET csrf_secret = ? WHERE id = ? AND csrf_secret IS NULL`)
	result, err := querier.ExecContext(ctx, query, secret, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to set csrf secret")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return affected == 1, nil
}

// Delete removes a session.
func (r *SQLSessionRepository) Delete(ctx context.Context, id string) error {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM sessions WHERE id = ?`), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete session")
	}
	return requireOneRow(result)
}

// DeleteExpired removes every session with expires_at at or before now.
func (r *SQLSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM sessions WHERE expires_at <= ?`), now.UTC())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired sessions")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read affected rows")
	}
	return deleted, nil
}

func requireOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return authDomain.ErrSessionNotFound
	}
	return nil
}
