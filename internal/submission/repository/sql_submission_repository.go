// Package repository persists submissions using database/sql.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	cryptoDomain "github.com/anonymort/whistle/internal/crypto/domain"
	"github.com/anonymort/whistle/internal/database"
	apperrors "github.com/anonymort/whistle/internal/errors"
	submissionDomain "github.com/anonymort/whistle/internal/submission/domain"
)

const submissionColumns = `id, reference, message_envelope, file_envelope, content_hash, submitted_at, status, priority`

// SQLSubmissionRepository stores submissions with their envelopes encoded as JSON.
type SQLSubmissionRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLSubmissionRepository creates a new submission repository.
func NewSQLSubmissionRepository(db *sql.DB, dialect database.Dialect) *SQLSubmissionRepository {
	return &SQLSubmissionRepository{db: db, dialect: dialect}
}

// Create inserts a submission.
func (r *SQLSubmissionRepository) Create(ctx context.Context, submission *submissionDomain.Submission) error {
	querier := database.GetTx(ctx, r.db)

	message, err := encodeEnvelope(submission.MessageEnvelope)
	if err != nil {
		return err
	}
	file, err := encodeEnvelope(submission.FileEnvelope)
	if err != nil {
		return err
	}

	query := r.dialect.Rebind(`INSERT INTO submissions (` + submissionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = querier.ExecContext(ctx, query,
		submission.ID.String(),
		submission.Reference,
		message,
		file,
		submission.ContentHash,
		submission.SubmittedAt.UTC(),
		string(submission.Status),
		string(submission.Priority),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create submission")
	}
	return nil
}

// GetByReference retrieves a submission by its reference.
func (r *SQLSubmissionRepository) GetByReference(
	ctx context.Context,
	reference string,
) (*submissionDomain.Submission, error) {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.Rebind(`SELECT ` + submissionColumns + ` FROM submissions WHERE reference = ?`)
	submission, err := scanSubmission(querier.QueryRowContext(ctx, query, reference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, submissionDomain.ErrSubmissionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get submission")
	}
	return submission, nil
}

// List returns submissions newest first.
func (r *SQLSubmissionRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*submissionDomain.Submission, error) {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.Rebind(`SELECT ` + submissionColumns + ` FROM submissions
		ORDER BY submitted_at DESC, id DESC LIMIT ? OFFSET ?`)

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list submissions")
	}
	defer func() {
		_ = rows.Close()
	}()

	submissions := make([]*submissionDomain.Submission, 0)
	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan submission")
		}
		submissions = append(submissions, submission)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate submissions")
	}
	return submissions, nil
}

// DeleteSubmittedBefore deletes every submission with submitted_at strictly before cutoff.
func (r *SQLSubmissionRepository) DeleteSubmittedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx,
		r.dialect.Rebind(`DELETE FROM submissions WHERE submitted_at < ?`),
		cutoff.UTC(),
	)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete submissions")
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*submissionDomain.Submission, error) {
	var (
		submission       submissionDomain.Submission
		message, file    []byte
		status, priority string
	)
	if err := row.Scan(
		&submission.ID,
		&submission.Reference,
		&message,
		&file,
		&submission.ContentHash,
		&submission.SubmittedAt,
		&status,
		&priority,
	); err != nil {
		return nil, err
	}

	var err error
	if submission.MessageEnvelope, err = decodeEnvelope(message); err != nil {
		return nil, err
	}
	if submission.FileEnvelope, err = decodeEnvelope(file); err != nil {
		return nil, err
	}
	submission.Status = submissionDomain.Status(status)
	submission.Priority = submissionDomain.Priority(priority)
	submission.SubmittedAt = submission.SubmittedAt.UTC()
	return &submission, nil
}

func encodeEnvelope(envelope *cryptoDomain.Envelope) (any, error) {
	if envelope == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(envelope)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal envelope")
	}
	return string(encoded), nil
}

func decodeEnvelope(data []byte) (*cryptoDomain.Envelope, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var envelope cryptoDomain.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal envelope")
	}
	return &envelope, nil
}
