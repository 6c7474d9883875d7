// Package repository persists key pairs with the private half wrapped by a KMS keeper.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/anonymort/whistle/internal/crypto/domain"
	"github.com/anonymort/whistle/internal/database"
	apperrors "github.com/anonymort/whistle/internal/errors"
)

// SQLKeyPairRepository stores key pairs in the key_pairs table. Private keys only ever reach the
// database wrapped by the keeper.
type SQLKeyPairRepository struct {
	db      *sql.DB
	dialect database.Dialect
	keeper  cryptoDomain.KMSKeeper
}

// NewSQLKeyPairRepository creates a new key pair repository.
func NewSQLKeyPairRepository(
	db *sql.DB,
	dialect database.Dialect,
	keeper cryptoDomain.KMSKeeper,
) *SQLKeyPairRepository {
	return &SQLKeyPairRepository{db: db, dialect: dialect, keeper: keeper}
}

// Create wraps the private key and inserts the pair.
func (r *SQLKeyPairRepository) Create(ctx context.Context, keyPair *cryptoDomain.KeyPair) error {
	querier := database.GetTx(ctx, r.db)

	wrapped, err := r.keeper.Encrypt(ctx, keyPair.PrivateKey)
	if err != nil {
		return apperrors.Wrap(err, "failed to wrap private key")
	}

	query := r.dialect.Rebind(`INSERT INTO key_pairs
		(id, algorithm, public_key, wrapped_private_key, active, created_at, retired_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err = querier.ExecContext(ctx, query,
		keyPair.ID.String(),
		string(keyPair.Algorithm),
		keyPair.PublicKey,
		wrapped,
		keyPair.Active,
		keyPair.CreatedAt.UTC(),
		nullableTime(keyPair.RetiredAt),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create key pair")
	}
	return nil
}

// Retire demotes the pair and records when its grace window started.
func (r *SQLKeyPairRepository) Retire(ctx context.Context, id uuid.UUID, retiredAt time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.Rebind(`UPDATE key_pairs SET active = ?, retired_at = ? WHERE id = ?`)
	result, err := querier.ExecContext(ctx, query, false, retiredAt.UTC(), id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to retire key pair")
	}
	return requireOneRow(result)
}

// ListUsable returns every stored pair, newest first, with private keys unwrapped.
func (r *SQLKeyPairRepository) ListUsable(ctx context.Context) ([]*cryptoDomain.KeyPair, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, `SELECT id, algorithm, public_key, wrapped_private_key,
		active, created_at, retired_at FROM key_pairs ORDER BY created_at DESC`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list key pairs")
	}
	defer func() {
		_ = rows.Close()
	}()

	var keyPairs []*cryptoDomain.KeyPair
	for rows.Next() {
		var (
			keyPair   cryptoDomain.KeyPair
			algorithm string
			wrapped   []byte
			retiredAt sql.NullTime
		)
		if err := rows.Scan(
			&keyPair.ID,
			&algorithm,
			&keyPair.PublicKey,
			&wrapped,
			&keyPair.Active,
			&keyPair.CreatedAt,
			&retiredAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan key pair")
		}

		keyPair.Algorithm = cryptoDomain.Algorithm(algorithm)
		keyPair.CreatedAt = keyPair.CreatedAt.UTC()
		if retiredAt.Valid {
			t := retiredAt.Time.UTC()
			keyPair.RetiredAt = &t
		}

		keyPair.PrivateKey, err = r.keeper.Decrypt(ctx, wrapped)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to unwrap private key")
		}
		keyPairs = append(keyPairs, &keyPair)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate key pairs")
	}

	return keyPairs, nil
}

// Delete removes the pair, making envelopes sealed to it permanently unrecoverable.
func (r *SQLKeyPairRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM key_pairs WHERE id = ?`), id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to delete key pair")
	}
	return requireOneRow(result)
}

func requireOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return cryptoDomain.ErrKeyPairNotFound
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
