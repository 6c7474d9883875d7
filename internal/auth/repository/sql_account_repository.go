// Package repository persists reviewer accounts and sessions using database/sql.
package repository

import (
	"context"
	"database/sql"
	"errors"

	authDomain "github.com/anonymort/whistle/internal/auth/domain"
	"github.com/anonymort/whistle/internal/database"
	apperrors "github.com/anonymort/whistle/internal/errors"
)

// SQLAccountRepository implements account persistence for every supported dialect.
type SQLAccountRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLAccountRepository creates a new account repository.
func NewSQLAccountRepository(db *sql.DB, dialect database.Dialect) *SQLAccountRepository {
	return &SQLAccountRepository{db: db, dialect: dialect}
}

// Create inserts a new account.
func (r *SQLAccountRepository) Create(ctx context.Context, account *authDomain.Account) error {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.Rebind(`INSERT INTO accounts
		(id, username, role, password_hash, totp_secret, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	var totpSecret any
	if account.TOTPSecret != "" {
		totpSecret = account.TOTPSecret
	}

	_, err := querier.ExecContext(ctx, query,
		account.ID.String(),
		account.Username,
		string(account.Role),
		account.PasswordHash,
		totpSecret,
		account.IsActive,
		account.CreatedAt.UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create account")
	}
	return nil
}

// GetByUsername retrieves an account by its username.
func (r *SQLAccountRepository) GetByUsername(ctx context.Context, username string) (*authDomain.Account, error) {
	querier := database.GetTx(ctx, r.db)

	query := r.dialect.Rebind(`SELECT id, username, role, password_hash, totp_secret, is_active, created_at
		FROM accounts WHERE username = ?`)

	var (
		account    authDomain.Account
		role       string
		totpSecret sql.NullString
	)
	err := querier.QueryRowContext(ctx, query, username).Scan(
		&account.ID,
		&account.Username,
		&role,
		&account.PasswordHash,
		&totpSecret,
		&account.IsActive,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authDomain.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get account")
	}

	account.Role = authDomain.Role(role)
	account.TOTPSecret = totpSecret.String
	account.CreatedAt = account.CreatedAt.UTC()
	return &account, nil
}
