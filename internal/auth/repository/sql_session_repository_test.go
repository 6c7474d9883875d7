package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/anonymort/whistle/internal/auth/domain"
	"github.com/anonymort/whistle/internal/database"
	"github.com/anonymort/whistle/internal/testutil"
)

func TestSQLSessionRepository_SQLite(t *testing.T) {
	db := testutil.SetupSQLiteDB(t)
	accounts := NewSQLAccountRepository(db, database.SQLite)
	repo := NewSQLSessionRepository(db, database.SQLite)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	account := newAccount("alice", authDomain.RoleAdmin)
	require.NoError(t, accounts.Create(ctx, account))

	reviewer := &authDomain.Session{
		ID:         "reviewer-session",
		AccountID:  &account.ID,
		Role:       authDomain.RoleAdmin,
		IssuedAt:   now,
		ExpiresAt:  now.Add(30 * time.Minute),
		LastSeenAt: now,
	}
	reporter := &authDomain.Session{
		ID:         "reporter-session",
		Role:       authDomain.RoleReporter,
		IssuedAt:   now.Add(-time.Hour),
		ExpiresAt:  now.Add(-time.Minute),
		LastSeenAt: now.Add(-time.Hour),
	}
	require.NoError(t, repo.Create(ctx, reviewer))
	require.NoError(t, repo.Create(ctx, reporter))

	t.Run("get", func(t *testing.T) {
		found, err := repo.Get(ctx, "reviewer-session")
		require.NoError(t, err)
		require.NotNil(t, found.AccountID)
		assert.Equal(t, account.ID, *found.AccountID)
		assert.Equal(t, authDomain.RoleAdmin, found.Role)
		assert.Empty(t, found.CSRFSecret)
		assert.True(t, reviewer.ExpiresAt.Equal(found.ExpiresAt))

		anonymous, err := repo.Get(ctx, "reporter-session")
		require.NoError(t, err)
		assert.Nil(t, anonymous.AccountID)
		assert.Equal(t, authDomain.RoleReporter, anonymous.Role)
	})

	t.Run("get unknown", func(t *testing.T) {
		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, authDomain.ErrSessionNotFound)
	})

	t.Run("touch", func(t *testing.T) {
		later := now.Add(5 * time.Minute)
		require.NoError(t, repo.Touch(ctx, "reviewer-session", later, later.Add(30*time.Minute)))

		found, err := repo.Get(ctx, "reviewer-session")
		require.NoError(t, err)
		assert.True(t, later.Equal(found.LastSeenAt))
		assert.True(t, later.Add(30*time.Minute).Equal(found.ExpiresAt))
	})

	t.Run("csrf secret is set once", func(t *testing.T) {
		stored, err := repo.SetCSRFSecret(ctx, "reviewer-session", []byte("first-secret"))
		require.NoError(t, err)
		assert.True(t, stored)

		stored, err = repo.SetCSRFSecret(ctx, "reviewer-session", []byte("second-secret"))
		require.NoError(t, err)
		assert.False(t, stored)

		found, err := repo.Get(ctx, "reviewer-session")
		require.NoError(t, err)
		assert.Equal(t, []byte("first-secret"), found.CSRFSecret)
	})

	t.Run("delete expired", func(t *testing.T) {
		deleted, err := repo.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		_, err = repo.Get(ctx, "reporter-session")
		assert.ErrorIs(t, err, authDomain.ErrSessionNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "reviewer-session"))
		assert.ErrorIs(t, repo.Delete(ctx, "reviewer-session"), authDomain.ErrSessionNotFound)
	})
}

func TestSQLSessionRepository_PostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	repo := NewSQLSessionRepository(db, database.Postgres)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE sessions SET csrf_secret = $1 WHERE id = $2 AND csrf_secret IS NULL`,
	)).
		WithArgs([]byte("secret"), "session-id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE expires_at <= $1`)).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	stored, err := repo.SetCSRFSecret(ctx, "session-id", []byte("secret"))
	require.NoError(t, err)
	assert.False(t, stored)

	deleted, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}
