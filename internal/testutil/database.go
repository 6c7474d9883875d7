// Package testutil provides helpers for repository tests.
//
// SQLite tests run everywhere against a private in-memory database. PostgreSQL and MySQL
// tests run only when TEST_POSTGRES_DSN or TEST_MYSQL_DSN point at a reachable server:
//
//	db := testutil.SetupSQLiteDB(t)
//	db := testutil.SetupPostgresDB(t) // skipped without TEST_POSTGRES_DSN
package testutil

import (
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anonymort/whistle/internal/database"
)

// SetupSQLiteDB opens a fresh in-memory SQLite database with all migrations applied.
// The database is closed when the test finishes.
func SetupSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Connect(database.Config{
		Driver:             string(database.SQLite),
		ConnectionString:   ":memory:",
		MaxOpenConnections: 1,
		MaxIdleConnections: 1,
	})
	require.NoError(t, err, "failed to open sqlite database")

	require.NoError(t, database.Migrate(db, database.SQLite), "failed to migrate sqlite database")

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// SetupPostgresDB connects to TEST_POSTGRES_DSN and applies migrations, or skips the test.
func SetupPostgresDB(t *testing.T) *sql.DB {
	t.Helper()
	return setupServerDB(t, database.Postgres, "TEST_POSTGRES_DSN")
}

// SetupMySQLDB connects to TEST_MYSQL_DSN and applies migrations, or skips the test.
// The DSN must enable parseTime and multiStatements.
func SetupMySQLDB(t *testing.T) *sql.DB {
	t.Helper()
	return setupServerDB(t, database.MySQL, "TEST_MYSQL_DSN")
}

func setupServerDB(t *testing.T, dialect database.Dialect, envVar string) *sql.DB {
	t.Helper()

	dsn := os.Getenv(envVar)
	if dsn == "" {
		t.Skipf("%s not set", envVar)
	}

	db, err := database.Connect(database.Config{
		Driver:             string(dialect),
		ConnectionString:   dsn,
		MaxOpenConnections: 5,
		MaxIdleConnections: 5,
		ConnMaxLifetime:    time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, dialect))

	t.Cleanup(func() {
		for _, table := range []string{"audit_logs", "sessions", "accounts", "submissions", "key_pairs"} {
			_, _ = db.Exec("DELETE FROM " + table)
		}
		_ = db.Close()
	})
	return db
}
