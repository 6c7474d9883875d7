package commands

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/anonymort/whistle/internal/database"
)

// RunMigrations applies every pending migration for the configured dialect and logs the
// resulting schema version.
func RunMigrations(db *sql.DB, dialect database.Dialect, logger *slog.Logger) error {
	logger.Info("running database migrations", slog.String("dialect", string(dialect)))

	if err := database.Migrate(db, dialect); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := database.MigrationVersion(db, dialect)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	logger.Info("migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}
