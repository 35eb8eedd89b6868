package pdoflow

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/tern/v2/migrate"
)

//go:embed pg/migrations/*.sql
var migrations embed.FS

// MigrateDatabase brings the schema up to date using Tern. It is
// idempotent: the schema_version table tracks which migrations have run.
func MigrateDatabase(ctx context.Context, conn *pgx.Conn) error {
	migrator, err := migrate.NewMigrator(ctx, conn, "schema_version")
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	filesystem, err := fs.Sub(migrations, "pg/migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	if err := migrator.LoadMigrations(filesystem); err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
