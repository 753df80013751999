package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	goosedb "github.com/pressly/goose/v3/database"
)

//go:embed sqlite_migrations/*.sql
var sqliteMigrationsFS embed.FS

// RunSQLiteMigrations はSQLite用のマイグレーションをgooseで適用する。
// 適用済みのバージョンはスキップされる。
func RunSQLiteMigrations(ctx context.Context, db *sql.DB) error {
	migrationFS, err := fs.Sub(sqliteMigrationsFS, "sqlite_migrations")
	if err != nil {
		return fmt.Errorf("failed to create sub filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goosedb.DialectSQLite3, db, migrationFS)
	if err != nil {
		return fmt.Errorf("failed to create goose provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply sqlite migrations: %w", err)
	}

	return nil
}
