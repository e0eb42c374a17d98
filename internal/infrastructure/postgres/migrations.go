package postgres

import (
	"embed"

	pgutil "github.com/bibbank/fraudledger/pkg/postgres"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrationsDir is the directory of migrationFS holding the schema files.
const MigrationsDir = "migrations"

// Migrate brings the schema at dsn up to date.
func Migrate(dsn string) error {
	return pgutil.RunMigrations(dsn, migrationFS, MigrationsDir)
}

// Rollback drops every table Migrate created.
func Rollback(dsn string) error {
	return pgutil.RunMigrationsDown(dsn, migrationFS, MigrationsDir)
}

// nullableLimit maps a non-positive limit to SQL NULL, which LIMIT treats
// as no limit.
func nullableLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
