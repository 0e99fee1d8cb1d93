package dbpkg

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/appdotbuilder/personal-finance-manager-1934/db/migration"
)

func newMigrator(db *sql.DB, dbName string) (*migrate.Migrate, error) {
	src, err := iofs.New(migration.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("cannot read migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{DatabaseName: dbName})
	if err != nil {
		return nil, fmt.Errorf("cannot create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dbName, driver)
	if err != nil {
		return nil, fmt.Errorf("cannot create migrator: %w", err)
	}

	return m, nil
}

// MigrateUp applies all pending migrations embedded into the binary.
func MigrateUp(db *sql.DB, dbName string) error {
	m, err := newMigrator(db, dbName)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		var dirtyErr migrate.ErrDirty
		if errors.As(err, &dirtyErr) {
			return fmt.Errorf("migration failed: dirty database version %d", dirtyErr.Version)
		}

		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(db *sql.DB, dbName string, steps int) error {
	m, err := newMigrator(db, dbName)
	if err != nil {
		return err
	}

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration rollback failed: %w", err)
	}

	return nil
}
