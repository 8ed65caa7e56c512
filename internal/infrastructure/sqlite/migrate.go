package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	sqlitedriver "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var fs embed.FS

// RunMigrations applies the embedded schema to the file at path. It uses its
// own handle because the migrate driver closes the *sql.DB it was given.
func RunMigrations(path string) error {
	src, err := iofs.New(fs, "migrations")
	if err != nil {
		return fmt.Errorf("migrate src: %w", err)
	}
	sqldb, err := sql.Open("sqlite", dsn(path, defaultBusyTimeout))
	if err != nil {
		return fmt.Errorf("open sql db: %w", err)
	}
	driver, err := sqlitedriver.WithInstance(sqldb, &sqlitedriver.Config{})
	if err != nil {
		_ = sqldb.Close()
		return fmt.Errorf("migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		_ = sqldb.Close()
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
