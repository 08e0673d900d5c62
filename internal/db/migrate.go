package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres:// driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // file:// source
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration directions
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Migrate applies schema migrations. An empty dir uses the migrations embedded in the
// binary; otherwise dir is a migrate source URL such as file://internal/db/migrations.
// steps > 0 limits how many migrations are applied in the given direction.
// Running up against a current schema is not an error.
func Migrate(databaseURL, dir, direction string, steps int) error {
	if databaseURL == "" {
		return fmt.Errorf("database URL is required")
	}
	if direction != DirectionUp && direction != DirectionDown {
		return fmt.Errorf("unknown direction: %s", direction)
	}
	if steps < 0 {
		return fmt.Errorf("steps must be non-negative")
	}

	m, err := newMigrator(databaseURL, dir)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	switch {
	case direction == DirectionUp && steps > 0:
		err = m.Steps(steps)
	case direction == DirectionUp:
		err = m.Up()
	case steps > 0:
		err = m.Steps(-steps)
	default:
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate %s: %w", direction, err)
	}
	return nil
}

// MigrationVersion reports the current schema version and whether it is dirty.
func MigrationVersion(databaseURL, dir string) (uint, bool, error) {
	m, err := newMigrator(databaseURL, dir)
	if err != nil {
		return 0, false, err
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, dirty, nil
}

func newMigrator(databaseURL, dir string) (*migrate.Migrate, error) {
	if dir != "" {
		m, err := migrate.New(dir, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open migrations %s: %w", dir, err)
		}
		return m, nil
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}
	return m, nil
}
