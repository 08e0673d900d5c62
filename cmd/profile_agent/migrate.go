package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/linkedin-optimizer/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply run history database migrations",
	Long: `Applies the schema for the optional PostgreSQL run history. Migrations are built into the
binary; --dir file://path runs them from disk instead.`,
	RunE: runMigrate,
}

var (
	migrateDirection string
	migrateSteps     int
	migrateDir       string
)

func init() {
	migrateCmd.Flags().StringVar(&migrateDirection, "direction", db.DirectionUp, "Migration direction: up or down")
	migrateCmd.Flags().IntVar(&migrateSteps, "steps", 0, "Number of migrations to apply (0 means all)")
	migrateCmd.Flags().StringVar(&migrateDir, "dir", "", "Migration source URL, e.g. file://internal/db/migrations")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}

	if err := db.Migrate(cfg.DatabaseURL, migrateDir, migrateDirection, migrateSteps); err != nil {
		return err
	}

	version, dirty, err := db.MigrationVersion(cfg.DatabaseURL, migrateDir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "✅ Migrated %s, schema version %d\n", migrateDirection, version)
	if dirty {
		_, _ = fmt.Fprintln(out, "⚠️ Schema is marked dirty; fix the failed migration and force the version.")
	}
	return nil
}
