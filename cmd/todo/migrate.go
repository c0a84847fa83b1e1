package main

import (
	"errors"
	"os"

	"TodoApp/internal/app"

	"github.com/spf13/cobra"
)

var migrateDSN string

var migrateCmd = &cobra.Command{
	Use:   "migrate <up|down|status|version|redo|reset> [args...]",
	Short: "Run database migrations against Postgres",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDSN, "dsn", os.Getenv("PG_DSN"), "Postgres connection string (defaults to $PG_DSN)")
	setFlagAliases(migrateCmd.Flags(), map[string]string{"database-url": "dsn"})
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(_ *cobra.Command, args []string) error {
	if migrateDSN == "" {
		return errors.New("no DSN: pass --dsn or set PG_DSN")
	}
	return app.Migrate(migrateDSN, args[0], args[1:]...)
}
