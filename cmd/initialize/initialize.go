package initialize

import (
	"fmt"

	"github.com/salim-benhamadi/FLOW/internal/conf"
	"github.com/salim-benhamadi/FLOW/internal/datastore"
	"github.com/spf13/cobra"
)

// Command creates the init command, which prepares the database without
// starting the service.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the FLOW database",
		Long:  "Create the configured database, apply all migrations and seed the bootstrap model version and default settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initializeDatabase(settings)
		},
	}
}

// initializeDatabase opens the configured store, which applies migrations
// and seeds defaults, then closes it again.
func initializeDatabase(settings *conf.Settings) error {
	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no database backend enabled in configuration")
	}

	if err := store.Open(); err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	if err := store.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}

	switch {
	case settings.Output.SQLite.Enabled:
		fmt.Println("Initialized SQLite database at:", settings.Output.SQLite.Path)
	case settings.Output.MySQL.Enabled:
		fmt.Printf("Initialized MySQL database %s on %s\n",
			settings.Output.MySQL.Database, settings.Output.MySQL.Host)
	}

	return nil
}
