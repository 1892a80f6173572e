// internal/cmd/migrate.go
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/your-org/storefront-api/internal/infrastructure/database/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}

		db, err := postgres.NewConnection(cfg, log)
		if err != nil {
			return err
		}
		defer postgres.Close(db)

		return migrate(db, cfg, log, false)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Apply the schema and load the demo users, products and cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}

		db, err := postgres.NewConnection(cfg, log)
		if err != nil {
			return err
		}
		defer postgres.Close(db)

		m := newMigration(db, cfg, log)
		if err := applySchema(m); err != nil {
			return err
		}
		return m.SeedInitialData()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}
