package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kashvi-shop/database/seeders"
	"github.com/shashiranjanraj/kashvi-shop/pkg/app"
	"github.com/shashiranjanraj/kashvi-shop/pkg/migration"
)

// shop migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := app.BootDB()
		if err != nil {
			return err
		}
		return migration.New(db, os.Stdout).Run(cmd.Context())
	},
}

// shop migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Roll back the last batch of migrations (--step for more)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := app.BootDB()
		if err != nil {
			return err
		}
		steps, _ := cmd.Flags().GetInt("step")
		return migration.New(db, os.Stdout).Rollback(cmd.Context(), steps)
	},
}

// shop migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := app.BootDB()
		if err != nil {
			return err
		}
		return migration.New(db, os.Stdout).PrintStatus(cmd.Context())
	},
}

// shop seed [name...]
var seedCmd = &cobra.Command{
	Use:       "seed [name...]",
	Short:     "Run database seeders (all when no name is given)",
	ValidArgs: seeders.Names(),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := app.BootDB()
		if err != nil {
			return err
		}
		return seeders.Run(db, args...)
	},
}

func init() {
	migrateRollbackCmd.Flags().Int("step", 1, "number of batches to roll back")
}
