// Command shop runs the shop API and its maintenance tasks.
//
//	shop serve                 HTTP + gRPC servers
//	shop migrate               apply pending migrations
//	shop seed                  load demo categories, products and an admin
//	shop queue:work -w 4       run queue workers and the scheduler
//	shop queue:failed          list failed jobs
//	shop queue:retry 3 7 --delay 1m
//	shop orders:export --since 2026-01-01
//	shop user:admin ops@example.com --password …
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/shashiranjanraj/kashvi-shop/database/migrations"
	_ "github.com/shashiranjanraj/kashvi-shop/database/seeders"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "shop",
	Short:         "Shop API server and maintenance commands",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(seedCmd)

	rootCmd.AddCommand(queueWorkCmd)
	rootCmd.AddCommand(queueFailedCmd)
	rootCmd.AddCommand(queueRetryCmd)
	rootCmd.AddCommand(scheduleListCmd)
	rootCmd.AddCommand(ordersExportCmd)
	rootCmd.AddCommand(userAdminCmd)
}
