package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kashvi-shop/pkg/app"
)

var (
	exportSinceFlag string
	exportDiskFlag  string
	adminPassword   string
)

// parseSince accepts a date, an RFC 3339 timestamp or a duration back from
// now ("72h").
func parseSince(raw string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(raw); err == nil {
		return now.Add(-d), nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("--since %q: want YYYY-MM-DD, RFC 3339 or a duration", raw)
}

// shop orders:export
var ordersExportCmd = &cobra.Command{
	Use:   "orders:export",
	Short: "Write orders to an xlsx workbook on a storage disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := parseSince(exportSinceFlag, time.Now())
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()
		a, err := app.Boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.ExportOrders(ctx, since, exportDiskFlag)
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d orders to %s\n", res.Orders, res.URL)
		return nil
	},
}

// shop user:admin
var userAdminCmd = &cobra.Command{
	Use:   "user:admin <email>",
	Short: "Promote a user to admin, creating the account when --password is given",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := app.BootDB()
		if err != nil {
			return err
		}
		a := app.FromDB(db)

		u, err := a.MakeAdmin(cmd.Context(), args[0], adminPassword)
		if err != nil {
			return err
		}
		fmt.Printf("%s (id %d) is now an admin\n", u.Email, u.ID)
		return nil
	},
}

func init() {
	ordersExportCmd.Flags().StringVar(&exportSinceFlag, "since", "24h", "Export orders created since this date or duration")
	ordersExportCmd.Flags().StringVar(&exportDiskFlag, "disk", "", "Storage disk (default STORAGE_DISK)")
	userAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Password for a new account")
}
