package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kashvi-shop/pkg/app"
)

var (
	queueWorkersFlag int
	retryDelayFlag   time.Duration
)

// shop queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Run queue workers and scheduled tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := app.Boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		workers := queueWorkersFlag
		if workers < 1 {
			workers = 5
		}
		fmt.Printf("Queue worker started (%d workers). Press Ctrl+C to stop.\n", workers)
		if err := a.Work(ctx, workers); err != nil {
			return err
		}
		fmt.Println("Queue worker stopped.")
		return nil
	},
}

// shop schedule:list
var scheduleListCmd = &cobra.Command{
	Use:   "schedule:list",
	Short: "List the scheduled tasks queue:work runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := app.Boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.Scheduler()
		if err != nil {
			return err
		}
		for _, t := range s.List() {
			fmt.Println("  •", t)
		}
		return nil
	},
}

// shop queue:failed
var queueFailedCmd = &cobra.Command{
	Use:   "queue:failed",
	Short: "List jobs that exhausted their retries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := app.BootDB()
		if err != nil {
			return err
		}
		n, err := app.FromDB(db).WriteFailedJobs(cmd.Context(), os.Stdout)
		if err == nil && n == 0 {
			fmt.Println("No failed jobs.")
		}
		return err
	},
}

// shop queue:retry [id...]
var queueRetryCmd = &cobra.Command{
	Use:   "queue:retry [id...]",
	Short: "Push failed jobs back onto the Redis queue (all when no id is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]uint, 0, len(args))
		for _, arg := range args {
			id, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("bad job id %q", arg)
			}
			ids = append(ids, uint(id))
		}

		ctx, stop := signalContext()
		defer stop()
		a, err := app.Boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.RetryFailed(ctx, retryDelayFlag, ids...)
		fmt.Printf("Requeued %d job(s).\n", n)
		return err
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 5, "Number of concurrent workers")
	queueRetryCmd.Flags().DurationVar(&retryDelayFlag, "delay", 0, "Hold the jobs back this long before they run")
}
