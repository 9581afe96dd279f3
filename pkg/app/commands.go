package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/app/routes"
	"github.com/shashiranjanraj/kashvi-shop/app/services"
	"github.com/shashiranjanraj/kashvi-shop/config"
	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
	"github.com/shashiranjanraj/kashvi-shop/pkg/queue"
	"github.com/shashiranjanraj/kashvi-shop/pkg/schedule"
)

// WriteRoutes prints every named route.
func WriteRoutes(w io.Writer) error {
	infos := NewRouter(routes.Deps{}, nil).Routes()

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tPATH\tNAME")
	fmt.Fprintln(tw, "------\t----\t----")
	for _, ri := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
	}
	return tw.Flush()
}

// Work runs n queue workers and the scheduler until ctx is cancelled.
func (a *App) Work(ctx context.Context, n int) error {
	s, err := a.Scheduler()
	if err != nil {
		return err
	}
	if a.RedisQueue != nil {
		go a.RedisQueue.RunPromoter(ctx, time.Second)
	}
	stopped := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(stopped)
	}()

	a.Queue.Work(ctx, n)
	<-stopped
	return nil
}

// Scheduler registers the recurring tasks: the daily order export (when
// ORDER_EXPORT_CRON is set) and an hourly failed-job report.
func (a *App) Scheduler() (*schedule.Scheduler, error) {
	s := schedule.New()

	if expr := config.ExportCron(); expr != "" {
		b, err := s.Cron(expr)
		if err != nil {
			return nil, err
		}
		b.Name("orders.export").WithoutOverlapping().Run(func(ctx context.Context) error {
			_, err := a.ExportOrders(ctx, time.Now().Add(-24*time.Hour), "")
			return err
		})
	}

	since := time.Now()
	s.Every(time.Hour).Name("queue.failed_report").Run(func(ctx context.Context) error {
		n, err := a.failedSince(ctx, since)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Warn("queue: jobs failed since start", "count", n)
		}
		return nil
	})
	return s, nil
}

func (a *App) failedSince(ctx context.Context, since time.Time) (int64, error) {
	return a.Query.WithContext(ctx).Table("shop_failed_jobs").Where("failed_at >= ?", since).Count()
}

// ExportOrders writes every order created since to disk ("" = default).
func (a *App) ExportOrders(ctx context.Context, since time.Time, disk string) (services.ExportResult, error) {
	exp, err := a.Exporter(disk)
	if err != nil {
		return services.ExportResult{}, err
	}
	return exp.Export(ctx, since)
}

// MakeAdmin promotes the account with email, creating it with password
// when it does not exist yet.
func (a *App) MakeAdmin(ctx context.Context, email, password string) (models.User, error) {
	u, err := services.NewUserService(a.Query).Promote(ctx, email)
	var nf *services.NotFoundError
	if !errors.As(err, &nf) {
		return u, err
	}
	if password == "" {
		return models.User{}, fmt.Errorf("user %s does not exist; pass --password to create it", email)
	}
	return services.NewAuthService(a.Query).Register(ctx, services.RegisterInput{
		Email:    email,
		Password: password,
		Role:     models.RoleAdmin,
	})
}

// WriteFailedJobs prints the failed-job table, oldest first.
func (a *App) WriteFailedJobs(ctx context.Context, w io.Writer) (int, error) {
	rows, err := queue.NewDBFailedStore(a.DB).Find(ctx)
	if err != nil {
		return 0, err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tJOB\tATTEMPTS\tFAILED AT\tERROR")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", r.ID, r.JobType, r.Attempts, r.FailedAt.Format(time.DateTime), firstLine(r.Error))
	}
	return len(rows), tw.Flush()
}

// RetryFailed requeues failed jobs on the Redis queue. The memory queue
// belongs to the serve process, so a separate command cannot reach it.
func (a *App) RetryFailed(ctx context.Context, delay time.Duration, ids ...uint) (int, error) {
	if a.RedisQueue == nil {
		return 0, errors.New("queue:retry needs QUEUE_DRIVER=redis and a reachable redis")
	}
	return a.Queue.RetryFailed(ctx, queue.NewDBFailedStore(a.DB), delay, ids...)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	if len(line) > 80 {
		return line[:77] + "..."
	}
	return line
}
