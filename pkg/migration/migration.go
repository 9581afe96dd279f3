// Package migration applies the schema migrations registered by
// database/migrations and records them in shop_migrations, grouped in
// batches so `shop migrate:rollback` can undo the last run.
//
//	func init() {
//		migration.Register("20260101000000_create_shop_schema", &CreateShopSchema{})
//	}
package migration

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
)

type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

type record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null;index"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (record) TableName() string { return "shop_migrations" }

type entry struct {
	name string
	m    Migration
}

var (
	mu       sync.Mutex
	registry []entry
)

// Register adds a migration. Names start with a UTC timestamp and are applied
// in name order regardless of registration order.
func Register(name string, m Migration) {
	mu.Lock()
	defer mu.Unlock()
	if slices.ContainsFunc(registry, func(e entry) bool { return e.name == name }) {
		panic("migration: duplicate migration " + name)
	}
	registry = append(registry, entry{name: name, m: m})
}

func registered() []entry {
	mu.Lock()
	defer mu.Unlock()
	out := slices.Clone(registry)
	slices.SortFunc(out, func(a, b entry) int { return strings.Compare(a.name, b.name) })
	return out
}

// Runner applies migrations against one database. Progress lines go to out.
type Runner struct {
	db      *gorm.DB
	out     io.Writer
	entries []entry
}

// New builds a Runner over every registered migration. out may be nil.
func New(db *gorm.DB, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{db: db, out: out, entries: registered()}
}

type Status struct {
	Name  string
	Ran   bool
	Batch int
	RunAt time.Time
}

func (r *Runner) ensureTable(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&record{}); err != nil {
		return fmt.Errorf("migration: create shop_migrations: %w", err)
	}
	return nil
}

func (r *Runner) applied(ctx context.Context) (map[string]record, error) {
	var rows []record
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]record, len(rows))
	for _, row := range rows {
		out[row.Name] = row
	}
	return out, nil
}

// Run applies every pending migration as one new batch. Each migration and
// its bookkeeping row commit together, so a failure leaves earlier ones
// applied and the failed one pending.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.ensureTable(ctx); err != nil {
		return err
	}
	done, err := r.applied(ctx)
	if err != nil {
		return err
	}

	var pending []entry
	batch := 1
	for _, rec := range done {
		batch = max(batch, rec.Batch+1)
	}
	for _, e := range r.entries {
		if _, ok := done[e.name]; !ok {
			pending = append(pending, e)
		}
	}
	if len(pending) == 0 {
		fmt.Fprintln(r.out, "Nothing to migrate.")
		return nil
	}

	for _, e := range pending {
		start := time.Now()
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := e.m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&record{Name: e.name, Batch: batch}).Error
		})
		if err != nil {
			return fmt.Errorf("migration: %s: %w", e.name, err)
		}
		fmt.Fprintf(r.out, "  migrated  %s (%s)\n", e.name, time.Since(start).Round(time.Millisecond))
	}
	logger.Info("migration: batch applied", "batch", batch, "count", len(pending))
	return nil
}

// Rollback reverts the last steps batches, newest migration first.
func (r *Runner) Rollback(ctx context.Context, steps int) error {
	if err := r.ensureTable(ctx); err != nil {
		return err
	}
	steps = max(steps, 1)

	var batches []int
	if err := r.db.WithContext(ctx).Model(&record{}).Distinct("batch").
		Order("batch desc").Limit(steps).Pluck("batch", &batches).Error; err != nil {
		return err
	}
	if len(batches) == 0 {
		fmt.Fprintln(r.out, "Nothing to roll back.")
		return nil
	}

	var rows []record
	if err := r.db.WithContext(ctx).Where("batch IN ?", batches).
		Order("batch desc, id desc").Find(&rows).Error; err != nil {
		return err
	}

	for _, row := range rows {
		i := slices.IndexFunc(r.entries, func(e entry) bool { return e.name == row.Name })
		if i < 0 {
			return fmt.Errorf("migration: %s was applied but is not registered", row.Name)
		}
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := r.entries[i].m.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&record{}, row.ID).Error
		})
		if err != nil {
			return fmt.Errorf("migration: roll back %s: %w", row.Name, err)
		}
		fmt.Fprintf(r.out, "  rolled back  %s\n", row.Name)
	}
	logger.Info("migration: rolled back", "batches", batches, "count", len(rows))
	return nil
}

// Status lists every registered migration in apply order.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(r.entries))
	for _, e := range r.entries {
		rec, ok := done[e.name]
		out = append(out, Status{Name: e.name, Ran: ok, Batch: rec.Batch, RunAt: rec.RunAt})
	}
	return out, nil
}

// PrintStatus writes Status as a table.
func (r *Runner) PrintStatus(ctx context.Context) error {
	rows, err := r.Status(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MIGRATION\tSTATUS\tBATCH")
	for _, s := range rows {
		if s.Ran {
			fmt.Fprintf(tw, "%s\tran\t%d\n", s.Name, s.Batch)
		} else {
			fmt.Fprintf(tw, "%s\tpending\t-\n", s.Name)
		}
	}
	return tw.Flush()
}
