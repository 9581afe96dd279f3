// Package schedule runs recurring maintenance tasks (the nightly order
// export, failed-job reports) inside the worker process.
//
//	s := schedule.New()
//	s.Every(time.Hour).Name("failed-jobs").Run(report)
//	s.Cron("0 3 * * *").Name("orders.export").WithoutOverlapping().Run(export)
//	s.Start(ctx)
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
)

// Task is a scheduled unit of work. A returned error is logged.
type Task func(ctx context.Context) error

type entry struct {
	id        string
	interval  time.Duration
	cron      []string
	task      Task
	noOverlap bool

	mu      sync.Mutex
	lastRun time.Time
	running bool
}

// Scheduler holds registered entries and dispatches them once per tick.
type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	wg      sync.WaitGroup
}

func New() *Scheduler { return &Scheduler{} }

// Builder configures one entry before Run registers it.
type Builder struct {
	s *Scheduler
	e *entry
}

// Every runs the task every d, starting on the first tick.
func (s *Scheduler) Every(d time.Duration) *Builder {
	return &Builder{s: s, e: &entry{interval: d}}
}

// Daily runs the task once every 24 hours.
func (s *Scheduler) Daily() *Builder { return s.Every(24 * time.Hour) }

// Cron runs the task in every minute matching a 5-field expression
// (minute hour day-of-month month day-of-week). Each field is *, n, */n, a-b
// or a comma list of those.
func (s *Scheduler) Cron(expr string) (*Builder, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("schedule: cron %q: want 5 fields, got %d", expr, len(fields))
	}
	for _, f := range fields {
		if _, err := matchField(f, 0); err != nil {
			return nil, fmt.Errorf("schedule: cron %q: %w", expr, err)
		}
	}
	return &Builder{s: s, e: &entry{cron: fields}}, nil
}

func (b *Builder) Name(id string) *Builder {
	b.e.id = id
	return b
}

// WithoutOverlapping skips a run while the previous one is still executing.
func (b *Builder) WithoutOverlapping() *Builder {
	b.e.noOverlap = true
	return b
}

// Run registers the task.
func (b *Builder) Run(task Task) {
	b.e.task = task
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.e.id == "" {
		b.e.id = "task-" + strconv.Itoa(len(b.s.entries)+1)
	}
	b.s.entries = append(b.s.entries, b.e)
}

// Start ticks every second until ctx is cancelled, then waits for running
// tasks to return.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	logger.Info("schedule: started", "tasks", len(s.List()))

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			logger.Info("schedule: stopped")
			return
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick dispatches every entry due at now.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	current := make([]*entry, len(s.entries))
	copy(current, s.entries)
	s.mu.Unlock()

	for _, e := range current {
		s.dispatch(ctx, e, now)
	}
}

func (s *Scheduler) dispatch(ctx context.Context, e *entry, now time.Time) {
	e.mu.Lock()
	if !e.due(now) {
		e.mu.Unlock()
		return
	}
	if e.noOverlap && e.running {
		e.mu.Unlock()
		logger.Warn("schedule: skipping overlapping run", "task", e.id)
		return
	}
	e.running = true
	e.lastRun = now
	e.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("schedule: task panicked", "task", e.id, "panic", r)
			}
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
		}()

		start := time.Now()
		if err := e.task(ctx); err != nil {
			logger.Error("schedule: task failed", "task", e.id, "error", err)
			return
		}
		logger.Info("schedule: task done", "task", e.id, "took", time.Since(start))
	}()
}

// due is called with e.mu held. A cron entry fires at most once per minute.
func (e *entry) due(now time.Time) bool {
	if e.cron == nil {
		return e.lastRun.IsZero() || now.Sub(e.lastRun) >= e.interval
	}
	if !e.lastRun.IsZero() && e.lastRun.Truncate(time.Minute).Equal(now.Truncate(time.Minute)) {
		return false
	}
	return matchCron(e.cron, now)
}

func matchCron(fields []string, t time.Time) bool {
	vals := [5]int{t.Minute(), t.Hour(), t.Day(), int(t.Month()), int(t.Weekday())}
	for i, f := range fields {
		if ok, _ := matchField(f, vals[i]); !ok {
			return false
		}
	}
	return true
}

func matchField(field string, val int) (bool, error) {
	for _, part := range strings.Split(field, ",") {
		ok, err := matchPart(part, val)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func matchPart(part string, val int) (bool, error) {
	switch {
	case part == "*":
		return true, nil
	case strings.HasPrefix(part, "*/"):
		step, err := strconv.Atoi(part[2:])
		if err != nil || step <= 0 {
			return false, fmt.Errorf("bad step %q", part)
		}
		return val%step == 0, nil
	case strings.Contains(part, "-"):
		lo, hi, _ := strings.Cut(part, "-")
		a, err1 := strconv.Atoi(lo)
		b, err2 := strconv.Atoi(hi)
		if err1 != nil || err2 != nil || a > b {
			return false, fmt.Errorf("bad range %q", part)
		}
		return val >= a && val <= b, nil
	default:
		n, err := strconv.Atoi(part)
		if err != nil {
			return false, fmt.Errorf("bad value %q", part)
		}
		return n == val, nil
	}
}

// List describes the registered entries for the CLI.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		freq := strings.Join(e.cron, " ")
		if e.cron == nil {
			freq = "every " + e.interval.String()
		}
		out = append(out, fmt.Sprintf("%s  [%s]", e.id, freq))
	}
	return out
}
