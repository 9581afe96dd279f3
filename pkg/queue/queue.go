// Package queue runs background jobs outside the request path.
//
// Jobs are JSON-encoded into an envelope and pushed to a Driver (in-memory
// for development and tests, Redis in production). Workers pop envelopes,
// rebuild the job from the registered factory and run it with retries; a job
// that exhausts its retries is recorded in the failed-jobs table.
//
//	queue.Register(jobs.SendOrderConfirmation{}.JobName(), func() queue.Job {
//	    return &jobs.SendOrderConfirmation{}
//	})
//	queue.Dispatch(ctx, jobs.SendOrderConfirmation{OrderID: id})
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
	"github.com/shashiranjanraj/kashvi-shop/pkg/metrics"
)

// Job is the interface every queued job must satisfy.
type Job interface {
	// Handle executes the job. Return a non-nil error to signal failure.
	Handle(ctx context.Context) error
}

// Named jobs choose their own registry name; others are keyed by %T.
type Named interface {
	JobName() string
}

// Driver is the queue storage backend. Pop returns (nil, nil) when it timed
// out without a job.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	Pop(ctx context.Context) ([]byte, error)
}

// ErrUnregistered is recorded for envelopes whose type has no factory.
var ErrUnregistered = errors.New("queue: unregistered job type")

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Manager is the central queue hub.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	failed   FailedStore
	maxRetry int
	backoff  time.Duration
}

// NewManager creates a Manager on driver with 3 attempts and a 1s linear
// backoff.
func NewManager(d Driver) *Manager {
	return &Manager{
		driver:   d,
		registry: map[string]func() Job{},
		maxRetry: 3,
		backoff:  time.Second,
	}
}

// SetDriver swaps the underlying queue driver (e.g. Redis).
func (m *Manager) SetDriver(d Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driver = d
}

// SetRetry sets the attempt count and the per-attempt backoff step.
func (m *Manager) SetRetry(attempts int, backoff time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if attempts < 1 {
		attempts = 1
	}
	m.maxRetry = attempts
	m.backoff = backoff
}

// UseFailedStore records exhausted jobs in s.
func (m *Manager) UseFailedStore(s FailedStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = s
}

// Register makes a job type available for decoding by name.
func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

// Dispatch pushes job onto the queue.
func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	name := jobName(job)

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job %s: %w", name, err)
	}
	env, err := json.Marshal(envelope{Type: name, Payload: payload})
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}

	if err := m.push(ctx, env, 0); err != nil {
		return fmt.Errorf("queue: push %s: %w", name, err)
	}
	return nil
}

// Delayer is implemented by drivers that can hold a job back.
type Delayer interface {
	PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error
}

func (m *Manager) push(ctx context.Context, env []byte, delay time.Duration) error {
	m.mu.RLock()
	d := m.driver
	m.mu.RUnlock()

	if delay > 0 {
		dd, ok := d.(Delayer)
		if !ok {
			return fmt.Errorf("queue: %T cannot delay jobs", d)
		}
		return dd.PushDelayed(ctx, env, delay)
	}
	return d.Push(ctx, env)
}

// RetryFailed pushes failed jobs back onto the queue after delay and removes
// them from the store. With no ids every failed job is retried. It stops at
// the first push error; jobs already pushed stay removed.
func (m *Manager) RetryFailed(ctx context.Context, store *DBFailedStore, delay time.Duration, ids ...uint) (int, error) {
	rows, err := store.Find(ctx, ids...)
	if err != nil {
		return 0, fmt.Errorf("queue: load failed jobs: %w", err)
	}
	retried := 0
	for _, row := range rows {
		env, err := json.Marshal(envelope{Type: row.JobType, Payload: json.RawMessage(row.Payload)})
		if err != nil {
			return retried, fmt.Errorf("queue: failed job %d: %w", row.ID, err)
		}
		if err := m.push(ctx, env, delay); err != nil {
			return retried, fmt.Errorf("queue: retry failed job %d: %w", row.ID, err)
		}
		if err := store.Forget(ctx, row.ID); err != nil {
			return retried, fmt.Errorf("queue: forget failed job %d: %w", row.ID, err)
		}
		logger.Info("queue: failed job requeued", "id", row.ID, "type", row.JobType, "delay", delay)
		retried++
	}
	return retried, nil
}

// Work launches n workers and blocks until ctx is cancelled and every worker
// has returned.
func (m *Manager) Work(ctx context.Context, n int) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.work(ctx)
		}()
	}
	logger.Info("queue: workers started", "count", n)
	wg.Wait()
	logger.Info("queue: workers stopped")
}

func (m *Manager) work(ctx context.Context) {
	for ctx.Err() == nil {
		m.mu.RLock()
		d := m.driver
		m.mu.RUnlock()

		raw, err := d.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		if raw == nil {
			continue
		}
		m.Process(ctx, raw)
	}
}

// Process decodes one envelope and runs it with retries. Exported for the
// queue:work command's --once mode and for tests.
func (m *Manager) Process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()
	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		m.recordFailed(ctx, env, ErrUnregistered, 0)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		m.recordFailed(ctx, env, err, 0)
		return
	}

	m.runWithRetry(ctx, job, env)
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, env envelope) {
	m.mu.RLock()
	attempts, backoff := m.maxRetry, m.backoff
	m.mu.RUnlock()

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = job.Handle(ctx); lastErr == nil {
			metrics.RecordQueueJob(env.Type, "success", start)
			logger.Info("queue: job processed", "type", env.Type, "attempt", attempt)
			return
		}
		logger.Warn("queue: job failed", "type", env.Type, "attempt", attempt, "error", lastErr)
		if attempt < attempts && !sleep(ctx, time.Duration(attempt)*backoff) {
			break
		}
	}

	metrics.RecordQueueJob(env.Type, "failed", start)
	logger.Error("queue: job exhausted retries", "type", env.Type, "error", lastErr)
	m.recordFailed(ctx, env, lastErr, attempts)
}

func (m *Manager) recordFailed(ctx context.Context, env envelope, cause error, attempts int) {
	m.mu.RLock()
	store := m.failed
	m.mu.RUnlock()
	if store == nil {
		return
	}
	err := store.Record(context.WithoutCancel(ctx), FailedJob{
		JobType:  env.Type,
		Payload:  string(env.Payload),
		Error:    cause.Error(),
		Attempts: attempts,
	})
	if err != nil {
		logger.Error("queue: persist failed job", "type", env.Type, "error", err)
	}
}

func jobName(job Job) string {
	if n, ok := job.(Named); ok {
		return n.JobName()
	}
	return fmt.Sprintf("%T", job)
}

// sleep waits for d or until ctx is done; it reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// ─── Default manager ─────────────────────────────────────────────────────────

var defaultManager = NewManager(NewMemoryDriver())

// Default returns the process-wide manager.
func Default() *Manager { return defaultManager }

// Register registers a job factory on the default manager.
func Register(name string, factory func() Job) { defaultManager.Register(name, factory) }

// Dispatch pushes job onto the default manager.
func Dispatch(ctx context.Context, job Job) error { return defaultManager.Dispatch(ctx, job) }
