package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrQueueFull is returned by MemoryDriver.Push when the buffer is full.
var ErrQueueFull = errors.New("queue: memory driver full")

const defaultMemoryCapacity = 1000

// MemoryDriver keeps jobs in a buffered channel inside the process. Jobs do
// not survive a restart, delayed ones included.
type MemoryDriver struct {
	ch chan []byte

	mu      sync.Mutex
	timers  map[*time.Timer]struct{}
	stopped bool
}

type MemoryOption func(*MemoryDriver)

// WithCapacity sets how many ready jobs the buffer holds.
func WithCapacity(n int) MemoryOption {
	return func(d *MemoryDriver) { d.ch = make(chan []byte, max(n, 1)) }
}

func NewMemoryDriver(opts ...MemoryOption) *MemoryDriver {
	d := &MemoryDriver{timers: map[*time.Timer]struct{}{}}
	for _, opt := range opts {
		opt(d)
	}
	if d.ch == nil {
		d.ch = make(chan []byte, defaultMemoryCapacity)
	}
	return d
}

// Push never blocks the caller; a full buffer is an error.
func (d *MemoryDriver) Push(_ context.Context, payload []byte) error {
	select {
	case d.ch <- payload:
		return nil
	default:
		return ErrQueueFull
	}
}

// PushDelayed makes payload poppable after delay. A job that comes due while
// the buffer is full is lost, as a direct Push would have failed.
func (d *MemoryDriver) PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error {
	if delay <= 0 {
		return d.Push(ctx, payload)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return errors.New("queue: memory driver stopped")
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.timers, t)
		d.mu.Unlock()
		_ = d.Push(context.Background(), payload)
	})
	d.timers[t] = struct{}{}
	return nil
}

func (d *MemoryDriver) Pop(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case payload := <-d.ch:
		return payload, nil
	}
}

// Len reports how many jobs are ready.
func (d *MemoryDriver) Len() int { return len(d.ch) }

// Delayed reports how many jobs are still waiting for their delay.
func (d *MemoryDriver) Delayed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Stop cancels every delayed job and refuses new ones.
func (d *MemoryDriver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for t := range d.timers {
		t.Stop()
	}
	clear(d.timers)
}
