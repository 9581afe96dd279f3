// Package event provides a synchronous/async event dispatcher.
//
// Services fire domain events after their transaction commits; listeners
// registered at boot (cache invalidation, mail jobs, websocket pushes) react
// to them. Async listeners run on a bounded worker pool.
package event

import (
	"context"
	"errors"
	"sync"

	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
	"github.com/shashiranjanraj/kashvi-shop/pkg/workerpool"
)

// Handler receives an event payload. A returned error is logged; it never
// reaches the code that fired the event.
type Handler func(ctx context.Context, payload any) error

// Dispatcher routes named events to their listeners.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	pool     *workerpool.Pool
}

// New creates a Dispatcher. pool may be nil, in which case FireAsync runs
// listeners inline.
func New(pool *workerpool.Pool) *Dispatcher {
	return &Dispatcher{handlers: map[string][]Handler{}, pool: pool}
}

// Listen registers a handler for the given event name.
func (d *Dispatcher) Listen(event string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[event] = append(d.handlers[event], h)
}

// Fire dispatches an event synchronously and returns the joined listener
// errors.
func (d *Dispatcher) Fire(ctx context.Context, event string, payload any) error {
	var errs []error
	for _, h := range d.listeners(event) {
		if err := h(ctx, payload); err != nil {
			logger.WithCtx(ctx).Error("event: listener failed", "event", event, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FireAsync hands every listener to the worker pool and returns immediately.
// The request context is detached so listeners outlive the request. A
// listener the pool cannot accept is logged and dropped.
func (d *Dispatcher) FireAsync(ctx context.Context, event string, payload any) {
	bg := context.WithoutCancel(ctx)
	log := logger.WithCtx(ctx)

	for _, h := range d.listeners(event) {
		run := func() {
			if err := h(bg, payload); err != nil {
				log.Error("event: listener failed", "event", event, "error", err)
			}
		}
		if d.pool == nil {
			run()
			continue
		}
		if err := d.pool.Submit(run); err != nil {
			log.Warn("event: listener dropped", "event", event, "error", err)
		}
	}
}

// Flush removes all listeners (useful in tests).
func (d *Dispatcher) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = map[string][]Handler{}
}

func (d *Dispatcher) listeners(event string) []Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	hs := make([]Handler, len(d.handlers[event]))
	copy(hs, d.handlers[event])
	return hs
}

// Default is the process-wide dispatcher used by the package-level helpers.
// The server swaps in a pool-backed one at boot via SetDefault.
var (
	defaultMu sync.RWMutex
	def       = New(nil)
)

// SetDefault replaces the process-wide dispatcher.
func SetDefault(d *Dispatcher) {
	defaultMu.Lock()
	def = d
	defaultMu.Unlock()
}

// Default returns the process-wide dispatcher.
func Default() *Dispatcher {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return def
}

// Listen registers h on the default dispatcher.
func Listen(event string, h Handler) { Default().Listen(event, h) }

// Fire dispatches synchronously on the default dispatcher.
func Fire(ctx context.Context, event string, payload any) error {
	return Default().Fire(ctx, event, payload)
}

// FireAsync dispatches asynchronously on the default dispatcher.
func FireAsync(ctx context.Context, event string, payload any) {
	Default().FireAsync(ctx, event, payload)
}
