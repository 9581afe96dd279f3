// Package workerpool runs event listeners on a fixed set of goroutines.
//
// Submit never blocks: when every worker is busy and the queue is full it
// returns ErrPoolFull and the caller decides what to drop.
//
//	pool := workerpool.New(8, workerpool.WithName("events"))
//	defer pool.Shutdown()
//
//	if err := pool.Submit(task); errors.Is(err, workerpool.ErrPoolFull) {
//		logger.Warn("listener dropped", "event", name)
//	}
package workerpool

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
	"github.com/shashiranjanraj/kashvi-shop/pkg/metrics"
)

var (
	ErrPoolFull   = errors.New("workerpool: pool is full")
	ErrPoolClosed = errors.New("workerpool: pool is closed")
)

type Option func(*Pool)

// WithQueue sets how many tasks may wait for a worker. The default is twice
// the worker count.
func WithQueue(n int) Option {
	return func(p *Pool) { p.queueSize = max(n, 0) }
}

// WithName labels the pool's metrics and log lines.
func WithName(name string) Option {
	return func(p *Pool) { p.name = name }
}

// Stats is a point-in-time view of a pool.
type Stats struct {
	Workers  int
	Queued   int
	Running  int64
	Rejected int64
	Panics   int64
}

type Pool struct {
	name      string
	workers   int
	queueSize int
	tasks     chan func()
	wg        sync.WaitGroup

	// closed is read under RLock by senders so none races close(tasks)
	mu     sync.RWMutex
	closed bool

	running  atomic.Int64
	rejected atomic.Int64
	panics   atomic.Int64

	queued   prometheus.Gauge
	refusals prometheus.Counter
}

// New starts size workers; size below 1 is treated as 1.
func New(size int, opts ...Option) *Pool {
	size = max(size, 1)
	p := &Pool{name: "default", workers: size, queueSize: size * 2}
	for _, opt := range opts {
		opt(p)
	}
	p.tasks = make(chan func(), p.queueSize)
	p.queued = metrics.PoolQueued.WithLabelValues(p.name)
	p.refusals = metrics.PoolRejected.WithLabelValues(p.name)

	p.wg.Add(size)
	for range size {
		go p.work()
	}
	return p
}

// Submit queues task or fails fast with ErrPoolFull or ErrPoolClosed.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		p.queued.Set(float64(len(p.tasks)))
		return nil
	default:
		p.rejected.Add(1)
		p.refusals.Inc()
		return ErrPoolFull
	}
}

// SubmitWait blocks until the task is queued. Shutdown waits for it.
func (p *Pool) SubmitWait(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	p.queued.Set(float64(len(p.tasks)))
	return nil
}

func (p *Pool) Stats() Stats {
	return Stats{
		Workers:  p.workers,
		Queued:   len(p.tasks),
		Running:  p.running.Load(),
		Rejected: p.rejected.Load(),
		Panics:   p.panics.Load(),
	}
}

// Shutdown refuses new tasks, runs everything already queued and returns
// once the workers exit. Later calls only wait.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) work() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.queued.Set(float64(len(p.tasks)))
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	p.running.Add(1)
	defer func() {
		p.running.Add(-1)
		if r := recover(); r != nil {
			p.panics.Add(1)
			logger.Error("workerpool: task panicked",
				"pool", p.name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	task()
}
