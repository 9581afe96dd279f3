// Package sse streams Server-Sent Events. A Broker fans published events
// out to every connected stream:
//
//	feed := sse.NewBroker()
//	router.Get("/orders/stream", "orders.stream", feed.ServeHTTP)
//	feed.Publish("order.placed", payload)
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
)

// ErrUnsupported is returned when the response cannot be flushed.
var ErrUnsupported = errors.New("sse: streaming unsupported")

// Stream is an open SSE response to one client.
type Stream struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// New sets the event-stream headers and checks that w can flush. Write
// deadlines are cleared, since a stream outlives the server's WriteTimeout.
func New(w http.ResponseWriter) (*Stream, error) {
	if !flushable(w) {
		return nil, ErrUnsupported
	}
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	return &Stream{w: w, rc: rc}, rc.Flush()
}

// flushable follows Unwrap through middleware wrappers the same way
// http.ResponseController does.
func flushable(w http.ResponseWriter) bool {
	for {
		switch t := w.(type) {
		case http.Flusher:
			return true
		case interface{ Unwrap() http.ResponseWriter }:
			w = t.Unwrap()
		default:
			return false
		}
	}
}

// Send writes a named event with a JSON data line.
func (s *Stream) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return s.rc.Flush()
}

// Comment writes an SSE comment; clients ignore it, proxies see traffic.
func (s *Stream) Comment(msg string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", msg); err != nil {
		return err
	}
	return s.rc.Flush()
}

// Event is one published message.
type Event struct {
	Name string
	Data any
}

// Broker fans events out to subscribers. A subscriber that falls more than
// its buffer behind misses events rather than blocking Publish.
type Broker struct {
	mu        sync.Mutex
	subs      map[chan Event]struct{}
	buffer    int
	heartbeat time.Duration
}

func NewBroker() *Broker {
	return &Broker{subs: map[chan Event]struct{}{}, buffer: 16, heartbeat: 15 * time.Second}
}

// SetHeartbeat changes how often idle streams get a keep-alive comment.
func (b *Broker) SetHeartbeat(d time.Duration) { b.heartbeat = d }

// Subscribe returns a channel of future events and a function that
// unsubscribes and closes it.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers to every subscriber without blocking.
func (b *Broker) Publish(name string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- Event{Name: name, Data: data}:
		default:
			logger.Warn("sse: subscriber lagging, event dropped", "event", name)
		}
	}
}

// Subscribers is the number of open subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// ServeHTTP streams events until the client goes away.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stream, err := New(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	events, cancel := b.Subscribe()
	defer cancel()

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := stream.Comment("ping"); err != nil {
				return
			}
		case ev := <-events:
			if err := stream.Send(ev.Name, ev.Data); err != nil {
				return
			}
		}
	}
}
