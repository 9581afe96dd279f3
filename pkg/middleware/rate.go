// Package middleware holds the HTTP middleware stack mounted by pkg/app.
package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/pkg/response"
)

type window struct {
	count   int
	resetAt time.Time
}

// limiter is a fixed-window counter per client IP. Every RateLimit call owns
// one, so /api/auth and the global limit count separately.
type limiter struct {
	max    int
	period time.Duration

	mu        sync.Mutex
	clients   map[string]*window
	nextSweep time.Time
}

// take counts one request and reports whether it fits, how many remain and
// when the window resets.
func (l *limiter) take(ip string, now time.Time) (bool, int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.nextSweep) {
		for key, w := range l.clients {
			if now.After(w.resetAt) {
				delete(l.clients, key)
			}
		}
		l.nextSweep = now.Add(l.period)
	}

	w, ok := l.clients[ip]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(l.period)}
		l.clients[ip] = w
	}
	w.count++
	return w.count <= l.max, max(l.max-w.count, 0), w.resetAt
}

// RateLimit allows each client IP n requests per period and answers the
// rest with 429 and Retry-After.
//
//	r.Use(middleware.RateLimit(200, time.Minute))
func RateLimit(n int, period time.Duration) func(http.Handler) http.Handler {
	l := &limiter{max: n, period: period, clients: map[string]*window{}}
	limit := strconv.Itoa(n)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			ok, remaining, reset := l.take(clientIP(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				wait := int(math.Ceil(reset.Sub(now).Seconds()))
				h.Set("Retry-After", strconv.Itoa(max(wait, 1)))
				response.Error(w, http.StatusTooManyRequests, "Too Many Requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the first X-Forwarded-For hop, else the peer address without
// its port.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
