// Package reqid tags every request with an ID that the logger, the error
// envelope and the X-Request-ID response header all share, so a customer
// report of a failed checkout can be matched to its log lines.
//
//	log := logger.WithCtx(r.Context()) // adds request_id=...
package reqid

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type ctxKey struct{}

const Header = "X-Request-ID"

const maxUpstreamLen = 64

// New returns a random ID: a v4 UUID without dashes.
func New() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func WithValue(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromCtx returns the request ID, or "" outside a request.
func FromCtx(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Middleware reuses an upstream X-Request-ID when it is short and made of
// safe characters, and generates one otherwise.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := Resolve(r.Header.Get(Header))
			w.Header().Set(Header, id)
			next.ServeHTTP(w, r.WithContext(WithValue(r.Context(), id)))
		})
	}
}

// Resolve returns upstream when it is a usable id and a fresh one otherwise.
// The gRPC server applies it to x-request-id metadata.
func Resolve(upstream string) string {
	if id := strings.TrimSpace(upstream); acceptable(id) {
		return id
	}
	return New()
}

func acceptable(id string) bool {
	if id == "" || len(id) > maxUpstreamLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}
