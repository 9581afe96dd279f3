// Package logger is the shop's log/slog setup.
//
// Output defaults by APP_ENV (JSON at info in production, text at warn under
// test, text at debug otherwise); LOG_LEVEL and LOG_FORMAT override either
// half. Request-scoped code logs through WithCtx, which returns the logger the
// HTTP or gRPC layer tagged with request_id (and user_id once authenticated):
//
//	logger.WithCtx(ctx).Info("checkout: order placed", "order_id", o.ID, "total", o.TotalPrice)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/shashiranjanraj/kashvi-shop/config"
)

// L is the process logger. Tests may swap it and restore it in Cleanup.
var L *slog.Logger

func init() {
	L = slog.New(baseHandler())
	slog.SetDefault(L)
}

// Output describes the stdout handler.
type Output struct {
	JSON  bool
	Level slog.Level
}

// OutputFor resolves the stdout handler for env, with explicit level and
// format taking precedence when non-empty.
func OutputFor(env, level, format string) Output {
	var o Output
	switch env {
	case "production", "prod":
		o = Output{JSON: true, Level: slog.LevelInfo}
	case "testing", "test":
		o = Output{Level: slog.LevelWarn}
	default:
		o = Output{Level: slog.LevelDebug}
	}
	if level != "" {
		o.Level = ParseLevel(level)
	}
	switch format {
	case "json":
		o.JSON = true
	case "text":
		o.JSON = false
	}
	return o
}

func (o Output) handler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: o.Level}
	if o.JSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func baseHandler() slog.Handler {
	return OutputFor(config.AppEnv(), config.LogLevel(), config.LogFormat()).handler(os.Stdout)
}

// AttachMongo adds the MongoDB sink next to stdout. Close the returned
// handler on shutdown so buffered records are flushed.
func AttachMongo(uri string, o MongoOptions) (*MongoHandler, error) {
	mh, err := NewMongoHandler(uri, o)
	if err != nil {
		return nil, err
	}
	L = slog.New(fanout{baseHandler(), mh})
	slog.SetDefault(L)
	return mh, nil
}

type ctxKey struct{}

// WithCtx returns the logger InjectLogger stored in ctx, or L.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
