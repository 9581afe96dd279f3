package app

import (
	"context"

	"github.com/shashiranjanraj/kashvi-shop/config"
	"github.com/shashiranjanraj/kashvi-shop/internal/server"
)

// Serve runs the HTTP and gRPC servers until ctx is cancelled. The
// websocket hub runs alongside them. The memory queue only lives in this
// process, so its workers run here too; a redis queue is left to queue:work.
func (a *App) Serve(ctx context.Context) error {
	go a.Hub.Run(ctx)
	if a.RedisQueue == nil {
		go a.Queue.Work(ctx, 2)
	}
	return server.Run(ctx, server.Options{
		HTTPAddr: ":" + config.AppPort(),
		GRPCPort: config.GRPCPort(),
		Handler:  a.Handler(),
		Check:    a.Ping,
	})
}
