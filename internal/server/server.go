// Package server owns the listen/serve/shutdown lifecycle of the HTTP and
// gRPC servers.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/pkg/grpc"
	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Options configures Run. An empty GRPCPort skips the gRPC server.
type Options struct {
	HTTPAddr        string
	GRPCPort        string
	Handler         http.Handler
	Check           grpc.CheckFunc
	ShutdownTimeout time.Duration
}

// Run serves until ctx is cancelled or a server fails, then drains
// in-flight requests for at most ShutdownTimeout.
func Run(ctx context.Context, o Options) error {
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 15 * time.Second
	}

	srv := &http.Server{
		Addr:              o.HTTPAddr,
		Handler:           o.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// gRPC first: a taken port fails Run before HTTP is listening.
	var gs *grpc.Server
	if o.GRPCPort != "" {
		var err error
		if gs, err = grpc.Start(o.GRPCPort, o.Check); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", o.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})

	if gs != nil {
		g.Go(func() error {
			<-gctx.Done()
			gs.Stop()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("HTTP server shutting down")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
