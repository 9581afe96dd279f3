// Package grpc runs the shop's internal gRPC endpoint.
//
// It serves grpc.health.v1.Health from grpc's own health server. A probe
// (the same database ping behind GET /healthz) runs once at construction and
// then every probe interval, flipping the overall status between SERVING and
// NOT_SERVING, so Watch streams real transitions.
//
//	srv, err := grpc.Start(config.GRPCPort(), app.Ping)
//	// ...run until signal...
//	srv.Stop()
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
	"github.com/shashiranjanraj/kashvi-shop/pkg/metrics"
	"github.com/shashiranjanraj/kashvi-shop/pkg/reqid"
)

var (
	handled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop",
		Subsystem: "grpc",
		Name:      "handled_total",
		Help:      "gRPC calls completed, by method and status code.",
	}, []string{"grpc_method", "grpc_code"})

	latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shop",
		Subsystem: "grpc",
		Name:      "handling_seconds",
		Help:      "gRPC call latency in seconds.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"grpc_method"})
)

func init() {
	metrics.MustRegister(handled, latency)
}

// metadataKey carries the caller's request id, as X-Request-ID does over HTTP.
const metadataKey = "x-request-id"

// CheckFunc reports whether the process can serve; nil means healthy.
type CheckFunc func(ctx context.Context) error

type Option func(*Server)

// WithProbeInterval sets how often the health probe reruns. Zero disables
// the periodic probe.
func WithProbeInterval(d time.Duration) Option {
	return func(s *Server) { s.interval = d }
}

// Server is a *grpc.Server plus the health state it reports.
type Server struct {
	*grpc.Server
	health   *health.Server
	check    CheckFunc
	interval time.Duration

	stopOnce sync.Once
	done     chan struct{}
}

// NewServer builds the server, registers health and reflection and runs the
// first probe. Call Stop to end the periodic probe.
func NewServer(check CheckFunc, opts ...Option) *Server {
	s := &Server{
		health:   health.NewServer(),
		check:    check,
		interval: 10 * time.Second,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Server = grpc.NewServer(
		grpc.ChainUnaryInterceptor(requestID, recoverUnary, observeUnary),
		grpc.ChainStreamInterceptor(recoverStream),
		grpc.MaxRecvMsgSize(4<<20),
		grpc.MaxSendMsgSize(4<<20),
	)
	grpc_health_v1.RegisterHealthServer(s.Server, s.health)
	reflection.Register(s.Server)

	s.Probe(context.Background())
	if s.interval > 0 {
		go s.probeLoop()
	}
	return s
}

// Probe runs the check once and publishes the result.
func (s *Server) Probe(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	st := grpc_health_v1.HealthCheckResponse_SERVING
	if s.check != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.check(ctx); err != nil {
			logger.Warn("grpc: health probe failed", "error", err)
			st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", st)
	return st
}

func (s *Server) probeLoop() {
	tick := time.NewTicker(s.interval)
	defer tick.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-tick.C:
			s.Probe(context.Background())
		}
	}
}

// Start listens on port and serves in the background.
func Start(port string, check CheckFunc, opts ...Option) (*Server, error) {
	addr := ":" + port
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpc: listen on %s: %w", addr, err)
	}

	s := NewServer(check, opts...)
	logger.Info("gRPC server starting", "addr", addr)
	go func() {
		if err := s.Serve(lis); err != nil {
			logger.Error("grpc: serve", "error", err)
		}
	}()
	return s, nil
}

// Stop reports NOT_SERVING to watchers, then waits for in-flight RPCs.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.health.Shutdown()
		logger.Info("gRPC server shutting down")
		s.GracefulStop()
	})
}

// requestID tags the call context the way reqid.Middleware tags HTTP
// requests, so service code logs through logger.WithCtx either way.
func requestID(ctx context.Context, req any, _ *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	var upstream string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(metadataKey); len(v) > 0 {
			upstream = v[0]
		}
	}
	id := reqid.Resolve(upstream)
	_ = grpc.SetHeader(ctx, metadata.Pairs(metadataKey, id))

	ctx = reqid.WithValue(ctx, id)
	ctx = logger.InjectLogger(ctx, logger.L.With("request_id", id))
	return next(ctx, req)
}

func panicked(ctx context.Context, method string, r any) error {
	logger.WithCtx(ctx).Error("grpc: panic recovered",
		"method", method, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
	return status.Error(codes.Internal, "internal server error")
}

func recoverUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicked(ctx, info.FullMethod, r)
		}
	}()
	return next(ctx, req)
}

func recoverStream(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, next grpc.StreamHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicked(ss.Context(), info.FullMethod, r)
		}
	}()
	return next(srv, ss)
}

func observeUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := next(ctx, req)
	took := time.Since(start)
	code := status.Code(err)

	handled.WithLabelValues(info.FullMethod, code.String()).Inc()
	latency.WithLabelValues(info.FullMethod).Observe(took.Seconds())
	logger.WithCtx(ctx).Debug("grpc: call",
		"method", info.FullMethod, "code", code.String(), "duration_ms", took.Milliseconds())
	return resp, err
}
