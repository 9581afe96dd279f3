package grpc_test

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"

	shopgrpc "github.com/shashiranjanraj/kashvi-shop/pkg/grpc"
)

func serve(t *testing.T, check shopgrpc.CheckFunc) (*shopgrpc.Server, grpc_health_v1.HealthClient) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := shopgrpc.NewServer(check, shopgrpc.WithProbeInterval(0))
	go srv.Serve(lis) //nolint:errcheck
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return srv, grpc_health_v1.NewHealthClient(conn)
}

func statusOf(t *testing.T, c grpc_health_v1.HealthClient) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := c.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthServing(t *testing.T) {
	_, client := serve(t, func(context.Context) error { return nil })
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, statusOf(t, client))
}

func TestHealthNotServingWhenCheckFails(t *testing.T) {
	_, client := serve(t, func(context.Context) error { return errors.New("db down") })
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, statusOf(t, client))
}

func TestProbeFlipsStatus(t *testing.T) {
	var down atomic.Bool
	srv, client := serve(t, func(context.Context) error {
		if down.Load() {
			return errors.New("db down")
		}
		return nil
	})
	require.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, statusOf(t, client))

	down.Store(true)
	srv.Probe(context.Background())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, statusOf(t, client))

	down.Store(false)
	srv.Probe(context.Background())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, statusOf(t, client))
}

func TestRequestIDMetadata(t *testing.T) {
	_, client := serve(t, nil)

	t.Run("upstream id is echoed", func(t *testing.T) {
		ctx := metadata.AppendToOutgoingContext(context.Background(), "x-request-id", "abc-123")
		var header metadata.MD
		_, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{}, grpc.Header(&header))
		require.NoError(t, err)
		assert.Equal(t, []string{"abc-123"}, header.Get("x-request-id"))
	})

	t.Run("missing id is generated", func(t *testing.T) {
		var header metadata.MD
		_, err := client.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{}, grpc.Header(&header))
		require.NoError(t, err)
		require.Len(t, header.Get("x-request-id"), 1)
		assert.Len(t, header.Get("x-request-id")[0], 32)
	})
}
