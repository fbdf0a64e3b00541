package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func init() {
	logging.SetBase(logging.Discard())
}

func statusOf(t *testing.T, hs *HealthServer, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := hs.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthServer_RunChecks(t *testing.T) {
	redisErr := errors.New("connection refused")
	var redisDown bool
	hs := NewHealthServer(map[string]Check{
		"mysql": func(ctx context.Context) error { return nil },
		"redis": func(ctx context.Context) error {
			if redisDown {
				return redisErr
			}
			return nil
		},
	}, time.Minute)

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, statusOf(t, hs, ""))

	assert.True(t, hs.RunChecks(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, statusOf(t, hs, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, statusOf(t, hs, "redis"))

	redisDown = true
	assert.False(t, hs.RunChecks(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, statusOf(t, hs, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, statusOf(t, hs, "redis"))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, statusOf(t, hs, "mysql"))
}

func TestHealthServer_ServeOverConn(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	hs := NewHealthServer(map[string]Check{
		"mysql": func(ctx context.Context) error { return nil },
	}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hs.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	require.Eventually(t, func() bool {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
