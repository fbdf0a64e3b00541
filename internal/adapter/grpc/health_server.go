package grpc

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/aq2208/storefront-api/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// HealthServer serves grpc.health.v1 and keeps each named dependency, plus the
// overall "" service, in sync with periodic checks.
type HealthServer struct {
	srv      *grpc.Server
	health   *health.Server
	checks   map[string]Check
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger

	stopOnce sync.Once
}

func NewHealthServer(checks map[string]Check, interval time.Duration) *HealthServer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	hs := &HealthServer{
		srv:      grpc.NewServer(),
		health:   health.NewServer(),
		checks:   checks,
		interval: interval,
		timeout:  time.Second,
		log:      logging.New("grpc-health"),
	}
	healthpb.RegisterHealthServer(hs.srv, hs.health)
	reflection.Register(hs.srv)

	hs.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	for name := range checks {
		hs.health.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return hs
}

// RunChecks runs every check once and publishes the result.
func (hs *HealthServer) RunChecks(ctx context.Context) bool {
	all := true
	for name, check := range hs.checks {
		cctx, cancel := context.WithTimeout(ctx, hs.timeout)
		err := check(cctx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			all = false
			status = healthpb.HealthCheckResponse_NOT_SERVING
			hs.log.Warn("dependency unhealthy", "dependency", name, "error", err)
		}
		hs.health.SetServingStatus(name, status)
	}

	overall := healthpb.HealthCheckResponse_SERVING
	if !all {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.health.SetServingStatus("", overall)
	return all
}

// Serve runs the checks on a ticker and blocks serving lis until Stop or ctx is done.
func (hs *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	hs.RunChecks(ctx)
	go func() {
		t := time.NewTicker(hs.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				hs.Stop()
				return
			case <-t.C:
				hs.RunChecks(ctx)
			}
		}
	}()

	hs.log.Info("grpc health listening", "addr", lis.Addr().String())
	return hs.srv.Serve(lis)
}

// Stop marks everything NOT_SERVING and drains in-flight RPCs.
func (hs *HealthServer) Stop() {
	hs.stopOnce.Do(func() {
		hs.health.Shutdown()
		hs.srv.GracefulStop()
	})
}
