package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GatewayService is the name reported by the gRPC health service.
const GatewayService = "collab.gateway"

// Admin is the operator listener: Prometheus metrics and health over HTTP,
// plus the standard gRPC health service for orchestrators that speak it.
type Admin struct {
	log      *slog.Logger
	draining func() bool
	health   *health.Server
	grpc     *grpc.Server
	http     *http.Server
}

func NewAdmin(log *slog.Logger, gatherer prometheus.Gatherer, draining func() bool) *Admin {
	a := &Admin{
		log:      log,
		draining: draining,
		health:   health.NewServer(),
		grpc:     grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(log))),
	}
	healthpb.RegisterHealthServer(a.grpc, a.health)
	a.health.SetServingStatus(GatewayService, healthpb.HealthCheckResponse_SERVING)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", a.healthz)
	a.http = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return a
}

func (a *Admin) healthz(w http.ResponseWriter, _ *http.Request) {
	status, code := "serving", http.StatusOK
	if a.draining() {
		status, code = "draining", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// Drain flips every health answer to not serving.
func (a *Admin) Drain() {
	a.health.Shutdown()
}

// Serve runs both listeners until ctx is done.
func (a *Admin) Serve(ctx context.Context, httpListener, grpcListener net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("Starting admin HTTP server", "address", httpListener.Addr().String())
		if err := a.http.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.log.Info("Starting admin gRPC server", "address", grpcListener.Addr().String())
		if err := a.grpc.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("admin gRPC server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.Drain()
		a.grpc.GracefulStop()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return a.http.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
