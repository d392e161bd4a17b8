package main

import (
	"collab-gateway/auth"
	"collab-gateway/contract"
	"collab-gateway/fabric"
	"collab-gateway/gateway"
	"collab-gateway/internal"
	"collab-gateway/moderation"
	"collab-gateway/observability"
	"collab-gateway/presence"
	"collab-gateway/ratelimit"
	"collab-gateway/repositories"
	"collab-gateway/runtime"
	"collab-gateway/runtime/workers"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/benbjohnson/clock"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Gateway terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component, serves until a signal arrives and drains.
// Deferred closes run before the exit code reaches main.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	backend, _ := config.Backend()
	charReplacement, _ := internal.CharacterRune(config.CharReplacement)
	proxies, _ := config.Proxies()

	logger := logs.GetLoggerFromString(config.LogLevel)
	clk := clock.New()
	ctx := context.Background()

	// 2. Session store (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	if logger.Enabled(ctx, slog.LevelDebug) {
		internal.StartDebugServer(logger, db, config.DebugPort, "/inspect", recordMapper, nil)
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))
	}

	// 3. Coordination store (Redis). Unset means a single process.
	var client redis.UniversalClient
	redisUp := false
	if config.RedisAddr != "" {
		c := redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})
		defer func() {
			logger.Info("Closing Redis client...")
			_ = c.Close()
		}()
		client = c

		pingCtx, cancel := context.WithTimeout(ctx, config.HandshakeTimeout)
		err = c.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("Coordination store unreachable at boot, running as a single process; restart to rejoin the cluster",
				"address", config.RedisAddr, "error", err)
		}
		redisUp = err == nil
	}
	// Fabric and presence only use a store that answered at boot
	var coordination redis.UniversalClient
	if redisUp {
		coordination = client
	}

	// 4. Components
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(promRegistry)

	store := repositories.NewStore(db, logger, &config.HistoryLimit)
	users := repositories.NewUserRepository(db)
	quotaRepository := repositories.NewQuotaRepository(db)

	var quotaBackend contract.QuotaBackend = quotaRepository
	switch {
	case backend == internal.QuotaBackendRedis && client == nil:
		return exitConfig, fmt.Errorf("config error: QUOTA_BACKEND=redis requires REDIS_ADDR")
	case backend == internal.QuotaBackendRedis, backend == internal.QuotaBackendAuto && redisUp:
		quotaBackend = ratelimit.NewSlidingWindow(client)
	}
	logger.Info("Quota ledger ready", "backend", fmt.Sprintf("%T", quotaBackend), "limits", len(config.Limits()))

	var fab interface {
		contract.Fabric
		workers.Queue
	}
	if coordination != nil {
		fab = fabric.NewRedisFabric(logger, coordination, metrics, clk, config.FabricBufferSize)
	} else {
		fab = fabric.NewLocalFabric(logger, metrics, clk, config.FabricBufferSize)
	}

	tracker := presence.NewTracker(logger, coordination, presence.DefaultTTL, metrics)
	registry := runtime.NewRegistry(logger, store, tracker)
	fab.Subscribe(gateway.NewDelivery(logger, registry).Handle)

	tokens := auth.NewTokenIssuer([]byte(config.JWTSecret), config.JWTIssuer, clk)
	authenticator := auth.NewAuthenticator(logger, tokens, users, config.PrincipalCacheSize, config.PrincipalCacheTTL)
	ledger := ratelimit.NewLedger(logger, quotaBackend, clk, config.QuotaTimeout, metrics, config.Limits()...)
	moderator, err := moderation.NewModerator(config.Dictionary(), charReplacement, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("moderation dictionary: %w", err)
	}

	router := gateway.NewRouter(logger, registry, store, ledger, fab, moderator, clk, metrics, config.MaxContentLength)
	server := gateway.NewServer(logger, authenticator, router, registry, metrics, clk, gateway.Options{
		HandshakeTimeout:   config.HandshakeTimeout,
		IdleTimeout:        config.IdleTimeout,
		PingInterval:       config.PingInterval,
		WriteTimeout:       config.WriteTimeout,
		BufferSize:         config.ConnectionBufferSize,
		MaxMalformedEvents: config.MaxMalformedEvents,
	})
	clientAddress := ratelimit.ClientAddress(proxies)
	history := gateway.NewHistoryHandler(logger, authenticator, store, ledger, clientAddress)
	admin := internal.NewAdmin(logger, promRegistry, server.Draining)

	// 5. Background workers. They outlive the signal so departures of
	// draining connections still reach the other processes.
	sup := workers.NewSupervisor(logger, config.RestartInterval, metrics)
	sup.Add(
		fab,
		workers.NewProcessSamplerWorker(logger, metrics, config.MetricInterval),
		workers.NewQueueCapacityWorker(logger, metrics, config.MetricInterval, workers.NamedQueue{Name: "fabric", Queue: fab}),
		workers.NewQuotaSweeperWorker(logger, quotaRepository, clk, config.QuotaSweepInterval),
	)
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		sup.Run(workerCtx)
	}()

	// 6. Listeners
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	adminListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", config.Host, config.AdminPort))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on admin port %d: %w", config.AdminPort, err)
	}
	grpcListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", config.Host, config.AdminGRPCPort))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on admin gRPC port %d: %w", config.AdminGRPCPort, err)
	}

	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	public := &http.Server{
		Handler:           gateway.NewMux(server, history, ledger, clientAddress),
		ReadHeaderTimeout: config.HandshakeTimeout,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting gateway", "address", address, "at", time.Now().UTC())
		if err := public.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return admin.Serve(gctx, adminListener, grpcListener)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")
		admin.Drain()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		err := multierr.Combine(
			server.Shutdown(shutdownCtx),
			public.Shutdown(shutdownCtx),
		)
		stopWorkers()
		<-supervisorDone
		return err
	})

	if err = g.Wait(); err != nil {
		return exitRuntime, err
	}
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}

func recordMapper(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)
	row.Type, row.Detail = repositories.Describe(key, val)
	return row
}
