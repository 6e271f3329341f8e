// Command admin-gate serves the admin sign-in gate over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	adminGate "github.com/MrEthical07/adminGate"
	"github.com/MrEthical07/adminGate/audit/amqpsink"
	"github.com/MrEthical07/adminGate/backend"
	"github.com/MrEthical07/adminGate/httpapi"
	"github.com/MrEthical07/adminGate/internal/config"
	otelexport "github.com/MrEthical07/adminGate/metrics/export/otel"
	promexport "github.com/MrEthical07/adminGate/metrics/export/prometheus"
	"github.com/MrEthical07/adminGate/store"
	"github.com/MrEthical07/adminGate/store/memstore"
	"github.com/MrEthical07/adminGate/store/pgstore"
	"github.com/MrEthical07/adminGate/store/redisstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := config.MustNewLogger(cfg)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting admin gate",
		zap.Int("port", cfg.Port),
		zap.String("store", cfg.StoreBackend),
		zap.String("backend", cfg.BackendURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]httpapi.Pinger{}

	kv, closeStore, err := openStore(ctx, cfg, logger, checks)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer closeStore()

	var opts []backend.Option
	if cfg.BackendAPIKey != "" {
		opts = append(opts, backend.WithHeader("X-API-Key", cfg.BackendAPIKey))
	}
	opts = append(opts, backend.WithHTTPClient(&http.Client{Timeout: cfg.BackendTimeout}))
	verifier := backend.New(cfg.BackendURL, opts...)

	gateCfg := cfg.GateConfig()
	for _, w := range gateCfg.Lint().BySeverity(adminGate.LintWarn) {
		logger.Warn("config lint", zap.String("code", w.Code), zap.Stringer("severity", w.Severity), zap.String("detail", w.Message))
	}

	builder := adminGate.New().
		WithConfig(gateCfg).
		WithStore(kv).
		WithVerifier(verifier).
		WithLogger(logger).
		WithStateListener(func(st adminGate.State) {
			logger.Debug("gate state", zap.String("phase", string(st.Phase)))
		})

	if cfg.RabbitMQURL != "" {
		sink, err := amqpsink.Dial(cfg.RabbitMQURL, amqpsink.Config{
			Exchange: cfg.AuditExchange,
			Queue:    cfg.AuditQueue,
		}, logger.Named("audit"))
		if err != nil {
			logger.Fatal("failed to create rabbitmq sink", zap.Error(err))
		}
		defer func() { _ = sink.Close() }()
		checks["rabbitmq"] = sink.Ping
		builder = builder.WithAuditSink(sink)
	}

	gate, err := builder.Build()
	if err != nil {
		logger.Fatal("failed to build gate", zap.Error(err))
	}
	defer gate.Close()

	if err := gate.Restore(ctx); err != nil {
		logger.Warn("restore failed; starting idle", zap.Error(err))
	}

	if cfg.OTelEnabled {
		exp, err := otelexport.NewExporter(otel.Meter("github.com/MrEthical07/adminGate"), gate)
		if err != nil {
			logger.Fatal("failed to register otel instruments", zap.Error(err))
		}
		defer func() { _ = exp.Close() }()
	}

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = promexport.NewExporter(gate).Handler()
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Handler: httpapi.NewHandler(gate, logger.Named("http")),
		Metrics: metricsHandler,
		Health:  httpapi.NewHealthHandler(checks),
		Log:     logger.Named("http"),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.BackendTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, checks map[string]httpapi.Pinger) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		s, client, err := redisstore.NewFromURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		checks["redis"] = s.Ping
		return s, func() { _ = client.Close() }, nil

	case config.StoreMiniredis:
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, err
		}
		logger.Warn("using in-process miniredis; lockouts do not survive restarts", zap.String("addr", mr.Addr()))
		s, client, err := redisstore.NewFromURL("redis://" + mr.Addr())
		if err != nil {
			mr.Close()
			return nil, nil, err
		}
		checks["redis"] = s.Ping
		return s, func() {
			_ = client.Close()
			mr.Close()
		}, nil

	case config.StorePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		s := pgstore.New(pool, "")
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		checks["postgres"] = pool.Ping
		go sweep(ctx, s, logger)
		return s, pool.Close, nil

	default:
		logger.Warn("using in-memory store; lockouts do not survive restarts")
		return memstore.New(), func() {}, nil
	}
}

// sweep removes expired rows so the table does not grow without bound.
func sweep(ctx context.Context, s *pgstore.Store, logger *zap.Logger) {
	t := time.NewTicker(10 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				logger.Warn("store sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("store sweep", zap.Int64("removed", n))
			}
		}
	}
}
