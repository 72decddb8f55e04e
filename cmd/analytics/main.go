// Command analytics runs the search analytics aggregator as its own service.
//
// It consumes search events from Kafka, aggregates them in memory (latency
// percentiles, cache hit rate, zero-result and top queries per endpoint),
// optionally snapshots the totals to PostgreSQL, and serves them at
// GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port, "topic", cfg.Kafka.Topics.SearchEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, metrics.Handler())
		defer shutdownMetrics(context.Background())
	}

	agg := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, analytics.HandleEvent(agg))
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("kafka", func(context.Context) health.ComponentHealth {
		s := consumer.Stats()
		if s.Errors > 0 && s.Messages == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: fmt.Sprintf("%d fetch errors", s.Errors)}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("lag %d", s.Lag)}
	})

	if cfg.Analytics.SnapshotInterval > 0 {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		checker.Register("postgres", health.PingCheck(pg.Ping, health.StatusDegraded))

		store := aggregator.NewStore(pg.DB)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare snapshot table", "error", err)
			os.Exit(1)
		}
		go store.Run(ctx, agg.Stats, cfg.Analytics.SnapshotInterval)
		slog.Info("analytics snapshots enabled", "interval", cfg.Analytics.SnapshotInterval)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg, nil).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m, "/api/v1/analytics", "/health/live", "/health/ready")(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           chain,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
