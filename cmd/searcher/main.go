// Command searcher loads the prebuilt field indices and document metadata
// and serves the search endpoints over HTTP.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
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
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/metadata"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/blobstore"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/resilience"
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
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"index_source", cfg.Index.Source,
		"metadata_source", cfg.Metadata.Source,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, metrics.Handler())
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()

	blobs, err := corpus.NewBlobStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open index store", "error", err)
		os.Exit(1)
	}
	opts := corpus.OptionsFromConfig(cfg.Index)
	opts.Recorder = m
	stats := index.CorpusStats{TotalDocs: cfg.Corpus.TotalDocs, AvgDocLength: cfg.Corpus.AvgDocLength}
	bundle, err := corpus.Load(ctx, blobs, stats, opts)
	if err != nil {
		slog.Error("failed to load index", "error", err)
		os.Exit(1)
	}
	defer bundle.Close()
	for _, field := range index.Fields {
		m.IndexedTerms.WithLabelValues(string(field)).Set(float64(bundle.Field(field).Terms()))
	}
	checker.Register("index", func(context.Context) health.ComponentHealth {
		if err := bundle.Ready(); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d fields loaded", len(index.Fields))}
	})

	var pg *postgres.Client
	if cfg.Metadata.Source == "postgres" {
		pg, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		checker.Register("postgres", health.PingCheck(pg.Ping, health.StatusDegraded))
	}
	meta, err := metadata.Load(ctx, metadataLoader(cfg, blobs, pg))
	if err != nil {
		slog.Error("failed to load document metadata", "error", err)
		os.Exit(1)
	}

	queryCache, redisClient := setupCache(ctx, cfg, m)
	if redisClient != nil {
		defer redisClient.Close()
		checker.Register("redis", health.PingCheck(redisClient.Ping, health.StatusDegraded))
	}

	var collector *analytics.Collector
	var statsHandler *analytics.Handler
	if cfg.Analytics.Enabled {
		var closeAnalytics func()
		collector, statsHandler, closeAnalytics = setupAnalytics(ctx, cfg, m, pg)
		defer closeAnalytics()
	}

	exec := executor.New(bundle, meta, executor.ParamsFromConfig(cfg.Search))
	var tracker handler.Tracker
	if collector != nil {
		tracker = collector
	}
	h := handler.New(exec, queryCache, tracker, m)

	mux := http.NewServeMux()
	h.Register(mux)
	routes := handler.Routes()
	if statsHandler != nil {
		mux.HandleFunc("GET /api/v1/analytics", statsHandler.Stats)
		routes = append(routes, "/api/v1/analytics")
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	routes = append(routes, "/health/live", "/health/ready")

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if rl := cfg.Server.RateLimit; rl.Requests > 0 {
		limiter := ratelimit.New(rl.Requests, rl.Window)
		go limiter.Run(ctx, 5*time.Minute)
		chain = middleware.RateLimit(limiter)(chain)
	}
	chain = middleware.Metrics(m, routes...)(chain)
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins...))(chain)
	}
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}

// metadataLoader picks the metadata source. JSONL files live next to the
// index in the object store, or on the local file system.
func metadataLoader(cfg *config.Config, blobs blobstore.Store, pg *postgres.Client) metadata.Loader {
	if cfg.Metadata.Source == "postgres" {
		return &metadata.PostgresLoader{Client: pg}
	}
	files := blobs
	if cfg.Index.Source == "local" {
		files = blobstore.NewLocalStore("")
	}
	return &metadata.FileLoader{
		Blobs:         files,
		TitlesPath:    cfg.Metadata.TitlesPath,
		PageRankPath:  cfg.Metadata.PageRankPath,
		PageViewsPath: cfg.Metadata.PageViewsPath,
	}
}

// setupCache connects to Redis. Any failure disables caching rather than
// aborting startup.
func setupCache(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*cache.QueryCache, *pkgredis.Client) {
	if !cfg.Redis.Enabled {
		slog.Info("search cache disabled by config")
		return nil, nil
	}
	client, err := pkgredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
		return nil, nil
	}
	queryCache, err := cache.New(client, cfg.Redis.CacheTTL, resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		OnStateChange: func(name string, _, to resilience.State) {
			m.SetBreakerState(name, int(to))
		},
	})
	if err != nil {
		slog.Warn("cache setup failed, search caching disabled", "error", err)
		client.Close()
		return nil, nil
	}
	slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	return queryCache, client
}

// setupAnalytics starts the event collector. With Kafka enabled, events go
// to the search-events topic and the stats route is served by cmd/analytics;
// otherwise they feed an in-process aggregator served here. The returned
// function flushes and stops the pipeline.
func setupAnalytics(ctx context.Context, cfg *config.Config, m *metrics.Metrics, pg *postgres.Client) (*analytics.Collector, *analytics.Handler, func()) {
	onDrop := func(n int) { m.AnalyticsDropped.Add(float64(n)) }

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		collector := analytics.NewCollector(analytics.NewKafkaPublisher(producer), cfg.Analytics, onDrop)
		collector.Start(ctx)
		slog.Info("analytics publishing to kafka", "topic", producer.Topic())
		return collector, nil, func() {
			collector.Close()
			if err := producer.Close(); err != nil {
				slog.Error("kafka producer close failed", "error", err)
			}
		}
	}

	agg := analytics.NewAggregator()
	collector := analytics.NewCollector(agg, cfg.Analytics, onDrop)
	collector.Start(ctx)
	if pg != nil && cfg.Analytics.SnapshotInterval > 0 {
		store := aggregator.NewStore(pg.DB)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Warn("analytics snapshots disabled", "error", err)
		} else {
			go store.Run(ctx, agg.Stats, cfg.Analytics.SnapshotInterval)
		}
	}
	slog.Info("analytics aggregating in process")
	return collector, analytics.NewHandler(agg, collector), collector.Close
}
