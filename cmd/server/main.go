package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ardiwinata/nobar/internal/analytics"
	"github.com/ardiwinata/nobar/internal/api"
	"github.com/ardiwinata/nobar/internal/cache"
	"github.com/ardiwinata/nobar/internal/catalog"
	"github.com/ardiwinata/nobar/internal/chat"
	"github.com/ardiwinata/nobar/internal/clickhouse"
	"github.com/ardiwinata/nobar/internal/config"
	"github.com/ardiwinata/nobar/internal/genai"
	"github.com/ardiwinata/nobar/internal/kafka"
	"github.com/ardiwinata/nobar/internal/observability"
	"github.com/ardiwinata/nobar/internal/orchestrator"
	"github.com/ardiwinata/nobar/internal/player"
	"github.com/ardiwinata/nobar/internal/schedule"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting gateway",
		zap.String("service", cfg.Observability.ServiceName),
	)

	tracerShutdown, err := observability.InitTracer(cfg.Observability.ServiceName, cfg.Observability.TracingEndpoint)
	if err != nil {
		logger.Warn("tracing initialization failed, continuing without tracing", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Backing services.
	redisCache, err := cache.NewRedisCache(cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("initializing redis: %w", err)
	}
	defer redisCache.Close()
	logger.Info("redis cache initialized")

	store, err := chat.NewStore(ctx, cfg.Postgres, cfg.Chat, logger)
	if err != nil {
		return fmt.Errorf("initializing postgres: %w", err)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring chat schema: %w", err)
	}
	logger.Info("chat store initialized")

	var chClient *clickhouse.Client
	chClient, err = clickhouse.NewClient(cfg.ClickHouse, logger)
	if err != nil {
		logger.Warn("clickhouse initialization failed, analytics will be unavailable", zap.Error(err))
		chClient = nil
	} else {
		defer chClient.Close()
		if err := chClient.EnsureTables(ctx); err != nil {
			logger.Warn("clickhouse table creation failed", zap.Error(err))
		}
		logger.Info("clickhouse client initialized")
	}

	// Upstream providers.
	catalogClient, err := catalog.NewClient(cfg.Catalog, cfg.Search, logger)
	if err != nil {
		return fmt.Errorf("initializing catalog client: %w", err)
	}
	scheduleClient, err := schedule.NewClient(cfg.Schedule, cfg.Search, logger)
	if err != nil {
		return fmt.Errorf("initializing schedule client: %w", err)
	}

	genaiClient, err := genai.NewClient(cfg.GenAI, cfg.Search, logger)
	if err != nil {
		return fmt.Errorf("initializing genai client: %w", err)
	}

	// Analytics pipeline: producer feeds the activity topic, the consumer
	// drains it through the batching processor into ClickHouse.
	producer := kafka.NewProducer(cfg.Kafka, logger)
	defer producer.Close()

	var consumer *kafka.Consumer
	if chClient != nil {
		processor := analytics.NewProcessor(chClient, redisCache, cfg.Kafka.BatchSize, cfg.Kafka.BatchTimeout, logger)
		defer processor.Stop()

		consumer = kafka.NewConsumer(cfg.Kafka, processor.HandleEvent, logger)
		if err := consumer.Start(ctx); err != nil {
			logger.Warn("kafka consumer start failed, analytics pipeline will be unavailable", zap.Error(err))
			consumer = nil
		} else {
			defer consumer.Stop()
			logger.Info("kafka consumer started")
		}
	}

	var analyticsWriter observability.AnalyticsWriter
	if chClient != nil {
		analyticsWriter = chClient
	}
	slowQueryDetector := observability.NewSlowQueryDetector(
		cfg.Search.SlowQuery.WarningThreshold,
		cfg.Search.SlowQuery.CriticalThreshold,
		logger,
		analyticsWriter,
	)

	// AI search orchestrator.
	movieResolver := orchestrator.NewMovieResolver(genaiClient, catalogClient, cfg.Search.MaxMovieResults, logger)
	sportsResolver := orchestrator.NewSportsResolver(genaiClient, scheduleClient, orchestrator.DefaultSportsVocab(), cfg.Search.MaxMatchResults, logger)

	orch := orchestrator.New(
		nil, movieResolver, sportsResolver,
		redisCache, producer, slowQueryDetector, cfg.Search, logger,
	)

	// Live chat: broadcast hub bridged across instances over redis pub/sub.
	hub := chat.NewHub(redisCache, logger)
	defer hub.CloseAll()
	presence := chat.NewPresence()
	chatService := chat.NewService(store, hub, presence, producer, cfg.Chat, logger)

	// HTTP surface.
	handler := api.NewHandler(orch, redisCache, catalogClient, scheduleClient, player.NewBuilder(cfg.Player), logger)
	chatHandler := api.NewChatHandler(chatService, logger)

	healthHandler := api.NewHealthHandler(logger)
	healthHandler.Register("redis", redisCache)
	healthHandler.Register("postgres", store)
	if chClient != nil {
		healthHandler.Register("clickhouse", chClient)
	}
	if consumer != nil {
		healthHandler.Register("kafka", consumer)
	}

	router := api.NewRouter(handler, chatHandler, healthHandler, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	logger.Info("starting graceful shutdown", zap.Duration("timeout", cfg.Server.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new requests, then tear down chat connections so every
	// websocket gets a clean close frame.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}
	hub.CloseAll()

	cancel()

	if tracerShutdown != nil {
		if err := tracerShutdown(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", zap.Error(err))
		}
	}

	logger.Info("shutdown complete")
	return nil
}
