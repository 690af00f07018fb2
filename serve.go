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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/adapter/llm"
	"github.com/xiaot623/gogo/assistant/internal/briefing"
	"github.com/xiaot623/gogo/assistant/internal/config"
	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/intent"
	"github.com/xiaot623/gogo/assistant/internal/logging"
	"github.com/xiaot623/gogo/assistant/internal/metrics"
	"github.com/xiaot623/gogo/assistant/internal/repository"
	"github.com/xiaot623/gogo/assistant/internal/service"
	server "github.com/xiaot623/gogo/assistant/internal/transport/http"
	"github.com/xiaot623/gogo/assistant/internal/transport/http/middleware"
	v1 "github.com/xiaot623/gogo/assistant/internal/transport/http/v1"
	"github.com/xiaot623/gogo/assistant/policy"
)

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting assistant",
		zap.Int("port", cfg.HTTPPort),
		zap.String("database_driver", cfg.DatabaseDriver),
		zap.String("llm_mode", cfg.LLM.Mode),
		zap.String("llm_provider", cfg.LLM.Provider),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	events, err := repository.NewEventStore(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer events.Close()
	if err := events.Ping(ctx); err != nil {
		logger.Warn("relational store not reachable; briefings will degrade", zap.Error(err))
	}

	// A missing REDIS_URL keeps the API up and answers 503 on chat routes.
	var sessions service.SessionStore
	var limiter service.RateLimiter
	rdb, err := repository.NewRedisClient(cfg.RedisURL)
	switch {
	case errors.Is(err, domain.ErrStoreNotConfigured):
		logger.Warn("REDIS_URL not configured; chat is disabled")
	case err != nil:
		return err
	default:
		defer rdb.Close()
		sessions = repository.NewSessionStore(rdb, cfg.Chat.MaxSessionMessages, logger)
		limiter = repository.NewRateLimiter(rdb, cfg.Chat.RateLimit, cfg.Chat.RateLimitWindow)
	}

	format, err := intent.NewFormatter(cfg.Chat.TimeZone)
	if err != nil {
		return err
	}

	engine, err := policy.NewEngineFromFile(ctx, cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	providers := llm.NewProviders(llm.FromConfig(cfg.LLM, cfg.Chat.MaxContextMessages), logger)
	for _, p := range providers {
		logger.Info("language model provider enabled", zap.String("provider", p.Name()))
	}
	orchestrator := llm.NewOrchestrator(providers, cfg.LLM.ProviderTimeout, cfg.Chat.MaxContextMessages, logger, m)

	svc := service.New(service.Deps{
		Sessions: sessions,
		Limiter:  limiter,
		Resolver: intent.NewResolver(events, format, logger),
		Briefing: briefing.NewBuilder(events, format, logger, m),
		Replier:  orchestrator,
		Scopes:   engine,
		Logger:   logger,
		Metrics:  m,
	}, service.Options{
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		SessionListLimit: cfg.Chat.SessionListLimit,
	})

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not configured; every chat request will be rejected")
	}
	handler := v1.NewHandler(svc, middleware.NewVerifier(cfg.JWTSecret), logger, m)
	e := server.NewServer(handler, reg, logger)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()
	logger.Info("chat API started", zap.Int("port", cfg.HTTPPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down assistant")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server gracefully", zap.Error(err))
	}

	logger.Info("assistant stopped")
	return nil
}
