package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/themobileprof/medoffice-be/internal/api"
	"github.com/themobileprof/medoffice-be/internal/cache"
	"github.com/themobileprof/medoffice-be/internal/circuitbreaker"
	"github.com/themobileprof/medoffice-be/internal/config"
	"github.com/themobileprof/medoffice-be/internal/db"
	"github.com/themobileprof/medoffice-be/internal/diagnosis"
	"github.com/themobileprof/medoffice-be/internal/intake"
	"github.com/themobileprof/medoffice-be/internal/knowledge"
	"github.com/themobileprof/medoffice-be/internal/language"
	"github.com/themobileprof/medoffice-be/internal/subscription"
	"github.com/themobileprof/medoffice-be/internal/suggestions"
	"github.com/themobileprof/medoffice-be/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootstrap.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := newLogger(cfg)

	// Initialize database
	database, err := db.NewFromURL(cfg.DatabaseURL, db.PoolConfig{
		MaxConnections:  cfg.DBMaxConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}
	logger.Info().Msg("database connected")

	// Knowledge base and engine
	base, err := knowledge.Load(cfg.KnowledgeBasePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.KnowledgeBasePath).Msg("failed to load knowledge base")
	}
	logger.Info().Int("conditions", base.Len()).Msg("knowledge base loaded")

	engine := diagnosis.NewEngine(base, diagnosis.WithShortlistSize(cfg.ShortlistSize))
	langMgr := language.NewManager()
	subMgr := subscription.NewManager(database.DB)

	// Cache (optional - only if REDIS_URL provided)
	var backend cache.Cache = cache.Noop{}
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, suggestions will not be cached")
		} else {
			defer redisCache.Close()
			backend = redisCache
			logger.Info().Msg("redis cache connected")
		}
	}

	breaker := circuitbreaker.New(circuitbreaker.Settings{
		Name:         "suggestion-store",
		MaxFailures:  cfg.BreakerMaxFailures,
		ResetTimeout: cfg.BreakerResetTimeout,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})

	service := suggestions.NewService(suggestions.Config{
		Engine:          engine,
		Parser:          intake.NewParser(intake.MaxSymptoms),
		Languages:       langMgr,
		Store:           database,
		Cache:           cache.NewSuggestionCache(backend, cfg.CacheTTL, logger),
		Breaker:         breaker,
		Usage:           subMgr,
		Logger:          logger,
		DefaultLanguage: cfg.DefaultLanguage,
	})

	// Initialize handlers
	intakeHandler := ws.NewIntakeHandler(service, subMgr, cfg.JWTSecret, logger, cfg.CORSAllowedOrigins...)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.RouterConfig{
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Logger:         logger,
		Auth:           api.NewAuthHandler(database, cfg.JWTSecret),
		Catalog:        api.NewCatalogHandler(base, langMgr),
		Suggestions:    api.NewSuggestionHandler(service, logger),
		Subscription:   api.NewSubscriptionHandler(subMgr),
		Features:       subMgr,
		Intake:         intakeHandler.HandleIntake,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}

func newLogger(cfg config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger().Level(zerolog.DebugLevel)
	}
	return zerolog.New(os.Stdout).With().Timestamp().Str("service", "medoffice-be").Logger().Level(zerolog.InfoLevel)
}
