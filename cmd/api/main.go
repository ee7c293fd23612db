package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"shopify-embedded-app/internal/application"
	"shopify-embedded-app/internal/application/webhook_handlers"
	"shopify-embedded-app/internal/config"
	apiinfra "shopify-embedded-app/internal/infrastructure/api"
	"shopify-embedded-app/internal/infrastructure/dedupe"
	"shopify-embedded-app/internal/infrastructure/httpserver"
	"shopify-embedded-app/internal/infrastructure/metrics"
	"shopify-embedded-app/internal/infrastructure/render"
	"shopify-embedded-app/internal/infrastructure/repository"
	"shopify-embedded-app/internal/infrastructure/session"
	shopifyinfra "shopify-embedded-app/internal/infrastructure/shopify"
	"shopify-embedded-app/internal/ports"

	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sessionLifetime = 24 * time.Hour

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg(".env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger = logger.Level(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(metrics.DefaultNamespace, reg)

	// Redis backs sessions and webhook de-duplication when configured
	var (
		sessionStore scs.Store
		deduper      ports.WebhookDeduper = dedupe.NewMemoryDeduper(dedupe.DefaultTTL)
	)
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		sessionStore = session.NewRedisStore(redisClient)
		deduper = dedupe.NewRedisDeduper(redisClient, dedupe.DefaultTTL)
		logger.Info().Msg("Using Redis for sessions and webhook de-duplication")
	} else {
		logger.Warn().Msg("REDIS_URL not set, sessions are kept in memory")
	}

	// MongoDB records installs and webhook receipts when configured
	var repo ports.Repository
	if cfg.MongoURI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer func() {
			_ = client.Disconnect(context.Background())
		}()

		mongoRepo := repository.NewMongoRepository(client.Database(cfg.MongoDatabase))
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to create MongoDB indexes")
		}
		repo = mongoRepo
	}

	// Initialize infrastructure
	shopifyClient := shopifyinfra.NewClient(cfg.APIKey, cfg.APISecret, cfg.APIVersion, logger)
	sessions := session.NewManager(sessionStore, sessionLifetime, logger)

	var tokens httpserver.TokenValidator
	if cfg.VerifyAccessTokens {
		tokens = shopifyinfra.NewTokenValidator(cfg.APIVersion, logger)
	}

	// Initialize application services
	authService := application.NewAuthService(shopifyClient, repo, application.AuthOptions{
		Scopes:         cfg.Scopes,
		CallbackURL:    cfg.CallbackURL(),
		WebhookAddress: cfg.WebhookAddress(),
		AppURL:         cfg.Host,
		BillingEnabled: cfg.BillingEnabled,
		Billing:        cfg.Billing,
	}, appMetrics, logger)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewProductHandler(logger))
	webhookService := application.NewWebhookService(deduper, webhookDispatcher, repo, appMetrics, logger)

	router := httpserver.NewRouter(httpserver.Deps{
		Config:   cfg,
		Sessions: sessions,
		Auth:     authService,
		Webhooks: webhookService,
		Verifier: shopifyinfra.NewWebhookVerifier(cfg.APISecret),
		Tokens:   tokens,
		GraphQL:  apiinfra.NewGraphQLProxy(sessions, cfg.APIVersion, appMetrics, logger),
		Renderer: render.NewAppShell(cfg.StaticDir, cfg.APIKey, nil, logger),
		Metrics:  appMetrics,
		Gatherer: reg,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Msg("> Ready on http://localhost:" + strconv.Itoa(cfg.Port))
		if !cfg.Production {
			logger.Info().Msg("Swagger documentation available at http://localhost:" + strconv.Itoa(cfg.Port) + "/swagger/index.html")
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
