/**
 * @description
 * This is the main entry point for the contribution-service. It is responsible
 * for initializing all components of the service, including configuration,
 * database connection, message brokers, repositories, the core application
 * service, and the HTTP server. It wires everything together and starts the
 * service.
 *
 * @dependencies
 * - net/http, os/signal: Standard Go libraries for the HTTP server and shutdown.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Redis client for checkout rate limiting.
 * - github.com/rs/zerolog: Structured logging.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages.
 * - pkg/analytics, pkg/notify, pkg/rabbitmq: Event publishing.
 * - pkg/chatwidget: Support chat for checkout sessions.
 */

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/catalisa/contribution-service/internal/api"
	"github.com/catalisa/contribution-service/internal/app"
	"github.com/catalisa/contribution-service/internal/config"
	"github.com/catalisa/contribution-service/internal/store"
	"github.com/catalisa/contribution-service/pkg/analytics"
	"github.com/catalisa/contribution-service/pkg/chatwidget"
	"github.com/catalisa/contribution-service/pkg/notify"
	"github.com/catalisa/contribution-service/pkg/rabbitmq"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.AppEnv)

	if strings.TrimSpace(cfg.SessionJWTSecret) == "" {
		logger.Fatal().Str("env", "SESSION_JWT_SECRET").Msg("session secret must be configured")
	}

	logger.Info().Str("port", cfg.ServerPort).Msg("starting contribution-service")

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database url parse failed")
	}
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	// Disable prepared statement caching to prevent conflicts behind poolers.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer dbpool.Close()
	logger.Info().Msg("database connected")

	// Initialize the RabbitMQ producer. Analytics and notifications both
	// publish through it; a broker outage degrades them rather than blocking
	// boot.
	rabbitProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("rabbitmq producer unavailable; analytics and notifications degraded")
		rabbitProducer = nil
	} else {
		defer rabbitProducer.Close()
		logger.Info().Msg("rabbitmq producer connected")
	}

	analyticsProducer := analytics.NewProducer(rabbitProducer, cfg.AnalyticsExchange, logger)
	notifier := notify.NewDispatcher(rabbitProducer, cfg.NotificationExchange, logger)

	// Redis backs checkout rate limiting. A missing or unreachable Redis
	// disables limiting instead of failing boot.
	var redisClient *redis.Client
	if cfg.CheckoutRateLimitPerMinute > 0 {
		if cfg.RedisURL == "" {
			logger.Warn().Str("env", "REDIS_URL").Msg("redis url missing; checkout rate limiting disabled")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				logger.Warn().Err(parseErr).Msg("redis url parse failed; checkout rate limiting disabled")
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					logger.Warn().Err(pingErr).Msg("redis ping failed; checkout rate limiting disabled")
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					logger.Info().Msg("redis connected")
				}
			}
		}
	}

	repository := store.NewPostgresRepository(dbpool)

	contributionService := app.NewService(repository, notifier, app.Settings{
		HomeCountryName:    cfg.HomeCountryName,
		GlobalMinimumValue: decimal.NewFromFloat(cfg.GlobalMinimumValue),
		RefundCooldownDays: cfg.RefundNotificationCooldownDays,
		RefundLimit:        cfg.RefundNotificationLimit,
		EmailContact:       cfg.EmailContact,
		EmailPayments:      cfg.EmailPayments,
	}, logger)

	var limiter *app.RedisCheckoutRateLimiter
	if redisClient != nil {
		limiter = app.NewRedisCheckoutRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
	}

	// Support chat stays hidden unless configured; a dead chat backend only
	// ever degrades the widget, never checkout.
	chat := chatwidget.New(cfg.SupportChatURL, cfg.SupportChatProjects(), logger)

	handlers := api.NewContributionHandlers(contributionService, limiter, cfg.CheckoutRateLimitPerMinute, analyticsProducer, chat, logger)
	router := api.ContributionRoutes(handlers, cfg.SessionJWTSecret)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info().Msg("shutdown started")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}

	logger.Info().Msg("shutdown complete")
}

// newLogger builds the service logger: JSON in production, console output
// elsewhere.
func newLogger(appEnv string) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "contribution-service").
		Logger()
	if appEnv != "production" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return logger
}
