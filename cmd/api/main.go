// Package main is the entrypoint for the KidsStudy access service.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/kidsstudy/kidsstudy/internal/auth"
	"github.com/kidsstudy/kidsstudy/internal/billing"
	"github.com/kidsstudy/kidsstudy/internal/cache"
	"github.com/kidsstudy/kidsstudy/internal/config"
	"github.com/kidsstudy/kidsstudy/internal/gate"
	"github.com/kidsstudy/kidsstudy/internal/handler"
	"github.com/kidsstudy/kidsstudy/internal/metrics"
	"github.com/kidsstudy/kidsstudy/internal/repository"
	"github.com/kidsstudy/kidsstudy/internal/server"
	"github.com/kidsstudy/kidsstudy/internal/webhook"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolOptions{
		MaxConns:       cfg.DBMaxConns,
		MinConns:       cfg.DBMinConns,
		SimpleProtocol: cfg.DBSimpleProtocol,
	})
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL, cache.Options{
		PoolSize:  cfg.RedisPoolSize,
		KeyPrefix: cfg.RedisKeyPrefix,
	})
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		repo.Close()
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	recorder := metrics.NewInMemory()

	accessGate := gate.New(repo, logger, recorder,
		gate.WithAdmins(gate.NewAdmins(cfg.AdminUserIDs, cfg.AdminEmails)),
		gate.WithFetchTimeout(cfg.ProfileFetchTimeout),
	)
	if len(cfg.AdminUserIDs)+len(cfg.AdminEmails) > 0 {
		logger.Warn("admin override enabled",
			"admin_user_ids", len(cfg.AdminUserIDs),
			"admin_emails", len(cfg.AdminEmails),
		)
	}

	checkout := billing.NewService(
		billing.NewStripeProvider(cfg.StripeSecretKey),
		billing.Config{BaseURL: cfg.BaseURL, Currency: cfg.CheckoutCurrency, Timeout: cfg.CheckoutTimeout},
		logger,
		recorder,
	)

	processor := webhook.NewProcessor(cfg.StripeWebhookSecret, cfg.WebhookTolerance, repo, logger, recorder,
		webhook.WithTracker(cacheClient),
	)

	accessHandler := handler.NewAccessHandler(accessGate, cfg.CheckoutCurrency)
	deps := routerDeps{
		handler:  handler.New(),
		health:   handler.NewHealthHandler(repo, cacheClient, logger),
		metrics:  handler.NewMetricsHandler(recorder),
		checkout: handler.NewCheckoutHandler(checkout, cfg.LoginPath, logger),
		webhook:  handler.NewWebhookHandler(processor, cfg.WebhookTimeout, logger),
		access:   accessHandler,
		ops:      handler.NewOpsHandler(accessGate, repo, cfg.CheckoutCurrency, logger),
		gate:     accessGate,
		sessions: auth.NewSessionVerifier(cfg.SupabaseJWTSecret, cfg.SupabaseJWTAudience),
		opsKeys:  repo,
		limiter:  cacheClient,
	}

	r := setupRouter(deps, cfg, logger)

	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "kidsstudy-access")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
