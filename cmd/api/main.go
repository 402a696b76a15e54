// Package main is the entrypoint for the Taskboard API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/taskboard/taskboard/internal/auth"
	"github.com/taskboard/taskboard/internal/cache"
	"github.com/taskboard/taskboard/internal/config"
	"github.com/taskboard/taskboard/internal/handler"
	"github.com/taskboard/taskboard/internal/metrics"
	"github.com/taskboard/taskboard/internal/middleware"
	"github.com/taskboard/taskboard/internal/repository"
	"github.com/taskboard/taskboard/internal/router"
	"github.com/taskboard/taskboard/internal/server"
	"github.com/taskboard/taskboard/internal/service"
)

// store is what the services and readiness probe need from persistence.
type store interface {
	service.UserStore
	service.TaskStore
	Ping(ctx context.Context) error
}

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until the server stops.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	recorder := metrics.NewInMemory()

	// Initialize auth
	tokens, err := auth.NewTokenManager([]byte(cfg.TokenSecret), cfg.TokenTTL, auth.WithIssuer(cfg.TokenIssuer))
	if err != nil {
		return fmt.Errorf("token manager: %w", err)
	}
	hasher := auth.NewPasswordHasher(auth.DefaultArgon2Params)

	// Initialize persistence
	var db store
	var repo *repository.Repository
	if cfg.UseMemoryStore() {
		db = repository.NewMemoryStore()
		logger.Warn("using in-memory store; data is lost on restart")
	} else {
		repo, err = repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error(
				"failed to connect to database",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			return errors.New("database unavailable")
		}
		db = repo
		logger.Info("connected to database")
	}

	// Initialize cache. Without Redis the credential endpoints are not throttled.
	var cacheClient *cache.Cache
	var limiter middleware.AuthLimiter
	var cacheCheck handler.HealthChecker
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			if repo != nil {
				repo.Close()
			}
			return errors.New("redis unavailable")
		}
		limiter = cacheClient
		cacheCheck = cacheClient
		logger.Info("connected to Redis")
	} else {
		logger.Warn("REDIS_URL not set; auth rate limiting disabled")
	}

	// Initialize services
	authService := service.NewAuthService(db, hasher, tokens, recorder, logger)
	taskService := service.NewTaskService(db, recorder)

	// Setup router
	r := router.New(cfg, router.Deps{
		Logger:      logger,
		Metrics:     recorder,
		Snapshotter: recorder,
		Tokens:      tokens,
		Auth:        authService,
		Tasks:       taskService,
		Limiter:     limiter,
		DB:          db,
		Cache:       cacheCheck,
	})

	// Create and run server
	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Registered first, closed last.
	if repo != nil {
		srv.OnShutdown("database", func(context.Context) error {
			repo.Close()
			return nil
		})
	}
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store", cfg.StoreDriver,
		"auth_transport", cfg.AuthTransport,
	)

	return srv.Run(ctx)
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
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
