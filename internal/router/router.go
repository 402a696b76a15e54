// Package router assembles the HTTP surface: global middleware, the auth
// gate and every route.
package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/taskboard/taskboard/internal/config"
	"github.com/taskboard/taskboard/internal/handler"
	"github.com/taskboard/taskboard/internal/metrics"
	"github.com/taskboard/taskboard/internal/middleware"
	"github.com/taskboard/taskboard/internal/service"
)

// Rate limit scopes for the credential endpoints.
const (
	ScopeLogin    = "login"
	ScopeRegister = "register"
)

// PublicPaths are served without a session token. Everything else,
// including unknown paths, goes through the auth gate.
var PublicPaths = []string{
	"/",
	"/health",
	"/readyz",
	"/metrics",
	"/auth/register",
	"/auth/login",
}

// Deps holds the collaborators wired in main. Optional fields may be nil.
type Deps struct {
	Logger      *slog.Logger
	Metrics     metrics.Recorder
	Snapshotter metrics.Snapshotter
	Tokens      middleware.TokenVerifier
	Auth        *service.AuthService
	Tasks       *service.TaskService

	// Limiter throttles login and register. Nil disables throttling.
	Limiter middleware.AuthLimiter
	// DB and Cache back the readiness probe.
	DB    handler.HealthChecker
	Cache handler.HealthChecker
}

// New configures the chi router with all routes and middleware.
func New(cfg *config.Config, deps Deps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	cookieEnabled := cfg.AuthTransport == config.AuthTransportCookie || cfg.AuthTransport == config.AuthTransportBoth

	h := handler.New(cfg.AppVersion)
	healthHandler := handler.NewHealthHandler(handler.HealthConfig{
		Tasks:       deps.Tasks,
		DB:          deps.DB,
		Cache:       deps.Cache,
		Environment: cfg.AppEnv,
		Version:     cfg.AppVersion,
		Logger:      logger,
	})
	metricsHandler := handler.NewMetricsHandler(deps.Snapshotter)
	authHandler := handler.NewAuthHandler(deps.Auth, handler.CookieConfig{
		Enabled: cookieEnabled,
		Name:    cfg.AuthCookieName,
		Secure:  !cfg.IsDevelopment(),
	}, logger)
	taskHandler := handler.NewTaskHandler(deps.Tasks, logger)

	securityCfg := middleware.SecurityConfig{
		IsDevelopment:      cfg.IsDevelopment(),
		CookieAuth:         cookieEnabled,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	corsCfg.AllowCredentials = cookieEnabled && len(corsCfg.AllowedOrigins) > 0

	authCfg := middleware.AuthConfig{
		Logger:     logger,
		Verifier:   deps.Tokens,
		Metrics:    recorder,
		Transport:  cfg.AuthTransport,
		CookieName: cfg.AuthCookieName,
		Public:     PublicPaths,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:    logger,
		Limiter:   deps.Limiter,
		Metrics:   recorder,
		Enabled:   cfg.RateLimitAuthEnabled,
		PerMinute: cfg.RateLimitAuthPerMinute,
		Burst:     cfg.RateLimitAuthBurst,
	}

	// Config.Validate rejects bad entries at startup; here they trust nobody.
	trustedProxies, err := cfg.GetTrustedProxies()
	if err != nil {
		logger.Error("ignoring TRUSTED_PROXIES", slog.String("error", err.Error()))
		trustedProxies = nil
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.TrustedRealIP(trustedProxies))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger, recorder))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(securityCfg))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(securityCfg.MaxRequestBodySize))
	r.Use(middleware.Auth(authCfg))

	// Public endpoints
	r.Get("/", h.Index)
	r.Get("/health", healthHandler.Health)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.RateLimitAuth(rateLimitCfg, ScopeRegister)).Post("/register", authHandler.Register)
		r.With(middleware.RateLimitAuth(rateLimitCfg, ScopeLogin)).Post("/login", authHandler.Login)
		r.Get("/me", authHandler.Me)
	})

	// Task routes; the auth gate has already attached the caller.
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", taskHandler.List)
		r.Post("/", taskHandler.Create)
		r.Get("/{id}", taskHandler.Get)
		r.Patch("/{id}", taskHandler.Update)
		r.Put("/{id}", taskHandler.Update)
		r.Delete("/{id}", taskHandler.Delete)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
