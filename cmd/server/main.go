package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/featureflags"
	"github.com/khaliloulah1/securelife/internal/handler"
	"github.com/khaliloulah1/securelife/internal/infrastructure/logger"
	"github.com/khaliloulah1/securelife/internal/notification"
	"github.com/khaliloulah1/securelife/internal/observability/metrics"
	"github.com/khaliloulah1/securelife/internal/observability/tracing"
	"github.com/khaliloulah1/securelife/internal/security"
	"github.com/khaliloulah1/securelife/internal/security/audit"
	"github.com/khaliloulah1/securelife/internal/security/auth"
	"github.com/khaliloulah1/securelife/internal/security/middleware"
	"github.com/khaliloulah1/securelife/internal/security/ratelimit"
	"github.com/khaliloulah1/securelife/internal/service"
	"github.com/khaliloulah1/securelife/pkg/cache"
	"github.com/khaliloulah1/securelife/pkg/config"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger and tracing
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting SecureLife server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, log, "securelife", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	flags := featureflags.FromEnv()

	// 3. Initialize storage and cache backends
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open contract store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.close()

	cacheStore, err := openCache(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open cache", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cacheStore.close()

	layer := cache.NewLayer(cacheStore.store, cache.TTLs{
		cache.RegionByID:      cfg.CacheTTL.ByID,
		cache.RegionSearch:    cfg.CacheTTL.Search,
		cache.RegionStats:     cfg.CacheTTL.Stats,
		cache.RegionReference: cfg.CacheTTL.Reference,
	}, log)
	layer.SetObserver(func(region cache.Region, event string) {
		metrics.ObserveCacheEvent(string(region), event)
	})

	// 4. Initialize notification delivery
	sender, err := newSender(cfg, flags, log)
	if err != nil {
		log.Error("failed to initialize notifications", slog.String("error", err.Error()))
		os.Exit(1)
	}
	notifier := notification.NewAsync(sender, 30*time.Second, log)

	// 5. Initialize services
	statuses := make([]domain.Status, 0, len(cfg.ContractStatuses))
	for _, s := range cfg.ContractStatuses {
		statuses = append(statuses, domain.Status(s))
	}
	deps := service.Dependencies{
		Contracts: store.contracts,
		Users:     store.users,
		Documents: store.documents,
		Cache:     layer,
		Policy:    security.NewAccessPolicy(log),
		Notifier:  notifier,
		Logger:    log,
		Statuses:  statuses,
	}
	autoService := service.NewAutoService(deps)
	homeService := service.NewHomeService(deps)
	lifeService := service.NewLifeService(deps)
	searchService := service.NewSearchService(deps)

	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	authService := service.NewAuthService(store.users, tokenManager, log)

	if flags.Enabled(featureflags.SeedDemoUsers) {
		seedDemoUsers(ctx, authService, log)
	}

	// 6. Initialize security components
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 7. Setup HTTP routes
	mux := http.NewServeMux()
	handler.NewAuthHandler(authService, auditLogger, log).Routes(mux)
	handler.NewContractHandler[service.AutoRequest](autoService, "auto", auditLogger, log).Routes(mux)
	handler.NewContractHandler[service.HomeRequest](homeService, "home", auditLogger, log).Routes(mux)
	handler.NewContractHandler[service.LifeRequest](lifeService, "life", auditLogger, log).Routes(mux)
	handler.NewInsuranceHandler(searchService, auditLogger, log).Routes(mux)
	handler.NewHealthHandler(map[string]handler.Checker{
		"store": store.contracts.Ping,
		"cache": cacheStore.ping,
	}, log).Routes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Chain middleware: otelhttp -> request ID -> metrics -> CORS -> input checks -> JWT -> audit -> rate limit
	var rootHandler http.Handler = mux
	rootHandler = middleware.RateLimitMiddleware(rateLimiter, log)(rootHandler)
	rootHandler = middleware.AuditMiddleware(auditLogger)(rootHandler)
	rootHandler = middleware.JWTMiddleware(tokenManager, auditLogger, log)(rootHandler)
	rootHandler = middleware.SanitizeInputs(log)(rootHandler)
	rootHandler = middleware.ValidateJSONContentType(log)(rootHandler)
	rootHandler = middleware.LimitBody(middleware.DefaultMaxBodyBytes)(rootHandler)
	rootHandler = middleware.CORS(cfg.CORSAllowedOrigins)(rootHandler)
	rootHandler = metrics.HTTPMetricsMiddleware(rootHandler)
	rootHandler = middleware.RequestID(log)(rootHandler)
	rootHandler = otelhttp.NewHandler(rootHandler, "securelife")

	// 8. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("store", cfg.StoreBackend),
		slog.String("cache", cfg.CacheBackend),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
			sigChan <- syscall.SIGTERM
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("shutdown signal received")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	// Let in-flight notifications finish before closing the stores
	notifier.Wait()
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	cancel()
	log.Info("server stopped")
}

func newSender(cfg *config.Config, flags featureflags.Flags, log *slog.Logger) (notification.Sender, error) {
	if !flags.Enabled(featureflags.EmailNotifications) {
		return notification.NewLogSender(log), nil
	}
	if cfg.SMTP.Host == "" {
		log.Warn("email notifications enabled without SMTP_HOST, logging instead")
		return notification.NewLogSender(log), nil
	}
	return notification.NewMailer(notification.MailerConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, nil, log)
}

// seedDemoUsers creates one account per role for local development
func seedDemoUsers(ctx context.Context, authService *service.AuthService, log *slog.Logger) {
	demo := []struct {
		email, name, password string
		role                  domain.Role
	}{
		{"admin@securelife.local", "Admin SecureLife", "admin12345", domain.RoleAdmin},
		{"agent@securelife.local", "Agent SecureLife", "agent12345", domain.RoleAgent},
		{"client@securelife.local", "Client SecureLife", "client12345", domain.RoleHolder},
	}
	for _, u := range demo {
		if err := authService.SeedUser(ctx, u.email, u.name, u.password, u.role); err != nil {
			log.Error("failed to seed demo user",
				slog.String("email", u.email),
				slog.String("error", err.Error()),
			)
			continue
		}
		log.Info("demo user ready", slog.String("email", u.email), slog.String("role", string(u.role)))
	}
}
