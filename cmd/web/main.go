package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "public, max-age=300"
)

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// newHandler wires routes and the middleware chain. Tracing and Metrics sit
// innermost so they see the pattern the mux matched.
func newHandler(cfg *config.Config, analytics *services.Analytics, logger *slog.Logger, limiter *middleware.RateLimiter) http.Handler {
	srv := server.NewServer(analytics, logger, cfg.Metrics, &server.TemplateHandlers{
		Dashboard: handleDashboard,
	})

	chain := []middleware.Middleware{
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(limiter, logger),
		middleware.Tracing(logger),
	}
	if cfg.Metrics.Enabled {
		chain = append(chain, middleware.Metrics())
	}
	return middleware.Chain(chain...)(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"sales_file", cfg.Dataset.SalesFile,
		"issues_file", cfg.Dataset.IssuesFile,
		"metrics", cfg.Metrics.Enabled,
	)

	analytics := services.NewAnalytics(services.Options{
		SalesFile:   cfg.Dataset.SalesFile,
		IssuesFile:  cfg.Dataset.IssuesFile,
		Workers:     cfg.Dataset.Workers,
		LoadTimeout: cfg.Dataset.LoadTimeout,
		Logger:      logger,
	})

	// A failed warm-up is not fatal: requests report LOAD_ERROR until the
	// file is fixed and the cache is cleared.
	if err := analytics.Warm(context.Background()); err != nil {
		logger.Error("failed to load sales data", "error", err)
	}

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	rateLimiter.Start()

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, logger, rateLimiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	gracefulServer.RegisterShutdownHook("rate-limiter", func(ctx context.Context) error {
		rateLimiter.Stop()
		return nil
	})
	gracefulServer.RegisterShutdownHook("dataset-cache", func(ctx context.Context) error {
		analytics.Invalidate()
		return nil
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := gracefulServer.Run(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
