package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/cache"
	"spendwise/internal/cli"
	"spendwise/internal/config"
	"spendwise/internal/currency"
	apphttp "spendwise/internal/http"
	"spendwise/internal/log"
	"spendwise/internal/services"
)

// dashboardCacheSize bounds cached dashboard views across all users.
const dashboardCacheSize = 500

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	ctx := context.Background()
	store := cli.InitStore(ctx, logger, cfg)

	var publisher services.EventPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Expense writes still work; exports resume once the broker is back.
			logger.Warn("Failed to initialize AMQP client, continuing without expense events", log.FieldError, err)
		} else {
			publisher = client
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	cacheManager := cache.NewManager()
	var views cache.Cache[services.DashboardView]
	if cfg.CacheTTL > 0 {
		lru := cache.NewLRUCache[services.DashboardView](dashboardCacheSize, cfg.CacheTTL)
		cacheManager.Register(lru)
		views = lru
	}
	cacheManager.StartCleanup(time.Minute)

	dashboards := services.NewDashboardService(store.Store, store.Store, views)
	expenses := services.NewExpenseService(store.Store, publisher, dashboards)

	opts := apphttp.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(log.ComponentHTTP),
		Pinger:             store.Pinger,
	}
	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Expenses:   expenses,
		Dashboards: dashboards,
		Insights:   services.NewInsightsService(store.Store, store.Store),
		Planner:    services.NewPlannerService(currency.New(cfg.CurrencySymbol)),
	}, opts)
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if err := expenses.Close(); err != nil {
			logger.Error("Failed to release resources", log.FieldError, err)
		}
	})

	logger.Info("Starting spendwise server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", publisher != nil,
		"cache_ttl", cfg.CacheTTL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
