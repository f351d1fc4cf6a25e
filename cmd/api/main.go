package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evoclabs/crm/config"
	"github.com/evoclabs/crm/pkg/api/handlers"
	"github.com/evoclabs/crm/pkg/cache"
	"github.com/evoclabs/crm/pkg/export"
	"github.com/evoclabs/crm/pkg/jobs"
	"github.com/evoclabs/crm/pkg/leads"
	"github.com/evoclabs/crm/pkg/logger"
	"github.com/evoclabs/crm/pkg/metrics"
	custommiddleware "github.com/evoclabs/crm/pkg/middleware"
	"github.com/evoclabs/crm/pkg/phone"
	"github.com/evoclabs/crm/pkg/store"
)

func main() {
	// Load configuration
	cfg := config.Load()
	appLog := logger.New(cfg.LogLevel, cfg.LogFormat)
	appLog.Info("configuration loaded", "environment", cfg.APIEnvironment)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 1.0, // Capture 100% of transactions in development, adjust in production
			AttachStacktrace: true,
		})
		if err != nil {
			appLog.Warn("failed to initialize sentry", "error", err)
		} else {
			appLog.Info("sentry initialized", "environment", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		appLog.Info("sentry disabled, no DSN configured")
	}

	// Connect to the lead store
	storeClient, err := store.NewClient(cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("failed to connect to lead store: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		storeClient.Close(ctx)
	}()

	// Initialize Redis cache
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New()

	// Domain services
	candidates := store.Candidates(cfg.LeadCollections)
	leadService := leads.NewService(storeClient, redisClient, appLog, candidates).
		WithMetrics(prometheusMetrics)
	exportService := export.NewService()
	phoneFormatter := phone.NewFormatter(cfg.PhoneRegion)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Rate limiting
	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)

	// Global middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			appLog.Info("request", "method", c.Request().Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Sentry error tracking middleware (if configured)
	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true, // Repanic after capturing to let the Recover middleware handle it
		}))
	}

	// Prometheus metrics middleware
	e.Use(prometheusMetrics.Middleware())

	// CORS with restricted origins
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowCredentials: true,
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
		},
	}))

	e.Use(middleware.Gzip())
	e.Use(middleware.Secure())
	e.Use(globalRateLimiter.RateLimitMiddleware())

	// Health check endpoints (public)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "Evoc Labs CRM API",
			"version":     custommiddleware.CurrentAPIVersion.Version,
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})

	e.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if err := storeClient.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"store":  "down",
			})
		}
		if _, err := redisClient.Redis.Ping(ctx).Result(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"cache":  "down",
			})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status": "healthy",
			"store":  "up",
			"cache":  "up",
		})
	})

	// Prometheus metrics endpoint (public)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes group with versioning middleware
	v1 := e.Group("/api/v1")
	v1.Use(custommiddleware.APIVersionMiddleware(custommiddleware.CurrentAPIVersion))

	v1.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"message": "pong",
		})
	})

	// Lead triage routes
	leadHandler := handlers.NewLeadHandler(leadService, phoneFormatter, cfg.PageSize)
	exportHandler := handlers.NewExportHandler(leadService, exportService, prometheusMetrics, cfg.PageSize)

	v1.GET("/leads", leadHandler.List)
	v1.GET("/leads/stats", leadHandler.Stats)
	v1.GET("/leads/pipeline", leadHandler.Pipeline)
	v1.GET("/leads/export", exportHandler.Download)
	v1.POST("/leads/refresh", leadHandler.Refresh)
	v1.GET("/leads/:id", leadHandler.Get)
	v1.PATCH("/leads/:id/status", leadHandler.UpdateStatus)
	v1.DELETE("/leads/:id", leadHandler.Delete)

	// Warm the session list; an empty store is not fatal, the UI
	// surfaces it on first request.
	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := leadService.Fetch(ctx); err != nil {
			appLog.Warn("initial lead fetch failed", "error", err)
		}
		cancel()
	}

	// Scheduled silent refresh
	var cronManager *jobs.CronManager
	if cfg.RefreshEnabled {
		cronManager = jobs.NewCronManager(leadService, cfg.RefreshCronSpec, appLog)
		if err := cronManager.SetupJobs(); err != nil {
			log.Fatalf("failed to configure cron jobs: %v", err)
		}
		cronManager.Start()
	}

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	appLog.Info("starting server",
		"address", address,
		"rate_limit_rpm", cfg.RateLimitRequestsPerMinute,
		"refresh_enabled", cfg.RefreshEnabled,
		"refresh_spec", cfg.RefreshCronSpec,
	)

	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLog.Info("shutting down server")

	if cronManager != nil {
		cronManager.Stop()
	}

	// Let in-flight lead mutations reach the store before closing it
	leadService.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	appLog.Info("server gracefully stopped")
}
