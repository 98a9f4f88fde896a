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
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xinzuo/storefront-services/internal/api/router"
	"github.com/xinzuo/storefront-services/internal/app/bootstrap"
	appconfig "github.com/xinzuo/storefront-services/internal/config"
	"github.com/xinzuo/storefront-services/internal/countdown"
	"github.com/xinzuo/storefront-services/internal/delivery/calendar"
	"github.com/xinzuo/storefront-services/internal/delivery/widget"
	"github.com/xinzuo/storefront-services/internal/engraving"
	httpmiddleware "github.com/xinzuo/storefront-services/internal/http/middleware"
	"github.com/xinzuo/storefront-services/internal/observability/metrics"
	"github.com/xinzuo/storefront-services/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithWriter(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting storefront API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	handler, cleanup, err := buildHandler(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Create HTTP server. No write timeout: the socket routes are long-lived.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics creates a dedicated registry with runtime collectors and the
// storefront metrics, and the handler that exposes it.
func setupMetrics() (http.Handler, *metrics.StorefrontMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewStorefrontMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), m
}

// buildHandler wires every component behind the router. The returned cleanup
// releases the Redis connection.
func buildHandler(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (http.Handler, func(), error) {
	metricsHandler, m := setupMetrics()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	cleanup := func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}

	delivery, err := bootstrap.BuildDelivery(cfg, redisClient, logger, m)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	countdownTarget, err := calendar.ParseCutoff(cfg.CountdownTarget)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("countdown target: %w", err)
	}
	allowOrigin := httpmiddleware.OriginMatcher(cfg.CORSAllowedOrigins)
	if len(cfg.CORSAllowedOrigins) == 0 {
		allowOrigin = nil
	}
	countdownHandler := countdown.NewHandler(
		countdown.New(countdownTarget, delivery.Calendar.Location()),
		allowOrigin,
		logger.Component("countdown"),
	)

	var engravingHandler *engraving.Handler
	if svc := bootstrap.BuildEngraving(cfg, logger, m); svc != nil {
		engravingHandler = engraving.NewHandler(svc, logger.Component("engraving"))
	} else {
		logger.Warn("STOREFRONT_BASE_URL not set; cart routes disabled")
	}

	// Redis expires sessions itself; the in-memory store needs a sweep.
	if store, ok := delivery.Sessions.(evicter); ok {
		go evictPeriodically(ctx, store, time.Minute)
	}

	var limiter *httpmiddleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go evictPeriodically(ctx, limiter, time.Minute)
	}

	handler := router.New(&router.Config{
		Logger:             logger,
		DeliveryHandler:    widget.NewHandler(delivery.Service, logger.Component("delivery")),
		CountdownHandler:   countdownHandler,
		EngravingHandler:   engravingHandler,
		Directory:          delivery.Directory,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
	})
	return handler, cleanup, nil
}

// evicter is implemented by in-process caches that drop stale entries.
type evicter interface {
	Evict() int
}

func evictPeriodically(ctx context.Context, e evicter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Evict()
		}
	}
}
