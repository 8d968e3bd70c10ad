package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tamrielmeta/buildscry/internal/adapters/http/api"
	"github.com/tamrielmeta/buildscry/internal/adapters/http/swagger"
	app "github.com/tamrielmeta/buildscry/internal/app"
	"github.com/tamrielmeta/buildscry/internal/config"
	"github.com/tamrielmeta/buildscry/pkg/logger"
	"github.com/tamrielmeta/buildscry/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// The service registry starts empty; add the standard Go and process
	// collectors next to the scan metrics.
	metrics.GetRegistry().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't up yet; initialization errors go to stderr.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Initialize logging
	if err := logger.Init(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Create and start the scanning service with configuration options
	svc := app.New(
		app.WithLogger(loggerInstance),
		app.WithCredentials(cfg.APIClientID, cfg.APIClientSecret),
		app.WithTrials(cfg.Trials),
		app.WithTopLogs(cfg.TopLogs),
		app.WithDamageThreshold(cfg.DamageThreshold),
		app.WithSupportThreshold(cfg.SupportThreshold),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithScanInterval(time.Duration(cfg.ScanIntervalMinutes)*time.Minute),
		app.WithCacheDir(cfg.CacheDir),
		app.WithCacheSize(cfg.CacheSize),
		app.WithRateLimit(cfg.RateRPS, cfg.RateBurst),
		app.WithOutputPath(cfg.OutputPath),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer svc.Stop()

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register the API reference under /api-docs
	swagger.Register(ctx, mux)

	// Register the read API routes with the service dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			stop()
		}
	}()

	// Prometheus scrapes a separate listener so the read API stays clean.
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, loggerInstance, stop)

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			loggerInstance.Error(ctx, "metrics server shutdown failed", logger.Error(err))
		}
	}

	loggerInstance.Info(ctx, "server stopped")
}

// startMetricsServer exposes the Prometheus registry on its own listener.
// An empty addr disables the endpoint.
func startMetricsServer(ctx context.Context, addr string, log logger.Logger, stop context.CancelFunc) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting metrics server", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("metrics server failed: " + err.Error() + "\n")
			stop()
		}
	}()

	return srv
}

// startServiceMetricsUpdater keeps the queue and store gauges current while
// the service runs.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval) // Update every 5 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.Stats()

	if depth, ok := stats["queue_depth"].(int); ok {
		metrics.UpdateQueueDepth(depth)

		if capacity, ok := stats["queue_capacity"].(int); ok {
			metrics.UpdateQueueCapacity(capacity)
			if capacity > 0 {
				metrics.UpdateQueueUtilization(float64(depth) / float64(capacity))
			}
		}
	}

	if builds, ok := stats["builds_stored"].(int); ok {
		metrics.UpdateStoreBuilds(builds)
	}
}
