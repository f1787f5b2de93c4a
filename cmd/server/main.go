package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"energy-dashboard/internal/client"
	"energy-dashboard/internal/config"
	"energy-dashboard/internal/handlers"
	"energy-dashboard/internal/middleware"
	"energy-dashboard/internal/scheduler"
	"energy-dashboard/internal/services"
	"energy-dashboard/internal/source"
	"energy-dashboard/pkg/logging"
	"energy-dashboard/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("energy-api", version, logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting energy dashboard server", logging.Fields{
		"version":     version,
		"environment": cfg.Environment,
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"backend":     cfg.Sources.Backend,
		"timezone":    cfg.Sources.Timezone,
	})

	metricsCollector := metrics.NewCollector("energy_dashboard")

	loader, closeLoader, err := source.FromConfig(cfg, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to initialize source backend", logging.Fields{
			"backend": cfg.Sources.Backend,
		}, err)
	}
	defer closeLoader()

	app, err := newApp(cfg, loader, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to build application", logging.Fields{}, err)
	}

	if app.warmer != nil {
		if err := app.warmer.Start(); err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to start cache warmer", logging.Fields{}, err)
		}
		defer app.warmer.Stop()
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      app.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}

type app struct {
	handler http.Handler
	// warmer is nil unless the dashboard reads from a remote API
	warmer *scheduler.Warmer
}

// newApp wires the merge service, the dashboard data source and the middleware chain
func newApp(cfg *config.Config, loader source.Loader, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	energyService := services.NewEnergyService(loader, loc, logger, metricsCollector)

	var (
		dashboard handlers.GraphDataProvider = energyService
		warmer    *scheduler.Warmer
	)
	if cfg.Dashboard.APIBaseURL != "" {
		apiClient := client.New(client.Config{
			BaseURL:    cfg.Dashboard.APIBaseURL,
			Revalidate: cfg.Dashboard.Revalidate,
			Timeout:    cfg.Sources.FetchTimeout,
			MaxRetries: cfg.Sources.MaxRetries,
		}, logger, metricsCollector)
		dashboard = apiClient
		if cfg.Dashboard.WarmInterval > 0 {
			warmer = scheduler.NewWarmer(apiClient, cfg.Dashboard.WarmInterval, logger)
		}
	}

	opts := handlers.Options{
		Location:   loc,
		Revalidate: cfg.Dashboard.Revalidate,
		Backend:    loader.Backend(),
	}
	if hc, ok := loader.(source.HealthChecker); ok {
		opts.HealthCheck = hc.HealthCheck
	}

	statsService := services.NewStatisticsService(energyService, loc, logger, metricsCollector)
	energyHandler := handlers.NewEnergyHandler(energyService, dashboard, statsService, opts, logger, metricsCollector)

	router := mux.NewRouter()
	router.Use(middleware.AccessLog(logger, metricsCollector))
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	energyHandler.RegisterRoutes(router)

	var h http.Handler = router
	h = gzhttp.GzipHandler(h)
	h = middleware.RequestID(h)
	h = middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst, logger, metricsCollector)(h)
	h = middleware.CORS(cfg.Server.CORSOrigins)(h)
	h = middleware.Recovery(logger)(h)

	return &app{handler: h, warmer: warmer}, nil
}
