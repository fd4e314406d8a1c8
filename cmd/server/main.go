package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bike-dashboard/internal/config"
	"bike-dashboard/internal/dataset"
	"bike-dashboard/internal/handlers"
	"bike-dashboard/internal/middleware"
	"bike-dashboard/internal/presenter"
	"bike-dashboard/internal/repository"
	"bike-dashboard/internal/services"
	"bike-dashboard/internal/watcher"
	"bike-dashboard/pkg/database"
	"bike-dashboard/pkg/logging"
	"bike-dashboard/pkg/metrics"
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

	logger := logging.NewStructuredLogger("bike-dashboard", version, logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting bike dashboard server", logging.Fields{
		"version":      version,
		"server_host":  cfg.Server.Host,
		"server_port":  cfg.Server.Port,
		"data_source":  cfg.Data.Source,
		"data_path":    cfg.Data.Path,
		"hourly_order": cfg.Dashboard.HourlyOrder,
	})

	metricsCollector := metrics.NewCollector("bike_dashboard", prometheus.DefaultRegisterer)

	// Record source
	var (
		source  repository.RecordSource
		db      *database.PostgresDB
		dbCheck handlers.HealthChecker
	)
	switch cfg.Data.Source {
	case config.SourcePostgres:
		db, err = database.NewPostgresDB(cfg.Database.PoolConfig(), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{
				"db_host": cfg.Database.Host,
				"db_name": cfg.Database.Name,
			}, err)
		}
		defer db.Close()
		dbCheck = db
		source = repository.NewPostgresSource(repository.NewRentalRepository(db, logger, metricsCollector), logger)
	default:
		source = repository.NewCSVSource(cfg.Data.Path, cfg.Data.DelimiterRune(), logger)
	}

	// Initial load; the server does not start without data
	store := dataset.NewStore(nil)
	loader := watcher.NewLoader(source, store, logger, metricsCollector)
	if err := loader.Load(ctx); err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to load rental data", logging.Fields{
			"source": source.Name(),
		}, err)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	var fileWatcher *watcher.Watcher
	if cfg.Data.Watch && cfg.Data.Source == config.SourceCSV {
		fileWatcher, err = watcher.New(cfg.Data.Path, loader, cfg.Data.WatchDebounce, logger)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to watch data file", logging.Fields{
				"path": cfg.Data.Path,
			}, err)
		}
		go func() {
			if err := fileWatcher.Run(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error(ctx, "[WATCH_ERROR] File watcher stopped", logging.Fields{}, err)
			}
		}()
	}

	// Services and handlers
	dashboardService := services.NewDashboardService(store, logger, metricsCollector)
	view := presenter.New(presenter.Options{
		Title:       cfg.Dashboard.Title,
		HourlyOrder: cfg.Dashboard.HourlyOrder,
	})
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, view, dbCheck, logger, metricsCollector)

	// Setup router
	router := mux.NewRouter()
	router.Use(
		middleware.RealIP,
		middleware.RequestID,
		middleware.AccessLog(logger, metricsCollector),
		middleware.Recoverer(logger),
	)
	if cfg.Server.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst, logger)
		router.Use(limiter.Handler)
	}

	dashboardHandler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
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

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{
		"timeout": cfg.Server.ShutdownTimeout.String(),
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	stopWatch()
	if fileWatcher != nil {
		fileWatcher.Close()
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
