// Package main provides the entry point for the daily challenge email
// worker. It runs the send loop and a small status HTTP listener.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"challengeapp/internal/config"
	"challengeapp/internal/database"
	"challengeapp/internal/observability"
	"challengeapp/internal/services"
	"challengeapp/internal/version"
	"challengeapp/internal/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "challenge-worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if tp != nil {
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error()})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error()})
			}
		}
	}()

	logger.Info(ctx, "Starting challenge worker", map[string]interface{}{
		"port": cfg.Server.WorkerPort,
	})

	db, err := database.NewManager(logger).InitDBWithConfig(cfg.Database)
	if err != nil {
		logger.Error(ctx, "Failed to initialize database", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error(ctx, "Failed to close database", err)
		}
	}()

	userService := services.NewUserService(db, logger)
	challengeService := services.NewChallengeService(db, logger)
	ledgerService := services.NewLedgerService(db, logger)
	matiereService := services.NewMatiereService(db, cfg, logger)
	dailyChallengeService := services.NewDailyChallengeService(cfg, logger, challengeService, ledgerService, matiereService)
	emailService := services.NewEmailService(cfg, logger, db)

	w := worker.NewWorker(cfg, logger, userService, dailyChallengeService, emailService)
	go w.Start(ctx)

	// Status listener for health checks and version reporting.
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "worker"})
	})
	router.GET("/v1/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":   "worker",
			"version":   version.Version,
			"commit":    version.Commit,
			"buildTime": version.BuildTime,
		})
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.WorkerPort,
		Handler:           otelhttp.NewHandler(router, "worker-status"),
		ReadHeaderTimeout: config.DefaultHTTPTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-shutdownCh:
		logger.Info(ctx, "Received shutdown signal, shutting down gracefully")
	case err := <-serverErr:
		logger.Error(ctx, "Status listener failed", err)
		os.Exit(1)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.WorkerShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Error during status listener shutdown", err)
	}

	logger.Info(ctx, "Worker shutdown completed")
}
