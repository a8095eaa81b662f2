// Package main provides the entry point for the challenge application
// backend server. It sets up the HTTP server, database connection,
// middleware and API routes.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"challengeapp/internal/config"
	"challengeapp/internal/database"
	"challengeapp/internal/handlers"
	"challengeapp/internal/observability"
	"challengeapp/internal/services"
	contextutils "challengeapp/internal/utils"
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

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "challenge-backend")
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

	logger.Info(ctx, "Starting challenge backend service", map[string]interface{}{
		"port":     cfg.Server.Port,
		"logLevel": cfg.Server.LogLevel,
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

	if err := ensureAdminUser(ctx, cfg, userService); err != nil {
		logger.Error(ctx, "Failed to ensure admin user exists", err, map[string]interface{}{
			"admin_username": cfg.Server.AdminUsername,
		})
		os.Exit(1)
	}

	router := handlers.NewRouter(cfg, userService, challengeService, matiereService, dailyChallengeService, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
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
		logger.Error(ctx, "Server failed", err)
		os.Exit(1)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Error during server shutdown", err)
		os.Exit(1)
	}

	logger.Info(ctx, "Shutdown completed successfully")
}

// ensureAdminUser creates the configured admin account on first start
func ensureAdminUser(ctx context.Context, cfg *config.Config, userService services.UserServiceInterface) error {
	if cfg.Server.AdminUsername == "" || cfg.Server.AdminPassword == "" {
		return nil
	}

	_, err := userService.GetUserByUsername(ctx, cfg.Server.AdminUsername)
	if err == nil {
		return nil
	}
	if !contextutils.IsError(err, contextutils.ErrRecordNotFound) {
		return err
	}

	_, err = userService.CreateUser(ctx, cfg.Server.AdminUsername, "", cfg.Server.AdminPassword, "admin", nil)
	if err != nil {
		return contextutils.WrapError(err, "failed to create admin user")
	}
	return nil
}
