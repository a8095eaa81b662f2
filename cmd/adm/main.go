// Package main provides the entry point for the challenge application admin
// CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"challengeapp/cmd/adm/commands"
	"challengeapp/internal/config"
	"challengeapp/internal/database"
	"challengeapp/internal/observability"
	"challengeapp/internal/services"

	"github.com/spf13/cobra"
)

func main() {
	ctx := context.Background()

	// Set default config file if not already set
	if os.Getenv("CHALLENGE_CONFIG_FILE") == "" {
		defaultPaths := []string{
			"../config.yaml",
			"../../config.yaml",
			"config.yaml",
		}
		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				if err := os.Setenv("CHALLENGE_CONFIG_FILE", path); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to set CHALLENGE_CONFIG_FILE: %v\n", err)
					os.Exit(1)
				}
				break
			}
		}
	}

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Keep the CLI quiet and offline: no exporters, errors only.
	cfg.Server.LogLevel = "error"
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "challenge-admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if tp != nil {
			if err := tp.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error()})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error()})
			}
		}
	}()

	db, err := database.NewManager(logger).InitDBWithoutMigrations(cfg.Database)
	if err != nil {
		logger.Error(ctx, "Failed to connect to database", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Failed to close database connection", map[string]interface{}{"error": err.Error()})
		}
	}()

	userService := services.NewUserService(db, logger)
	challengeService := services.NewChallengeService(db, logger)
	ledgerService := services.NewLedgerService(db, logger)
	matiereService := services.NewMatiereService(db, cfg, logger)

	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Challenge Application Administration Tool",
		Long: `Challenge Application Administration Tool

A CLI tool for administering the challenge application. Provides commands
for user management, the challenge catalog, subjects and the rotation
ledger.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.UserCommands(userService, logger))
	rootCmd.AddCommand(commands.ChallengeCommands(challengeService, logger))
	rootCmd.AddCommand(commands.LedgerCommands(ledgerService, logger))
	rootCmd.AddCommand(commands.MatiereCommands(matiereService, logger))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
