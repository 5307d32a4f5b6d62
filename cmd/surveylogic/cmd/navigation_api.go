package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solatis/surveylogic/internal/core/api"
	"github.com/solatis/surveylogic/internal/core/auth"
	"github.com/solatis/surveylogic/internal/core/config"
	"github.com/solatis/surveylogic/internal/core/db"
	"github.com/solatis/surveylogic/internal/core/server"
)

// requiredMigration must be applied before the API can authenticate callers.
const requiredMigration = "002_api_keys.sql"

var navigationAPICmd = &cobra.Command{
	Use:   "navigation-api",
	Short: "Start gRPC navigation API service",
	RunE:  runNavigationAPI,
}

func init() {
	rootCmd.AddCommand(navigationAPICmd)
	navigationAPICmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	navigationAPICmd.Flags().Int("port", 50061, "gRPC server port")
}

func runNavigationAPI(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	logger, err := newLogger()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("host") {
		host, _ := cmd.Flags().GetString("host")
		cfg.Host = host
	}
	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		cfg.Port = port
	}

	database, queries, store, err := openStore(logger)
	if err != nil {
		return err
	}
	defer database.Close()

	applied, err := db.IsApplied(database, requiredMigration)
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	if !applied {
		return fmt.Errorf("migration %s not applied - run 'surveylogic migrate up' first", requiredMigration)
	}

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set SL_HMAC_SECRET environment variable)")
	}

	authenticator := auth.NewAuthenticator(secrets, queries, logger)

	service, err := api.NewNavigationService(store, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(cfg, service, authenticator, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info().
		Str("version", Version).
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Int("secrets", len(secrets)).
		Msg("starting navigation API")

	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
		return grpcServer.Shutdown(ctx)
	}
}
