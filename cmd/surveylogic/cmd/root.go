package cmd

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/solatis/surveylogic/internal/core/db"
	"github.com/solatis/surveylogic/internal/core/logging"
)

// Version is the surveylogic release.
const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:           "surveylogic",
	Short:         "Survey skip-logic engine",
	Long:          `surveylogic evaluates survey branching rules and serves respondent navigation over gRPC.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger from the persistent flags.
func newLogger() (zerolog.Logger, error) {
	logger, err := logging.New(logLevel, logFormat)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid logging flags: %w", err)
	}
	return logger, nil
}

// openDatabase opens --db-url. Callers close the returned handle.
func openDatabase() (*sqlx.DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("--db-url required")
	}
	database, err := db.Open(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// openStore opens --db-url and loads the named queries.
func openStore(logger zerolog.Logger) (*sqlx.DB, *db.Queries, *db.Store, error) {
	database, err := openDatabase()
	if err != nil {
		return nil, nil, nil, err
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, queries, db.NewStore(database, queries, logger), nil
}
