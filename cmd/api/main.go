package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Bahjat/linkboard/internal/pageinsight"
	"github.com/Bahjat/linkboard/internal/platform/config"
	"github.com/Bahjat/linkboard/internal/platform/logger"
	"github.com/Bahjat/linkboard/internal/store"
)

var errDatabaseRequired = errors.New("store.database_url (DATABASE_URL) is required for this command")

var rootCmd = &cobra.Command{
	Use:           "api",
	Short:         "linkboard analysis service",
	Long:          "Stores submitted URLs, analyzes them in the background, and serves the /links API.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file path (default ./linkboard.yaml when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(serveCmd, workerCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and installs the default logger.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}

	log := logger.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)
	return cfg, log, nil
}

// openStore returns the Postgres store when a database is configured and the
// in-memory store otherwise. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Repository, func(), error) {
	if cfg.Store.DatabaseURL == "" {
		log.Warn("no database configured, records are kept in memory")
		return store.NewMemory(), func() {}, nil
	}

	db, err := store.Open(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info("database connection established")
	return store.NewPostgres(db), func() { _ = db.Close() }, nil
}

func newEngine(cfg config.Config, log *slog.Logger) *pageinsight.Engine {
	a := cfg.Analyzer
	fetcher := pageinsight.NewHTTPClient(a.UserAgent)
	checker := pageinsight.NewLinkChecker(a.LinkCheckConcurrency, a.RequestsPerSecond, a.UserAgent)

	var opts []pageinsight.EngineOption
	if a.RespectRobots {
		opts = append(opts, pageinsight.WithRobots(pageinsight.NewRobotsGate(fetcher, a.UserAgent, log)))
	}
	return pageinsight.NewEngine(fetcher, checker, opts...)
}
