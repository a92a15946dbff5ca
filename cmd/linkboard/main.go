package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/Bahjat/linkboard/internal/linkapi"
	"github.com/Bahjat/linkboard/internal/platform/config"
	"github.com/Bahjat/linkboard/internal/platform/logger"
)

var rootCmd = &cobra.Command{
	Use:   "linkboard",
	Short: "Operator tool for the link analysis service",
	Long: `linkboard submits URLs for analysis and reviews the results, either in a
browser dashboard (serve) or straight from the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file path (default ./linkboard.yaml when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().String("api-url", "", "Override the analysis service URL")

	rootCmd.AddCommand(serveCmd, listCmd, submitCmd, analyzeCmd, stopCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration, installs the default logger, and builds the
// service client. Logs go to stderr so that command output stays clean.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, *linkapi.Client, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if apiURL, _ := cmd.Flags().GetString("api-url"); apiURL != "" {
		cfg.Dashboard.APIURL = apiURL
	}

	log := logger.New(os.Stderr, cfg.LogLevel)
	slog.SetDefault(log)

	client, err := linkapi.NewClient(cfg.Dashboard.APIURL, &http.Client{Timeout: cfg.Dashboard.RequestTimeout}, log)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, log, client, nil
}
