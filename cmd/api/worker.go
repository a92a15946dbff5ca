package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Bahjat/linkboard/internal/metrics"
	"github.com/Bahjat/linkboard/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run only the background analysis worker",
	Long:  "Claims created records from the database and analyzes them. Requires a database so that it can share records with a separate serve process.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup(cmd)
		if err != nil {
			return err
		}
		if cfg.Store.DatabaseURL == "" {
			return errDatabaseRequired
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		repo, closeStore, err := openStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeStore()

		w := worker.New(repo, newEngine(cfg, log), metrics.Nop{}, log, worker.Config{
			Interval:    cfg.Worker.Interval,
			Concurrency: cfg.Worker.Concurrency,
			Timeout:     cfg.Analyzer.Timeout,
		})
		w.Start(ctx)
		return nil
	},
}
