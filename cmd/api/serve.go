package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Bahjat/linkboard/internal/analyzer"
	"github.com/Bahjat/linkboard/internal/metrics"
	"github.com/Bahjat/linkboard/internal/platform/httpserver"
	"github.com/Bahjat/linkboard/internal/platform/middleware"
	"github.com/Bahjat/linkboard/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the /links API and run the analysis worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup(cmd)
		if err != nil {
			return err
		}
		noWorker, _ := cmd.Flags().GetBool("no-worker")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		repo, closeStore, err := openStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeStore()

		reg := prometheus.NewRegistry()
		collector := metrics.NewCollector(reg)
		engine := newEngine(cfg, log)

		svc := analyzer.NewService(engine, repo, collector, log)
		transport := analyzer.NewTransport(svc, cfg.Analyzer.Timeout, log)

		r := chi.NewRouter()
		r.Use(middleware.RequestID, middleware.Logging(log), middleware.Recovery(log))
		transport.RegisterRoutes(r)
		r.Handle("/metrics", metrics.Handler(reg))

		if !noWorker {
			w := worker.New(repo, engine, collector, log, worker.Config{
				Interval:    cfg.Worker.Interval,
				Concurrency: cfg.Worker.Concurrency,
				Timeout:     cfg.Analyzer.Timeout,
			})
			go w.Start(ctx)
		}

		server := &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      cfg.Analyzer.Timeout + 15*time.Second,
			IdleTimeout:       60 * time.Second,
		}
		return httpserver.Run(ctx, server, cfg.Server.ShutdownTimeout, log)
	},
}

func init() {
	serveCmd.Flags().Bool("no-worker", false, "Serve the API without the background analysis worker")
}
