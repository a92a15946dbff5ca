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

	"github.com/Bahjat/linkboard/internal/dashboard"
	"github.com/Bahjat/linkboard/internal/lifecycle"
	"github.com/Bahjat/linkboard/internal/metrics"
	"github.com/Bahjat/linkboard/internal/notify"
	"github.com/Bahjat/linkboard/internal/platform/httpserver"
	"github.com/Bahjat/linkboard/internal/platform/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the results dashboard",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, client, err := setup(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		collector := metrics.NewCollector(reg)

		notices := notify.NewBuffer(cfg.Dashboard.NoticeLimit)
		notifier := notify.Multi{notices, notify.NewLog(log)}

		session := dashboard.NewSession(client, notifier, collector, log)
		controller := lifecycle.NewController(client, session, notifier, log)
		transport, err := dashboard.NewTransport(session, controller, notices, log)
		if err != nil {
			return err
		}

		r := chi.NewRouter()
		r.Use(middleware.RequestID, middleware.Logging(log), middleware.Recovery(log))
		transport.RegisterRoutes(r)
		r.Handle("/metrics", metrics.Handler(reg))

		server := &http.Server{
			Addr:              ":" + cfg.Dashboard.Port,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      cfg.Dashboard.RequestTimeout + 15*time.Second,
			IdleTimeout:       60 * time.Second,
		}
		return httpserver.Run(ctx, server, cfg.Server.ShutdownTimeout, log)
	},
}
