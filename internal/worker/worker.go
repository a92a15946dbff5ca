// Package worker analyzes queued link records in the background.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Bahjat/linkboard/internal/metrics"
	"github.com/Bahjat/linkboard/internal/model"
	"github.com/Bahjat/linkboard/internal/platform/errs"
	"github.com/Bahjat/linkboard/internal/store"
)

// Analyzer runs one page analysis.
type Analyzer interface {
	Analyze(ctx context.Context, targetURL string) (*model.Analysis, error)
}

// Recorder receives per-analysis metrics.
type Recorder interface {
	RecordAnalysis(outcome string, d time.Duration)
}

// Config drives the polling loop.
type Config struct {
	// Interval is the pause between cycles.
	Interval time.Duration
	// Concurrency is how many records one cycle claims and analyzes at once.
	Concurrency int
	// Timeout bounds a single analysis.
	Timeout time.Duration
}

// DefaultConfig returns the worker defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    5 * time.Second,
		Concurrency: 2,
		Timeout:     60 * time.Second,
	}
}

// Worker claims created records, analyzes them, and stores the outcome.
type Worker struct {
	repo     store.Repository
	analyzer Analyzer
	metrics  Recorder
	logger   *slog.Logger
	config   Config
}

// New returns a Worker. Non-positive config values fall back to
// DefaultConfig.
func New(repo store.Repository, analyzer Analyzer, recorder Recorder, logger *slog.Logger, config Config) *Worker {
	def := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Concurrency <= 0 {
		config.Concurrency = def.Concurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	return &Worker{
		repo:     repo,
		analyzer: analyzer,
		metrics:  recorder,
		logger:   logger,
		config:   config,
	}
}

// Start runs a cycle immediately and then on every tick until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.logger.Info("analysis worker started",
		slog.Duration("interval", w.config.Interval),
		slog.Int("concurrency", w.config.Concurrency),
	)

	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("analysis cycle failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			w.logger.Info("analysis worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce claims up to Concurrency created records, analyzes them in
// parallel, and returns how many were processed.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	var claimed []model.Link
	for range w.config.Concurrency {
		link, ok, err := w.repo.ClaimNext(ctx)
		if err != nil {
			w.runAll(ctx, claimed)
			return len(claimed), fmt.Errorf("claim next link: %w", err)
		}
		if !ok {
			break
		}
		claimed = append(claimed, link)
	}

	w.runAll(ctx, claimed)
	return len(claimed), nil
}

func (w *Worker) runAll(ctx context.Context, links []model.Link) {
	var wg sync.WaitGroup
	for _, link := range links {
		wg.Go(func() { w.process(ctx, link) })
	}
	wg.Wait()
}

func (w *Worker) process(ctx context.Context, link model.Link) {
	logger := w.logger.With(slog.Int("id", link.ID), slog.String("url", link.URL))

	actx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	start := time.Now()
	analysis, err := w.analyzer.Analyze(actx, link.URL)
	elapsed := time.Since(start)

	var res store.Result
	outcome := metrics.OutcomeChecked
	if err != nil {
		outcome = metrics.OutcomeError
		res = store.Failed(link.URL, failureStatus(err))
		logger.Warn("analysis failed",
			slog.String("kind", errs.KindOf(err).String()),
			slog.String("error", err.Error()),
		)
	} else {
		res = store.Result{Status: model.StatusChecked, Analysis: *analysis}
	}

	// The record is pending; it has to leave that state even when the
	// worker is shutting down.
	sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer scancel()
	if err := w.repo.SaveResult(sctx, link.ID, res); err != nil {
		outcome = metrics.OutcomeSkipped
		if errors.Is(err, store.ErrIllegalTransition) || errors.Is(err, store.ErrNotFound) {
			logger.Info("analysis result discarded", slog.String("reason", err.Error()))
		} else {
			logger.Error("failed to save analysis result", slog.String("error", err.Error()))
		}
	}

	w.metrics.RecordAnalysis(outcome, elapsed)
	logger.Info("analysis finished",
		slog.String("outcome", outcome),
		slog.Duration("elapsed", elapsed),
	)
}

// failureStatus is the status code stored for a page that could not be
// analyzed: the upstream status when there was one, otherwise -1.
func failureStatus(err error) int {
	var appErr *errs.AppError
	if errors.As(err, &appErr) && appErr.UpstreamStatus != 0 {
		return appErr.UpstreamStatus
	}
	return -1
}
