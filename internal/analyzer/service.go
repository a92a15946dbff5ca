package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Bahjat/linkboard/internal/lifecycle"
	"github.com/Bahjat/linkboard/internal/model"
	"github.com/Bahjat/linkboard/internal/platform/errs"
	"github.com/Bahjat/linkboard/internal/platform/requestid"
	"github.com/Bahjat/linkboard/internal/store"
)

const (
	// DefaultPageSize is used when a list request has no amount.
	DefaultPageSize = 10
	// MaxPageSize caps the amount of a list request.
	MaxPageSize = 100
	// MaxSubmitURLs caps one submission.
	MaxSubmitURLs = 500
)

// Service owns the link records: it validates requests, enforces the
// lifecycle, and runs on-demand analyses.
type Service struct {
	provider PageInsightProvider
	repo     store.Repository
	metrics  Recorder
	logger   *slog.Logger
}

// NewService creates a Service backed by the given provider and repository.
func NewService(provider PageInsightProvider, repo store.Repository, metrics Recorder, logger *slog.Logger) *Service {
	return &Service{provider: provider, repo: repo, metrics: metrics, logger: logger}
}

// List returns one page of records ordered by id.
func (s *Service) List(ctx context.Context, page, amount int) (*model.Page, error) {
	if page < 1 {
		return nil, &errs.AppError{Kind: errs.InvalidInput, Message: "Invalid page parameter"}
	}
	if amount < 1 || amount > MaxPageSize {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: fmt.Sprintf("Invalid amount parameter: must be between 1 and %d", MaxPageSize),
		}
	}

	links, total, err := s.repo.List(ctx, amount, (page-1)*amount)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	return &model.Page{
		Links: links,
		Pagination: model.Pagination{
			TotalPages:  (total + amount - 1) / amount,
			CurrentPage: page,
			PageSize:    amount,
		},
	}, nil
}

// Submit stores one created record per URL. Every URL must be an absolute
// http(s) URL.
func (s *Service) Submit(ctx context.Context, urls []string) ([]model.Link, error) {
	if len(urls) == 0 {
		return nil, &errs.AppError{Kind: errs.InvalidInput, Message: "Invalid JSON or missing URLs"}
	}
	if len(urls) > MaxSubmitURLs {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: fmt.Sprintf("At most %d URLs can be submitted at once", MaxSubmitURLs),
		}
	}
	for _, u := range urls {
		if !lifecycle.ValidURL(u) {
			return nil, &errs.AppError{
				Kind:    errs.InvalidInput,
				Message: fmt.Sprintf("Invalid URL %q: only absolute http and https URLs are accepted", u),
			}
		}
	}

	created, err := s.repo.Create(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("create links: %w", err)
	}

	s.metrics.RecordSubmitted(len(created))
	s.logger.Info("links submitted", "count", len(created), "request_id", requestid.FromContext(ctx))
	return created, nil
}

// UpdateStatus applies an operator status change. Operators may only queue a
// record for analysis (created) or halt it (stop).
func (s *Service) UpdateStatus(ctx context.Context, id int, status model.Status) (model.Link, error) {
	if status != model.StatusCreated && status != model.StatusStop {
		return model.Link{}, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "Status must be either 'created' or 'stop'",
		}
	}

	link, err := s.repo.UpdateStatus(ctx, id, status)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return model.Link{}, &errs.AppError{Kind: errs.NotFound, Message: "Record not found", Cause: err}
	case errors.Is(err, store.ErrIllegalTransition):
		return model.Link{}, &errs.AppError{
			Kind:    errs.Conflict,
			Message: fmt.Sprintf("The record's current status does not allow moving it to %s", status),
			Cause:   err,
		}
	case err != nil:
		return model.Link{}, fmt.Errorf("update link %d: %w", id, err)
	}

	s.metrics.RecordStatusUpdate(string(status))
	s.logger.Info("link status updated",
		"id", id,
		"status", status,
		"request_id", requestid.FromContext(ctx),
	)
	return link, nil
}

// Analyze delegates to the provider and logs the outcome.
func (s *Service) Analyze(ctx context.Context, targetURL string) (*model.Analysis, error) {
	logger := s.logger.With("url", targetURL, "request_id", requestid.FromContext(ctx))

	result, err := s.provider.Analyze(ctx, targetURL)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = &errs.AppError{
				Kind:    errs.Timeout,
				Message: "Analysis timed out. The target URL may be slow to respond.",
				Cause:   err,
			}
		}

		attrs := []any{"error", err}
		var appErr *errs.AppError
		if errors.As(err, &appErr) && appErr.UpstreamStatus != 0 {
			attrs = append(attrs, "target_status", appErr.UpstreamStatus)
		}
		logger.Error("analysis failed", attrs...)
		return nil, err
	}

	logger.Info("analysis complete",
		"title", result.Title,
		"html_version", result.HTMLVersion,
		"has_login_form", result.HasLoginForm,
		"internal_links", result.Internal,
		"external_links", result.External,
		"inaccessible_links", len(result.Inaccessible),
	)
	return result, nil
}
