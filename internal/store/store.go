// Package store persists link records for the analysis service.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Bahjat/linkboard/internal/model"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("store: link not found")
	// ErrIllegalTransition is returned when a status change breaks the lifecycle.
	ErrIllegalTransition = errors.New("store: illegal status transition")
)

// TimeFormat is how post_time and check_time are rendered.
const TimeFormat = time.RFC3339

// Result is the outcome of one background analysis.
type Result struct {
	// Status is model.StatusChecked or model.StatusError.
	Status   model.Status
	Analysis model.Analysis
}

// Failed builds the error Result for a page that could not be analyzed.
// statusCode is -1 when the page was not reachable at all.
func Failed(pageURL string, statusCode int) Result {
	return Result{
		Status: model.StatusError,
		Analysis: model.Analysis{
			URL:          pageURL,
			Inaccessible: []model.LinkIssue{{URL: pageURL, StatusCode: statusCode}},
		},
	}
}

// Repository is the record store behind the /links endpoints and the worker.
type Repository interface {
	// Create inserts one created record per URL and returns them in order.
	Create(ctx context.Context, urls []string) ([]model.Link, error)
	// List returns records ordered by id and the total record count.
	List(ctx context.Context, limit, offset int) ([]model.Link, int, error)
	Get(ctx context.Context, id int) (model.Link, error)
	// UpdateStatus moves a record to status if the lifecycle allows it.
	UpdateStatus(ctx context.Context, id int, status model.Status) (model.Link, error)
	// ClaimNext moves the oldest created record to pending and returns it.
	// ok is false when nothing is waiting.
	ClaimNext(ctx context.Context) (link model.Link, ok bool, err error)
	// SaveResult stores an analysis outcome for a record that is still pending.
	SaveResult(ctx context.Context, id int, res Result) error
}

func validResultStatus(s model.Status) bool {
	return s == model.StatusChecked || s == model.StatusError
}
