package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Bahjat/linkboard/internal/model"
	"github.com/Bahjat/linkboard/internal/notify"
	"github.com/Bahjat/linkboard/internal/platform/errs"
)

var (
	// ErrEmptyBatch is returned by Send when nothing is staged.
	ErrEmptyBatch = errors.New("lifecycle: no URLs staged")
	// ErrActionDisabled is returned when the row action is not available.
	ErrActionDisabled = errors.New("lifecycle: action disabled for current status")
)

// Notification texts shown to the operator.
const (
	MsgStaged          = "Links added!"
	MsgSubmitted       = "Successfully submitted!"
	MsgSubmitFailed    = "Failed to submit links. Please try again."
	MsgStopped         = "Link stopped successfully"
	MsgQueued          = "Link queued for analysis successfully"
	msgUpdateFailedFmt = "Failed to update link: %s"
)

// Remote is the part of the link service the controller mutates.
type Remote interface {
	Submit(ctx context.Context, urls []string) error
	UpdateStatus(ctx context.Context, id int, status model.Status) error
}

// Refresher reloads the current page after a successful mutation.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Controller stages and submits batches and changes record statuses. Local
// records are never edited; a successful mutation triggers a refetch.
type Controller struct {
	remote   Remote
	refresh  Refresher
	notifier notify.Notifier
	logger   *slog.Logger

	mu    sync.Mutex
	batch Batch
}

// NewController returns a Controller. refresh may be nil when nothing needs
// reloading after a mutation.
func NewController(remote Remote, refresh Refresher, notifier notify.Notifier, logger *slog.Logger) *Controller {
	return &Controller{remote: remote, refresh: refresh, notifier: notifier, logger: logger}
}

// Stage adds the valid URLs in the comma-separated input to the batch.
// Blank input is ignored.
func (c *Controller) Stage(ctx context.Context, input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}

	c.mu.Lock()
	accepted := c.batch.Stage(input)
	c.mu.Unlock()

	c.logger.Debug("urls staged", "accepted", len(accepted))
	c.notifier.Notify(ctx, notify.Info, MsgStaged)
	return accepted
}

// Staged returns the URLs waiting to be sent.
func (c *Controller) Staged() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batch.URLs()
}

// Send submits the staged batch. The batch is cleared only when the service
// accepts it.
func (c *Controller) Send(ctx context.Context) error {
	urls := c.Staged()
	if len(urls) == 0 {
		return ErrEmptyBatch
	}

	if err := c.remote.Submit(ctx, urls); err != nil {
		c.logger.Error("submit failed", "count", len(urls), "error", err)
		c.notifier.Notify(ctx, notify.Error, MsgSubmitFailed)
		return fmt.Errorf("submit batch: %w", err)
	}

	c.mu.Lock()
	c.batch.Drop(len(urls))
	c.mu.Unlock()

	c.logger.Info("batch submitted", "count", len(urls))
	c.notifier.Notify(ctx, notify.Success, MsgSubmitted)
	c.reload(ctx)
	return nil
}

// Analyze re-queues link for analysis.
func (c *Controller) Analyze(ctx context.Context, link model.Link) error {
	return c.act(ctx, link, ActionAnalyze)
}

// Stop halts processing of link.
func (c *Controller) Stop(ctx context.Context, link model.Link) error {
	return c.act(ctx, link, ActionStop)
}

func (c *Controller) act(ctx context.Context, link model.Link, name string) error {
	action := ActionFor(link.Status)
	if action.Name != name || action.Disabled {
		return fmt.Errorf("%w: %s on %s record %d", ErrActionDisabled, name, link.Status, link.ID)
	}
	return c.SetStatus(ctx, link.ID, action.Target)
}

// SetStatus sends exactly one status update for record id. On success the
// current page is refetched; on failure nothing local changes.
func (c *Controller) SetStatus(ctx context.Context, id int, status model.Status) error {
	logger := c.logger.With("id", id, "status", status)

	if err := c.remote.UpdateStatus(ctx, id, status); err != nil {
		logger.Error("status update failed", "error", err)
		c.notifier.Notify(ctx, notify.Error, fmt.Sprintf(msgUpdateFailedFmt, failureReason(err)))
		return fmt.Errorf("update link %d: %w", id, err)
	}

	logger.Info("status updated")
	msg := MsgQueued
	if status == model.StatusStop {
		msg = MsgStopped
	}
	c.notifier.Notify(ctx, notify.Success, msg)
	c.reload(ctx)
	return nil
}

func (c *Controller) reload(ctx context.Context) {
	if c.refresh == nil {
		return
	}
	// The refresher reports its own failures to the operator.
	if err := c.refresh.Refresh(ctx); err != nil {
		c.logger.Warn("refresh after mutation failed", "error", err)
	}
}

func failureReason(err error) string {
	var appErr *errs.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "Unknown error"
}
