// Package dashboard serves the operator's results table: it keeps the view
// state, caches the current page of records, and renders it.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Bahjat/linkboard/internal/lifecycle"
	"github.com/Bahjat/linkboard/internal/metrics"
	"github.com/Bahjat/linkboard/internal/model"
	"github.com/Bahjat/linkboard/internal/notify"
	"github.com/Bahjat/linkboard/internal/pagination"
	"github.com/Bahjat/linkboard/internal/platform/errs"
	"github.com/Bahjat/linkboard/internal/view"
)

// MsgFetchFailed is shown when a page cannot be loaded.
const MsgFetchFailed = "Failed to fetch links data. Please try again later."

// PageFetcher loads one page of records from the service.
type PageFetcher interface {
	FetchPage(ctx context.Context, page, amount int) (*model.Page, error)
}

// Recorder receives dashboard metrics.
type Recorder interface {
	RecordPageFetch(outcome string)
	RecordStaleResponse()
}

// Row is one visible record with the action offered for it.
type Row struct {
	model.Link
	Action lifecycle.Action `json:"action"`
}

// Snapshot is everything needed to draw the table at one instant.
type Snapshot struct {
	State      view.State        `json:"state"`
	Rows       []Row             `json:"rows"`
	Fetched    int               `json:"fetched"`
	TotalPages int               `json:"total_pages"`
	Pages      []pagination.Item `json:"pages"`
	HasPrev    bool              `json:"has_prev"`
	HasNext    bool              `json:"has_next"`
	Loaded     bool              `json:"loaded"`
}

// Session owns the view state and the cached page for one operator. The
// cache is replaced as a whole on every successful fetch; responses that
// arrive after a newer one has been applied are dropped.
type Session struct {
	fetcher  PageFetcher
	registry *view.Registry
	notifier notify.Notifier
	metrics  Recorder
	logger   *slog.Logger

	mu         sync.Mutex
	state      view.State
	links      []model.Link
	totalPages int
	loaded     bool

	// requested is the (page, size) of the most recently issued fetch.
	requestedPage, requestedSize int
	issued, applied              uint64
}

// NewSession returns a Session with the default view state. Nothing is
// fetched until Refresh is called.
func NewSession(fetcher PageFetcher, notifier notify.Notifier, recorder Recorder, logger *slog.Logger) *Session {
	return &Session{
		fetcher:  fetcher,
		registry: view.Fields,
		notifier: notifier,
		metrics:  recorder,
		logger:   logger,
		state:    view.DefaultState(),
		links:    []model.Link{},
	}
}

// Refresh reloads the current page.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	page, size := s.state.Page, s.state.PageSize
	s.mu.Unlock()
	return s.fetch(ctx, page, size, nil)
}

// rollback is what update restores when its fetch fails.
type rollback struct {
	state                        view.State
	requestedPage, requestedSize int
}

func (s *Session) fetch(ctx context.Context, page, size int, undo *rollback) error {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.requestedPage, s.requestedSize = page, size
	s.mu.Unlock()

	logger := s.logger.With("page", page, "amount", size, "seq", seq)
	p, err := s.fetcher.FetchPage(ctx, page, size)

	s.mu.Lock()
	stale := seq < s.applied
	if err == nil && !stale {
		s.links = p.Links
		s.totalPages = p.Pagination.TotalPages
		s.loaded = true
		s.applied = seq
	}
	// A newer request owns the state once it has been issued.
	if err != nil && !stale && undo != nil && seq == s.issued {
		s.state = undo.state
		s.requestedPage, s.requestedSize = undo.requestedPage, undo.requestedSize
	}
	s.mu.Unlock()

	switch {
	case stale:
		// Superseded; a failure here is not worth a notice.
		s.metrics.RecordStaleResponse()
		logger.Debug("stale page response dropped")
		return nil
	case err != nil:
		s.metrics.RecordPageFetch(metrics.OutcomeFailed)
		logger.Error("page fetch failed", "error", err)
		s.notifier.Notify(ctx, notify.Error, MsgFetchFailed)
		return fmt.Errorf("fetch page %d: %w", page, err)
	}

	s.metrics.RecordPageFetch(metrics.OutcomeOK)
	logger.Debug("page loaded", "records", len(p.Links), "total_pages", p.Pagination.TotalPages)
	return nil
}

// update applies change to the state and refetches when the page or page
// size it asks for differs from the last request. A failed refetch restores
// the state from before the change.
func (s *Session) update(ctx context.Context, change func(view.State) view.State) error {
	s.mu.Lock()
	undo := &rollback{state: s.state, requestedPage: s.requestedPage, requestedSize: s.requestedSize}
	s.state = change(s.state)
	next := s.state
	refetch := !s.loaded || next.Page != s.requestedPage || next.PageSize != s.requestedSize
	s.mu.Unlock()

	if !refetch {
		return nil
	}
	return s.fetch(ctx, next.Page, next.PageSize, undo)
}

// SetFilter sets the column filter for path; an empty pattern removes it.
func (s *Session) SetFilter(ctx context.Context, path, pattern string) error {
	return s.update(ctx, func(st view.State) view.State { return st.WithFilter(path, pattern) })
}

// SetSearch replaces the global search query.
func (s *Session) SetSearch(ctx context.Context, query string) error {
	return s.update(ctx, func(st view.State) view.State { return st.WithSearch(query) })
}

// SetPageSize switches to n records per page and goes back to page 1.
func (s *Session) SetPageSize(ctx context.Context, n int) error {
	if !view.ValidPageSize(n) {
		return &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: fmt.Sprintf("Page size must be one of %v", view.PageSizes),
		}
	}
	return s.update(ctx, func(st view.State) view.State {
		next, _ := st.WithPageSize(n)
		return next
	})
}

// GoTo moves to page p, clamped to the known page range.
func (s *Session) GoTo(ctx context.Context, p int) error {
	return s.update(ctx, func(st view.State) view.State {
		return st.WithPage(pagination.Clamp(p, s.totalPages))
	})
}

// Prev moves one page back.
func (s *Session) Prev(ctx context.Context) error {
	return s.update(ctx, func(st view.State) view.State {
		return st.WithPage(pagination.Prev(st.Page))
	})
}

// Next moves one page forward.
func (s *Session) Next(ctx context.Context) error {
	return s.update(ctx, func(st view.State) view.State {
		return st.WithPage(pagination.Next(st.Page, s.totalPages))
	})
}

// ToggleSort cycles the sort on field. Sorting is local to the cached page.
func (s *Session) ToggleSort(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.WithSort(field)
}

// State returns the current view state.
func (s *Session) State() view.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Link returns the cached record with id.
func (s *Session) Link(id int) (model.Link, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		if l.ID == id {
			return l, true
		}
	}
	return model.Link{}, false
}

// Snapshot runs the view pipeline over the cached page.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	state := s.state.Clone()
	links := s.links
	total := s.totalPages
	loaded := s.loaded
	s.mu.Unlock()

	visible := view.Apply(s.registry, links, state)
	rows := make([]Row, 0, len(visible))
	for _, l := range visible {
		rows = append(rows, Row{Link: l, Action: lifecycle.ActionFor(l.Status)})
	}

	return Snapshot{
		State:      state,
		Rows:       rows,
		Fetched:    len(links),
		TotalPages: total,
		Pages:      pagination.Pages(state.Page, total),
		HasPrev:    pagination.HasPrev(state.Page),
		HasNext:    pagination.HasNext(state.Page, total),
		Loaded:     loaded,
	}
}
