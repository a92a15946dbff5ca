package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Bahjat/linkboard/internal/lifecycle"
	"github.com/Bahjat/linkboard/internal/model"
)

// Memory is a Repository kept in process memory.
type Memory struct {
	mu     sync.Mutex
	links  []model.Link
	nextID int
	now    func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{nextID: 1, now: time.Now}
}

func (m *Memory) stamp() string {
	return m.now().UTC().Format(TimeFormat)
}

// Create stores one created record per URL, in order.
func (m *Memory) Create(_ context.Context, urls []string) ([]model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	created := make([]model.Link, 0, len(urls))
	for _, u := range urls {
		l := model.Link{
			ID:                  m.nextID,
			URL:                 u,
			PostTime:            m.stamp(),
			Status:              model.StatusCreated,
			InaccessibleDetails: []model.LinkIssue{},
		}
		m.nextID++
		m.links = append(m.links, l)
		created = append(created, clone(l))
	}
	return created, nil
}

// List returns up to limit records after offset, by ascending id, and the total count.
func (m *Memory) List(_ context.Context, limit, offset int) ([]model.Link, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := len(m.links)
	start := min(max(offset, 0), total)
	end := min(start+max(limit, 0), total)

	out := make([]model.Link, 0, end-start)
	for _, l := range m.links[start:end] {
		out = append(out, clone(l))
	}
	return out, total, nil
}

// Get returns the record with id or ErrNotFound.
func (m *Memory) Get(_ context.Context, id int) (model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, err := m.index(id)
	if err != nil {
		return model.Link{}, err
	}
	return clone(m.links[i]), nil
}

// UpdateStatus moves the record to status if the lifecycle allows it.
func (m *Memory) UpdateStatus(_ context.Context, id int, status model.Status) (model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, err := m.index(id)
	if err != nil {
		return model.Link{}, err
	}
	l := &m.links[i]
	if !lifecycle.CanTransition(l.Status, status) {
		return model.Link{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, l.Status, status)
	}
	l.Status = status
	return clone(*l), nil
}

// ClaimNext marks the oldest created record pending and returns it.
func (m *Memory) ClaimNext(_ context.Context) (model.Link, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.links {
		l := &m.links[i]
		if l.Status != model.StatusCreated {
			continue
		}
		l.Status = model.StatusPending
		l.CheckTime = m.stamp()
		return clone(*l), true, nil
	}
	return model.Link{}, false, nil
}

// SaveResult records the analysis outcome of a pending record.
func (m *Memory) SaveResult(_ context.Context, id int, res Result) error {
	if !validResultStatus(res.Status) {
		return fmt.Errorf("%w: result status %s", ErrIllegalTransition, res.Status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i, err := m.index(id)
	if err != nil {
		return err
	}
	l := &m.links[i]
	if !lifecycle.CanTransition(l.Status, res.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, l.Status, res.Status)
	}

	a := res.Analysis
	l.Status = res.Status
	l.CheckTime = m.stamp()
	l.Title = a.Title
	l.HTMLVersion = a.HTMLVersion
	l.HeadingsCount = a.Headings
	l.InternalLinks = a.Internal
	l.ExternalLinks = a.External
	l.InaccessibleLinks = len(a.Inaccessible)
	l.InaccessibleDetails = slices.Clone(a.Inaccessible)
	if l.InaccessibleDetails == nil {
		l.InaccessibleDetails = []model.LinkIssue{}
	}
	l.HasLoginForm = a.HasLoginForm
	return nil
}

func (m *Memory) index(id int) (int, error) {
	i, found := slices.BinarySearchFunc(m.links, id, func(l model.Link, id int) int { return l.ID - id })
	if !found {
		return 0, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return i, nil
}

func clone(l model.Link) model.Link {
	l.InaccessibleDetails = slices.Clone(l.InaccessibleDetails)
	if l.InaccessibleDetails == nil {
		l.InaccessibleDetails = []model.LinkIssue{}
	}
	return l
}
