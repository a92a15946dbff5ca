package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bahjat/linkboard/internal/model"
	"github.com/Bahjat/linkboard/internal/notify"
	"github.com/Bahjat/linkboard/internal/platform/errs"
	"github.com/Bahjat/linkboard/internal/platform/logger"
)

type statusCall struct {
	id     int
	status model.Status
}

type fakeRemote struct {
	submitted [][]string
	updates   []statusCall
	err       error
}

func (f *fakeRemote) Submit(_ context.Context, urls []string) error {
	f.submitted = append(f.submitted, urls)
	return f.err
}

func (f *fakeRemote) UpdateStatus(_ context.Context, id int, status model.Status) error {
	f.updates = append(f.updates, statusCall{id, status})
	return f.err
}

type countingRefresher struct{ calls int }

func (r *countingRefresher) Refresh(context.Context) error {
	r.calls++
	return nil
}

func newController(remote *fakeRemote) (*Controller, *countingRefresher, *notify.Recorder) {
	ref := &countingRefresher{}
	rec := &notify.Recorder{}
	return NewController(remote, ref, rec, logger.Discard()), ref, rec
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.Status
		want     bool
	}{
		{model.StatusCreated, model.StatusPending, true},
		{model.StatusPending, model.StatusChecked, true},
		{model.StatusPending, model.StatusError, true},
		{model.StatusChecked, model.StatusCreated, true},
		{model.StatusError, model.StatusCreated, true},
		{model.StatusStop, model.StatusCreated, true},
		{model.StatusCreated, model.StatusStop, true},
		{model.StatusChecked, model.StatusStop, true},
		{model.StatusError, model.StatusStop, true},
		{model.StatusPending, model.StatusStop, false},
		{model.StatusPending, model.StatusCreated, false},
		{model.StatusCreated, model.StatusChecked, false},
		{model.StatusStop, model.StatusPending, false},
		{model.Status("bogus"), model.StatusCreated, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestActionFor(t *testing.T) {
	tests := []struct {
		status model.Status
		want   Action
	}{
		{model.StatusCreated, Action{Name: ActionStop, Target: model.StatusStop}},
		{model.StatusPending, Action{Name: ActionStop, Target: model.StatusStop, Disabled: true}},
		{model.StatusChecked, Action{Name: ActionAnalyze, Target: model.StatusCreated}},
		{model.StatusError, Action{Name: ActionAnalyze, Target: model.StatusCreated}},
		{model.StatusStop, Action{Name: ActionAnalyze, Target: model.StatusCreated}},
	}
	for _, tt := range tests {
		got := ActionFor(tt.status)
		assert.Equal(t, tt.want, got, string(tt.status))
		assert.True(t, got.Disabled || CanTransition(tt.status, got.Target), "offered action must be legal")
	}
}

func TestBatch_Stage(t *testing.T) {
	var b Batch
	accepted := b.Stage("http://a.com, not-a-url, https://b.com")

	assert.Equal(t, []string{"http://a.com", "https://b.com"}, accepted)
	assert.Equal(t, []string{"http://a.com", "https://b.com"}, b.URLs())

	b.Stage(" , ftp://c.com,,https://d.com ")
	assert.Equal(t, []string{"http://a.com", "https://b.com", "https://d.com"}, b.URLs())

	b.Drop(2)
	assert.Equal(t, []string{"https://d.com"}, b.URLs())
	b.Drop(5)
	assert.Zero(t, b.Len())
}

func TestValidURL(t *testing.T) {
	for raw, want := range map[string]bool{
		"http://a.com":         true,
		"https://b.com/path?q": true,
		"not-a-url":            false,
		"ftp://c.com":          false,
		"http://":              false,
		"//a.com":              false,
		"https://[::1":         false,
	} {
		assert.Equal(t, want, ValidURL(raw), raw)
	}
}

func TestController_StageAndSend(t *testing.T) {
	remote := &fakeRemote{}
	c, ref, rec := newController(remote)
	ctx := context.Background()

	c.Stage(ctx, "http://a.com, not-a-url, https://b.com")
	assert.Equal(t, notify.Info, rec.Last().Level)

	require.NoError(t, c.Send(ctx))
	require.Len(t, remote.submitted, 1)
	assert.Equal(t, []string{"http://a.com", "https://b.com"}, remote.submitted[0])
	assert.Empty(t, c.Staged())
	assert.Equal(t, MsgSubmitted, rec.Last().Message)
	assert.Equal(t, 1, ref.calls)
}

func TestController_SendEmpty(t *testing.T) {
	remote := &fakeRemote{}
	c, _, _ := newController(remote)

	assert.ErrorIs(t, c.Send(context.Background()), ErrEmptyBatch)
	assert.Empty(t, remote.submitted)
}

func TestController_SendFailureKeepsBatch(t *testing.T) {
	remote := &fakeRemote{err: &errs.AppError{Kind: errs.Unreachable, Message: "down"}}
	c, ref, rec := newController(remote)
	ctx := context.Background()

	c.Stage(ctx, "https://a.com")
	err := c.Send(ctx)

	assert.Equal(t, errs.Unreachable, errs.KindOf(err))
	assert.Equal(t, []string{"https://a.com"}, c.Staged())
	assert.Equal(t, notify.Notice{Level: notify.Error, Message: MsgSubmitFailed}, rec.Last())
	assert.Zero(t, ref.calls)
}

func TestController_AnalyzeChecked(t *testing.T) {
	remote := &fakeRemote{}
	c, ref, rec := newController(remote)

	require.NoError(t, c.Analyze(context.Background(), model.Link{ID: 7, Status: model.StatusChecked}))

	assert.Equal(t, []statusCall{{7, model.StatusCreated}}, remote.updates)
	assert.Equal(t, MsgQueued, rec.Last().Message)
	assert.Equal(t, 1, ref.calls)
}

func TestController_StopPendingIsDisabled(t *testing.T) {
	remote := &fakeRemote{}
	c, ref, _ := newController(remote)

	err := c.Stop(context.Background(), model.Link{ID: 3, Status: model.StatusPending})

	assert.ErrorIs(t, err, ErrActionDisabled)
	assert.Empty(t, remote.updates)
	assert.Zero(t, ref.calls)
}

func TestController_WrongActionIsDisabled(t *testing.T) {
	remote := &fakeRemote{}
	c, _, _ := newController(remote)

	assert.ErrorIs(t, c.Analyze(context.Background(), model.Link{ID: 1, Status: model.StatusCreated}), ErrActionDisabled)
	assert.ErrorIs(t, c.Stop(context.Background(), model.Link{ID: 1, Status: model.StatusChecked}), ErrActionDisabled)
	assert.Empty(t, remote.updates)
}

func TestController_StopCreated(t *testing.T) {
	remote := &fakeRemote{}
	c, _, rec := newController(remote)

	require.NoError(t, c.Stop(context.Background(), model.Link{ID: 2, Status: model.StatusCreated}))
	assert.Equal(t, []statusCall{{2, model.StatusStop}}, remote.updates)
	assert.Equal(t, MsgStopped, rec.Last().Message)
}

func TestController_SetStatusFailure(t *testing.T) {
	remote := &fakeRemote{err: &errs.AppError{Kind: errs.Rejected, UpstreamStatus: http.StatusConflict, Message: "illegal transition"}}
	c, ref, rec := newController(remote)

	err := c.SetStatus(context.Background(), 5, model.StatusStop)

	assert.Error(t, err)
	assert.Len(t, remote.updates, 1)
	assert.Equal(t, notify.Notice{Level: notify.Error, Message: "Failed to update link: illegal transition"}, rec.Last())
	assert.Zero(t, ref.calls)
}

func TestController_SetStatusPlainError(t *testing.T) {
	remote := &fakeRemote{err: errors.New("boom")}
	c, _, rec := newController(remote)

	_ = c.SetStatus(context.Background(), 5, model.StatusCreated)
	assert.Equal(t, "Failed to update link: Unknown error", rec.Last().Message)
}
