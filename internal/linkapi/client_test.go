package linkapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bahjat/linkboard/internal/model"
	"github.com/Bahjat/linkboard/internal/platform/errs"
	"github.com/Bahjat/linkboard/internal/platform/logger"
	"github.com/Bahjat/linkboard/internal/platform/requestid"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/", srv.Client(), logger.Discard())
	require.NoError(t, err)
	return c
}

func TestNewClient_RejectsBadBase(t *testing.T) {
	for _, base := range []string{"", "localhost:8080", "ftp://x", "/links"} {
		_, err := NewClient(base, nil, logger.Discard())
		assert.ErrorIs(t, err, errInvalidBaseURL, base)
	}
}

func TestFetchPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/links", r.URL.Path)
		assert.Equal(t, "amount=25&page=1", r.URL.RawQuery)
		assert.Equal(t, "req-1", r.Header.Get(requestid.Header))
		_, _ = w.Write([]byte(`{"links":[{"id":4,"url":"https://a.com","status":"pending"}],"pagination":{"total_pages":3}}`))
	})

	ctx := requestid.NewContext(context.Background(), "req-1")
	page, err := c.FetchPage(ctx, 1, 25)
	require.NoError(t, err)
	require.Len(t, page.Links, 1)
	assert.Equal(t, model.StatusPending, page.Links[0].Status)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.NotNil(t, page.Links[0].InaccessibleDetails)
}

func TestFetchPage_Malformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})

	_, err := c.FetchPage(context.Background(), 1, 10)
	assert.Equal(t, errs.ParsingFailed, errs.KindOf(err))
}

func TestSubmit(t *testing.T) {
	var got model.SubmitRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	require.NoError(t, c.Submit(context.Background(), []string{"http://a.com", "https://b.com"}))
	assert.Equal(t, []string{"http://a.com", "https://b.com"}, got.URLs)
}

func TestUpdateStatus(t *testing.T) {
	var got model.StatusUpdate
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})

	require.NoError(t, c.UpdateStatus(context.Background(), 9, model.StatusStop))
	assert.Equal(t, model.StatusUpdate{ID: 9, Status: model.StatusStop}, got)
}

func TestRejected_CarriesServiceMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(model.ErrorResponse{Error: "Conflict", StatusCode: 409, Message: "record is pending"})
	})

	err := c.UpdateStatus(context.Background(), 1, model.StatusStop)

	var appErr *errs.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errs.Rejected, appErr.Kind)
	assert.Equal(t, http.StatusConflict, appErr.UpstreamStatus)
	assert.Equal(t, "record is pending", appErr.Message)
}

func TestRejected_PlainBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})

	err := c.Submit(context.Background(), []string{"http://a.com"})

	var appErr *errs.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "nope", appErr.Message)
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := NewClient(base, nil, logger.Discard())
	require.NoError(t, err)

	_, err = c.FetchPage(context.Background(), 1, 10)
	assert.Equal(t, errs.Unreachable, errs.KindOf(err))
}

func TestTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.FetchPage(ctx, 1, 10)
	assert.Equal(t, errs.Timeout, errs.KindOf(err))
}
