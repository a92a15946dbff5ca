package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bahjat/linkboard/internal/lifecycle"
	"github.com/Bahjat/linkboard/internal/metrics"
	"github.com/Bahjat/linkboard/internal/model"
	"github.com/Bahjat/linkboard/internal/notify"
	"github.com/Bahjat/linkboard/internal/platform/logger"
)

type harness struct {
	router  http.Handler
	fetcher *fakeFetcher
	remote  *okRemote
	session *Session
}

func newHarness(t *testing.T, f *fakeFetcher) *harness {
	t.Helper()
	log := logger.Discard()
	buf := notify.NewBuffer(10)
	session := NewSession(f, buf, metrics.Nop{}, log)
	remote := &okRemote{}
	controller := lifecycle.NewController(remote, session, buf, log)

	tr, err := NewTransport(session, controller, buf, log)
	require.NoError(t, err)
	r := chi.NewRouter()
	tr.RegisterRoutes(r)
	return &harness{router: r, fetcher: f, remote: remote, session: session}
}

func (h *harness) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (h *harness) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func TestIndex_RendersTable(t *testing.T) {
	h := newHarness(t, &fakeFetcher{total: 1, links: []model.Link{
		{ID: 1, URL: "https://a.com", Status: model.StatusChecked, Title: "<b>Bold</b> & co"},
		{ID: 2, URL: "https://b.com", Status: model.StatusPending},
	}})

	rec := h.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "https://a.com")
	assert.Contains(t, body, "Bold &amp; co")
	assert.NotContains(t, body, "<b>Bold</b>")
	assert.Contains(t, body, `action="/links/1/analyze"`)
	assert.Contains(t, body, `action="/links/2/stop"`)
	assert.Len(t, h.fetcher.Calls(), 1, "first visit loads the page")

	h.get("/")
	assert.Len(t, h.fetcher.Calls(), 1, "later visits use the cache")
}

func TestIndex_ShowsFetchFailure(t *testing.T) {
	h := newHarness(t, &fakeFetcher{err: assert.AnError})

	rec := h.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), MsgFetchFailed)
}

func TestIndex_EmptyRowSpansEveryColumn(t *testing.T) {
	h := newHarness(t, &fakeFetcher{links: []model.Link{}})

	body := h.get("/").Body.String()
	assert.Contains(t, body, fmt.Sprintf(`<td colspan="%d">No links match.`, len(Columns)+1))
	assert.Equal(t, len(Columns)+1, strings.Count(body, "<th>"), "action column included")
}

func TestView_JSON(t *testing.T) {
	h := newHarness(t, &fakeFetcher{total: 12})

	rec := h.get("/api/view")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rows []struct {
			ID     int              `json:"id"`
			Action lifecycle.Action `json:"action"`
		} `json:"rows"`
		TotalPages int `json:"total_pages"`
		Pages      []struct {
			Page     int  `json:"page"`
			Ellipsis bool `json:"ellipsis"`
		} `json:"pages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Rows, 10)
	assert.Equal(t, lifecycle.ActionAnalyze, resp.Rows[0].Action.Name)
	assert.Equal(t, 12, resp.TotalPages)
	assert.Len(t, resp.Pages, 4, "1 2 … 12")
}

func TestPageSize_RedirectsAndFetchesOnce(t *testing.T) {
	h := newHarness(t, &fakeFetcher{total: 10})
	h.get("/")
	h.post("/page", url.Values{"page": {"3"}})
	before := len(h.fetcher.Calls())

	rec := h.post("/page-size", url.Values{"size": {"25"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	calls := h.fetcher.Calls()
	require.Len(t, calls, before+1)
	assert.Equal(t, fetchCall{page: 1, amount: 25}, calls[len(calls)-1])
}

func TestPageSize_Invalid(t *testing.T) {
	h := newHarness(t, &fakeFetcher{total: 1})

	assert.Equal(t, http.StatusBadRequest, h.post("/page-size", url.Values{"size": {"7"}}).Code)
	assert.Equal(t, http.StatusBadRequest, h.post("/page-size", url.Values{"size": {"x"}}).Code)
	assert.Equal(t, http.StatusBadRequest, h.post("/page", url.Values{"page": {""}}).Code)
}

func TestFiltersSearchAndSort(t *testing.T) {
	h := newHarness(t, &fakeFetcher{total: 1})
	h.get("/")

	h.post("/filters", url.Values{"url": {"site1"}, "status": {""}})
	h.post("/search", url.Values{"q": {"site10"}})
	h.post("/sort", url.Values{"field": {"id"}})

	st := h.session.State()
	assert.Equal(t, "site1", st.Filters["url"])
	assert.NotContains(t, st.Filters, "status")
	assert.Equal(t, "site10", st.Search)
	assert.Equal(t, []int{10}, rowIDs(h.session.Snapshot()))
}

func TestRowActions(t *testing.T) {
	h := newHarness(t, &fakeFetcher{total: 1, links: []model.Link{
		{ID: 1, URL: "https://a.com", Status: model.StatusPending},
		{ID: 2, URL: "https://b.com", Status: model.StatusCreated},
	}})
	h.get("/")

	assert.Equal(t, http.StatusConflict, h.post("/links/1/stop", nil).Code)
	assert.Equal(t, http.StatusConflict, h.post("/links/2/analyze", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.post("/links/9/stop", nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.post("/links/x/stop", nil).Code)
	assert.Empty(t, h.remote.statuses)

	rec := h.post("/links/2/stop", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []model.Status{model.StatusStop}, h.remote.statuses)

	body := h.get("/").Body.String()
	assert.Contains(t, body, lifecycle.MsgStopped)
}

func TestStageAndSend(t *testing.T) {
	h := newHarness(t, &fakeFetcher{total: 1})

	assert.Equal(t, http.StatusBadRequest, h.post("/send", nil).Code)

	h.post("/stage", url.Values{"urls": {"http://a.com, not-a-url, https://b.com"}})
	body := h.get("/").Body.String()
	assert.Contains(t, body, lifecycle.MsgStaged)
	assert.Contains(t, body, "Send 2 for analysis")

	rec := h.post("/send", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	body = h.get("/").Body.String()
	assert.Contains(t, body, lifecycle.MsgSubmitted)
	assert.NotContains(t, body, "for analysis</button>")
}

func TestHealth(t *testing.T) {
	h := newHarness(t, &fakeFetcher{})
	assert.Equal(t, http.StatusOK, h.get("/healthz").Code)
}
