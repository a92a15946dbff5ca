package pageinsight

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Bahjat/linkboard/internal/model"
)

const (
	maxLinks = 1000

	// unreachableStatus marks a link that produced no HTTP response.
	unreachableStatus = -1
)

// LinkChecker validates link accessibility using a reusable HTTP client.
type LinkChecker struct {
	client      *http.Client
	concurrency int
	limiter     *rate.Limiter
	userAgent   string
}

// NewLinkChecker returns a LinkChecker with a 5s timeout that does not follow
// redirects and blocks connections to private/reserved IP ranges.
// The concurrency parameter controls the worker pool size; requestsPerSecond
// paces outgoing probes across all workers (0 means unlimited).
func NewLinkChecker(concurrency int, requestsPerSecond float64, userAgent string) *LinkChecker {
	return newLinkChecker(concurrency, requestsPerSecond, userAgent, &http.Transport{
		DialContext:         safeDialer().DialContext,
		MaxConnsPerHost:     concurrency,
		MaxIdleConnsPerHost: concurrency,
		IdleConnTimeout:     90 * time.Second,
	})
}

func newLinkChecker(concurrency int, requestsPerSecond float64, userAgent string, transport http.RoundTripper) *LinkChecker {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &LinkChecker{
		concurrency: max(concurrency, 1),
		limiter:     rate.NewLimiter(limit, max(concurrency, 1)),
		userAgent:   userAgent,
		client: &http.Client{
			Timeout:   5 * time.Second,
			Transport: transport,
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// checkLink probes link with HEAD and reports the issue when it is
// inaccessible. Servers that refuse HEAD with 403 or 405 get a GET probe.
// A cancelled context never counts as inaccessible.
func (lc *LinkChecker) checkLink(ctx context.Context, link string) (model.LinkIssue, bool) {
	status, ok := lc.probe(ctx, http.MethodHead, link)
	if !ok {
		return model.LinkIssue{}, false
	}
	if status == http.StatusForbidden || status == http.StatusMethodNotAllowed {
		return lc.getProbe(ctx, link)
	}
	return issueFor(link, status)
}

// getProbe retries link with GET for servers that reject HEAD.
func (lc *LinkChecker) getProbe(ctx context.Context, link string) (model.LinkIssue, bool) {
	status, ok := lc.probe(ctx, http.MethodGet, link)
	if !ok {
		return model.LinkIssue{}, false
	}
	return issueFor(link, status)
}

// probe sends one request and returns its status code, or unreachableStatus
// when no response arrived. ok is false when ctx ended first.
func (lc *LinkChecker) probe(ctx context.Context, method, link string) (status int, ok bool) {
	req, err := http.NewRequestWithContext(ctx, method, link, nil)
	if err != nil {
		return unreachableStatus, true // malformed URL is inaccessible
	}
	if lc.userAgent != "" {
		req.Header.Set("User-Agent", lc.userAgent)
	}

	if err := lc.limiter.Wait(ctx); err != nil {
		return 0, false
	}

	resp, err := lc.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, false
		}
		return unreachableStatus, true
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode, true
}

func issueFor(link string, status int) (model.LinkIssue, bool) {
	if status == unreachableStatus || status >= 400 {
		return model.LinkIssue{URL: link, StatusCode: status}, true
	}
	return model.LinkIssue{}, false
}

// CheckLinks validates a list of URLs concurrently using a pool of worker
// goroutines sized by the configured concurrency and returns the
// inaccessible ones in input order. Processes at most 1000 links.
func (lc *LinkChecker) CheckLinks(ctx context.Context, links []string) []model.LinkIssue {
	limit := min(len(links), maxLinks)
	links = links[:limit]

	if limit == 0 {
		return []model.LinkIssue{}
	}

	type result struct {
		issue model.LinkIssue
		bad   bool
	}
	results := make([]result, limit)
	jobs := make(chan int, limit)

	numWorkers := min(limit, lc.concurrency)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Go(func() {
			for i := range jobs {
				issue, bad := lc.checkLink(ctx, links[i])
				results[i] = result{issue: issue, bad: bad}
			}
		})
	}

	for i := range links {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	issues := []model.LinkIssue{}
	for _, r := range results {
		if r.bad {
			issues = append(issues, r.issue)
		}
	}
	return issues
}
