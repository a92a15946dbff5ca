package pageinsight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/Bahjat/linkboard/internal/model"
	"github.com/Bahjat/linkboard/internal/platform/errs"
)

var errConnectionRefused = errors.New("connection refused")

// mockFetcher implements Fetcher for testing.
type mockFetcher struct {
	body       string
	statusCode int
	err        error
}

func (m *mockFetcher) Fetch(_ context.Context, _ string) (io.ReadCloser, int, error) {
	if m.err != nil {
		return nil, m.statusCode, m.err
	}
	return io.NopCloser(strings.NewReader(m.body)), m.statusCode, nil
}

// mockLinkChecker implements linkChecker for testing.
type mockLinkChecker struct {
	inaccessible []model.LinkIssue
	receivedURLs []string
}

func (m *mockLinkChecker) CheckLinks(_ context.Context, links []string) []model.LinkIssue {
	m.receivedURLs = links
	return m.inaccessible
}

// denyRobots implements robotsChecker and refuses every page.
type denyRobots struct{ asked []string }

func (d *denyRobots) Allowed(_ context.Context, pageURL *url.URL) bool {
	d.asked = append(d.asked, pageURL.String())
	return false
}

func TestEngine_Analyze_Success(t *testing.T) {
	html := `<!DOCTYPE html><html><head><title>Test Page</title></head><body>
	<h1>Hello</h1>
	<h2>Sub</h2>
	</body></html>`

	engine := NewEngine(&mockFetcher{body: html, statusCode: 200}, &mockLinkChecker{})

	result, err := engine.Analyze(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Title != "Test Page" {
		t.Errorf("Title = %q, want %q", result.Title, "Test Page")
	}
	if result.HTMLVersion != "HTML5" {
		t.Errorf("HTMLVersion = %q, want %q", result.HTMLVersion, "HTML5")
	}
	if result.Headings.H1 != 1 {
		t.Errorf("h1 = %d, want 1", result.Headings.H1)
	}
	if result.Headings.H2 != 1 {
		t.Errorf("h2 = %d, want 1", result.Headings.H2)
	}
	if result.Inaccessible == nil {
		t.Error("Inaccessible = nil, want empty slice")
	}
	if result.URL != "https://example.com" {
		t.Errorf("URL = %q, want %q", result.URL, "https://example.com")
	}
}

func TestEngine_Analyze_FetchError(t *testing.T) {
	engine := NewEngine(&mockFetcher{err: errConnectionRefused, statusCode: 0}, &mockLinkChecker{})

	_, err := engine.Analyze(context.Background(), "https://down.example.com")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var appErr *errs.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *errs.AppError, got %T", err)
	}
	if appErr.Kind != errs.Unreachable {
		t.Errorf("Kind = %d, want %d (Unreachable)", appErr.Kind, errs.Unreachable)
	}
}

func TestEngine_Analyze_BlockedAddress(t *testing.T) {
	blocked := &url.Error{Op: "Get", URL: "http://intranet.local", Err: fmt.Errorf("dial tcp: %w: 10.0.0.2", ErrBlockedAddress)}
	engine := NewEngine(&mockFetcher{err: blocked}, &mockLinkChecker{})

	_, err := engine.Analyze(context.Background(), "http://intranet.local")

	var appErr *errs.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *errs.AppError, got %T", err)
	}
	if appErr.Kind != errs.Rejected {
		t.Errorf("Kind = %d, want %d (Rejected)", appErr.Kind, errs.Rejected)
	}
}

func TestEngine_Analyze_DeduplicatesLinks(t *testing.T) {
	html := `<!DOCTYPE html><html><head><title>Dedup</title></head><body>
	<a href="https://example.com/a">A</a>
	<a href="https://other.com/b">B</a>
	<a href="https://example.com/a">A again</a>
	<a href="https://other.com/b">B again</a>
	<a href="https://example.com/c">C</a>
	</body></html>`

	lc := &mockLinkChecker{}
	engine := NewEngine(&mockFetcher{body: html, statusCode: 200}, lc)

	result, err := engine.Analyze(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Counts should reflect all links including duplicates.
	if result.Internal != 3 {
		t.Errorf("internal = %d, want 3", result.Internal)
	}
	if result.External != 2 {
		t.Errorf("external = %d, want 2", result.External)
	}

	// The link checker should receive only unique URLs.
	if len(lc.receivedURLs) != 3 {
		t.Errorf("unique URLs sent to checker = %d, want 3: %v", len(lc.receivedURLs), lc.receivedURLs)
	}
}

func TestEngine_Analyze_InvalidURL(t *testing.T) {
	engine := NewEngine(&mockFetcher{}, &mockLinkChecker{})

	_, err := engine.Analyze(context.Background(), "not-a-valid-url")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var appErr *errs.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *errs.AppError, got %T", err)
	}
	if appErr.Kind != errs.InvalidInput {
		t.Errorf("Kind = %d, want %d (InvalidInput)", appErr.Kind, errs.InvalidInput)
	}
}

func TestEngine_Analyze_NonHTTPScheme(t *testing.T) {
	engine := NewEngine(&mockFetcher{}, &mockLinkChecker{})

	_, err := engine.Analyze(context.Background(), "ftp://example.com/file")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var appErr *errs.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *errs.AppError, got %T", err)
	}
	if appErr.Kind != errs.InvalidInput {
		t.Errorf("Kind = %d, want %d (InvalidInput)", appErr.Kind, errs.InvalidInput)
	}
}

func TestEngine_Analyze_HTTPStatusError(t *testing.T) {
	engine := NewEngine(&mockFetcher{body: "not found", statusCode: 404}, &mockLinkChecker{})

	_, err := engine.Analyze(context.Background(), "https://example.com/missing")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var appErr *errs.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *errs.AppError, got %T", err)
	}
	if appErr.Kind != errs.Unreachable {
		t.Errorf("Kind = %d, want %d (Unreachable)", appErr.Kind, errs.Unreachable)
	}
	if appErr.UpstreamStatus != 404 {
		t.Errorf("UpstreamStatus = %d, want 404", appErr.UpstreamStatus)
	}
}

func TestEngine_Analyze_LoginFormDetected(t *testing.T) {
	html := `<!DOCTYPE html><html><head><title>Login</title></head><body>
	<form><input type="password" name="pw"></form>
	</body></html>`

	engine := NewEngine(&mockFetcher{body: html, statusCode: 200}, &mockLinkChecker{})

	result, err := engine.Analyze(context.Background(), "https://example.com/login")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.HasLoginForm {
		t.Error("HasLoginForm = false, want true")
	}
}

func TestEngine_Analyze_InaccessibleCount(t *testing.T) {
	html := `<!DOCTYPE html><html><head><title>T</title></head><body>
	<a href="https://example.com/a">A</a>
	<a href="https://other.com/b">B</a>
	</body></html>`

	engine := NewEngine(
		&mockFetcher{body: html, statusCode: 200},
		&mockLinkChecker{inaccessible: []model.LinkIssue{{URL: "https://other.com/b", StatusCode: 404}}},
	)

	result, err := engine.Analyze(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Inaccessible) != 1 {
		t.Fatalf("Inaccessible = %v, want one issue", result.Inaccessible)
	}
	if got := result.Inaccessible[0]; got.URL != "https://other.com/b" || got.StatusCode != 404 {
		t.Errorf("Inaccessible[0] = %+v", got)
	}
}

func TestEngine_Analyze_RobotsDisallowed(t *testing.T) {
	fetcher := &mockFetcher{err: errConnectionRefused}
	robots := &denyRobots{}
	engine := NewEngine(fetcher, &mockLinkChecker{}, WithRobots(robots))

	_, err := engine.Analyze(context.Background(), "https://example.com/private?x=1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var appErr *errs.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *errs.AppError, got %T", err)
	}
	if appErr.Kind != errs.Rejected {
		t.Errorf("Kind = %d, want %d (Rejected)", appErr.Kind, errs.Rejected)
	}
	if len(robots.asked) != 1 || robots.asked[0] != "https://example.com/private?x=1" {
		t.Errorf("robots asked about %v", robots.asked)
	}
}
