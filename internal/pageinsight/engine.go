package pageinsight

import (
	"context"
	"errors"
	"net/url"

	"github.com/Bahjat/linkboard/internal/model"
	"github.com/Bahjat/linkboard/internal/platform/errs"
)

// linkChecker defines how the engine validates link accessibility.
type linkChecker interface {
	CheckLinks(ctx context.Context, links []string) []model.LinkIssue
}

// robotsChecker decides whether a page may be fetched at all.
type robotsChecker interface {
	Allowed(ctx context.Context, pageURL *url.URL) bool
}

// Engine orchestrates page fetching, HTML parsing, and link checking.
type Engine struct {
	fetcher     Fetcher
	linkChecker linkChecker
	robots      robotsChecker
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithRobots makes the engine refuse pages that robots.txt disallows.
func WithRobots(r robotsChecker) EngineOption {
	return func(e *Engine) { e.robots = r }
}

// NewEngine returns an Engine backed by the given Fetcher and link checker.
func NewEngine(fetcher Fetcher, lc linkChecker, opts ...EngineOption) *Engine {
	e := &Engine{
		fetcher:     fetcher,
		linkChecker: lc,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze fetches a URL, parses the HTML, and checks links.
func (e *Engine) Analyze(ctx context.Context, targetURL string) (*model.Analysis, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "Invalid URL format. Please ensure you entered a valid URL (e.g., https://example.com).",
			Cause:   err,
		}
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "Invalid URL format. Please ensure you entered a valid URL (e.g., https://example.com).",
		}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "Only http and https URLs are supported.",
		}
	}

	if e.robots != nil && !e.robots.Allowed(ctx, parsed) {
		return nil, &errs.AppError{
			Kind:    errs.Rejected,
			Message: "The site's robots.txt does not allow analyzing this URL.",
		}
	}

	body, statusCode, err := e.fetcher.Fetch(ctx, targetURL)
	if errors.Is(err, ErrBlockedAddress) {
		return nil, &errs.AppError{
			Kind:    errs.Rejected,
			Message: "The provided URL points to a private or reserved network address.",
			Cause:   err,
		}
	}
	if err != nil {
		return nil, &errs.AppError{
			Kind:    errs.Unreachable,
			Message: "The provided URL could not be reached. Check the address.",
			Cause:   err,
		}
	}
	defer func() { _ = body.Close() }()

	if statusCode >= 400 {
		return nil, &errs.AppError{
			Kind:           errs.Unreachable,
			UpstreamStatus: statusCode,
			Message:        "The provided URL returned an error status.",
		}
	}

	parseResult, err := Parse(body, parsed)
	if err != nil {
		return nil, &errs.AppError{
			Kind:    errs.ParsingFailed,
			Message: "Failed to parse the HTML content.",
			Cause:   err,
		}
	}

	// Counts include repeated links; each distinct URL is checked once.
	var internalCount, externalCount int
	seen := make(map[string]struct{}, len(parseResult.Links))
	unique := make([]string, 0, len(parseResult.Links))
	for _, link := range parseResult.Links {
		if link.IsInternal {
			internalCount++
		} else {
			externalCount++
		}
		if _, dup := seen[link.URL]; !dup {
			seen[link.URL] = struct{}{}
			unique = append(unique, link.URL)
		}
	}

	inaccessible := e.linkChecker.CheckLinks(ctx, unique)
	if inaccessible == nil {
		inaccessible = []model.LinkIssue{}
	}

	return &model.Analysis{
		URL:          targetURL,
		HTMLVersion:  parseResult.HTMLVersion,
		Title:        parseResult.Title,
		Headings:     parseResult.Headings,
		Internal:     internalCount,
		External:     externalCount,
		Inaccessible: inaccessible,
		HasLoginForm: parseResult.HasLoginForm,
	}, nil
}
