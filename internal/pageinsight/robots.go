package pageinsight

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	robotsTTL     = time.Hour
	maxRobotsBody = 512 << 10
)

// RobotsGate answers whether robots.txt lets the analyzer fetch a page.
// Rules are cached per origin.
type RobotsGate struct {
	fetcher   Fetcher
	userAgent string
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	cache map[string]robotsEntry
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// NewRobotsGate returns a gate that downloads robots.txt through fetcher and
// matches rules for userAgent.
func NewRobotsGate(fetcher Fetcher, userAgent string, logger *slog.Logger) *RobotsGate {
	return &RobotsGate{
		fetcher:   fetcher,
		userAgent: userAgent,
		logger:    logger,
		now:       time.Now,
		cache:     make(map[string]robotsEntry),
	}
}

// Allowed reports whether pageURL may be fetched. Failures to load the rules
// allow the fetch.
func (g *RobotsGate) Allowed(ctx context.Context, pageURL *url.URL) bool {
	origin := pageURL.Scheme + "://" + pageURL.Host

	data := g.rules(ctx, origin)
	if data == nil {
		return true
	}

	path := pageURL.EscapedPath()
	if path == "" {
		path = "/"
	}
	if pageURL.RawQuery != "" {
		path += "?" + pageURL.RawQuery
	}
	return data.TestAgent(path, g.userAgent)
}

func (g *RobotsGate) rules(ctx context.Context, origin string) *robotstxt.RobotsData {
	g.mu.Lock()
	entry, ok := g.cache[origin]
	g.mu.Unlock()
	if ok && g.now().Sub(entry.fetchedAt) < robotsTTL {
		return entry.data
	}

	data := g.load(ctx, origin)

	g.mu.Lock()
	g.cache[origin] = robotsEntry{data: data, fetchedAt: g.now()}
	g.mu.Unlock()
	return data
}

func (g *RobotsGate) load(ctx context.Context, origin string) *robotstxt.RobotsData {
	body, status, err := g.fetcher.Fetch(ctx, origin+"/robots.txt")
	if err != nil {
		g.logger.Debug("robots.txt unavailable", "origin", origin, "error", err)
		return nil
	}
	defer func() { _ = body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(body, maxRobotsBody))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(status, raw)
	if err != nil {
		g.logger.Debug("robots.txt unreadable", "origin", origin, "error", err)
		return nil
	}
	return data
}
