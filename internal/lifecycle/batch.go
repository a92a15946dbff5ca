package lifecycle

import (
	"net/url"
	"slices"
	"strings"
)

// Batch is the list of URLs staged locally before submission.
type Batch struct {
	urls []string
}

// Stage splits input on commas, trims each entry, and appends the valid
// http(s) URLs to the batch. Empty and invalid entries are dropped silently.
// It returns the accepted URLs.
func (b *Batch) Stage(input string) []string {
	var accepted []string
	for _, part := range strings.Split(input, ",") {
		u := strings.TrimSpace(part)
		if u == "" || !ValidURL(u) {
			continue
		}
		accepted = append(accepted, u)
	}
	b.urls = append(b.urls, accepted...)
	return accepted
}

// URLs returns a copy of the staged URLs in staging order.
func (b *Batch) URLs() []string {
	return slices.Clone(b.urls)
}

// Len returns the number of staged URLs.
func (b *Batch) Len() int { return len(b.urls) }

// Clear empties the batch.
func (b *Batch) Clear() { b.urls = nil }

// Drop removes the n oldest staged URLs, keeping anything staged after them.
func (b *Batch) Drop(n int) {
	if n >= len(b.urls) {
		b.Clear()
		return
	}
	b.urls = slices.Clone(b.urls[n:])
}

// ValidURL reports whether raw is an absolute URL with an http or https
// scheme and a host.
func ValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
