package pageinsight

import (
	"errors"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/Bahjat/linkboard/internal/model"
)

// HTML version labels.
const (
	VersionHTML5   = "HTML5"
	VersionHTML401 = "HTML 4.01"
	VersionHTML32  = "HTML 3.2"
	VersionHTML20  = "HTML 2.0"
	VersionXHTML10 = "XHTML 1.0"
	VersionXHTML11 = "XHTML 1.1"
	VersionUnknown = "Unknown"
)

// ParseResult holds everything extracted from a single-pass HTML parse.
type ParseResult struct {
	HTMLVersion  string
	Title        string
	Headings     model.Headings
	Links        []Link
	HasLoginForm bool
}

// Link represents a URL found on the page with its classification.
type Link struct {
	URL        string
	IsInternal bool
}

// Parse performs a single-pass traversal of the HTML body, extracting
// title, headings, HTML version, links, and login form presence. A login
// form is a password input nested in a form element.
func Parse(body io.Reader, baseURL *url.URL) (*ParseResult, error) {
	result := &ParseResult{HTMLVersion: VersionUnknown}

	z := html.NewTokenizer(body)
	var (
		inTitle     bool
		formDepth   int
		sawDoctype  bool
		sawSemantic bool
	)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if !errors.Is(z.Err(), io.EOF) {
				return nil, z.Err()
			}
			if !sawDoctype && sawSemantic {
				result.HTMLVersion = VersionHTML5
			}
			return result, nil

		case html.DoctypeToken:
			sawDoctype = true
			result.HTMLVersion = detectHTMLVersion(z.Token())

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := z.TagName()
			tag := string(tn)

			switch {
			case tag == "title":
				inTitle = tt == html.StartTagToken

			case tag == "form" && tt == html.StartTagToken:
				formDepth++

			case isHeading(tag):
				countHeading(&result.Headings, tag)

			case isSemantic(tag):
				sawSemantic = true

			case tag == "a" && hasAttr:
				if href := extractAttr(z, "href"); href != "" {
					if link, ok := classifyLink(href, baseURL); ok {
						result.Links = append(result.Links, link)
					}
				}

			case tag == "input" && hasAttr && formDepth > 0:
				if strings.EqualFold(extractAttr(z, "type"), "password") {
					result.HasLoginForm = true
				}
			}

		case html.TextToken:
			if inTitle {
				result.Title = strings.TrimSpace(string(z.Text()))
				inTitle = false
			}

		case html.EndTagToken:
			tn, _ := z.TagName()
			switch string(tn) {
			case "title":
				inTitle = false
			case "form":
				formDepth = max(0, formDepth-1)
			}
		}
	}
}

func isHeading(tag string) bool {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func countHeading(h *model.Headings, tag string) {
	switch tag {
	case "h1":
		h.H1++
	case "h2":
		h.H2++
	case "h3":
		h.H3++
	case "h4":
		h.H4++
	case "h5":
		h.H5++
	case "h6":
		h.H6++
	}
}

func isSemantic(tag string) bool {
	switch tag {
	case "article", "section", "nav", "header", "footer", "aside", "main":
		return true
	}
	return false
}

func extractAttr(z *html.Tokenizer, target string) string {
	for {
		key, val, more := z.TagAttr()
		if string(key) == target {
			return string(val)
		}
		if !more {
			return ""
		}
	}
}

func classifyLink(href string, baseURL *url.URL) (Link, bool) {
	parsed, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return Link{}, false
	}

	resolved := baseURL.ResolveReference(parsed)

	// Skip non-http(s) schemes (mailto:, javascript:, tel:, etc.)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return Link{}, false
	}

	isInternal := strings.EqualFold(resolved.Host, baseURL.Host)
	return Link{URL: resolved.String(), IsInternal: isInternal}, true
}

func detectHTMLVersion(token html.Token) string {
	// The tokenizer stores the full doctype in token.Data.
	// HTML5: Data = "html"
	// Legacy: Data = `HTML PUBLIC "-//W3C//DTD HTML 4.01//EN" "..."`
	// https://www.w3.org/QA/2002/04/valid-dtd-list.html
	data := strings.ToLower(token.Data)

	if !strings.Contains(data, "public") {
		// HTML5 doctype has no PUBLIC identifier.
		return VersionHTML5
	}

	switch {
	case strings.Contains(data, "xhtml 1.1") || strings.Contains(data, "xhtml basic 1.1"):
		return VersionXHTML11
	case strings.Contains(data, "xhtml 1.0"):
		return VersionXHTML10
	case strings.Contains(data, "html 4.01"):
		return VersionHTML401
	case strings.Contains(data, "html 3.2"):
		return VersionHTML32
	case strings.Contains(data, "html 2.0"):
		return VersionHTML20
	default:
		return VersionUnknown
	}
}
