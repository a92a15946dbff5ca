package model

import (
	"encoding/json"
	"fmt"
	"io"
)

// Status is the server-authoritative processing state of a Link.
type Status string

// Wire tokens are exact and case-sensitive.
const (
	StatusCreated Status = "created"
	StatusPending Status = "pending"
	StatusChecked Status = "checked"
	StatusStop    Status = "stop"
	StatusError   Status = "error"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []Status{StatusCreated, StatusPending, StatusChecked, StatusStop, StatusError}

// Valid reports whether s is one of the known wire tokens.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusPending, StatusChecked, StatusStop, StatusError:
		return true
	}
	return false
}

// ParseStatus converts a wire token into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// Headings holds the per-level heading counters of an analyzed page.
type Headings struct {
	H1 int `json:"h1"`
	H2 int `json:"h2"`
	H3 int `json:"h3"`
	H4 int `json:"h4"`
	H5 int `json:"h5"`
	H6 int `json:"h6"`
}

// Level returns the counter for heading level 1-6, or 0 for any other level.
func (h Headings) Level(n int) int {
	switch n {
	case 1:
		return h.H1
	case 2:
		return h.H2
	case 3:
		return h.H3
	case 4:
		return h.H4
	case 5:
		return h.H5
	case 6:
		return h.H6
	}
	return 0
}

// LinkIssue is one inaccessible link found on a page. StatusCode is -1 when
// the link could not be reached at all.
type LinkIssue struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
}

// Link is the analysis record for one submitted URL.
type Link struct {
	ID                  int         `json:"id"`
	URL                 string      `json:"url"`
	PostTime            string      `json:"post_time,omitempty"`
	Status              Status      `json:"status"`
	CheckTime           string      `json:"check_time,omitempty"`
	Title               string      `json:"title"`
	HTMLVersion         string      `json:"html_version"`
	HeadingsCount       Headings    `json:"headings_count"`
	InternalLinks       int         `json:"internal_links"`
	ExternalLinks       int         `json:"external_links"`
	InaccessibleLinks   int         `json:"inaccessible_links"`
	InaccessibleDetails []LinkIssue `json:"inaccessible_details"`
	HasLoginForm        bool        `json:"has_login_form"`
}

// Pagination carries the page metadata of a list response.
type Pagination struct {
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page,omitempty"`
	PageSize    int `json:"page_size,omitempty"`
}

// Page is one server-delivered window of records.
type Page struct {
	Links      []Link     `json:"links"`
	Pagination Pagination `json:"pagination"`
}

// DecodePage reads a list response and fills every absent field with its
// zero default so that callers never deal with missing values.
func DecodePage(r io.Reader) (*Page, error) {
	var p Page
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	p.normalize()
	return &p, nil
}

func (p *Page) normalize() {
	if p.Links == nil {
		p.Links = []Link{}
	}
	for i := range p.Links {
		if p.Links[i].InaccessibleDetails == nil {
			p.Links[i].InaccessibleDetails = []LinkIssue{}
		}
	}
	if p.Pagination.TotalPages < 0 {
		p.Pagination.TotalPages = 0
	}
}

// Analysis is the outcome of analyzing a single page.
type Analysis struct {
	URL          string      `json:"url"`
	HTMLVersion  string      `json:"html_version"`
	Title        string      `json:"title"`
	Headings     Headings    `json:"headings_count"`
	Internal     int         `json:"internal_links"`
	External     int         `json:"external_links"`
	Inaccessible []LinkIssue `json:"inaccessible_details"`
	HasLoginForm bool        `json:"has_login_form"`
}

// SubmitRequest is the body of POST /links.
type SubmitRequest struct {
	URLs []string `json:"urls"`
}

// StatusUpdate is the body of PUT /links.
type StatusUpdate struct {
	ID     int    `json:"id"`
	Status Status `json:"status"`
}

// ErrorResponse is the JSON shape returned on failure.
type ErrorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}
