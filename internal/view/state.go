package view

import (
	"fmt"
	"slices"
)

// PageSizes are the page sizes offered by the table.
var PageSizes = []int{5, 10, 25, 50}

// DefaultPageSize is used until the operator picks another size.
const DefaultPageSize = 10

// State is what the operator has asked the table to show. Every transition
// returns a new State; the receiver is left untouched.
type State struct {
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Filters  Filters `json:"filters"`
	Search   string  `json:"search"`
	Sort     SortKey `json:"sort"`
}

// DefaultState is the state of a freshly opened table.
func DefaultState() State {
	return State{Page: 1, PageSize: DefaultPageSize, Filters: Filters{}}
}

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	return slices.Contains(PageSizes, n)
}

// Clone returns a copy that shares nothing with s.
func (s State) Clone() State {
	s.Filters = s.Filters.Clone()
	return s
}

// WithFilter sets or clears the pattern for path and goes back to page 1.
func (s State) WithFilter(path, pattern string) State {
	s.Filters = s.Filters.Clone()
	if pattern == "" {
		delete(s.Filters, path)
	} else {
		s.Filters[path] = pattern
	}
	s.Page = 1
	return s
}

// WithSearch replaces the global query and goes back to page 1.
func (s State) WithSearch(query string) State {
	s.Filters = s.Filters.Clone()
	s.Search = query
	s.Page = 1
	return s
}

// WithPageSize changes the page size and goes back to page 1.
func (s State) WithPageSize(n int) (State, error) {
	if !ValidPageSize(n) {
		return s, fmt.Errorf("page size %d not in %v", n, PageSizes)
	}
	s.Filters = s.Filters.Clone()
	s.PageSize = n
	s.Page = 1
	return s, nil
}

// WithPage moves to page p, never below 1.
func (s State) WithPage(p int) State {
	s.Filters = s.Filters.Clone()
	s.Page = max(1, p)
	return s
}

// WithSort toggles the sort on field.
func (s State) WithSort(field string) State {
	s.Filters = s.Filters.Clone()
	s.Sort = s.Sort.Toggle(field)
	return s
}
