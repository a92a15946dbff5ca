// Package view derives the visible rows of the results table from a fetched
// page of records: column filters, then global search, then sort.
package view

import (
	"strconv"
	"strings"

	"github.com/Bahjat/linkboard/internal/model"
)

// Kind is the shape of a resolved field value.
type Kind uint8

const (
	// KindOpaque marks values the engines do not interpret, such as lists.
	KindOpaque Kind = iota
	KindString
	KindNumber
	KindBool
	// KindGroup marks a structured parent addressable through dotted paths.
	KindGroup
)

// Value is a field resolved on one record.
type Value struct {
	Kind Kind
	Str  string
	Num  int
	Bool bool
}

// Text renders scalar values the way they are matched by filter and search:
// strings as-is, numbers in decimal, booleans as "true" or "false".
func (v Value) Text() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.Itoa(v.Num)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	}
	return ""
}

// Numeric returns the value as a number, coercing booleans to 0/1.
func (v Value) Numeric() int {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindBool:
		if v.Bool {
			return 1
		}
	}
	return 0
}

// Getter extracts one field from a record.
type Getter func(l *model.Link) Value

// Registry maps field paths, flat ("url") or dotted ("headings_count.h1"),
// to typed getters.
type Registry struct {
	getters map[string]Getter
	order   []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{getters: make(map[string]Getter)}
}

// Register adds or replaces the getter for path.
func (r *Registry) Register(path string, get Getter) *Registry {
	if _, ok := r.getters[path]; !ok {
		r.order = append(r.order, path)
	}
	r.getters[path] = get
	return r
}

// Lookup returns the getter registered for path.
func (r *Registry) Lookup(path string) (Getter, bool) {
	g, ok := r.getters[path]
	return g, ok
}

// Paths returns every registered path in registration order.
func (r *Registry) Paths() []string {
	return append([]string(nil), r.order...)
}

// Resolve reads path from l. A dotted path resolves only when its parent is a
// group and the child itself is registered.
func (r *Registry) Resolve(l *model.Link, path string) (Value, bool) {
	parent, _, nested := strings.Cut(path, ".")
	if nested {
		pg, ok := r.getters[parent]
		if !ok || pg(l).Kind != KindGroup {
			return Value{}, false
		}
	}
	g, ok := r.getters[path]
	if !ok {
		return Value{}, false
	}
	return g(l), true
}

func str(s string) Value   { return Value{Kind: KindString, Str: s} }
func num(n int) Value      { return Value{Kind: KindNumber, Num: n} }
func boolean(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Field paths of the results table.
const (
	FieldID                  = "id"
	FieldURL                 = "url"
	FieldStatus              = "status"
	FieldTitle               = "title"
	FieldHTMLVersion         = "html_version"
	FieldHeadings            = "headings_count"
	FieldInternalLinks       = "internal_links"
	FieldExternalLinks       = "external_links"
	FieldInaccessibleLinks   = "inaccessible_links"
	FieldInaccessibleDetails = "inaccessible_details"
	FieldHasLoginForm        = "has_login_form"
	FieldPostTime            = "post_time"
	FieldCheckTime           = "check_time"
)

// HeadingField returns the dotted path of heading level n, e.g. "headings_count.h2".
func HeadingField(n int) string {
	return FieldHeadings + ".h" + strconv.Itoa(n)
}

// Fields is the registry for model.Link, built once.
var Fields = newLinkRegistry()

func newLinkRegistry() *Registry {
	r := NewRegistry().
		Register(FieldID, func(l *model.Link) Value { return num(l.ID) }).
		Register(FieldURL, func(l *model.Link) Value { return str(l.URL) }).
		Register(FieldTitle, func(l *model.Link) Value { return str(l.Title) }).
		Register(FieldHTMLVersion, func(l *model.Link) Value { return str(l.HTMLVersion) }).
		Register(FieldHeadings, func(*model.Link) Value { return Value{Kind: KindGroup} })

	for n := 1; n <= 6; n++ {
		r.Register(HeadingField(n), func(l *model.Link) Value { return num(l.HeadingsCount.Level(n)) })
	}

	return r.
		Register(FieldInternalLinks, func(l *model.Link) Value { return num(l.InternalLinks) }).
		Register(FieldExternalLinks, func(l *model.Link) Value { return num(l.ExternalLinks) }).
		Register(FieldInaccessibleLinks, func(l *model.Link) Value { return num(l.InaccessibleLinks) }).
		Register(FieldInaccessibleDetails, func(*model.Link) Value { return Value{Kind: KindOpaque} }).
		Register(FieldHasLoginForm, func(l *model.Link) Value { return boolean(l.HasLoginForm) }).
		Register(FieldStatus, func(l *model.Link) Value { return str(string(l.Status)) }).
		Register(FieldPostTime, func(l *model.Link) Value { return str(l.PostTime) }).
		Register(FieldCheckTime, func(l *model.Link) Value { return str(l.CheckTime) })
}
