package view

import (
	"strings"

	"github.com/Bahjat/linkboard/internal/model"
)

// Filters maps a field path to the substring pattern a record must contain.
type Filters map[string]string

// Active returns the entries whose pattern is not blank.
func (f Filters) Active() Filters {
	out := make(Filters, len(f))
	for path, pattern := range f {
		if strings.TrimSpace(pattern) != "" {
			out[path] = pattern
		}
	}
	return out
}

// Clone returns an independent copy of f.
func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Filter keeps the records that satisfy every active entry of filters.
// The input slice is never modified.
func Filter(reg *Registry, links []model.Link, filters Filters) []model.Link {
	active := filters.Active()
	out := make([]model.Link, 0, len(links))
	for i := range links {
		if matchAll(reg, &links[i], active) {
			out = append(out, links[i])
		}
	}
	return out
}

func matchAll(reg *Registry, l *model.Link, active Filters) bool {
	for path, pattern := range active {
		if !matchField(reg, l, path, pattern) {
			return false
		}
	}
	return true
}

func matchField(reg *Registry, l *model.Link, path, pattern string) bool {
	if strings.Contains(path, ".") {
		v, ok := reg.Resolve(l, path)
		if !ok {
			return false
		}
		switch v.Kind {
		case KindString, KindNumber:
			return strings.Contains(v.Text(), pattern)
		}
		return false
	}

	v, ok := reg.Resolve(l, path)
	if !ok {
		return true
	}
	switch v.Kind {
	case KindString:
		return strings.Contains(strings.ToLower(v.Str), strings.ToLower(pattern))
	case KindNumber, KindBool:
		return strings.Contains(v.Text(), pattern)
	}
	return true
}
