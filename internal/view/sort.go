package view

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Bahjat/linkboard/internal/model"
)

// Direction is the order of a sorted column. The zero value means unsorted.
type Direction string

const (
	None Direction = ""
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts "", "asc" and "desc".
func ParseDirection(raw string) (Direction, error) {
	switch d := Direction(raw); d {
	case None, Asc, Desc:
		return d, nil
	}
	return None, fmt.Errorf("unknown sort direction %q", raw)
}

// SortKey names the sorted column and its direction.
type SortKey struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// Active reports whether the key reorders anything.
func (k SortKey) Active() bool {
	return k.Field != "" && k.Direction != None
}

// Toggle advances the tri-state cycle for field: a new field starts ascending,
// then the same field goes descending, then back to unsorted.
func (k SortKey) Toggle(field string) SortKey {
	if k.Field == field {
		switch k.Direction {
		case Asc:
			return SortKey{Field: field, Direction: Desc}
		case Desc:
			return SortKey{}
		}
	}
	return SortKey{Field: field, Direction: Asc}
}

// Sort returns a stably ordered copy of links according to key.
func Sort(reg *Registry, links []model.Link, key SortKey) []model.Link {
	out := slices.Clone(links)
	if out == nil {
		out = []model.Link{}
	}
	if !key.Active() {
		return out
	}

	cmp := comparer{
		reg:    reg,
		path:   key.Field,
		nested: strings.Contains(key.Field, "."),
		col:    collate.New(language.Und),
	}
	sign := 1
	if key.Direction == Desc {
		sign = -1
	}
	slices.SortStableFunc(out, func(a, b model.Link) int {
		return sign * cmp.compare(&a, &b)
	})
	return out
}

type comparer struct {
	reg    *Registry
	path   string
	nested bool
	col    *collate.Collator
}

func (c comparer) compare(a, b *model.Link) int {
	va, okA := c.reg.Resolve(a, c.path)
	vb, okB := c.reg.Resolve(b, c.path)

	if c.nested {
		// Unresolvable nested values sort as zero.
		if !okA {
			va = num(0)
		}
		if !okB {
			vb = num(0)
		}
	} else if !okA || !okB {
		return 0
	}

	switch {
	case va.Kind == KindString && vb.Kind == KindString:
		return c.col.CompareString(va.Str, vb.Str)
	case isNumeric(va) && isNumeric(vb) && va.Kind == vb.Kind:
		return va.Numeric() - vb.Numeric()
	}
	return 0
}

func isNumeric(v Value) bool {
	return v.Kind == KindNumber || v.Kind == KindBool
}
