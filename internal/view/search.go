package view

import (
	"strings"

	"github.com/Bahjat/linkboard/internal/model"
)

// SearchFields are the paths the global search looks at, in order.
var SearchFields = []string{
	FieldURL,
	FieldTitle,
	FieldHTMLVersion,
	FieldStatus,
	HeadingField(1),
	HeadingField(2),
	HeadingField(3),
	HeadingField(4),
	HeadingField(5),
	HeadingField(6),
	FieldInternalLinks,
	FieldExternalLinks,
	FieldInaccessibleLinks,
}

// Search keeps the records where any of SearchFields contains query,
// ignoring case. A blank query keeps everything.
func Search(reg *Registry, links []model.Link, query string) []model.Link {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Link, 0, len(links))
	for i := range links {
		if q == "" || matchAny(reg, &links[i], q) {
			out = append(out, links[i])
		}
	}
	return out
}

func matchAny(reg *Registry, l *model.Link, q string) bool {
	for _, path := range SearchFields {
		v, ok := reg.Resolve(l, path)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(v.Text()), q) {
			return true
		}
	}
	return false
}
