package view

import "github.com/Bahjat/linkboard/internal/model"

// Apply runs the table pipeline over one fetched page: filters, then the
// global search, then the sort.
func Apply(reg *Registry, links []model.Link, s State) []model.Link {
	rows := Filter(reg, links, s.Filters)
	rows = Search(reg, rows, s.Search)
	return Sort(reg, rows, s.Sort)
}
