// Package pagination computes the page buttons shown under the results table.
package pagination

// maxFull is the largest page count rendered without ellipses.
const maxFull = 5

// Item is one button in the page bar: either a page number or an ellipsis.
type Item struct {
	Page     int  `json:"page,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

func page(n int) Item { return Item{Page: n} }

var gap = Item{Ellipsis: true}

// Pages returns the buttons for current out of total pages. Up to five pages
// are all listed; beyond that the first and last page frame a window of at
// most three pages around current, with an ellipsis wherever pages are skipped.
func Pages(current, total int) []Item {
	if total <= 0 {
		return []Item{}
	}
	if total <= maxFull {
		items := make([]Item, 0, total)
		for n := 1; n <= total; n++ {
			items = append(items, page(n))
		}
		return items
	}

	start := max(2, current-1)
	end := min(total-1, current+1)

	items := []Item{page(1)}
	if start > 2 {
		items = append(items, gap)
	}
	for n := start; n <= end; n++ {
		items = append(items, page(n))
	}
	if end < total-1 {
		items = append(items, gap)
	}
	return append(items, page(total))
}

// Prev is the page before current, never below 1.
func Prev(current int) int {
	return max(1, current-1)
}

// Next is the page after current, never beyond total and never below 1.
func Next(current, total int) int {
	return max(1, min(current+1, total))
}

// HasPrev reports whether a previous page exists.
func HasPrev(current int) bool { return current > 1 }

// HasNext reports whether a following page exists.
func HasNext(current, total int) bool { return current < total }

// Clamp brings p into [1, total], treating an empty result as a single page.
func Clamp(p, total int) int {
	return max(1, min(p, max(total, 1)))
}
