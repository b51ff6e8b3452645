// Package collection provides a paginated, filterable, query-driven collection
// controller. A Controller serializes inputs through a pure reducer and runs the
// fetch or filter effect implied by each busy state, publishing every state to
// its subscribers.
package collection

// Page is the result of one fetch from a DataProvider.
// Offset+len(Elements) <= TotalResults is expected but not enforced.
type Page[E any] struct {
	TotalResults int
	Offset       int
	PageSize     int
	Elements     []E
}

// HasNextPage reports whether the provider has results past this page.
func (p Page[E]) HasNextPage() bool {
	return p.NextOffset() < p.TotalResults
}

// NextOffset returns the offset of the page following this one.
func (p Page[E]) NextOffset() int {
	return p.Offset + len(p.Elements)
}
