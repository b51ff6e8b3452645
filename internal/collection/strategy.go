package collection

// FilterFunc selects the elements to show for a query. It must be pure,
// deterministic and order-preserving.
type FilterFunc[Q comparable, E any] func(elements []E, query Q) []E

// RefreshDecision is the outcome of comparing two queries.
type RefreshDecision int

const (
	// Ignore leaves the state untouched.
	Ignore RefreshDecision = iota
	// Filter re-filters already fetched data with the new query.
	Filter
	// Refresh refetches from offset 0 with the new query.
	Refresh
)

func (d RefreshDecision) String() string {
	switch d {
	case Ignore:
		return "ignore"
	case Filter:
		return "filter"
	case Refresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// RefreshStrategy decides what a query change requires. Equal queries should
// yield Ignore.
type RefreshStrategy[Q comparable] func(previous, next Q) RefreshDecision

// PreloadStrategy reports whether showing index should fetch the next page.
type PreloadStrategy[E any] func(index int, filtered []E, page Page[E]) bool

// DefaultPreloadWindow is the trailing window used when no PreloadStrategy is configured.
const DefaultPreloadWindow = 5

// KeepAll is a FilterFunc that keeps every element.
func KeepAll[Q comparable, E any]() FilterFunc[Q, E] {
	return func(elements []E, _ Q) []E {
		return elements
	}
}

// FilterBy builds a FilterFunc from a per-element predicate. The result is a
// new slice; the input is never modified.
func FilterBy[Q comparable, E any](keep func(element E, query Q) bool) FilterFunc[Q, E] {
	return func(elements []E, query Q) []E {
		out := make([]E, 0, len(elements))
		for _, e := range elements {
			if keep(e, query) {
				out = append(out, e)
			}
		}
		return out
	}
}

// AlwaysRefresh refetches on any query change.
func AlwaysRefresh[Q comparable]() RefreshStrategy[Q] {
	return func(previous, next Q) RefreshDecision {
		if previous == next {
			return Ignore
		}
		return Refresh
	}
}

// TrailingWindow preloads when index falls within the last n filtered elements.
func TrailingWindow[E any](n int) PreloadStrategy[E] {
	if n <= 0 {
		n = DefaultPreloadWindow
	}
	return func(index int, filtered []E, _ Page[E]) bool {
		if index < 0 || index >= len(filtered) {
			return false
		}
		return index >= len(filtered)-n
	}
}
