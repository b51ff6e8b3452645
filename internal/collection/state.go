package collection

import "fmt"

// Kind tags the active variant of a State.
type Kind int

const (
	KindUninitialized Kind = iota
	KindRefreshing
	KindErrorRefreshing
	KindLoadingNextPage
	KindErrorLoadingNextPage
	KindFiltering
	KindEmpty
	KindWithData
)

func (k Kind) String() string {
	switch k {
	case KindUninitialized:
		return "uninitialized"
	case KindRefreshing:
		return "refreshing"
	case KindErrorRefreshing:
		return "error_refreshing"
	case KindLoadingNextPage:
		return "loading_next_page"
	case KindErrorLoadingNextPage:
		return "error_loading_next_page"
	case KindFiltering:
		return "filtering"
	case KindEmpty:
		return "empty"
	case KindWithData:
		return "with_data"
	default:
		return "unknown"
	}
}

// Busy reports whether a state of this kind has an effect outstanding.
func (k Kind) Busy() bool {
	return k == KindRefreshing || k == KindLoadingNextPage || k == KindFiltering
}

// Errored reports whether the kind carries a mapped error.
func (k Kind) Errored() bool {
	return k == KindErrorRefreshing || k == KindErrorLoadingNextPage
}

// State is an immutable snapshot of a collection. Exactly one Kind is active;
// the payload fields that kind does not carry are zero.
//
// Data is every raw element fetched for the current query. FilteredData is the
// subset of Data the filter kept and is what consumers render.
type State[Q comparable, E any] struct {
	Kind         Kind
	Query        Q
	HasQuery     bool // distinguishes a zero-value Q from "no query yet"
	Data         []E
	FilteredData []E
	Page         *Page[E] // last successful page
	Offset       int      // offset being loaded, LoadingNextPage and ErrorLoadingNextPage only
	Err          error

	// Version is stamped by the Controller when the state is published and
	// increases with every transition. The reducer leaves it zero.
	Version uint64
}

func (s State[Q, E]) String() string {
	switch s.Kind {
	case KindLoadingNextPage, KindErrorLoadingNextPage:
		return fmt.Sprintf("%s(offset=%d, data=%d, filtered=%d)", s.Kind, s.Offset, len(s.Data), len(s.FilteredData))
	case KindFiltering, KindEmpty, KindWithData:
		return fmt.Sprintf("%s(data=%d, filtered=%d)", s.Kind, len(s.Data), len(s.FilteredData))
	default:
		return s.Kind.String()
	}
}

// HasNextPage reports whether the last successful page says more results exist.
func (s State[Q, E]) HasNextPage() bool {
	return s.Page != nil && s.Page.HasNextPage()
}

// Uninitialized is the state a controller starts in.
func Uninitialized[Q comparable, E any](query Q, hasQuery bool) State[Q, E] {
	return State[Q, E]{Kind: KindUninitialized, Query: query, HasQuery: hasQuery}
}

// Refreshing discards all accumulated data and reloads from offset 0.
func Refreshing[Q comparable, E any](query Q, hasQuery bool) State[Q, E] {
	return State[Q, E]{Kind: KindRefreshing, Query: query, HasQuery: hasQuery}
}

// ErrorRefreshing records a failed refresh.
func ErrorRefreshing[Q comparable, E any](err error, query Q, hasQuery bool) State[Q, E] {
	return State[Q, E]{Kind: KindErrorRefreshing, Err: err, Query: query, HasQuery: hasQuery}
}

// LoadingNextPage fetches the page at offset and appends it to data.
func LoadingNextPage[Q comparable, E any](offset int, data, filtered []E, page *Page[E], query Q, hasQuery bool) State[Q, E] {
	return State[Q, E]{
		Kind:         KindLoadingNextPage,
		Offset:       offset,
		Data:         data,
		FilteredData: filtered,
		Page:         page,
		Query:        query,
		HasQuery:     hasQuery,
	}
}

// ErrorLoadingNextPage records a failed page load; data fetched so far is kept.
func ErrorLoadingNextPage[Q comparable, E any](err error, offset int, data, filtered []E, page *Page[E], query Q, hasQuery bool) State[Q, E] {
	return State[Q, E]{
		Kind:         KindErrorLoadingNextPage,
		Err:          err,
		Offset:       offset,
		Data:         data,
		FilteredData: filtered,
		Page:         page,
		Query:        query,
		HasQuery:     hasQuery,
	}
}

// Filtering re-filters the accumulated raw data without fetching.
func Filtering[Q comparable, E any](data []E, page *Page[E], query Q, hasQuery bool) State[Q, E] {
	return State[Q, E]{Kind: KindFiltering, Data: data, Page: page, Query: query, HasQuery: hasQuery}
}

// Empty is a successful result with nothing to show.
func Empty[Q comparable, E any](data []E, page *Page[E], query Q, hasQuery bool) State[Q, E] {
	return State[Q, E]{Kind: KindEmpty, Data: data, Page: page, Query: query, HasQuery: hasQuery}
}

// WithData is the steady state with visible results.
func WithData[Q comparable, E any](data, filtered []E, page *Page[E], query Q, hasQuery bool) State[Q, E] {
	return State[Q, E]{
		Kind:         KindWithData,
		Data:         data,
		FilteredData: filtered,
		Page:         page,
		Query:        query,
		HasQuery:     hasQuery,
	}
}
