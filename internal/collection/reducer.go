package collection

import "fmt"

// Strategies holds the decisions injected into the reducer.
type Strategies[Q comparable, E any] struct {
	Refresh RefreshStrategy[Q]
	Preload PreloadStrategy[E]

	// Supersede lets Refresh and query changes replace an outstanding page
	// load, filter or refresh instead of being ignored while busy.
	Supersede bool
}

func (st Strategies[Q, E]) withDefaults() Strategies[Q, E] {
	if st.Refresh == nil {
		st.Refresh = AlwaysRefresh[Q]()
	}
	if st.Preload == nil {
		st.Preload = TrailingWindow[E](DefaultPreloadWindow)
	}
	return st
}

// Reduce is the collection state machine. It returns the next state and true,
// or the unchanged state and false when the input is not legal in the current
// state. Illegal inputs are never errors.
func Reduce[Q comparable, E any](s State[Q, E], in Input[Q], st Strategies[Q, E]) (State[Q, E], bool) {
	st = st.withDefaults()

	switch s.Kind {
	case KindUninitialized:
		switch in.Kind {
		case InputRefresh:
			return Refreshing[Q, E](s.Query, s.HasQuery), true
		case InputChangeQuery:
			return Refreshing[Q, E](in.Query, true), true
		}

	case KindRefreshing:
		if st.Supersede && in.Kind == InputChangeQuery {
			if s.HasQuery && st.Refresh(s.Query, in.Query) == Ignore {
				return s, false
			}
			return Refreshing[Q, E](in.Query, true), true
		}

	case KindLoadingNextPage, KindFiltering:
		if !st.Supersede {
			return s, false
		}
		switch in.Kind {
		case InputRefresh:
			return Refreshing[Q, E](s.Query, s.HasQuery), true
		case InputChangeQuery:
			return changeQuery(s, in.Query, st)
		}

	case KindErrorRefreshing:
		switch in.Kind {
		case InputRefresh:
			return Refreshing[Q, E](s.Query, s.HasQuery), true
		case InputChangeQuery:
			// Nothing was fetched, so a filter-only change still needs a fetch.
			if s.HasQuery && st.Refresh(s.Query, in.Query) == Ignore {
				return s, false
			}
			return Refreshing[Q, E](in.Query, true), true
		}

	case KindErrorLoadingNextPage:
		switch in.Kind {
		case InputRetryNextPage:
			return LoadingNextPage(s.Offset, s.Data, s.FilteredData, s.Page, s.Query, s.HasQuery), true
		case InputRefresh:
			return Refreshing[Q, E](s.Query, s.HasQuery), true
		case InputChangeQuery:
			return changeQuery(s, in.Query, st)
		}

	case KindEmpty:
		switch in.Kind {
		case InputRefresh:
			return Refreshing[Q, E](s.Query, s.HasQuery), true
		case InputChangeQuery:
			return changeQuery(s, in.Query, st)
		}

	case KindWithData:
		switch in.Kind {
		case InputRefresh:
			return Refreshing[Q, E](s.Query, s.HasQuery), true
		case InputChangeQuery:
			return changeQuery(s, in.Query, st)
		case InputLoadNextPage:
			return nextPage(s)
		case InputPreload:
			page := mustPage(s)
			if !st.Preload(in.Index, s.FilteredData, *page) {
				return s, false
			}
			return nextPage(s)
		}
	}

	return s, false
}

func changeQuery[Q comparable, E any](s State[Q, E], query Q, st Strategies[Q, E]) (State[Q, E], bool) {
	decision := Refresh
	if s.HasQuery {
		decision = st.Refresh(s.Query, query)
	}
	switch decision {
	case Refresh:
		return Refreshing[Q, E](query, true), true
	case Filter:
		return Filtering(s.Data, mustPage(s), query, true), true
	default:
		return s, false
	}
}

func nextPage[Q comparable, E any](s State[Q, E]) (State[Q, E], bool) {
	page := mustPage(s)
	if !page.HasNextPage() {
		return s, false
	}
	return LoadingNextPage(page.NextOffset(), s.Data, s.FilteredData, page, s.Query, s.HasQuery), true
}

// mustPage returns the state's page. A data-carrying state without a page
// means the controller produced an impossible state.
func mustPage[Q comparable, E any](s State[Q, E]) *Page[E] {
	if s.Page == nil {
		panic(fmt.Sprintf("collection: %s state has no page", s.Kind))
	}
	return s.Page
}
