package collection

// ErrorMapper converts a DataProvider error into the error stored in state.
type ErrorMapper func(error) error

func identityError(err error) error { return err }

// completeRefresh resolves a Refreshing state with the result of fetching offset 0.
func completeRefresh[Q comparable, E any](s State[Q, E], page Page[E], err error, filter FilterFunc[Q, E], mapErr ErrorMapper) State[Q, E] {
	if err != nil {
		return ErrorRefreshing[Q, E](mapErr(err), s.Query, s.HasQuery)
	}
	p := page
	data := concat(nil, page.Elements)
	if len(data) == 0 {
		return Empty(data, &p, s.Query, s.HasQuery)
	}
	filtered := filter(data, s.Query)
	if len(filtered) == 0 {
		return Empty(data, &p, s.Query, s.HasQuery)
	}
	return WithData(data, filtered, &p, s.Query, s.HasQuery)
}

// completePageLoad resolves a LoadingNextPage state. Only the new page's
// elements are filtered; earlier filtered results are kept as they were.
func completePageLoad[Q comparable, E any](s State[Q, E], page Page[E], err error, filter FilterFunc[Q, E], mapErr ErrorMapper) State[Q, E] {
	if err != nil {
		return ErrorLoadingNextPage(mapErr(err), s.Offset, s.Data, s.FilteredData, s.Page, s.Query, s.HasQuery)
	}
	p := page
	if len(page.Elements) == 0 {
		return Empty(s.Data, &p, s.Query, s.HasQuery)
	}
	data := concat(s.Data, page.Elements)
	filtered := concat(s.FilteredData, filter(page.Elements, s.Query))
	if len(filtered) == 0 {
		return Empty(data, &p, s.Query, s.HasQuery)
	}
	return WithData(data, filtered, &p, s.Query, s.HasQuery)
}

// completeFilter resolves a Filtering state by filtering all accumulated data.
func completeFilter[Q comparable, E any](s State[Q, E], filter FilterFunc[Q, E]) State[Q, E] {
	filtered := filter(s.Data, s.Query)
	if len(filtered) == 0 {
		return Empty(s.Data, s.Page, s.Query, s.HasQuery)
	}
	return WithData(s.Data, filtered, s.Page, s.Query, s.HasQuery)
}

// concat returns a new slice holding a followed by b. Published states share
// their slices with observers, so they are never appended to in place.
func concat[E any](a, b []E) []E {
	out := make([]E, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
