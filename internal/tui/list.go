package tui

import (
	"fmt"

	"github.com/lunchbox/lunchbox-cli/internal/collection"
	"github.com/lunchbox/lunchbox-cli/internal/restaurant"
	"github.com/lunchbox/lunchbox-cli/internal/tui/empty"
)

// BannerKind classifies the status line shown above the list.
type BannerKind int

const (
	BannerNone BannerKind = iota
	BannerLoading
	BannerRefreshing
	BannerFiltering
	BannerLoadingMore
	BannerLoadFailed
	BannerLoadMoreFailed
	BannerEmpty
)

// Banner is the status line for a collection state.
type Banner struct {
	Kind BannerKind
	Text string

	// Empty is set for BannerEmpty and BannerLoadFailed, where the list
	// area shows a message instead of rows.
	Empty *empty.Message
}

// Spinning reports whether the banner represents work in flight.
func (b Banner) Spinning() bool {
	switch b.Kind {
	case BannerLoading, BannerRefreshing, BannerFiltering, BannerLoadingMore:
		return true
	default:
		return false
	}
}

// Row is one restaurant in the visible list.
type Row struct {
	restaurant.Restaurant
	Favourite bool
	Pending   bool // a favourite change is still being saved
}

// ListView is everything a renderer needs from one collection state.
type ListView struct {
	Banner      Banner
	Rows        []Row
	Count       int  // visible rows
	Loaded      int  // fetched rows before filtering
	Total       int  // server-reported total, 0 before the first page
	CanLoadMore bool // LoadNextPage would be accepted
	CanRetry    bool // an error state that Refresh or RetryNextPage would clear
	Query       restaurant.Query
}

// Favourites answers favourite lookups for rows. Implementations that also
// report pending writes mark rows as Pending.
type Favourites interface {
	IsFavourite(id string) bool
}

type pendingReporter interface {
	Pending(id string) bool
}

// Project derives a ListView from a collection state. It is pure apart from
// reading favourites, which may be nil.
func Project(st restaurant.State, favourites Favourites) ListView {
	v := ListView{
		Loaded: len(st.Data),
		Query:  st.Query,
	}
	if st.Page != nil {
		v.Total = st.Page.TotalResults
	}

	pending, _ := favourites.(pendingReporter)
	v.Rows = make([]Row, len(st.FilteredData))
	for i, r := range st.FilteredData {
		row := Row{Restaurant: r}
		if favourites != nil {
			row.Favourite = favourites.IsFavourite(r.ID)
		}
		if pending != nil {
			row.Pending = pending.Pending(r.ID)
		}
		v.Rows[i] = row
	}
	v.Count = len(v.Rows)

	switch st.Kind {
	case collection.KindUninitialized:
		v.Banner = Banner{Kind: BannerNone}
	case collection.KindRefreshing:
		if len(st.Data) == 0 {
			v.Banner = Banner{Kind: BannerLoading, Text: "Finding restaurants..."}
		} else {
			v.Banner = Banner{Kind: BannerRefreshing, Text: "Refreshing..."}
		}
	case collection.KindFiltering:
		v.Banner = Banner{Kind: BannerFiltering, Text: "Filtering..."}
	case collection.KindLoadingNextPage:
		v.Banner = Banner{Kind: BannerLoadingMore, Text: "Loading more..."}
	case collection.KindErrorRefreshing:
		msg := empty.LoadFailed(st.Err)
		v.Banner = Banner{Kind: BannerLoadFailed, Text: msg.Title, Empty: &msg}
		v.CanRetry = true
	case collection.KindErrorLoadingNextPage:
		v.Banner = Banner{Kind: BannerLoadMoreFailed, Text: fmt.Sprintf("Couldn't load more: %v (press r to retry)", st.Err)}
		v.CanRetry = true
	case collection.KindEmpty:
		var msg empty.Message
		if len(st.Data) == 0 {
			msg = empty.NoResults(st.Query.Term)
		} else {
			msg = empty.FilterNoMatch(len(st.Data), st.HasNextPage())
		}
		v.Banner = Banner{Kind: BannerEmpty, Text: msg.Title, Empty: &msg}
	case collection.KindWithData:
		v.CanLoadMore = st.HasNextPage()
	}
	return v
}

// Summary is a one-line description of the list size, e.g.
// "20 of 45 restaurants" or "3 matches in 20 loaded".
func (v ListView) Summary() string {
	noun := "restaurants"
	if v.Count == 1 {
		noun = "restaurant"
	}
	switch {
	case v.Query.Filtered():
		return fmt.Sprintf("%s %s match (of %s loaded)", FormatCount(v.Count), noun, FormatCount(v.Loaded))
	case v.Total > v.Count:
		return fmt.Sprintf("%s of %s %s", FormatCount(v.Count), FormatCount(v.Total), noun)
	default:
		return fmt.Sprintf("%s %s", FormatCount(v.Count), noun)
	}
}
