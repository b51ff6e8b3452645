package restaurant

import (
	"fmt"
	"math"
	"strings"
)

// SortOrder is the server-side ordering of search results.
type SortOrder string

const (
	SortBestMatch   SortOrder = "best_match"
	SortRating      SortOrder = "rating"
	SortReviewCount SortOrder = "review_count"
	SortDistance    SortOrder = "distance"
)

var sortOrders = []SortOrder{SortBestMatch, SortRating, SortReviewCount, SortDistance}

// ParseSortOrder accepts a sort name, with dashes or underscores. Empty
// input yields SortBestMatch.
func ParseSortOrder(s string) (SortOrder, error) {
	if s == "" {
		return SortBestMatch, nil
	}
	norm := SortOrder(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, o := range sortOrders {
		if o == norm {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown sort %q (want best_match, rating, review_count or distance)", s)
}

// Next returns the sort order after o, wrapping around.
func (o SortOrder) Next() SortOrder {
	for i, s := range sortOrders {
		if s == o {
			return sortOrders[(i+1)%len(sortOrders)]
		}
	}
	return SortBestMatch
}

// Query describes a restaurant search. Location, Term, Sort and RadiusMeters
// are sent to the search API; the remaining fields only narrow results that
// were already fetched.
type Query struct {
	Location     Location
	Term         string
	Sort         SortOrder
	RadiusMeters int

	OpenNow        bool
	MinRating      float64
	MaxPrice       int
	Cuisine        string
	FavouritesOnly bool

	// FavouritesRevision changes when favourites change under a
	// FavouritesOnly query, so resubmitting the query re-filters.
	FavouritesRevision uint64
}

// FetchKey returns the part of q that affects what the server returns.
func (q Query) FetchKey() Query {
	return Query{Location: q.Location, Term: q.Term, Sort: q.Sort, RadiusMeters: q.RadiusMeters}
}

// Filtered reports whether any local filter is active.
func (q Query) Filtered() bool {
	return q.OpenNow || q.MinRating > 0 || q.MaxPrice > 0 || q.Cuisine != "" || q.FavouritesOnly
}

// Validate checks a query before it is sent.
func (q Query) Validate() error {
	if err := q.Location.Validate(); err != nil {
		return err
	}
	if q.RadiusMeters < 0 || q.RadiusMeters > MaxRadiusMeters {
		return fmt.Errorf("radius %d out of range (0-%d meters)", q.RadiusMeters, MaxRadiusMeters)
	}
	if math.IsNaN(q.MinRating) || q.MinRating < 0 || q.MinRating > 5 {
		return fmt.Errorf("minimum rating %v out of range (0-5)", q.MinRating)
	}
	if q.MaxPrice < 0 || q.MaxPrice > MaxPriceLevel {
		return fmt.Errorf("maximum price %d out of range (1-%d)", q.MaxPrice, MaxPriceLevel)
	}
	return nil
}

func (q Query) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q near %s sort=%s", q.Term, q.Location, q.Sort)
	if q.RadiusMeters > 0 {
		fmt.Fprintf(&b, " radius=%dm", q.RadiusMeters)
	}
	if q.OpenNow {
		b.WriteString(" open")
	}
	if q.MinRating > 0 {
		fmt.Fprintf(&b, " rating>=%.1f", q.MinRating)
	}
	if q.MaxPrice > 0 {
		fmt.Fprintf(&b, " price<=%d", q.MaxPrice)
	}
	if q.Cuisine != "" {
		fmt.Fprintf(&b, " cuisine=%s", q.Cuisine)
	}
	if q.FavouritesOnly {
		b.WriteString(" favourites")
	}
	return b.String()
}

// MaxRadiusMeters is the largest search radius the API accepts.
const MaxRadiusMeters = 40000
