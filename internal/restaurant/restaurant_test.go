package restaurant

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchbox/lunchbox-cli/internal/collection"
)

type favSet map[string]bool

func (f favSet) IsFavourite(id string) bool { return f[id] }

var downtown = Location{Latitude: 40.7128, Longitude: -74.0060}

func sample() []Restaurant {
	return []Restaurant{
		{ID: "a", Name: "Alma", Cuisines: []string{"Mexican"}, Rating: 4.5, PriceLevel: 2, IsOpen: true},
		{ID: "b", Name: "Bistro", Cuisines: []string{"French"}, Rating: 3.9, PriceLevel: 4, IsOpen: false},
		{ID: "c", Name: "Cantina", Cuisines: []string{"mexican", "Bars"}, Rating: 4.1, IsOpen: true},
		{ID: "d", Name: "Dosa", Cuisines: []string{"Indian"}, Rating: 4.8, PriceLevel: 1, IsOpen: false},
	}
}

func ids(rs []Restaurant) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func TestRefreshStrategy(t *testing.T) {
	base := Query{Location: downtown, Term: "tacos", Sort: SortBestMatch}

	tests := []struct {
		name string
		next Query
		want collection.RefreshDecision
	}{
		{"same", base, collection.Ignore},
		{"term", Query{Location: downtown, Term: "pho", Sort: SortBestMatch}, collection.Refresh},
		{"sort", Query{Location: downtown, Term: "tacos", Sort: SortRating}, collection.Refresh},
		{"location", Query{Location: Location{1, 2}, Term: "tacos", Sort: SortBestMatch}, collection.Refresh},
		{"open now", Query{Location: downtown, Term: "tacos", Sort: SortBestMatch, OpenNow: true}, collection.Filter},
		{"favourites", Query{Location: downtown, Term: "tacos", Sort: SortBestMatch, FavouritesOnly: true}, collection.Filter},
		{"favourites revision", Query{Location: downtown, Term: "tacos", Sort: SortBestMatch, FavouritesRevision: 1}, collection.Filter},
		{"term and filter", Query{Location: downtown, Term: "pho", Sort: SortBestMatch, OpenNow: true}, collection.Refresh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RefreshStrategy(base, tt.next))
		})
	}
}

func TestFilter(t *testing.T) {
	filter := NewFilter(favSet{"b": true, "d": true})

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"no filters", Query{}, []string{"a", "b", "c", "d"}},
		{"open now", Query{OpenNow: true}, []string{"a", "c"}},
		{"min rating", Query{MinRating: 4.2}, []string{"a", "d"}},
		{"max price keeps unknown", Query{MaxPrice: 2}, []string{"a", "c", "d"}},
		{"cuisine ignores case", Query{Cuisine: "MEXICAN"}, []string{"a", "c"}},
		{"favourites", Query{FavouritesOnly: true}, []string{"b", "d"}},
		{"combined", Query{OpenNow: true, Cuisine: "mexican", MinRating: 4.3}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(filter(sample(), tt.query)))
		})
	}
}

func TestFilterFavouritesWithoutChecker(t *testing.T) {
	filter := NewFilter(nil)
	assert.Empty(t, filter(sample(), Query{FavouritesOnly: true}))
}

func TestParseSortOrder(t *testing.T) {
	o, err := ParseSortOrder("")
	require.NoError(t, err)
	assert.Equal(t, SortBestMatch, o)

	o, err = ParseSortOrder("Review-Count")
	require.NoError(t, err)
	assert.Equal(t, SortReviewCount, o)

	_, err = ParseSortOrder("cheapest")
	assert.Error(t, err)
}

func TestSortOrderNextCycles(t *testing.T) {
	o := SortBestMatch
	seen := map[SortOrder]bool{}
	for range len(sortOrders) {
		seen[o] = true
		o = o.Next()
	}
	assert.Equal(t, SortBestMatch, o)
	assert.Len(t, seen, 4)
	assert.Equal(t, SortBestMatch, SortOrder("bogus").Next())
}

func TestQueryValidate(t *testing.T) {
	assert.NoError(t, Query{Location: downtown}.Validate())
	assert.Error(t, Query{Location: Location{Latitude: 91}}.Validate())
	assert.Error(t, Query{Location: Location{Longitude: -181}}.Validate())
	assert.Error(t, Query{RadiusMeters: MaxRadiusMeters + 1}.Validate())
	assert.Error(t, Query{MinRating: 6}.Validate())
	assert.Error(t, Query{MaxPrice: 5}.Validate())
	assert.Error(t, Query{MinRating: math.NaN()}.Validate())
}

func TestQueryFiltered(t *testing.T) {
	assert.False(t, Query{Term: "x", Sort: SortRating}.Filtered())
	assert.True(t, Query{Cuisine: "thai"}.Filtered())
}

func TestRestaurantPrice(t *testing.T) {
	assert.Equal(t, "", Restaurant{}.Price())
	assert.Equal(t, "$$", Restaurant{PriceLevel: 2}.Price())
	assert.Equal(t, "$$$$", Restaurant{PriceLevel: 7}.Price())
}

func TestControllerFiltersWithoutRefetch(t *testing.T) {
	var calls int
	provider := collection.ProviderFunc[Query, Restaurant](func(_ context.Context, offset int, _ Query) (Page, error) {
		calls++
		rs := sample()
		return Page{TotalResults: len(rs), Offset: offset, PageSize: 20, Elements: rs}, nil
	})

	c := NewController(context.Background(), provider, favSet{"d": true}, Options{})
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := Query{Location: downtown, Term: "food"}
	s, err := c.Settle(ctx, collection.ChangeQueryInput(q))
	require.NoError(t, err)
	assert.Len(t, s.FilteredData, 4)

	q.FavouritesOnly = true
	s, err = c.Settle(ctx, collection.ChangeQueryInput(q))
	require.NoError(t, err)
	assert.Equal(t, collection.KindWithData, s.Kind)
	assert.Equal(t, []string{"d"}, ids(s.FilteredData))
	assert.Len(t, s.Data, 4)

	q.OpenNow = true
	s, err = c.Settle(ctx, collection.ChangeQueryInput(q))
	require.NoError(t, err)
	assert.Equal(t, collection.KindEmpty, s.Kind)

	assert.Equal(t, 1, calls)
}
