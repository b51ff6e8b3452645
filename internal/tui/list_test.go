package tui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchbox/lunchbox-cli/internal/collection"
	"github.com/lunchbox/lunchbox-cli/internal/restaurant"
)

var testQuery = restaurant.Query{
	Location: restaurant.Location{Latitude: 52.52, Longitude: 13.405},
	Term:     "ramen",
	Sort:     restaurant.SortBestMatch,
}

func testRestaurants(ids ...string) []restaurant.Restaurant {
	out := make([]restaurant.Restaurant, len(ids))
	for i, id := range ids {
		out[i] = restaurant.Restaurant{ID: id, Name: "Place " + id, Rating: 4, IsOpen: true, DistanceMeters: 300}
	}
	return out
}

func pageOf(total, offset int, elems []restaurant.Restaurant) *restaurant.Page {
	return &restaurant.Page{TotalResults: total, Offset: offset, PageSize: 20, Elements: elems}
}

type favSet map[string]bool

func (f favSet) IsFavourite(id string) bool { return f[id] }

type pendingFavs struct {
	favSet
	pending map[string]bool
}

func (p pendingFavs) Pending(id string) bool { return p.pending[id] }

func TestProjectBanners(t *testing.T) {
	data := testRestaurants("a", "b", "c")
	page := pageOf(45, 0, data)
	boom := errors.New("Network error")

	tests := []struct {
		name        string
		state       restaurant.State
		banner      BannerKind
		rows        int
		canLoadMore bool
		canRetry    bool
	}{
		{"uninitialized", collection.Uninitialized[restaurant.Query, restaurant.Restaurant](testQuery, true), BannerNone, 0, false, false},
		{"first load", collection.Refreshing[restaurant.Query, restaurant.Restaurant](testQuery, true), BannerLoading, 0, false, false},
		{"refresh failed", collection.ErrorRefreshing[restaurant.Query, restaurant.Restaurant](boom, testQuery, true), BannerLoadFailed, 0, false, true},
		{"with data", collection.WithData(data, data, page, testQuery, true), BannerNone, 3, true, false},
		{"loading more", collection.LoadingNextPage(3, data, data, page, testQuery, true), BannerLoadingMore, 3, false, false},
		{"load more failed", collection.ErrorLoadingNextPage(boom, 3, data, data, page, testQuery, true), BannerLoadMoreFailed, 3, false, true},
		{"filtering", collection.Filtering(data, page, testQuery, true), BannerFiltering, 0, false, false},
		{"empty server", collection.Empty[restaurant.Query, restaurant.Restaurant](nil, pageOf(0, 0, nil), testQuery, true), BannerEmpty, 0, false, false},
		{"empty filtered", collection.Empty(data, page, testQuery, true), BannerEmpty, 0, false, false},
		{"last page", collection.WithData(data, data, pageOf(3, 0, data), testQuery, true), BannerNone, 3, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Project(tt.state, nil)
			assert.Equal(t, tt.banner, v.Banner.Kind)
			assert.Len(t, v.Rows, tt.rows)
			assert.Equal(t, tt.rows, v.Count)
			assert.Equal(t, tt.canLoadMore, v.CanLoadMore)
			assert.Equal(t, tt.canRetry, v.CanRetry)
		})
	}
}

func TestProjectEmptyMessages(t *testing.T) {
	data := testRestaurants("a")
	v := Project(collection.Empty[restaurant.Query, restaurant.Restaurant](nil, pageOf(0, 0, nil), testQuery, true), nil)
	require.NotNil(t, v.Banner.Empty)
	assert.Equal(t, "No restaurants found", v.Banner.Empty.Title)

	v = Project(collection.Empty(data, pageOf(45, 0, data), testQuery, true), nil)
	require.NotNil(t, v.Banner.Empty)
	assert.Equal(t, "No matches", v.Banner.Empty.Title)

	v = Project(collection.ErrorRefreshing[restaurant.Query, restaurant.Restaurant](errors.New("Rate limited"), testQuery, true), nil)
	require.NotNil(t, v.Banner.Empty)
	assert.Equal(t, "Rate limited", v.Banner.Empty.Body)
}

func TestProjectRefreshingWithData(t *testing.T) {
	st := collection.Refreshing[restaurant.Query, restaurant.Restaurant](testQuery, true)
	st.Data = testRestaurants("a")
	assert.Equal(t, BannerRefreshing, Project(st, nil).Banner.Kind)
}

func TestProjectFavourites(t *testing.T) {
	data := testRestaurants("a", "b", "c")
	st := collection.WithData(data, data, pageOf(3, 0, data), testQuery, true)

	v := Project(st, favSet{"b": true})
	assert.False(t, v.Rows[0].Favourite)
	assert.True(t, v.Rows[1].Favourite)
	assert.False(t, v.Rows[1].Pending)

	v = Project(st, pendingFavs{favSet: favSet{"c": true}, pending: map[string]bool{"c": true}})
	assert.True(t, v.Rows[2].Favourite)
	assert.True(t, v.Rows[2].Pending)
}

func TestListViewSummary(t *testing.T) {
	data := testRestaurants("a", "b")
	assert.Equal(t, "2 of 45 restaurants", Project(collection.WithData(data, data, pageOf(45, 0, data), testQuery, true), nil).Summary())
	assert.Equal(t, "2 restaurants", Project(collection.WithData(data, data, pageOf(2, 0, data), testQuery, true), nil).Summary())

	q := testQuery
	q.OpenNow = true
	one := data[:1]
	assert.Equal(t, "1 restaurant match (of 2 loaded)", Project(collection.WithData(data, one, pageOf(45, 0, data), q, true), nil).Summary())
}
