package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageHasNextPage(t *testing.T) {
	tests := []struct {
		name string
		page Page[int]
		next bool
		off  int
	}{
		{"first of three", *pageOf(45, 0, seq(1, 20)...), true, 20},
		{"middle", *pageOf(45, 20, seq(21, 40)...), true, 40},
		{"last partial", *pageOf(45, 40, seq(41, 45)...), false, 45},
		{"empty result", Page[int]{}, false, 0},
		{"short page before total", *pageOf(45, 0, 1, 2, 3), true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.next, tt.page.HasNextPage())
			assert.Equal(t, tt.off, tt.page.NextOffset())
		})
	}
}

func TestFilterByReturnsNewSlice(t *testing.T) {
	in := []int{1, 2, 3, 4}
	f := FilterBy(func(e int, q string) bool { return q == "all" || e%2 == 0 })

	out := f(in, "even")
	assert.Equal(t, []int{2, 4}, out)
	out[0] = 99
	assert.Equal(t, []int{1, 2, 3, 4}, in)

	assert.Equal(t, in, f(in, "all"))
	assert.Empty(t, FilterBy(func(int, string) bool { return false })(in, ""))
}

func TestAlwaysRefresh(t *testing.T) {
	rs := AlwaysRefresh[string]()
	assert.Equal(t, Ignore, rs("a", "a"))
	assert.Equal(t, Refresh, rs("a", "b"))
}

func TestTrailingWindow(t *testing.T) {
	filtered := seq(1, 10)
	page := *pageOf(100, 0, filtered...)

	w := TrailingWindow[int](3)
	assert.False(t, w(6, filtered, page))
	assert.True(t, w(7, filtered, page))
	assert.True(t, w(9, filtered, page))
	assert.False(t, w(10, filtered, page), "out of range")
	assert.False(t, w(-1, filtered, page))

	def := TrailingWindow[int](0)
	assert.True(t, def(5, filtered, page))
	assert.False(t, def(4, filtered, page))
}

func TestKindPredicates(t *testing.T) {
	for _, k := range []Kind{KindRefreshing, KindLoadingNextPage, KindFiltering} {
		assert.True(t, k.Busy(), k.String())
	}
	for _, k := range []Kind{KindUninitialized, KindErrorRefreshing, KindErrorLoadingNextPage, KindEmpty, KindWithData} {
		assert.False(t, k.Busy(), k.String())
	}
	assert.True(t, KindErrorRefreshing.Errored())
	assert.True(t, KindErrorLoadingNextPage.Errored())
	assert.False(t, KindEmpty.Errored())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestStateString(t *testing.T) {
	data := seq(1, 20)
	assert.Equal(t, "refreshing", Refreshing[string, int]("q", true).String())
	assert.Equal(t, "loading_next_page(offset=20, data=20, filtered=20)",
		LoadingNextPage(20, data, data, pageOf(45, 0, data...), "q", true).String())
	assert.Equal(t, "change_query(pizza)", ChangeQueryInput("pizza").String())
	assert.Equal(t, "preload(4)", PreloadInput[string](4).String())
}
