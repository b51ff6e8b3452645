package restaurant

import (
	"context"
	"log/slog"

	"github.com/lunchbox/lunchbox-cli/internal/collection"
)

// Instantiations of the collection types for restaurant search.
type (
	Page       = collection.Page[Restaurant]
	State      = collection.State[Query, Restaurant]
	Input      = collection.Input[Query]
	Controller = collection.Controller[Query, Restaurant]
	Provider   = collection.DataProvider[Query, Restaurant]
)

// FavouriteChecker answers whether a restaurant is a favourite. The filter
// reads it on every evaluation, so it must be safe for concurrent use.
type FavouriteChecker interface {
	IsFavourite(id string) bool
}

// RefreshStrategy refetches when a server-side field changes, re-filters
// fetched data when only local filters change, and otherwise does nothing.
func RefreshStrategy(previous, next Query) collection.RefreshDecision {
	switch {
	case previous.FetchKey() != next.FetchKey():
		return collection.Refresh
	case previous != next:
		return collection.Filter
	default:
		return collection.Ignore
	}
}

// NewFilter returns the filter for restaurant queries. favourites may be nil
// when FavouritesOnly is never set.
func NewFilter(favourites FavouriteChecker) collection.FilterFunc[Query, Restaurant] {
	return collection.FilterBy(func(r Restaurant, q Query) bool {
		return Matches(r, q, favourites)
	})
}

// Matches reports whether r passes every local filter in q.
func Matches(r Restaurant, q Query, favourites FavouriteChecker) bool {
	if q.OpenNow && !r.IsOpen {
		return false
	}
	if q.MinRating > 0 && r.Rating < q.MinRating {
		return false
	}
	// Unknown prices are kept.
	if q.MaxPrice > 0 && r.PriceLevel > q.MaxPrice {
		return false
	}
	if q.Cuisine != "" && !r.ServesCuisine(q.Cuisine) {
		return false
	}
	if q.FavouritesOnly && (favourites == nil || !favourites.IsFavourite(r.ID)) {
		return false
	}
	return true
}

// Options configures NewController.
type Options struct {
	// Query is the initial query. The controller stays Uninitialized until
	// the first Refresh or ChangeQuery.
	Query *Query

	// PreloadWindow is how close to the end of the list the cursor must be
	// before the next page is fetched. Zero means the default of 5.
	PreloadWindow int

	// Supersede lets a refresh or query change cancel an in-flight load.
	Supersede bool

	MapError collection.ErrorMapper
	Hooks    collection.Hooks
	Logger   *slog.Logger
}

// NewController builds a restaurant collection controller over provider.
func NewController(ctx context.Context, provider Provider, favourites FavouriteChecker, opts Options) *Controller {
	logger := opts.Logger
	if logger != nil {
		logger = logger.With("collection", "restaurants")
	}
	return collection.NewController(ctx, provider, collection.Config[Query, Restaurant]{
		Filter:    NewFilter(favourites),
		Refresh:   RefreshStrategy,
		Preload:   collection.TrailingWindow[Restaurant](opts.PreloadWindow),
		MapError:  opts.MapError,
		Query:     opts.Query,
		Supersede: opts.Supersede,
		Hooks:     opts.Hooks,
		Logger:    logger,
	})
}
