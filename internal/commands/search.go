package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lunchbox/lunchbox-cli/internal/appctx"
	"github.com/lunchbox/lunchbox-cli/internal/collection"
	"github.com/lunchbox/lunchbox-cli/internal/completion"
	"github.com/lunchbox/lunchbox-cli/internal/output"
	"github.com/lunchbox/lunchbox-cli/internal/restaurant"
	"github.com/lunchbox/lunchbox-cli/internal/tui"
)

// queryFlags are the search flags shared by search and browse.
type queryFlags struct {
	sort           string
	openNow        bool
	minRating      float64
	maxPrice       string
	cuisine        string
	favouritesOnly bool
	radius         int
	lat            float64
	lng            float64
}

func (f *queryFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.sort, "sort", "s", "", "Sort order: best_match, rating, review_count, distance")
	fs.BoolVar(&f.openNow, "open-now", false, "Only restaurants open now")
	fs.Float64Var(&f.minRating, "min-rating", 0, "Minimum rating (0-5)")
	fs.StringVar(&f.maxPrice, "max-price", "", "Maximum price level (1-4 or $-$$$$)")
	fs.StringVarP(&f.cuisine, "cuisine", "c", "", "Only restaurants serving this cuisine")
	fs.BoolVarP(&f.favouritesOnly, "favourites", "f", false, "Only favourite restaurants")
	fs.IntVarP(&f.radius, "radius", "r", 0, "Search radius in meters")
	fs.Float64Var(&f.lat, "lat", 0, "Search latitude")
	fs.Float64Var(&f.lng, "lng", 0, "Search longitude")
}

// changed returns v when the named flag was set on the command line.
func changed[T any](fs *pflag.FlagSet, name string, v *T) *T {
	if fs.Changed(name) {
		return v
	}
	return nil
}

// query builds the query from flags, args and config defaults.
func (f *queryFlags) query(cmd *cobra.Command, app *appctx.App, args []string) (restaurant.Query, error) {
	fs := cmd.Flags()
	sortName := app.Config.Sort
	if v := changed(fs, "sort", &f.sort); v != nil {
		sortName = *v
	}
	sort, err := restaurant.ParseSortOrder(sortName)
	if err != nil {
		return restaurant.Query{}, output.ErrUsage(err.Error())
	}

	maxPrice, err := parsePrice(f.maxPrice)
	if err != nil {
		return restaurant.Query{}, err
	}

	radius := app.Config.Radius
	if v := changed(fs, "radius", &f.radius); v != nil {
		radius = *v
	}

	loc, err := locate(cmd.Context(), app, changed(fs, "lat", &f.lat), changed(fs, "lng", &f.lng))
	if err != nil {
		return restaurant.Query{}, err
	}

	q := restaurant.Query{
		Location:       loc,
		Term:           strings.TrimSpace(strings.Join(args, " ")),
		Sort:           sort,
		RadiusMeters:   radius,
		OpenNow:        f.openNow,
		MinRating:      f.minRating,
		MaxPrice:       maxPrice,
		Cuisine:        strings.TrimSpace(f.cuisine),
		FavouritesOnly: f.favouritesOnly,
	}
	if err := q.Validate(); err != nil {
		return restaurant.Query{}, output.ErrUsage(err.Error())
	}
	return q, nil
}

// parsePrice accepts "2" or "$$".
func parsePrice(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.Trim(s, "$") == "" {
		if len(s) > restaurant.MaxPriceLevel {
			return 0, output.ErrUsage(fmt.Sprintf("--max-price %s out of range ($-%s)", s, strings.Repeat("$", restaurant.MaxPriceLevel)))
		}
		return len(s), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > restaurant.MaxPriceLevel {
		return 0, output.ErrUsage(fmt.Sprintf("--max-price must be 1-%d or $-%s", restaurant.MaxPriceLevel, strings.Repeat("$", restaurant.MaxPriceLevel)))
	}
	return n, nil
}

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	var flags queryFlags
	var pages int

	cmd := &cobra.Command{
		Use:   "search [term]",
		Short: "Search for restaurants nearby",
		Long: `Search for restaurants near you and print the results.

The location comes from --lat/--lng, the latitude/longitude config keys, or
an IP geolocation lookup, in that order. --open-now, --min-rating,
--max-price, --cuisine and --favourites narrow the fetched pages locally;
the other flags change what is fetched.`,
		Example: `  lunchbox search ramen
  lunchbox search --sort rating --open-now --pages 3
  lunchbox search pizza --max-price '$$' --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if pages < 1 {
				return output.ErrUsage("--pages must be at least 1")
			}
			q, err := flags.query(cmd, app, args)
			if err != nil {
				return err
			}
			return runSearch(cmd.Context(), app, q, pages)
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().IntVarP(&pages, "pages", "p", 1, "Number of pages to fetch")
	_ = cmd.RegisterFlagCompletionFunc("sort", completion.SortCompletion())

	return cmd
}

func runSearch(ctx context.Context, app *appctx.App, q restaurant.Query, pages int) error {
	client, err := app.Client()
	if err != nil {
		return err
	}
	favs, err := app.Favourites(ctx)
	if err != nil {
		return err
	}

	ctrl := app.NewController(ctx, client, favs)
	defer ctrl.Close()

	var st restaurant.State
	load := func(ctx context.Context, status func(string)) error {
		if status != nil {
			stop := ctrl.Observe(func(s restaurant.State) {
				if b := tui.Project(s, nil).Banner; b.Spinning() {
					status(b.Text)
				}
			})
			defer stop()
		}
		var err error
		st, err = settlePages(ctx, ctrl, q, pages)
		return err
	}

	if isTerminal(app.Stderr) && app.Output.Format() == output.FormatStyled {
		err = tui.NewSpinner(app.Stderr, "Finding restaurants...").Run(ctx, load)
	} else {
		err = load(ctx, nil)
	}
	if err != nil {
		return err
	}

	if st.Kind == collection.KindErrorRefreshing {
		return st.Err
	}

	rememberForCompletion(app, st.Data)

	view := tui.Project(st, favs)
	opts := []output.ResponseOption{
		output.WithSummary(view.Summary()),
		output.WithContext("query", queryContext(q)),
		output.WithMeta("state", st.Kind.String()),
	}
	if st.Page != nil {
		opts = append(opts,
			output.WithMeta("total", st.Page.TotalResults),
			output.WithMeta("loaded", len(st.Data)),
			output.WithMeta("has_more", st.HasNextPage()))
	}
	if st.Kind == collection.KindErrorLoadingNextPage {
		opts = append(opts, output.WithMeta("partial_error", st.Err.Error()))
	}
	if st.HasNextPage() {
		opts = append(opts, output.WithBreadcrumbs(output.Breadcrumb{
			Action:      "more",
			Cmd:         fmt.Sprintf("lunchbox search %s--pages %d", termArg(q.Term), pages+1),
			Description: "Fetch another page",
		}))
	}
	opts = append(opts, output.WithBreadcrumbs(output.Breadcrumb{
		Action:      "favourite",
		Cmd:         "lunchbox favourite add <id>",
		Description: "Save a restaurant",
	}))

	return app.OK(toRows(st.FilteredData, favs), opts...)
}

// settlePages runs the query and loads further pages until pages have been
// fetched or the results run out.
func settlePages(ctx context.Context, ctrl *restaurant.Controller, q restaurant.Query, pages int) (restaurant.State, error) {
	st, err := ctrl.Settle(ctx, collection.ChangeQueryInput(q))
	if err != nil {
		return st, err
	}
	for fetched := 1; fetched < pages && st.Kind == collection.KindWithData && st.HasNextPage(); fetched++ {
		st, err = ctrl.Settle(ctx, collection.LoadNextPageInput[restaurant.Query]())
		if err != nil {
			return st, err
		}
	}
	return st, nil
}

func queryContext(q restaurant.Query) map[string]any {
	ctx := map[string]any{
		"location": q.Location,
		"sort":     string(q.Sort),
	}
	if q.Term != "" {
		ctx["term"] = q.Term
	}
	if q.RadiusMeters > 0 {
		ctx["radius"] = q.RadiusMeters
	}
	if q.OpenNow {
		ctx["open_now"] = true
	}
	if q.MinRating > 0 {
		ctx["min_rating"] = q.MinRating
	}
	if q.MaxPrice > 0 {
		ctx["max_price"] = q.MaxPrice
	}
	if q.Cuisine != "" {
		ctx["cuisine"] = q.Cuisine
	}
	if q.FavouritesOnly {
		ctx["favourites"] = true
	}
	return ctx
}

func termArg(term string) string {
	if term == "" {
		return ""
	}
	return strconv.Quote(term) + " "
}
