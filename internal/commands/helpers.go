package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/lunchbox/lunchbox-cli/internal/appctx"
	"github.com/lunchbox/lunchbox-cli/internal/geo"
	"github.com/lunchbox/lunchbox-cli/internal/output"
	"github.com/lunchbox/lunchbox-cli/internal/restaurant"
)

// appFrom returns the app set up by the root command.
func appFrom(cmd *cobra.Command) (*appctx.App, error) {
	app := appctx.FromContext(cmd.Context())
	if app == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	return app, nil
}

// restaurantRow is a restaurant as printed by list commands.
type restaurantRow struct {
	restaurant.Restaurant
	Favourite bool `json:"favourite" yaml:"favourite"`
}

func toRows(items []restaurant.Restaurant, favs restaurant.FavouriteChecker) []restaurantRow {
	rows := make([]restaurantRow, len(items))
	for i, r := range items {
		rows[i] = restaurantRow{Restaurant: r}
		if favs != nil {
			rows[i].Favourite = favs.IsFavourite(r.ID)
		}
	}
	return rows
}

// locate resolves the search location from explicit coordinates or the
// app's locator chain.
func locate(ctx context.Context, app *appctx.App, lat, lng *float64) (restaurant.Location, error) {
	if lat != nil || lng != nil {
		if lat == nil || lng == nil {
			return restaurant.Location{}, output.ErrUsage("--lat and --lng must be given together")
		}
		loc := restaurant.Location{Latitude: *lat, Longitude: *lng}
		if err := loc.Validate(); err != nil {
			return restaurant.Location{}, output.ErrUsage(err.Error())
		}
		return loc, nil
	}

	loc, err := app.Locator().Locate(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return restaurant.Location{}, err
		}
		app.Logger.Debug("location lookup failed", "error", err)
		hint := "Pass --lat and --lng, or run: lunchbox config set latitude <lat> --global"
		if errors.Is(err, geo.ErrNoLocation) {
			return restaurant.Location{}, output.ErrUsageHint("No search location configured", hint)
		}
		return restaurant.Location{}, output.ErrUsageHint(fmt.Sprintf("Couldn't determine your location: %v", err), hint)
	}
	return loc, nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}
