package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lunchbox/lunchbox-cli/internal/api"
	"github.com/lunchbox/lunchbox-cli/internal/completion"
	"github.com/lunchbox/lunchbox-cli/internal/output"
	"github.com/lunchbox/lunchbox-cli/internal/restaurant"
	"github.com/lunchbox/lunchbox-cli/internal/urlarg"
)

// NewFavouriteCmd creates the favourite command group.
func NewFavouriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favourite",
		Aliases: []string{"favourites", "fav", "favorite", "favorites"},
		Short:   "Manage favourite restaurants",
		Long:    "Save restaurants you like. Use --favourites on search or browse to show only these.",
	}

	cmd.AddCommand(
		newFavouriteSetCmd("add", "Add restaurants to favourites", true),
		newFavouriteSetCmd("remove", "Remove restaurants from favourites", false),
		newFavouriteToggleCmd(),
		newFavouriteListCmd(),
	)
	return cmd
}

func newFavouriteSetCmd(use, short string, favourite bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <id|url>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			favs, err := app.Favourites(cmd.Context())
			if err != nil {
				return err
			}

			ids, err := cleanIDs(args)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := favs.Set(cmd.Context(), id, favourite); err != nil {
					return output.ErrStorage("save favourite "+id, err)
				}
			}

			verb := "Removed"
			if favourite {
				verb = "Added"
			}
			return app.OK(map[string]any{
				"ids":       ids,
				"favourite": favourite,
			},
				output.WithSummary(fmt.Sprintf("%s %s", verb, pluralize(len(ids), "favourite"))),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "list",
					Cmd:         "lunchbox favourite list",
					Description: "Show favourites",
				}),
			)
		},
	}
	if !favourite {
		cmd.Aliases = []string{"rm"}
	}
	cmd.ValidArgsFunction = completion.NewCompleter(nil).RestaurantCompletion()
	return cmd
}

func newFavouriteToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "toggle <id|url>",
		Short:             "Flip whether a restaurant is a favourite",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.NewCompleter(nil).RestaurantCompletion(),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			favs, err := app.Favourites(cmd.Context())
			if err != nil {
				return err
			}
			ids, err := cleanIDs(args)
			if err != nil {
				return err
			}
			id := ids[0]

			favourite, commit := favs.Toggle(id)
			if err := commit(cmd.Context()); err != nil {
				return output.ErrStorage("save favourite "+id, err)
			}

			summary := "Removed " + id + " from favourites"
			if favourite {
				summary = "Added " + id + " to favourites"
			}
			return app.OK(map[string]any{"id": id, "favourite": favourite},
				output.WithSummary(summary))
		},
	}
}

func newFavouriteListCmd() *cobra.Command {
	var details bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List favourite restaurants",
		Long: `List favourite restaurant IDs.

With --details each restaurant is looked up through the search API.
Restaurants that no longer exist are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			favs, err := app.Favourites(cmd.Context())
			if err != nil {
				return err
			}
			ids, err := favs.List(cmd.Context())
			if err != nil {
				return output.ErrStorage("list favourites", err)
			}

			opts := []output.ResponseOption{
				output.WithSummary(pluralize(len(ids), "favourite")),
				output.WithContext("path", app.FavouritesPath()),
			}
			if len(ids) == 0 {
				opts = append(opts, output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "search",
					Cmd:         "lunchbox search",
					Description: "Find restaurants to save",
				}))
			}

			if !details {
				rows := make([]map[string]any, len(ids))
				for i, id := range ids {
					rows[i] = map[string]any{"id": id}
				}
				return app.OK(rows, opts...)
			}

			client, err := app.Client()
			if err != nil {
				return err
			}
			found := make([]restaurant.Restaurant, 0, len(ids))
			for _, id := range ids {
				r, err := client.Business(cmd.Context(), id)
				if err != nil {
					mapped := output.AsError(api.MapError(err))
					if mapped.Code == output.CodeNotFound {
						app.Logger.Debug("favourite no longer exists", "id", id)
						continue
					}
					return mapped
				}
				found = append(found, r)
			}
			return app.OK(toRows(found, favs), opts...)
		},
	}

	cmd.Flags().BoolVarP(&details, "details", "d", false, "Look up each restaurant")
	return cmd
}

func cleanIDs(args []string) ([]string, error) {
	ids := make([]string, 0, len(args))
	for _, a := range urlarg.ExtractIDs(args) {
		id := strings.TrimSpace(a)
		if id == "" {
			return nil, output.ErrUsage("restaurant id must not be empty")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
