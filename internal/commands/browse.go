package commands

import (
	"github.com/spf13/cobra"

	"github.com/lunchbox/lunchbox-cli/internal/completion"
	"github.com/lunchbox/lunchbox-cli/internal/output"
	"github.com/lunchbox/lunchbox-cli/internal/tui"
)

// NewBrowseCmd creates the interactive browse command.
func NewBrowseCmd() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "browse [term]",
		Short: "Browse restaurants interactively",
		Long: `Open an interactive list of restaurants nearby.

More results load as you scroll. Keys: j/k to move, n to load more,
s to change the sort, o to toggle open now, F to show only favourites,
f to favourite the selected restaurant, r to refresh, q to quit.`,
		Example: `  lunchbox browse
  lunchbox browse sushi --sort distance`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if !app.IsInteractive() {
				return output.ErrUsageHint("browse needs an interactive terminal",
					"Use lunchbox search for scripted output")
			}
			q, err := flags.query(cmd, app, args)
			if err != nil {
				return err
			}

			client, err := app.Client()
			if err != nil {
				return err
			}
			favs, err := app.Favourites(cmd.Context())
			if err != nil {
				return err
			}

			ctrl := app.NewController(cmd.Context(), client, favs)
			defer ctrl.Close()

			err = tui.Browse(cmd.Context(), ctrl, favs, q)
			rememberForCompletion(app, ctrl.State().Data)
			return err
		},
	}

	flags.register(cmd.Flags())
	_ = cmd.RegisterFlagCompletionFunc("sort", completion.SortCompletion())
	return cmd
}
