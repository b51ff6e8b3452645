package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lunchbox/lunchbox-cli/internal/appctx"
	"github.com/lunchbox/lunchbox-cli/internal/completion"
	"github.com/lunchbox/lunchbox-cli/internal/output"
	"github.com/lunchbox/lunchbox-cli/internal/restaurant"
)

// NewCompletionCmd creates the completion command group.
func NewCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [shell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for lunchbox.

To load completions:

Bash:
  $ source <(lunchbox completion bash)

Zsh:
  $ lunchbox completion zsh > "${fpath[1]}/_lunchbox"

Fish:
  $ lunchbox completion fish > ~/.config/fish/completions/lunchbox.fish

PowerShell:
  PS> lunchbox completion powershell | Out-String | Invoke-Expression

Restaurant IDs complete from the restaurants seen in recent searches.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompletion(cmd.Root(), cmd.OutOrStdout(), args[0])
		},
	}

	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		cmd.AddCommand(newCompletionShellCmd(shell))
	}
	cmd.AddCommand(newCompletionStatusCmd())
	cmd.AddCommand(newCompletionClearCmd())

	return cmd
}

func runCompletion(rootCmd *cobra.Command, w io.Writer, shell string) error {
	switch shell {
	case "bash":
		return rootCmd.GenBashCompletionV2(w, true)
	case "zsh":
		return rootCmd.GenZshCompletion(w)
	case "fish":
		return rootCmd.GenFishCompletion(w, true)
	case "powershell":
		return rootCmd.GenPowerShellCompletionWithDesc(w)
	default:
		return fmt.Errorf("unknown shell: %s", shell)
	}
}

func newCompletionShellCmd(shell string) *cobra.Command {
	return &cobra.Command{
		Use:                   shell,
		Short:                 fmt.Sprintf("Generate %s completion script", shell),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompletion(cmd.Root(), cmd.OutOrStdout(), shell)
		},
	}
}

func newCompletionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show completion cache status",
		Long: `Show how many restaurants the completion cache holds.

The cache is updated every time search or browse shows results. If you set
data_dir in a config file, completions won't find it; set LUNCHBOX_DATA_DIR
in your environment instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			store := completion.NewStore(app.Config.DataDir)
			cache, err := store.Load()
			if err != nil {
				return output.ErrStorage("read completion cache", err)
			}

			result := map[string]any{
				"restaurants": len(cache.Restaurants),
				"cache_path":  store.Path(),
			}
			summary := "Completion cache is empty"
			if !cache.UpdatedAt.IsZero() {
				result["updated_at"] = cache.UpdatedAt
				summary = fmt.Sprintf("%s cached", pluralize(len(cache.Restaurants), "restaurant"))
			}
			return app.OK(result, output.WithSummary(summary))
		},
	}
}

func newCompletionClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget restaurants seen in recent searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			store := completion.NewStore(app.Config.DataDir)
			if err := store.Clear(); err != nil {
				return output.ErrStorage("clear completion cache", err)
			}
			return app.OK(map[string]any{"cache_path": store.Path()},
				output.WithSummary("Completion cache cleared"))
		},
	}
}

// rememberForCompletion records shown restaurants for tab completion.
func rememberForCompletion(app *appctx.App, restaurants []restaurant.Restaurant) {
	if err := completion.NewStore(app.Config.DataDir).Remember(restaurants); err != nil {
		app.Logger.Debug("completion cache not updated", "error", err)
	}
}
