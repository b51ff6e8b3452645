// Package cli wires the lunchbox commands into a cobra root command.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lunchbox/lunchbox-cli/internal/appctx"
	"github.com/lunchbox/lunchbox-cli/internal/commands"
	"github.com/lunchbox/lunchbox-cli/internal/config"
	"github.com/lunchbox/lunchbox-cli/internal/output"
	"github.com/lunchbox/lunchbox-cli/internal/version"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:   "lunchbox",
		Short: "Find somewhere to eat from the command line",
		Long: `lunchbox searches for restaurants near you.

Use search for scriptable output, browse for an interactive list, and
favourite to keep track of places you like.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip setup for help and completion requests
			if cmd.Name() == "help" || cmd.Name() == cobra.ShellCompRequestCmd || cmd.Name() == cobra.ShellCompNoDescRequestCmd {
				return nil
			}

			config.Warnings = cmd.ErrOrStderr()
			cfg, err := config.Load(config.FlagOverrides{
				ConfigDir: flags.ConfigDir,
				DataDir:   flags.DataDir,
			})
			if err != nil {
				var outErr *output.Error
				if errors.As(err, &outErr) {
					return outErr
				}
				return output.ErrUsageHint(err.Error(), "Run: lunchbox config show")
			}

			app := appctx.NewApp(cfg)
			app.Flags = flags
			app.Stdout = cmd.OutOrStdout()
			app.Stderr = cmd.ErrOrStderr()
			app.ApplyFlags()

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}
	cmd.SetVersionTemplate(version.Full() + "\n")

	// Allow flags anywhere in the command line
	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	// Output format flags
	cmd.PersistentFlags().BoolVarP(&flags.JSON, "json", "j", false, "Output as JSON")
	cmd.PersistentFlags().BoolVar(&flags.YAML, "yaml", false, "Output as YAML")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")
	cmd.PersistentFlags().BoolVarP(&flags.MD, "md", "m", false, "Output as Markdown (portable)")
	cmd.PersistentFlags().BoolVar(&flags.MD, "markdown", false, "Output as Markdown (portable)")
	cmd.PersistentFlags().BoolVar(&flags.Styled, "styled", false, "Force styled output (ANSI colors)")
	cmd.PersistentFlags().BoolVar(&flags.IDsOnly, "ids-only", false, "Output only IDs")
	cmd.PersistentFlags().BoolVar(&flags.Count, "count", false, "Output only count")
	cmd.PersistentFlags().StringVar(&flags.JQ, "jq", "", "Filter JSON output with a jq expression")

	// Behavior flags
	cmd.PersistentFlags().CountVarP(&flags.Verbose, "verbose", "v", "Verbose output (-v for state changes, -vv for requests)")
	cmd.PersistentFlags().BoolVar(&flags.Stats, "stats", false, "Show session statistics")
	cmd.PersistentFlags().StringVar(&flags.ConfigDir, "config-dir", "", "Config directory")
	cmd.PersistentFlags().StringVar(&flags.DataDir, "data-dir", "", "Data directory for favourites and the completion cache")

	return cmd
}

// AddCommands registers every subcommand on root.
func AddCommands(root *cobra.Command) {
	root.AddCommand(commands.NewSearchCmd())
	root.AddCommand(commands.NewBrowseCmd())
	root.AddCommand(commands.NewFavouriteCmd())
	root.AddCommand(commands.NewAuthCmd())
	root.AddCommand(commands.NewConfigCmd())
	root.AddCommand(commands.NewCommandsCmd())
	root.AddCommand(commands.NewCompletionCmd())
}

// Execute runs the CLI and exits with its status code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Run executes the CLI with args and returns the exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	AddCommands(cmd)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	// Use ExecuteC to get the executed command (for correct context access)
	executedCmd, err := cmd.ExecuteContextC(ctx)

	var app *appctx.App
	if executedCmd != nil && executedCmd.Context() != nil {
		app = appctx.FromContext(executedCmd.Context())
	}
	if app != nil {
		defer func() {
			if cerr := app.Close(); cerr != nil {
				app.Logger.Warn("closing favourites failed", "error", cerr)
			}
		}()
	}

	if err == nil {
		return output.ExitOK
	}

	err = transformCobraError(err)
	apiErr := output.AsError(err)

	// Use app.Err() when the app is available (for --stats support)
	if app != nil {
		_ = app.Err(err)
		return apiErr.ExitCode()
	}

	// Fallback: output error directly (app not available, e.g., config failed to load)
	writer := output.New(output.Options{
		Format: fallbackFormat(cmd),
		Writer: stdout,
	})
	_ = writer.Err(err)
	return apiErr.ExitCode()
}

// fallbackFormat picks the error format from the raw flags when no app
// exists yet.
func fallbackFormat(cmd *cobra.Command) output.Format {
	pf := cmd.PersistentFlags()
	get := func(name string) bool {
		v, _ := pf.GetBool(name)
		return v
	}
	jq, _ := pf.GetString("jq")

	switch {
	case get("ids-only"):
		return output.FormatIDs
	case get("count"):
		return output.FormatCount
	case get("quiet"):
		return output.FormatQuiet
	case get("json") || jq != "":
		return output.FormatJSON
	case get("yaml"):
		return output.FormatYAML
	case get("styled"):
		return output.FormatStyled
	case get("md"):
		return output.FormatMarkdown
	}
	return output.FormatAuto // TTY → styled, non-TTY → JSON
}

var shorthandFlagRE = regexp.MustCompile(`unknown shorthand flag: '.' in (-\w)`)

// transformCobraError turns cobra's argument and flag errors into usage
// errors with consistent wording.
func transformCobraError(err error) error {
	var outErr *output.Error
	if errors.As(err, &outErr) {
		return err
	}
	msg := err.Error()

	// "flag needs an argument: --FLAG" → "--FLAG requires a value"
	if strings.HasPrefix(msg, "flag needs an argument: ") {
		flag := strings.TrimPrefix(msg, "flag needs an argument: ")
		if i := strings.Index(flag, " in "); i >= 0 {
			flag = flag[i+len(" in "):]
		}
		return output.ErrUsage(strings.Trim(flag, "'") + " requires a value")
	}

	// "unknown flag: --FLAG" → "Unknown option: --FLAG"
	if strings.HasPrefix(msg, "unknown flag: ") {
		return output.ErrUsage("Unknown option: " + strings.TrimPrefix(msg, "unknown flag: "))
	}

	// "unknown shorthand flag: 'X' in -X" → "Unknown option: -X"
	if matches := shorthandFlagRE.FindStringSubmatch(msg); len(matches) > 1 {
		return output.ErrUsage("Unknown option: " + matches[1])
	}

	if strings.HasPrefix(msg, "unknown command ") {
		return output.ErrUsageHint(firstLine(msg), "Run: lunchbox commands")
	}

	if strings.Contains(msg, "invalid argument") {
		return output.ErrUsage(msg)
	}

	// "requires at least 1 arg(s)" / "accepts 1 arg(s), received 0"
	if strings.Contains(msg, "arg(s)") {
		return output.ErrUsageHint(msg, "Run with --help for usage")
	}

	return err
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
