package commands

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lunchbox/lunchbox-cli/internal/auth"
	"github.com/lunchbox/lunchbox-cli/internal/output"
)

// NewAuthCmd creates the auth command group.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the search API key",
		Long: `Store, inspect and remove the API key used for searches.

Keys are kept in the system keyring when one is available, otherwise in
credentials.json in the config directory. LUNCHBOX_API_KEY overrides any
stored key.`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthStatusCmd(),
	)
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save an API key",
		Example: `  lunchbox auth login --key sk-123
  echo "$KEY" | lunchbox auth login`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("key") {
				in := cmd.InOrStdin()
				if f, ok := in.(*os.File); ok && isTerminal(f) {
					return output.ErrUsageHint("No API key given", "Run: lunchbox auth login --key <api-key>")
				}
				key, err = readKey(in)
				if err != nil {
					return output.ErrUsage("Couldn't read API key from stdin: " + err.Error())
				}
			}

			if err := app.Auth.Login(key); err != nil {
				return err
			}

			st, err := app.Auth.Status()
			if err != nil {
				return err
			}
			return app.OK(st,
				output.WithSummary("Saved API key for "+st.Origin),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "search",
					Cmd:         "lunchbox search",
					Description: "Find restaurants nearby",
				}),
			)
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "API key (read from stdin when omitted)")
	return cmd
}

func readKey(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if err := app.Auth.Logout(); err != nil {
				return err
			}

			summary := "Removed API key for " + app.Auth.Origin()
			if os.Getenv(auth.APIKeyEnv) != "" {
				summary += " (" + auth.APIKeyEnv + " is still set)"
			}
			return app.OK(map[string]any{
				"origin":        app.Auth.Origin(),
				"authenticated": false,
			}, output.WithSummary(summary))
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether an API key is available",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			st, err := app.Auth.Status()
			if err != nil {
				return err
			}

			if !st.Authenticated {
				return app.OK(st,
					output.WithSummary("Not logged in"),
					output.WithBreadcrumbs(output.Breadcrumb{
						Action:      "login",
						Cmd:         "lunchbox auth login --key <api-key>",
						Description: "Save an API key",
					}),
				)
			}
			return app.OK(st, output.WithSummary("Using "+st.Key+" from "+st.Source))
		},
	}
}
