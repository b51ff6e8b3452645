package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lunchbox/lunchbox-cli/internal/config"
	"github.com/lunchbox/lunchbox-cli/internal/output"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit configuration",
		Long: fmt.Sprintf(`View and edit lunchbox settings.

Settings are read from the global config file, then .lunchbox/config.json
files from your home directory down to the working directory, then
LUNCHBOX_* environment variables, then flags. Later sources win.

Keys: %s`, strings.Join(config.Keys, ", ")),
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigSetCmd(),
		newConfigUnsetCmd(),
		newConfigPathCmd(),
	)
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show every setting and where it came from",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			values := app.Config.Values()
			rows := make([]map[string]any, 0, len(config.Keys))
			for _, key := range config.Keys {
				v, ok := values[key]
				if !ok {
					continue
				}
				rows = append(rows, map[string]any{
					"key":    key,
					"value":  v,
					"source": string(app.Config.Source(key)),
				})
			}

			return app.OK(rows,
				output.WithSummary(fmt.Sprintf("%d settings", len(rows))),
				output.WithContext("global", config.GlobalConfigPath(app.Config.ConfigDir)),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "set",
					Cmd:         "lunchbox config set <key> <value> --global",
					Description: "Change a setting",
				}),
			)
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting",
		Example: `  lunchbox config set latitude 52.52 --global
  lunchbox config set sort rating`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			key, raw := args[0], args[1]

			path, err := configFilePath(app.Config, key, global)
			if err != nil {
				return err
			}
			value, err := config.ParseValue(key, raw)
			if err != nil {
				return output.ErrUsage(err.Error())
			}
			if err := config.SetValue(path, key, value); err != nil {
				return output.ErrStorage("write config", err)
			}

			return app.OK(map[string]any{
				"key":   key,
				"value": value,
				"path":  path,
			},
				output.WithSummary(fmt.Sprintf("Set %s = %v", key, value)),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "show",
					Cmd:         "lunchbox config show",
					Description: "Show settings",
				}),
			)
		},
	}

	cmd.Flags().BoolVarP(&global, "global", "g", false, "Write to the global config instead of .lunchbox/config.json")
	return cmd
}

func newConfigUnsetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			key := args[0]
			if !slices.Contains(config.Keys, key) {
				return output.ErrUsage(fmt.Sprintf("invalid config key %q", key))
			}

			path := config.LocalConfigPath()
			if global {
				path = config.GlobalConfigPath(app.Config.ConfigDir)
			}
			removed, err := config.UnsetValue(path, key)
			if err != nil {
				return output.ErrStorage("write config", err)
			}

			summary := fmt.Sprintf("%s was not set in %s", key, path)
			if removed {
				summary = fmt.Sprintf("Unset %s", key)
			}
			return app.OK(map[string]any{
				"key":     key,
				"removed": removed,
				"path":    path,
			}, output.WithSummary(summary))
		},
	}

	cmd.Flags().BoolVarP(&global, "global", "g", false, "Edit the global config instead of .lunchbox/config.json")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show where config and data files live",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			return app.OK(map[string]any{
				"global":     config.GlobalConfigPath(app.Config.ConfigDir),
				"local":      config.LocalConfigPath(),
				"favourites": app.FavouritesPath(),
			}, output.WithSummary(config.GlobalConfigPath(app.Config.ConfigDir)))
		},
	}
}

// configFilePath picks the file set writes to. Keys that decide where the
// API key is sent may only live in the global file.
func configFilePath(cfg *config.Config, key string, global bool) (string, error) {
	if global {
		return config.GlobalConfigPath(cfg.ConfigDir), nil
	}
	if key == "base_url" {
		return "", output.ErrUsageHint("base_url can only be set globally",
			"Run: lunchbox config set base_url <url> --global")
	}
	return config.LocalConfigPath(), nil
}
