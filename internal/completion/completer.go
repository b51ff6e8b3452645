package completion

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lunchbox/lunchbox-cli/internal/appctx"
	"github.com/lunchbox/lunchbox-cli/internal/restaurant"
)

// DataDirEnv overrides the data directory, as in internal/config.
const DataDirEnv = "LUNCHBOX_DATA_DIR"

// CacheDirFunc returns the cache directory to use for completion.
// Takes the command to allow checking both context and flags at completion time.
type CacheDirFunc func(cmd *cobra.Command) string

// DefaultCacheDirFunc returns the cache directory by checking (in order):
// 1. --data-dir flag on the root command
// 2. App config from context (set by PersistentPreRunE)
// 3. LUNCHBOX_DATA_DIR environment variable
// 4. Default data directory
//
// During __complete, PersistentPreRunE doesn't run, so data_dir set in
// config files is not honored; only the flag and env var are.
func DefaultCacheDirFunc(cmd *cobra.Command) string {
	if root := cmd.Root(); root != nil {
		if flag := root.PersistentFlags().Lookup("data-dir"); flag != nil && flag.Changed {
			return flag.Value.String()
		}
	}
	if app := appctx.FromContext(cmd.Context()); app != nil {
		return app.Config.DataDir
	}
	if v := os.Getenv(DataDirEnv); v != "" {
		return v
	}
	return ""
}

// Completer provides tab completion functions for the lunchbox CLI.
// It reads from a file-based cache and does NOT initialize the full App or
// call the search API.
type Completer struct {
	getCacheDir CacheDirFunc
}

// NewCompleter creates a new Completer.
// If getCacheDir is nil, DefaultCacheDirFunc is used.
func NewCompleter(getCacheDir CacheDirFunc) *Completer {
	if getCacheDir == nil {
		getCacheDir = DefaultCacheDirFunc
	}
	return &Completer{getCacheDir: getCacheDir}
}

// store returns the Store to use for completion, resolving the cache dir at call time.
func (c *Completer) store(cmd *cobra.Command) *Store {
	return NewStore(c.getCacheDir(cmd))
}

// RestaurantCompletion completes restaurant IDs from recent searches.
// Input matches an ID prefix or any part of the name; arguments already
// given are not offered again.
func (c *Completer) RestaurantCompletion() cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		restaurants := c.store(cmd).Restaurants()
		if len(restaurants) == 0 {
			// No cache - suggest no completions but allow any input
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		used := make(map[string]bool, len(args))
		for _, a := range args {
			used[a] = true
		}

		toCompleteLower := strings.ToLower(toComplete)
		var completions []cobra.Completion
		for _, r := range rankRestaurants(restaurants) {
			if used[r.ID] {
				continue
			}
			if strings.HasPrefix(strings.ToLower(r.ID), toCompleteLower) ||
				strings.Contains(strings.ToLower(r.Name), toCompleteLower) {
				completions = append(completions, cobra.CompletionWithDesc(r.ID, describe(r)))
			}
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

// SortCompletion completes --sort values.
func SortCompletion() cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		var completions []cobra.Completion
		for o := restaurant.SortBestMatch; ; {
			if strings.HasPrefix(string(o), strings.ToLower(toComplete)) {
				completions = append(completions, cobra.Completion(o))
			}
			if o = o.Next(); o == restaurant.SortBestMatch {
				break
			}
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

func describe(r CachedRestaurant) string {
	parts := []string{r.Name}
	if r.Rating > 0 {
		parts = append(parts, fmt.Sprintf("★%.1f", r.Rating))
	}
	if r.Price != "" {
		parts = append(parts, r.Price)
	}
	return strings.Join(parts, " · ")
}
