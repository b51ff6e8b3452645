// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/lunchbox/lunchbox-cli/internal/api"
	"github.com/lunchbox/lunchbox-cli/internal/auth"
	"github.com/lunchbox/lunchbox-cli/internal/config"
	"github.com/lunchbox/lunchbox-cli/internal/favourites"
	"github.com/lunchbox/lunchbox-cli/internal/geo"
	"github.com/lunchbox/lunchbox-cli/internal/observability"
	"github.com/lunchbox/lunchbox-cli/internal/output"
	"github.com/lunchbox/lunchbox-cli/internal/resilience"
	"github.com/lunchbox/lunchbox-cli/internal/restaurant"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// DebugEnv raises the verbosity level like -v does.
const DebugEnv = "LUNCHBOX_DEBUG"

// App holds the shared application context for all commands.
type App struct {
	Config *config.Config
	Auth   *auth.Manager
	Output *output.Writer
	Logger *slog.Logger

	// Observability
	Collector *observability.SessionCollector
	Hooks     *observability.CLIHooks

	// Flags holds the global flag values
	Flags GlobalFlags

	Stdout io.Writer
	Stderr io.Writer

	mu         sync.Mutex
	favStore   favourites.Store
	favToggler *favourites.Toggler
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	// Output format flags
	JSON    bool
	YAML    bool
	Quiet   bool
	MD      bool
	Styled  bool
	IDsOnly bool
	Count   bool
	JQ      string

	// Behavior flags
	Verbose   int // 0=off, 1=state changes, 2=state changes+requests
	Stats     bool
	ConfigDir string
	DataDir   string
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config) *App {
	collector := observability.NewSessionCollector()
	traceWriter := observability.NewTraceWriter()
	hooks := observability.NewCLIHooks(0, collector, traceWriter)

	format, err := output.ParseFormat(cfg.Format)
	if err != nil {
		format = output.FormatAuto
	}

	return &App{
		Config:    cfg,
		Auth:      auth.NewManager(cfg, auth.NewStore(cfg.ConfigDir, os.Stderr)),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Collector: collector,
		Hooks:     hooks,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Output: output.New(output.Options{
			Format: format,
			Writer: os.Stdout,
		}),
	}
}

// ApplyFlags applies global flag values to the app configuration.
func (a *App) ApplyFlags() {
	format, err := output.ParseFormat(a.Config.Format)
	if err != nil {
		format = output.FormatAuto
	}
	switch {
	case a.Flags.IDsOnly:
		format = output.FormatIDs
	case a.Flags.Count:
		format = output.FormatCount
	case a.Flags.Quiet:
		format = output.FormatQuiet
	case a.Flags.JSON:
		format = output.FormatJSON
	case a.Flags.YAML:
		format = output.FormatYAML
	case a.Flags.Styled:
		format = output.FormatStyled
	case a.Flags.MD:
		format = output.FormatMarkdown
	}
	if a.Flags.JQ != "" {
		format = output.FormatJSON
	}
	a.Output = output.New(output.Options{
		Format:  format,
		Writer:  a.Stdout,
		Verbose: a.Flags.Verbose > 0,
		JQ:      a.Flags.JQ,
	})

	verboseLevel := a.Flags.Verbose
	if debugEnv := os.Getenv(DebugEnv); debugEnv != "" {
		if level, err := strconv.Atoi(debugEnv); err == nil {
			verboseLevel = max(verboseLevel, level)
		} else if debugEnv == "true" {
			verboseLevel = 2
		}
	}

	if a.Hooks != nil {
		a.Hooks.SetLevel(verboseLevel)
	}
	if verboseLevel > 0 {
		a.Logger = slog.New(slog.NewTextHandler(a.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
}

// Client builds a search API client using the stored API key.
func (a *App) Client() (*api.Client, error) {
	key, err := a.Auth.APIKey()
	if err != nil {
		return nil, err
	}
	return api.NewClient(a.Config.BaseURL, key,
		api.WithPageSize(a.Config.PageSize),
		api.WithMaxRetries(a.Config.MaxRetries),
		api.WithHooks(a.Hooks),
		api.WithLogger(a.Logger),
		api.WithBreaker(api.DefaultBreakerSettings(a.Logger)),
		api.WithLimiter(resilience.NewRateLimiter(resilience.NewStore(""), resilience.DefaultRateLimiterConfig(), a.Logger)),
	)
}

// Favourites opens the configured favourites store on first use and
// returns the toggler over it.
func (a *App) Favourites(ctx context.Context) (*favourites.Toggler, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.favToggler != nil {
		return a.favToggler, nil
	}
	store, err := favourites.Open(ctx, a.Config.FavouritesBackend, a.Config.DataDir)
	if err != nil {
		return nil, output.ErrStorage("open favourites", err)
	}
	a.favStore = store
	a.favToggler = favourites.NewToggler(store, favourites.WithErrorHandler(func(id string, err error) {
		a.Logger.Warn("favourite not saved", "id", id, "error", err)
	}))
	return a.favToggler, nil
}

// Locator returns where searches run from: configured coordinates first,
// then IP geolocation.
func (a *App) Locator() geo.Locator {
	var chain geo.Chain
	if loc, ok := a.Config.Location(); ok {
		chain = append(chain, geo.Static(loc))
	}
	if a.Config.GeolocateURL != "" {
		chain = append(chain, geo.NewIPLocator(a.Config.GeolocateURL))
	}
	return chain
}

// NewController builds a restaurant collection wired to the app's hooks,
// logger and config.
func (a *App) NewController(ctx context.Context, provider restaurant.Provider, favs restaurant.FavouriteChecker) *restaurant.Controller {
	return restaurant.NewController(ctx, provider, favs, restaurant.Options{
		PreloadWindow: a.Config.PreloadWindow,
		Supersede:     a.Config.Supersede,
		MapError:      api.MapError,
		Hooks:         a.Hooks,
		Logger:        a.Logger,
	})
}

// Close releases the favourites store.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.favStore == nil {
		return nil
	}
	err := a.favStore.Close()
	a.favStore, a.favToggler = nil, nil
	return err
}

// OK outputs a success response, automatically including stats if --stats flag is set.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	if a.Flags.Stats && a.Collector != nil {
		opts = append(opts, output.WithStats(a.Collector.Summary().Map()))
	}
	return a.Output.OK(data, opts...)
}

// Err outputs an error response, printing stats to stderr if --stats flag is set.
func (a *App) Err(err error) error {
	if outputErr := a.Output.Err(err); outputErr != nil {
		return outputErr
	}
	if a.Flags.Stats && a.Collector != nil && !a.isMachineOutput() {
		fmt.Fprintf(a.Stderr, "\nStats: %s\n", a.Collector.Summary().Line())
	}
	return nil
}

// isMachineOutput returns true if the output mode is intended for programmatic consumption.
func (a *App) isMachineOutput() bool {
	switch a.Output.Format() {
	case output.FormatQuiet, output.FormatIDs, output.FormatCount:
		return true
	}
	return a.Flags.JQ != ""
}

// IsInteractive returns true if the terminal supports interactive TUI.
func (a *App) IsInteractive() bool {
	if a.Flags.JSON || a.Flags.YAML || a.Flags.Quiet || a.Flags.IDsOnly || a.Flags.Count || a.Flags.JQ != "" {
		return false
	}
	return isTerminal(a.Stdout) && isTerminal(os.Stdin)
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// FavouritesPath is where favourites are stored, for display.
func (a *App) FavouritesPath() string {
	if a.Config.FavouritesBackend == favourites.BackendSQLite {
		return filepath.Join(a.Config.DataDir, favourites.SQLiteFileName)
	}
	return filepath.Join(a.Config.DataDir, favourites.FileName)
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
