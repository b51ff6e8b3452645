// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/lunchbox/lunchbox-cli/internal/hostutil"
	"github.com/lunchbox/lunchbox-cli/internal/restaurant"
)

// Config holds the resolved configuration.
type Config struct {
	// API settings
	BaseURL    string `json:"base_url"`
	PageSize   int    `json:"page_size"`
	MaxRetries int    `json:"max_retries"`

	// Collection behaviour
	PreloadWindow int  `json:"preload_window"`
	Supersede     bool `json:"supersede"`

	// Search defaults
	Radius       int      `json:"radius"`
	Sort         string   `json:"sort"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	GeolocateURL string   `json:"geolocate_url"`

	// Storage
	FavouritesBackend string `json:"favourites_backend"`
	DataDir           string `json:"data_dir"`

	// Output settings
	Format string `json:"format"`

	// ConfigDir is the directory holding the global config file. Set at
	// runtime, not persisted.
	ConfigDir string `json:"-"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `json:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global"
	SourceLocal   Source = "local"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	ConfigDir string
	DataDir   string
	Format    string
}

const (
	// DefaultBaseURL is the public search API.
	DefaultBaseURL = "https://api.yelp.com"

	// DefaultGeolocateURL answers IP geolocation lookups.
	DefaultGeolocateURL = "https://ipapi.co/json/"

	localDirName = ".lunchbox"
	fileName     = "config.json"
)

// Keys lists every settable config key.
var Keys = []string{
	"base_url", "data_dir", "favourites_backend", "format", "geolocate_url",
	"latitude", "longitude", "max_retries", "page_size", "preload_window",
	"radius", "sort", "supersede",
}

// untrustedKeys decide where the API key is sent, so local config files
// picked up from the working directory may not set them.
var untrustedKeys = map[string]bool{"base_url": true}

// Warnings receives messages about skipped config values.
var Warnings io.Writer = os.Stderr

// Default returns the default configuration.
func Default() *Config {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}

	return &Config{
		BaseURL:           DefaultBaseURL,
		PageSize:          20,
		MaxRetries:        3,
		PreloadWindow:     5,
		Sort:              string(restaurant.SortBestMatch),
		GeolocateURL:      DefaultGeolocateURL,
		FavouritesBackend: "file",
		DataDir:           filepath.Join(dataDir, "lunchbox"),
		Format:            "auto",
		ConfigDir:         GlobalConfigDir(),
		Sources:           make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > local > global > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()
	if overrides.ConfigDir != "" {
		cfg.ConfigDir = overrides.ConfigDir
		cfg.Sources["config_dir"] = string(SourceFlag)
	}

	global := filepath.Join(cfg.ConfigDir, fileName)
	if err := loadFromFile(cfg, global, SourceGlobal); err != nil {
		return nil, err
	}
	for _, path := range localConfigPaths() {
		if path == global {
			continue
		}
		if err := loadFromFile(cfg, path, SourceLocal); err != nil {
			return nil, err
		}
	}

	LoadFromEnv(cfg)
	ApplyOverrides(cfg, overrides)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile applies one config file. A missing file is skipped; a
// malformed one is skipped with a warning. Values of the wrong type are
// errors so a typo does not silently fall back to a default.
func loadFromFile(cfg *Config, path string, source Source) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config locations
	if err != nil {
		return nil
	}

	var fileCfg map[string]any
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		fmt.Fprintf(Warnings, "warning: skipping malformed config at %s: %v\n", path, err)
		return nil
	}

	keys := make([]string, 0, len(fileCfg))
	for k := range fileCfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if source == SourceLocal && untrustedKeys[key] {
			fmt.Fprintf(Warnings, "warning: ignoring %s from local config at %s (only global config may set it)\n", key, path)
			continue
		}
		if err := cfg.set(key, fileCfg[key]); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		cfg.Sources[key] = string(source)
	}
	return nil
}

// set assigns one decoded JSON value. Unknown keys are ignored.
func (cfg *Config) set(key string, v any) error {
	switch key {
	case "base_url":
		return setURL(&cfg.BaseURL, key, v)
	case "sort":
		return setString(&cfg.Sort, key, v)
	case "geolocate_url":
		return setURL(&cfg.GeolocateURL, key, v)
	case "favourites_backend":
		return setString(&cfg.FavouritesBackend, key, v)
	case "data_dir":
		return setString(&cfg.DataDir, key, v)
	case "format":
		return setString(&cfg.Format, key, v)
	case "page_size":
		return setInt(&cfg.PageSize, key, v)
	case "max_retries":
		return setInt(&cfg.MaxRetries, key, v)
	case "preload_window":
		return setInt(&cfg.PreloadWindow, key, v)
	case "radius":
		return setInt(&cfg.Radius, key, v)
	case "latitude":
		return setFloat(&cfg.Latitude, key, v)
	case "longitude":
		return setFloat(&cfg.Longitude, key, v)
	case "supersede":
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("%s must be true or false", key)
		}
		cfg.Supersede = b
	}
	return nil
}

func setURL(dst *string, key string, v any) error {
	var s string
	if err := setString(&s, key, v); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	s = hostutil.Normalize(s)
	if err := hostutil.RequireSecureURL(s); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = s
	return nil
}

func setString(dst *string, key string, v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("%s must be a string", key)
	}
	if s != "" {
		*dst = s
	}
	return nil
}

func setInt(dst *int, key string, v any) error {
	f, ok := v.(float64)
	if !ok || f != float64(int(f)) {
		return fmt.Errorf("%s must be a whole number", key)
	}
	*dst = int(f)
	return nil
}

func setFloat(dst **float64, key string, v any) error {
	f, ok := v.(float64)
	if !ok {
		return fmt.Errorf("%s must be a number", key)
	}
	*dst = &f
	return nil
}

// LoadFromEnv loads configuration from environment variables. Values that
// do not parse are ignored.
func LoadFromEnv(cfg *Config) {
	envString := func(name, key string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
			cfg.Sources[key] = string(SourceEnv)
		}
	}
	envInt := func(name, key string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
				cfg.Sources[key] = string(SourceEnv)
			}
		}
	}
	envFloat := func(name, key string, dst **float64) {
		if v := os.Getenv(name); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = &f
				cfg.Sources[key] = string(SourceEnv)
			}
		}
	}

	envString("LUNCHBOX_BASE_URL", "base_url", &cfg.BaseURL)
	envString("LUNCHBOX_FAVOURITES_BACKEND", "favourites_backend", &cfg.FavouritesBackend)
	envString("LUNCHBOX_DATA_DIR", "data_dir", &cfg.DataDir)
	envString("LUNCHBOX_FORMAT", "format", &cfg.Format)
	envString("LUNCHBOX_SORT", "sort", &cfg.Sort)
	envInt("LUNCHBOX_PAGE_SIZE", "page_size", &cfg.PageSize)
	envInt("LUNCHBOX_MAX_RETRIES", "max_retries", &cfg.MaxRetries)
	envFloat("LUNCHBOX_LAT", "latitude", &cfg.Latitude)
	envFloat("LUNCHBOX_LNG", "longitude", &cfg.Longitude)

	if v := os.Getenv("LUNCHBOX_SUPERSEDE"); v != "" {
		if b, ok := ParseBool(v); ok {
			cfg.Supersede = b
			cfg.Sources["supersede"] = string(SourceEnv)
		}
	}
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
		cfg.Sources["data_dir"] = string(SourceFlag)
	}
	if o.Format != "" {
		cfg.Format = o.Format
		cfg.Sources["format"] = string(SourceFlag)
	}
}

// Validate checks value ranges once every layer is applied.
func (cfg *Config) Validate() error {
	if cfg.PageSize < 1 || cfg.PageSize > 50 {
		return fmt.Errorf("page_size %d out of range (1-50)", cfg.PageSize)
	}
	if cfg.MaxRetries < 0 || cfg.MaxRetries > 10 {
		return fmt.Errorf("max_retries %d out of range (0-10)", cfg.MaxRetries)
	}
	if cfg.PreloadWindow < 0 {
		return fmt.Errorf("preload_window must not be negative")
	}
	if cfg.Radius < 0 || cfg.Radius > restaurant.MaxRadiusMeters {
		return fmt.Errorf("radius %d out of range (0-%d)", cfg.Radius, restaurant.MaxRadiusMeters)
	}
	if _, err := restaurant.ParseSortOrder(cfg.Sort); err != nil {
		return err
	}
	switch cfg.FavouritesBackend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("favourites_backend %q unknown (want file or sqlite)", cfg.FavouritesBackend)
	}
	if (cfg.Latitude == nil) != (cfg.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must be set together")
	}
	if loc, ok := cfg.Location(); ok {
		if err := loc.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Location returns the configured search location, if both coordinates
// are set.
func (cfg *Config) Location() (restaurant.Location, bool) {
	if cfg.Latitude == nil || cfg.Longitude == nil {
		return restaurant.Location{}, false
	}
	return restaurant.Location{Latitude: *cfg.Latitude, Longitude: *cfg.Longitude}, true
}

// Source returns where key's value came from.
func (cfg *Config) Source(key string) Source {
	if s, ok := cfg.Sources[key]; ok {
		return Source(s)
	}
	return SourceDefault
}

// Values returns every key with its current value, for display.
func (cfg *Config) Values() map[string]any {
	values := map[string]any{
		"base_url":           cfg.BaseURL,
		"page_size":          cfg.PageSize,
		"max_retries":        cfg.MaxRetries,
		"preload_window":     cfg.PreloadWindow,
		"supersede":          cfg.Supersede,
		"radius":             cfg.Radius,
		"sort":               cfg.Sort,
		"geolocate_url":      cfg.GeolocateURL,
		"favourites_backend": cfg.FavouritesBackend,
		"data_dir":           cfg.DataDir,
		"format":             cfg.Format,
	}
	if cfg.Latitude != nil {
		values["latitude"] = *cfg.Latitude
	}
	if cfg.Longitude != nil {
		values["longitude"] = *cfg.Longitude
	}
	return values
}

// ParseBool accepts the usual spellings of true and false.
func ParseBool(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// ParseValue converts a command-line string into the JSON value stored for
// key, checking it against a default config.
func ParseValue(key, value string) (any, error) {
	var v any
	switch key {
	case "page_size", "max_retries", "preload_window", "radius":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be a whole number", key)
		}
		v = float64(n)
	case "latitude", "longitude":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", key)
		}
		v = f
	case "supersede":
		b, ok := ParseBool(value)
		if !ok {
			return nil, fmt.Errorf("%s must be true/false (or 1/0)", key)
		}
		v = b
	case "base_url", "sort", "geolocate_url", "favourites_backend", "data_dir", "format":
		v = value
	default:
		return nil, fmt.Errorf("invalid config key %q (valid keys: %s)", key, strings.Join(Keys, ", "))
	}

	probe := Default()
	if err := probe.set(key, v); err != nil {
		return nil, err
	}
	if key == "latitude" || key == "longitude" {
		zero := 0.0
		if probe.Latitude == nil {
			probe.Latitude = &zero
		}
		if probe.Longitude == nil {
			probe.Longitude = &zero
		}
	}
	if err := probe.Validate(); err != nil {
		return nil, err
	}
	if n, ok := v.(float64); ok && (key != "latitude" && key != "longitude") {
		return int(n), nil
	}
	return v, nil
}

// SetValue writes key=value into the config file at path, creating it
// if needed.
func SetValue(path, key string, value any) error {
	data, err := readFileMap(path)
	if err != nil {
		return err
	}
	data[key] = value
	return writeFileMap(path, data)
}

// UnsetValue removes key from the config file at path. It reports whether
// the key was present.
func UnsetValue(path, key string) (bool, error) {
	data, err := readFileMap(path)
	if err != nil {
		return false, err
	}
	if _, ok := data[key]; !ok {
		return false, nil
	}
	delete(data, key)
	return true, writeFileMap(path, data)
}

func readFileMap(path string) (map[string]any, error) {
	data := make(map[string]any)
	raw, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config location
	if os.IsNotExist(err) {
		return data, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(raw, &data) // start fresh if invalid
	return data, nil
}

func writeFileMap(path string, m map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return atomicWriteFile(path, append(data, '\n'))
}

// atomicWriteFile writes data to a file atomically using temp+rename.
// Files are always created with 0600 permissions (owner read/write only).
func atomicWriteFile(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	// Windows: rename fails when the destination exists.
	if err := os.Rename(tmpPath, path); err != nil && runtime.GOOS == "windows" {
		_ = os.Remove(path)
		return os.Rename(tmpPath, path)
	} else { //nolint:revive // two-branch pattern
		return err
	}
}

// Path helpers

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "lunchbox")
}

// GlobalConfigPath returns the global config file inside dir.
func GlobalConfigPath(dir string) string {
	return filepath.Join(dir, fileName)
}

// LocalConfigPath returns the local config file for the working directory.
func LocalConfigPath() string {
	return filepath.Join(localDirName, fileName)
}

// localConfigPaths returns .lunchbox/config.json files from the working
// directory up to $HOME (or only the working directory when it lies
// outside $HOME), furthest first so closer configs override.
func localConfigPaths() []string {
	dir, err := os.Getwd()
	if err != nil {
		return nil // fail closed
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil
	}
	dir = resolved

	home, _ := os.UserHomeDir()
	if r, err := filepath.EvalSymlinks(home); err == nil {
		home = r
	}
	boundary := dir
	if home != "" && isInsideDir(dir, home) {
		boundary = home
	}

	var paths []string
	for {
		cfgPath := filepath.Join(dir, localDirName, fileName)
		if _, err := os.Stat(cfgPath); err == nil {
			paths = append(paths, cfgPath)
		}
		parent := filepath.Dir(dir)
		if parent == dir || dir == boundary {
			break
		}
		dir = parent
	}

	for i, j := 0, len(paths)-1; i < j; i, j = i+1, j-1 {
		paths[i], paths[j] = paths[j], paths[i]
	}
	return paths
}

// isInsideDir reports whether child is the same as or a subdirectory of parent.
// Both paths must be absolute and already cleaned/resolved.
func isInsideDir(child, parent string) bool {
	if child == parent {
		return true
	}
	prefix := parent
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(child, prefix)
}

// NormalizeBaseURL ensures consistent URL format (no trailing slash).
func NormalizeBaseURL(url string) string {
	return strings.TrimSuffix(url, "/")
}
