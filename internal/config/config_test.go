package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"LUNCHBOX_BASE_URL", "LUNCHBOX_FAVOURITES_BACKEND", "LUNCHBOX_DATA_DIR",
	"LUNCHBOX_FORMAT", "LUNCHBOX_SORT", "LUNCHBOX_PAGE_SIZE", "LUNCHBOX_MAX_RETRIES",
	"LUNCHBOX_LAT", "LUNCHBOX_LNG", "LUNCHBOX_SUPERSEDE",
}

// isolate points every config location at temp dirs and clears the env.
func isolate(t *testing.T) (home string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	t.Chdir(home)

	var warnings bytes.Buffer
	old := Warnings
	Warnings = &warnings
	t.Cleanup(func() { Warnings = old })
	return home
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestDefault(t *testing.T) {
	home := isolate(t)
	cfg := Default()

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 5, cfg.PreloadWindow)
	assert.Equal(t, "best_match", cfg.Sort)
	assert.Equal(t, "file", cfg.FavouritesBackend)
	assert.Equal(t, "auto", cfg.Format)
	assert.False(t, cfg.Supersede)
	assert.Equal(t, filepath.Join(home, ".local", "share", "lunchbox"), cfg.DataDir)
	assert.Equal(t, filepath.Join(home, ".config", "lunchbox"), cfg.ConfigDir)
	assert.NotNil(t, cfg.Sources)
	assert.NoError(t, cfg.Validate())

	_, ok := cfg.Location()
	assert.False(t, ok)
}

func TestLoadFromFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.json")
	writeJSON(t, path, map[string]any{
		"base_url":           "test.example.com",
		"page_size":          30,
		"max_retries":        1,
		"preload_window":     8,
		"radius":             1500,
		"sort":               "distance",
		"latitude":           52.52,
		"longitude":          13.405,
		"favourites_backend": "sqlite",
		"data_dir":           "/tmp/lunchbox",
		"format":             "json",
		"supersede":          true,
		"unknown_key":        "ignored",
	})

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, path, SourceGlobal))

	assert.Equal(t, "https://test.example.com", cfg.BaseURL)
	assert.Equal(t, 30, cfg.PageSize)
	assert.Equal(t, 1, cfg.MaxRetries)
	assert.Equal(t, 8, cfg.PreloadWindow)
	assert.Equal(t, 1500, cfg.Radius)
	assert.Equal(t, "distance", cfg.Sort)
	assert.Equal(t, "sqlite", cfg.FavouritesBackend)
	assert.Equal(t, "/tmp/lunchbox", cfg.DataDir)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.Supersede)

	loc, ok := cfg.Location()
	require.True(t, ok)
	assert.InDelta(t, 52.52, loc.Latitude, 1e-9)
	assert.InDelta(t, 13.405, loc.Longitude, 1e-9)

	assert.Equal(t, SourceGlobal, cfg.Source("base_url"))
	assert.Equal(t, SourceGlobal, cfg.Source("latitude"))
	assert.Equal(t, SourceDefault, cfg.Source("geolocate_url"))
	assert.NotContains(t, cfg.Sources, "unknown_key")
}

func TestLoadFromFileSkipsInvalidJSON(t *testing.T) {
	isolate(t)
	var warnings bytes.Buffer
	Warnings = &warnings

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("not valid json"), 0o644))

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, path, SourceGlobal))
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Contains(t, warnings.String(), "skipping malformed config")
}

func TestLoadFromFileSkipsMissingFile(t *testing.T) {
	cfg := Default()
	require.NoError(t, loadFromFile(cfg, "/nonexistent/path/config.json", SourceGlobal))
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
}

func TestLoadFromFileRejectsWrongTypes(t *testing.T) {
	tests := map[string]any{
		"page_size": "twenty",
		"radius":    1.5,
		"latitude":  "north",
		"supersede": "yes",
		"sort":      3,
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			writeJSON(t, path, map[string]any{key: value})

			err := loadFromFile(Default(), path, SourceGlobal)
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLocalConfigCannotSetBaseURL(t *testing.T) {
	isolate(t)
	var warnings bytes.Buffer
	Warnings = &warnings

	path := filepath.Join(t.TempDir(), ".lunchbox", "config.json")
	writeJSON(t, path, map[string]any{
		"base_url":  "https://evil.example.com",
		"page_size": 10,
	})

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, path, SourceLocal))
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Contains(t, warnings.String(), "ignoring base_url")
}

func TestLoadPrecedence(t *testing.T) {
	home := isolate(t)

	writeJSON(t, filepath.Join(home, ".config", "lunchbox", "config.json"), map[string]any{
		"page_size": 25,
		"radius":    800,
		"sort":      "rating",
		"format":    "yaml",
	})
	project := filepath.Join(home, "code", "lunch")
	writeJSON(t, filepath.Join(project, ".lunchbox", "config.json"), map[string]any{
		"radius": 1200,
		"sort":   "distance",
	})
	t.Chdir(project)
	t.Setenv("LUNCHBOX_SORT", "review_count")
	t.Setenv("LUNCHBOX_LAT", "40.7")
	t.Setenv("LUNCHBOX_LNG", "-74.0")

	cfg, err := Load(FlagOverrides{Format: "json"})
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, SourceGlobal, cfg.Source("page_size"))
	assert.Equal(t, 1200, cfg.Radius)
	assert.Equal(t, SourceLocal, cfg.Source("radius"))
	assert.Equal(t, "review_count", cfg.Sort)
	assert.Equal(t, SourceEnv, cfg.Source("sort"))
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, SourceFlag, cfg.Source("format"))

	loc, ok := cfg.Location()
	require.True(t, ok)
	assert.InDelta(t, 40.7, loc.Latitude, 1e-9)
}

func TestLoadConfigDirOverride(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "config.json"), map[string]any{"page_size": 40})

	cfg, err := Load(FlagOverrides{ConfigDir: dir, DataDir: "/data"})
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.ConfigDir)
	assert.Equal(t, 40, cfg.PageSize)
	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, SourceFlag, cfg.Source("data_dir"))
}

func TestLoadValidates(t *testing.T) {
	isolate(t)
	t.Setenv("LUNCHBOX_PAGE_SIZE", "500")

	_, err := Load(FlagOverrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page_size")
}

func TestLocalConfigPathsStopAtHome(t *testing.T) {
	home := isolate(t)
	nested := filepath.Join(home, "a", "b")
	writeJSON(t, filepath.Join(home, "a", ".lunchbox", "config.json"), map[string]any{})
	writeJSON(t, filepath.Join(nested, ".lunchbox", "config.json"), map[string]any{})
	t.Chdir(nested)

	paths := localConfigPaths()
	require.Len(t, paths, 2)
	assert.Contains(t, paths[0], filepath.Join("a", ".lunchbox"))
	assert.Contains(t, paths[1], filepath.Join("b", ".lunchbox"))
}

func TestLocalConfigPathsOutsideHome(t *testing.T) {
	isolate(t)
	outside := t.TempDir()
	inner := filepath.Join(outside, "inner")
	writeJSON(t, filepath.Join(outside, ".lunchbox", "config.json"), map[string]any{})
	require.NoError(t, os.MkdirAll(inner, 0o755))
	t.Chdir(inner)

	assert.Empty(t, localConfigPaths(), "parents are not trusted outside $HOME")
}

func TestValidate(t *testing.T) {
	lat := 52.5
	badLat := 120.0
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"page size zero", func(c *Config) { c.PageSize = 0 }, "page_size"},
		{"page size too big", func(c *Config) { c.PageSize = 51 }, "page_size"},
		{"retries", func(c *Config) { c.MaxRetries = 11 }, "max_retries"},
		{"preload", func(c *Config) { c.PreloadWindow = -1 }, "preload_window"},
		{"radius", func(c *Config) { c.Radius = 50000 }, "radius"},
		{"sort", func(c *Config) { c.Sort = "cheapest" }, "unknown sort"},
		{"backend", func(c *Config) { c.FavouritesBackend = "redis" }, "favourites_backend"},
		{"half a location", func(c *Config) { c.Latitude = &lat }, "together"},
		{"location range", func(c *Config) { c.Latitude, c.Longitude = &badLat, &lat }, "latitude"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		key, value string
		want       any
		wantErr    bool
	}{
		{"page_size", "30", 30, false},
		{"page_size", "300", nil, true},
		{"page_size", "abc", nil, true},
		{"latitude", "52.52", 52.52, false},
		{"latitude", "95", nil, true},
		{"supersede", "yes", true, false},
		{"supersede", "maybe", nil, true},
		{"sort", "rating", "rating", false},
		{"sort", "cheapest", nil, true},
		{"favourites_backend", "sqlite", "sqlite", false},
		{"base_url", "http://localhost:8080", "http://localhost:8080", false},
		{"base_url", "http://api.example.com", nil, true},
		{"geolocate_url", "ftp://geo.example.com", nil, true},
		{"nope", "1", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			got, err := ParseValue(tt.key, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetAndUnsetValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	require.NoError(t, SetValue(path, "page_size", 30))
	require.NoError(t, SetValue(path, "sort", "rating"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, path, SourceGlobal))
	assert.Equal(t, 30, cfg.PageSize)
	assert.Equal(t, "rating", cfg.Sort)

	removed, err := UnsetValue(path, "sort")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = UnsetValue(path, "sort")
	require.NoError(t, err)
	assert.False(t, removed)

	cfg = Default()
	require.NoError(t, loadFromFile(cfg, path, SourceGlobal))
	assert.Equal(t, "best_match", cfg.Sort)
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"true", "1", "YES", " on "} {
		b, ok := ParseBool(v)
		assert.True(t, ok, v)
		assert.True(t, b, v)
	}
	for _, v := range []string{"false", "0", "no", "off"} {
		b, ok := ParseBool(v)
		assert.True(t, ok, v)
		assert.False(t, b, v)
	}
	_, ok := ParseBool("maybe")
	assert.False(t, ok)
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.yelp.com", NormalizeBaseURL("https://api.yelp.com/"))
	assert.Equal(t, "https://api.yelp.com", NormalizeBaseURL("https://api.yelp.com"))
}
