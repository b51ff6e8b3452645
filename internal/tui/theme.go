package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/pelletier/go-toml/v2"
)

// ThemeEnv names the environment variable pointing at a theme file.
const ThemeEnv = "LUNCHBOX_THEME"

// ResolveTheme loads a theme with the following precedence:
//  1. NO_COLOR env var set → returns NoColorTheme
//  2. LUNCHBOX_THEME env var → custom theme file
//  3. User theme from ~/.config/lunchbox/theme.toml
//  4. Default theme
func ResolveTheme() Theme {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return NoColorTheme()
	}

	if path := os.Getenv(ThemeEnv); path != "" {
		if theme, err := LoadThemeFromFile(path); err == nil {
			return theme
		}
	}

	if theme, err := LoadUserTheme(); err == nil {
		return theme
	}

	return DefaultTheme()
}

// NoColorTheme returns a theme with empty colors (honors NO_COLOR standard).
// Lipgloss treats empty strings as "no color", resulting in plain text output.
func NoColorTheme() Theme {
	empty := lipgloss.AdaptiveColor{Light: "", Dark: ""}
	return Theme{
		Primary:    empty,
		Secondary:  empty,
		Success:    empty,
		Warning:    empty,
		Error:      empty,
		Muted:      empty,
		Background: empty,
		Foreground: empty,
		Border:     empty,
	}
}

// UserThemePath returns ~/.config/lunchbox/theme.toml, honoring XDG_CONFIG_HOME.
func UserThemePath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "lunchbox", "theme.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lunchbox", "theme.toml"), nil
}

// LoadUserTheme attempts to load the user's theme file.
func LoadUserTheme() (Theme, error) {
	path, err := UserThemePath()
	if err != nil {
		return Theme{}, err
	}
	return LoadThemeFromFile(path)
}

// LoadThemeFromFile parses a TOML theme file and returns a Theme.
func LoadThemeFromFile(path string) (Theme, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path from trusted config
	if err != nil {
		return Theme{}, err
	}

	colors, err := parseThemeTOML(data)
	if err != nil {
		return Theme{}, fmt.Errorf("parse theme %s: %w", path, err)
	}
	return mapColorsToTheme(colors), nil
}

var errNoColors = errors.New("no valid colors")

// parseThemeTOML returns the top-level string keys holding hex colors.
// Tables such as [colors] are flattened one level so terminal theme files
// that group their palette still load.
func parseThemeTOML(data []byte) (map[string]string, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	result := make(map[string]string)
	collect := func(m map[string]any) {
		for k, v := range m {
			if s, ok := v.(string); ok && isValidHexColor(s) {
				result[k] = s
			}
		}
	}
	collect(raw)
	for _, v := range raw {
		if table, ok := v.(map[string]any); ok {
			collect(table)
		}
	}

	if len(result) == 0 {
		return nil, errNoColors
	}
	return result, nil
}

// isValidHexColor checks if a string is a valid hex color (#RGB or #RRGGBB).
func isValidHexColor(s string) bool {
	if len(s) == 0 || s[0] != '#' {
		return false
	}
	hex := s[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return false
	}
	for _, c := range hex {
		isDigit := c >= '0' && c <= '9'
		isLower := c >= 'a' && c <= 'f'
		isUpper := c >= 'A' && c <= 'F'
		if !isDigit && !isLower && !isUpper {
			return false
		}
	}
	return true
}

// mapColorsToTheme maps theme color names to Theme semantics.
//
// Supported color keys (compatible with terminal theme formats):
//
//	accent = "#89b4fa"       → Primary
//	foreground = "#cdd6f4"   → Foreground
//	background = "#1e1e2e"   → Background
//	color1 = "#f38ba8"       → Error (red)
//	color2 = "#a6e3a1"       → Success (green)
//	color3 = "#f9e2af"       → Warning (yellow)
//	color4 = "#89b4fa"       → Primary fallback (blue)
//	color7 = "#bac2de"       → Secondary (white/light)
//	color8 = "#585b70"       → Muted, Border (bright black)
func mapColorsToTheme(colors map[string]string) Theme {
	defaults := DefaultTheme()

	// Terminal themes are typically dark, so only Dark variants are replaced.
	pick := func(def lipgloss.AdaptiveColor, keys ...string) lipgloss.AdaptiveColor {
		for _, k := range keys {
			if v, ok := colors[k]; ok {
				return lipgloss.AdaptiveColor{Light: def.Light, Dark: v}
			}
		}
		return def
	}

	return Theme{
		Primary:    pick(defaults.Primary, "accent", "color4"),
		Secondary:  pick(defaults.Secondary, "color7"),
		Success:    pick(defaults.Success, "color2"),
		Warning:    pick(defaults.Warning, "color3"),
		Error:      pick(defaults.Error, "color1"),
		Muted:      pick(defaults.Muted, "color8", "color0"),
		Background: pick(defaults.Background, "background"),
		Foreground: pick(defaults.Foreground, "foreground"),
		Border:     pick(defaults.Border, "color8", "color0"),
	}
}
