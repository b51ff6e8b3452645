package tui

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Locale holds resolved number formatting conventions.
type Locale struct {
	tag     language.Tag
	printer *message.Printer
}

// DetectLocale resolves the user's locale from LC_ALL, LC_NUMERIC or LANG.
// Falls back to en-US if nothing is set or parseable.
func DetectLocale() Locale {
	for _, env := range []string{"LC_ALL", "LC_NUMERIC", "LANG"} {
		if raw := os.Getenv(env); raw != "" {
			return NewLocale(raw)
		}
	}
	return NewLocale("")
}

// NewLocale creates a Locale from a POSIX locale string (e.g. "de_DE.UTF-8")
// or BCP 47 tag (e.g. "de-DE"). Returns en-US for empty or unparseable input.
func NewLocale(raw string) Locale {
	if idx := strings.IndexByte(raw, '.'); idx != -1 {
		raw = raw[:idx]
	}
	raw = strings.ReplaceAll(raw, "_", "-")

	tag, _ := language.Parse(raw)
	if tag == language.Und {
		tag = language.AmericanEnglish
	}
	return Locale{tag: tag, printer: message.NewPrinter(tag)}
}

// Tag returns the resolved language tag.
func (l Locale) Tag() language.Tag {
	return l.tag
}

// FormatNumber formats v with locale grouping and at most digits fraction digits.
func (l Locale) FormatNumber(v float64, digits int) string {
	return l.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(digits)))
}

// FormatCount formats an integer count with locale grouping.
func (l Locale) FormatCount(n int) string {
	return l.printer.Sprint(number.Decimal(n))
}

// FormatDistance renders meters as "850 m" below a kilometer and "1.2 km" above.
func (l Locale) FormatDistance(meters float64) string {
	if meters <= 0 {
		return ""
	}
	if meters < 1000 {
		return l.FormatNumber(float64(int(meters+0.5)), 0) + " m"
	}
	return l.FormatNumber(meters/1000, 1) + " km"
}

var (
	localeOnce sync.Once
	userLocale Locale
)

func currentLocale() Locale {
	localeOnce.Do(func() { userLocale = DetectLocale() })
	return userLocale
}

// FormatDistance formats meters in the user's locale.
func FormatDistance(meters float64) string {
	return currentLocale().FormatDistance(meters)
}

// FormatCount formats a count in the user's locale.
func FormatCount(n int) string {
	return currentLocale().FormatCount(n)
}

// Truncate shortens s to at most width terminal columns, marking the cut
// with "...". Width is measured with lipgloss, so wide characters count twice.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	const marker = "..."
	if width <= len(marker) {
		return fitWidth(s, width)
	}
	return fitWidth(s, width-len(marker)) + marker
}

// fitWidth drops trailing runes until s fits in width columns.
func fitWidth(s string, width int) string {
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}
