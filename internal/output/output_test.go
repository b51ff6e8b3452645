package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/lunchbox/lunchbox-cli/internal/tui"
)

type sampleRestaurant struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Rating         float64  `json:"rating"`
	PriceLevel     int      `json:"price_level,omitempty"`
	DistanceMeters float64  `json:"distance_meters"`
	Cuisines       []string `json:"cuisines,omitempty"`
	URL            string   `json:"url,omitempty"`
}

var samples = []sampleRestaurant{
	{ID: "r-1", Name: "Ramen Ya", Rating: 4.5, PriceLevel: 2, DistanceMeters: 420, Cuisines: []string{"ramen", "japanese"}, URL: "https://example.com/r-1"},
	{ID: "r-2", Name: "Taco Stand", Rating: 4, DistanceMeters: 1830},
}

// =============================================================================
// Exit Codes Tests
// =============================================================================

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{CodeUsage, ExitUsage},
		{CodeNotFound, ExitNotFound},
		{CodeAuth, ExitAuth},
		{CodeForbidden, ExitForbidden},
		{CodeRateLimit, ExitRateLimit},
		{CodeNetwork, ExitNetwork},
		{CodeAPI, ExitAPI},
		{CodeStorage, ExitStorage},
		{CodeUnavailable, ExitUnavailable},
		{"unknown_code", ExitAPI},
		{"", ExitAPI},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ExitCodeFor(tt.code); got != tt.expected {
				t.Errorf("ExitCodeFor(%q) = %d, want %d", tt.code, got, tt.expected)
			}
		})
	}
}

// =============================================================================
// Error Tests
// =============================================================================

func TestErrorInterface(t *testing.T) {
	err := ErrUsageHint("bad radius", "Use a value up to 40000")
	if got := err.Error(); got != "bad radius: Use a value up to 40000" {
		t.Errorf("Error() = %q", got)
	}
	if got := ErrUsage("plain").Error(); got != "plain" {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrorConstructors(t *testing.T) {
	cause := errors.New("disk full")
	tests := []struct {
		name      string
		err       *Error
		code      string
		exit      int
		retryable bool
	}{
		{"usage", ErrUsage("x"), CodeUsage, ExitUsage, false},
		{"not found", ErrNotFound("restaurant", "r-1"), CodeNotFound, ExitNotFound, false},
		{"auth", ErrAuth("no key"), CodeAuth, ExitAuth, false},
		{"forbidden", ErrForbidden("nope"), CodeForbidden, ExitForbidden, false},
		{"rate limit", ErrRateLimit(3), CodeRateLimit, ExitRateLimit, true},
		{"network", ErrNetwork(cause), CodeNetwork, ExitNetwork, true},
		{"api 502", ErrAPI(502, "bad gateway"), CodeAPI, ExitAPI, true},
		{"api 418", ErrAPI(418, "teapot"), CodeAPI, ExitAPI, false},
		{"storage", ErrStorage("save favourite", cause), CodeStorage, ExitStorage, false},
		{"unavailable", ErrUnavailable(cause), CodeUnavailable, ExitUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.ExitCode() != tt.exit {
				t.Errorf("ExitCode() = %d, want %d", tt.err.ExitCode(), tt.exit)
			}
			if tt.err.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", tt.err.Retryable, tt.retryable)
			}
		})
	}
}

func TestErrNotFoundMessage(t *testing.T) {
	if got := ErrNotFound("restaurant", "r-9").Message; got != "restaurant not found: r-9" {
		t.Errorf("Message = %q", got)
	}
}

func TestErrNotFoundWithoutIdentifier(t *testing.T) {
	if got := ErrNotFound("restaurant", "").Message; got != "restaurant not found" {
		t.Errorf("Message = %q", got)
	}
}

func TestErrorIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("lookup: %w", ErrNotFound("restaurant", "r-1"))
	if !errors.Is(err, &Error{Code: CodeNotFound}) {
		t.Error("expected match on code")
	}
	if errors.Is(err, &Error{Code: CodeAuth}) {
		t.Error("expected no match on a different code")
	}
	if errors.Is(err, &Error{}) {
		t.Error("expected empty code not to match")
	}
}

func TestExitCodeForUnknownCode(t *testing.T) {
	if got := ExitCodeFor("mystery"); got != ExitAPI {
		t.Errorf("ExitCodeFor(mystery) = %d, want %d", got, ExitAPI)
	}
}

func TestErrAuthHint(t *testing.T) {
	if !strings.Contains(ErrAuth("missing key").Hint, "lunchbox auth login") {
		t.Error("expected login hint")
	}
}

func TestErrRateLimitHint(t *testing.T) {
	if got := ErrRateLimit(30).Hint; got != "Try again in 30 seconds" {
		t.Errorf("Hint = %q", got)
	}
	if got := ErrRateLimit(0).Hint; got != "Try again later" {
		t.Errorf("Hint = %q", got)
	}
}

func TestErrStorageWrapsCause(t *testing.T) {
	cause := errors.New("read-only file system")
	err := ErrStorage("save favourite", cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause to unwrap")
	}
	if err.Message != "Could not save favourite" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestAsError(t *testing.T) {
	orig := ErrNotFound("restaurant", "r-1")
	if AsError(orig) != orig {
		t.Error("expected same *Error back")
	}

	wrapped := errors.Join(errors.New("context"), orig)
	if AsError(wrapped) != orig {
		t.Error("expected wrapped *Error to be found")
	}

	plain := AsError(errors.New("boom"))
	if plain.Code != CodeAPI || plain.Message != "boom" {
		t.Errorf("unexpected conversion: %+v", plain)
	}
}

// =============================================================================
// Format Tests
// =============================================================================

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"json":     FormatJSON,
		"YAML":     FormatYAML,
		" md ":     FormatMarkdown,
		"markdown": FormatMarkdown,
		"styled":   FormatStyled,
		"ids":      FormatIDs,
		"count":    FormatCount,
		"quiet":    FormatQuiet,
		"auto":     FormatAuto,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v; want %v", in, got, err, want)
		}
	}

	_, err := ParseFormat("xml")
	if AsError(err).Code != CodeUsage {
		t.Errorf("expected usage error, got %v", err)
	}
}

func TestAutoFormatIsJSONWhenNotTTY(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Writer: &buf})
	if w.Format() != FormatJSON {
		t.Errorf("Format() = %v, want JSON", w.Format())
	}
}

// =============================================================================
// Writer Tests
// =============================================================================

func TestWriterOK(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatJSON, Writer: &buf})

	err := w.OK(samples, WithSummary("2 restaurants"), WithContext("query", "ramen"))
	if err != nil {
		t.Fatalf("OK() failed: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp["ok"] != true {
		t.Error("expected ok=true")
	}
	if resp["summary"] != "2 restaurants" {
		t.Errorf("summary = %v", resp["summary"])
	}
	if data, _ := resp["data"].([]any); len(data) != 2 {
		t.Errorf("expected 2 items, got %v", resp["data"])
	}
}

func TestWriterErr(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatJSON, Writer: &buf})

	if err := w.Err(ErrAuth("API key rejected")); err != nil {
		t.Fatalf("Err() failed: %v", err)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.OK || resp.Code != CodeAuth || resp.Error != "API key rejected" || resp.Hint == "" {
		t.Errorf("unexpected error response: %+v", resp)
	}
}

func TestWriterYAML(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatYAML, Writer: &buf})

	if err := w.OK(samples[0], WithSummary("Ramen Ya")); err != nil {
		t.Fatalf("OK() failed: %v", err)
	}

	var resp map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, buf.String())
	}
	data, _ := resp["data"].(map[string]any)
	if data["price_level"] != 2 {
		t.Errorf("expected json field names in YAML, got %v", data)
	}
	if !strings.Contains(buf.String(), "summary: Ramen Ya") {
		t.Errorf("expected summary line, got:\n%s", buf.String())
	}
}

func TestWriterQuietFormat(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatQuiet, Writer: &buf})

	if err := w.OK(map[string]any{"id": "r-1"}, WithSummary("ignored")); err != nil {
		t.Fatalf("OK() failed: %v", err)
	}
	if strings.Contains(buf.String(), "summary") {
		t.Errorf("quiet output should only contain data, got: %s", buf.String())
	}
}

func TestWriterIDsFormat(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatIDs, Writer: &buf})

	if err := w.OK(samples); err != nil {
		t.Fatalf("OK() failed: %v", err)
	}
	if got := buf.String(); got != "r-1\nr-2\n" {
		t.Errorf("IDs output = %q", got)
	}

	buf.Reset()
	if err := w.OK(map[string]any{"name": "no id"}); err != nil {
		t.Fatalf("OK() failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestWriterCountFormat(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatCount, Writer: &buf})

	if err := w.OK(samples); err != nil {
		t.Fatalf("OK() failed: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "2" {
		t.Errorf("count = %q, want 2", got)
	}

	buf.Reset()
	_ = w.OK(samples[0])
	if got := strings.TrimSpace(buf.String()); got != "1" {
		t.Errorf("count = %q, want 1", got)
	}
}

func TestWriterJQ(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatStyled, Writer: &buf, JQ: ".data[] | select(.rating >= 4.5) | .name"})

	if err := w.OK(samples); err != nil {
		t.Fatalf("OK() failed: %v", err)
	}
	if got := buf.String(); got != "Ramen Ya\n" {
		t.Errorf("jq output = %q", got)
	}

	buf.Reset()
	w = New(Options{Writer: &buf, JQ: "[.data[].distance_meters]"})
	if err := w.OK(samples); err != nil {
		t.Fatalf("OK() failed: %v", err)
	}
	if got := buf.String(); got != "[420,1830]\n" {
		t.Errorf("jq output = %q", got)
	}
}

func TestWriterJQInvalid(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Writer: &buf, JQ: ".data[ | "})

	err := w.OK(samples)
	if AsError(err).Code != CodeUsage {
		t.Errorf("expected usage error, got %v", err)
	}
}

func TestWriterJQSkipsErrors(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatJSON, Writer: &buf, JQ: ".ok"})

	if err := w.Err(ErrNotFound("restaurant", "r-1")); err != nil {
		t.Fatalf("Err() failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"code": "not_found"`) {
		t.Errorf("error envelope should bypass jq, got: %s", buf.String())
	}
}

func TestNewWithNilWriter(t *testing.T) {
	w := New(Options{Format: FormatJSON})
	if w.opts.Writer == nil {
		t.Error("expected default writer")
	}
}

func TestResponseOptions(t *testing.T) {
	resp := &Response{}
	WithBreadcrumbs(Breadcrumb{Action: "more", Cmd: "lunchbox search --offset 20"})(resp)
	WithBreadcrumbs(Breadcrumb{Action: "fav", Cmd: "lunchbox favourite add r-1"})(resp)
	WithMeta("total", 45)(resp)
	WithStats(map[string]any{"requests": 1})(resp)

	if len(resp.Breadcrumbs) != 2 {
		t.Errorf("expected breadcrumbs to append, got %d", len(resp.Breadcrumbs))
	}
	if resp.Meta["total"] != 45 || extractStats(resp.Meta)["requests"] != 1 {
		t.Errorf("unexpected meta: %v", resp.Meta)
	}
}

// =============================================================================
// Normalization Tests
// =============================================================================

func TestNormalizeData(t *testing.T) {
	if _, ok := NormalizeData(samples).([]map[string]any); !ok {
		t.Error("struct slice should normalize to []map[string]any")
	}
	if _, ok := NormalizeData(samples[0]).(map[string]any); !ok {
		t.Error("struct should normalize to map[string]any")
	}
	if _, ok := NormalizeData(json.RawMessage(`[{"id":"a"}]`)).([]map[string]any); !ok {
		t.Error("raw JSON array should normalize to []map[string]any")
	}
	if got, ok := NormalizeData([]sampleRestaurant{}).([]map[string]any); !ok || len(got) != 0 {
		t.Error("empty slice should normalize to empty []map[string]any")
	}
	if NormalizeData(nil) != nil {
		t.Error("nil should stay nil")
	}
	if mixed, ok := NormalizeData([]any{"a", map[string]any{}}).([]any); !ok || len(mixed) != 2 {
		t.Error("mixed slice should stay []any")
	}
}

// =============================================================================
// Rendering Tests
// =============================================================================

func TestFormatValue(t *testing.T) {
	tests := []struct {
		key  string
		val  any
		want string
	}{
		{"price_level", float64(3), "$$$"},
		{"price_level", nil, ""},
		{"rating", 4.0, "4.0"},
		{"favourite", true, "★"},
		{"favourite", false, ""},
		{"is_open", true, "yes"},
		{"cuisines", []any{"ramen", "japanese"}, "ramen, japanese"},
		{"review_count", float64(120), "120"},
		{"updated_at", "2001-02-03T04:05:06Z", "Feb 3, 2001"},
		{"updated_at", "not a date", "not a date"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.key, tt.val); got != tt.want {
			t.Errorf("formatValue(%q, %v) = %q, want %q", tt.key, tt.val, got, tt.want)
		}
	}
}

func TestDetectColumnsOrderAndSkips(t *testing.T) {
	rows, _ := NormalizeData(samples).([]map[string]any)
	cols := detectColumns(rows)

	var keys []string
	for _, c := range cols {
		keys = append(keys, c.key)
	}
	want := "name,rating,price_level,distance_meters,cuisines,id"
	if got := strings.Join(keys, ","); got != want {
		t.Errorf("columns = %s, want %s", got, want)
	}
}

func TestWriterMarkdownTable(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatMarkdown, Writer: &buf})

	if err := w.OK(samples, WithSummary("Nearby"), WithBreadcrumbs(Breadcrumb{Cmd: "lunchbox browse", Description: "Browse interactively"})); err != nil {
		t.Fatalf("OK() failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"## Nearby", "| Name | Rating | Price |", "| Ramen Ya | 4.5 | $$ |", "### Next", "`lunchbox browse`: Browse interactively"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in:\n%s", want, output)
		}
	}
	if strings.Contains(output, "\x1b[") {
		t.Errorf("Markdown output should not contain ANSI codes, got: %q", output)
	}
}

func TestWriterMarkdownError(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatMarkdown, Writer: &buf})

	if err := w.Err(ErrNotFound("restaurant", "r-1")); err != nil {
		t.Fatalf("Err() failed: %v", err)
	}
	if !strings.Contains(buf.String(), "**Error:** restaurant not found: r-1") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestWriterStyledEmitsANSI(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	var buf bytes.Buffer
	w := New(Options{Format: FormatStyled, Writer: &buf})

	if err := w.Err(ErrNotFound("restaurant", "r-1")); err != nil {
		t.Fatalf("Err() failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "\x1b[") {
		t.Errorf("Styled output should contain ANSI codes, got: %q", output)
	}
	if !strings.Contains(output, "Error:") {
		t.Errorf("Styled output should contain 'Error:', got: %s", output)
	}
}

func TestRendererObjectAndStats(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithTheme(&buf, false, tui.NoColorTheme())
	resp := &Response{
		Data: samples[0],
		Meta: map[string]any{"stats": map[string]any{"requests": 2, "retries": 0}},
	}
	if err := r.RenderResponse(&buf, resp); err != nil {
		t.Fatalf("RenderResponse() failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Name    : Ramen Ya") {
		t.Errorf("expected aligned name field, got:\n%s", output)
	}
	if !strings.Contains(output, "Stats: requests: 2") || strings.Contains(output, "retries") {
		t.Errorf("unexpected stats line:\n%s", output)
	}
}
