package observability

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lunchbox/lunchbox-cli/internal/api"
)

// sensitiveParams are query parameter names that should be scrubbed from trace output.
var sensitiveParams = map[string]bool{
	"access_token":  true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"key":           true,
	"password":      true,
	"secret":        true,
	"client_secret": true,
}

// TraceWriter outputs human-readable trace information to stderr.
// It formats output with timestamps relative to session start.
type TraceWriter struct {
	mu        sync.Mutex
	writer    io.Writer
	startTime time.Time
}

// NewTraceWriter creates a new TraceWriter that writes to stderr.
func NewTraceWriter() *TraceWriter {
	return NewTraceWriterTo(os.Stderr)
}

// NewTraceWriterTo creates a new TraceWriter that writes to the given writer.
func NewTraceWriterTo(w io.Writer) *TraceWriter {
	return &TraceWriter{
		writer:    w,
		startTime: time.Now(),
	}
}

func (t *TraceWriter) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	elapsed := time.Since(t.startTime).Seconds()
	fmt.Fprintf(t.writer, "[%.3fs] "+format+"\n", append([]any{elapsed}, args...)...)
}

// WriteTransition writes a state transition line.
// Format: [0.234s] refreshing -> with_data
func (t *TraceWriter) WriteTransition(from, to string) {
	t.printf("%s -> %s", from, to)
}

// WriteIgnored writes a line for a rejected input.
// Format: [0.234s] ignored load_next_page in refreshing
func (t *TraceWriter) WriteIgnored(state, input string) {
	t.printf("ignored %s in %s", input, state)
}

// WriteEffectEnd writes an effect completion line.
// Format: [0.234s] Completed refreshing #3 (234ms)
func (t *TraceWriter) WriteEffectEnd(m EffectMetrics) {
	if m.Error != nil {
		t.printf("Failed %s #%d: %v", m.Kind, m.Generation, m.Error)
		return
	}
	t.printf("Completed %s #%d (%dms)", m.Kind, m.Generation, m.Duration.Milliseconds())
}

// WriteStale writes a line for a dropped effect result.
func (t *TraceWriter) WriteStale(kind string, generation uint64) {
	t.printf("Dropped stale %s #%d", kind, generation)
}

// WriteRequestStart writes a request start trace line.
// Format: [0.234s]   -> GET /v3/businesses/search?...
// Sensitive query parameters are redacted.
func (t *TraceWriter) WriteRequestStart(info api.RequestInfo) {
	t.printf("  -> %s %s", info.Method, scrubURL(info.URL))
}

// WriteRequestEnd writes a request completion trace line.
// Format: [0.234s]   <- 200 (45ms)
func (t *TraceWriter) WriteRequestEnd(_ api.RequestInfo, result api.RequestResult) {
	if result.Error != nil {
		t.printf("  <- ERROR: %v", result.Error)
		return
	}
	t.printf("  <- %d (%dms)", result.StatusCode, result.Duration.Milliseconds())
}

// WriteRetry writes a retry trace line.
// Format: [0.234s]   RETRY #2: connection reset
func (t *TraceWriter) WriteRetry(_ api.RequestInfo, attempt int, err error) {
	t.printf("  RETRY #%d: %v", attempt, err)
}

// Reset resets the start time for relative timestamps.
func (t *TraceWriter) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startTime = time.Now()
}

// scrubURL redacts sensitive query parameters from a URL for safe logging.
// Returns a safe placeholder if the URL cannot be parsed.
func scrubURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		// Don't leak potentially sensitive malformed URLs
		return "[unparseable URL]"
	}

	query := u.Query()
	modified := false
	for key := range query {
		if sensitiveParams[strings.ToLower(key)] {
			query.Set(key, "[REDACTED]")
			modified = true
		}
	}

	if !modified {
		return rawURL
	}

	u.RawQuery = query.Encode()
	return u.String()
}
