// Package observability collects session metrics and writes trace output
// for HTTP traffic and collection state changes.
package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lunchbox/lunchbox-cli/internal/api"
)

// RequestMetrics holds timing and status information for a single HTTP request.
type RequestMetrics struct {
	Method     string
	URL        string
	Attempt    int
	StatusCode int
	Duration   time.Duration
	Retryable  bool
	Error      error
}

// EffectMetrics records one fetch or filter effect run by a collection.
type EffectMetrics struct {
	Kind       string // "refreshing", "loading_next_page", "filtering"
	Generation uint64
	Duration   time.Duration
	Error      error
}

// SessionMetrics aggregates metrics for an entire CLI session.
type SessionMetrics struct {
	StartTime     time.Time
	EndTime       time.Time
	TotalRequests int
	FailedReqs    int
	TotalRetries  int
	TotalLatency  time.Duration
	Transitions   int
	IgnoredInputs int
	Effects       int
	FailedEffects int
	StaleResults  int
}

// SessionCollector accumulates metrics across a CLI session.
// It is safe for concurrent use and uses counters instead of unbounded slices.
type SessionCollector struct {
	mu sync.Mutex

	startTime     time.Time
	totalRequests int
	failedReqs    int
	totalRetries  int
	totalLatency  time.Duration
	transitions   int
	ignored       int
	effects       int
	failedEffects int
	stale         int
}

// NewSessionCollector creates a new SessionCollector.
func NewSessionCollector() *SessionCollector {
	return &SessionCollector{
		startTime: time.Now(),
	}
}

// RecordRequest records metrics for an HTTP request.
func (c *SessionCollector) RecordRequest(m RequestMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
	c.totalLatency += m.Duration
	if m.Error != nil || m.StatusCode >= 400 {
		c.failedReqs++
	}
}

// RecordRequestFromAPI records metrics from client hook types.
func (c *SessionCollector) RecordRequestFromAPI(info api.RequestInfo, result api.RequestResult) {
	c.RecordRequest(RequestMetrics{
		Method:     info.Method,
		URL:        info.URL,
		Attempt:    info.Attempt,
		StatusCode: result.StatusCode,
		Duration:   result.Duration,
		Retryable:  result.Retryable,
		Error:      result.Error,
	})
}

// RecordRetry records a retry event.
func (c *SessionCollector) RecordRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRetries++
}

// RecordTransition records a published collection state.
func (c *SessionCollector) RecordTransition() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transitions++
}

// RecordIgnored records an input the collection rejected.
func (c *SessionCollector) RecordIgnored() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ignored++
}

// RecordEffect records a completed effect.
func (c *SessionCollector) RecordEffect(m EffectMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.effects++
	if m.Error != nil {
		c.failedEffects++
	}
}

// RecordStale records an effect result dropped as stale.
func (c *SessionCollector) RecordStale() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale++
}

// Summary returns aggregated metrics for the session.
func (c *SessionCollector) Summary() SessionMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	return SessionMetrics{
		StartTime:     c.startTime,
		EndTime:       time.Now(),
		TotalRequests: c.totalRequests,
		FailedReqs:    c.failedReqs,
		TotalRetries:  c.totalRetries,
		TotalLatency:  c.totalLatency,
		Transitions:   c.transitions,
		IgnoredInputs: c.ignored,
		Effects:       c.effects,
		FailedEffects: c.failedEffects,
		StaleResults:  c.stale,
	}
}

// Reset clears all collected metrics and resets the start time.
func (c *SessionCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTime = time.Now()
	c.totalRequests = 0
	c.failedReqs = 0
	c.totalRetries = 0
	c.totalLatency = 0
	c.transitions = 0
	c.ignored = 0
	c.effects = 0
	c.failedEffects = 0
	c.stale = 0
}

// Map returns the metrics as JSON-friendly values for a response's meta.
func (m SessionMetrics) Map() map[string]any {
	return map[string]any{
		"duration_ms":    m.EndTime.Sub(m.StartTime).Milliseconds(),
		"requests":       m.TotalRequests,
		"failed":         m.FailedReqs,
		"retries":        m.TotalRetries,
		"latency_ms":     m.TotalLatency.Milliseconds(),
		"transitions":    m.Transitions,
		"ignored_inputs": m.IgnoredInputs,
		"effects":        m.Effects,
		"failed_effects": m.FailedEffects,
		"stale_results":  m.StaleResults,
	}
}

// Line formats the metrics as a compact one-line summary, e.g.
// "412ms | 3 requests | 1 retry | 6 transitions".
func (m SessionMetrics) Line() string {
	var parts []string

	duration := m.EndTime.Sub(m.StartTime)
	if duration < time.Second {
		parts = append(parts, fmt.Sprintf("%dms", duration.Milliseconds()))
	} else {
		parts = append(parts, fmt.Sprintf("%.1fs", duration.Seconds()))
	}

	count := func(n int, one, many string) {
		switch {
		case n == 1:
			parts = append(parts, "1 "+one)
		case n > 1:
			parts = append(parts, fmt.Sprintf("%d %s", n, many))
		}
	}
	count(m.TotalRequests, "request", "requests")
	count(m.TotalRetries, "retry", "retries")
	if m.FailedReqs > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", m.FailedReqs))
	}
	count(m.Transitions, "transition", "transitions")
	count(m.StaleResults, "stale result", "stale results")

	return strings.Join(parts, " | ")
}
