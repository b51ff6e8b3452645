package observability

import (
	"context"
	"sync"
	"time"

	"github.com/lunchbox/lunchbox-cli/internal/api"
	"github.com/lunchbox/lunchbox-cli/internal/collection"
)

var (
	_ api.Hooks        = (*CLIHooks)(nil)
	_ collection.Hooks = (*CLIHooks)(nil)
)

// CLIHooks implements api.Hooks and collection.Hooks for CLI observability.
// It supports configurable verbosity levels:
//   - 0: Silent (collect stats only, no output)
//   - 1: State transitions and effects
//   - 2: Transitions, effects and HTTP requests
type CLIHooks struct {
	mu        sync.Mutex
	level     int
	collector *SessionCollector
	writer    *TraceWriter
}

// NewCLIHooks creates a new CLIHooks with the given verbosity level.
// If collector is nil, metrics are not collected.
// If writer is nil, no trace output is produced.
func NewCLIHooks(level int, collector *SessionCollector, writer *TraceWriter) *CLIHooks {
	return &CLIHooks{
		level:     level,
		collector: collector,
		writer:    writer,
	}
}

// SetLevel changes the verbosity level at runtime.
func (h *CLIHooks) SetLevel(level int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.level = level
}

// Level returns the current verbosity level.
func (h *CLIHooks) Level() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level
}

func (h *CLIHooks) snapshot() (int, *SessionCollector, *TraceWriter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level, h.collector, h.writer
}

// OnTransition is called after a collection publishes a new state.
func (h *CLIHooks) OnTransition(from, to collection.Kind) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordTransition()
	}
	if level >= 1 && writer != nil {
		writer.WriteTransition(from.String(), to.String())
	}
}

// OnIgnored is called when a collection rejects an input.
func (h *CLIHooks) OnIgnored(state collection.Kind, input collection.InputKind) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordIgnored()
	}
	if level >= 1 && writer != nil {
		writer.WriteIgnored(state.String(), input.String())
	}
}

// OnEffectStart is called when a collection effect begins.
func (h *CLIHooks) OnEffectStart(collection.Kind, uint64) {}

// OnEffectEnd is called when a collection effect returns.
func (h *CLIHooks) OnEffectEnd(kind collection.Kind, generation uint64, duration time.Duration, err error) {
	level, collector, writer := h.snapshot()
	m := EffectMetrics{Kind: kind.String(), Generation: generation, Duration: duration, Error: err}
	if collector != nil {
		collector.RecordEffect(m)
	}
	if level >= 1 && writer != nil {
		writer.WriteEffectEnd(m)
	}
}

// OnStaleResult is called when an effect result is dropped.
func (h *CLIHooks) OnStaleResult(kind collection.Kind, generation uint64) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordStale()
	}
	if level >= 1 && writer != nil {
		writer.WriteStale(kind.String(), generation)
	}
}

// OnRequestStart is called before an HTTP request is sent.
func (h *CLIHooks) OnRequestStart(ctx context.Context, info api.RequestInfo) context.Context {
	level, _, writer := h.snapshot()
	if level >= 2 && writer != nil {
		writer.WriteRequestStart(info)
	}
	return ctx
}

// OnRequestEnd is called after an HTTP request completes.
func (h *CLIHooks) OnRequestEnd(_ context.Context, info api.RequestInfo, result api.RequestResult) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordRequestFromAPI(info, result)
	}
	if level >= 2 && writer != nil {
		writer.WriteRequestEnd(info, result)
	}
}

// OnRetry is called before a retry attempt.
func (h *CLIHooks) OnRetry(_ context.Context, info api.RequestInfo, attempt int, err error) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordRetry()
	}
	if level >= 2 && writer != nil {
		writer.WriteRetry(info, attempt, err)
	}
}
