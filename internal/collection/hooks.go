package collection

import "time"

// Hooks receives controller lifecycle events. Implementations must be safe
// for concurrent use: effect events are reported from effect goroutines.
type Hooks interface {
	// OnTransition is called after a new state is published.
	OnTransition(from, to Kind)

	// OnIgnored is called when the reducer rejects an input.
	OnIgnored(state Kind, input InputKind)

	// OnEffectStart is called when a fetch or filter effect begins.
	OnEffectStart(kind Kind, generation uint64)

	// OnEffectEnd is called when an effect returns, before its result is applied.
	OnEffectEnd(kind Kind, generation uint64, duration time.Duration, err error)

	// OnStaleResult is called when an effect result is dropped because the
	// controller moved on while it was running.
	OnStaleResult(kind Kind, generation uint64)
}

// NopHooks ignores every event.
type NopHooks struct{}

func (NopHooks) OnTransition(Kind, Kind) {}
func (NopHooks) OnIgnored(Kind, InputKind) {}
func (NopHooks) OnEffectStart(Kind, uint64) {}
func (NopHooks) OnEffectEnd(Kind, uint64, time.Duration, error) {}
func (NopHooks) OnStaleResult(Kind, uint64) {}
