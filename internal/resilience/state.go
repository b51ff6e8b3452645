package resilience

import "time"

// StateVersion is the current state schema version.
const StateVersion = 1

// State is the rate limiter state shared by concurrent lunchbox processes.
type State struct {
	Version     int         `json:"version"`
	RateLimiter BucketState `json:"rate_limiter"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// BucketState is a token bucket plus any server-imposed pause.
type BucketState struct {
	Tokens       float64   `json:"tokens"`
	LastRefillAt time.Time `json:"last_refill_at"`

	// BlockedUntil is set from a 429's Retry-After. No request goes out
	// before it passes.
	BlockedUntil time.Time `json:"blocked_until"`
}

// BlockedFor returns how long the bucket stays blocked after now.
func (b *BucketState) BlockedFor(now time.Time) time.Duration {
	if b.BlockedUntil.IsZero() || !now.Before(b.BlockedUntil) {
		return 0
	}
	return b.BlockedUntil.Sub(now)
}

// NewState returns an empty state. LastRefillAt stays zero so the first
// refill fills the bucket.
func NewState() *State {
	return &State{Version: StateVersion}
}
