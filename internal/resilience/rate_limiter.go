package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RateLimiterConfig sizes the token bucket.
type RateLimiterConfig struct {
	// MaxTokens is the bucket capacity.
	MaxTokens float64
	// RefillRate is tokens added per second.
	RefillRate float64
	// MaxWait is how long Wait sleeps for a token before giving up.
	MaxWait time.Duration
}

// DefaultRateLimiterConfig allows bursts of ten requests and five per
// second after that.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{MaxTokens: 10, RefillRate: 5, MaxWait: 5 * time.Second}
}

// LimitError is returned when no token frees up within MaxWait.
type LimitError struct {
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("request rate limited locally, retry in %s", e.RetryAfter.Round(time.Second))
}

// RateLimiter is a token bucket persisted in a Store.
type RateLimiter struct {
	config RateLimiterConfig
	store  *Store
	logger *slog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter over store. Zero config fields take
// their defaults.
func NewRateLimiter(store *Store, config RateLimiterConfig, logger *slog.Logger) *RateLimiter {
	def := DefaultRateLimiterConfig()
	if config.MaxTokens <= 0 {
		config.MaxTokens = def.MaxTokens
	}
	if config.RefillRate <= 0 {
		config.RefillRate = def.RefillRate
	}
	if config.MaxWait <= 0 {
		config.MaxWait = def.MaxWait
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RateLimiter{
		config: config,
		store:  store,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

func (rl *RateLimiter) refill(b *BucketState, now time.Time) {
	if b.LastRefillAt.IsZero() || now.Before(b.LastRefillAt) {
		b.Tokens = rl.config.MaxTokens
		b.LastRefillAt = now
		return
	}
	b.Tokens = min(rl.config.MaxTokens, b.Tokens+now.Sub(b.LastRefillAt).Seconds()*rl.config.RefillRate)
	b.LastRefillAt = now
}

// reserve takes a token if one is available. Otherwise it reports how
// long until one will be.
func (rl *RateLimiter) reserve() (time.Duration, error) {
	var wait time.Duration
	err := rl.store.Update(func(st *State) error {
		now := rl.now()
		b := &st.RateLimiter
		if d := b.BlockedFor(now); d > 0 {
			wait = d
			return nil
		}
		rl.refill(b, now)
		if b.Tokens >= 1 {
			b.Tokens--
		} else {
			wait = time.Duration((1 - b.Tokens) / rl.config.RefillRate * float64(time.Second))
		}
		st.UpdatedAt = now
		return nil
	})
	return wait, err
}

// Allow takes a token without waiting and reports whether it got one.
// A state file that cannot be updated allows the request.
func (rl *RateLimiter) Allow() bool {
	wait, err := rl.reserve()
	if err != nil {
		rl.logger.Debug("rate limiter state unavailable", "error", err)
		return true
	}
	return wait == 0
}

// Wait blocks until a token is taken. It fails with *LimitError when the
// next token is further away than MaxWait, and with the context error
// when ctx ends first.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	deadline := rl.now().Add(rl.config.MaxWait)
	for {
		wait, err := rl.reserve()
		if err != nil {
			rl.logger.Debug("rate limiter state unavailable", "error", err)
			return nil
		}
		if wait == 0 {
			return nil
		}
		if rl.now().Add(wait).After(deadline) {
			return &LimitError{RetryAfter: wait}
		}
		rl.logger.Debug("waiting for rate limit token", "delay", wait)
		if err := rl.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Block pauses every process's requests for d, as asked by a 429.
// An earlier block that ends later is kept.
func (rl *RateLimiter) Block(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return rl.store.Update(func(st *State) error {
		now := rl.now()
		if until := now.Add(d); until.After(st.RateLimiter.BlockedUntil) {
			st.RateLimiter.BlockedUntil = until
			st.UpdatedAt = now
		}
		return nil
	})
}

// Tokens returns the tokens available now.
func (rl *RateLimiter) Tokens() (float64, error) {
	var tokens float64
	err := rl.store.Update(func(st *State) error {
		rl.refill(&st.RateLimiter, rl.now())
		tokens = st.RateLimiter.Tokens
		return nil
	})
	return tokens, err
}

// Reset refills the bucket and lifts any block.
func (rl *RateLimiter) Reset() error {
	return rl.store.Update(func(st *State) error {
		now := rl.now()
		st.RateLimiter = BucketState{Tokens: rl.config.MaxTokens, LastRefillAt: now}
		st.UpdatedAt = now
		return nil
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
