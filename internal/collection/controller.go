package collection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed is returned by blocking calls once the controller has shut down.
var ErrClosed = errors.New("collection: controller closed")

// DataProvider fetches one page of results. Calls must be idempotent per
// (offset, query); the controller may repeat them on retry.
type DataProvider[Q comparable, E any] interface {
	Fetch(ctx context.Context, offset int, query Q) (Page[E], error)
}

// ProviderFunc adapts a function to DataProvider.
type ProviderFunc[Q comparable, E any] func(ctx context.Context, offset int, query Q) (Page[E], error)

// Fetch calls f.
func (f ProviderFunc[Q, E]) Fetch(ctx context.Context, offset int, query Q) (Page[E], error) {
	return f(ctx, offset, query)
}

// Config configures a Controller. Zero values fall back to KeepAll,
// AlwaysRefresh, TrailingWindow(DefaultPreloadWindow), an identity error
// mapper, NopHooks and a discarding logger.
type Config[Q comparable, E any] struct {
	Filter   FilterFunc[Q, E]
	Refresh  RefreshStrategy[Q]
	Preload  PreloadStrategy[E]
	MapError ErrorMapper

	// Query is the initial query carried by the Uninitialized state.
	Query *Q

	// Supersede lets Refresh and query changes cancel an outstanding effect.
	Supersede bool

	Hooks  Hooks
	Logger *slog.Logger
}

type message[Q comparable, E any] struct {
	input  *Input[Q]
	ack    chan<- uint64 // receives the state version after input is applied
	result *effectResult[Q, E]
}

type effectResult[Q comparable, E any] struct {
	generation uint64
	kind       Kind
	next       State[Q, E]
}

// Controller owns a collection's state. A single goroutine applies inputs
// and effect results in arrival order; effects run on their own goroutines
// and report back through the same queue.
type Controller[Q comparable, E any] struct {
	provider   DataProvider[Q, E]
	filter     FilterFunc[Q, E]
	strategies Strategies[Q, E]
	mapErr     ErrorMapper
	hooks      Hooks
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	inbox  *mailbox[message[Q, E]]
	done   chan struct{}

	mu      sync.RWMutex
	state   State[Q, E]
	subs    map[uint64]*Subscription[Q, E]
	nextSub uint64
	closed  bool

	// Owned by the loop goroutine.
	generation   uint64
	effectCancel context.CancelFunc
}

// NewController creates a controller in the Uninitialized state and starts
// its loop. The loop and any running effect stop when ctx is canceled or
// Close is called.
func NewController[Q comparable, E any](ctx context.Context, provider DataProvider[Q, E], cfg Config[Q, E]) *Controller[Q, E] {
	if cfg.Filter == nil {
		cfg.Filter = KeepAll[Q, E]()
	}
	if cfg.MapError == nil {
		cfg.MapError = identityError
	}
	if cfg.Hooks == nil {
		cfg.Hooks = NopHooks{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	var initial Q
	hasQuery := cfg.Query != nil
	if hasQuery {
		initial = *cfg.Query
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Controller[Q, E]{
		provider: provider,
		filter:   cfg.Filter,
		strategies: Strategies[Q, E]{
			Refresh:   cfg.Refresh,
			Preload:   cfg.Preload,
			Supersede: cfg.Supersede,
		}.withDefaults(),
		mapErr: cfg.MapError,
		hooks:  cfg.Hooks,
		logger: cfg.Logger,
		ctx:    ctx,
		cancel: cancel,
		inbox:  newMailbox[message[Q, E]](),
		done:   make(chan struct{}),
		state:  Uninitialized[Q, E](initial, hasQuery),
		subs:   make(map[uint64]*Subscription[Q, E]),
	}
	go c.run()
	return c
}

// State returns the latest published state. Never blocks on effects.
func (c *Controller[Q, E]) State() State[Q, E] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Submit queues an input and returns immediately. Inputs are applied in
// submission order; inputs submitted after Close are dropped.
func (c *Controller[Q, E]) Submit(in Input[Q]) {
	c.inbox.put(message[Q, E]{input: &in})
}

// Refresh refetches from offset 0 with the current query.
func (c *Controller[Q, E]) Refresh() { c.Submit(RefreshInput[Q]()) }

// ChangeQuery replaces the query; the refresh strategy decides the effect.
func (c *Controller[Q, E]) ChangeQuery(query Q) { c.Submit(ChangeQueryInput(query)) }

// LoadNextPage fetches the page after the last successful one.
func (c *Controller[Q, E]) LoadNextPage() { c.Submit(LoadNextPageInput[Q]()) }

// RetryNextPage retries a failed page load.
func (c *Controller[Q, E]) RetryNextPage() { c.Submit(RetryNextPageInput[Q]()) }

// Preload reports that the consumer is showing the filtered element at index.
func (c *Controller[Q, E]) Preload(index int) { c.Submit(PreloadInput[Q](index)) }

// Subscribe returns a subscription that first receives the current state.
func (c *Controller[Q, E]) Subscribe() *Subscription[Q, E] {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSub++
	sub := newSubscription(c.nextSub, c)
	sub.push(c.state)
	if c.closed {
		sub.finish()
	} else {
		c.subs[sub.id] = sub
	}
	go sub.pump()
	return sub
}

// Observe calls fn with the current state and every later state, in order,
// from a dedicated goroutine. The returned func stops observation.
func (c *Controller[Q, E]) Observe(fn func(State[Q, E])) (cancel func()) {
	sub := c.Subscribe()
	go func() {
		for st := range sub.C() {
			fn(st)
		}
	}()
	return sub.Close
}

// Settle submits in, waits until the loop has applied it, then waits until
// the controller is no longer busy. It returns the first settled state at or
// after the one the input produced.
func (c *Controller[Q, E]) Settle(ctx context.Context, in Input[Q]) (State[Q, E], error) {
	ack := make(chan uint64, 1)
	if !c.inbox.put(message[Q, E]{input: &in, ack: ack}) {
		return c.State(), ErrClosed
	}

	var version uint64
	select {
	case version = <-ack:
	case <-ctx.Done():
		return c.State(), ctx.Err()
	case <-c.done:
		return c.State(), ErrClosed
	}

	sub := c.Subscribe()
	defer sub.Close()
	last := c.State()
	for {
		select {
		case st, ok := <-sub.C():
			if !ok {
				return last, ErrClosed
			}
			last = st
			if st.Version >= version && !st.Kind.Busy() {
				return st, nil
			}
		case <-ctx.Done():
			return last, ctx.Err()
		}
	}
}

// Close stops the loop, cancels any running effect and ends every
// subscription once its queued states are delivered. Safe to call twice.
func (c *Controller[Q, E]) Close() {
	c.cancel()
	<-c.done
}

// Done is closed when the controller has shut down.
func (c *Controller[Q, E]) Done() <-chan struct{} { return c.done }

func (c *Controller[Q, E]) unsubscribe(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, id)
}

func (c *Controller[Q, E]) run() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			c.shutdown()
			return
		case <-c.inbox.ready:
		}
		for _, msg := range c.inbox.drain() {
			if c.ctx.Err() != nil {
				break
			}
			c.handle(msg)
		}
	}
}

func (c *Controller[Q, E]) handle(msg message[Q, E]) {
	switch {
	case msg.input != nil:
		c.apply(*msg.input)
		if msg.ack != nil {
			msg.ack <- c.state.Version
		}
	case msg.result != nil:
		c.resolve(*msg.result)
	}
}

// apply runs an input through the reducer. Only the loop goroutine writes
// c.state, so it reads it without the lock.
func (c *Controller[Q, E]) apply(in Input[Q]) {
	next, ok := Reduce(c.state, in, c.strategies)
	if !ok {
		c.hooks.OnIgnored(c.state.Kind, in.Kind)
		c.logger.Debug("collection input ignored", "state", c.state.Kind.String(), "input", in.Kind.String())
		return
	}
	c.transition(next)
}

func (c *Controller[Q, E]) resolve(r effectResult[Q, E]) {
	if r.generation != c.generation || c.state.Kind != r.kind {
		c.hooks.OnStaleResult(r.kind, r.generation)
		c.logger.Debug("collection stale result dropped",
			"effect", r.kind.String(), "generation", r.generation, "current", c.generation)
		return
	}
	c.transition(r.next)
}

func (c *Controller[Q, E]) transition(next State[Q, E]) {
	prev := c.state
	if c.effectCancel != nil {
		// Leaving a busy state: either its effect just resolved, or the
		// new state supersedes it.
		c.effectCancel()
		c.effectCancel = nil
	}
	if next.Kind.Busy() {
		c.generation++
	}

	c.publish(next)
	c.hooks.OnTransition(prev.Kind, next.Kind)
	c.logger.Debug("collection transition", "from", prev.String(), "to", c.state.String())

	if next.Kind.Busy() {
		c.startEffect(c.state, c.generation)
	}
}

func (c *Controller[Q, E]) publish(next State[Q, E]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next.Version = c.state.Version + 1
	c.state = next
	for _, sub := range c.subs {
		sub.push(next)
	}
}

func (c *Controller[Q, E]) startEffect(s State[Q, E], generation uint64) {
	ctx, cancel := context.WithCancel(c.ctx)
	c.effectCancel = cancel
	c.hooks.OnEffectStart(s.Kind, generation)

	go func() {
		started := time.Now()
		next, err := c.perform(ctx, s)
		c.hooks.OnEffectEnd(s.Kind, generation, time.Since(started), err)
		c.inbox.put(message[Q, E]{result: &effectResult[Q, E]{
			generation: generation,
			kind:       s.Kind,
			next:       next,
		}})
	}()
}

// perform runs the effect for a busy state and returns the state it resolves to.
func (c *Controller[Q, E]) perform(ctx context.Context, s State[Q, E]) (State[Q, E], error) {
	switch s.Kind {
	case KindRefreshing:
		page, err := c.provider.Fetch(ctx, 0, s.Query)
		return completeRefresh(s, page, err, c.filter, c.mapErr), err
	case KindLoadingNextPage:
		page, err := c.provider.Fetch(ctx, s.Offset, s.Query)
		return completePageLoad(s, page, err, c.filter, c.mapErr), err
	case KindFiltering:
		return completeFilter(s, c.filter), nil
	default:
		return s, nil
	}
}

func (c *Controller[Q, E]) shutdown() {
	if c.effectCancel != nil {
		c.effectCancel()
		c.effectCancel = nil
	}
	c.inbox.close()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, sub := range c.subs {
		sub.finish()
		delete(c.subs, id)
	}
}
