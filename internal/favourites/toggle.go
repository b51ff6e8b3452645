package favourites

import (
	"context"
	"sync"
)

// Toggler flips favourites optimistically: the new value is visible through
// IsFavourite as soon as Toggle returns, and is persisted when the returned
// commit func runs. A failed commit restores the previous value unless a
// later toggle of the same restaurant has already replaced it.
type Toggler struct {
	store   Store
	onError func(id string, err error)

	mu      sync.Mutex
	seq     uint64
	pending map[string]pendingToggle
	commits map[string]*sync.Mutex
	applied map[string]uint64 // seq of the newest committed toggle per id
}

type pendingToggle struct {
	seq   uint64
	value bool
}

// TogglerOption configures a Toggler.
type TogglerOption func(*Toggler)

// WithErrorHandler registers fn to be called for every failed commit, after
// the rollback has been applied.
func WithErrorHandler(fn func(id string, err error)) TogglerOption {
	return func(t *Toggler) { t.onError = fn }
}

// NewToggler wraps store.
func NewToggler(store Store, opts ...TogglerOption) *Toggler {
	t := &Toggler{
		store:   store,
		pending: make(map[string]pendingToggle),
		commits: make(map[string]*sync.Mutex),
		applied: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// IsFavourite reports the optimistic value for id: the latest uncommitted
// toggle if there is one, otherwise the stored value.
func (t *Toggler) IsFavourite(id string) bool {
	t.mu.Lock()
	p, ok := t.pending[id]
	t.mu.Unlock()
	if ok {
		return p.value
	}
	return t.store.IsFavourite(id)
}

// Pending reports whether id has a toggle that is not yet committed.
func (t *Toggler) Pending(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[id]
	return ok
}

// Toggle flips id locally and returns the new value together with the func
// that persists it. Commits for the same id run one at a time; a commit that
// runs after a newer toggle's commit succeeded is skipped.
func (t *Toggler) Toggle(id string) (favourite bool, commit func(context.Context) error) {
	t.mu.Lock()
	current, ok := t.pending[id]
	previous := current.value
	if !ok {
		previous = t.store.IsFavourite(id)
	}
	t.seq++
	p := pendingToggle{seq: t.seq, value: !previous}
	t.pending[id] = p
	lock := t.commitLock(id)
	t.mu.Unlock()

	return p.value, func(ctx context.Context) error {
		lock.Lock()
		defer lock.Unlock()

		t.mu.Lock()
		stale := t.applied[id] > p.seq
		t.mu.Unlock()
		if stale {
			return nil
		}

		err := t.store.Set(ctx, id, p.value)

		t.mu.Lock()
		if err == nil {
			t.applied[id] = p.seq
		}
		if t.pending[id].seq == p.seq {
			// On failure the store still holds the value from before the
			// toggle, so dropping the overlay restores it.
			delete(t.pending, id)
		}
		t.mu.Unlock()

		if err != nil && t.onError != nil {
			t.onError(id, err)
		}
		return err
	}
}

// Set marks or unmarks id and persists it immediately.
func (t *Toggler) Set(ctx context.Context, id string, favourite bool) error {
	if t.IsFavourite(id) == favourite {
		return nil
	}
	_, commit := t.Toggle(id)
	return commit(ctx)
}

// List returns the persisted favourites. Uncommitted toggles are not
// included.
func (t *Toggler) List(ctx context.Context) ([]string, error) {
	return t.store.List(ctx)
}

// commitLock returns the per-id commit mutex. Caller holds t.mu.
func (t *Toggler) commitLock(id string) *sync.Mutex {
	l, ok := t.commits[id]
	if !ok {
		l = &sync.Mutex{}
		t.commits[id] = l
	}
	return l
}
