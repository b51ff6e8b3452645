package collection

import "sync"

// Subscription delivers every state a Controller publishes, starting with the
// state current at subscribe time. Each subscription buffers independently,
// so a slow reader delays only itself.
type Subscription[Q comparable, E any] struct {
	id    uint64
	owner *Controller[Q, E]
	ch    chan State[Q, E]

	mu       sync.Mutex
	queue    []State[Q, E]
	finished bool // owner closed; deliver what is queued, then close ch
	ready    chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

func newSubscription[Q comparable, E any](id uint64, owner *Controller[Q, E]) *Subscription[Q, E] {
	return &Subscription[Q, E]{
		id:    id,
		owner: owner,
		ch:    make(chan State[Q, E]),
		ready: make(chan struct{}, 1),
		stop:  make(chan struct{}),
	}
}

// C returns the channel of states. It is closed after Close, or after the
// controller shuts down and every queued state has been received.
func (s *Subscription[Q, E]) C() <-chan State[Q, E] { return s.ch }

// Close unsubscribes. States not yet received are dropped.
func (s *Subscription[Q, E]) Close() {
	if s.owner != nil {
		s.owner.unsubscribe(s.id)
	}
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Subscription[Q, E]) push(state State[Q, E]) {
	s.mu.Lock()
	s.queue = append(s.queue, state)
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription[Q, E]) finish() {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription[Q, E]) wake() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func (s *Subscription[Q, E]) pump() {
	defer close(s.ch)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			finished := s.finished
			s.mu.Unlock()
			if finished {
				return
			}
			select {
			case <-s.ready:
				continue
			case <-s.stop:
				return
			}
		}
		next := s.queue[0]
		s.queue[0] = State[Q, E]{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.ch <- next:
		case <-s.stop:
			return
		}
	}
}
