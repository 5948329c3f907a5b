package media

import (
	"sync"
	"sync/atomic"
)

// Subscription receives values published on a track.
//
// Video subscriptions are single-slot mailboxes: a new frame replaces an
// unread one. Drops are counted, never queued.
type Subscription[T any] struct {
	ch     chan T
	b      *broadcaster[T]
	drops  atomic.Int64
	closed bool // guarded by b.mu
}

// C returns the receive channel. It is closed when the subscription or the
// track ends.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Drops returns how many values were overwritten before being read.
func (s *Subscription[T]) Drops() int64 {
	return s.drops.Load()
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.b.unsubscribe(s)
}

type broadcaster[T any] struct {
	mu    sync.Mutex
	subs  map[*Subscription[T]]struct{}
	depth int
	ended bool
	done  chan struct{}
}

func newBroadcaster[T any](depth int) *broadcaster[T] {
	if depth < 1 {
		depth = 1
	}
	return &broadcaster[T]{
		subs:  make(map[*Subscription[T]]struct{}),
		depth: depth,
		done:  make(chan struct{}),
	}
}

func (b *broadcaster[T]) subscribe() (*Subscription[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ended {
		return nil, ErrTrackEnded
	}
	s := &Subscription[T]{ch: make(chan T, b.depth), b: b}
	b.subs[s] = struct{}{}
	return s, nil
}

func (b *broadcaster[T]) unsubscribe(s *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	delete(b.subs, s)
	close(s.ch)
}

// publish never blocks. A full mailbox loses its oldest value.
func (b *broadcaster[T]) publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ended {
		return
	}
	for s := range b.subs {
		select {
		case s.ch <- v:
			continue
		default:
		}
		select {
		case <-s.ch:
			s.drops.Add(1)
		default:
		}
		select {
		case s.ch <- v:
		default:
			s.drops.Add(1)
		}
	}
}

func (b *broadcaster[T]) end() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ended {
		return
	}
	b.ended = true
	for s := range b.subs {
		s.closed = true
		close(s.ch)
	}
	b.subs = nil
	close(b.done)
}

func (b *broadcaster[T]) isEnded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ended
}

func (b *broadcaster[T]) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
