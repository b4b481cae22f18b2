package snapshot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// published is one immutable generation of a slot.
type published[T any] struct {
	value  T
	at     time.Time
	failed int
}

// slot holds the latest published value of one snapshot kind. Readers block
// until the first publication, and while an episode is in flight they wait
// for it to settle.
type slot[T any] struct {
	cur   atomic.Pointer[published[T]]
	ready chan struct{}
	once  sync.Once

	mu       sync.Mutex
	inflight int
	settled  chan struct{} // closed when the running episodes end
}

func newSlot[T any]() *slot[T] {
	return &slot[T]{ready: make(chan struct{})}
}

// begin marks an episode as running. The returned func ends it and may be
// called more than once.
func (s *slot[T]) begin() func() {
	s.mu.Lock()
	s.inflight++
	if s.settled == nil {
		s.settled = make(chan struct{})
	}
	s.mu.Unlock()

	return sync.OnceFunc(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.inflight--
		if s.inflight == 0 {
			close(s.settled)
			s.settled = nil
		}
	})
}

func (s *slot[T]) refreshing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

func (s *slot[T]) publish(v T, failed int, at time.Time) {
	s.cur.Store(&published[T]{value: v, at: at, failed: failed})
	s.once.Do(func() { close(s.ready) })
}

// load returns the current generation. It waits for a running episode to
// settle and, before the first publication, for that publication. If ctx
// ends first, the previous generation is returned when there is one.
func (s *slot[T]) load(ctx context.Context) (*published[T], error) {
	s.mu.Lock()
	settled := s.settled
	s.mu.Unlock()
	if settled != nil {
		select {
		case <-settled:
		case <-ctx.Done():
		}
	}

	if p := s.cur.Load(); p != nil {
		return p, nil
	}
	select {
	case <-s.ready:
		return s.cur.Load(), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
	}
}

// peek returns the current generation without waiting, nil before the first
// publication.
func (s *slot[T]) peek() *published[T] {
	return s.cur.Load()
}
