package observable

import "sync"

// Stream delivers every emitted event, changed or not.
type Stream[T any] struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]func(T)
}

// NewStream returns a Stream with no subscribers.
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{subs: make(map[uint64]func(T))}
}

// Emit returns a function delivering v to the current subscribers, or nil
// when there are none.
func (s *Stream[T]) Emit(v T) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) == 0 {
		return nil
	}
	fns := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(v)
		}
	}
}

// Subscribe registers fn for future events.
func (s *Stream[T]) Subscribe(fn func(T)) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = fn
	return &Subscription{cancel: func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}}
}
