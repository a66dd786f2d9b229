// Package observable publishes values to subscribers with set-if-changed
// semantics.
package observable

import "sync"

// Value holds a comparable value and the callbacks watching it.
type Value[T comparable] struct {
	mu   sync.Mutex
	v    T
	next uint64
	subs map[uint64]func(T)
}

// NewValue returns a Value initialised to v.
func NewValue[T comparable](v T) *Value[T] {
	return &Value[T]{v: v, subs: make(map[uint64]func(T))}
}

// Get returns the current value.
func (o *Value[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.v
}

// Set stores v. When v differs from the stored value it returns a function
// that delivers v to the subscribers registered at the time of the call;
// otherwise it returns nil. Callers that hold their own locks run the
// returned function after releasing them.
func (o *Value[T]) Set(v T) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.v == v {
		return nil
	}
	o.v = v
	if len(o.subs) == 0 {
		return nil
	}
	fns := make([]func(T), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(v)
		}
	}
}

// Subscribe registers fn for future changes.
func (o *Value[T]) Subscribe(fn func(T)) *Subscription {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.next
	o.next++
	o.subs[id] = fn
	return &Subscription{cancel: func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}}
}

// Subscription is the token returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Cancel removes the callback. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}
