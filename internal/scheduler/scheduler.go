// Package scheduler runs periodic callbacks against a target that the
// scheduler does not keep alive.
package scheduler

import (
	"sync"
	"time"
	"weak"
)

// Handle controls a periodic callback started by Every.
type Handle struct {
	once sync.Once
	stop chan struct{}
	done chan struct{}
}

// Every calls fn(target) once per period until Stop is called or target has
// been garbage collected. Only a weak reference to target is held, so fn must
// reach the target through its argument rather than a captured variable.
func Every[T any](period time.Duration, target *T, fn func(*T)) *Handle {
	ref := weak.Make(target)
	h := &Handle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go h.run(period, func() bool {
		t := ref.Value()
		if t == nil {
			return false
		}
		fn(t)
		return true
	})
	return h
}

func (h *Handle) run(period time.Duration, step func() bool) {
	defer close(h.done)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			select {
			case <-h.stop:
				return
			default:
			}
			if !step() {
				return
			}
		}
	}
}

// Stop ends the callback loop. It does not wait for an in-progress callback,
// so it may be called from inside one. Stop is idempotent.
func (h *Handle) Stop() {
	h.once.Do(func() { close(h.stop) })
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
