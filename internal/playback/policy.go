package playback

import "playerd/internal/timebase"

// Range is an inclusive [In, Out] span of the timeline.
type Range struct {
	In  timebase.Timestamp
	Out timebase.Timestamp
}

// Contains reports whether t lies in r.
func (r Range) Contains(t timebase.Timestamp) bool {
	return t >= r.In && t <= r.Out
}

// Clamp returns the point of r nearest to t.
func (r Range) Clamp(t timebase.Timestamp) timebase.Timestamp {
	return min(max(t, r.In), r.Out)
}

type outcome int

const (
	accept      outcome = iota // candidate is in range
	stopAtBound                // Once: stop on the bound
	wrapAround                 // Loop: seek to the wrapped position
	bounce                     // PingPong: reverse on the bound
)

// applyRange decides where a candidate position lands under mode.
func applyRange(candidate timebase.Timestamp, r Range, tpf timebase.Timestamp, mode Mode) (timebase.Timestamp, outcome) {
	if r.Contains(candidate) {
		return candidate, accept
	}
	switch mode {
	case Loop:
		return wrap(candidate, r, tpf), wrapAround
	case PingPong:
		return r.Clamp(candidate), bounce
	default:
		return r.Clamp(candidate), stopAtBound
	}
}

// wrap folds t into r modulo the range length including its last frame.
// A result inside the trailing partial frame lands on r.Out.
func wrap(t timebase.Timestamp, r Range, tpf timebase.Timestamp) timebase.Timestamp {
	length := max(r.Out-r.In+tpf, 1)
	off := (t - r.In) % length
	if off < 0 {
		off += length
	}
	return min(r.In+off, r.Out)
}
