// Package device provides audio output devices for playback sessions.
package device

import (
	"errors"
	"sync"
	"time"

	"playerd/internal/audiopool"
)

// ErrClosed is returned by operations on a closed device.
var ErrClosed = errors.New("audio device closed")

type queued struct {
	h   audiopool.Handle
	dur time.Duration
}

// Null is an audio device that discards samples but plays them out in real
// time: a submitted buffer counts as processed once its duration at the
// configured byte rate has elapsed on the device clock.
type Null struct {
	mu          sync.Mutex
	bytesPerSec int64
	now         func() time.Time

	closed  bool
	playing bool
	cursor  time.Time // when the head of the queue started playing
	queue   []queued
	done    []audiopool.Handle
}

// NewNull returns a device consuming bytesPerSec bytes per second of wall
// time as reported by now. A nil now uses time.Now.
func NewNull(bytesPerSec int, now func() time.Time) *Null {
	if now == nil {
		now = time.Now
	}
	return &Null{bytesPerSec: int64(bytesPerSec), now: now}
}

// CreateBuffers implements audiopool.Device.
func (d *Null) CreateBuffers(n int) ([]audiopool.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if d.bytesPerSec <= 0 {
		return nil, errors.New("audio device: byte rate must be positive")
	}
	hs := make([]audiopool.Handle, n)
	for i := range hs {
		hs[i] = audiopool.Handle(i + 1)
	}
	return hs, nil
}

// Submit implements audiopool.Device.
func (d *Null) Submit(h audiopool.Handle, payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.advanceLocked()
	if len(d.queue) == 0 {
		d.cursor = d.now()
	}
	dur := time.Duration(int64(len(payload)) * int64(time.Second) / d.bytesPerSec)
	d.queue = append(d.queue, queued{h: h, dur: dur})
	return nil
}

// Processed implements audiopool.Device.
func (d *Null) Processed() []audiopool.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.advanceLocked()
	out := d.done
	d.done = nil
	return out
}

// advanceLocked retires every buffer whose play-out has finished.
// Caller must hold d.mu.
func (d *Null) advanceLocked() {
	if !d.playing {
		return
	}
	now := d.now()
	for len(d.queue) > 0 {
		end := d.cursor.Add(d.queue[0].dur)
		if end.After(now) {
			return
		}
		d.done = append(d.done, d.queue[0].h)
		d.queue = d.queue[1:]
		d.cursor = end
	}
}

// Play implements audiopool.Device.
func (d *Null) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if !d.playing {
		d.playing = true
		d.cursor = d.now()
	}
	return nil
}

// Stop implements audiopool.Device.
func (d *Null) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = false
	for _, q := range d.queue {
		d.done = append(d.done, q.h)
	}
	d.queue = nil
	return nil
}

// Close implements audiopool.Device.
func (d *Null) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.playing = false
	d.queue = nil
	d.done = nil
	return nil
}
