// Package audiopool cycles a fixed set of audio device buffers between a free
// list and the device's play queue.
package audiopool

import (
	"errors"
	"fmt"
	"log/slog"
)

// DefaultSize is the number of device buffers a session allocates.
const DefaultSize = 30

// Handle names one device buffer.
type Handle int

// Device is the audio output the pool feeds. Implementations serialize their
// own internal state; the pool calls them from a single goroutine.
type Device interface {
	// CreateBuffers allocates n buffers and the playback source.
	CreateBuffers(n int) ([]Handle, error)
	// Submit queues payload on the source using buffer h.
	Submit(h Handle, payload []byte) error
	// Processed returns, and detaches from the source, the buffers that
	// finished playing since the last call.
	Processed() []Handle
	// Play starts the source.
	Play() error
	// Stop halts the source and detaches every queued buffer.
	Stop() error
	// Close destroys the buffers and the source.
	Close() error
}

var (
	// ErrBufferCount is returned when the device hands back fewer buffers
	// than requested.
	ErrBufferCount = errors.New("device returned wrong buffer count")

	// ErrNotFree is returned when submitting a handle that is not on the
	// free list.
	ErrNotFree = errors.New("buffer handle is not free")
)

// Pool partitions a device's buffers into free and in-flight sets.
// Every handle is in exactly one of the two at all times.
// Pool is not safe for concurrent use.
type Pool struct {
	dev      Device
	log      *slog.Logger
	size     int
	free     []Handle
	inFlight map[Handle]int
	playing  bool
}

// New allocates size buffers on dev. On failure the device is closed and
// the caller must not use it.
func New(dev Device, size int, log *slog.Logger) (*Pool, error) {
	if size <= 0 {
		size = DefaultSize
	}
	handles, err := dev.CreateBuffers(size)
	if err == nil && len(handles) != size {
		err = fmt.Errorf("%w: want %d, got %d", ErrBufferCount, size, len(handles))
	}
	if err != nil {
		if cerr := dev.Close(); cerr != nil {
			log.Warn("close audio device after failed setup", slog.String("error", cerr.Error()))
		}
		return nil, fmt.Errorf("create audio buffers: %w", err)
	}

	free := make([]Handle, size)
	copy(free, handles)
	return &Pool{
		dev:      dev,
		log:      log,
		size:     size,
		free:     free,
		inFlight: make(map[Handle]int, size),
	}, nil
}

// Size returns the total number of handles.
func (p *Pool) Size() int { return p.size }

// Free returns the number of free handles.
func (p *Pool) Free() int { return len(p.free) }

// InFlight returns the number of handles queued on the device.
func (p *Pool) InFlight() int { return len(p.inFlight) }

// Playing reports whether the device source has been started.
func (p *Pool) Playing() bool { return p.playing }

// TryAcquire returns the next free handle, or false when every buffer is in
// flight. The handle stays on the free list until Submit moves it.
func (p *Pool) TryAcquire() (Handle, bool) {
	if len(p.free) == 0 {
		return 0, false
	}
	return p.free[len(p.free)-1], true
}

// Submit queues payload on the device with h and moves h to in-flight. When
// the device rejects the buffer, h goes back to free and the buffer counts
// as dropped.
func (p *Pool) Submit(h Handle, payload []byte) error {
	idx := -1
	for i := len(p.free) - 1; i >= 0; i-- {
		if p.free[i] == h {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrNotFree, h)
	}

	p.free = append(p.free[:idx], p.free[idx+1:]...)
	if err := p.dev.Submit(h, payload); err != nil {
		p.free = append(p.free, h)
		p.log.Warn("audio buffer dropped",
			slog.Int("handle", int(h)),
			slog.Int("bytes", len(payload)),
			slog.String("error", err.Error()))
		return fmt.Errorf("submit audio buffer %d: %w", h, err)
	}
	p.inFlight[h] = len(payload)
	return nil
}

// ReclaimProcessed moves every buffer the device finished playing back to
// free and returns the number of bytes they carried.
func (p *Pool) ReclaimProcessed() int64 {
	var consumed int64
	for _, h := range p.dev.Processed() {
		n, ok := p.inFlight[h]
		if !ok {
			p.log.Debug("device reported unknown buffer", slog.Int("handle", int(h)))
			continue
		}
		delete(p.inFlight, h)
		p.free = append(p.free, h)
		consumed += int64(n)
	}
	return consumed
}

// Play starts the device source.
func (p *Pool) Play() error {
	if err := p.dev.Play(); err != nil {
		return fmt.Errorf("start audio source: %w", err)
	}
	p.playing = true
	return nil
}

// Flush stops the source and returns every in-flight handle to free without
// crediting consumed bytes.
func (p *Pool) Flush() {
	if err := p.dev.Stop(); err != nil {
		p.log.Warn("stop audio source", slog.String("error", err.Error()))
	}
	p.playing = false
	p.dev.Processed()
	for h := range p.inFlight {
		delete(p.inFlight, h)
		p.free = append(p.free, h)
	}
}

// Close flushes the pool and releases the device.
func (p *Pool) Close() error {
	p.Flush()
	return p.dev.Close()
}
