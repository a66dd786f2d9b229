// Package decoder defines the decoder collaborator a playback session drives,
// and a synthetic implementation that produces test-pattern frames.
package decoder

import (
	"errors"
	"sync"

	"playerd/internal/decodequeue"
	"playerd/internal/timebase"
)

var (
	// ErrOpen is returned when a source cannot be resolved into tracks.
	ErrOpen = errors.New("open source failed")

	// ErrSeek is returned when the decoder rejects a seek.
	ErrSeek = errors.New("seek rejected")

	// ErrClosed is returned by operations on a closed decoder.
	ErrClosed = errors.New("decoder closed")
)

// Decoder demuxes and decodes a source into its own Decode Queue from a
// producer goroutine it owns.
type Decoder interface {
	// Open starts resolving source. The returned future is polled without
	// blocking until it is ready.
	Open(source string) *Future[TrackInfo]
	// Seek repositions decoding so the next queued frames start at ts.
	Seek(ts timebase.Timestamp) error
	// Queue returns the queue the decoder fills.
	Queue() *decodequeue.Queue
	// Close stops the producer.
	Close() error
}

// Reverser is implemented by decoders that can produce frames in descending
// timestamp order.
type Reverser interface {
	SetReverse(reverse bool)
}

// VideoTrack describes the video stream of a source.
type VideoTrack struct {
	Rate     timebase.Rational
	Duration timebase.Timestamp
}

// AudioTrack describes the audio stream of a source.
type AudioTrack struct {
	SampleRate     int
	Channels       int
	BytesPerSample int
	Duration       timebase.Timestamp
}

// Rate returns the nominal rate of one sample frame.
func (a AudioTrack) Rate() timebase.Rational {
	return timebase.Rational{Duration: 1, Scale: int64(a.SampleRate)}
}

// FrameSize returns the number of bytes in one sample frame (all channels).
func (a AudioTrack) FrameSize() int {
	return a.Channels * a.BytesPerSample
}

// Valid reports whether the track can drive an audio clock.
func (a AudioTrack) Valid() bool {
	return a.SampleRate > 0 && a.FrameSize() > 0
}

// TrackInfo is what Open resolves to. Either track may be absent.
type TrackInfo struct {
	Video *VideoTrack
	Audio *AudioTrack
}

// Duration returns the longest track duration.
func (i TrackInfo) Duration() timebase.Timestamp {
	var d timebase.Timestamp
	if i.Video != nil && i.Video.Duration > d {
		d = i.Video.Duration
	}
	if i.Audio != nil && i.Audio.Duration > d {
		d = i.Audio.Duration
	}
	return d
}

// Future is a value that becomes available later.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

// NewFuture returns an unresolved future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve completes the future. Only the first call has an effect.
func (f *Future[T]) Resolve(v T, err error) {
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
	})
}

// Ready reports whether Resolve has been called.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the resolved value. It must only be called once Ready
// reports true.
func (f *Future[T]) Result() (T, error) {
	return f.val, f.err
}

// Done is closed when the future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}
