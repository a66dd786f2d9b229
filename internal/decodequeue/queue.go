// Package decodequeue holds decoded frames between a decoder's producer
// goroutine and the playback engine that consumes them.
//
// The queue is shared: the producer pushes through PushVideo/PushAudio, which
// lock internally, while the consumer takes the queue lock itself with Lock
// and then uses the *Locked accessors for a whole peek+pop sequence.
package decodequeue

import (
	"sync"

	"playerd/internal/timebase"
)

// Default advisory capacities.
const (
	DefaultVideoCapacity = 10
	DefaultAudioCapacity = 60
)

// VideoFrame is one decoded picture. The engine never inspects Image.
type VideoFrame struct {
	PTS   timebase.Timestamp
	Image any
}

// AudioFrame is one chunk of decoded PCM ready for the audio device.
type AudioFrame struct {
	PTS  timebase.Timestamp
	Data []byte
}

// Queue is an ordered, mutex-protected holding area for decoded frames.
// Capacities are advisory: producers are expected to check VideoFull and
// AudioFull, pushes are never refused.
type Queue struct {
	mu       sync.Mutex
	video    []VideoFrame
	audio    []AudioFrame
	videoCap int
	audioCap int
}

// New returns an empty queue. Non-positive capacities use the defaults.
func New(videoCap, audioCap int) *Queue {
	if videoCap <= 0 {
		videoCap = DefaultVideoCapacity
	}
	if audioCap <= 0 {
		audioCap = DefaultAudioCapacity
	}
	return &Queue{videoCap: videoCap, audioCap: audioCap}
}

// Lock acquires the queue mutex for a consumer peek+pop sequence.
func (q *Queue) Lock() { q.mu.Lock() }

// Unlock releases the queue mutex.
func (q *Queue) Unlock() { q.mu.Unlock() }

// PushVideo appends a video frame.
func (q *Queue) PushVideo(f VideoFrame) {
	q.mu.Lock()
	q.video = append(q.video, f)
	q.mu.Unlock()
}

// PushAudio appends an audio frame.
func (q *Queue) PushAudio(f AudioFrame) {
	q.mu.Lock()
	q.audio = append(q.audio, f)
	q.mu.Unlock()
}

// VideoFull reports whether the video side has reached its advisory capacity.
func (q *Queue) VideoFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.video) >= q.videoCap
}

// AudioFull reports whether the audio side has reached its advisory capacity.
func (q *Queue) AudioFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.audio) >= q.audioCap
}

// Clear drops every queued frame.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.video = nil
	q.audio = nil
	q.mu.Unlock()
}

// Depth returns the number of queued video and audio frames.
func (q *Queue) Depth() (video, audio int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.video), len(q.audio)
}

// VideoCapacity returns the advisory video bound.
func (q *Queue) VideoCapacity() int { return q.videoCap }

// AudioCapacity returns the advisory audio bound.
func (q *Queue) AudioCapacity() int { return q.audioCap }

// HasVideoLocked reports whether a video frame is queued.
// Caller must hold the queue lock.
func (q *Queue) HasVideoLocked() bool { return len(q.video) > 0 }

// HasAudioLocked reports whether an audio frame is queued.
// Caller must hold the queue lock.
func (q *Queue) HasAudioLocked() bool { return len(q.audio) > 0 }

// PeekVideoLocked returns the front video frame without removing it.
// Caller must hold the queue lock and have checked HasVideoLocked.
func (q *Queue) PeekVideoLocked() VideoFrame { return q.video[0] }

// PeekAudioLocked returns the front audio frame without removing it.
// Caller must hold the queue lock and have checked HasAudioLocked.
func (q *Queue) PeekAudioLocked() AudioFrame { return q.audio[0] }

// PopVideoLocked removes and returns the front video frame.
// Caller must hold the queue lock and have checked HasVideoLocked.
func (q *Queue) PopVideoLocked() VideoFrame {
	f := q.video[0]
	q.video[0] = VideoFrame{}
	q.video = q.video[1:]
	return f
}

// PopAudioLocked removes and returns the front audio frame.
// Caller must hold the queue lock and have checked HasAudioLocked.
func (q *Queue) PopAudioLocked() AudioFrame {
	f := q.audio[0]
	q.audio[0] = AudioFrame{}
	q.audio = q.audio[1:]
	return f
}
