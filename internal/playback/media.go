// Package playback turns decoded frames arriving from a decoder into a single
// authoritative playback position, and feeds an audio device's buffer pool
// while honouring play, stop, reverse, in/out points and the loop mode.
//
// A Media session serializes its commands and ticks. Observer callbacks run
// after the session lock is released, in publish order, so they may call
// back into the session, including from inside a tick.
package playback

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"playerd/internal/audiopool"
	"playerd/internal/decoder"
	"playerd/internal/decodequeue"
	"playerd/internal/observable"
	"playerd/internal/platform/metrics"
	"playerd/internal/scheduler"
	"playerd/internal/timebase"
)

// DefaultRate is the nominal rate used when a source has no video track.
var DefaultRate = timebase.Rational{Duration: 1, Scale: 25}

// Options configures a Media session.
type Options struct {
	ID         string           // Session id (default: random UUID)
	Logger     *slog.Logger     // Default: slog.Default()
	Metrics    *metrics.Metrics // Optional
	Device     audiopool.Device // Audio output; nil plays video only
	Buffers    int              // Audio buffer count (default: audiopool.DefaultSize)
	TickPeriod time.Duration    // 0 disables the scheduler; call Tick and PollOpen manually
	Now        func() time.Time // Wall clock (default: time.Now)
}

// Media is a playback session over one source.
type Media struct {
	id         string
	source     string
	log        *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	tickPeriod time.Duration
	dec        decoder.Decoder

	mu            sync.Mutex
	pending       []func()
	delivering    bool
	closed        bool
	queue         *decodequeue.Queue
	pool          *audiopool.Pool
	open          *decoder.Future[decoder.TrackInfo]
	openDone      bool
	openFailed    bool
	openPoll      *scheduler.Handle
	ticker        *scheduler.Handle
	rate          timebase.Rational
	tpf           timebase.Timestamp
	audio         *decoder.AudioTrack
	reverseDecode bool
	timeOffset    timebase.Timestamp
	baseline      time.Time
	consumed      int64
	bounced       bool
	image         *decodequeue.VideoFrame
	latchPending  bool
	latchAt       timebase.Timestamp
	latchDeadline time.Time
	dropped       uint64

	currentTime *observable.Value[timebase.Timestamp]
	duration    *observable.Value[timebase.Timestamp]
	direction   *observable.Value[Direction]
	mode        *observable.Value[Mode]
	inOut       *observable.Value[InOut]
	hasAudio    *observable.Value[bool]
	queueDepth  *observable.Value[QueueDepth]
	failures    *observable.Stream[Failure]
}

// New creates a session for source and asks dec to open it. The device in
// opts, if any, is owned by the session from here on and released by Close,
// including when buffer setup fails. New never fails: open and device
// failures are logged and leave the session without duration or audio.
func New(source string, dec decoder.Decoder, opts Options) *Media {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Media{
		id:          opts.ID,
		source:      source,
		log:         opts.Logger.With(slog.String("session", opts.ID), slog.String("source", source)),
		metrics:     opts.Metrics,
		now:         opts.Now,
		tickPeriod:  opts.TickPeriod,
		dec:         dec,
		queue:       dec.Queue(),
		rate:        DefaultRate,
		tpf:         timebase.TicksPerFrame(DefaultRate),
		currentTime: observable.NewValue[timebase.Timestamp](0),
		duration:    observable.NewValue[timebase.Timestamp](0),
		direction:   observable.NewValue(Stopped),
		mode:        observable.NewValue(Once),
		inOut:       observable.NewValue(InOut{}),
		hasAudio:    observable.NewValue(false),
		queueDepth:  observable.NewValue(QueueDepth{}),
		failures:    observable.NewStream[Failure](),
	}

	if opts.Device != nil {
		pool, err := audiopool.New(opts.Device, opts.Buffers, m.log)
		if err != nil {
			m.deviceFailedLocked(err)
		} else {
			m.pool = pool
		}
	}

	m.open = dec.Open(source)
	m.run(func() { m.pollOpenLocked() })

	m.mu.Lock()
	if !m.openDone && m.tickPeriod > 0 {
		m.openPoll = scheduler.Every(m.tickPeriod, m, func(m *Media) { m.PollOpen() })
	}
	m.mu.Unlock()
	return m
}

// run executes fn under the session lock, then delivers the notifications
// queued so far. Notifications are delivered one at a time in the order
// they were published, by whichever caller finds no delivery in progress;
// a command issued while another goroutine is delivering, or from inside a
// callback, returns once its state change is made and its notifications
// follow those already queued.
func (m *Media) run(fn func()) {
	m.mu.Lock()
	fn()
	if m.delivering {
		m.mu.Unlock()
		return
	}
	m.delivering = true
	for len(m.pending) > 0 {
		batch := m.pending
		m.pending = nil
		m.mu.Unlock()
		m.deliver(batch)
		m.mu.Lock()
	}
	m.delivering = false
	m.mu.Unlock()
}

// deliver runs notifications without the session lock. A panicking
// subscriber releases the delivery role so later commands still notify.
func (m *Media) deliver(batch []func()) {
	done := false
	defer func() {
		if !done {
			m.mu.Lock()
			m.delivering = false
			m.mu.Unlock()
		}
	}()
	for _, notify := range batch {
		notify()
	}
	done = true
}

// publish queues a notification returned by an observable.
// Caller must hold m.mu.
func (m *Media) publish(notify func()) {
	if notify != nil {
		m.pending = append(m.pending, notify)
	}
}

// fail logs, counts and publishes a failure.
// Caller must hold m.mu.
func (m *Media) fail(kind FailureKind, err error) {
	m.log.Warn(string(kind)+" failure", slog.String("error", err.Error()))
	m.metrics.IncFailure(string(kind))
	m.publish(m.failures.Emit(Failure{Kind: kind, Err: err}))
}

// PollOpen checks, without blocking, whether the decoder has resolved the
// source. It reports true once the open has succeeded or failed.
func (m *Media) PollOpen() bool {
	var done bool
	m.run(func() { done = m.pollOpenLocked() })
	return done
}

func (m *Media) pollOpenLocked() bool {
	if m.openDone {
		return true
	}
	if m.closed {
		return true
	}
	if !m.open.Ready() {
		return false
	}
	m.openDone = true
	if m.openPoll != nil {
		m.openPoll.Stop()
		m.openPoll = nil
	}

	info, err := m.open.Result()
	if err == nil && info.Duration() <= 0 {
		err = fmt.Errorf("%w: source has no duration", decoder.ErrOpen)
	}
	if err != nil {
		m.openFailed = true
		m.fail(OpenFailure, err)
		return true
	}

	if info.Video != nil && info.Video.Rate.Valid() {
		m.rate = info.Video.Rate
		m.tpf = timebase.TicksPerFrame(m.rate)
	}
	if info.Audio != nil && info.Audio.Valid() && m.pool != nil {
		audio := *info.Audio
		m.audio = &audio
	}
	m.publish(m.hasAudio.Set(m.audio != nil))
	m.publish(m.duration.Set(info.Duration()))

	m.log.Info("source opened",
		slog.Int64("duration", int64(info.Duration())),
		slog.String("rate", m.rate.String()),
		slog.Bool("audio", m.audio != nil))
	return true
}

// deviceFailedLocked degrades the session to video only for the rest of its
// life. Caller must hold m.mu or be constructing m.
func (m *Media) deviceFailedLocked(err error) {
	if m.pool != nil {
		if cerr := m.pool.Close(); cerr != nil {
			m.log.Debug("close failed audio device", slog.String("error", cerr.Error()))
		}
		m.pool = nil
	}
	m.audio = nil
	m.publish(m.hasAudio.Set(false))
	m.fail(DeviceFailure, err)
}

// readyLocked reports whether transport commands may act.
// Caller must hold m.mu.
func (m *Media) readyLocked() bool {
	return !m.closed && m.openDone && !m.openFailed && m.duration.Get() > 0
}

// Close stops playback, returns every audio buffer, releases the audio
// device and drops the queue reference. The decoder is left to its owner.
func (m *Media) Close() error {
	var err error
	m.run(func() {
		if m.closed {
			return
		}
		m.stopLocked()
		if m.openPoll != nil {
			m.openPoll.Stop()
			m.openPoll = nil
		}
		if m.pool != nil {
			err = m.pool.Close()
			m.pool = nil
		}
		m.closed = true
		m.queue = nil
		m.image = nil
		m.metrics.ForgetSession(m.id)
		m.log.Info("session closed")
	})
	return err
}

// ID returns the session id.
func (m *Media) ID() string { return m.id }

// Source returns the source identity the session was opened with.
func (m *Media) Source() string { return m.source }

// CurrentTime returns the published playback position.
func (m *Media) CurrentTime() timebase.Timestamp { return m.currentTime.Get() }

// Duration returns the session duration, 0 until the source is open.
func (m *Media) Duration() timebase.Timestamp { return m.duration.Get() }

// Direction returns the transport state.
func (m *Media) Direction() Direction { return m.direction.Get() }

// Mode returns the playback mode.
func (m *Media) Mode() Mode { return m.mode.Get() }

// InOut returns the in/out points.
func (m *Media) InOut() InOut { return m.inOut.Get() }

// HasAudio reports whether playback is driven by an audio device.
func (m *Media) HasAudio() bool { return m.hasAudio.Get() }

// TicksPerFrame returns the length of one nominal frame.
func (m *Media) TicksPerFrame() timebase.Timestamp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tpf
}

// CurrentImage returns the most recently presented video frame.
func (m *Media) CurrentImage() (decodequeue.VideoFrame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.image == nil {
		return decodequeue.VideoFrame{}, false
	}
	return *m.image, true
}

// State returns a snapshot of the session.
func (m *Media) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := State{
		ID:                   m.id,
		Source:               m.source,
		Opened:               m.openDone && !m.openFailed,
		OpenFailed:           m.openFailed,
		CurrentTime:          m.currentTime.Get(),
		Duration:             m.duration.Get(),
		TicksPerFrame:        m.tpf,
		Direction:            m.direction.Get(),
		Mode:                 m.mode.Get(),
		InOut:                m.inOut.Get(),
		HasAudio:             m.hasAudio.Get(),
		Queue:                m.queueDepth.Get(),
		DroppedPresentations: m.dropped,
	}
	if m.queue != nil {
		s.VideoCapacity = m.queue.VideoCapacity()
		s.AudioCapacity = m.queue.AudioCapacity()
	}
	if m.pool != nil {
		s.BuffersFree = m.pool.Free()
		s.BuffersInFlight = m.pool.InFlight()
	}
	return s
}

// SubscribeCurrentTime calls fn whenever the playback position changes.
func (m *Media) SubscribeCurrentTime(fn func(timebase.Timestamp)) *observable.Subscription {
	return m.currentTime.Subscribe(fn)
}

// SubscribeDuration calls fn when the duration becomes known.
func (m *Media) SubscribeDuration(fn func(timebase.Timestamp)) *observable.Subscription {
	return m.duration.Subscribe(fn)
}

// SubscribeDirection calls fn whenever the transport state changes.
func (m *Media) SubscribeDirection(fn func(Direction)) *observable.Subscription {
	return m.direction.Subscribe(fn)
}

// SubscribeMode calls fn whenever the playback mode changes.
func (m *Media) SubscribeMode(fn func(Mode)) *observable.Subscription {
	return m.mode.Subscribe(fn)
}

// SubscribeInOut calls fn whenever the in/out points change.
func (m *Media) SubscribeInOut(fn func(InOut)) *observable.Subscription {
	return m.inOut.Subscribe(fn)
}

// SubscribeHasAudio calls fn when the session gains or loses audio.
func (m *Media) SubscribeHasAudio(fn func(bool)) *observable.Subscription {
	return m.hasAudio.Subscribe(fn)
}

// SubscribeQueueDepth calls fn whenever the decode queue depth changes.
func (m *Media) SubscribeQueueDepth(fn func(QueueDepth)) *observable.Subscription {
	return m.queueDepth.Subscribe(fn)
}

// SubscribeErrors calls fn for every open, seek and device failure.
func (m *Media) SubscribeErrors(fn func(Failure)) *observable.Subscription {
	return m.failures.Subscribe(fn)
}
