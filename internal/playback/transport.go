package playback

import (
	"log/slog"

	"playerd/internal/decodequeue"
	"playerd/internal/decoder"
	"playerd/internal/scheduler"
	"playerd/internal/timebase"
)

// SetPlayback changes the transport direction. Starting captures the
// current position as the clock offset; stopping returns every audio buffer
// to the pool. Reversing a playing session stops it first.
func (m *Media) SetPlayback(dir Direction) {
	m.run(func() { m.setPlaybackLocked(dir) })
}

func (m *Media) setPlaybackLocked(dir Direction) {
	if !m.readyLocked() {
		m.log.Debug("playback command ignored, source not ready", slog.String("direction", dir.String()))
		return
	}
	if dir == m.direction.Get() {
		return
	}
	if dir == Stopped {
		m.stopLocked()
		return
	}
	m.haltLocked()
	m.startLocked(dir)
}

// startLocked begins playback in dir from the current position. If the
// decoder cannot be repositioned for the new direction the session is left
// stopped.
// Caller must hold m.mu and have halted playback.
func (m *Media) startLocked(dir Direction) bool {
	reverse := dir == Reverse
	if r, ok := m.dec.(decoder.Reverser); ok && m.reverseDecode != reverse {
		r.SetReverse(reverse)
		m.reverseDecode = reverse
		if !m.seekLocked(m.currentTime.Get()) {
			m.stopLocked()
			return false
		}
	}

	m.timeOffset = m.currentTime.Get()
	m.baseline = m.now()
	m.consumed = 0
	m.publish(m.direction.Set(dir))

	if m.tickPeriod > 0 {
		m.ticker = scheduler.Every(m.tickPeriod, m, (*Media).Tick)
	}
	if dir == Forward && m.audio != nil {
		if err := m.pool.Play(); err != nil {
			m.deviceFailedLocked(err)
		}
	}
	return true
}

// stopLocked halts playback and publishes the Stopped state.
// Caller must hold m.mu.
func (m *Media) stopLocked() {
	m.haltLocked()
	m.publish(m.direction.Set(Stopped))
	m.diagnosticsLocked()
}

// haltLocked stops the tick and flushes the audio pool without publishing a
// direction change, for transitions that restart playback straight away.
// Caller must hold m.mu.
func (m *Media) haltLocked() {
	if m.ticker != nil {
		m.ticker.Stop()
		m.ticker = nil
	}
	if m.pool != nil {
		m.pool.Flush()
	}
	m.consumed = 0
	m.bounced = false
	m.latchPending = false
}

// seekLocked repositions the decoder at t and publishes t. On failure the
// position is left unchanged and the failure is published.
// Caller must hold m.mu.
func (m *Media) seekLocked(t timebase.Timestamp) bool {
	m.queue.Clear()
	if m.pool != nil {
		m.pool.Flush()
	}
	if err := m.dec.Seek(t); err != nil {
		m.fail(SeekFailure, err)
		return false
	}
	m.image = nil
	m.publish(m.currentTime.Set(t))
	return true
}

// beginLatchLocked arranges for the frame covering t to become the current
// image while stopped. Frames the decoder has not produced yet are awaited
// for one tick period, on stopped ticks.
// Caller must hold m.mu and have stopped playback.
func (m *Media) beginLatchLocked(t timebase.Timestamp) {
	m.latchPending = true
	m.latchAt = t
	m.latchDeadline = m.now().Add(m.tickPeriod)
	if m.latchLocked() {
		return
	}
	if m.tickPeriod > 0 && m.ticker == nil {
		m.ticker = scheduler.Every(m.tickPeriod, m, (*Media).Tick)
	}
}

// latchLocked presents the last queued frame at or before latchAt, or the
// first one after it. It reports whether the latch is finished, either
// because a frame was presented or because the wait expired.
// Caller must hold m.mu.
func (m *Media) latchLocked() bool {
	if !m.latchPending {
		return true
	}

	var (
		frame decodequeue.VideoFrame
		found bool
	)
	q := m.queue
	q.Lock()
	for q.HasVideoLocked() && q.PeekVideoLocked().PTS <= m.latchAt {
		frame, found = q.PopVideoLocked(), true
	}
	if !found && q.HasVideoLocked() {
		frame, found = q.PeekVideoLocked(), true
	}
	q.Unlock()

	switch {
	case found:
		m.image = &frame
	case m.now().After(m.latchDeadline):
		m.log.Debug("no frame for stopped position", slog.Int64("time", int64(m.latchAt)))
	default:
		return false
	}

	m.latchPending = false
	if m.ticker != nil {
		m.ticker.Stop()
		m.ticker = nil
	}
	return true
}

// rangeLocked returns the span playback is restricted to.
// Caller must hold m.mu.
func (m *Media) rangeLocked() Range {
	if p := m.inOut.Get(); p.Enabled {
		return Range{In: p.In, Out: p.Out}
	}
	return Range{In: 0, Out: max(m.duration.Get()-m.tpf, 0)}
}

// clockLocked picks the position source for this tick: the audio device
// while it is playing forward, wall time otherwise.
// Caller must hold m.mu.
func (m *Media) clockLocked() positionSource {
	if m.direction.Get() == Forward && m.audio != nil && m.pool != nil && m.pool.Playing() {
		return audioClock{rate: m.audio.Rate(), frameSize: m.audio.FrameSize()}
	}
	return wallClock{rate: m.rate}
}

// Tick advances playback by one step. While stopped it only waits for the
// frame at the current position after a seek or step.
// The scheduler calls it every TickPeriod; with a zero TickPeriod the
// embedding program calls it.
func (m *Media) Tick() {
	m.run(m.tickLocked)
}

func (m *Media) tickLocked() {
	if !m.readyLocked() {
		return
	}
	dir := m.direction.Get()
	if dir == Stopped {
		m.latchLocked()
		return
	}
	m.metrics.IncTicks()

	candidate := m.clockLocked().position(clockInput{
		offset:   m.timeOffset,
		elapsed:  m.now().Sub(m.baseline),
		consumed: m.consumed,
		reverse:  dir == Reverse,
	})

	next, out := applyRange(candidate, m.rangeLocked(), m.tpf, m.mode.Get())
	if out == bounce && m.bounced {
		// At most one flip between in-range ticks.
		out = accept
	}
	switch out {
	case accept:
		m.bounced = false
		m.publish(m.currentTime.Set(next))
	case stopAtBound:
		m.stopLocked()
		m.publish(m.currentTime.Set(next))
		m.beginLatchLocked(next)
		m.log.Debug("playback reached bound", slog.Int64("time", int64(next)))
		return
	case wrapAround:
		m.haltLocked()
		if !m.seekLocked(next) {
			m.stopLocked()
			return
		}
		if !m.startLocked(dir) {
			return
		}
	case bounce:
		m.haltLocked()
		m.publish(m.currentTime.Set(next))
		dir = dir.flip()
		if !m.startLocked(dir) {
			return
		}
		m.bounced = true
	}

	m.drainVideoLocked(dir, next)
	if dir == Forward && m.audio != nil {
		m.fillAudioLocked()
	}
	m.diagnosticsLocked()
}

// drainVideoLocked pops every frame the position has passed, keeping the
// last one as the current image. Playing forward that is every frame earlier
// than t; in reverse, every frame later than t.
// Caller must hold m.mu.
func (m *Media) drainVideoLocked(dir Direction, t timebase.Timestamp) {
	var latest *decodequeue.VideoFrame

	q := m.queue
	q.Lock()
	for q.HasVideoLocked() {
		pts := q.PeekVideoLocked().PTS
		if (dir == Forward && pts >= t) || (dir == Reverse && pts <= t) {
			break
		}
		f := q.PopVideoLocked()
		latest = &f
	}
	q.Unlock()

	if latest == nil {
		m.dropped++
		m.metrics.IncDroppedPresentations()
		return
	}
	m.image = latest
}

// fillAudioLocked reclaims played buffers into the clock and submits queued
// audio in order until the queue or the free list runs out. The queue lock
// is never held across a device call.
// Caller must hold m.mu.
func (m *Media) fillAudioLocked() {
	m.consumed += m.pool.ReclaimProcessed()

	for {
		h, ok := m.pool.TryAcquire()
		if !ok {
			return
		}

		q := m.queue
		q.Lock()
		if !q.HasAudioLocked() {
			q.Unlock()
			return
		}
		f := q.PopAudioLocked()
		q.Unlock()

		if err := m.pool.Submit(h, f.Data); err != nil {
			m.metrics.IncDroppedBuffers()
		}
	}
}

// diagnosticsLocked publishes queue depth and pool gauges.
// Caller must hold m.mu.
func (m *Media) diagnosticsLocked() {
	if m.queue == nil {
		return
	}
	video, audio := m.queue.Depth()
	m.publish(m.queueDepth.Set(QueueDepth{Video: video, Audio: audio}))
	m.metrics.SetQueueDepth(m.id, video, audio)
	if m.pool != nil {
		m.metrics.SetBuffersInFlight(m.id, m.pool.InFlight())
	}
}

// SetCurrentTime stops playback and seeks to t clamped into the active
// range. Playback is not resumed; the frame at the new position becomes the
// current image once the decoder delivers it.
func (m *Media) SetCurrentTime(t timebase.Timestamp) {
	m.run(func() { m.setCurrentTimeLocked(t) })
}

func (m *Media) setCurrentTimeLocked(t timebase.Timestamp) {
	if !m.readyLocked() {
		m.log.Debug("seek ignored, source not ready", slog.Int64("time", int64(t)))
		return
	}
	waiting := m.latchPending
	m.stopLocked()
	t = m.rangeLocked().Clamp(t)
	if t == m.currentTime.Get() {
		if waiting {
			m.beginLatchLocked(t)
		}
		return
	}
	if m.seekLocked(t) {
		m.beginLatchLocked(t)
	}
}

// Start seeks to the beginning of the active range.
func (m *Media) Start() {
	m.run(func() { m.setCurrentTimeLocked(m.rangeLocked().In) })
}

// End seeks to the end of the active range.
func (m *Media) End() {
	m.run(func() { m.setCurrentTimeLocked(m.rangeLocked().Out) })
}

// NextFrame stops playback and steps n nominal frames forward. n <= 0 does
// nothing.
func (m *Media) NextFrame(n int) {
	if n <= 0 {
		return
	}
	m.run(func() { m.stepLocked(int64(n)) })
}

// PrevFrame stops playback and steps n nominal frames back. n <= 0 does
// nothing.
func (m *Media) PrevFrame(n int) {
	if n <= 0 {
		return
	}
	m.run(func() { m.stepLocked(-int64(n)) })
}

func (m *Media) stepLocked(frames int64) {
	m.setCurrentTimeLocked(m.currentTime.Get() + timebase.Timestamp(frames)*m.tpf)
}

// SetPlaybackMode sets the policy applied at range bounds.
func (m *Media) SetPlaybackMode(mode Mode) {
	m.run(func() { m.publish(m.mode.Set(mode)) })
}

// SetInOutPoints restricts playback to [in, out] when enabled. Both points
// are clamped to the timeline and swapped if given out of order. If the
// current position falls outside the new range playback stops and seeks to
// the nearest bound.
func (m *Media) SetInOutPoints(enabled bool, in, out timebase.Timestamp) {
	m.run(func() {
		if !m.readyLocked() {
			m.log.Debug("in/out points ignored, source not ready")
			return
		}
		full := Range{In: 0, Out: max(m.duration.Get()-m.tpf, 0)}
		in, out = full.Clamp(in), full.Clamp(out)
		if in > out {
			in, out = out, in
		}
		m.publish(m.inOut.Set(InOut{Enabled: enabled, In: in, Out: out}))

		if r := m.rangeLocked(); !r.Contains(m.currentTime.Get()) {
			m.setCurrentTimeLocked(m.currentTime.Get())
		}
	})
}
