package playback

import (
	"time"

	"playerd/internal/timebase"
)

// clockInput is what a positionSource sees of the session each tick.
type clockInput struct {
	offset   timebase.Timestamp // currentTime when playback last started
	elapsed  time.Duration      // wall time since playback last started
	consumed int64              // device bytes played since playback last started
	reverse  bool
}

// positionSource derives the candidate playback position for a tick.
type positionSource interface {
	position(in clockInput) timebase.Timestamp
}

// audioClock follows the audio device: the position advances by the samples
// it has finished playing. Partial sample frames are not counted; whole
// samples are rescaled with half-away-from-zero rounding.
type audioClock struct {
	rate      timebase.Rational
	frameSize int
}

func (c audioClock) position(in clockInput) timebase.Timestamp {
	samples := in.consumed / int64(c.frameSize)
	return in.offset + timebase.Timestamp(timebase.Rescale(samples, c.rate, timebase.GlobalBase))
}

// wallClock advances by whole nominal video frames of elapsed wall time.
type wallClock struct {
	rate timebase.Rational
}

func (c wallClock) position(in clockInput) timebase.Timestamp {
	frames := timebase.WholeUnits(in.elapsed, c.rate)
	delta := timebase.Timestamp(timebase.Rescale(frames, c.rate, timebase.GlobalBase))
	if in.reverse {
		return in.offset - delta
	}
	return in.offset + delta
}
