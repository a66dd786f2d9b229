package playback

import (
	"fmt"
	"strings"

	"playerd/internal/platform/metrics"
	"playerd/internal/timebase"
)

// Direction is the transport state.
type Direction int

const (
	Stopped Direction = iota // Not playing
	Forward                  // Playing toward the out point
	Reverse                  // Playing toward the in point
)

func (d Direction) String() string {
	switch d {
	case Stopped:
		return "stop"
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseDirection parses "stop", "forward" or "reverse".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "stop", "stopped":
		return Stopped, nil
	case "forward":
		return Forward, nil
	case "reverse":
		return Reverse, nil
	}
	return Stopped, fmt.Errorf("unknown direction %q", s)
}

// flip swaps Forward and Reverse.
func (d Direction) flip() Direction {
	switch d {
	case Forward:
		return Reverse
	case Reverse:
		return Forward
	default:
		return d
	}
}

// Mode governs what happens when playback reaches a range bound.
type Mode int

const (
	Once     Mode = iota // Stop at the bound
	Loop                 // Wrap to the other bound
	PingPong             // Reverse direction at the bound
)

func (m Mode) String() string {
	switch m {
	case Once:
		return "once"
	case Loop:
		return "loop"
	case PingPong:
		return "pingpong"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMode parses "once", "loop" or "pingpong".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "once":
		return Once, nil
	case "loop":
		return Loop, nil
	case "pingpong", "ping-pong":
		return PingPong, nil
	}
	return Once, fmt.Errorf("unknown playback mode %q", s)
}

// InOut is the user-set sub-range playback is restricted to when Enabled.
type InOut struct {
	Enabled bool               `json:"enabled"`
	In      timebase.Timestamp `json:"in"`
	Out     timebase.Timestamp `json:"out"`
}

// QueueDepth is the decode queue diagnostic.
type QueueDepth struct {
	Video int `json:"video"`
	Audio int `json:"audio"`
}

// FailureKind classifies errors delivered to SubscribeErrors.
type FailureKind string

const (
	OpenFailure   FailureKind = metrics.FailureOpen
	SeekFailure   FailureKind = metrics.FailureSeek
	DeviceFailure FailureKind = metrics.FailureDevice
)

// Failure is a session error. Failures never stop the session; they are
// reflected in its state.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// State is a point-in-time snapshot of a session.
type State struct {
	ID                   string             `json:"id"`
	Source               string             `json:"source"`
	Opened               bool               `json:"opened"`
	OpenFailed           bool               `json:"open_failed"`
	CurrentTime          timebase.Timestamp `json:"current_time"`
	Duration             timebase.Timestamp `json:"duration"`
	TicksPerFrame        timebase.Timestamp `json:"ticks_per_frame"`
	Direction            Direction          `json:"direction"`
	Mode                 Mode               `json:"mode"`
	InOut                InOut              `json:"in_out"`
	HasAudio             bool               `json:"has_audio"`
	Queue                QueueDepth         `json:"queue"`
	VideoCapacity        int                `json:"video_capacity"`
	AudioCapacity        int                `json:"audio_capacity"`
	BuffersFree          int                `json:"buffers_free"`
	BuffersInFlight      int                `json:"buffers_in_flight"`
	DroppedPresentations uint64             `json:"dropped_presentations"`
}
