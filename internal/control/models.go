package control

import (
	"time"

	"playerd/internal/decoder"
	"playerd/internal/playback"
	"playerd/internal/timebase"
)

// SessionID uniquely identifies a playback session.
type SessionID string

// Session is a registered playback session and the decoder feeding it.
type Session struct {
	ID        SessionID
	Source    string
	Media     *playback.Media
	Decoder   decoder.Decoder
	CreatedAt time.Time
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	Source string `json:"source"`
}

// CreateSessionResponse is returned by POST /sessions.
type CreateSessionResponse struct {
	ID SessionID `json:"id"`
}

// PlaybackRequest is the body of POST /sessions/{id}/playback.
// Direction is "stop", "forward" or "reverse".
type PlaybackRequest struct {
	Direction playback.Direction `json:"direction"`
}

// ModeRequest is the body of POST /sessions/{id}/mode.
type ModeRequest struct {
	Mode playback.Mode `json:"mode"`
}

// SeekRequest is the body of POST /sessions/{id}/seek. Time is in
// microseconds.
type SeekRequest struct {
	Time *timebase.Timestamp `json:"time"`
}

// StepRequest is the body of POST /sessions/{id}/step. Negative frame
// counts step backward.
type StepRequest struct {
	Frames int `json:"frames"`
}

// InOutRequest is the body of PUT /sessions/{id}/inout.
type InOutRequest struct {
	Enabled bool               `json:"enabled"`
	In      timebase.Timestamp `json:"in"`
	Out     timebase.Timestamp `json:"out"`
}
