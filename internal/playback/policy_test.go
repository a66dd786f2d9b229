package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"playerd/internal/timebase"
)

func TestApplyRange(t *testing.T) {
	r := Range{In: 100, Out: 900}

	tests := []struct {
		name      string
		candidate timebase.Timestamp
		mode      Mode
		want      timebase.Timestamp
		outcome   outcome
	}{
		{"inside", 500, Once, 500, accept},
		{"on_in_bound", 100, Loop, 100, accept},
		{"on_out_bound", 900, PingPong, 900, accept},
		{"once_past_out", 940, Once, 900, stopAtBound},
		{"once_before_in", 20, Once, 100, stopAtBound},
		{"loop_past_out", 905, Loop, 104, wrapAround},
		{"loop_before_in", 95, Loop, 896, wrapAround},
		{"loop_several_lengths", 100 + 3*801 + 7, Loop, 107, wrapAround},
		{"pingpong_past_out", 905, PingPong, 900, bounce},
		{"pingpong_before_in", 60, PingPong, 100, bounce},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, out := applyRange(tt.candidate, r, 1, tt.mode)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.outcome, out)
		})
	}
}

func TestWrap_congruentAndInRange(t *testing.T) {
	ranges := []struct {
		r   Range
		tpf timebase.Timestamp
	}{
		{Range{In: 100, Out: 900}, 1},
		{Range{In: 0, Out: 960_000}, 40_000},
		{Range{In: 40_000, Out: 40_000}, 40_000},
	}

	for _, rc := range ranges {
		length := rc.r.Out - rc.r.In + rc.tpf
		for k := timebase.Timestamp(-5); k <= 5; k++ {
			// Frame-aligned candidates from the clock.
			for f := timebase.Timestamp(0); f*rc.tpf < length; f++ {
				candidate := rc.r.In + f*rc.tpf + k*length
				got := wrap(candidate, rc.r, rc.tpf)
				assert.True(t, rc.r.Contains(got), "wrap(%d) = %d outside %v", candidate, got, rc.r)
				assert.Zero(t, ((candidate-got)%length+length)%length, "wrap(%d) = %d not congruent", candidate, got)
			}
		}
	}
}

func TestWrap_partialTrailingFrame(t *testing.T) {
	r := Range{In: 0, Out: 90}
	assert.Equal(t, timebase.Timestamp(90), wrap(95, r, 10))
	assert.Equal(t, timebase.Timestamp(5), wrap(105, r, 10))
}

func TestRange_Clamp(t *testing.T) {
	r := Range{In: 10, Out: 20}
	assert.Equal(t, timebase.Timestamp(10), r.Clamp(-5))
	assert.Equal(t, timebase.Timestamp(15), r.Clamp(15))
	assert.Equal(t, timebase.Timestamp(20), r.Clamp(25))
}

func TestWallClock(t *testing.T) {
	c := wallClock{rate: timebase.Rational{Duration: 1, Scale: 25}}

	in := clockInput{offset: 1_000_000, elapsed: 100 * time.Millisecond}
	assert.Equal(t, timebase.Timestamp(1_080_000), c.position(in))

	in.reverse = true
	assert.Equal(t, timebase.Timestamp(920_000), c.position(in))

	in.elapsed = 39 * time.Millisecond
	assert.Equal(t, timebase.Timestamp(1_000_000), c.position(in))
}

func TestAudioClock(t *testing.T) {
	c := audioClock{rate: timebase.Rational{Duration: 1, Scale: 48000}, frameSize: 4}

	assert.Equal(t, timebase.Timestamp(500), c.position(clockInput{offset: 500}))
	// 4800 bytes = 1200 stereo 16-bit samples = 25ms.
	assert.Equal(t, timebase.Timestamp(25_500), c.position(clockInput{offset: 500, consumed: 4800}))
	// A trailing partial sample frame is not counted.
	assert.Equal(t, timebase.Timestamp(25_500), c.position(clockInput{offset: 500, consumed: 4803}))
	// The audio clock ignores wall time.
	assert.Equal(t, timebase.Timestamp(500), c.position(clockInput{offset: 500, elapsed: time.Second}))
}

func TestParseDirectionAndMode(t *testing.T) {
	d, err := ParseDirection("Reverse")
	assert.NoError(t, err)
	assert.Equal(t, Reverse, d)
	_, err = ParseDirection("sideways")
	assert.Error(t, err)

	m, err := ParseMode("ping-pong")
	assert.NoError(t, err)
	assert.Equal(t, PingPong, m)
	_, err = ParseMode("shuffle")
	assert.Error(t, err)

	assert.Equal(t, Reverse, Forward.flip())
	assert.Equal(t, Forward, Reverse.flip())
	assert.Equal(t, Stopped, Stopped.flip())
}
