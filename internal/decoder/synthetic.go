package decoder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"playerd/internal/decodequeue"
	"playerd/internal/timebase"
)

// SyntheticConfig configures a Synthetic decoder.
type SyntheticConfig struct {
	VideoRate     timebase.Rational // Nominal frame rate (default: 1/25)
	Length        time.Duration     // Source length (default: 10s)
	SampleRate    int               // Audio sample rate, 0 disables audio
	Channels      int               // Audio channels (default: 2)
	AudioChunk    time.Duration     // Length of each queued audio frame (default: 20ms)
	VideoCapacity int               // Advisory video queue bound
	AudioCapacity int               // Advisory audio queue bound
	Idle          time.Duration     // Producer back-off when the queue is full (default: 2ms)
}

// DefaultSyntheticConfig returns a 10 second 25 fps source with 48 kHz stereo audio.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		VideoRate:  timebase.Rational{Duration: 1, Scale: 25},
		Length:     10 * time.Second,
		SampleRate: 48000,
		Channels:   2,
		AudioChunk: 20 * time.Millisecond,
		Idle:       2 * time.Millisecond,
	}
}

// Pattern is the image carried by synthetic video frames.
type Pattern struct {
	Source string
	Frame  int64
}

// Synthetic is a Decoder that generates test-pattern video and silent 16-bit
// PCM at nominal rates. It stands in for a real demuxer in the daemon and in
// integration tests.
type Synthetic struct {
	cfg   SyntheticConfig
	log   *slog.Logger
	queue *decodequeue.Queue

	mu          sync.Mutex
	source      string
	info        TrackInfo
	opened      bool
	closed      bool
	reverse     bool
	frame       int64 // next video frame index
	frames      int64 // total video frames
	sample      int64 // next audio sample frame
	samples     int64 // total audio sample frames
	chunkFrames int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSynthetic returns an unopened synthetic decoder.
func NewSynthetic(cfg SyntheticConfig, log *slog.Logger) *Synthetic {
	def := DefaultSyntheticConfig()
	if !cfg.VideoRate.Valid() {
		cfg.VideoRate = def.VideoRate
	}
	if cfg.Length <= 0 {
		cfg.Length = def.Length
	}
	if cfg.Channels <= 0 {
		cfg.Channels = def.Channels
	}
	if cfg.AudioChunk <= 0 {
		cfg.AudioChunk = def.AudioChunk
	}
	if cfg.Idle <= 0 {
		cfg.Idle = def.Idle
	}
	return &Synthetic{
		cfg:   cfg,
		log:   log,
		queue: decodequeue.New(cfg.VideoCapacity, cfg.AudioCapacity),
	}
}

// Queue implements Decoder.
func (d *Synthetic) Queue() *decodequeue.Queue { return d.queue }

// Open implements Decoder. Track info is resolved from a goroutine, after
// which the producer starts. An empty source fails with ErrOpen.
func (d *Synthetic) Open(source string) *Future[TrackInfo] {
	fut := NewFuture[TrackInfo]()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		fut.Resolve(TrackInfo{}, ErrClosed)
		return fut
	}
	if d.opened {
		fut.Resolve(d.info, nil)
		return fut
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		info, err := d.resolve(source)
		fut.Resolve(info, err)
		if err != nil {
			d.log.Warn("synthetic source open failed",
				slog.String("source", source),
				slog.String("error", err.Error()))
			return
		}
		d.produce(ctx)
	}()
	return fut
}

func (d *Synthetic) resolve(source string) (TrackInfo, error) {
	if source == "" {
		return TrackInfo{}, fmt.Errorf("%w: empty source", ErrOpen)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	length := timebase.FromDuration(d.cfg.Length)
	d.frames = timebase.WholeUnits(d.cfg.Length, d.cfg.VideoRate)
	info := TrackInfo{
		Video: &VideoTrack{Rate: d.cfg.VideoRate, Duration: length},
	}
	if d.cfg.SampleRate > 0 {
		audio := &AudioTrack{
			SampleRate:     d.cfg.SampleRate,
			Channels:       d.cfg.Channels,
			BytesPerSample: 2,
			Duration:       length,
		}
		d.samples = timebase.WholeUnits(d.cfg.Length, audio.Rate())
		d.chunkFrames = max(1, timebase.WholeUnits(d.cfg.AudioChunk, audio.Rate()))
		info.Audio = audio
	}

	d.source = source
	d.info = info
	d.opened = true
	d.log.Info("synthetic source opened",
		slog.String("source", source),
		slog.Int64("frames", d.frames),
		slog.Int64("duration_us", int64(length)))
	return info, nil
}

// produce pushes frames until ctx is cancelled, backing off while the queue
// is at capacity or the source is exhausted.
func (d *Synthetic) produce(ctx context.Context) {
	for {
		pushed := d.step()
		if pushed {
			select {
			case <-ctx.Done():
				return
			default:
			}
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.cfg.Idle):
		}
	}
}

// step pushes at most one video and one audio frame.
func (d *Synthetic) step() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	pushed := false
	if !d.queue.VideoFull() && d.frame >= 0 && d.frame < d.frames {
		d.queue.PushVideo(decodequeue.VideoFrame{
			PTS:   timebase.Timestamp(timebase.Rescale(d.frame, d.cfg.VideoRate, timebase.GlobalBase)),
			Image: Pattern{Source: d.source, Frame: d.frame},
		})
		if d.reverse {
			d.frame--
		} else {
			d.frame++
		}
		pushed = true
	}

	if d.info.Audio != nil && !d.reverse && !d.queue.AudioFull() && d.sample < d.samples {
		n := min(d.chunkFrames, d.samples-d.sample)
		d.queue.PushAudio(decodequeue.AudioFrame{
			PTS:  timebase.Timestamp(timebase.Rescale(d.sample, d.info.Audio.Rate(), timebase.GlobalBase)),
			Data: make([]byte, int(n)*d.info.Audio.FrameSize()),
		})
		d.sample += n
		pushed = true
	}
	return pushed
}

// Seek implements Decoder. Queued frames are discarded and production
// resumes at the frame containing ts.
func (d *Synthetic) Seek(ts timebase.Timestamp) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if !d.opened {
		return fmt.Errorf("%w: source not open", ErrSeek)
	}
	if ts < 0 || ts > d.info.Duration() {
		return fmt.Errorf("%w: %d outside [0, %d]", ErrSeek, ts, d.info.Duration())
	}

	d.frame = min(timebase.WholeUnits(ts.Duration(), d.cfg.VideoRate), d.frames-1)
	if d.info.Audio != nil {
		d.sample = timebase.WholeUnits(ts.Duration(), d.info.Audio.Rate())
	}
	d.queue.Clear()
	d.log.Debug("synthetic seek", slog.Int64("ts", int64(ts)), slog.Int64("frame", d.frame))
	return nil
}

// SetReverse implements Reverser. Queued frames are discarded.
func (d *Synthetic) SetReverse(reverse bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reverse == reverse {
		return
	}
	d.reverse = reverse
	d.queue.Clear()
}

// Close implements Decoder.
func (d *Synthetic) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
	return nil
}
