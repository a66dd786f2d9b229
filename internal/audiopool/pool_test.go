package audiopool

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	createErr error
	short     bool
	submitErr error
	queued    []Handle
	done      []Handle
	playing   bool
	closed    bool
	stops     int
}

func (d *fakeDevice) CreateBuffers(n int) ([]Handle, error) {
	if d.createErr != nil {
		return nil, d.createErr
	}
	if d.short {
		n--
	}
	hs := make([]Handle, n)
	for i := range hs {
		hs[i] = Handle(i + 1)
	}
	return hs, nil
}

func (d *fakeDevice) Submit(h Handle, _ []byte) error {
	if d.submitErr != nil {
		return d.submitErr
	}
	d.queued = append(d.queued, h)
	return nil
}

// finish marks the n oldest queued buffers as played.
func (d *fakeDevice) finish(n int) {
	d.done = append(d.done, d.queued[:n]...)
	d.queued = d.queued[n:]
}

func (d *fakeDevice) Processed() []Handle {
	out := d.done
	d.done = nil
	return out
}

func (d *fakeDevice) Play() error { d.playing = true; return nil }

func (d *fakeDevice) Stop() error {
	d.playing = false
	d.stops++
	d.done = append(d.done, d.queued...)
	d.queued = nil
	return nil
}

func (d *fakeDevice) Close() error { d.closed = true; return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func submitN(t *testing.T, p *Pool, n, size int) {
	t.Helper()
	for i := 0; i < n; i++ {
		h, ok := p.TryAcquire()
		require.True(t, ok)
		require.NoError(t, p.Submit(h, make([]byte, size)))
	}
}

func TestPool_submitAndReclaim(t *testing.T) {
	dev := &fakeDevice{}
	p, err := New(dev, 30, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 30, p.Free())
	assert.Equal(t, 0, p.InFlight())

	submitN(t, p, 5, 100)
	assert.Equal(t, 25, p.Free())
	assert.Equal(t, 5, p.InFlight())

	dev.finish(3)
	consumed := p.ReclaimProcessed()
	assert.Equal(t, int64(300), consumed)
	assert.Equal(t, 28, p.Free())
	assert.Equal(t, 2, p.InFlight())
	assert.Equal(t, p.Size(), p.Free()+p.InFlight())
}

func TestPool_TryAcquire_exhausted(t *testing.T) {
	p, err := New(&fakeDevice{}, 3, quietLogger())
	require.NoError(t, err)

	submitN(t, p, 3, 10)
	_, ok := p.TryAcquire()
	assert.False(t, ok)
	assert.Equal(t, 3, p.InFlight())
}

func TestPool_Submit_failureReturnsHandle(t *testing.T) {
	dev := &fakeDevice{}
	p, err := New(dev, 4, quietLogger())
	require.NoError(t, err)

	dev.submitErr = errors.New("device busy")
	h, ok := p.TryAcquire()
	require.True(t, ok)
	err = p.Submit(h, make([]byte, 64))
	require.Error(t, err)
	assert.Equal(t, 4, p.Free())
	assert.Equal(t, 0, p.InFlight())
	assert.Equal(t, int64(0), p.ReclaimProcessed())
}

func TestPool_Submit_notFree(t *testing.T) {
	p, err := New(&fakeDevice{}, 2, quietLogger())
	require.NoError(t, err)

	h, _ := p.TryAcquire()
	require.NoError(t, p.Submit(h, nil))
	err = p.Submit(h, nil)
	assert.ErrorIs(t, err, ErrNotFree)
	assert.Equal(t, 1, p.InFlight())
}

func TestPool_Flush(t *testing.T) {
	dev := &fakeDevice{}
	p, err := New(dev, 30, quietLogger())
	require.NoError(t, err)
	require.NoError(t, p.Play())
	assert.True(t, p.Playing())

	submitN(t, p, 7, 10)
	p.Flush()

	assert.False(t, p.Playing())
	assert.Equal(t, 30, p.Free())
	assert.Equal(t, 0, p.InFlight())
	assert.Equal(t, int64(0), p.ReclaimProcessed(), "flushed buffers are not credited")
}

func TestNew_failures(t *testing.T) {
	t.Run("create_error_closes_device", func(t *testing.T) {
		dev := &fakeDevice{createErr: errors.New("no device")}
		_, err := New(dev, 30, quietLogger())
		assert.Error(t, err)
		assert.True(t, dev.closed)
	})

	t.Run("short_count", func(t *testing.T) {
		dev := &fakeDevice{short: true}
		_, err := New(dev, 30, quietLogger())
		assert.ErrorIs(t, err, ErrBufferCount)
		assert.True(t, dev.closed)
	})

	t.Run("default_size", func(t *testing.T) {
		p, err := New(&fakeDevice{}, 0, quietLogger())
		require.NoError(t, err)
		assert.Equal(t, DefaultSize, p.Size())
	})
}

func TestPool_Close(t *testing.T) {
	dev := &fakeDevice{}
	p, err := New(dev, 5, quietLogger())
	require.NoError(t, err)
	submitN(t, p, 2, 10)

	require.NoError(t, p.Close())
	assert.True(t, dev.closed)
	assert.Equal(t, 5, p.Free())
}
