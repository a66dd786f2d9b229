package decodequeue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playerd/internal/timebase"
)

func TestNew_defaultCapacities(t *testing.T) {
	q := New(0, -1)
	assert.Equal(t, DefaultVideoCapacity, q.VideoCapacity())
	assert.Equal(t, DefaultAudioCapacity, q.AudioCapacity())

	q = New(3, 4)
	assert.Equal(t, 3, q.VideoCapacity())
	assert.Equal(t, 4, q.AudioCapacity())
}

func TestQueue_peekPopOrder(t *testing.T) {
	q := New(4, 4)
	for i := 1; i <= 3; i++ {
		q.PushVideo(VideoFrame{PTS: timebase.Timestamp(i * 10)})
		q.PushAudio(AudioFrame{PTS: timebase.Timestamp(i * 10), Data: []byte{byte(i)}})
	}

	q.Lock()
	defer q.Unlock()

	require.True(t, q.HasVideoLocked())
	assert.Equal(t, timebase.Timestamp(10), q.PeekVideoLocked().PTS)
	assert.Equal(t, timebase.Timestamp(10), q.PopVideoLocked().PTS)
	assert.Equal(t, timebase.Timestamp(20), q.PopVideoLocked().PTS)
	assert.Equal(t, timebase.Timestamp(30), q.PopVideoLocked().PTS)
	assert.False(t, q.HasVideoLocked())

	require.True(t, q.HasAudioLocked())
	assert.Equal(t, []byte{1}, q.PeekAudioLocked().Data)
	assert.Equal(t, []byte{1}, q.PopAudioLocked().Data)
	assert.True(t, q.HasAudioLocked())
}

func TestQueue_fullIsAdvisory(t *testing.T) {
	q := New(2, 1)
	q.PushVideo(VideoFrame{PTS: 1})
	assert.False(t, q.VideoFull())
	q.PushVideo(VideoFrame{PTS: 2})
	assert.True(t, q.VideoFull())
	q.PushVideo(VideoFrame{PTS: 3})

	v, a := q.Depth()
	assert.Equal(t, 3, v)
	assert.Equal(t, 0, a)

	q.PushAudio(AudioFrame{PTS: 1})
	assert.True(t, q.AudioFull())
}

func TestQueue_Clear(t *testing.T) {
	q := New(0, 0)
	q.PushVideo(VideoFrame{PTS: 1})
	q.PushAudio(AudioFrame{PTS: 1})
	q.Clear()

	v, a := q.Depth()
	assert.Zero(t, v)
	assert.Zero(t, a)
}

func TestQueue_concurrentProducer(t *testing.T) {
	q := New(0, 0)
	const n = 500

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			q.PushVideo(VideoFrame{PTS: timebase.Timestamp(i)})
		}
	}()

	var popped []timebase.Timestamp
	for len(popped) < n {
		q.Lock()
		for q.HasVideoLocked() {
			popped = append(popped, q.PopVideoLocked().PTS)
		}
		q.Unlock()
	}
	wg.Wait()

	for i, pts := range popped {
		assert.Equal(t, timebase.Timestamp(i), pts)
	}
}
