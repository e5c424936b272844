// SPDX-License-Identifier: EPL-2.0

package player

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ik5/voxmix/audio"
	"github.com/ik5/voxmix/formats/wav"
	"github.com/ik5/voxmix/internal/audiotest"
)

var mono8k = audio.Format{SampleRate: 8000, BitsPerSample: 16, Channels: 1}

func writeFile(t *testing.T, frames int) (string, []int16) {
	t.Helper()

	samples := make([]int16, frames)
	for i := range samples {
		samples[i] = int16(i%2000 - 1000)
	}
	path := filepath.Join(t.TempDir(), "take.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, wav.Encode(f, mono8k, samples))
	require.NoError(t, f.Close())
	return path, samples
}

type events struct {
	mu       sync.Mutex
	progress []time.Duration
	total    time.Duration
	finished atomic.Int32
	failed   atomic.Pointer[error]
}

func (e *events) callbacks() Callbacks {
	return Callbacks{
		Progress: func(cur, total time.Duration) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.progress = append(e.progress, cur)
			e.total = total
		},
		Finished: func() { e.finished.Add(1) },
		Fail:     func(err error) { e.failed.Store(&err) },
	}
}

func (e *events) lastProgress() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.progress) == 0 {
		return -1
	}
	return e.progress[len(e.progress)-1]
}

func TestPlayWholeFile(t *testing.T) {
	t.Parallel()

	path, samples := writeFile(t, 4000)
	sink := &audiotest.FakeSink{}
	p, err := Open(path, sink, WithBufferFrames(1000), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, p.Duration())

	var ev events
	require.NoError(t, p.Start(0, ev.callbacks()))

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("playback did not finish")
	}
	require.NoError(t, p.Stop())

	assert.Equal(t, samples, sink.Samples())
	assert.Equal(t, 4, sink.Writes())
	assert.EqualValues(t, 1, ev.finished.Load())
	assert.Nil(t, ev.failed.Load())
	assert.Equal(t, []time.Duration{
		125 * time.Millisecond, 250 * time.Millisecond, 375 * time.Millisecond, 500 * time.Millisecond,
	}, ev.progress)
	assert.Equal(t, p.Duration(), ev.total)
	assert.Equal(t, p.Duration(), p.Position())
	assert.False(t, sink.IsOpen())
}

func TestStartAtOffset(t *testing.T) {
	t.Parallel()

	path, samples := writeFile(t, 4000)
	sink := &audiotest.FakeSink{}
	p, err := Open(path, sink, WithBufferFrames(512))
	require.NoError(t, err)

	// 300ms plus half a frame rounds down to frame 2400
	require.NoError(t, p.Start(300*time.Millisecond+62*time.Microsecond, Callbacks{}))
	<-p.Done()
	require.NoError(t, p.Stop())

	assert.Equal(t, samples[2400:], sink.Samples())
}

func TestStartRejectsUnreachable(t *testing.T) {
	t.Parallel()

	path, _ := writeFile(t, 800)

	for _, from := range []time.Duration{-time.Millisecond, 200 * time.Millisecond} {
		p, err := Open(path, &audiotest.FakeSink{})
		require.NoError(t, err)
		err = p.Start(from, Callbacks{})
		assert.ErrorIs(t, err, wav.ErrUnreachable, "from %v", from)
		require.NoError(t, p.Stop())
	}
}

func TestStartAtEndFinishesImmediately(t *testing.T) {
	t.Parallel()

	path, _ := writeFile(t, 800)
	sink := &audiotest.FakeSink{}
	p, err := Open(path, sink)
	require.NoError(t, err)

	var ev events
	require.NoError(t, p.Start(p.Duration(), ev.callbacks()))
	<-p.Done()
	require.NoError(t, p.Stop())

	assert.Empty(t, sink.Samples())
	assert.EqualValues(t, 1, ev.finished.Load())
}

func TestPauseResume(t *testing.T) {
	t.Parallel()

	path, samples := writeFile(t, 4000)
	sink := audiotest.NewGatedSink()
	p, err := Open(path, sink, WithBufferFrames(500))
	require.NoError(t, err)

	var ev events
	require.NoError(t, p.Start(0, ev.callbacks()))

	sink.Release(1)
	require.Eventually(t, func() bool { return sink.Writes() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, p.Pause())
	assert.True(t, p.Paused())

	// at most the block already in flight gets through
	sink.Release(4)
	assert.Never(t, func() bool { return sink.Writes() > 2 }, 100*time.Millisecond, 5*time.Millisecond)
	held := p.Position()

	require.NoError(t, p.Resume())
	assert.False(t, p.Paused())
	sink.Release(8)

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("playback did not finish")
	}
	require.NoError(t, p.Stop())

	assert.LessOrEqual(t, held, 125*time.Millisecond)
	assert.Equal(t, samples, sink.Samples())
	assert.EqualValues(t, 1, ev.finished.Load())
}

func TestStopWhileBlocked(t *testing.T) {
	t.Parallel()

	path, _ := writeFile(t, 4000)
	sink := audiotest.NewGatedSink()
	p, err := Open(path, sink, WithBufferFrames(500))
	require.NoError(t, err)

	var ev events
	require.NoError(t, p.Start(0, ev.callbacks()))
	sink.Release(2)
	require.Eventually(t, func() bool { return ev.lastProgress() == 125*time.Millisecond }, time.Second, time.Millisecond)

	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())

	select {
	case <-p.Done():
	default:
		t.Fatal("done not closed after Stop")
	}
	assert.Zero(t, ev.finished.Load())
	assert.Nil(t, ev.failed.Load())
	assert.Equal(t, 125*time.Millisecond, p.Position())
	assert.ErrorIs(t, p.Pause(), ErrStopped)
	assert.ErrorIs(t, p.Start(0, Callbacks{}), ErrStopped)
}

func TestStateErrors(t *testing.T) {
	t.Parallel()

	path, _ := writeFile(t, 800)
	p, err := Open(path, &audiotest.FakeSink{})
	require.NoError(t, err)

	assert.ErrorIs(t, p.Pause(), ErrNotStarted)
	assert.ErrorIs(t, p.Resume(), ErrNotStarted)

	require.NoError(t, p.Start(0, Callbacks{}))
	assert.ErrorIs(t, p.Start(0, Callbacks{}), ErrStarted)
	require.NoError(t, p.Stop())
}

func TestSinkFailure(t *testing.T) {
	t.Parallel()

	path, _ := writeFile(t, 800)
	sink := &audiotest.FakeSink{OpenErr: errors.New("no output")}
	p, err := Open(path, sink)
	require.NoError(t, err)
	err = p.Start(0, Callbacks{})
	assert.ErrorIs(t, err, ErrOutput)
	assert.ErrorContains(t, err, "no output")
	require.NoError(t, p.Stop())
}

func TestOpenMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing.wav"), &audiotest.FakeSink{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
