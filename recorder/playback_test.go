// SPDX-License-Identifier: EPL-2.0

package recorder

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/voxmix/internal/audiotest"
)

func recordTake(t *testing.T, fx *fixture, frames int) {
	t.Helper()
	require.NoError(t, fx.r.StartRecord())
	fx.record(t, frames, 1000, ramp)
	require.NoError(t, fx.r.StopRecord())
}

func TestPlayToEnd(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, WithBufferFrames(500))
	recordTake(t, fx, 4000)
	want := readSamples(t, fx.path)

	require.NoError(t, fx.r.Play())
	fx.waitEvent(t, "playback-finished", 1)
	assert.Equal(t, Normal, fx.r.State())

	assert.Equal(t, want, fx.sink.Samples())
	assert.Equal(t, 1, fx.obs.count("playback-started"))
	assert.Equal(t, 500*time.Millisecond, fx.r.CurrentPlayTime())
	assert.Equal(t, 500*time.Millisecond, fx.r.PlayDuration())
	assert.False(t, fx.sink.IsOpen())
	assert.NoError(t, fx.r.Err())

	fx.obs.mu.Lock()
	progress := append([]time.Duration(nil), fx.obs.progress...)
	fx.obs.mu.Unlock()
	require.Len(t, progress, 8)
	assert.Equal(t, 62500*time.Microsecond, progress[0])
	assert.Equal(t, 500*time.Millisecond, progress[7])

	states := fx.obs.stateLog()
	assert.Equal(t, [2]State{Normal, Playing}, states[len(states)-2])
	assert.Equal(t, [2]State{Playing, Normal}, states[len(states)-1])
}

func TestStopPlayAtNaturalEnd(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	recordTake(t, fx, 1000)

	stops := make(chan error, 1)
	fx.obs.mu.Lock()
	fx.obs.onState = func(from, to State) {
		if from == Playing && to == Normal {
			stops <- fx.r.StopPlay()
		}
	}
	fx.obs.mu.Unlock()

	require.NoError(t, fx.r.Play())
	fx.waitEvent(t, "playback-finished", 1)

	select {
	case err := <-stops:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("playback never ended")
	}
	assert.NoError(t, fx.r.Err())
	assert.Equal(t, Normal, fx.r.State())
}

func TestPlayAt(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	recordTake(t, fx, 4000)
	want := readSamples(t, fx.path)

	require.NoError(t, fx.r.PlayAt(375*time.Millisecond))
	fx.waitEvent(t, "playback-finished", 1)
	assert.Equal(t, want[3000:], fx.sink.Samples())
}

func TestPlayRejections(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	err := fx.r.Play()
	assert.ErrorIs(t, err, ErrFile)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, Normal, fx.r.State())

	recordTake(t, fx, 800)
	for _, at := range []time.Duration{-time.Second, 100*time.Millisecond + 100*time.Microsecond, 101 * time.Millisecond} {
		assert.ErrorIs(t, fx.r.PlayAt(at), ErrFile, "at %v", at)
		assert.Equal(t, Normal, fx.r.State())
	}
	assert.Zero(t, fx.sink.Opens())
}

func TestPlaybackOutputFailure(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	recordTake(t, fx, 800)
	fx.sink.OpenErr = errors.New("no speakers")

	err := fx.r.Play()
	assert.ErrorIs(t, err, ErrDevice)
	assert.Equal(t, Normal, fx.r.State())
}

func TestPauseResumeStop(t *testing.T) {
	t.Parallel()

	sink := audiotest.NewGatedSink()
	fx := newFixture(t, WithPlayback(sink), WithBufferFrames(400))
	recordTake(t, fx, 4000)

	require.NoError(t, fx.r.Play())
	assert.True(t, fx.r.IsPlaying())
	sink.Release(1)
	require.Eventually(t, func() bool { return sink.Writes() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, fx.r.PausePlay())
	assert.Equal(t, Paused, fx.r.State())
	assert.False(t, fx.r.IsPlaying())
	require.NoError(t, fx.r.PausePlay())

	sink.Release(3)
	assert.Never(t, func() bool { return sink.Writes() > 2 }, 50*time.Millisecond, 5*time.Millisecond)
	held := fx.r.CurrentPlayTime()
	assert.LessOrEqual(t, held, 100*time.Millisecond)

	assert.ErrorIs(t, fx.r.StartRecord(), ErrState)
	assert.ErrorIs(t, fx.r.Play(), ErrState)

	require.NoError(t, fx.r.ResumePlay())
	assert.Equal(t, Playing, fx.r.State())
	require.NoError(t, fx.r.ResumePlay())
	require.Eventually(t, func() bool { return sink.Writes() >= 4 }, time.Second, time.Millisecond)

	require.NoError(t, fx.r.StopPlay())
	require.NoError(t, fx.r.StopPlay())
	assert.Equal(t, Normal, fx.r.State())
	assert.Zero(t, fx.obs.count("playback-finished"))
	assert.False(t, sink.IsOpen())
	assert.ErrorIs(t, fx.r.PausePlay(), ErrState)

	assert.Equal(t, [][2]State{
		{Normal, Recording}, {Recording, Normal},
		{Normal, Playing}, {Playing, Paused}, {Paused, Playing}, {Playing, Normal},
	}, fx.obs.stateLog())

	// a stopped playback can be started again
	require.NoError(t, fx.r.PlayAt(400*time.Millisecond))
	sink.Release(10)
	fx.waitEvent(t, "playback-finished", 1)
}

func TestRecordAfterPlayback(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	recordTake(t, fx, 800)
	require.NoError(t, fx.r.Play())
	fx.waitEvent(t, "playback-finished", 1)
	fx.waitState(t, Normal)

	recordTake(t, fx, 1600)
	assert.EqualValues(t, 1600, fileFrames(t, fx.path))
	assert.Equal(t, 2, fx.obs.count("recording-finished"))
}
