// SPDX-License-Identifier: EPL-2.0

package recorder

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gowav "github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ik5/voxmix/audio"
	"github.com/ik5/voxmix/formats/wav"
	"github.com/ik5/voxmix/internal/audiotest"
)

const rate = 8000

type fixture struct {
	r       *Recorder
	capture *audiotest.FakeCapture
	sink    *audiotest.FakeSink
	obs     *observer
	path    string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newFixtureRate(t, rate, opts...)
}

func newFixtureRate(t *testing.T, sampleRate int, opts ...Option) *fixture {
	t.Helper()

	fx := &fixture{
		capture: &audiotest.FakeCapture{},
		sink:    &audiotest.FakeSink{},
		obs:     &observer{},
		path:    filepath.Join(t.TempDir(), "take.wav"),
	}
	base := []Option{
		WithCapture(fx.capture),
		WithPlayback(fx.sink),
		WithLogger(zaptest.NewLogger(t)),
		WithHeadphoneProbe(func() bool { return false }),
		WithLookahead(1 << 16),
	}
	r, err := New(sampleRate, fx.path, append(base, opts...)...)
	require.NoError(t, err)
	r.SetObserver(fx.obs)
	fx.r = r

	t.Cleanup(func() { _ = r.Close() })
	return fx
}

// record captures frames frames of gen, in buffers of at most chunk frames.
func (fx *fixture) record(t *testing.T, frames, chunk int, gen func(frame int64) int16) {
	t.Helper()
	for frames > 0 {
		n := min(chunk, frames)
		require.True(t, fx.capture.EmitFrames(n, gen), "capture not running")
		frames -= n
	}
}

func (fx *fixture) waitState(t *testing.T, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return fx.r.State() == want },
		5*time.Second, time.Millisecond, "state never became %v", want)
}

func (fx *fixture) waitEvent(t *testing.T, ev string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return fx.obs.count(ev) == n },
		5*time.Second, time.Millisecond, "never saw %d %s", n, ev)
}

func ramp(frame int64) int16 { return int16(frame%4000 - 2000) }

func constant(v int16) func(int64) int16 {
	return func(int64) int16 { return v }
}

// readSamples decodes a recorded file with go-audio/wav.
func readSamples(t *testing.T, path string) []int16 {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	d := gowav.NewDecoder(f)
	require.True(t, d.IsValidFile())
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)

	out := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = int16(v)
	}
	return out
}

func fileFrames(t *testing.T, path string) int64 {
	t.Helper()
	info, err := wav.ReadInfo(path)
	require.NoError(t, err)
	return info.Frames
}

// writeTrack writes a background track whose frame i holds gen(i) on
// every channel.
func writeTrack(t *testing.T, channels, frames int, gen func(i int) int16) string {
	t.Helper()

	samples := make([]int16, frames*channels)
	for i := range frames {
		for ch := range channels {
			samples[i*channels+ch] = gen(i)
		}
	}
	path := filepath.Join(t.TempDir(), "bgm.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	format := audio.Format{SampleRate: rate, BitsPerSample: 16, Channels: channels}
	require.NoError(t, wav.Encode(f, format, samples))
	require.NoError(t, f.Close())
	return path
}

// observer records every event.
type observer struct {
	mu       sync.Mutex
	events   []string
	states   [][2]State
	buffers  []audio.PcmBuffer
	elapsed  []time.Duration
	progress []time.Duration

	onState func(from, to State)
}

var _ Observer = (*observer)(nil)

func (o *observer) add(ev string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *observer) CaptureBuffer(buf audio.PcmBuffer, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.buffers = append(o.buffers, buf)
	o.elapsed = append(o.elapsed, elapsed)
}

func (o *observer) PlaybackTime(current, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, current)
}

func (o *observer) PlaybackStarted()   { o.add("playback-started") }
func (o *observer) PlaybackFinished()  { o.add("playback-finished") }
func (o *observer) RecordingStarted()  { o.add("recording-started") }
func (o *observer) RecordingFinished() { o.add("recording-finished") }

func (o *observer) StateChanged(from, to State) {
	o.mu.Lock()
	o.states = append(o.states, [2]State{from, to})
	hook := o.onState
	o.mu.Unlock()
	if hook != nil {
		hook(from, to)
	}
}

func (o *observer) count(ev string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.events {
		if e == ev {
			n++
		}
	}
	return n
}

func (o *observer) stateLog() [][2]State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([][2]State(nil), o.states...)
}

func (o *observer) elapsedLog() []time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]time.Duration(nil), o.elapsed...)
}
