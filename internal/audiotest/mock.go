// SPDX-License-Identifier: EPL-2.0

// Package audiotest holds test doubles for sources and devices.
package audiotest

import (
	"io"
	"math"
)

// MockSource generates frames from a waveform function.
// It implements audio.Source, audio.FrameSeeker and audio.Lengther.
type MockSource struct {
	sampleRate int
	channels   int
	frames     int
	pos        int
	waveform   func(frame, channel int) float32
}

// NewMockSource returns a source of frames frames computed by waveform.
func NewMockSource(sampleRate, channels, frames int, waveform func(frame, channel int) float32) *MockSource {
	return &MockSource{
		sampleRate: sampleRate,
		channels:   channels,
		frames:     frames,
		waveform:   waveform,
	}
}

func NewSilentSource(sampleRate, channels, frames int) *MockSource {
	return NewConstantSource(sampleRate, channels, frames, 0)
}

func NewSineSource(sampleRate, channels, frames int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(frame, _ int) float32 {
		t := float64(frame) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	})
}

func NewConstantSource(sampleRate, channels, frames int, value float32) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(int, int) float32 { return value })
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }
func (m *MockSource) Close() error    { return nil }
func (m *MockSource) Frames() int64   { return int64(m.frames) }

func (m *MockSource) SeekFrame(frame int64) error {
	if frame < 0 || frame > int64(m.frames) {
		return io.ErrUnexpectedEOF
	}
	m.pos = int(frame)
	return nil
}

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.pos >= m.frames {
		return 0, io.EOF
	}

	n := min(len(dst)/m.channels, m.frames-m.pos)
	for f := range n {
		for c := range m.channels {
			dst[f*m.channels+c] = m.waveform(m.pos+f, c)
		}
	}
	m.pos += n

	if m.pos >= m.frames {
		return n * m.channels, io.EOF
	}
	return n * m.channels, nil
}
