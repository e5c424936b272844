// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"math"
)

// mockSource generates frames from a waveform function.
type mockSource struct {
	sampleRate int
	channels   int
	frames     int
	pos        int
	waveform   func(frame, channel int) float32
}

func newMockSource(sampleRate, channels, frames int, waveform func(frame, channel int) float32) *mockSource {
	return &mockSource{sampleRate: sampleRate, channels: channels, frames: frames, waveform: waveform}
}

func newConstantSource(sampleRate, channels, frames int, value float32) *mockSource {
	return newMockSource(sampleRate, channels, frames, func(int, int) float32 { return value })
}

func newSineSource(sampleRate, channels, frames int, frequency float64) *mockSource {
	return newMockSource(sampleRate, channels, frames, func(frame, _ int) float32 {
		return float32(math.Sin(2 * math.Pi * frequency * float64(frame) / float64(sampleRate)))
	})
}

// newRampSource emits frame/scale so positions can be checked exactly.
func newRampSource(sampleRate, frames int, scale float32) *mockSource {
	return newMockSource(sampleRate, 1, frames, func(frame, _ int) float32 { return float32(frame) / scale })
}

func (m *mockSource) SampleRate() int { return m.sampleRate }
func (m *mockSource) Channels() int   { return m.channels }
func (m *mockSource) BufSize() int    { return 4096 }
func (m *mockSource) Close() error    { return nil }

func (m *mockSource) ReadSamples(dst []float32) (int, error) {
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

func readAll(src Source) ([]float32, error) {
	buf := make([]float32, 1024*src.Channels())
	var out []float32
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}
