// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"errors"
	"io"
	"testing"

	goaudio "github.com/go-audio/audio"
)

// mockAiffReader simulates the aiff.Decoder for testing
type mockAiffReader struct {
	sampleRate int
	channels   int
	samples    []int
	offset     int
	err        error
}

func (m *mockAiffReader) Format() *goaudio.Format {
	return &goaudio.Format{SampleRate: m.sampleRate, NumChannels: m.channels}
}

func (m *mockAiffReader) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	n := copy(buf.Data, m.samples[m.offset:])
	m.offset += n
	return n, nil
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := Decoder{}.Decode(bytes.NewReader([]byte("RIFF....WAVEfmt ")))
	if !errors.Is(err, ErrNotAiffFile) {
		t.Errorf("Decode() error = %v, want ErrNotAiffFile", err)
	}
}

func TestSource_BitDepthNormalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bits   int
		sample int
		want   float32
	}{
		{8, 64, 0.5},
		{16, -16384, -0.5},
		{24, 4194304, 0.5},
		{32, -1073741824, -0.5},
	}

	for _, tt := range tests {
		scale, ok := fullScale(tt.bits)
		if !ok {
			t.Fatalf("fullScale(%d) not supported", tt.bits)
		}
		src := &source{
			dec:        &mockAiffReader{sampleRate: 44100, channels: 1, samples: []int{tt.sample}},
			sampleRate: 44100,
			channels:   1,
			maxVal:     scale,
		}
		dst := make([]float32, 4)
		n, err := src.ReadSamples(dst)
		if err != nil || n != 1 {
			t.Fatalf("%d bits: ReadSamples() = %d, %v", tt.bits, n, err)
		}
		if dst[0] != tt.want {
			t.Errorf("%d bits: got %v, want %v", tt.bits, dst[0], tt.want)
		}
		if n, err := src.ReadSamples(dst); n != 0 || err != io.EOF {
			t.Errorf("%d bits: second read = %d, %v", tt.bits, n, err)
		}
	}

	if _, ok := fullScale(12); ok {
		t.Error("fullScale(12) should be unsupported")
	}
}

func TestSource_ReadError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	src := &source{dec: &mockAiffReader{channels: 1, err: boom}, channels: 1, maxVal: 32768}
	if _, err := src.ReadSamples(make([]float32, 2)); !errors.Is(err, boom) {
		t.Errorf("ReadSamples() error = %v, want boom", err)
	}
}
