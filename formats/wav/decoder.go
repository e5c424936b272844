// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/ik5/voxmix/audio"
)

// wavReader is the part of gowav.Decoder the source uses, for testing.
type wavReader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

type source struct {
	dec        wavReader
	sampleRate int
	channels   int
	scale      float32
	frames     int64
	intBuf     *goaudio.IntBuffer
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) Frames() int64   { return s.frames }
func (s *source) BufSize() int {
	if s.intBuf != nil {
		return cap(s.intBuf.Data)
	}
	return 4096
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	if s.intBuf == nil || cap(s.intBuf.Data) < len(dst) {
		s.intBuf = &goaudio.IntBuffer{
			Data:   make([]int, len(dst)),
			Format: s.dec.Format(),
		}
	} else {
		s.intBuf.Data = s.intBuf.Data[:len(dst)]
	}

	n, err := s.dec.PCMBuffer(s.intBuf)
	if n == 0 {
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("wav: %w", err)
		}
		return 0, io.EOF
	}
	// keep whole frames only
	n -= n % s.channels

	for i := range n {
		dst[i] = float32(s.intBuf.Data[i]) / s.scale
	}
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("wav: %w", err)
	}
	return n, nil
}

// sampleScale is the divisor that maps a signed PCM sample of bitDepth bits
// into [-1,1).
func sampleScale(bitDepth int) (float32, bool) {
	switch bitDepth {
	case 8:
		return 128.0, true
	case 16:
		return 32768.0, true
	case 24:
		return 8388608.0, true
	case 32:
		return 2147483648.0, true
	}
	return 0, false
}

// Decoder decodes integer PCM WAV files of 8, 16, 24 or 32 bits.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		// go-audio needs to seek between chunks
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading wav data: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec := gowav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedWavLayout, err)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, ErrOnlyPCM16bitSupported
	}
	scale, ok := sampleScale(int(dec.BitDepth))
	if !ok {
		return nil, fmt.Errorf("%w: %d bits", ErrOnlyPCM16bitSupported, dec.BitDepth)
	}
	format := dec.Format()
	if format == nil || format.NumChannels < 1 || format.SampleRate <= 0 {
		return nil, ErrUnsupportedWavLayout
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedWavChunks, err)
	}

	blockAlign := format.NumChannels * int(dec.BitDepth) / 8
	return &source{
		dec:        dec,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		scale:      scale,
		frames:     int64(dec.PCMSize / blockAlign),
	}, nil
}
