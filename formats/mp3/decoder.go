// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MP3 background tracks with github.com/hajimehoshi/go-mp3.
// The output is always 16-bit stereo; seeking and length need a seekable input.
package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/ik5/voxmix/audio"
)

const (
	channels       = 2
	bytesPerSample = 2
	bytesPerFrame  = channels * bytesPerSample
)

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	io.ReadSeeker
	SampleRate() int
	Length() int64
}

type source struct {
	dec        mp3Reader
	sampleRate int
	buf        []byte
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.buf) / bytesPerSample }

// Frames is the decoded length, or -1 when the input is not seekable.
func (s *source) Frames() int64 {
	l := s.dec.Length()
	if l < 0 {
		return -1
	}
	return l / bytesPerFrame
}

func (s *source) SeekFrame(frame int64) error {
	if _, err := s.dec.Seek(frame*bytesPerFrame, io.SeekStart); err != nil {
		return fmt.Errorf("mp3: seek to frame %d: %w", frame, err)
	}
	return nil
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	bytesNeeded := (len(dst) / channels) * bytesPerFrame
	if cap(s.buf) < bytesNeeded {
		s.buf = make([]byte, bytesNeeded)
	}
	s.buf = s.buf[:bytesNeeded]

	n, err := io.ReadFull(s.dec, s.buf)
	switch {
	case err == io.ErrUnexpectedEOF:
		err = nil
	case err != nil && err != io.EOF:
		return 0, fmt.Errorf("mp3: %w", err)
	}

	samples := (n / bytesPerFrame) * channels
	for i := range samples {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(s.buf[2*i:]))) / 32768.0
	}
	if samples == 0 {
		return 0, io.EOF
	}
	return samples, err
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	return newSource(dec), nil
}

func newSource(dec mp3Reader) *source {
	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		buf:        make([]byte, 8192),
	}
}
