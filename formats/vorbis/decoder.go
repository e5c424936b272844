// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis background tracks with
// github.com/jfreymuth/oggvorbis.
package vorbis

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/ik5/voxmix/audio"
)

// oggReader is an interface for oggvorbis.Reader to allow testing
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
	SetPosition(pos int64) error
	Length() int64
}

type source struct {
	dec        oggReader
	sampleRate int
	channels   int
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return 4096 }

// Frames is the stream length per channel; zero when the input cannot seek.
func (s *source) Frames() int64 { return s.dec.Length() }

func (s *source) SeekFrame(frame int64) error {
	if err := s.dec.SetPosition(frame); err != nil {
		return fmt.Errorf("vorbis: seek to frame %d: %w", frame, err)
	}
	return nil
}

// ReadSamples reads whole frames into dst. oggvorbis.Reader.Read takes an
// interleaved buffer and returns the number of samples written.
func (s *source) ReadSamples(dst []float32) (int, error) {
	dst = dst[:len(dst)-len(dst)%s.channels]
	if len(dst) == 0 {
		return 0, nil
	}

	n, err := s.dec.Read(dst)
	if n == 0 {
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("vorbis: %w", err)
		}
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, nil
	}
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("vorbis: %w", err)
	}
	return n, err
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("vorbis: %w", err)
	}
	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		channels:   dec.Channels(),
	}, nil
}
