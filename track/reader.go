// SPDX-License-Identifier: EPL-2.0

package track

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ik5/voxmix/audio"
	"github.com/ik5/voxmix/utils"
)

// maxEmptyReads bounds how often a decoder may return nothing without
// reporting an error before the track is treated as finished.
const maxEmptyReads = 8

// Reader decodes a background track into int16 frames of a target format.
// It is a finite sequence: once the track or its PlayLength is exhausted
// Next returns io.EOF.
type Reader struct {
	file      io.Closer
	src       audio.Source
	channels  int
	remaining int64 // frames left under PlayLength, -1 for no limit
	done      bool
	fbuf      []float32
}

// Open decodes spec.Path with the decoder registered for its extension and
// positions the stream startFrame frames (in format) after spec.PlayOffset.
func Open(reg *audio.Registry, spec Spec, format audio.Format, startFrame int64) (*Reader, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}
	dec, ok := reg.ForPath(spec.Path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, spec.Path)
	}

	f, err := os.Open(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("opening background track: %w", err)
	}
	src, err := dec.Decode(f)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("decoding %s: %w", spec.Path, err), f.Close())
	}

	r, err := newReader(src, spec, format, startFrame)
	if err != nil {
		return nil, errors.Join(err, src.Close(), f.Close())
	}
	r.file = f
	return r, nil
}

func newReader(src audio.Source, spec Spec, format audio.Format, startFrame int64) (*Reader, error) {
	r := &Reader{channels: format.Channels, remaining: -1}

	startFrame = max(startFrame, 0)
	if spec.PlayLength > 0 {
		r.remaining = max(format.FramesIn(spec.PlayLength)-startFrame, 0)
	}

	// seek in the decoder's own rate, before any conversion
	out := format.FramesIn(spec.PlayOffset) + startFrame
	native := out * int64(src.SampleRate()) / int64(format.SampleRate)
	if err := audio.Skip(src, native); err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, err
		}
		r.done = true
	}

	mapped, err := audio.ToChannels(src, format.Channels)
	if err != nil {
		return nil, err
	}
	if mapped.SampleRate() != format.SampleRate {
		mapped = audio.NewResampler(mapped, format.SampleRate)
	}
	r.src = mapped
	return r, nil
}

// Next returns up to frames interleaved frames. A short result is not an
// end of stream; io.EOF is.
func (r *Reader) Next(frames int) ([]int16, error) {
	if r.done || frames <= 0 {
		if r.done {
			return nil, io.EOF
		}
		return nil, nil
	}
	if r.remaining >= 0 {
		frames = int(min(int64(frames), r.remaining))
		if frames == 0 {
			r.done = true
			return nil, io.EOF
		}
	}

	need := frames * r.channels
	if cap(r.fbuf) < need {
		r.fbuf = make([]float32, need)
	}
	r.fbuf = r.fbuf[:need]

	got, empty := 0, 0
	for got < need && !r.done {
		n, err := r.src.ReadSamples(r.fbuf[got:])
		got += n
		switch {
		case errors.Is(err, io.EOF):
			r.done = true
		case err != nil:
			r.done = true
			return nil, fmt.Errorf("reading background track: %w", err)
		case n == 0:
			empty++
			if empty >= maxEmptyReads {
				r.done = true
			}
		}
	}

	got -= got % r.channels
	if got == 0 {
		return nil, io.EOF
	}

	out := make([]int16, got)
	for i, v := range r.fbuf[:got] {
		out[i] = utils.Float32ToInt16(v)
	}
	if r.remaining >= 0 {
		r.remaining -= int64(got / r.channels)
	}
	return out, nil
}

func (r *Reader) Close() error {
	var errs []error
	if r.src != nil {
		errs = append(errs, r.src.Close())
	}
	if r.file != nil {
		errs = append(errs, r.file.Close())
	}
	return errors.Join(errs...)
}
