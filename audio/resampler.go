// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/voxmix/utils"
)

// Resampler streams from src to target sample rate using cubic interpolation.
// Works on interleaved samples; preserves channel count.
// Includes basic anti-aliasing filtering when downsampling.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64 // source frames per output frame
	channels int

	// Window of 4 source frames around the read position:
	// frames[0] = i-1, frames[1] = i, frames[2] = i+1, frames[3] = i+2
	frames [4][]float32
	base   int64   // source index held in frames[1]
	pos    float64 // fractional position between frames[1] and frames[2]

	started bool
	read    int64 // real frames pulled from src
	eof     bool
	srcBuf  []float32

	// one-pole low-pass state, used when downsampling
	filterState []float32
	useFilter   bool
	filterAlpha float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	ratio := float64(src.SampleRate()) / float64(dstRate)

	r := &Resampler{
		src:         src,
		dstRate:     dstRate,
		ratio:       ratio,
		channels:    channels,
		srcBuf:      make([]float32, channels),
		useFilter:   ratio > 1.0,
		filterAlpha: 0.5,
		filterState: make([]float32, channels),
	}
	for i := range r.frames {
		r.frames[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("resampler: %w", err)
	}
	return nil
}

// pull reads the next source frame into dst. Past the end of the source the
// previous frame is repeated, so the window stays filled.
func (r *Resampler) pull(dst, prev []float32) error {
	if !r.eof {
		n, err := r.src.ReadSamples(r.srcBuf)
		if n >= r.channels {
			copy(dst, r.srcBuf)
			r.read++
			if r.useFilter {
				if r.read == 1 {
					copy(r.filterState, dst)
				}
				for c := range r.channels {
					dst[c] = r.filterAlpha*dst[c] + (1-r.filterAlpha)*r.filterState[c]
					r.filterState[c] = dst[c]
				}
			}
		}
		switch {
		case errors.Is(err, io.EOF):
			r.eof = true
		case err != nil:
			return fmt.Errorf("resampler: %w", err)
		}
		if n >= r.channels {
			return nil
		}
		if !r.eof {
			// a source may legally return 0, nil; treat it as a stall
			return io.ErrNoProgress
		}
	}
	copy(dst, prev)
	return nil
}

func (r *Resampler) start() error {
	if err := r.pull(r.frames[1], r.frames[1]); err != nil {
		return err
	}
	if r.read == 0 {
		return io.EOF
	}
	copy(r.frames[0], r.frames[1])
	if err := r.pull(r.frames[2], r.frames[1]); err != nil {
		return err
	}
	if err := r.pull(r.frames[3], r.frames[2]); err != nil {
		return err
	}
	r.started = true
	return nil
}

func (r *Resampler) advance() error {
	r.frames[0], r.frames[1], r.frames[2], r.frames[3] = r.frames[1], r.frames[2], r.frames[3], r.frames[0]
	r.base++
	return r.pull(r.frames[3], r.frames[2])
}

// ReadSamples produces dst samples at the destination rate.
// dst length should be a multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.started {
		if err := r.start(); err != nil {
			return 0, err
		}
	}

	written := 0
	framesNeeded := len(dst) / r.channels

	for written < framesNeeded {
		if r.eof && r.base >= r.read {
			if written == 0 {
				return 0, io.EOF
			}
			return written * r.channels, io.EOF
		}

		alpha := float32(r.pos)
		out := dst[written*r.channels : (written+1)*r.channels]
		for c := range r.channels {
			out[c] = utils.CubicInterpolate(r.frames[0][c], r.frames[1][c], r.frames[2][c], r.frames[3][c], alpha)
		}
		written++

		r.pos += r.ratio
		for r.pos >= 1.0 {
			r.pos -= 1.0
			if err := r.advance(); err != nil {
				return written * r.channels, err
			}
		}
	}

	return written * r.channels, nil
}
