// SPDX-License-Identifier: EPL-2.0

package voxmix

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/voxmix/audio"
	"github.com/ik5/voxmix/track"
	"github.com/ik5/voxmix/utils"
)

const renderBlock = 4096

// Convert drains src and returns its samples as interleaved int16 in
// format. Channels are folded or duplicated first, then the result is
// resampled. src is not closed.
func Convert(src audio.Source, format audio.Format) ([]int16, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	mapped, err := audio.ToChannels(src, format.Channels)
	if err != nil {
		return nil, err
	}
	if mapped.SampleRate() != format.SampleRate {
		mapped = audio.NewResampler(mapped, format.SampleRate)
	}

	// about two seconds before the first grow
	out := make([]int16, 0, format.SampleRate*format.Channels*2)
	buf := make([]float32, renderBlock*format.Channels)

	for {
		n, err := mapped.ReadSamples(buf)
		n -= n % format.Channels
		for _, v := range buf[:n] {
			out = append(out, utils.Float32ToInt16(v))
		}

		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("converting: %w", err)
		}
	}
}

// Render decodes the part of a background track selected by spec into
// format, the same samples a recording would mix in before applying
// spec.Volume.
func Render(reg *audio.Registry, spec track.Spec, format audio.Format) ([]int16, error) {
	r, err := track.Open(reg, spec, format, 0)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []int16
	for {
		block, err := r.Next(renderBlock)
		out = append(out, block...)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
