// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"math"

	"github.com/ik5/voxmix/utils"
)

// DefaultBackgroundVolume is the gain applied to a background track when the
// caller does not set one.
const DefaultBackgroundVolume float32 = 0.4

// Mixer overlays a background signal onto captured audio.
//
// For every sample: out = clamp(capture + round(background * Volume)).
// The sum saturates at the int16 limits instead of wrapping.
type Mixer struct {
	Volume float32
}

// NewMixer returns a Mixer with volume clamped to [0,1].
func NewMixer(volume float32) Mixer {
	switch {
	case volume < 0, math.IsNaN(float64(volume)):
		volume = 0
	case volume > 1:
		volume = 1
	}
	return Mixer{Volume: volume}
}

// Mix returns a new buffer with the same timestamp and frame count as
// capture. bg may be nil or shorter than capture; missing background
// samples are silence.
func (m Mixer) Mix(capture PcmBuffer, bg []int16) PcmBuffer {
	out := make([]int16, len(capture.Samples))

	n := min(len(bg), len(out))
	if m.Volume == 0 {
		n = 0
	}

	gain := float64(m.Volume)
	for i := range n {
		scaled := int32(math.Round(float64(bg[i]) * gain))
		out[i] = utils.SaturateInt16(int32(capture.Samples[i]) + scaled)
	}
	copy(out[n:], capture.Samples[n:])

	return PcmBuffer{
		Samples:   out,
		Frames:    capture.Frames,
		Timestamp: capture.Timestamp,
	}
}
