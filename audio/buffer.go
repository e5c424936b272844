// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"time"
)

// PcmBuffer is a timestamped block of interleaved 16-bit samples.
// Timestamp is the position of the first frame relative to the start of
// the recorded file. A buffer belongs to its producer until it is handed to
// the next stage and is never modified afterwards.
type PcmBuffer struct {
	Samples   []int16
	Frames    int
	Timestamp time.Duration
}

// NewPcmBuffer wraps samples, dropping a trailing partial frame if any.
func NewPcmBuffer(samples []int16, channels int, ts time.Duration) PcmBuffer {
	if channels < 1 {
		channels = 1
	}
	frames := len(samples) / channels
	return PcmBuffer{
		Samples:   samples[:frames*channels],
		Frames:    frames,
		Timestamp: ts,
	}
}

// Check verifies that the buffer holds exactly Frames whole frames.
func (b PcmBuffer) Check(channels int) error {
	if channels < 1 || len(b.Samples) != b.Frames*channels {
		return fmt.Errorf("%w: %d samples for %d frames of %d channels",
			ErrPartialFrame, len(b.Samples), b.Frames, channels)
	}
	return nil
}

// Duration of the buffer in the given format.
func (b PcmBuffer) Duration(f Format) time.Duration {
	return f.DurationOf(int64(b.Frames))
}

// End is the timestamp just past the last frame.
func (b PcmBuffer) End(f Format) time.Duration {
	return b.Timestamp + b.Duration(f)
}

// Head returns a copy of the first frames of b. frames is clamped to b.Frames.
func (b PcmBuffer) Head(frames, channels int) PcmBuffer {
	if frames >= b.Frames {
		frames = b.Frames
	}
	if frames < 0 {
		frames = 0
	}
	out := make([]int16, frames*channels)
	copy(out, b.Samples)
	return PcmBuffer{Samples: out, Frames: frames, Timestamp: b.Timestamp}
}

// Clone returns a deep copy of b.
func (b PcmBuffer) Clone() PcmBuffer {
	out := make([]int16, len(b.Samples))
	copy(out, b.Samples)
	return PcmBuffer{Samples: out, Frames: b.Frames, Timestamp: b.Timestamp}
}
