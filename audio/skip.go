// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
)

// Skip advances src by frames. Sources implementing FrameSeeker jump
// directly; others are read and discarded. It returns io.EOF when the source
// ends before frames were skipped.
func Skip(src Source, frames int64) error {
	if frames <= 0 {
		return nil
	}

	if l, ok := src.(Lengther); ok {
		if total := l.Frames(); total > 0 && frames > total {
			return io.EOF
		}
	}
	if s, ok := src.(FrameSeeker); ok {
		return s.SeekFrame(frames)
	}

	channels := src.Channels()
	buf := make([]float32, 4096-4096%channels)
	remaining := frames * int64(channels)
	for remaining > 0 {
		want := int64(len(buf))
		if remaining < want {
			want = remaining
		}
		n, err := src.ReadSamples(buf[:want])
		remaining -= int64(n)
		if errors.Is(err, io.EOF) {
			if remaining > 0 {
				return io.EOF
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("skipping %d frames: %w", frames, err)
		}
		if n == 0 {
			return fmt.Errorf("skipping %d frames: %w", frames, io.ErrNoProgress)
		}
	}
	return nil
}
