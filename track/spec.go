// SPDX-License-Identifier: EPL-2.0

package track

import (
	"fmt"
	"math"
	"time"

	"github.com/ik5/voxmix/audio"
)

// Spec selects a background track and how it is laid under a recording.
type Spec struct {
	Path string
	// Volume is the gain in [0,1] applied to the track before mixing.
	Volume float32
	// PlayOffset skips this much of the track before it starts.
	PlayOffset time.Duration
	// PlayLength limits how much of the track is used; zero means until
	// the track ends.
	PlayLength time.Duration
}

// NewSpec returns a Spec for path with the default volume.
func NewSpec(path string) Spec {
	return Spec{Path: path, Volume: audio.DefaultBackgroundVolume}
}

func (s Spec) Validate() error {
	switch {
	case s.Path == "":
		return fmt.Errorf("%w: empty path", ErrInvalidSpec)
	case math.IsNaN(float64(s.Volume)) || s.Volume < 0 || s.Volume > 1:
		return fmt.Errorf("%w: volume %v outside [0,1]", ErrInvalidSpec, s.Volume)
	case s.PlayOffset < 0:
		return fmt.Errorf("%w: negative play offset %v", ErrInvalidSpec, s.PlayOffset)
	case s.PlayLength < 0:
		return fmt.Errorf("%w: negative play length %v", ErrInvalidSpec, s.PlayLength)
	}
	return nil
}
