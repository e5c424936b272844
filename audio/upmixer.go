// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Upmixer copies a mono source onto every channel of a wider layout.
type Upmixer struct {
	src      Source
	channels int
	tmp      []float32
}

// NewUpmixer returns an Upmixer for a mono src. It fails for sources that
// are not mono; fold them with NewMonoMixer first.
func NewUpmixer(src Source, channels int) (*Upmixer, error) {
	if src.Channels() != 1 || channels < 1 {
		return nil, fmt.Errorf("%w: %d -> %d channels", ErrChannelMapping, src.Channels(), channels)
	}
	return &Upmixer{src: src, channels: channels}, nil
}

func (u *Upmixer) SampleRate() int { return u.src.SampleRate() }
func (u *Upmixer) Channels() int   { return u.channels }
func (u *Upmixer) BufSize() int    { return u.src.BufSize() }
func (u *Upmixer) Close() error    { return u.src.Close() }

func (u *Upmixer) ReadSamples(dst []float32) (int, error) {
	if len(dst)%u.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	frames := len(dst) / u.channels
	if frames == 0 {
		return 0, nil
	}
	if cap(u.tmp) < frames {
		u.tmp = make([]float32, frames)
	}
	u.tmp = u.tmp[:frames]

	n, err := u.src.ReadSamples(u.tmp)
	for f := range n {
		base := f * u.channels
		for c := range u.channels {
			dst[base+c] = u.tmp[f]
		}
	}
	return n * u.channels, err
}

// ToChannels adapts src to the requested channel count.
func ToChannels(src Source, channels int) (Source, error) {
	switch {
	case src.Channels() == channels:
		return src, nil
	case channels == 1:
		return NewMonoMixer(src), nil
	case src.Channels() == 1:
		return NewUpmixer(src, channels)
	default:
		return NewUpmixer(NewMonoMixer(src), channels)
	}
}
