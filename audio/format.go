// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"time"
)

const (
	// BitsPerSample16 is the only PCM depth the recorder persists.
	BitsPerSample16 = 16

	// NoiseReductionRate is the capture rate at which the platform voice
	// processing (noise reduction) is enabled.
	NoiseReductionRate = 16000

	// DefaultSampleRate matches the recorder's historical default format.
	DefaultSampleRate = 44100
)

// Format describes interleaved PCM audio. A Format is a value and is fixed
// for the lifetime of one recording session.
type Format struct {
	SampleRate    int
	BitsPerSample int
	Channels      int
}

// NewFormat returns a validated 16-bit format.
func NewFormat(sampleRate, channels int) (Format, error) {
	f := Format{
		SampleRate:    sampleRate,
		BitsPerSample: BitsPerSample16,
		Channels:      channels,
	}
	if err := f.Validate(); err != nil {
		return Format{}, err
	}
	return f, nil
}

func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d must be positive", ErrInvalidFormat, f.SampleRate)
	}
	if f.BitsPerSample != BitsPerSample16 {
		return fmt.Errorf("%w: %d bits per sample, only 16 is supported", ErrInvalidFormat, f.BitsPerSample)
	}
	if f.Channels < 1 {
		return fmt.Errorf("%w: channel count %d must be at least 1", ErrInvalidFormat, f.Channels)
	}
	return nil
}

// NoiseReduction reports whether this format enables noise reduction.
func (f Format) NoiseReduction() bool { return f.SampleRate == NoiseReductionRate }

// BlockAlign is the size of one frame in bytes.
func (f Format) BlockAlign() int { return f.Channels * f.BitsPerSample / 8 }

// ByteRate is the number of bytes per second of audio.
func (f Format) ByteRate() int { return f.SampleRate * f.BlockAlign() }

// FramesIn converts d to a frame count, rounding down to a whole frame.
// Negative durations yield zero.
func (f Format) FramesIn(d time.Duration) int64 {
	if d <= 0 || f.SampleRate <= 0 {
		return 0
	}
	return int64(d) * int64(f.SampleRate) / int64(time.Second)
}

// DurationOf converts a frame count to a duration, rounding up to the next
// nanosecond so that FramesIn(DurationOf(n)) == n at every rate.
func (f Format) DurationOf(frames int64) time.Duration {
	if f.SampleRate <= 0 || frames <= 0 {
		return 0
	}
	rate := int64(f.SampleRate)
	return time.Duration((frames*int64(time.Second) + rate - 1) / rate)
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dbit/%dch", f.SampleRate, f.BitsPerSample, f.Channels)
}
