// SPDX-License-Identifier: EPL-2.0

// Package device connects the recorder to audio hardware.
//
// CaptureSource pushes PcmBuffers from an input device and PlaybackSink
// accepts blocks for an output device. The malgo implementations back both
// with github.com/gen2brain/malgo (miniaudio); TickerSink is an output that
// only keeps time, for hosts without a sound card.
package device

import (
	"go.uber.org/zap"

	"github.com/ik5/voxmix/audio"
)

// CaptureCallbacks receives the output of a CaptureSource. Both functions
// are called from the device thread and must not block.
type CaptureCallbacks struct {
	// Data receives each captured buffer. Timestamps start at zero when
	// the capture starts.
	Data func(audio.PcmBuffer)
	// Fail reports an asynchronous device failure such as ErrDeviceLost.
	// No Data calls follow it.
	Fail func(error)
}

// CaptureSource is a live input device.
type CaptureSource interface {
	Start(format audio.Format, cb CaptureCallbacks) error
	Stop() error
}

// PlaybackSink is an output device. Write blocks until the device has room
// for the samples, which paces the caller in real time.
type PlaybackSink interface {
	Open(format audio.Format) error
	Write(samples []int16) error
	Close() error
}

// DefaultPeriodFrames is the device period requested when none is set.
const DefaultPeriodFrames = 1024

type options struct {
	log          *zap.Logger
	periodFrames int
	queueBlocks  int
}

// Option configures a device.
type Option func(*options)

// WithLogger sets the logger for device and backend messages.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithPeriodFrames sets the device period, i.e. the capture buffer size.
func WithPeriodFrames(frames int) Option {
	return func(o *options) {
		if frames > 0 {
			o.periodFrames = frames
		}
	}
}

// WithQueueBlocks sets how many written blocks a playback device buffers.
func WithQueueBlocks(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueBlocks = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		log:          zap.NewNop(),
		periodFrames: DefaultPeriodFrames,
		queueBlocks:  4,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
