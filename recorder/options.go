// SPDX-License-Identifier: EPL-2.0

package recorder

import (
	"time"

	"go.uber.org/zap"

	"github.com/ik5/voxmix/audio"
	"github.com/ik5/voxmix/device"
	"github.com/ik5/voxmix/player"
	"github.com/ik5/voxmix/track"
)

const (
	// DefaultBGMLatency is the delay applied to the background track
	// relative to the capture clock.
	DefaultBGMLatency = 100 * time.Millisecond

	// DefaultLookahead is the number of background frames decoded ahead of
	// the capture.
	DefaultLookahead = 16384

	// primeTimeout bounds the wait for the background feed before capture
	// starts.
	primeTimeout = 2 * time.Second
)

type options struct {
	channels     int
	capture      device.CaptureSource
	playback     device.PlaybackSink
	log          *zap.Logger
	latency      time.Duration
	lookahead    int
	bufferFrames int
	registry     *audio.Registry
	headphones   func() bool
}

func defaultOptions() options {
	return options{
		channels:     1,
		log:          zap.NewNop(),
		latency:      DefaultBGMLatency,
		lookahead:    DefaultLookahead,
		bufferFrames: player.DefaultBufferFrames,
		headphones:   device.DetectingHeadphones,
	}
}

// Option configures a Recorder.
type Option func(*options)

// WithCapture replaces the default input device.
func WithCapture(c device.CaptureSource) Option {
	return func(o *options) { o.capture = c }
}

// WithPlayback replaces the default output device.
func WithPlayback(s device.PlaybackSink) Option {
	return func(o *options) { o.playback = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithBGMLatency sets the background track delay. Negative values are
// treated as zero.
func WithBGMLatency(d time.Duration) Option {
	return func(o *options) { o.latency = max(d, 0) }
}

// WithLookahead sets how many background frames are decoded ahead.
func WithLookahead(frames int) Option {
	return func(o *options) {
		if frames > 0 {
			o.lookahead = frames
		}
	}
}

// WithBufferFrames sets the playback block size.
func WithBufferFrames(frames int) Option {
	return func(o *options) {
		if frames > 0 {
			o.bufferFrames = frames
		}
	}
}

// WithRegistry sets the decoders available for background tracks.
func WithRegistry(r *audio.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithHeadphoneProbe replaces the check sampled at the start of every
// recording.
func WithHeadphoneProbe(probe func() bool) Option {
	return func(o *options) {
		if probe != nil {
			o.headphones = probe
		}
	}
}

// WithChannels sets the recorded channel count. Recordings are mono unless
// set.
func WithChannels(n int) Option {
	return func(o *options) { o.channels = n }
}

func (o *options) fill() {
	if o.capture == nil {
		o.capture = device.NewCapture(device.WithLogger(o.log))
	}
	if o.playback == nil {
		o.playback = device.NewPlayback(device.WithLogger(o.log))
	}
	if o.registry == nil {
		o.registry = track.DefaultRegistry()
	}
}
