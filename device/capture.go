// SPDX-License-Identifier: EPL-2.0

package device

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/ik5/voxmix/audio"
)

// Capture records from the default input device.
type Capture struct {
	opts options

	mu       sync.Mutex
	ctx      *malgo.AllocatedContext
	dev      *malgo.Device
	stopping atomic.Bool
}

var _ CaptureSource = (*Capture)(nil)

func NewCapture(opts ...Option) *Capture {
	return &Capture{opts: newOptions(opts)}
}

func (c *Capture) Start(format audio.Format, cb CaptureCallbacks) error {
	if err := format.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev != nil {
		return ErrStarted
	}

	ctx, err := initContext(c.opts.log)
	if err != nil {
		return err
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = uint32(format.Channels)
	cfg.SampleRate = uint32(format.SampleRate)
	cfg.PeriodSizeInFrames = uint32(c.opts.periodFrames)

	var (
		pos    int64
		failed atomic.Bool
	)
	c.stopping.Store(false)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, in []byte, frameCount uint32) {
			if failed.Load() || cb.Data == nil {
				return
			}
			samples := make([]int16, len(in)/2)
			for i := range samples {
				samples[i] = int16(binary.LittleEndian.Uint16(in[2*i:]))
			}
			buf := audio.NewPcmBuffer(samples, format.Channels, format.DurationOf(pos))
			pos += int64(buf.Frames)
			cb.Data(buf)
		},
		Stop: func() {
			// miniaudio stops the device on its own when the input goes away
			if c.stopping.Load() || !failed.CompareAndSwap(false, true) {
				return
			}
			c.opts.log.Warn("capture device stopped unexpectedly")
			if cb.Fail != nil {
				cb.Fail(ErrDeviceLost)
			}
		},
	}

	dev, err := malgo.InitDevice(ctx.Context, cfg, callbacks)
	if err != nil {
		freeContext(ctx, c.opts.log)
		return fmt.Errorf("%w: capture: %w", ErrNoDevice, err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		freeContext(ctx, c.opts.log)
		return fmt.Errorf("%w: starting capture: %w", ErrNoDevice, err)
	}

	c.ctx, c.dev = ctx, dev
	c.opts.log.Debug("capture started",
		zap.Stringer("format", format),
		zap.Int("period", c.opts.periodFrames))
	return nil
}

// Stop halts the device and releases it. Stopping a capture that is not
// running does nothing.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev == nil {
		return nil
	}

	c.stopping.Store(true)
	err := c.dev.Stop()
	c.dev.Uninit()
	freeContext(c.ctx, c.opts.log)
	c.ctx, c.dev = nil, nil

	if err != nil {
		return fmt.Errorf("stopping capture: %w", err)
	}
	return nil
}

func initContext(log *zap.Logger) (*malgo.AllocatedContext, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debug("miniaudio", zap.String("message", message))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDevice, err)
	}
	return ctx, nil
}

func freeContext(ctx *malgo.AllocatedContext, log *zap.Logger) {
	if ctx == nil {
		return
	}
	if err := ctx.Uninit(); err != nil {
		log.Debug("releasing audio context", zap.Error(err))
	}
	ctx.Free()
}
