// SPDX-License-Identifier: EPL-2.0

package device

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/ik5/voxmix/audio"
)

// Playback renders to the default output device. Written blocks queue up
// to the configured depth; the device callback drains them and plays
// silence on underrun.
type Playback struct {
	opts options

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	dev    *malgo.Device
	queue  chan []int16
	done   chan struct{}
	closed bool
}

var _ PlaybackSink = (*Playback)(nil)

func NewPlayback(opts ...Option) *Playback {
	return &Playback{opts: newOptions(opts)}
}

func (p *Playback) Open(format audio.Format) error {
	if err := format.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dev != nil {
		return ErrStarted
	}

	ctx, err := initContext(p.opts.log)
	if err != nil {
		return err
	}

	queue := make(chan []int16, p.opts.queueBlocks)
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = uint32(format.Channels)
	cfg.SampleRate = uint32(format.SampleRate)
	cfg.PeriodSizeInFrames = uint32(p.opts.periodFrames)

	var cur []int16
	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			for len(out) >= 2 {
				if len(cur) == 0 {
					select {
					case cur = <-queue:
						continue
					default:
						clear(out)
						return
					}
				}
				n := min(len(cur), len(out)/2)
				for i := range n {
					binary.LittleEndian.PutUint16(out[2*i:], uint16(cur[i]))
				}
				cur = cur[n:]
				out = out[2*n:]
			}
		},
	}

	dev, err := malgo.InitDevice(ctx.Context, cfg, callbacks)
	if err != nil {
		freeContext(ctx, p.opts.log)
		return fmt.Errorf("%w: playback: %w", ErrNoDevice, err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		freeContext(ctx, p.opts.log)
		return fmt.Errorf("%w: starting playback: %w", ErrNoDevice, err)
	}

	p.ctx, p.dev = ctx, dev
	p.queue, p.done, p.closed = queue, make(chan struct{}), false
	p.opts.log.Debug("playback started", zap.Stringer("format", format))
	return nil
}

// Write queues a copy of samples, blocking while the queue is full.
func (p *Playback) Write(samples []int16) error {
	p.mu.Lock()
	queue, done := p.queue, p.done
	p.mu.Unlock()
	if queue == nil {
		return ErrClosed
	}

	block := append([]int16(nil), samples...)
	select {
	case queue <- block:
		return nil
	case <-done:
		return ErrClosed
	}
}

func (p *Playback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dev == nil || p.closed {
		return nil
	}

	p.closed = true
	close(p.done)
	err := p.dev.Stop()
	p.dev.Uninit()
	freeContext(p.ctx, p.opts.log)
	p.ctx, p.dev, p.queue = nil, nil, nil

	if err != nil {
		return fmt.Errorf("stopping playback: %w", err)
	}
	return nil
}
