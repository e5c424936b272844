// SPDX-License-Identifier: EPL-2.0

// Package player renders a recorded WAV file to a device.PlaybackSink.
//
// A Player plays one file once: Open it, Start at a position, then Pause,
// Resume or Stop it. The sink's blocking Write paces delivery, so progress
// reports follow the device clock.
package player

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/voxmix/audio"
	"github.com/ik5/voxmix/device"
	"github.com/ik5/voxmix/formats/wav"
)

// DefaultBufferFrames is the block size handed to the sink per write.
const DefaultBufferFrames = 1024

// Callbacks receives playback events on the playback goroutine. None of
// them may call Stop synchronously.
type Callbacks struct {
	// Progress is called after every rendered block.
	Progress func(current, total time.Duration)
	// Finished is called once the end of the file has been rendered.
	Finished func()
	// Fail is called when the sink or the file fails mid-playback.
	Fail func(error)
}

type options struct {
	log          *zap.Logger
	bufferFrames int
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithBufferFrames sets the number of frames per sink write.
func WithBufferFrames(frames int) Option {
	return func(o *options) {
		if frames > 0 {
			o.bufferFrames = frames
		}
	}
}

// Player plays a single WAV file.
type Player struct {
	path   string
	sink   device.PlaybackSink
	reader *wav.PCMReader
	info   wav.Info
	opts   options

	mu      sync.Mutex
	cond    *sync.Cond
	started bool
	paused  bool
	stopped bool

	pos      atomic.Int64
	done     chan struct{}
	group    errgroup.Group
	stopOnce sync.Once
	stopErr  error
}

// Open prepares path for playback on sink. The sink is opened by Start.
func Open(path string, sink device.PlaybackSink, opts ...Option) (*Player, error) {
	o := options{log: zap.NewNop(), bufferFrames: DefaultBufferFrames}
	for _, opt := range opts {
		opt(&o)
	}

	r, err := wav.OpenPCM(path)
	if err != nil {
		return nil, err
	}

	p := &Player{
		path:   path,
		sink:   sink,
		reader: r,
		info:   r.Info(),
		opts:   o,
		done:   make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	return p, nil
}

func (p *Player) Format() audio.Format { return p.info.Format }

// Duration is the length of the file.
func (p *Player) Duration() time.Duration { return p.info.Duration() }

// Position is the time of the next frame to be rendered.
func (p *Player) Position() time.Duration {
	return p.info.Format.DurationOf(p.pos.Load())
}

// Done is closed when playback has ended, for any reason.
func (p *Player) Done() <-chan struct{} { return p.done }

// Start begins playback at from, rounded down to a whole frame. It fails
// with wav.ErrUnreachable when from is negative or past the end.
func (p *Player) Start(from time.Duration, cb Callbacks) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.stopped:
		return ErrStopped
	case p.started:
		return ErrStarted
	}

	frame, err := p.info.FrameAt(from)
	if err != nil {
		return err
	}
	if err := p.reader.Seek(frame); err != nil {
		return err
	}
	if err := p.sink.Open(p.info.Format); err != nil {
		return fmt.Errorf("%w: opening: %w", ErrOutput, err)
	}

	p.pos.Store(frame)
	p.started = true
	p.opts.log.Debug("playback started",
		zap.String("path", p.path),
		zap.Duration("from", p.info.Format.DurationOf(frame)),
		zap.Duration("total", p.info.Duration()))

	p.group.Go(func() error { return p.run(cb) })
	return nil
}

// wait blocks while paused and reports whether playback should go on.
func (p *Player) wait() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.paused && !p.stopped {
		p.cond.Wait()
	}
	return !p.stopped
}

func (p *Player) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

func (p *Player) run(cb Callbacks) error {
	channels := p.info.Format.Channels
	total := p.info.Duration()

	var (
		finished bool
		failure  error
	)
	for p.wait() {
		block := make([]int16, p.opts.bufferFrames*channels)
		n, err := p.reader.Read(block)
		if n > 0 {
			if werr := p.sink.Write(block[:n*channels]); werr != nil {
				if !p.isStopped() {
					failure = fmt.Errorf("%w: writing: %w", ErrOutput, werr)
				}
				break
			}
			if p.isStopped() {
				break
			}
			p.pos.Add(int64(n))
			if cb.Progress != nil {
				cb.Progress(p.Position(), total)
			}
		}
		if errors.Is(err, io.EOF) {
			finished = true
			break
		}
		if err != nil {
			failure = err
			break
		}
	}

	close(p.done)
	switch {
	case p.isStopped():
	case failure != nil:
		p.opts.log.Warn("playback failed", zap.String("path", p.path), zap.Error(failure))
		if cb.Fail != nil {
			cb.Fail(failure)
		}
	case finished:
		p.opts.log.Debug("playback finished", zap.String("path", p.path))
		if cb.Finished != nil {
			cb.Finished()
		}
	}
	return nil
}

// Pause holds delivery after the block in flight. The position is kept.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.stopped:
		return ErrStopped
	case !p.started:
		return ErrNotStarted
	}
	p.paused = true
	return nil
}

func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.stopped:
		return ErrStopped
	case !p.started:
		return ErrNotStarted
	}
	p.paused = false
	p.cond.Broadcast()
	return nil
}

func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Stop halts playback and releases the file and the sink. It is safe to
// call more than once and before Start.
func (p *Player) Stop() error {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		started := p.started
		p.cond.Broadcast()
		p.mu.Unlock()

		var errs []error
		if started {
			// unblocks a Write in flight
			errs = append(errs, p.sink.Close())
			errs = append(errs, p.group.Wait())
		} else {
			close(p.done)
		}
		errs = append(errs, p.reader.Close())
		p.stopErr = errors.Join(errs...)
	})
	return p.stopErr
}
