// SPDX-License-Identifier: EPL-2.0

package track

import (
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// defaultChunkFrames is how many frames the worker decodes per step.
const defaultChunkFrames = 1024

// FrameSource is a finite sequence of interleaved int16 frames, such as a
// Reader.
type FrameSource interface {
	Next(frames int) ([]int16, error)
	Close() error
}

// FeedConfig configures a Feed.
type FeedConfig struct {
	Channels int
	// Prefix is a run of silent frames served before the source, used to
	// delay the track by the output latency.
	Prefix int64
	// Lookahead is the number of decoded frames kept ready.
	Lookahead int
	Logger    *zap.Logger
}

// Feed decodes a FrameSource on a worker goroutine into a bounded buffer.
// Take never blocks on decoding: when the buffer runs dry it returns silence
// and drops the same number of frames once decoding catches up, so the
// track stays aligned with the capture clock.
type Feed struct {
	src      FrameSource
	channels int
	log      *zap.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	buf       []int16
	lookahead int
	prefix    int64
	debt      int64
	eof       bool
	closed    bool
	err       error

	ready     chan struct{}
	readyOnce sync.Once
	group     errgroup.Group
	closeOnce sync.Once
	closeErr  error
}

// NewFeed starts decoding src.
func NewFeed(src FrameSource, cfg FeedConfig) *Feed {
	if cfg.Channels < 1 {
		cfg.Channels = 1
	}
	if cfg.Lookahead < 1 {
		cfg.Lookahead = defaultChunkFrames
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	f := &Feed{
		src:       src,
		channels:  cfg.Channels,
		log:       cfg.Logger,
		lookahead: cfg.Lookahead,
		prefix:    max(cfg.Prefix, 0),
		ready:     make(chan struct{}),
	}
	f.cond = sync.NewCond(&f.mu)
	f.group.Go(f.run)
	return f
}

// Ready is closed once the lookahead is full or the source has ended.
func (f *Feed) Ready() <-chan struct{} { return f.ready }

func (f *Feed) markReady() {
	f.readyOnce.Do(func() { close(f.ready) })
}

func (f *Feed) buffered() int { return len(f.buf) / f.channels }

func (f *Feed) run() error {
	for {
		f.mu.Lock()
		for !f.closed && f.buffered() >= f.lookahead {
			f.cond.Wait()
		}
		if f.closed {
			f.mu.Unlock()
			return nil
		}
		want := min(defaultChunkFrames, f.lookahead-f.buffered())
		f.mu.Unlock()

		samples, err := f.src.Next(want)

		f.mu.Lock()
		f.buf = append(f.buf, samples[:len(samples)-len(samples)%f.channels]...)
		f.payDebt()
		if err != nil {
			f.eof = true
			if !errors.Is(err, io.EOF) {
				f.err = err
				f.log.Warn("background track decoding failed", zap.Error(err))
			}
			f.mu.Unlock()
			f.markReady()
			return nil
		}
		full := f.buffered() >= f.lookahead
		f.mu.Unlock()
		if full {
			f.markReady()
		}
	}
}

// payDebt drops frames owed from earlier underruns. Callers hold mu.
func (f *Feed) payDebt() {
	if f.debt == 0 {
		return
	}
	drop := min(f.debt, int64(f.buffered()))
	f.buf = f.buf[int(drop)*f.channels:]
	f.debt -= drop
}

// Take returns the next frames of background audio. The result may be
// shorter than requested, or nil, once the source is exhausted; missing
// samples are silence.
func (f *Feed) Take(frames int) []int16 {
	if frames <= 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.payDebt()
	if f.eof && f.prefix == 0 && len(f.buf) == 0 {
		return nil
	}

	out := make([]int16, frames*f.channels)
	pos := 0

	if f.prefix > 0 {
		silent := int(min(f.prefix, int64(frames)))
		f.prefix -= int64(silent)
		pos = silent
	}

	if pos < frames {
		n := min(frames-pos, f.buffered())
		copy(out[pos*f.channels:], f.buf[:n*f.channels])
		f.buf = f.buf[n*f.channels:]
		pos += n

		if missing := frames - pos; missing > 0 && !f.eof {
			f.debt += int64(missing)
			f.log.Debug("background track underrun", zap.Int("frames", missing))
		}
	}

	if len(f.buf) == 0 {
		f.buf = f.buf[:0:0]
	}
	f.cond.Broadcast()
	return out
}

// Err is the decoding error that ended the feed early, if any.
func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Close stops the worker and closes the source.
func (f *Feed) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.cond.Broadcast()
		f.mu.Unlock()

		err := f.group.Wait()
		f.markReady()
		f.closeErr = errors.Join(err, f.src.Close())
	})
	return f.closeErr
}
