// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"sync"

	"github.com/ik5/voxmix/audio"
	"github.com/ik5/voxmix/device"
)

// FakeCapture is a device.CaptureSource driven by the test. Emit delivers
// a buffer synchronously on the calling goroutine, like a device thread.
type FakeCapture struct {
	// StartErr, when set, is returned by Start.
	StartErr error

	mu      sync.Mutex
	cb      device.CaptureCallbacks
	format  audio.Format
	running bool
	pos     int64
	starts  int
	stops   int
}

var _ device.CaptureSource = (*FakeCapture)(nil)

func (c *FakeCapture) Start(format audio.Format, cb device.CaptureCallbacks) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.StartErr != nil {
		return c.StartErr
	}
	if c.running {
		return device.ErrStarted
	}
	c.cb, c.format, c.running, c.pos = cb, format, true, 0
	c.starts++
	return nil
}

func (c *FakeCapture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.stops++
	}
	c.running = false
	return nil
}

// Emit delivers samples as one captured buffer. It reports false when the
// capture is not running.
func (c *FakeCapture) Emit(samples []int16) bool {
	c.mu.Lock()
	if !c.running || c.cb.Data == nil {
		c.mu.Unlock()
		return false
	}
	buf := audio.NewPcmBuffer(samples, c.format.Channels, c.format.DurationOf(c.pos))
	c.pos += int64(buf.Frames)
	data := c.cb.Data
	c.mu.Unlock()

	data(buf)
	return true
}

// EmitFrames emits frames frames where each sample is gen(frame index since
// start). It reports false when the capture is not running.
func (c *FakeCapture) EmitFrames(frames int, gen func(frame int64) int16) bool {
	c.mu.Lock()
	channels, pos := c.format.Channels, c.pos
	c.mu.Unlock()
	if channels < 1 {
		return false
	}

	samples := make([]int16, frames*channels)
	for f := range frames {
		v := gen(pos + int64(f))
		for ch := range channels {
			samples[f*channels+ch] = v
		}
	}
	return c.Emit(samples)
}

// Fail reports err as an asynchronous device failure.
func (c *FakeCapture) Fail(err error) {
	c.mu.Lock()
	fail := c.cb.Fail
	running := c.running
	c.running = false
	c.mu.Unlock()
	if running && fail != nil {
		fail(err)
	}
}

func (c *FakeCapture) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *FakeCapture) Starts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

func (c *FakeCapture) Stops() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stops
}

// FakeSink is a device.PlaybackSink that keeps everything written to it.
// A gated sink blocks every Write until Release hands it a token.
type FakeSink struct {
	// OpenErr, when set, is returned by Open.
	OpenErr error

	mu      sync.Mutex
	format  audio.Format
	open    bool
	samples []int16
	writes  int
	opens   int
	gate    chan struct{}
	closed  chan struct{}
}

var _ device.PlaybackSink = (*FakeSink)(nil)

// NewGatedSink returns a FakeSink whose writes wait for Release.
func NewGatedSink() *FakeSink {
	return &FakeSink{gate: make(chan struct{}, 1024)}
}

// Release lets n more writes through a gated sink.
func (s *FakeSink) Release(n int) {
	for range n {
		s.gate <- struct{}{}
	}
}

func (s *FakeSink) Open(format audio.Format) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenErr != nil {
		return s.OpenErr
	}
	s.format, s.open = format, true
	s.closed = make(chan struct{})
	s.opens++
	return nil
}

func (s *FakeSink) Write(samples []int16) error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return device.ErrClosed
	}
	gate, closed := s.gate, s.closed
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-closed:
			return device.ErrClosed
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, samples...)
	s.writes++
	return nil
}

func (s *FakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		close(s.closed)
	}
	s.open = false
	return nil
}

// Samples returns a copy of everything written so far.
func (s *FakeSink) Samples() []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int16(nil), s.samples...)
}

func (s *FakeSink) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *FakeSink) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

func (s *FakeSink) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}
