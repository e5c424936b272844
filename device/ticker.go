// SPDX-License-Identifier: EPL-2.0

package device

import (
	"sync"
	"time"

	"github.com/ik5/voxmix/audio"
)

// TickerSink discards audio but blocks each Write for the block's duration,
// so a player driven by it keeps real time without an output device.
type TickerSink struct {
	mu       sync.Mutex
	format   audio.Format
	deadline time.Time
	done     chan struct{}
	now      func() time.Time
}

var _ PlaybackSink = (*TickerSink)(nil)

func NewTickerSink() *TickerSink {
	return &TickerSink{now: time.Now}
}

func (s *TickerSink) Open(format audio.Format) error {
	if err := format.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.format = format
	s.deadline = s.now()
	s.done = make(chan struct{})
	return nil
}

func (s *TickerSink) Write(samples []int16) error {
	s.mu.Lock()
	if s.done == nil {
		s.mu.Unlock()
		return ErrClosed
	}
	frames := int64(len(samples) / s.format.Channels)
	now := s.now()
	if s.deadline.Before(now) {
		s.deadline = now
	}
	s.deadline = s.deadline.Add(s.format.DurationOf(frames))
	wait := s.deadline.Sub(now)
	done := s.done
	s.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-done:
		return ErrClosed
	}
}

func (s *TickerSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	return nil
}
