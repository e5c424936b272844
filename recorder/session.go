// SPDX-License-Identifier: EPL-2.0

package recorder

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ik5/voxmix/audio"
	"github.com/ik5/voxmix/formats/wav"
	"github.com/ik5/voxmix/track"
)

// session is one recording, from start to finalize.
type session struct {
	id         uuid.UUID
	format     audio.Format
	writer     *wav.FileWriter
	feed       *track.Feed // nil without a background track
	mixer      audio.Mixer
	maxFrames  int64 // 0 means no limit
	headphones bool
	log        *zap.Logger

	// mu is held by the capture thread while a buffer is mixed and queued.
	mu     sync.Mutex
	closed bool

	frames atomic.Int64 // frames in the file, including the kept prefix
	failed atomic.Bool
}

func (s *session) elapsed() time.Duration {
	return s.format.DurationOf(s.frames.Load())
}

// process mixes one captured buffer and queues it on the writer. It clips
// the buffer at maxFrames and reports limit once the file is full.
func (s *session) process(buf audio.PcmBuffer) (out audio.PcmBuffer, limit bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return audio.PcmBuffer{}, false, nil
	}

	channels := s.format.Channels
	frames := len(buf.Samples) / channels
	pos := s.frames.Load()
	if s.maxFrames > 0 && int64(frames) >= s.maxFrames-pos {
		frames = int(max(s.maxFrames-pos, 0))
		limit = true
		s.closed = true
	}
	if frames == 0 {
		return audio.PcmBuffer{}, limit, nil
	}

	in := audio.PcmBuffer{
		Samples:   buf.Samples[:frames*channels],
		Frames:    frames,
		Timestamp: s.format.DurationOf(pos),
	}
	var bg []int16
	if s.feed != nil {
		bg = s.feed.Take(frames)
	}
	out = s.mixer.Mix(in, bg)

	if err := s.writer.Append(out); err != nil {
		s.closed = true
		return audio.PcmBuffer{}, false, err
	}
	s.frames.Add(int64(frames))
	return out, limit, nil
}

// close stops process from accepting buffers. Once it returns no buffer is
// in flight.
func (s *session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// teardown releases the feed and finalizes the file.
func (s *session) teardown() error {
	if s.feed != nil {
		if err := s.feed.Close(); err != nil {
			s.log.Warn("closing background track", zap.Error(err))
		}
		if err := s.feed.Err(); err != nil {
			s.log.Warn("background track ended early", zap.Error(err))
		}
	}
	return s.writer.Finalize()
}
