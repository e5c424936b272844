// SPDX-License-Identifier: EPL-2.0

// Package recorder records a microphone to a WAV file, optionally mixing a
// background track under it, and plays recordings back.
//
// A Recorder is a state machine over Normal, Recording, Playing and
// Paused. Transitions are serialized: a request that arrives while another
// transition runs fails with ErrTransitionInProgress instead of waiting.
// Every failed operation also stores its error, readable through Err.
// StopRecord and StopPlay are the exception when the session they target
// is already ending on its own: they return nil and leave Err alone.
//
// While recording, each captured buffer is mixed on the capture thread with
// the background track (decoded ahead by a worker) and queued on the file
// writer, so nothing on the capture path waits for storage or decoding.
package recorder

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ik5/voxmix/audio"
	"github.com/ik5/voxmix/device"
	"github.com/ik5/voxmix/formats/wav"
	"github.com/ik5/voxmix/player"
	"github.com/ik5/voxmix/track"
)

// BGMLatency is the documented default delay of the background track.
func BGMLatency() time.Duration { return DefaultBGMLatency }

// DetectingHeadphones reports whether a headphone output route is active.
func DetectingHeadphones() bool { return device.DetectingHeadphones() }

// Recorder is the capture, mix and playback engine for one file path.
type Recorder struct {
	format audio.Format
	path   string
	opts   options
	log    *zap.Logger

	transition sync.Mutex
	// sessions being torn down, set before the transition lock is taken
	endingRec  atomic.Pointer[session]
	endingPlay atomic.Pointer[player.Player]

	mu         sync.RWMutex
	state      State
	err        error
	observer   Observer
	bgm        *track.Spec
	latency    time.Duration
	maxRecord  time.Duration
	rec        *session
	player     *player.Player
	recorded   time.Duration
	playTime   time.Duration
	headphones bool
}

// New returns a Recorder writing 16-bit PCM at sampleRate to filePath.
// A sample rate of 16000 enables noise reduction on the capture path.
func New(sampleRate int, filePath string, opts ...Option) (*Recorder, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	format, err := audio.NewFormat(sampleRate, o.channels)
	if err != nil {
		return nil, kindError(ErrFormat, err)
	}
	if filePath == "" {
		return nil, kindError(ErrFile, errors.New("empty file path"))
	}
	o.fill()

	r := &Recorder{
		format:  format,
		path:    filePath,
		opts:    o,
		log:     o.log.With(zap.String("path", filePath)),
		latency: o.latency,
	}
	if info, err := wav.ReadInfo(filePath); err == nil {
		r.recorded = info.Duration()
	}
	return r, nil
}

func (r *Recorder) Format() audio.Format { return r.format }
func (r *Recorder) FilePath() string     { return r.path }

// NoiseReductionEnabled reports whether the format selects the noise
// reduction capture mode.
func (r *Recorder) NoiseReductionEnabled() bool { return r.format.NoiseReduction() }

// SetObserver registers o, replacing any previous observer. nil
// unregisters.
func (r *Recorder) SetObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = o
}

func (r *Recorder) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Recorder) IsRecording() bool { return r.State() == Recording }
func (r *Recorder) IsPlaying() bool   { return r.State() == Playing }

// Err returns the most recent failure, synchronous or not.
func (r *Recorder) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// RecordDuration is the length of the file: live while recording, the
// final length after it.
func (r *Recorder) RecordDuration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.rec != nil {
		return r.rec.elapsed()
	}
	return r.recorded
}

// RecordWithHeadphone reports whether a headphone route was active when
// the current or last recording started.
func (r *Recorder) RecordWithHeadphone() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.headphones
}

// CurrentPlayTime is the playback position, or where the last playback
// ended.
func (r *Recorder) CurrentPlayTime() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.player != nil {
		return r.player.Position()
	}
	return r.playTime
}

// PlayDuration is the length of the file that is or would be played.
func (r *Recorder) PlayDuration() time.Duration {
	r.mu.RLock()
	p := r.player
	r.mu.RUnlock()
	if p != nil {
		return p.Duration()
	}
	info, err := wav.ReadInfo(r.path)
	if err != nil {
		return 0
	}
	return info.Duration()
}

// BGMLatency is the background track delay used by the next recording.
func (r *Recorder) BGMLatency() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latency
}

// SetBGMLatency changes the background track delay for later recordings.
func (r *Recorder) SetBGMLatency(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latency = max(d, 0)
}

// SetMaxRecordTime caps the file length of later recordings; zero or less
// removes the cap. A recording that reaches it stops as if StopRecord had
// been called.
func (r *Recorder) SetMaxRecordTime(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxRecord = max(d, 0)
}

func (r *Recorder) MaxRecordTime() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxRecord
}

// SetBackgroundTrack selects the track mixed under later recordings.
func (r *Recorder) SetBackgroundTrack(spec track.Spec) error {
	if err := spec.Validate(); err != nil {
		return r.setErr(kindError(ErrFormat, err))
	}
	if _, ok := r.opts.registry.ForPath(spec.Path); !ok {
		return r.setErr(kindError(ErrFormat, fmt.Errorf("%w: %s", track.ErrUnsupportedFormat, spec.Path)))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Recording {
		return r.setErrLocked(stateError("change the background track", r.state))
	}
	r.bgm = &spec
	return nil
}

// ClearBackgroundTrack makes later recordings capture-only.
func (r *Recorder) ClearBackgroundTrack() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Recording {
		return r.setErrLocked(stateError("change the background track", r.state))
	}
	r.bgm = nil
	return nil
}

// BackgroundTrack returns the selected track, if any.
func (r *Recorder) BackgroundTrack() (track.Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.bgm == nil {
		return track.Spec{}, false
	}
	return *r.bgm, true
}

// StartRecord records into a new file, replacing any previous recording.
func (r *Recorder) StartRecord() error {
	if !r.transition.TryLock() {
		return r.setErr(ErrTransitionInProgress)
	}
	defer r.transition.Unlock()
	return r.setErr(r.startRecord(0, false))
}

// StartRecordAt keeps the file up to t, rounded down to a whole frame,
// drops the rest and records after it.
func (r *Recorder) StartRecordAt(t time.Duration) error {
	if !r.transition.TryLock() {
		return r.setErr(ErrTransitionInProgress)
	}
	defer r.transition.Unlock()
	return r.setErr(r.startRecord(t, true))
}

func (r *Recorder) startRecord(at time.Duration, resume bool) error {
	r.mu.RLock()
	state, bgm, maxRecord, latency := r.state, r.bgm, r.maxRecord, r.latency
	r.mu.RUnlock()
	if state != Normal {
		return stateError("record", state)
	}

	var maxFrames int64
	if maxRecord > 0 {
		maxFrames = max(r.format.FramesIn(maxRecord), 1)
	}
	if resume {
		if at < 0 {
			return kindError(ErrFile, fmt.Errorf("%w: %v is negative", wav.ErrUnreachable, at))
		}
		if maxFrames > 0 && r.format.FramesIn(at) >= maxFrames {
			return fmt.Errorf("%w: %v is at or past the maximum record time %v", ErrState, at, maxRecord)
		}
	}

	s := &session{id: uuid.New(), format: r.format, maxFrames: maxFrames}
	s.log = r.log.With(zap.String("session", s.id.String()))
	onWriteError := func(err error) { r.abort(s, kindError(ErrFile, err)) }

	var err error
	if resume {
		s.writer, err = wav.OpenAt(r.path, r.format, at, onWriteError)
	} else {
		s.writer, err = wav.Create(r.path, r.format, onWriteError)
	}
	if err != nil {
		return kindError(ErrFile, err)
	}
	s.frames.Store(s.writer.Frames())

	if bgm != nil {
		s.mixer = audio.NewMixer(bgm.Volume)
		s.feed, err = r.openFeed(*bgm, s.writer.Frames(), latency, s.log)
		if err != nil {
			r.discard(s)
			return kindError(ErrFile, err)
		}
	}
	s.headphones = r.opts.headphones()

	cb := device.CaptureCallbacks{
		Data: func(buf audio.PcmBuffer) { r.onCapture(s, buf) },
		Fail: func(err error) { r.abort(s, kindError(ErrDevice, err)) },
	}
	if err := r.opts.capture.Start(r.format, cb); err != nil {
		r.discard(s)
		return kindError(ErrDevice, err)
	}

	r.mu.Lock()
	r.rec = s
	r.headphones = s.headphones
	r.mu.Unlock()

	s.log.Info("recording started",
		zap.Stringer("format", r.format),
		zap.Duration("elapsed", s.elapsed()),
		zap.Bool("background", s.feed != nil),
		zap.Bool("headphones", s.headphones))
	r.setState(Recording)
	r.notify("RecordingStarted", func(o Observer) { o.RecordingStarted() })
	return nil
}

// openFeed aligns the background track so that file frame f carries track
// frame PlayOffset+f-latency. startFrame is the first frame to be recorded.
func (r *Recorder) openFeed(spec track.Spec, startFrame int64, latency time.Duration, log *zap.Logger) (*track.Feed, error) {
	lag := r.format.FramesIn(latency)
	reader, err := track.Open(r.opts.registry, spec, r.format, max(startFrame-lag, 0))
	if err != nil {
		return nil, err
	}

	feed := track.NewFeed(reader, track.FeedConfig{
		Channels:  r.format.Channels,
		Prefix:    max(lag-startFrame, 0),
		Lookahead: r.opts.lookahead,
		Logger:    log,
	})

	timer := time.NewTimer(primeTimeout)
	defer timer.Stop()
	select {
	case <-feed.Ready():
	case <-timer.C:
		log.Warn("background track is not ready, recording anyway")
	}
	return feed, nil
}

// discard undoes a session that never started capturing.
func (r *Recorder) discard(s *session) {
	s.close()
	if err := s.teardown(); err != nil {
		s.log.Warn("releasing failed recording", zap.Error(err))
	}
}

// onCapture runs on the capture thread.
func (r *Recorder) onCapture(s *session, buf audio.PcmBuffer) {
	out, limit, err := s.process(buf)
	if err != nil {
		r.abort(s, kindError(ErrFile, err))
		return
	}
	if out.Frames > 0 {
		elapsed := s.elapsed()
		r.notify("CaptureBuffer", func(o Observer) { o.CaptureBuffer(out, elapsed) })
	}
	if limit {
		go r.autoStop(s)
	}
}

func (r *Recorder) current(s *session) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rec == s
}

func (r *Recorder) autoStop(s *session) {
	r.endingRec.Store(s)
	r.transition.Lock()
	defer r.transition.Unlock()
	if !r.current(s) {
		r.endingRec.CompareAndSwap(s, nil)
		return
	}
	s.log.Info("maximum record time reached", zap.Duration("elapsed", s.elapsed()))
	r.setErr(r.stopRecording(s, true))
}

// abort ends s after an asynchronous device or file failure.
func (r *Recorder) abort(s *session, err error) {
	if !s.failed.CompareAndSwap(false, true) {
		return
	}
	r.endingRec.Store(s)
	go func() {
		r.transition.Lock()
		defer r.transition.Unlock()
		if !r.current(s) {
			r.endingRec.CompareAndSwap(s, nil)
			return
		}
		s.log.Error("recording aborted", zap.Error(err))
		r.setErr(err)
		if serr := r.stopRecording(s, false); serr != nil {
			s.log.Warn("finalizing aborted recording", zap.Error(serr))
		}
	}()
}

// stopRecording tears s down and moves to Normal. Callers hold the
// transition lock.
func (r *Recorder) stopRecording(s *session, finished bool) error {
	r.endingRec.Store(s)
	defer r.endingRec.CompareAndSwap(s, nil)
	s.close()

	var errs []error
	if err := r.opts.capture.Stop(); err != nil {
		errs = append(errs, kindError(ErrDevice, err))
	}
	if err := s.teardown(); err != nil {
		errs = append(errs, kindError(ErrFile, err))
	}

	r.mu.Lock()
	r.rec = nil
	r.recorded = s.elapsed()
	r.mu.Unlock()

	s.log.Info("recording stopped", zap.Duration("elapsed", s.elapsed()))
	r.setState(Normal)
	if finished {
		r.notify("RecordingFinished", func(o Observer) { o.RecordingFinished() })
	}
	return errors.Join(errs...)
}

// StopRecord finalizes the recording and returns to Normal. Without an
// active recording, or while the recording is already stopping, it does
// nothing.
func (r *Recorder) StopRecord() error {
	if !r.transition.TryLock() {
		if r.endingRec.Load() != nil {
			return nil
		}
		return r.setErr(ErrTransitionInProgress)
	}
	defer r.transition.Unlock()

	r.mu.RLock()
	s := r.rec
	r.mu.RUnlock()
	if s == nil {
		return nil
	}
	return r.setErr(r.stopRecording(s, true))
}

// Play plays the recorded file from the start.
func (r *Recorder) Play() error { return r.PlayAt(0) }

// PlayAt plays the recorded file from t.
func (r *Recorder) PlayAt(t time.Duration) error {
	if !r.transition.TryLock() {
		return r.setErr(ErrTransitionInProgress)
	}
	defer r.transition.Unlock()
	return r.setErr(r.play(t))
}

func (r *Recorder) play(t time.Duration) error {
	if state := r.State(); state != Normal {
		return stateError("play", state)
	}

	p, err := player.Open(r.path, r.opts.playback,
		player.WithLogger(r.log),
		player.WithBufferFrames(r.opts.bufferFrames))
	if err != nil {
		return kindError(ErrFile, err)
	}

	cb := player.Callbacks{
		Progress: func(cur, total time.Duration) {
			r.notify("PlaybackTime", func(o Observer) { o.PlaybackTime(cur, total) })
		},
		Finished: func() { go r.endPlayback(p, nil) },
		Fail:     func(err error) { go r.endPlayback(p, err) },
	}
	if err := p.Start(t, cb); err != nil {
		if serr := p.Stop(); serr != nil {
			r.log.Warn("releasing player", zap.Error(serr))
		}
		return playbackError(err)
	}

	r.mu.Lock()
	r.player = p
	r.mu.Unlock()

	r.log.Info("playback started", zap.Duration("from", p.Position()), zap.Duration("total", p.Duration()))
	r.setState(Playing)
	r.notify("PlaybackStarted", func(o Observer) { o.PlaybackStarted() })
	return nil
}

func playbackError(err error) error {
	if errors.Is(err, player.ErrOutput) {
		return kindError(ErrDevice, err)
	}
	return kindError(ErrFile, err)
}

// endPlayback handles the end of p's file or a playback failure.
func (r *Recorder) endPlayback(p *player.Player, failure error) {
	r.endingPlay.Store(p)
	r.transition.Lock()
	defer r.transition.Unlock()
	defer r.endingPlay.CompareAndSwap(p, nil)

	r.mu.RLock()
	current := r.player == p
	r.mu.RUnlock()
	if !current {
		return
	}

	if failure != nil {
		r.log.Error("playback aborted", zap.Error(failure))
		r.setErr(playbackError(failure))
	}
	if err := r.stopPlayback(p); err != nil {
		r.log.Warn("releasing player", zap.Error(err))
	}
	if failure == nil {
		r.notify("PlaybackFinished", func(o Observer) { o.PlaybackFinished() })
	}
}

// stopPlayback releases p and moves to Normal. Callers hold the transition
// lock.
func (r *Recorder) stopPlayback(p *player.Player) error {
	err := p.Stop()

	r.mu.Lock()
	r.player = nil
	r.playTime = p.Position()
	r.mu.Unlock()

	r.setState(Normal)
	if err != nil {
		return kindError(ErrDevice, err)
	}
	return nil
}

// StopPlay ends playback. Without an active playback, or while playback
// is already ending, it does nothing.
func (r *Recorder) StopPlay() error {
	if !r.transition.TryLock() {
		if r.endingPlay.Load() != nil {
			return nil
		}
		return r.setErr(ErrTransitionInProgress)
	}
	defer r.transition.Unlock()

	r.mu.RLock()
	p := r.player
	r.mu.RUnlock()
	if p == nil {
		return nil
	}
	r.endingPlay.Store(p)
	defer r.endingPlay.CompareAndSwap(p, nil)
	r.log.Info("playback stopped", zap.Duration("at", p.Position()))
	return r.setErr(r.stopPlayback(p))
}

// PausePlay holds playback at its current position.
func (r *Recorder) PausePlay() error {
	return r.toggle("pause", Playing, Paused, (*player.Player).Pause)
}

// ResumePlay continues a paused playback.
func (r *Recorder) ResumePlay() error {
	return r.toggle("resume", Paused, Playing, (*player.Player).Resume)
}

func (r *Recorder) toggle(op string, from, to State, fn func(*player.Player) error) error {
	if !r.transition.TryLock() {
		return r.setErr(ErrTransitionInProgress)
	}
	defer r.transition.Unlock()

	r.mu.RLock()
	state, p := r.state, r.player
	r.mu.RUnlock()
	switch {
	case state == to:
		return nil
	case state != from || p == nil:
		return r.setErr(stateError(op, state))
	}

	if err := fn(p); err != nil {
		return r.setErr(kindError(ErrState, err))
	}
	r.setState(to)
	return nil
}

// TruncateFile drops everything at or after t, rounded down to a whole
// frame. It is only allowed in Normal.
func (r *Recorder) TruncateFile(t time.Duration) error {
	if !r.transition.TryLock() {
		return r.setErr(ErrTransitionInProgress)
	}
	defer r.transition.Unlock()

	if state := r.State(); state != Normal {
		return r.setErr(stateError("truncate", state))
	}
	info, err := wav.Truncate(r.path, t)
	if err != nil {
		return r.setErr(kindError(ErrFile, err))
	}

	r.mu.Lock()
	r.recorded = info.Duration()
	r.mu.Unlock()
	r.log.Info("file truncated", zap.Duration("elapsed", info.Duration()))
	return nil
}

// Close stops any recording or playback, waiting for a running transition
// to finish. It must not be called from an Observer.
func (r *Recorder) Close() error {
	r.transition.Lock()
	defer r.transition.Unlock()

	r.mu.RLock()
	s, p := r.rec, r.player
	r.mu.RUnlock()

	var errs []error
	if s != nil {
		errs = append(errs, r.stopRecording(s, true))
	}
	if p != nil {
		errs = append(errs, r.stopPlayback(p))
	}
	return r.setErr(errors.Join(errs...))
}

func (r *Recorder) setState(to State) {
	r.mu.Lock()
	from := r.state
	r.state = to
	r.mu.Unlock()
	if from == to {
		return
	}
	r.log.Debug("state changed", zap.Stringer("from", from), zap.Stringer("state", to))
	r.notify("StateChanged", func(o Observer) { o.StateChanged(from, to) })
}

// setErr stores a non-nil err as the last error and returns it.
func (r *Recorder) setErr(err error) error {
	if err == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setErrLocked(err)
}

func (r *Recorder) setErrLocked(err error) error {
	r.err = err
	return err
}

// notify delivers one event, recovering from a panicking observer.
func (r *Recorder) notify(event string, fn func(Observer)) {
	r.mu.RLock()
	o := r.observer
	r.mu.RUnlock()
	if o == nil {
		return
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("observer panicked", zap.String("event", event), zap.Any("panic", p))
		}
	}()
	fn(o)
}
