// SPDX-License-Identifier: EPL-2.0

package recorder

import (
	"time"

	"github.com/ik5/voxmix/audio"
)

// Observer receives engine events. The engine keeps a plain reference and
// never closes it; unregister with SetObserver(nil) before tearing the
// observer down.
//
// CaptureBuffer runs on the capture thread and PlaybackTime on the playback
// goroutine; neither may call a Recorder transition synchronously. The
// other methods run while a transition holds the engine, so a transition
// called from them fails with ErrTransitionInProgress.
type Observer interface {
	// CaptureBuffer delivers each buffer written to the file, after
	// mixing, with the recorded duration so far.
	CaptureBuffer(buf audio.PcmBuffer, elapsed time.Duration)
	PlaybackTime(current, total time.Duration)
	PlaybackStarted()
	PlaybackFinished()
	RecordingStarted()
	RecordingFinished()
	StateChanged(from, to State)
}

// NopObserver ignores every event. Embed it to implement only some methods.
type NopObserver struct{}

func (NopObserver) CaptureBuffer(audio.PcmBuffer, time.Duration) {}
func (NopObserver) PlaybackTime(time.Duration, time.Duration)    {}
func (NopObserver) PlaybackStarted()                             {}
func (NopObserver) PlaybackFinished()                            {}
func (NopObserver) RecordingStarted()                            {}
func (NopObserver) RecordingFinished()                           {}
func (NopObserver) StateChanged(State, State)                    {}

var _ Observer = NopObserver{}
