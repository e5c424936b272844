// SPDX-License-Identifier: EPL-2.0

package device

import "errors"

var (
	// ErrNoDevice is returned when no usable audio device can be opened.
	ErrNoDevice = errors.New("no audio device available")

	// ErrDeviceLost is reported through CaptureCallbacks.Fail when the
	// active input goes away, for example on a route change.
	ErrDeviceLost = errors.New("audio device lost")

	// ErrStarted is returned by Start on a capture that is already running.
	ErrStarted = errors.New("audio device already started")

	// ErrClosed is returned by Write on a closed sink.
	ErrClosed = errors.New("audio device closed")
)
