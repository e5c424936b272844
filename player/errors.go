// SPDX-License-Identifier: EPL-2.0

package player

import "errors"

var (
	ErrStarted    = errors.New("player already started")
	ErrNotStarted = errors.New("player not started")
	ErrStopped    = errors.New("player stopped")

	// ErrOutput wraps failures of the playback sink.
	ErrOutput = errors.New("output failed")
)
