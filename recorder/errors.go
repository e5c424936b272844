// SPDX-License-Identifier: EPL-2.0

package recorder

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a Recorder wraps exactly one of them
// together with its cause, so errors.Is matches both.
var (
	ErrDevice = errors.New("device error")
	ErrFile   = errors.New("file error")
	ErrState  = errors.New("state error")
	ErrFormat = errors.New("format error")
)

// ErrTransitionInProgress rejects a transition requested while another
// one is executing.
var ErrTransitionInProgress = fmt.Errorf("%w: transition in progress", ErrState)

func kindError(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

func stateError(op string, s State) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrState, op, s)
}
