// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")

	// ErrInvalidFormat reports an unusable format descriptor.
	ErrInvalidFormat = errors.New("invalid audio format")

	// ErrPartialFrame reports a sample slice that does not hold whole frames.
	ErrPartialFrame = errors.New("buffer holds a partial frame")

	// ErrChannelMapping reports a channel conversion the pipeline cannot do.
	ErrChannelMapping = errors.New("unsupported channel conversion")
)
