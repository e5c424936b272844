// SPDX-License-Identifier: EPL-2.0

package track

import "errors"

var (
	// ErrUnsupportedFormat is returned when no decoder is registered for a
	// background track's file extension.
	ErrUnsupportedFormat = errors.New("unsupported background track format")

	// ErrInvalidSpec reports an out-of-range background track setting.
	ErrInvalidSpec = errors.New("invalid background track")
)
