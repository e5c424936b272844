// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	ErrNotWavFile            = errors.New("not a WAV file")
	ErrUnsupportedWavLayout  = errors.New("unsupported WAV layout")
	ErrOnlyPCM16bitSupported = errors.New("only PCM 16-bit supported")
	ErrUnsupportedWavChunks  = errors.New("unsupported WAV chunks")

	// ErrUnreachable is returned for a position that is negative or past the
	// end of the recorded data.
	ErrUnreachable = errors.New("position not reachable in WAV data")

	// ErrFormatMismatch is returned when an existing file is reopened with a
	// format other than the one in its header.
	ErrFormatMismatch = errors.New("WAV format does not match")

	// ErrClosed is returned by Append after Finalize.
	ErrClosed = errors.New("WAV writer is finalized")
)
