// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes 16-bit PCM WAV files.
//
// Decoder turns a WAV file into an audio.Source for use as a background
// track. It is backed by github.com/go-audio/wav and accepts 8, 16, 24 and
// 32 bit integer PCM.
//
// FileWriter is the recording sink. Create writes a canonical 44 byte header
// with zero sizes, Append queues PcmBuffers for a background goroutine and
// Finalize patches the sizes:
//
//	w, err := wav.Create("take.wav", format, onError)
//	...
//	_ = w.Append(buf) // never blocks on storage
//	...
//	err = w.Finalize()
//
// A file that was never finalized is still readable: when the data chunk
// size is zero the length is taken from the file size.
//
// Truncate cuts a file at a time, rounding down to a whole frame, and
// OpenAt does the same before reopening the file for appending. Both fail
// with ErrUnreachable for negative times or times past the end.
//
// PCMReader serves the player: it reads int16 frames and seeks by frame.
package wav
