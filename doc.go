// SPDX-License-Identifier: EPL-2.0

// Package voxmix records a microphone into a 16-bit PCM WAV file while an
// optional background track is mixed into the recording, and plays the
// file back.
//
// The engine lives in the recorder package. The rest of the tree supplies
// its parts:
//   - audio: pull-based sample sources, channel mapping, resampling and the
//     int16 mixer
//   - formats/wav, formats/mp3, formats/vorbis, formats/aiff: decoders, and
//     for WAV the streaming file writer and header handling
//   - track: background track selection and the lookahead feed that keeps
//     it aligned with the capture timeline
//   - device: capture and playback on top of miniaudio
//   - player: file playback with pause, resume and progress
//
// This package holds whole-buffer helpers that convert decoded audio into
// the recording format, which is how a background track can be rendered
// ahead of time:
//
//	format, _ := audio.NewFormat(44100, 1)
//	spec := track.NewSpec("bed.mp3")
//	spec.PlayLength = 30 * time.Second
//	samples, err := voxmix.Render(track.DefaultRegistry(), spec, format)
package voxmix
