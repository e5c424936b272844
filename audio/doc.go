// SPDX-License-Identifier: EPL-2.0

// Package audio provides the sample-level building blocks of the recorder.
//
// Two sample representations are used:
//
//   - Source streams interleaved float32 samples in [-1,1]. Decoders,
//     the Resampler, MonoMixer and Upmixer implement it and can be chained.
//   - PcmBuffer holds interleaved int16 samples with a timestamp. Capture
//     devices deliver PcmBuffers and the WAV writer persists them.
//
// Format describes the fixed PCM layout of a recording session and does the
// frame/duration arithmetic; all positions are rounded down to whole frames.
//
// # Mixing
//
// Mixer overlays a background block onto a captured block:
//
//	out = clamp(capture + round(background * volume))
//
// Missing background samples count as silence and the result saturates at
// the int16 limits.
//
// # Pipelines
//
//	src, _ := audio.ToChannels(decoded, 1)
//	src = audio.NewResampler(src, 16000)
//	n, err := src.ReadSamples(buf)
//
// ReadSamples returns io.EOF once the stream is exhausted; the final call
// may return samples together with io.EOF.
package audio
