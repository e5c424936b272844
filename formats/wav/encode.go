// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/ik5/voxmix/audio"
)

// Encode writes samples as a complete 16-bit PCM WAV in format.
// The writer is left open.
func Encode(w io.WriteSeeker, f audio.Format, samples []int16) error {
	if err := f.Validate(); err != nil {
		return err
	}

	data := make([]int, len(samples)-len(samples)%f.Channels)
	for i := range data {
		data[i] = int(samples[i])
	}

	enc := gowav.NewEncoder(w, f.SampleRate, f.BitsPerSample, f.Channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: f.Channels, SampleRate: f.SampleRate},
		Data:           data,
		SourceBitDepth: f.BitsPerSample,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding wav: %w", err)
	}
	return nil
}
