// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/ik5/voxmix/audio"
)

const (
	// headerSize is the size of the canonical RIFF/fmt/data header.
	headerSize = 44

	wavFormatPCM = 1
)

// Info describes the PCM payload of a WAV file.
type Info struct {
	Format audio.Format
	// DataOffset is the file offset of the first sample byte.
	DataOffset int64
	// Frames is the number of whole frames in the data chunk.
	Frames int64
}

// Duration of the audio data.
func (i Info) Duration() time.Duration {
	return i.Format.DurationOf(i.Frames)
}

// End is the file offset just past the last whole frame.
func (i Info) End() int64 {
	return i.DataOffset + i.Frames*int64(i.Format.BlockAlign())
}

// FrameAt converts a time into a frame index, rounding down. It fails with
// ErrUnreachable when t is negative or lies past the end of the data.
func (i Info) FrameAt(t time.Duration) (int64, error) {
	if t < 0 {
		return 0, fmt.Errorf("%w: %v is negative", ErrUnreachable, t)
	}
	if t > i.Duration() {
		return 0, fmt.Errorf("%w: %v is beyond %v", ErrUnreachable, t, i.Duration())
	}
	return min(i.Format.FramesIn(t), i.Frames), nil
}

// writeHeader emits the canonical 44 byte header for dataBytes of PCM.
func writeHeader(w io.Writer, f audio.Format, dataBytes int64) error {
	header := make([]byte, headerSize)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], clampSize(headerSize-8+dataBytes))
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(f.ByteRate()))
	binary.LittleEndian.PutUint16(header[32:34], uint16(f.BlockAlign()))
	binary.LittleEndian.PutUint16(header[34:36], uint16(f.BitsPerSample))

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], clampSize(dataBytes))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("writing WAV header: %w", err)
	}
	return nil
}

// patchSizes rewrites the RIFF and data chunk sizes in place.
func patchSizes(w io.WriterAt, dataOffset, dataBytes int64) error {
	var b [4]byte

	binary.LittleEndian.PutUint32(b[:], clampSize(dataOffset-8+dataBytes))
	if _, err := w.WriteAt(b[:], 4); err != nil {
		return fmt.Errorf("patching RIFF size: %w", err)
	}

	binary.LittleEndian.PutUint32(b[:], clampSize(dataBytes))
	if _, err := w.WriteAt(b[:], dataOffset-4); err != nil {
		return fmt.Errorf("patching data size: %w", err)
	}
	return nil
}

func clampSize(n int64) uint32 {
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	if n < 0 {
		return 0
	}
	return uint32(n)
}

// readInfo walks the RIFF chunks of r until the data chunk. size is the
// total file size; a data chunk size of zero or one that overruns the file
// (an unfinalized recording) is replaced by what the file actually holds.
func readInfo(r io.ReadSeeker, size int64) (Info, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Info{}, fmt.Errorf("seeking WAV header: %w", err)
	}

	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrNotWavFile, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Info{}, ErrNotWavFile
	}

	var (
		info   Info
		hasFmt bool
		pos    int64 = 12
		chunk  [8]byte
	)
	for {
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return Info{}, fmt.Errorf("%w: no data chunk", ErrUnsupportedWavChunks)
		}
		pos += 8
		id := string(chunk[0:4])
		chunkSize := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			if chunkSize < 16 {
				return Info{}, fmt.Errorf("%w: fmt chunk of %d bytes", ErrUnsupportedWavLayout, chunkSize)
			}
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, body); err != nil {
				return Info{}, fmt.Errorf("%w: %w", ErrUnsupportedWavLayout, err)
			}
			if binary.LittleEndian.Uint16(body[0:2]) != wavFormatPCM {
				return Info{}, ErrOnlyPCM16bitSupported
			}
			info.Format = audio.Format{
				Channels:      int(binary.LittleEndian.Uint16(body[2:4])),
				SampleRate:    int(binary.LittleEndian.Uint32(body[4:8])),
				BitsPerSample: int(binary.LittleEndian.Uint16(body[14:16])),
			}
			if info.Format.BitsPerSample != audio.BitsPerSample16 {
				return Info{}, ErrOnlyPCM16bitSupported
			}
			if err := info.Format.Validate(); err != nil {
				return Info{}, fmt.Errorf("%w: %w", ErrUnsupportedWavLayout, err)
			}
			hasFmt = true
			pos += chunkSize
			if chunkSize%2 == 1 {
				if _, err := r.Seek(1, io.SeekCurrent); err != nil {
					return Info{}, fmt.Errorf("seeking WAV chunk: %w", err)
				}
				pos++
			}

		case "data":
			if !hasFmt {
				return Info{}, fmt.Errorf("%w: data before fmt", ErrUnsupportedWavLayout)
			}
			info.DataOffset = pos
			avail := max(size-pos, 0)
			if chunkSize == 0 || chunkSize > avail {
				chunkSize = avail
			}
			info.Frames = chunkSize / int64(info.Format.BlockAlign())
			return info, nil

		default:
			skip := chunkSize + chunkSize%2
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return Info{}, fmt.Errorf("seeking WAV chunk: %w", err)
			}
			pos += skip
		}
	}
}
