// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// PCMReader reads frames of a 16-bit WAV file as int16 samples, with
// frame-accurate seeking.
type PCMReader struct {
	f    *os.File
	br   *bufio.Reader
	info Info
	pos  int64
	buf  []byte
}

// OpenPCM opens the WAV file at path positioned at its first frame.
func OpenPCM(path string) (*PCMReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	info, err := statInfo(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	r := &PCMReader{f: f, info: info, br: bufio.NewReaderSize(f, writeBufferSize)}
	if err := r.Seek(0); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *PCMReader) Info() Info { return r.info }

// Position is the index of the next frame Read returns.
func (r *PCMReader) Position() int64 { return r.pos }

// Seek moves to frame. Seeking to Frames is allowed and leaves nothing to read.
func (r *PCMReader) Seek(frame int64) error {
	if frame < 0 || frame > r.info.Frames {
		return fmt.Errorf("%w: frame %d of %d", ErrUnreachable, frame, r.info.Frames)
	}
	off := r.info.DataOffset + frame*int64(r.info.Format.BlockAlign())
	if _, err := r.f.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("seeking %s: %w", r.f.Name(), err)
	}
	r.br.Reset(r.f)
	r.pos = frame
	return nil
}

// Read fills dst with whole frames and returns the number of frames read.
// It returns io.EOF once the data chunk is exhausted.
func (r *PCMReader) Read(dst []int16) (int, error) {
	channels := r.info.Format.Channels
	frames := min(int64(len(dst)/channels), r.info.Frames-r.pos)
	if frames <= 0 {
		if r.pos >= r.info.Frames {
			return 0, io.EOF
		}
		return 0, nil
	}

	n := int(frames) * channels * 2
	if cap(r.buf) < n {
		r.buf = make([]byte, n)
	}
	r.buf = r.buf[:n]

	got, err := io.ReadFull(r.br, r.buf)
	whole := got / (channels * 2)
	for i := range whole * channels {
		dst[i] = int16(binary.LittleEndian.Uint16(r.buf[2*i:]))
	}
	r.pos += int64(whole)

	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			// the file shrank underneath us
			r.info.Frames = r.pos
			if whole == 0 {
				return 0, io.EOF
			}
			return whole, nil
		}
		return whole, fmt.Errorf("reading %s: %w", r.f.Name(), err)
	}
	return whole, nil
}

func (r *PCMReader) Close() error {
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", r.f.Name(), err)
	}
	return nil
}
