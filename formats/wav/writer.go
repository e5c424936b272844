// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ik5/voxmix/audio"
)

const writeBufferSize = 64 * 1024

// FileWriter appends PCM buffers to a 16-bit WAV file.
//
// Append never blocks on storage: buffers are queued and a background
// goroutine encodes them. Finalize drains the queue, patches the header
// sizes, syncs and closes the file.
type FileWriter struct {
	path       string
	format     audio.Format
	f          *os.File
	bw         *bufio.Writer
	dataOffset int64
	onError    func(error)

	mu      sync.Mutex
	pending []audio.PcmBuffer
	closing bool
	wake    chan struct{}

	accepted atomic.Int64 // frames in the file once the queue drains
	written  int64        // frames handed to bw, owned by the writer goroutine
	scratch  []byte
	failed   bool

	group    errgroup.Group
	once     sync.Once
	finalErr error
}

// Create starts a new file at path, replacing any existing one.
// onError, if not nil, is called once from the writer goroutine when an
// asynchronous write fails; the writer drops everything after that.
func Create(path string, format audio.Format, onError func(error)) (*FileWriter, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	if err := writeHeader(f, format, 0); err != nil {
		return nil, errors.Join(err, f.Close())
	}
	return newFileWriter(f, path, format, headerSize, 0, onError), nil
}

// OpenAt reopens an existing recording for appending at t. Frames at or
// after t are removed first, so the result is a truncate-then-append. The
// file header must carry format.
func OpenAt(path string, format audio.Format, t time.Duration, onError func(error)) (*FileWriter, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	info, err := statInfo(f)
	if err != nil {
		return nil, errors.Join(err, f.Close())
	}
	if info.Format != format {
		return nil, errors.Join(
			fmt.Errorf("%w: file is %v, want %v", ErrFormatMismatch, info.Format, format),
			f.Close())
	}

	info, err = truncateFile(f, t)
	if err != nil {
		return nil, errors.Join(err, f.Close())
	}
	if _, err := f.Seek(info.End(), io.SeekStart); err != nil {
		return nil, errors.Join(fmt.Errorf("seeking %s: %w", path, err), f.Close())
	}

	return newFileWriter(f, path, format, info.DataOffset, info.Frames, onError), nil
}

func newFileWriter(f *os.File, path string, format audio.Format, dataOffset, frames int64, onError func(error)) *FileWriter {
	w := &FileWriter{
		path:       path,
		format:     format,
		f:          f,
		bw:         bufio.NewWriterSize(f, writeBufferSize),
		dataOffset: dataOffset,
		onError:    onError,
		wake:       make(chan struct{}, 1),
		written:    frames,
	}
	w.accepted.Store(frames)
	w.group.Go(w.run)
	return w
}

func (w *FileWriter) Path() string         { return w.path }
func (w *FileWriter) Format() audio.Format { return w.format }

// Frames is the length of the file in frames, counting queued buffers.
func (w *FileWriter) Frames() int64 { return w.accepted.Load() }

// Duration is Frames expressed as time.
func (w *FileWriter) Duration() time.Duration { return w.format.DurationOf(w.Frames()) }

// Append queues buf for writing. A trailing partial frame is dropped. The
// buffer must not be modified after the call.
func (w *FileWriter) Append(buf audio.PcmBuffer) error {
	frames := len(buf.Samples) / w.format.Channels
	if frames == 0 {
		return nil
	}
	buf = audio.PcmBuffer{
		Samples:   buf.Samples[:frames*w.format.Channels],
		Frames:    frames,
		Timestamp: buf.Timestamp,
	}

	w.mu.Lock()
	if w.closing {
		w.mu.Unlock()
		return ErrClosed
	}
	w.pending = append(w.pending, buf)
	w.mu.Unlock()

	w.accepted.Add(int64(frames))
	w.signal()
	return nil
}

func (w *FileWriter) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *FileWriter) run() error {
	var firstErr error
	for {
		w.mu.Lock()
		batch := w.pending
		w.pending = nil
		closing := w.closing
		w.mu.Unlock()

		for _, b := range batch {
			if err := w.write(b); err != nil && firstErr == nil {
				firstErr = err
				if w.onError != nil {
					w.onError(err)
				}
			}
		}

		if len(batch) == 0 {
			if closing {
				return firstErr
			}
			<-w.wake
		}
	}
}

func (w *FileWriter) write(b audio.PcmBuffer) error {
	if w.failed {
		return nil
	}
	w.scratch = w.scratch[:0]
	for _, s := range b.Samples {
		w.scratch = binary.LittleEndian.AppendUint16(w.scratch, uint16(s))
	}
	if _, err := w.bw.Write(w.scratch); err != nil {
		w.failed = true
		return fmt.Errorf("writing %s: %w", w.path, err)
	}
	w.written += int64(b.Frames)
	return nil
}

// Finalize flushes queued audio, patches the header and closes the file.
// It is safe to call more than once; later calls return the first result.
func (w *FileWriter) Finalize() error {
	w.once.Do(func() {
		w.mu.Lock()
		w.closing = true
		w.mu.Unlock()
		w.signal()

		err := w.group.Wait()
		if ferr := w.bw.Flush(); ferr != nil {
			err = errors.Join(err, fmt.Errorf("flushing %s: %w", w.path, ferr))
		}
		blockAlign := int64(w.format.BlockAlign())
		if perr := patchSizes(w.f, w.dataOffset, w.written*blockAlign); perr != nil {
			err = errors.Join(err, perr)
		}
		if serr := w.f.Sync(); serr != nil {
			err = errors.Join(err, fmt.Errorf("syncing %s: %w", w.path, serr))
		}
		if cerr := w.f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing %s: %w", w.path, cerr))
		}
		w.finalErr = err
	})
	return w.finalErr
}
