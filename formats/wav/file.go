// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ReadInfo parses the header of the WAV file at path.
func ReadInfo(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return statInfo(f)
}

func statInfo(f *os.File) (Info, error) {
	st, err := f.Stat()
	if err != nil {
		return Info{}, fmt.Errorf("stat %s: %w", f.Name(), err)
	}
	return readInfo(f, st.Size())
}

// Truncate removes every frame at or after t from the file at path and
// patches the header. t is rounded down to a whole frame; truncating at the
// current end is a no-op that still normalizes the header sizes.
func Truncate(path string, t time.Duration) (Info, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return Info{}, fmt.Errorf("opening %s: %w", path, err)
	}

	info, err := truncateFile(f, t)
	if err != nil {
		return Info{}, errors.Join(err, f.Close())
	}
	if err := f.Sync(); err != nil {
		return Info{}, errors.Join(fmt.Errorf("syncing %s: %w", path, err), f.Close())
	}
	if err := f.Close(); err != nil {
		return Info{}, fmt.Errorf("closing %s: %w", path, err)
	}
	return info, nil
}

func truncateFile(f *os.File, t time.Duration) (Info, error) {
	info, err := statInfo(f)
	if err != nil {
		return Info{}, err
	}
	frame, err := info.FrameAt(t)
	if err != nil {
		return Info{}, err
	}

	info.Frames = frame
	if err := f.Truncate(info.End()); err != nil {
		return Info{}, fmt.Errorf("truncating %s: %w", f.Name(), err)
	}
	if err := patchSizes(f, info.DataOffset, info.End()-info.DataOffset); err != nil {
		return Info{}, err
	}
	return info, nil
}
