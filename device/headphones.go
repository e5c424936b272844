// SPDX-License-Identifier: EPL-2.0

package device

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

// Kind selects input or output devices.
type Kind int

const (
	Input Kind = iota
	Output
)

func (k Kind) String() string {
	if k == Output {
		return "output"
	}
	return "input"
}

// Info describes an audio device.
type Info struct {
	Name    string
	Default bool
}

var headphoneWords = []string{"headphone", "headset", "earphone", "earbud", "airpods"}

// IsHeadphoneName reports whether a device name looks like a wired or
// wireless headphone route.
func IsHeadphoneName(name string) bool {
	name = strings.ToLower(name)
	for _, w := range headphoneWords {
		if strings.Contains(name, w) {
			return true
		}
	}
	return false
}

// List enumerates the devices of kind.
func List(kind Kind, log *zap.Logger) ([]Info, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, err := initContext(log)
	if err != nil {
		return nil, err
	}
	defer freeContext(ctx, log)

	dt := malgo.Capture
	if kind == Output {
		dt = malgo.Playback
	}
	devs, err := ctx.Devices(dt)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s devices: %w", ErrNoDevice, kind, err)
	}

	out := make([]Info, 0, len(devs))
	for _, d := range devs {
		out = append(out, Info{Name: d.Name(), Default: d.IsDefault != 0})
	}
	return out, nil
}

// HeadphonesActive reports whether the default output in devs is a
// headphone route.
func HeadphonesActive(devs []Info) bool {
	for _, d := range devs {
		if d.Default {
			return IsHeadphoneName(d.Name)
		}
	}
	return false
}

// DetectingHeadphones reports whether the current default output device is
// a headphone route. Any enumeration failure reads as false.
func DetectingHeadphones() bool {
	devs, err := List(Output, nil)
	if err != nil {
		return false
	}
	return HeadphonesActive(devs)
}
