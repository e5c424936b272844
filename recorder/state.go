// SPDX-License-Identifier: EPL-2.0

package recorder

import "fmt"

// State is the single authoritative engine state. At most one recording or
// one playback is active at a time; Normal means neither.
type State int32

const (
	Normal State = iota
	Recording
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case Recording:
		return "recording"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}
