package wydecoder

import "strings"

// Playback direction can be [DirectionNone], [DirectionForward] or
// [DirectionBackward]. DirectionNone is only reported while no source
// is loaded.
type DecodeDirectionKind uint8

// Returns a string representation of the direction
// ("none", "forward", "backward").
func (d DecodeDirectionKind) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "backward"
	default:
		return "none"
	}
}

const (
	DirectionNone DecodeDirectionKind = iota
	DirectionForward
	DirectionBackward
)

// ParseDirection maps "forward" and "backward" (case insensitive) to their
// direction. Anything else yields [DirectionNone] and false.
func ParseDirection(s string) (DecodeDirectionKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward":
		return DirectionForward, true
	case "backward":
		return DirectionBackward, true
	default:
		return DirectionNone, false
	}
}
