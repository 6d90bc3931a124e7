// Package stoplight models a traffic light that autonomously toggles
// between red and green on a randomized cadence and lets any number of
// goroutines block until the light turns green.
package stoplight

import (
	"errors"
	"fmt"
)

// Phase is the two-valued state of a light.
type Phase int32

const (
	Red Phase = iota
	Green
)

var ErrUnknownPhase = errors.New("unknown phase")

func (p Phase) String() string {
	switch p {
	case Red:
		return "red"
	case Green:
		return "green"
	}
	return fmt.Sprintf("Phase(%d)", int32(p))
}

// ParsePhase is the inverse of String, used when phases travel as
// message payloads.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "red":
		return Red, nil
	case "green":
		return Green, nil
	}
	return Red, fmt.Errorf("%w: %q", ErrUnknownPhase, s)
}
