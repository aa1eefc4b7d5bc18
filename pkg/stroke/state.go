// Package stroke implements the behavior of the stroke counter head unit:
// debounced input sampling, packet emission, command handling, and the single
// poll loop that owns all mutable state. The package is hardware-agnostic so
// the same code runs under TinyGo on the MCU and under the host test suite.
package stroke

import (
	"github.com/spservicesgroupinc-blip/RR-FOAM-PRO-APP/pkg/packet"
)

// Channel identifies one of the two counted foam channels.
type Channel int

const (
	OpenCell Channel = iota
	ClosedCell
)

// Foam returns the wire tag for the channel.
func (c Channel) Foam() string {
	if c == ClosedCell {
		return packet.FoamClosedCell
	}
	return packet.FoamOpenCell
}

// State holds all mutable counter state, owned exclusively by the poll loop.
// Counters wrap at the uint32 boundary; no upper bound is enforced.
type State struct {
	OC    uint32
	CC    uint32
	JobID string
}

// Increment bumps the counter for ch and returns its new value.
func (s *State) Increment(ch Channel) uint32 {
	if ch == ClosedCell {
		s.CC++
		return s.CC
	}
	s.OC++
	return s.OC
}

// Reset zeroes both counters. The active job id is deliberately kept.
func (s *State) Reset() {
	s.OC = 0
	s.CC = 0
}
