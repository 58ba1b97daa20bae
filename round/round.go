// Package round implements the fixed linear round sequence a room
// moves through. All functions are pure; host-only enforcement of the
// advance operation is up to the caller.
package round

import "github.com/tcriess/gift-circle/types"

// Next returns the successor of current in the fixed sequence, or ""
// at the terminal round (ok is false then and for unknown rounds).
func Next(current types.Round) (types.Round, bool) {
	for i, r := range types.RoundSequence {
		if r == current {
			if i == len(types.RoundSequence)-1 {
				return "", false
			}
			return types.RoundSequence[i+1], true
		}
	}
	return "", false
}

// CanAdvance reports whether current has a successor.
func CanAdvance(current types.Round) bool {
	_, ok := Next(current)
	return ok
}

// IsValidTransition holds only for immediate successor pairs.
func IsValidTransition(from, to types.Round) bool {
	next, ok := Next(from)
	return ok && next == to
}

// IsTerminal reports whether r is the final round of the sequence.
func IsTerminal(r types.Round) bool {
	return r == types.RoundSequence[len(types.RoundSequence)-1]
}
