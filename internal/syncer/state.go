package syncer

import (
	"errors"
	"fmt"
)

// State is a step of the regeneration workflow
type State int

const (
	Idle State = iota
	Fetching
	Identical
	NoConflict
	Conflict
	Applied
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Identical:
		return "identical"
	case NoConflict:
		return "no-conflict"
	case Conflict:
		return "conflict"
	case Applied:
		return "applied"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	return s == Applied || s == Aborted
}

var (
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrNotConnected       = errors.New("diagram has no id")
	ErrUnresolvedConflict = errors.New("conflict markers present")
)

// transitions lists the legal successors of each state. A failed fetch
// returns to Idle so it can be retried.
var transitions = map[State][]State{
	Idle:       {Fetching, Aborted},
	Fetching:   {Identical, NoConflict, Conflict, Idle},
	Identical:  {Applied, Aborted},
	NoConflict: {Applied, Aborted},
	Conflict:   {Applied, Aborted},
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to State) error {
	if !canTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
