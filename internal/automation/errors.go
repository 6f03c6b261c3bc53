package automation

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrStuck) {
//	    // reset the screen and carry on
//	}
var (
	// ErrStuck is matched by every *StuckError.
	ErrStuck = errors.New("automation: stuck")

	// ErrUnknownMap is returned when the combat map has no known stage target.
	ErrUnknownMap = errors.New("automation: unknown combat map")

	// ErrInvalidRetireCycle is returned when retire_cycle is below 1.
	ErrInvalidRetireCycle = errors.New("automation: retire cycle must be at least 1")

	// ErrRunNotFound is returned when a journal entry does not exist.
	ErrRunNotFound = errors.New("automation: task run not found")
)

// StuckError reports a state machine that stopped making observable
// progress: too many frames in a row matched no rule, or the run exceeded
// its wall-clock budget.
type StuckError struct {
	// Machine names the loop that gave up (e.g. "retirement.ships").
	Machine string
	// State is the last state the machine recognised, or "unmatched".
	State string
	// Polls is the number of frames inspected.
	Polls int
	// Elapsed is the time spent in the loop.
	Elapsed time.Duration
}

func (e *StuckError) Error() string {
	return fmt.Sprintf("%s stuck in state %s after %d polls (%s)",
		e.Machine, e.State, e.Polls, e.Elapsed.Round(time.Millisecond))
}

// Is reports whether target is ErrStuck.
func (e *StuckError) Is(target error) bool {
	return target == ErrStuck
}
