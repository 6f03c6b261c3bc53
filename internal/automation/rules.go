package automation

import (
	"context"
	"fmt"
	"time"
)

// Default polling bounds for a single state machine run.
const (
	defaultMaxIdlePolls = 30
	defaultTimeout      = 10 * time.Minute
	defaultPollInterval = 500 * time.Millisecond
)

// stateUnmatched is reported by a StuckError when no rule ever matched.
const stateUnmatched = "unmatched"

// PollPolicy bounds every polling loop so an unresponsive screen becomes a
// StuckError instead of a hang.
type PollPolicy struct {
	// MaxIdlePolls is how many consecutive frames may match no rule.
	MaxIdlePolls int

	// Timeout caps the wall-clock time of one loop.
	Timeout time.Duration

	// PollInterval is slept after a frame that matched nothing.
	PollInterval time.Duration
}

// DefaultPollPolicy returns the standard polling bounds.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		MaxIdlePolls: defaultMaxIdlePolls,
		Timeout:      defaultTimeout,
		PollInterval: defaultPollInterval,
	}
}

func (p PollPolicy) withDefaults() PollPolicy {
	d := DefaultPollPolicy()
	if p.MaxIdlePolls <= 0 {
		p.MaxIdlePolls = d.MaxIdlePolls
	}
	if p.Timeout <= 0 {
		p.Timeout = d.Timeout
	}
	if p.PollInterval <= 0 {
		p.PollInterval = d.PollInterval
	}
	return p
}

// rule maps a frame predicate to a state. Rules are evaluated in slice
// order and the first match wins, so order is the tie-break.
type rule[S any] struct {
	state S
	when  func(f Frame) bool
}

// classify returns the state of the first rule that holds for f.
func classify[S any](f Frame, rules []rule[S]) (S, bool) {
	for _, r := range rules {
		if r.when(f) {
			return r.state, true
		}
	}
	var zero S
	return zero, false
}

// visible is a rule predicate for a single marker at the default threshold.
func visible(m Marker) func(Frame) bool {
	return func(f Frame) bool { return f.IsVisible(string(m)) }
}

// step is the outcome of acting on one recognised state.
type step int

const (
	stepContinue step = iota
	stepDone
)

// drive runs a bounded poll loop: refresh, classify with rules, act.
// It returns when act reports stepDone, act fails, or a bound is hit.
func drive[S fmt.Stringer](ctx context.Context, e *env, machine string, rules []rule[S],
	act func(ctx context.Context, s S) (step, error),
) error {
	start := e.now()
	polls, idle := 0, 0
	last := stateUnmatched

	stuck := func() error {
		return &StuckError{Machine: machine, State: last, Polls: polls, Elapsed: e.now().Sub(start)}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.oracle.Refresh(ctx); err != nil {
			return fmt.Errorf("%s: refreshing screen: %w", machine, err)
		}
		polls++

		s, ok := classify(e.oracle, rules)
		if !ok {
			idle++
			if idle >= e.policy.MaxIdlePolls {
				return stuck()
			}
			if err := e.sleep(ctx, e.policy.PollInterval); err != nil {
				return err
			}
		} else {
			idle = 0
			last = s.String()
			e.logger.Debug("state", "machine", machine, "state", last)

			next, err := act(ctx, s)
			if err != nil {
				return err
			}
			if next == stepDone {
				return nil
			}
		}

		if e.now().Sub(start) >= e.policy.Timeout {
			return stuck()
		}
	}
}
