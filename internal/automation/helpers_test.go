package automation

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/alauto/internal/stats"
	"github.com/nerrad567/alauto/internal/touch"
)

const testThreshold = 0.95

// frame maps a marker to its match score on one screen.
type frame map[Marker]float64

// show returns a frame where every given marker matches perfectly.
func show(markers ...Marker) frame {
	f := frame{}
	for _, m := range markers {
		f[m] = 1
	}
	return f
}

func (f frame) IsVisible(marker string) bool {
	return f.IsVisibleAt(marker, testThreshold)
}

func (f frame) IsVisibleAt(marker string, threshold float64) bool {
	return f[Marker(marker)] >= threshold
}

// fakeOracle replays scripted frames, one per Refresh. Past the end it
// shows an empty screen, or the last frame again when repeat is set.
type fakeOracle struct {
	frames    []frame
	repeat    bool
	refreshes int
	attempts  int
	err       error
	current   frame
}

func newOracle(frames ...frame) *fakeOracle {
	return &fakeOracle{frames: frames, current: frame{}}
}

func (o *fakeOracle) Refresh(context.Context) error {
	o.attempts++
	if o.err != nil {
		return o.err
	}
	switch {
	case o.refreshes < len(o.frames):
		o.current = o.frames[o.refreshes]
	case o.repeat && len(o.frames) > 0:
		o.current = o.frames[len(o.frames)-1]
	default:
		o.current = frame{}
	}
	o.refreshes++
	return nil
}

func (o *fakeOracle) IsVisible(marker string) bool {
	return o.current.IsVisible(marker)
}

func (o *fakeOracle) IsVisibleAt(marker string, threshold float64) bool {
	return o.current.IsVisibleAt(marker, threshold)
}

// fakeClock is advanced by fakeActuator sleeps.
type fakeClock struct {
	t time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// fakeActuator records touches and sleeps without doing either.
type fakeActuator struct {
	clock    *fakeClock
	touches  []touch.Region
	sleeps   []time.Duration
	touchErr error
}

func (a *fakeActuator) Touch(ctx context.Context, r touch.Region) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.touchErr != nil {
		return a.touchErr
	}
	a.touches = append(a.touches, r)
	return nil
}

func (a *fakeActuator) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.sleeps = append(a.sleeps, d)
	if a.clock != nil {
		a.clock.advance(d)
	}
	return nil
}

func (a *fakeActuator) count(r touch.Region) int {
	n := 0
	for _, t := range a.touches {
		if t == r {
			n++
		}
	}
	return n
}

// harness bundles fakes for one task test.
type harness struct {
	oracle   *fakeOracle
	actuator *fakeActuator
	clock    *fakeClock
	stats    *stats.Stats
}

func newHarness(frames ...frame) *harness {
	clock := newClock()
	return &harness{
		oracle:   newOracle(frames...),
		actuator: &fakeActuator{clock: clock},
		clock:    clock,
		stats:    stats.New(),
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Oracle:   h.oracle,
		Actuator: h.actuator,
		Stats:    h.stats,
		Policy:   PollPolicy{MaxIdlePolls: 3, Timeout: time.Hour, PollInterval: 500 * time.Millisecond},
	}
}

// scriptedTask returns canned results and counts calls.
type scriptedTask struct {
	name    TaskName
	signals []Signal
	err     error
	calls   int
}

func (t *scriptedTask) Name() TaskName { return t.name }

func (t *scriptedTask) Run(context.Context) (Signal, error) {
	t.calls++
	sig := SignalNotApplicable
	if len(t.signals) > 0 {
		sig = t.signals[0]
		if len(t.signals) > 1 {
			t.signals = t.signals[1:]
		}
	}
	return sig, t.err
}

// forcibleTask is a scriptedTask that records Force calls.
type forcibleTask struct {
	scriptedTask
	forced int
}

func (t *forcibleTask) Force() { t.forced++ }

var errDevice = errors.New("device gone")
