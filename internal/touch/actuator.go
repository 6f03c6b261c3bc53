package touch

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Tapper sends a single tap to the device.
type Tapper interface {
	Tap(ctx context.Context, x, y int) error
}

// Logger defines the logging interface for the actuator.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// Actuator performs randomised touches and settle delays.
//
// Touch points are drawn uniformly from the target region and every Sleep is
// lengthened by a uniform jitter so no two runs produce the same timing.
type Actuator struct {
	tapper Tapper
	jitter time.Duration
	logger Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewActuator creates an Actuator that taps through t.
func NewActuator(t Tapper, jitter time.Duration) *Actuator {
	return &Actuator{
		tapper: t,
		jitter: jitter,
		logger: noopLogger{},
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // Touch jitter, not security
	}
}

// SetLogger sets the logger for the actuator.
func (a *Actuator) SetLogger(logger Logger) {
	a.logger = logger
}

// Seed makes touch points and sleep jitter reproducible.
func (a *Actuator) Seed(seed uint64) {
	a.mu.Lock()
	a.rng = rand.New(rand.NewPCG(seed, seed)) //nolint:gosec // Touch jitter, not security
	a.mu.Unlock()
}

// Touch taps a random point inside r.
func (a *Actuator) Touch(ctx context.Context, r Region) error {
	x, y := a.Point(r)
	a.logger.Debug("touch", "region", r.String(), "x", x, "y", y)
	if err := a.tapper.Tap(ctx, x, y); err != nil {
		return fmt.Errorf("touching %s: %w", r, err)
	}
	return nil
}

// Point picks a uniformly random point inside r.
func (a *Actuator) Point(r Region) (int, int) {
	if r.Width <= 0 || r.Height <= 0 {
		return r.X, r.Y
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return r.X + a.rng.IntN(r.Width), r.Y + a.rng.IntN(r.Height)
}

// Sleep blocks for d plus jitter, or until ctx is done.
func (a *Actuator) Sleep(ctx context.Context, d time.Duration) error {
	d += a.randomJitter()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (a *Actuator) randomJitter() time.Duration {
	if a.jitter <= 0 {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return time.Duration(a.rng.Int64N(int64(a.jitter)))
}
