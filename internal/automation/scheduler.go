package automation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nerrad567/alauto/internal/stats"
)

// maxConsecutiveCycleFailures is how many cycles in a row may fail on the
// device before Run gives up.
const maxConsecutiveCycleFailures = 10

// SchedulerConfig contains the top-level loop tunables.
type SchedulerConfig struct {
	// IdleInterval is slept when nothing ran in a cycle.
	IdleInterval time.Duration

	// CombatBackoff delays combat after it reports SignalExhausted, or
	// SignalBlocked that retirement could not clear.
	CombatBackoff time.Duration

	// PollInterval is slept after a failed cycle.
	PollInterval time.Duration
}

// DefaultSchedulerConfig returns the standard intervals.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		IdleInterval:  60 * time.Second,
		CombatBackoff: time.Hour,
		PollInterval:  defaultPollInterval,
	}
}

// Tasks holds the enabled tasks. A nil field is a disabled task and is
// never invoked.
type Tasks struct {
	Combat      Task
	Commissions Task
	Missions    Task
	Retirement  Task
}

// CycleResult describes what one scheduler cycle did.
type CycleResult struct {
	// RefreshFailed is set when the screen could not be captured.
	RefreshFailed bool

	// Interstitial is set when the cycle only dismissed an overlay.
	Interstitial bool

	// Ran lists the tasks invoked, in order.
	Ran []TaskName

	// Slept is set when the cycle ended in the idle sleep.
	Slept bool
}

// Scheduler decides once per cycle which task advances.
//
// Priority is fixed: interstitial > commissions > missions > combat >
// retirement > idle sleep. Combat is the only task that falls through to
// the next trigger in the same cycle.
type Scheduler struct {
	oracle   Oracle
	actuator Actuator
	stats    *stats.Stats
	tasks    Tasks
	cfg      SchedulerConfig
	recorder *Recorder
	report   io.Writer
	logger   Logger
	now      func() time.Time

	nextCombat time.Time

	// printStats is raised when a task makes progress and cleared when
	// the report is written.
	printStats bool
}

// NewScheduler creates a Scheduler. Combat is due immediately.
func NewScheduler(oracle Oracle, actuator Actuator, st *stats.Stats, tasks Tasks, cfg SchedulerConfig) *Scheduler {
	d := DefaultSchedulerConfig()
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = d.IdleInterval
	}
	if cfg.CombatBackoff <= 0 {
		cfg.CombatBackoff = d.CombatBackoff
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = d.PollInterval
	}
	if st == nil {
		st = stats.New()
	}

	s := &Scheduler{
		oracle:   oracle,
		actuator: actuator,
		stats:    st,
		tasks:    tasks,
		cfg:      cfg,
		report:   os.Stdout,
		logger:   noopLogger{},
		now:      time.Now,
	}
	s.nextCombat = s.now()
	return s
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	s.logger = logger
}

// SetRecorder sets where task runs and statistics are reported.
func (s *Scheduler) SetRecorder(r *Recorder) {
	s.recorder = r
}

// SetReportWriter sets where the statistics report is printed.
func (s *Scheduler) SetReportWriter(w io.Writer) {
	s.report = w
}

// NextCombat returns the earliest time combat may run again.
func (s *Scheduler) NextCombat() time.Time {
	return s.nextCombat
}

// Run loops RunCycle until ctx is cancelled, which is returned as ctx.Err().
// Device errors are retried; a long run of them is returned wrapped.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"combat", s.tasks.Combat != nil,
		"commissions", s.tasks.Commissions != nil,
		"missions", s.tasks.Missions != nil,
		"retirement", s.tasks.Retirement != nil,
	)

	failures := 0
	for {
		_, err := s.RunCycle(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.logger.Info("scheduler stopped")
			return ctxErr
		}
		if err == nil {
			failures = 0
			continue
		}

		failures++
		s.logger.Error("cycle failed", "error", err, "consecutive", failures)
		if failures >= maxConsecutiveCycleFailures {
			return fmt.Errorf("scheduler: %d consecutive cycle failures: %w", failures, err)
		}
		if sleepErr := s.actuator.Sleep(ctx, s.cfg.PollInterval); sleepErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("scheduler: %w", sleepErr)
		}
	}
}

// RunCycle makes one scheduling decision against a single captured frame.
func (s *Scheduler) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult

	if err := s.oracle.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.RefreshFailed = true
		return res, fmt.Errorf("refreshing screen: %w", err)
	}

	if s.oracle.IsVisible(string(MarkerMapHardMode)) {
		s.logger.Info("dismissing interstitial overlay")
		res.Interstitial = true
		return res, s.actuator.Touch(ctx, dismissRegion)
	}
	if !s.oracle.IsVisible(string(MarkerMenuBattle)) {
		// Also reached when the game is not in the foreground at all.
		s.logger.Warn("main menu not visible, touching dismiss")
		res.Interstitial = true
		return res, s.actuator.Touch(ctx, dismissRegion)
	}

	if s.tasks.Commissions != nil && s.oracle.IsVisible(string(MarkerCommissionIndicator)) {
		if _, ok, err := s.runTask(ctx, s.tasks.Commissions, &res); !ok {
			return res, err
		}
		s.flushStats()
		return res, nil
	}

	if s.tasks.Missions != nil && s.oracle.IsVisible(string(MarkerMissionIndicator)) {
		_, _, err := s.runTask(ctx, s.tasks.Missions, &res)
		return res, err
	}

	blocked := false
	if s.tasks.Combat != nil && !s.now().Before(s.nextCombat) {
		sig, ok, err := s.runTask(ctx, s.tasks.Combat, &res)
		if !ok {
			return res, err
		}
		switch sig {
		case SignalExhausted:
			s.backOffCombat("combat exhausted, backing off")
		case SignalBlocked:
			blocked = true
		}
		s.flushStats()
	}

	if s.tasks.Retirement != nil {
		if f, ok := s.tasks.Retirement.(Forcer); ok && blocked {
			f.Force()
		}
		sig, ok, err := s.runTask(ctx, s.tasks.Retirement, &res)
		if blocked && ok && sig != SignalProgressed {
			s.backOffCombat("combat blocked and retirement cleared nothing, backing off")
		}
		return res, err
	}
	if blocked {
		s.backOffCombat("combat blocked with retirement disabled, backing off")
	}

	s.logger.Info("nothing to do, sleeping", "interval", s.cfg.IdleInterval)
	s.flushStats()
	res.Slept = true
	return res, s.actuator.Sleep(ctx, s.cfg.IdleInterval)
}

// runTask invokes t, journals the run and recovers from task failures with
// a screen-reset touch. ok is false when the task failed, in which case the
// cycle ends; only context and reset-touch errors are returned.
func (s *Scheduler) runTask(ctx context.Context, t Task, res *CycleResult) (sig Signal, ok bool, err error) {
	started := s.now()
	sig, err = t.Run(ctx)
	finished := s.now()

	res.Ran = append(res.Ran, t.Name())
	if sig == SignalProgressed || sig == SignalExhausted {
		s.printStats = true
	}

	run := &TaskRun{
		Task:       t.Name(),
		Signal:     sig.String(),
		StartedAt:  started,
		FinishedAt: finished,
		DurationMS: finished.Sub(started).Milliseconds(),
		CombatDone: s.stats.CombatDone(),
	}
	if err != nil {
		run.Error = err.Error()
	}
	if s.recorder != nil {
		s.recorder.RecordRun(context.WithoutCancel(ctx), run)
	}

	s.logger.Debug("task finished", "task", t.Name(), "signal", sig, "duration_ms", run.DurationMS)

	if err == nil {
		return sig, true, nil
	}
	if ctx.Err() != nil {
		return sig, false, ctx.Err()
	}

	if errors.Is(err, ErrStuck) {
		s.logger.Warn("task stuck, resetting screen", "task", t.Name(), "error", err)
	} else {
		s.logger.Error("task failed, resetting screen", "task", t.Name(), "error", err)
	}
	s.stats.IncStuckRecoveries()

	if touchErr := s.actuator.Touch(ctx, dismissRegion); touchErr != nil {
		return sig, false, fmt.Errorf("resetting screen after %s: %w", t.Name(), touchErr)
	}
	return sig, false, nil
}

// backOffCombat delays the next combat run by CombatBackoff.
func (s *Scheduler) backOffCombat(msg string) {
	s.nextCombat = s.now().Add(s.cfg.CombatBackoff)
	s.logger.Info(msg, "next_combat", s.nextCombat.Format(time.RFC3339))
}

// flushStats prints and publishes the statistics if a task progressed
// since the last report.
func (s *Scheduler) flushStats() {
	if !s.printStats {
		return
	}
	s.printStats = false

	snap := s.stats.Snapshot()
	if err := snap.Print(s.report); err != nil {
		s.logger.Warn("failed to print statistics", "error", err)
	}
	if s.recorder != nil {
		s.recorder.RecordStats(snap)
	}
}
