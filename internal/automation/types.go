package automation

import (
	"context"
	"time"

	"github.com/nerrad567/alauto/internal/stats"
	"github.com/nerrad567/alauto/internal/touch"
)

// Signal is the coarse outcome a task reports to the scheduler.
type Signal int

// Task outcomes.
const (
	// SignalNotApplicable means the task had nothing to do.
	SignalNotApplicable Signal = iota

	// SignalProgressed means the task did useful work.
	SignalProgressed

	// SignalExhausted means the task cannot run again for a while
	// (combat: out of oil). The scheduler backs off.
	SignalExhausted

	// SignalBlocked means the task cannot continue until another task
	// clears the way (combat: dock full). The scheduler forces retirement.
	SignalBlocked
)

// String returns the lowercase signal name used in logs and the journal.
func (s Signal) String() string {
	switch s {
	case SignalNotApplicable:
		return "not_applicable"
	case SignalProgressed:
		return "progressed"
	case SignalExhausted:
		return "exhausted"
	case SignalBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// TaskName identifies an automatable workflow.
type TaskName string

// Task names.
const (
	TaskCombat      TaskName = "combat"
	TaskCommissions TaskName = "commissions"
	TaskMissions    TaskName = "missions"
	TaskRetirement  TaskName = "retirement"
)

// Marker names a reference image, resolved by the oracle to <assets>/<marker>.png.
type Marker string

// Main menu and shared popups.
const (
	MarkerMenuBattle          Marker = "menu_battle"
	MarkerMapHardMode         Marker = "map_hard_mode"
	MarkerCommissionIndicator Marker = "commission_indicator"
	MarkerMissionIndicator    Marker = "mission_indicator"
	MarkerItemFound           Marker = "item_found"
)

// Retirement screens.
const (
	MarkerMenuSortButton     Marker = "menu_sort_button"
	MarkerMenuBuild          Marker = "menu_build"
	MarkerRetireSelectedNone Marker = "retire_selected_none"
	MarkerRetireSortAll      Marker = "retire_sort_all"
	MarkerRetireSortCommon   Marker = "retire_sort_common"
	MarkerRetireSortRare     Marker = "retire_sort_rare"
	MarkerRetireEmpty        Marker = "retire_empty"
	MarkerRetireBonus        Marker = "retire_bonus"
	MarkerRetireInfoBonus    Marker = "retire_info_bonus"
	MarkerRetireInfo         Marker = "retire_info"
	MarkerRetireDisassemble  Marker = "retire_disassemble"
)

// Combat screens.
const (
	MarkerCombatOilEmpty      Marker = "combat_oil_empty"
	MarkerCombatDockFull      Marker = "combat_dock_full"
	MarkerCombatAmbush        Marker = "combat_ambush"
	MarkerCombatBattleConfirm Marker = "combat_battle_confirm"
	MarkerCombatBattleStart   Marker = "combat_battle_start"
	MarkerCombatInBattle      Marker = "combat_in_battle"
	MarkerCombatFleetGo       Marker = "combat_fleet_go"
	MarkerCombatMapStage      Marker = "combat_map_stage"
)

// Commission and mission screens.
const (
	MarkerCommissionCompleted      Marker = "commission_completed"
	MarkerCommissionStartAvailable Marker = "commission_start_available"
	MarkerCommissionList           Marker = "commission_list"
	MarkerMissionCollectAll        Marker = "mission_collect_all"
	MarkerMissionList              Marker = "mission_list"
)

// sortAllThreshold is stricter than the default because the "sort: all"
// control looks almost identical to its neighbours.
const sortAllThreshold = 0.99

// Shared touch targets (1920x1080 client layout).
var (
	// dismissRegion is the back button in the top-left corner. It also
	// closes most overlays.
	dismissRegion = touch.Rect(54, 57, 67, 67)

	itemFoundRegion = touch.Rect(661, 840, 598, 203)
)

// Frame answers visibility queries against one captured screen.
type Frame interface {
	IsVisible(marker string) bool
	IsVisibleAt(marker string, threshold float64) bool
}

// Oracle is a Frame that can capture a new screen.
type Oracle interface {
	Frame
	Refresh(ctx context.Context) error
}

// Actuator performs touches and settle delays on the device.
type Actuator interface {
	Touch(ctx context.Context, r touch.Region) error
	Sleep(ctx context.Context, d time.Duration) error
}

// Task is one automatable workflow. Run drives the task's state machine
// until it reaches a terminal state or an early return.
type Task interface {
	Name() TaskName
	Run(ctx context.Context) (Signal, error)
}

// Forcer is a Task whose own trigger can be overridden for its next Run.
type Forcer interface {
	Force()
}

// Logger defines the logging interface for the automation package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps are the collaborators shared by every task.
type Deps struct {
	Oracle   Oracle
	Actuator Actuator
	Stats    *stats.Stats
	Policy   PollPolicy

	// Logger may be nil.
	Logger Logger
}

// env is the per-task view of Deps plus an injectable clock.
type env struct {
	oracle   Oracle
	actuator Actuator
	stats    *stats.Stats
	policy   PollPolicy
	logger   Logger
	now      func() time.Time
}

func newEnv(d Deps) env {
	e := env{
		oracle:   d.Oracle,
		actuator: d.Actuator,
		stats:    d.Stats,
		policy:   d.Policy.withDefaults(),
		logger:   d.Logger,
		now:      time.Now,
	}
	if e.logger == nil {
		e.logger = noopLogger{}
	}
	if e.stats == nil {
		e.stats = stats.New()
	}
	return e
}

func (e *env) visible(m Marker) bool {
	return e.oracle.IsVisible(string(m))
}

func (e *env) touch(ctx context.Context, r touch.Region) error {
	return e.actuator.Touch(ctx, r)
}

func (e *env) sleep(ctx context.Context, d time.Duration) error {
	return e.actuator.Sleep(ctx, d)
}

// touchThenSleep is the common "tap and let the animation settle" step.
func (e *env) touchThenSleep(ctx context.Context, r touch.Region, d time.Duration) error {
	if err := e.touch(ctx, r); err != nil {
		return err
	}
	return e.sleep(ctx, d)
}
