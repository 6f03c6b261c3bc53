package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/alauto/internal/touch"
)

// Retirement touch targets.
var (
	retireMenuRegion      = touch.Rect(549, 735, 215, 64)
	buildMenuRegion       = touch.Rect(1452, 1007, 198, 52)
	retireTabRegion       = touch.Rect(20, 661, 115, 99)
	sortPanelRegion       = touch.Rect(1655, 14, 130, 51)
	sortCommonRegion      = touch.Rect(672, 724, 185, 41)
	sortRareRegion        = touch.Rect(911, 724, 185, 41)
	sortConfirmRegion     = touch.Rect(1090, 969, 220, 60)
	retireConfirmRegion   = touch.Rect(1510, 978, 216, 54)
	retireInfoBonusRegion = touch.Rect(1412, 938, 218, 61)
	retireInfoRegion      = touch.Rect(1320, 785, 232, 62)
	disassembleRegion     = touch.Rect(1099, 827, 225, 58)
)

// shipSlots is the number of dock grid slots selected per batch.
const shipSlots = 7

// itemFoundPerBatch is how many reward popups end one retirement batch.
const itemFoundPerBatch = 2

// shipSlotRegion returns the i-th grid slot, counting left to right.
func shipSlotRegion(i int) touch.Region {
	return touch.Rect(209+i*248, 238, 70, 72)
}

// retireState is the screen the retirement entry loop recognises.
type retireState int

const (
	retireSortButton retireState = iota
	retireMainMenu
	retireBuildMenu
	retireDock
)

var retireStateNames = [...]string{"sort_button", "main_menu", "build_menu", "dock"}

func (s retireState) String() string { return retireStateNames[s] }

// retireShipsState is a screen inside the dock.
type retireShipsState int

const (
	shipsOpenSort retireShipsState = iota
	shipsToggleSort
	shipsSortConfirmed
	shipsEmpty
	shipsSelect
	shipsBonus
)

var retireShipsStateNames = [...]string{"open_sort", "toggle_sort", "sort_confirmed", "empty", "select", "bonus"}

func (s retireShipsState) String() string { return retireShipsStateNames[s] }

// retireConfirmState is a popup in the retirement confirmation chain.
type retireConfirmState int

const (
	confirmInfoBonus retireConfirmState = iota
	confirmItemFound
	confirmInfo
	confirmDisassemble
)

var retireConfirmStateNames = [...]string{"info_bonus", "item_found", "info", "disassemble"}

func (s retireConfirmState) String() string { return retireConfirmStateNames[s] }

// Retirement clears the dock of common and rare ships every retireCycle combats.
type Retirement struct {
	env
	retireCycle int

	// sorted is set once the dock sort filter is known to be correct and
	// stays set for the lifetime of the value.
	sorted bool

	// forced overrides the combat count for the next Run only.
	forced bool
}

// NewRetirement creates the retirement task.
func NewRetirement(d Deps, retireCycle int) (*Retirement, error) {
	if retireCycle < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRetireCycle, retireCycle)
	}
	return &Retirement{env: newEnv(d), retireCycle: retireCycle}, nil
}

// Name implements Task.
func (r *Retirement) Name() TaskName { return TaskRetirement }

// Sorted reports whether the dock sort filter has been configured.
func (r *Retirement) Sorted() bool { return r.sorted }

// Force makes the next Run retire regardless of the combat count.
func (r *Retirement) Force() { r.forced = true }

// NeedToRetire reports whether a retirement is forced or the combat count
// has reached a retirement point. It is evaluated fresh on every call.
func (r *Retirement) NeedToRetire() bool {
	return r.forced || r.stats.CombatDone()%r.retireCycle == 0
}

func (r *Retirement) entryRules() []rule[retireState] {
	return []rule[retireState]{
		{retireSortButton, visible(MarkerMenuSortButton)},
		{retireMainMenu, visible(MarkerMenuBattle)},
		{retireBuildMenu, visible(MarkerMenuBuild)},
		{retireDock, visible(MarkerRetireSelectedNone)},
	}
}

func (r *Retirement) shipsRules() []rule[retireShipsState] {
	return []rule[retireShipsState]{
		{shipsOpenSort, func(f Frame) bool {
			return f.IsVisible(string(MarkerRetireSelectedNone)) && !r.sorted
		}},
		{shipsToggleSort, func(f Frame) bool {
			return f.IsVisibleAt(string(MarkerRetireSortAll), sortAllThreshold)
		}},
		{shipsSortConfirmed, func(f Frame) bool {
			return f.IsVisible(string(MarkerRetireSortCommon)) && f.IsVisible(string(MarkerRetireSortRare))
		}},
		{shipsEmpty, visible(MarkerRetireEmpty)},
		{shipsSelect, visible(MarkerRetireSelectedNone)},
		{shipsBonus, visible(MarkerRetireBonus)},
	}
}

func confirmRules() []rule[retireConfirmState] {
	return []rule[retireConfirmState]{
		{confirmInfoBonus, visible(MarkerRetireInfoBonus)},
		{confirmItemFound, visible(MarkerItemFound)},
		{confirmInfo, visible(MarkerRetireInfo)},
		{confirmDisassemble, visible(MarkerRetireDisassemble)},
	}
}

// Run implements Task. From the main menu it returns SignalNotApplicable
// unless a retirement is due. A pending Force is consumed either way.
func (r *Retirement) Run(ctx context.Context) (Signal, error) {
	defer func() { r.forced = false }()
	sig := SignalNotApplicable

	err := drive(ctx, &r.env, "retirement", r.entryRules(), func(ctx context.Context, s retireState) (step, error) {
		switch s {
		case retireSortButton:
			return stepContinue, r.touchThenSleep(ctx, retireMenuRegion, 2*time.Second)
		case retireMainMenu:
			if !r.NeedToRetire() {
				return stepDone, nil
			}
			return stepContinue, r.touchThenSleep(ctx, buildMenuRegion, 2*time.Second)
		case retireBuildMenu:
			return stepContinue, r.touchThenSleep(ctx, retireTabRegion, 2*time.Second)
		case retireDock:
			if err := r.retireShips(ctx); err != nil {
				return stepDone, err
			}
			sig = SignalProgressed
			return stepDone, r.touch(ctx, dismissRegion)
		}
		return stepContinue, nil
	})
	return sig, err
}

// retireShips works the dock until nothing is left to retire.
func (r *Retirement) retireShips(ctx context.Context) error {
	return drive(ctx, &r.env, "retirement.ships", r.shipsRules(), func(ctx context.Context, s retireShipsState) (step, error) {
		switch s {
		case shipsOpenSort:
			r.logger.Info("opening sorting menu")
			return stepContinue, r.touch(ctx, sortPanelRegion)
		case shipsToggleSort:
			r.logger.Info("changing sorting options for retirement")
			if err := r.touchThenSleep(ctx, sortCommonRegion, 500*time.Millisecond); err != nil {
				return stepDone, err
			}
			return stepContinue, r.touchThenSleep(ctx, sortRareRegion, 500*time.Millisecond)
		case shipsSortConfirmed:
			r.logger.Info("sorting options for retirement are correct")
			r.sorted = true
			return stepContinue, r.touchThenSleep(ctx, sortConfirmRegion, time.Second)
		case shipsEmpty:
			r.logger.Info("no ships left to retire")
			return stepDone, r.touch(ctx, dismissRegion)
		case shipsSelect:
			return stepContinue, r.selectShips(ctx)
		case shipsBonus:
			if err := r.handleRetirement(ctx); err != nil {
				return stepDone, err
			}
			r.stats.IncRetirementBatches()
		}
		return stepContinue, nil
	})
}

// selectShips touches every grid slot once, left to right.
func (r *Retirement) selectShips(ctx context.Context) error {
	r.logger.Info("selecting ships for retirement")
	for i := range shipSlots {
		if err := r.touch(ctx, shipSlotRegion(i)); err != nil {
			return err
		}
	}
	return nil
}

// handleRetirement confirms the selection and walks the popup chain until
// the second reward popup has been acknowledged.
func (r *Retirement) handleRetirement(ctx context.Context) error {
	if err := r.touch(ctx, retireConfirmRegion); err != nil {
		return err
	}

	found := 0
	return drive(ctx, &r.env, "retirement.confirm", confirmRules(), func(ctx context.Context, s retireConfirmState) (step, error) {
		switch s {
		case confirmInfoBonus:
			return stepContinue, r.touchThenSleep(ctx, retireInfoBonusRegion, time.Second)
		case confirmItemFound:
			if err := r.touchThenSleep(ctx, itemFoundRegion, time.Second); err != nil {
				return stepDone, err
			}
			found++
			if found >= itemFoundPerBatch {
				return stepDone, nil
			}
		case confirmInfo:
			return stepContinue, r.touchThenSleep(ctx, retireInfoRegion, time.Second)
		case confirmDisassemble:
			return stepContinue, r.touchThenSleep(ctx, disassembleRegion, time.Second)
		}
		return stepContinue, nil
	})
}
