package automation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nerrad567/alauto/internal/touch"
)

// Combat touch targets.
var (
	battleEntryRegion = touch.Rect(1512, 442, 232, 208)
	evadeRegion       = touch.Rect(1493, 827, 236, 65)
	battleEndRegion   = touch.Rect(1520, 963, 216, 58)
	weighAnchorRegion = touch.Rect(1560, 920, 260, 94)
	fleetGoRegion     = touch.Rect(1576, 838, 224, 70)
)

// inBattleWait is how long to wait before checking an ongoing battle again.
const inBattleWait = 5 * time.Second

// stageRegions locates each supported stage on its chapter map.
var stageRegions = map[string]touch.Region{
	"2-1": touch.Rect(372, 566, 177, 50),
	"2-2": touch.Rect(1050, 390, 177, 50),
	"2-3": touch.Rect(1284, 670, 177, 50),
	"2-4": touch.Rect(604, 288, 177, 50),
	"3-1": touch.Rect(460, 306, 177, 50),
	"3-2": touch.Rect(1178, 266, 177, 50),
	"3-3": touch.Rect(746, 684, 177, 50),
	"3-4": touch.Rect(1386, 564, 177, 50),
}

// KnownMaps returns the stage names Combat can sortie into, sorted.
func KnownMaps() []string {
	maps := make([]string, 0, len(stageRegions))
	for m := range stageRegions {
		maps = append(maps, m)
	}
	sort.Strings(maps)
	return maps
}

type combatState int

const (
	combatOilEmpty combatState = iota
	combatDockFull
	combatAmbush
	combatBattleConfirm
	combatItemFound
	combatBattleStart
	combatInBattle
	combatFleetGo
	combatMapStage
	combatMainMenu
)

var combatStateNames = [...]string{
	"oil_empty", "dock_full", "ambush", "battle_confirm", "item_found",
	"battle_start", "in_battle", "fleet_go", "map_stage", "main_menu",
}

func (s combatState) String() string { return combatStateNames[s] }

// Combat runs one sortie on the configured stage and returns to the main menu.
type Combat struct {
	env
	stage touch.Region
	mapID string
}

// NewCombat creates the combat task for the given stage (e.g. "3-4").
func NewCombat(d Deps, mapID string) (*Combat, error) {
	stage, ok := stageRegions[mapID]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownMap, mapID, KnownMaps())
	}
	return &Combat{env: newEnv(d), stage: stage, mapID: mapID}, nil
}

// Name implements Task.
func (c *Combat) Name() TaskName { return TaskCombat }

func combatRules() []rule[combatState] {
	return []rule[combatState]{
		{combatOilEmpty, visible(MarkerCombatOilEmpty)},
		{combatDockFull, visible(MarkerCombatDockFull)},
		{combatAmbush, visible(MarkerCombatAmbush)},
		{combatBattleConfirm, visible(MarkerCombatBattleConfirm)},
		{combatItemFound, visible(MarkerItemFound)},
		{combatBattleStart, visible(MarkerCombatBattleStart)},
		{combatInBattle, visible(MarkerCombatInBattle)},
		{combatFleetGo, visible(MarkerCombatFleetGo)},
		{combatMapStage, visible(MarkerCombatMapStage)},
		{combatMainMenu, visible(MarkerMenuBattle)},
	}
}

// Run implements Task. It reports SignalExhausted when out of oil and
// SignalBlocked when the dock is full.
func (c *Combat) Run(ctx context.Context) (Signal, error) {
	sig := SignalNotApplicable
	finished := false

	err := drive(ctx, &c.env, "combat", combatRules(), func(ctx context.Context, s combatState) (step, error) {
		switch s {
		case combatOilEmpty:
			c.logger.Info("out of oil, backing off combat")
			sig = SignalExhausted
			return stepDone, c.touch(ctx, dismissRegion)
		case combatDockFull:
			c.logger.Info("dock full, combat needs retirement first")
			sig = SignalBlocked
			return stepDone, c.touch(ctx, dismissRegion)
		case combatAmbush:
			c.logger.Info("ambush, evading")
			return stepContinue, c.touchThenSleep(ctx, evadeRegion, time.Second)
		case combatBattleConfirm:
			finished = true
			return stepContinue, c.touchThenSleep(ctx, battleEndRegion, time.Second)
		case combatItemFound:
			return stepContinue, c.touchThenSleep(ctx, itemFoundRegion, time.Second)
		case combatBattleStart:
			return stepContinue, c.touchThenSleep(ctx, weighAnchorRegion, 2*time.Second)
		case combatInBattle:
			return stepContinue, c.sleep(ctx, inBattleWait)
		case combatFleetGo:
			return stepContinue, c.touchThenSleep(ctx, fleetGoRegion, 2*time.Second)
		case combatMapStage:
			if finished {
				return stepContinue, c.touchThenSleep(ctx, dismissRegion, time.Second)
			}
			c.logger.Info("entering stage", "map", c.mapID)
			return stepContinue, c.touchThenSleep(ctx, c.stage, time.Second)
		case combatMainMenu:
			if finished {
				c.stats.IncCombatDone()
				sig = SignalProgressed
				return stepDone, nil
			}
			return stepContinue, c.touchThenSleep(ctx, battleEntryRegion, 2*time.Second)
		}
		return stepContinue, nil
	})
	return sig, err
}
