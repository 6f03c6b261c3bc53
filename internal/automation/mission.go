package automation

import (
	"context"
	"time"

	"github.com/nerrad567/alauto/internal/touch"
)

var (
	missionAlertRegion      = touch.Rect(1020, 960, 116, 105)
	missionCollectAllRegion = touch.Rect(1642, 132, 210, 72)
)

type missionState int

const (
	missionMainMenu missionState = iota
	missionCollectAll
	missionItemFound
	missionList
)

var missionStateNames = [...]string{"main_menu", "collect_all", "item_found", "list"}

func (s missionState) String() string { return missionStateNames[s] }

// Missions collects completed mission rewards.
type Missions struct {
	env
}

// NewMissions creates the missions task.
func NewMissions(d Deps) *Missions {
	return &Missions{env: newEnv(d)}
}

// Name implements Task.
func (m *Missions) Name() TaskName { return TaskMissions }

func missionRules() []rule[missionState] {
	return []rule[missionState]{
		{missionMainMenu, visible(MarkerMenuBattle)},
		{missionCollectAll, visible(MarkerMissionCollectAll)},
		{missionItemFound, visible(MarkerItemFound)},
		{missionList, visible(MarkerMissionList)},
	}
}

// Run implements Task.
func (m *Missions) Run(ctx context.Context) (Signal, error) {
	entered := false
	collected := 0

	err := drive(ctx, &m.env, "missions", missionRules(), func(ctx context.Context, s missionState) (step, error) {
		switch s {
		case missionMainMenu:
			if entered {
				return stepDone, nil
			}
			entered = true
			return stepContinue, m.touchThenSleep(ctx, missionAlertRegion, 2*time.Second)
		case missionCollectAll:
			m.logger.Info("collecting mission rewards")
			m.stats.IncMissionsCollected()
			collected++
			return stepContinue, m.touchThenSleep(ctx, missionCollectAllRegion, time.Second)
		case missionItemFound:
			return stepContinue, m.touchThenSleep(ctx, itemFoundRegion, time.Second)
		case missionList:
			entered = true
			return stepContinue, m.touchThenSleep(ctx, dismissRegion, time.Second)
		}
		return stepContinue, nil
	})
	if collected > 0 {
		return SignalProgressed, err
	}
	return SignalNotApplicable, err
}
