package automation

import (
	"context"
	"time"

	"github.com/nerrad567/alauto/internal/touch"
)

var (
	commissionAlertRegion = touch.Rect(0, 236, 66, 72)
	commissionClaimRegion = touch.Rect(1512, 302, 210, 72)
	commissionStartRegion = touch.Rect(1512, 430, 210, 72)
)

type commissionState int

const (
	commissionMainMenu commissionState = iota
	commissionCompleted
	commissionItemFound
	commissionStartAvailable
	commissionList
)

var commissionStateNames = [...]string{"main_menu", "completed", "item_found", "start_available", "list"}

func (s commissionState) String() string { return commissionStateNames[s] }

// Commissions claims finished commissions and, optionally, starts new ones.
type Commissions struct {
	env
	startNew bool
}

// NewCommissions creates the commissions task.
func NewCommissions(d Deps, startNew bool) *Commissions {
	return &Commissions{env: newEnv(d), startNew: startNew}
}

// Name implements Task.
func (c *Commissions) Name() TaskName { return TaskCommissions }

func (c *Commissions) rules() []rule[commissionState] {
	return []rule[commissionState]{
		{commissionMainMenu, visible(MarkerMenuBattle)},
		{commissionCompleted, visible(MarkerCommissionCompleted)},
		{commissionItemFound, visible(MarkerItemFound)},
		{commissionStartAvailable, func(f Frame) bool {
			return c.startNew && f.IsVisible(string(MarkerCommissionStartAvailable))
		}},
		{commissionList, visible(MarkerCommissionList)},
	}
}

// Run implements Task. It reports SignalProgressed when at least one
// commission was claimed or started.
func (c *Commissions) Run(ctx context.Context) (Signal, error) {
	entered := false
	worked := 0

	err := drive(ctx, &c.env, "commissions", c.rules(), func(ctx context.Context, s commissionState) (step, error) {
		switch s {
		case commissionMainMenu:
			if entered {
				return stepDone, nil
			}
			entered = true
			return stepContinue, c.touchThenSleep(ctx, commissionAlertRegion, 2*time.Second)
		case commissionCompleted:
			c.logger.Info("commission completed")
			c.stats.IncCommissionsReceived()
			worked++
			return stepContinue, c.touchThenSleep(ctx, commissionClaimRegion, time.Second)
		case commissionItemFound:
			return stepContinue, c.touchThenSleep(ctx, itemFoundRegion, time.Second)
		case commissionStartAvailable:
			c.logger.Info("starting commission")
			c.stats.IncCommissionsStarted()
			worked++
			return stepContinue, c.touchThenSleep(ctx, commissionStartRegion, time.Second)
		case commissionList:
			entered = true
			return stepContinue, c.touchThenSleep(ctx, dismissRegion, time.Second)
		}
		return stepContinue, nil
	})
	if worked > 0 {
		return SignalProgressed, err
	}
	return SignalNotApplicable, err
}
