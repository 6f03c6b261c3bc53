package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/alauto/internal/stats"
)

// Measurement names.
const (
	measurementTaskRun = "task_run"
	measurementStats   = "bot_stats"
)

// WriteTaskRun records one task invocation.
//
// Tags are low cardinality (task and signal); duration and failure are
// fields so they can be aggregated per task.
func (c *Client) WriteTaskRun(task, signal string, duration time.Duration, failed bool, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(taskRunPoint(task, signal, duration, failed, at))
}

// WriteStats records a statistics snapshot. Counters are written as
// cumulative values; use difference() in Flux for rates.
func (c *Client) WriteStats(snap stats.Snapshot) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(statsPoint(snap, time.Now()))
}

func taskRunPoint(task, signal string, duration time.Duration, failed bool, at time.Time) *write.Point {
	return write.NewPoint(
		measurementTaskRun,
		map[string]string{
			"task":   task,
			"signal": signal,
		},
		map[string]interface{}{
			"duration_ms": duration.Milliseconds(),
			"failed":      failed,
		},
		at,
	)
}

func statsPoint(snap stats.Snapshot, at time.Time) *write.Point {
	return write.NewPoint(
		measurementStats,
		nil,
		map[string]interface{}{
			"uptime_s":             int64(snap.Uptime.Seconds()),
			"combat_done":          snap.CombatDone,
			"commissions_received": snap.CommissionsReceived,
			"commissions_started":  snap.CommissionsStarted,
			"missions_collected":   snap.MissionsCollected,
			"retirement_batches":   snap.RetirementBatches,
			"stuck_recoveries":     snap.StuckRecoveries,
		},
		at,
	)
}
