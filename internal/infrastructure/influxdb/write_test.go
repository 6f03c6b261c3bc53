package influxdb

import (
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/alauto/internal/stats"
)

func tags(p *write.Point) map[string]string {
	out := map[string]string{}
	for _, tag := range p.TagList() {
		out[tag.Key] = tag.Value
	}
	return out
}

func fields(p *write.Point) map[string]any {
	out := map[string]any{}
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func TestTaskRunPoint(t *testing.T) {
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	p := taskRunPoint("retirement", "progressed", 1500*time.Millisecond, true, at)

	if p.Name() != measurementTaskRun {
		t.Errorf("Name() = %q, want %q", p.Name(), measurementTaskRun)
	}
	if !p.Time().Equal(at) {
		t.Errorf("Time() = %v, want %v", p.Time(), at)
	}

	gotTags := tags(p)
	if gotTags["task"] != "retirement" || gotTags["signal"] != "progressed" {
		t.Errorf("tags = %v", gotTags)
	}

	gotFields := fields(p)
	if gotFields["duration_ms"] != int64(1500) {
		t.Errorf("duration_ms = %v (%T), want 1500", gotFields["duration_ms"], gotFields["duration_ms"])
	}
	if gotFields["failed"] != true {
		t.Errorf("failed = %v, want true", gotFields["failed"])
	}
}

func TestStatsPoint(t *testing.T) {
	snap := stats.Snapshot{
		Uptime:            90 * time.Minute,
		CombatDone:        12,
		MissionsCollected: 3,
		StuckRecoveries:   1,
	}
	p := statsPoint(snap, time.Now())

	if p.Name() != measurementStats {
		t.Errorf("Name() = %q, want %q", p.Name(), measurementStats)
	}
	if len(p.TagList()) != 0 {
		t.Errorf("tags = %v, want none", tags(p))
	}

	tests := map[string]int64{
		"uptime_s":             5400,
		"combat_done":          12,
		"commissions_received": 0,
		"missions_collected":   3,
		"stuck_recoveries":     1,
	}
	got := fields(p)
	for key, want := range tests {
		if got[key] != want {
			t.Errorf("%s = %v (%T), want %d", key, got[key], got[key], want)
		}
	}
}

func TestWritesOnDisconnectedClientAreDropped(t *testing.T) {
	c := &Client{}

	// writeAPI is nil; reaching it would panic.
	c.WriteTaskRun("combat", "progressed", time.Second, false, time.Now())
	c.WriteStats(stats.Snapshot{})
	c.Flush()
}
