package stats

import (
	"sync"
	"time"
)

// Stats holds the run counters.
//
// The control loop is the only writer. The status API and telemetry read
// snapshots from other goroutines, so every access takes the mutex.
type Stats struct {
	mu sync.Mutex

	startedAt           time.Time
	combatDone          int
	commissionsReceived int
	commissionsStarted  int
	missionsCollected   int
	retirementBatches   int
	stuckRecoveries     int

	now func() time.Time
}

// Snapshot is a consistent copy of the counters at one instant.
type Snapshot struct {
	StartedAt           time.Time     `json:"started_at"`
	Uptime              time.Duration `json:"uptime_ns"`
	CombatDone          int           `json:"combat_done"`
	CommissionsReceived int           `json:"commissions_received"`
	CommissionsStarted  int           `json:"commissions_started"`
	MissionsCollected   int           `json:"missions_collected"`
	RetirementBatches   int           `json:"retirement_batches"`
	StuckRecoveries     int           `json:"stuck_recoveries"`
}

// New creates zeroed counters with the clock started now.
func New() *Stats {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Stats {
	return &Stats{startedAt: now(), now: now}
}

// CombatDone returns the number of completed combats. It only ever grows.
func (s *Stats) CombatDone() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.combatDone
}

// IncCombatDone records one completed combat.
func (s *Stats) IncCombatDone() {
	s.mu.Lock()
	s.combatDone++
	s.mu.Unlock()
}

// IncCommissionsReceived records one claimed commission.
func (s *Stats) IncCommissionsReceived() {
	s.mu.Lock()
	s.commissionsReceived++
	s.mu.Unlock()
}

// IncCommissionsStarted records one dispatched commission.
func (s *Stats) IncCommissionsStarted() {
	s.mu.Lock()
	s.commissionsStarted++
	s.mu.Unlock()
}

// IncMissionsCollected records one mission reward collection.
func (s *Stats) IncMissionsCollected() {
	s.mu.Lock()
	s.missionsCollected++
	s.mu.Unlock()
}

// IncRetirementBatches records one retired batch of ships.
func (s *Stats) IncRetirementBatches() {
	s.mu.Lock()
	s.retirementBatches++
	s.mu.Unlock()
}

// IncStuckRecoveries records one recovery from a stuck task.
func (s *Stats) IncStuckRecoveries() {
	s.mu.Lock()
	s.stuckRecoveries++
	s.mu.Unlock()
}

// Snapshot returns a copy of all counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		StartedAt:           s.startedAt,
		Uptime:              s.now().Sub(s.startedAt),
		CombatDone:          s.combatDone,
		CommissionsReceived: s.commissionsReceived,
		CommissionsStarted:  s.commissionsStarted,
		MissionsCollected:   s.missionsCollected,
		RetirementBatches:   s.retirementBatches,
		StuckRecoveries:     s.stuckRecoveries,
	}
}
