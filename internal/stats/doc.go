// Package stats keeps the run counters that tasks read and update.
//
// CombatDone drives the retirement cadence; the other counters exist for
// reporting. Counters are mutex-guarded so the status API can read them while
// the control loop runs.
package stats
