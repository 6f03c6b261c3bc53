// Package automation is the bot's control core: the scheduler and the
// per-task state machines.
//
// Every task is an explicit state enum plus an ordered rule list. Each poll
// refreshes the screen once, classifies the frame with the first rule that
// holds, acts on that state (touches and settle sleeps), and loops until a
// terminal state. The loop is bounded by a PollPolicy: too many unmatched
// frames in a row, or too long overall, becomes a *StuckError instead of a
// hang.
//
//	┌──────────────────────────────────────────────────────────┐
//	│                 Scheduler (scheduler.go)                  │
//	│  refresh → interstitial → commissions → missions →        │
//	│            combat (may fall through) → retirement → idle  │
//	│        │                                                  │
//	│        ▼                                                  │
//	│  ┌────────────┐ ┌─────────────┐ ┌──────────┐ ┌──────────┐ │
//	│  │   Combat   │ │ Commissions │ │ Missions │ │Retirement│ │
//	│  └────────────┘ └─────────────┘ └──────────┘ └──────────┘ │
//	│        │  rules.go: drive(refresh → classify → act)       │
//	│        ▼                                                  │
//	│  Recorder (recorder.go): journal, MQTT, WebSocket, Influx │
//	└──────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Scheduler: one decision per cycle, combat backoff clock, stats flush
//   - Task: Name() and Run(ctx) (Signal, error)
//   - Signal: not_applicable, progressed or exhausted
//   - StuckError: a bounded loop gave up; errors.Is(err, ErrStuck)
//   - TaskRun / Repository: write-only SQLite journal of every run
//
// # Concurrency
//
// The control loop is single-threaded. Tasks and the scheduler are not safe
// for concurrent use; stats.Stats is, because the status API reads it.
package automation
