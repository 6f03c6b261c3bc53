package stats

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// Print writes a human-readable report of the counters to w.
func (s *Stats) Print(w io.Writer) error {
	return s.Snapshot().Print(w)
}

// Print writes the snapshot as a short coloured report.
func (snap Snapshot) Print(w io.Writer) error {
	header := color.New(color.FgCyan, color.Bold).Sprint("Run statistics")
	uptime := snap.Uptime.Truncate(time.Second)

	lines := []struct {
		label string
		value int
	}{
		{"Combats done", snap.CombatDone},
		{"Commissions received", snap.CommissionsReceived},
		{"Commissions started", snap.CommissionsStarted},
		{"Missions collected", snap.MissionsCollected},
		{"Retirement batches", snap.RetirementBatches},
	}

	if _, err := fmt.Fprintf(w, "%s (up %s)\n", header, uptime); err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "  %-22s %s\n", l.label, color.New(color.FgGreen).Sprint(l.value)); err != nil {
			return err
		}
	}

	if snap.StuckRecoveries > 0 {
		warn := color.New(color.FgYellow).Sprintf("%d", snap.StuckRecoveries)
		if _, err := fmt.Fprintf(w, "  %-22s %s\n", "Stuck recoveries", warn); err != nil {
			return err
		}
	}
	return nil
}
