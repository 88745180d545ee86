package detectors

import (
	"testing"
	"time"
)

func TestWindowCountsWithinWindow(t *testing.T) {
	w := NewActionWindow(10 * time.Second)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if n := w.Record("g1", "attacker", base); n != 1 {
		t.Errorf("first record: got %d, want 1", n)
	}
	if n := w.Record("g1", "attacker", base.Add(2*time.Second)); n != 2 {
		t.Errorf("second record: got %d, want 2", n)
	}
	if n := w.Record("g1", "attacker", base.Add(4*time.Second)); n != 3 {
		t.Errorf("third record: got %d, want 3", n)
	}
}

func TestWindowPrunesOldEntries(t *testing.T) {
	w := NewActionWindow(10 * time.Second)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	w.Record("g1", "attacker", base)
	w.Record("g1", "attacker", base.Add(11*time.Second))
	// Both earlier entries are outside the window by now.
	if n := w.Record("g1", "attacker", base.Add(23*time.Second)); n != 1 {
		t.Errorf("after pruning: got %d, want 1", n)
	}
}

func TestWindowSpreadActionsNeverReachThreshold(t *testing.T) {
	w := NewActionWindow(10 * time.Second)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// Three deletions more than 10s apart each.
	counts := []int{
		w.Record("g1", "attacker", base),
		w.Record("g1", "attacker", base.Add(11*time.Second)),
		w.Record("g1", "attacker", base.Add(22*time.Second)),
	}
	for i, n := range counts {
		if n != 1 {
			t.Errorf("record %d: got count %d, want 1", i, n)
		}
	}
}

func TestWindowPerActorIndependence(t *testing.T) {
	w := NewActionWindow(10 * time.Second)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	w.Record("g1", "alice", base)
	w.Record("g1", "alice", base.Add(time.Second))

	// A different actor acting in between must not reset alice's count.
	if n := w.Record("g1", "bob", base.Add(2*time.Second)); n != 1 {
		t.Errorf("bob: got %d, want 1", n)
	}
	if n := w.Record("g1", "alice", base.Add(3*time.Second)); n != 3 {
		t.Errorf("alice after bob acted: got %d, want 3", n)
	}
}

func TestWindowPerGuildIsolation(t *testing.T) {
	w := NewActionWindow(10 * time.Second)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	w.Record("g1", "attacker", base)
	w.Record("g1", "attacker", base.Add(time.Second))
	if n := w.Record("g2", "attacker", base.Add(2*time.Second)); n != 1 {
		t.Errorf("same actor in other guild: got %d, want 1", n)
	}
}

func TestWindowReset(t *testing.T) {
	w := NewActionWindow(10 * time.Second)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	w.Record("g1", "attacker", base)
	w.Record("g1", "attacker", base.Add(time.Second))
	w.Record("g1", "attacker", base.Add(2*time.Second))
	w.Reset("g1", "attacker")

	if n := w.Record("g1", "attacker", base.Add(3*time.Second)); n != 1 {
		t.Errorf("after reset: got %d, want 1", n)
	}
}
