package detectors

import (
	"sync"
	"time"
)

// ActionWindow counts privileged actions per (guild, actor) inside a
// sliding time window. Each Record prunes entries older than the window
// before appending, so the count only ever reflects the live window.
// Windows are tracked independently per actor; a second actor acting in
// the same guild never resets the first actor's count.
type ActionWindow struct {
	mu     sync.Mutex
	window time.Duration
	events map[windowKey][]time.Time
}

type windowKey struct {
	guildID string
	actorID string
}

func NewActionWindow(window time.Duration) *ActionWindow {
	return &ActionWindow{
		window: window,
		events: make(map[windowKey][]time.Time),
	}
}

// Record registers one action and returns the number of actions the
// actor has performed in this guild within the window, including this
// one.
func (w *ActionWindow) Record(guildID, actorID string, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := windowKey{guildID: guildID, actorID: actorID}
	cutoff := now.Add(-w.window)

	kept := w.events[key][:0]
	for _, ts := range w.events[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	w.events[key] = kept

	return len(kept)
}

// Reset clears one actor's window. Called after a trigger so a single
// burst produces exactly one enforcement action.
func (w *ActionWindow) Reset(guildID, actorID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.events, windowKey{guildID: guildID, actorID: actorID})
}

// ResetGuild clears every actor window for a guild.
func (w *ActionWindow) ResetGuild(guildID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key := range w.events {
		if key.guildID == guildID {
			delete(w.events, key)
		}
	}
}
