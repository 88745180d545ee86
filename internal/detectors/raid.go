package detectors

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// Fraction of buffered joiners with accounts younger than
	// NewAccountAge that confirms a raid.
	newAccountRatio = 0.6
	// Account age below which a joiner counts as a new account.
	NewAccountAge = 24 * time.Hour
	// Fraction of username pairs that must look related to confirm a
	// raid by name similarity.
	similarNameRatio = 0.8
)

var trailingNumber = regexp.MustCompile(`^(\D+)(\d+)$`)

// Joiner is one buffered member join.
type Joiner struct {
	MemberID  string
	Username  string
	CreatedAt time.Time
	JoinedAt  time.Time
}

type raidState struct {
	joiners  []Joiner
	active   bool
	endTimer *time.Timer
}

// RaidTracker accumulates member joins per guild and flags a raid when a
// burst of joins inside the join window looks coordinated. While a raid
// is active every further join is restricted without re-evaluation until
// the raid ends (auto-end timer or explicit end).
type RaidTracker struct {
	mu        sync.Mutex
	window    time.Duration
	threshold int
	guilds    map[string]*raidState
}

func NewRaidTracker(threshold int, window time.Duration) *RaidTracker {
	return &RaidTracker{
		window:    window,
		threshold: threshold,
		guilds:    make(map[string]*raidState),
	}
}

// JoinResult tells the caller what to do with the member that just
// joined.
type JoinResult struct {
	// RaidStarted is true exactly once per raid, on the join that
	// confirmed it. Buffered contains every joiner to restrict.
	RaidStarted bool
	// Restrict is true for joins that arrive while a raid is already
	// active; only the new member needs restricting.
	Restrict bool
	Buffered []Joiner
}

// RecordJoin buffers a join and evaluates the raid heuristic once the
// buffer reaches the join threshold.
func (r *RaidTracker) RecordJoin(guildID string, j Joiner, now time.Time) JoinResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.guilds[guildID]
	if st == nil {
		st = &raidState{}
		r.guilds[guildID] = st
	}

	cutoff := now.Add(-r.window)
	kept := st.joiners[:0]
	for _, joined := range st.joiners {
		if joined.JoinedAt.After(cutoff) {
			kept = append(kept, joined)
		}
	}
	j.JoinedAt = now
	st.joiners = append(kept, j)

	if st.active {
		return JoinResult{Restrict: true}
	}

	if len(st.joiners) >= r.threshold && looksLikeRaid(st.joiners, now) {
		st.active = true
		buffered := make([]Joiner, len(st.joiners))
		copy(buffered, st.joiners)
		return JoinResult{RaidStarted: true, Buffered: buffered}
	}

	return JoinResult{}
}

// Active reports whether the guild is currently in raid mode.
func (r *RaidTracker) Active(guildID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.guilds[guildID]
	return st != nil && st.active
}

// SetEndTimer stores the auto-end timer handle, replacing (and stopping)
// any previous one so at most one timer is pending per guild.
func (r *RaidTracker) SetEndTimer(guildID string, t *time.Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.guilds[guildID]
	if st == nil {
		return
	}
	if st.endTimer != nil {
		st.endTimer.Stop()
	}
	st.endTimer = t
}

// End leaves raid mode: the join buffer is cleared and any pending
// auto-end timer is cancelled. Returns false if the guild was not in
// raid mode, so callers can skip the "raid ended" log entry.
func (r *RaidTracker) End(guildID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.guilds[guildID]
	if st == nil || !st.active {
		return false
	}

	st.active = false
	st.joiners = nil
	if st.endTimer != nil {
		st.endTimer.Stop()
		st.endTimer = nil
	}
	return true
}

// looksLikeRaid confirms a join burst as a raid if most accounts are
// brand new, or if the usernames look machine-generated (shared
// prefixes or sequential numbering). Pairwise comparison is fine here:
// the buffer is capped by the join window.
func looksLikeRaid(joiners []Joiner, now time.Time) bool {
	newAccounts := 0
	for _, j := range joiners {
		if now.Sub(j.CreatedAt) < NewAccountAge {
			newAccounts++
		}
	}
	needed := (len(joiners)*6 + 9) / 10 // ceil(0.6 * n)
	if newAccounts >= needed {
		return true
	}

	names := make([]string, len(joiners))
	for i, j := range joiners {
		names[i] = strings.ToLower(j.Username)
	}

	similar := 0
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if similarNames(names[i], names[j]) {
				similar++
			}
		}
	}

	total := len(names) * (len(names) - 1) / 2
	return total > 0 && float64(similar)/float64(total) >= similarNameRatio
}

func similarNames(a, b string) bool {
	if len(a) > 3 && len(b) > 3 && a[:3] == b[:3] {
		return true
	}

	ma := trailingNumber.FindStringSubmatch(a)
	mb := trailingNumber.FindStringSubmatch(b)
	if ma != nil && mb != nil && ma[1] == mb[1] {
		na, _ := strconv.Atoi(ma[2])
		nb, _ := strconv.Atoi(mb[2])
		if na-nb == 1 || nb-na == 1 {
			return true
		}
	}

	return false
}
