package bot

import (
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/joelikes8/Discord-CBA-Bot/internal/logging"
)

// auditLogCache stores recent audit log entries to correlate with
// events. Keyed by guild and action type only, so every event of that
// action inside the TTL is attributed to the cached actor. Two
// different users performing the same action within 5 seconds of each
// other is rare enough that the saved audit log fetches win.
type auditLogCache struct {
	mu      sync.RWMutex
	entries map[string]*auditCacheEntry
}

type auditCacheEntry struct {
	actorID   string
	action    int
	timestamp time.Time
}

var (
	auditCache = &auditLogCache{
		entries: make(map[string]*auditCacheEntry),
	}
	cacheTTL = 5 * time.Second
)

func (c *auditLogCache) Store(guildID string, action int, actorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := guildID + ":" + strconv.Itoa(action)
	c.entries[key] = &auditCacheEntry{
		actorID:   actorID,
		action:    action,
		timestamp: time.Now(),
	}

	// Cleanup old entries
	for k, v := range c.entries {
		if time.Since(v.timestamp) > cacheTTL {
			delete(c.entries, k)
		}
	}
}

func (c *auditLogCache) Get(guildID string, action int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := guildID + ":" + strconv.Itoa(action)
	if entry, exists := c.entries[key]; exists {
		if time.Since(entry.timestamp) < cacheTTL {
			return entry.actorID, true
		}
	}
	return "", false
}

// fetchActorFromAuditLog fetches the most recent audit log entry for a
// specific action and returns the acting user's ID. Actions performed by
// bots (including this one) return "" so automated cleanup never
// triggers enforcement.
func fetchActorFromAuditLog(sess *discordgo.Session, guildID string, actionType int) string {
	if actorID, found := auditCache.Get(guildID, actionType); found {
		return actorID
	}

	audit, err := sess.GuildAuditLog(guildID, "", "", actionType, 1)
	if err != nil {
		logging.Warn("Failed to fetch audit log for guild %s action %d: %v", guildID, actionType, err)
		return ""
	}

	if len(audit.AuditLogEntries) == 0 {
		return ""
	}

	entry := audit.AuditLogEntries[0]

	for _, user := range audit.Users {
		if user.ID == entry.UserID && user.Bot {
			logging.Debug("[AUDIT] Skipping action %d by bot user %s", actionType, user.Username)
			return ""
		}
	}

	auditCache.Store(guildID, actionType, entry.UserID)
	return entry.UserID
}
