package bot

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/joelikes8/Discord-CBA-Bot/internal/detectors"
	"github.com/joelikes8/Discord-CBA-Bot/internal/logging"
)

// Raiders are timed out rather than banned, so false positives can be
// undone by ending the raid and removing the timeout manually.
const raidTimeoutDuration = 3 * time.Hour

func (h *Handlers) onMemberAdd(sess *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e.User.Bot {
		return
	}

	settings := h.settings(e.GuildID)
	if !settings.AntiRaid {
		return
	}

	createdAt, err := discordgo.SnowflakeTimestamp(e.User.ID)
	if err != nil {
		logging.Warn("[ANTI-RAID] Bad snowflake %s: %v", e.User.ID, err)
		return
	}

	res := h.raids.RecordJoin(e.GuildID, detectors.Joiner{
		MemberID:  e.User.ID,
		Username:  e.User.Username,
		CreatedAt: createdAt,
	}, time.Now())

	switch {
	case res.RaidStarted:
		logging.Info("[ANTI-RAID] Raid detected in guild %s, restricting %d members", e.GuildID, len(res.Buffered))
		for _, joiner := range res.Buffered {
			h.timeoutMember(sess, e.GuildID, joiner.MemberID)
		}
		h.logEvent(settings, "anti-raid", "Raid detected", e.User.ID,
			fmt.Sprintf("Coordinated join burst: %d members timed out for 3 hours", len(res.Buffered)))

		guildID := e.GuildID
		h.raids.SetEndTimer(guildID, time.AfterFunc(h.raidDuration, func() {
			h.EndRaid(guildID, "Raid protection auto-ended")
		}))

	case res.Restrict:
		logging.Debug("[ANTI-RAID] Restricting %s joining guild %s during active raid", e.User.ID, e.GuildID)
		h.timeoutMember(sess, e.GuildID, e.User.ID)
	}
}

func (h *Handlers) timeoutMember(sess *discordgo.Session, guildID, userID string) {
	until := time.Now().Add(raidTimeoutDuration)
	if err := sess.GuildMemberTimeout(guildID, userID, &until); err != nil {
		logging.Warn("[ANTI-RAID] Failed to timeout %s in guild %s: %v", userID, guildID, err)
	}
}

// EndRaid leaves raid mode for the guild. Used both by the auto-end
// timer and the endraid command. Returns false if no raid was active.
func (h *Handlers) EndRaid(guildID, reason string) bool {
	if !h.raids.End(guildID) {
		return false
	}

	logging.Info("[ANTI-RAID] Raid ended in guild %s: %s", guildID, reason)
	settings := h.settings(guildID)
	h.logEvent(settings, "anti-raid", "Raid mode ended", "", reason)
	return true
}
