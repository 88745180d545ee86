package bot

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/joelikes8/Discord-CBA-Bot/internal/logging"
	"github.com/joelikes8/Discord-CBA-Bot/internal/storage"
)

// Discord audit log action types
const (
	auditChannelDelete = 12
	auditMemberBanAdd  = 22
	auditRoleUpdate    = 31
	auditRoleDelete    = 32
	auditWebhookCreate = 50
)

func (h *Handlers) onChannelDelete(sess *discordgo.Session, e *discordgo.ChannelDelete) {
	if e.GuildID == "" {
		return
	}

	settings := h.settings(e.GuildID)
	if !settings.AntiNuke {
		return
	}

	actorID := h.fetchActor(sess, e.GuildID, auditChannelDelete)
	if actorID == "" {
		return
	}

	count := h.channelDeletes.Record(e.GuildID, actorID, time.Now())
	logging.Debug("[ANTI-NUKE] Channel %s deleted by %s in guild %s (%d in window)",
		e.ID, actorID, e.GuildID, count)

	if count >= h.channelDeleteThreshold {
		h.channelDeletes.Reset(e.GuildID, actorID)
		h.punish(sess, settings, actorID, "anti-nuke", true,
			fmt.Sprintf("Mass channel deletion: %d channels deleted in a burst", count))
	}
}

func (h *Handlers) onRoleDelete(sess *discordgo.Session, e *discordgo.GuildRoleDelete) {
	settings := h.settings(e.GuildID)
	if !settings.AntiNuke {
		return
	}

	actorID := h.fetchActor(sess, e.GuildID, auditRoleDelete)
	if actorID == "" {
		return
	}

	count := h.roleDeletes.Record(e.GuildID, actorID, time.Now())
	logging.Debug("[ANTI-NUKE] Role %s deleted by %s in guild %s (%d in window)",
		e.RoleID, actorID, e.GuildID, count)

	if count >= h.roleDeleteThreshold {
		h.roleDeletes.Reset(e.GuildID, actorID)
		h.punish(sess, settings, actorID, "anti-nuke", true,
			fmt.Sprintf("Mass role deletion: %d roles deleted in a burst", count))
	}
}

func (h *Handlers) onBanAdd(sess *discordgo.Session, e *discordgo.GuildBanAdd) {
	settings := h.settings(e.GuildID)
	if !settings.AntiNuke {
		return
	}

	actorID := h.fetchActor(sess, e.GuildID, auditMemberBanAdd)
	if actorID == "" {
		return
	}

	count := h.bans.Record(e.GuildID, actorID, time.Now())
	logging.Debug("[ANTI-NUKE] Member %s banned by %s in guild %s (%d in window)",
		e.User.ID, actorID, e.GuildID, count)

	if count >= h.banThreshold {
		h.bans.Reset(e.GuildID, actorID)
		h.punish(sess, settings, actorID, "anti-nuke", true,
			fmt.Sprintf("Mass ban: %d members banned in a burst", count))
	}
}

// punish enforces against a triggering actor. Server owners and
// administrators only get a warning log entry; anyone else loses all
// roles, and nuke-class triggers additionally ban with a 7 day message
// purge. Each step degrades gracefully: if the ban fails (a role above
// the bot) the event is still logged so moderators see it.
func (h *Handlers) punish(sess *discordgo.Session, settings *storage.SecuritySettings, actorID, eventType string, ban bool, details string) {
	if h.checkAdmin(sess, settings.ServerID, actorID) {
		logging.Info("[%s] Admin/owner %s triggered protection in guild %s, warning only: %s",
			eventType, actorID, settings.ServerID, details)
		h.logEvent(settings, eventType, "Warning only", actorID, details)
		return
	}

	rolesStripped := false
	if err := h.stripRoles(sess, settings.ServerID, actorID); err != nil {
		logging.Warn("[%s] Failed to strip roles from %s in guild %s: %v", eventType, actorID, settings.ServerID, err)
	} else {
		rolesStripped = true
	}

	action := "Roles removed"
	if ban {
		reason := fmt.Sprintf("CBA Security: %s", details)
		if err := h.banActor(sess, settings.ServerID, actorID, reason); err != nil {
			logging.Warn("[%s] Failed to ban %s in guild %s: %v", eventType, actorID, settings.ServerID, err)
			if !rolesStripped {
				action = "Warning only"
			}
		} else {
			action = "Auto-ban"
		}
	} else if !rolesStripped {
		action = "Warning only"
	}

	logging.Info("[%s] %s against %s in guild %s: %s", eventType, action, actorID, settings.ServerID, details)
	h.logEvent(settings, eventType, action, actorID, details)
}

// isAdminOrOwner reports whether the user owns the guild or holds a
// role with Administrator.
func isAdminOrOwner(sess *discordgo.Session, guildID, userID string) bool {
	guild, err := sess.State.Guild(guildID)
	if err != nil || guild == nil {
		guild, err = sess.Guild(guildID)
		if err != nil || guild == nil {
			return false
		}
	}
	if guild.OwnerID == userID {
		return true
	}

	member, err := sess.State.Member(guildID, userID)
	if err != nil || member == nil {
		member, err = sess.GuildMember(guildID, userID)
		if err != nil || member == nil {
			return false
		}
	}

	for _, roleID := range member.Roles {
		for _, role := range guild.Roles {
			if role.ID == roleID && role.Permissions&discordgo.PermissionAdministrator != 0 {
				return true
			}
		}
	}
	return false
}
