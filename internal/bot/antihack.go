package bot

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/joelikes8/Discord-CBA-Bot/internal/logging"
)

// Permissions whose sudden appearance on a role signals a takeover
// attempt.
const dangerousPerms = discordgo.PermissionAdministrator |
	discordgo.PermissionBanMembers |
	discordgo.PermissionKickMembers |
	discordgo.PermissionManageServer |
	discordgo.PermissionManageRoles |
	discordgo.PermissionManageChannels |
	discordgo.PermissionManageWebhooks

// Webhooks created by members younger than this are deleted on sight.
const trustedMemberAge = 7 * 24 * time.Hour

func (h *Handlers) onRoleCreate(sess *discordgo.Session, e *discordgo.GuildRoleCreate) {
	h.rememberRolePerms(e.GuildID, e.Role.ID, e.Role.Permissions)
}

func (h *Handlers) onRoleUpdate(sess *discordgo.Session, e *discordgo.GuildRoleUpdate) {
	old, known := h.rolePerms(e.GuildID, e.Role.ID)
	h.rememberRolePerms(e.GuildID, e.Role.ID, e.Role.Permissions)
	if !known {
		return
	}

	gained := e.Role.Permissions &^ old
	if gained&dangerousPerms == 0 {
		return
	}

	settings := h.settings(e.GuildID)
	if !settings.AntiHack {
		return
	}

	actorID := h.fetchActor(sess, e.GuildID, auditRoleUpdate)
	if actorID == "" {
		return
	}

	// Put the role back the way it was before counting the strike.
	perms := old
	if _, err := sess.GuildRoleEdit(e.GuildID, e.Role.ID, &discordgo.RoleParams{Permissions: &perms}); err != nil {
		logging.Warn("[ANTI-HACK] Failed to revert role %s in guild %s: %v", e.Role.ID, e.GuildID, err)
	} else {
		h.rememberRolePerms(e.GuildID, e.Role.ID, old)
	}

	count := h.permChanges.Record(e.GuildID, actorID, time.Now())
	logging.Info("[ANTI-HACK] Dangerous permission grant on role %s by %s in guild %s (%d in window)",
		e.Role.ID, actorID, e.GuildID, count)

	if count >= h.permChangeThreshold {
		h.permChanges.Reset(e.GuildID, actorID)
		h.punish(sess, settings, actorID, "anti-hack", false,
			fmt.Sprintf("Repeated permission escalation: %d dangerous grants in a burst", count))
		return
	}

	h.logEvent(settings, "anti-hack", "Permissions reverted", actorID,
		fmt.Sprintf("Dangerous permissions granted to role <@&%s> were reverted", e.Role.ID))
}

func (h *Handlers) onWebhooksUpdate(sess *discordgo.Session, e *discordgo.WebhooksUpdate) {
	settings := h.settings(e.GuildID)
	if !settings.AntiHack {
		return
	}

	actorID := h.fetchActor(sess, e.GuildID, auditWebhookCreate)
	if actorID == "" {
		return
	}

	member, err := sess.GuildMember(e.GuildID, actorID)
	if err != nil {
		logging.Warn("[ANTI-HACK] Failed to fetch member %s in guild %s: %v", actorID, e.GuildID, err)
		return
	}
	if time.Since(member.JoinedAt) >= trustedMemberAge {
		return
	}

	webhooks, err := sess.ChannelWebhooks(e.ChannelID)
	if err != nil {
		logging.Warn("[ANTI-HACK] Failed to list webhooks in channel %s: %v", e.ChannelID, err)
		return
	}

	deleted := 0
	for _, hook := range webhooks {
		if hook.User != nil && hook.User.ID == actorID {
			if err := sess.WebhookDelete(hook.ID); err != nil {
				logging.Warn("[ANTI-HACK] Failed to delete webhook %s: %v", hook.ID, err)
				continue
			}
			deleted++
		}
	}

	if deleted > 0 {
		h.logEvent(settings, "anti-hack", "Webhook deleted", actorID,
			fmt.Sprintf("Removed %d webhook(s) created by an account that joined less than 7 days ago", deleted))
	}
}

// Integration changes are logged for review rather than acted on; a new
// bot with broad permissions is how most takeovers start.
func (h *Handlers) onIntegrationsUpdate(sess *discordgo.Session, e *discordgo.GuildIntegrationsUpdate) {
	settings := h.settings(e.GuildID)
	if !settings.AntiHack {
		return
	}

	h.logEvent(settings, "anti-hack", "Integration updated", "",
		"Server integrations changed, review recent bot additions")
}
