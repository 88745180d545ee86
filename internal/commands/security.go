package commands

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/joelikes8/Discord-CBA-Bot/internal/detectors"
	"github.com/joelikes8/Discord-CBA-Bot/internal/logging"
	"github.com/joelikes8/Discord-CBA-Bot/internal/notifier"
	"github.com/joelikes8/Discord-CBA-Bot/internal/storage"
)

const defaultLockdownDuration = 10 * time.Minute

func (h *Handler) handleSecurityStats(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	stats, err := h.store.GetServerStats(i.GuildID)
	if err != nil {
		return fmt.Errorf("failed to fetch server stats: %w", err)
	}
	settings, err := h.store.GetSecuritySettings(i.GuildID)
	if err != nil {
		return fmt.Errorf("failed to fetch security settings: %w", err)
	}
	recent, err := h.store.GetRecentSecurityLogs(i.GuildID, 5)
	if err != nil {
		return fmt.Errorf("failed to fetch recent activity: %w", err)
	}

	toggle := func(on bool) string {
		if on {
			return "✅ Enabled"
		}
		return "❌ Disabled"
	}

	raidStatus := "Calm"
	if h.events.RaidTracker().Active(i.GuildID) {
		raidStatus = "🚨 **RAID MODE ACTIVE**"
	}

	activity := "No recent activity"
	if len(recent) > 0 {
		var lines []string
		for _, entry := range recent {
			lines = append(lines, fmt.Sprintf("• **%s** %s <t:%d:R>", entry.EventType, entry.Action, entry.Timestamp.Unix()))
		}
		activity = strings.Join(lines, "\n")
	}

	embed := &discordgo.MessageEmbed{
		Title: "🛡️ Security Overview",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Security Score", Value: fmt.Sprintf("**%d**/100", stats.SecurityScore), Inline: true},
			{Name: "Threats Blocked", Value: fmt.Sprintf("%d", stats.ThreatsBlocked), Inline: true},
			{Name: "Verified Members", Value: fmt.Sprintf("%d", stats.VerifiedMembers), Inline: true},
			{Name: "Open Tickets", Value: fmt.Sprintf("%d", stats.OpenTickets), Inline: true},
			{Name: "Raid Status", Value: raidStatus, Inline: true},
			{Name: "Anti-Nuke", Value: toggle(settings.AntiNuke), Inline: true},
			{Name: "Anti-Hack", Value: toggle(settings.AntiHack), Inline: true},
			{Name: "Anti-Raid", Value: toggle(settings.AntiRaid), Inline: true},
			{Name: "Website Filter", Value: toggle(settings.WebsiteFilter), Inline: true},
			{Name: "Recent Activity", Value: activity},
		},
	}
	return respondEmbed(s, i, embed, false)
}

// savedOverwrite remembers a channel's @everyone overwrite so a
// lockdown can be undone without clobbering pre-existing rules.
type savedOverwrite struct {
	channelID string
	allow     int64
	deny      int64
	existed   bool
}

var (
	lockdownMu    sync.Mutex
	lockdownState = make(map[string][]savedOverwrite)
)

func (h *Handler) handleLockdown(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !hasPermission(i, discordgo.PermissionManageServer) {
		return respondEphemeral(s, i, "You need the **Manage Server** permission to use this command.")
	}

	data := i.ApplicationCommandData()
	opts := optionMap(data)
	reason := opts["reason"].StringValue()

	duration := defaultLockdownDuration
	if opt, ok := opts["duration"]; ok {
		if minutes := opt.IntValue(); minutes > 0 {
			duration = time.Duration(minutes) * time.Minute
		}
	}

	lockdownMu.Lock()
	if _, active := lockdownState[i.GuildID]; active {
		lockdownMu.Unlock()
		return respondEphemeral(s, i, "The server is already in lockdown.")
	}
	lockdownMu.Unlock()

	channels, err := s.GuildChannels(i.GuildID)
	if err != nil {
		return fmt.Errorf("failed to list channels: %w", err)
	}

	// The @everyone role shares the guild's ID.
	everyoneID := i.GuildID
	var saved []savedOverwrite
	locked := 0
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}

		entry := savedOverwrite{channelID: ch.ID}
		for _, ow := range ch.PermissionOverwrites {
			if ow.ID == everyoneID && ow.Type == discordgo.PermissionOverwriteTypeRole {
				entry.allow = ow.Allow
				entry.deny = ow.Deny
				entry.existed = true
				break
			}
		}

		err := s.ChannelPermissionSet(ch.ID, everyoneID, discordgo.PermissionOverwriteTypeRole,
			entry.allow&^discordgo.PermissionSendMessages, entry.deny|discordgo.PermissionSendMessages)
		if err != nil {
			logging.Warn("[LOCKDOWN] Failed to lock channel %s: %v", ch.ID, err)
			continue
		}
		saved = append(saved, entry)
		locked++
	}

	lockdownMu.Lock()
	lockdownState[i.GuildID] = saved
	lockdownMu.Unlock()

	h.logSecurityEvent(i.GuildID, "lockdown", "Lockdown started", i.Member.User.ID,
		fmt.Sprintf("%s (%d channels, %s)", reason, locked, duration))

	guildID := i.GuildID
	time.AfterFunc(duration, func() {
		h.endLockdown(s, guildID)
	})

	embed := &discordgo.MessageEmbed{
		Title: "🔒 Server Lockdown",
		Color: 0xED4245,
		Description: fmt.Sprintf("**Reason:** %s\n%d channels locked. Messages are disabled for everyone until <t:%d:t>.",
			reason, locked, time.Now().Add(duration).Unix()),
	}
	return respondEmbed(s, i, embed, false)
}

func (h *Handler) endLockdown(s *discordgo.Session, guildID string) {
	lockdownMu.Lock()
	saved, active := lockdownState[guildID]
	delete(lockdownState, guildID)
	lockdownMu.Unlock()
	if !active {
		return
	}

	restored := 0
	for _, entry := range saved {
		var err error
		if entry.existed {
			err = s.ChannelPermissionSet(entry.channelID, guildID, discordgo.PermissionOverwriteTypeRole,
				entry.allow, entry.deny)
		} else {
			err = s.ChannelPermissionDelete(entry.channelID, guildID)
		}
		if err != nil {
			logging.Warn("[LOCKDOWN] Failed to unlock channel %s: %v", entry.channelID, err)
			continue
		}
		restored++
	}

	h.logSecurityEvent(guildID, "lockdown", "Lockdown ended", "",
		fmt.Sprintf("%d channels restored", restored))

	if settings, err := h.store.GetSecuritySettings(guildID); err == nil && settings != nil {
		notifier.SendNotice(settings.LogChannelID, "🔓", "Lockdown Ended",
			fmt.Sprintf("The lockdown has been lifted, %d channels restored.", restored))
	}
}

func (h *Handler) handleEndRaid(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !hasPermission(i, discordgo.PermissionManageServer) {
		return respondEphemeral(s, i, "You need the **Manage Server** permission to use this command.")
	}

	if !h.events.EndRaid(i.GuildID, fmt.Sprintf("Ended by <@%s>", i.Member.User.ID)) {
		return respondEphemeral(s, i, "No raid protection is currently active.")
	}
	return respondEphemeral(s, i, "✅ Raid protection mode has ended.")
}

func (h *Handler) handleAllowSite(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !hasPermission(i, discordgo.PermissionAdministrator) {
		return respondEphemeral(s, i, "You need the **Administrator** permission to use this command.")
	}

	data := i.ApplicationCommandData()
	opts := optionMap(data)
	domain := normalizeDomain(opts["domain"].StringValue())
	if domain == "" {
		return respondEphemeral(s, i, "That does not look like a valid domain.")
	}

	settings, err := h.store.GetSecuritySettings(i.GuildID)
	if err != nil {
		return fmt.Errorf("failed to fetch security settings: %w", err)
	}

	for _, existing := range settings.AllowedDomains {
		if existing == domain {
			return respondEphemeral(s, i, fmt.Sprintf("**%s** is already on the allowed list.", domain))
		}
	}

	settings.AllowedDomains = append(settings.AllowedDomains, domain)
	if err := h.store.UpsertSecuritySettings(settings); err != nil {
		return fmt.Errorf("failed to update security settings: %w", err)
	}

	h.logSecurityEvent(i.GuildID, "website-filter", "Allow-list updated", i.Member.User.ID,
		fmt.Sprintf("Added %s", domain))
	return respondEphemeral(s, i, fmt.Sprintf("✅ **%s** is now allowed.", domain))
}

func (h *Handler) handleDisallowSite(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !hasPermission(i, discordgo.PermissionAdministrator) {
		return respondEphemeral(s, i, "You need the **Administrator** permission to use this command.")
	}

	data := i.ApplicationCommandData()
	opts := optionMap(data)
	domain := normalizeDomain(opts["domain"].StringValue())

	settings, err := h.store.GetSecuritySettings(i.GuildID)
	if err != nil {
		return fmt.Errorf("failed to fetch security settings: %w", err)
	}

	kept := settings.AllowedDomains[:0]
	removed := false
	for _, existing := range settings.AllowedDomains {
		if existing == domain {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		return respondEphemeral(s, i, fmt.Sprintf("**%s** is not on the allowed list.", domain))
	}

	settings.AllowedDomains = kept
	if err := h.store.UpsertSecuritySettings(settings); err != nil {
		return fmt.Errorf("failed to update security settings: %w", err)
	}

	h.logSecurityEvent(i.GuildID, "website-filter", "Allow-list updated", i.Member.User.ID,
		fmt.Sprintf("Removed %s", domain))
	return respondEphemeral(s, i, fmt.Sprintf("✅ **%s** has been removed from the allowed list.", domain))
}

// normalizeDomain strips scheme and path so "https://Example.com/x"
// becomes "example.com".
func normalizeDomain(input string) string {
	domain := strings.TrimSpace(strings.ToLower(input))
	if strings.Contains(domain, "://") {
		domain = detectors.ExtractDomain(domain)
	}
	domain = strings.TrimPrefix(domain, "www.")
	if idx := strings.IndexByte(domain, '/'); idx >= 0 {
		domain = domain[:idx]
	}
	if !strings.Contains(domain, ".") {
		return ""
	}
	return domain
}

// logSecurityEvent writes an audit row; command responses never depend
// on it succeeding.
func (h *Handler) logSecurityEvent(serverID, eventType, action, userID, details string) {
	if err := h.store.CreateSecurityLog(&storage.SecurityLog{
		ServerID:  serverID,
		EventType: eventType,
		Action:    action,
		UserID:    userID,
		Details:   details,
		Timestamp: time.Now(),
	}); err != nil {
		logging.Warn("Failed to write security log for guild %s: %v", serverID, err)
	}
}
