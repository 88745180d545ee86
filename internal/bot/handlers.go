package bot

import (
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/joelikes8/Discord-CBA-Bot/internal/config"
	"github.com/joelikes8/Discord-CBA-Bot/internal/detectors"
	"github.com/joelikes8/Discord-CBA-Bot/internal/logging"
	"github.com/joelikes8/Discord-CBA-Bot/internal/notifier"
	"github.com/joelikes8/Discord-CBA-Bot/internal/storage"
)

// Handlers owns the per-feature event handlers and the detector state
// they share. One instance serves every guild; all detector state is
// keyed by guild internally.
type Handlers struct {
	store storage.Store

	channelDeletes *detectors.ActionWindow
	roleDeletes    *detectors.ActionWindow
	bans           *detectors.ActionWindow
	permChanges    *detectors.ActionWindow
	raids          *detectors.RaidTracker

	channelDeleteThreshold int
	roleDeleteThreshold    int
	banThreshold           int
	permChangeThreshold    int
	raidDuration           time.Duration

	// Last known permission bits per role, used to revert escalations.
	permMu   sync.Mutex
	rolePerm map[roleKey]int64

	// Seams for the Discord calls enforcement makes, replaceable in
	// tests. Defaults are set in NewHandlers.
	fetchActor func(sess *discordgo.Session, guildID string, actionType int) string
	checkAdmin func(sess *discordgo.Session, guildID, userID string) bool
	stripRoles func(sess *discordgo.Session, guildID, userID string) error
	banActor   func(sess *discordgo.Session, guildID, userID, reason string) error
}

type roleKey struct {
	guildID string
	roleID  string
}

func (h *Handlers) rememberRolePerms(guildID, roleID string, perms int64) {
	h.permMu.Lock()
	defer h.permMu.Unlock()
	h.rolePerm[roleKey{guildID, roleID}] = perms
}

func (h *Handlers) rolePerms(guildID, roleID string) (int64, bool) {
	h.permMu.Lock()
	defer h.permMu.Unlock()
	perms, ok := h.rolePerm[roleKey{guildID, roleID}]
	return perms, ok
}

func NewHandlers(store storage.Store, cfg *config.Config) *Handlers {
	det := cfg.Detection
	return &Handlers{
		store:          store,
		channelDeletes: detectors.NewActionWindow(time.Duration(det.ChannelDeleteWindowSec) * time.Second),
		roleDeletes:    detectors.NewActionWindow(time.Duration(det.RoleDeleteWindowSec) * time.Second),
		bans:           detectors.NewActionWindow(time.Duration(det.BanWindowSec) * time.Second),
		permChanges:    detectors.NewActionWindow(time.Duration(det.PermChangeWindowSec) * time.Second),
		raids:          detectors.NewRaidTracker(det.JoinThreshold, time.Duration(det.JoinWindowSec)*time.Second),

		channelDeleteThreshold: det.ChannelDeleteThreshold,
		roleDeleteThreshold:    det.RoleDeleteThreshold,
		banThreshold:           det.BanThreshold,
		permChangeThreshold:    det.PermChangeThreshold,
		raidDuration:           time.Duration(det.RaidDurationMin) * time.Minute,

		rolePerm: make(map[roleKey]int64),

		fetchActor: fetchActorFromAuditLog,
		checkAdmin: isAdminOrOwner,
		stripRoles: func(sess *discordgo.Session, guildID, userID string) error {
			empty := []string{}
			_, err := sess.GuildMemberEdit(guildID, userID, &discordgo.GuildMemberParams{Roles: &empty})
			return err
		},
		banActor: func(sess *discordgo.Session, guildID, userID, reason string) error {
			return sess.GuildBanCreateWithReason(guildID, userID, reason, 7)
		},
	}
}

// RaidTracker exposes raid state to the commands package for /endraid
// and /securitystats.
func (h *Handlers) RaidTracker() *detectors.RaidTracker {
	return h.raids
}

// Register wires every event handler into the session.
func (h *Handlers) Register(s *Session) {
	logging.Info("Setting up Discord event handlers...")

	s.AddHandler(h.onReady)
	s.AddHandler(h.onGuildCreate)
	s.AddHandler(h.onChannelDelete)
	s.AddHandler(h.onRoleDelete)
	s.AddHandler(h.onBanAdd)
	s.AddHandler(h.onRoleCreate)
	s.AddHandler(h.onRoleUpdate)
	s.AddHandler(h.onWebhooksUpdate)
	s.AddHandler(h.onIntegrationsUpdate)
	s.AddHandler(h.onMemberAdd)
	s.AddHandler(h.onMessageCreate)
	s.AddHandler(h.onMessageUpdate)
}

func (h *Handlers) onReady(sess *discordgo.Session, r *discordgo.Ready) {
	logging.Info("Bot ready! Connected as %s, serving %d guilds", r.User.Username, len(r.Guilds))
}

func (h *Handlers) onGuildCreate(sess *discordgo.Session, g *discordgo.GuildCreate) {
	logging.Info("Bot joined/loaded guild: %s (ID: %s)", g.Name, g.ID)

	if err := h.store.UpsertDiscordServer(&storage.DiscordServer{
		ID:          g.ID,
		Name:        g.Name,
		OwnerID:     g.OwnerID,
		MemberCount: g.MemberCount,
	}); err != nil {
		logging.Warn("Failed to record guild %s: %v", g.ID, err)
	}

	for _, role := range g.Roles {
		h.rememberRolePerms(g.ID, role.ID, role.Permissions)
	}

	// A fresh join starts with clean detector state.
	h.channelDeletes.ResetGuild(g.ID)
	h.roleDeletes.ResetGuild(g.ID)
	h.bans.ResetGuild(g.ID)
	h.permChanges.ResetGuild(g.ID)
}

// settings loads the server's protection toggles, falling back to
// everything-enabled defaults on error so an outage never disables
// protection.
func (h *Handlers) settings(serverID string) *storage.SecuritySettings {
	settings, err := h.store.GetSecuritySettings(serverID)
	if err != nil || settings == nil {
		logging.Warn("Failed to load settings for guild %s: %v", serverID, err)
		return &storage.SecuritySettings{
			ServerID:      serverID,
			AntiNuke:      true,
			AntiHack:      true,
			AntiRaid:      true,
			WebsiteFilter: true,
		}
	}
	return settings
}

// logEvent records a security log row and mirrors it to the server's
// log channel if one is configured.
func (h *Handlers) logEvent(settings *storage.SecuritySettings, eventType, action, userID, details string) {
	if err := h.store.CreateSecurityLog(&storage.SecurityLog{
		ServerID:  settings.ServerID,
		EventType: eventType,
		Action:    action,
		UserID:    userID,
		Details:   details,
		Timestamp: time.Now(),
	}); err != nil {
		logging.Warn("Failed to write security log for guild %s: %v", settings.ServerID, err)
	}

	emoji := "🛡️"
	switch eventType {
	case "anti-nuke":
		emoji = "💥"
	case "anti-hack":
		emoji = "🔓"
	case "anti-raid":
		emoji = "🚨"
	case "website-filter":
		emoji = "🔗"
	}
	notifier.SendSecurityAlert(settings.LogChannelID, emoji, eventType, userID, action, details)
}
