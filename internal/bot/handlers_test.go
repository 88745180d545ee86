package bot

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/joelikes8/Discord-CBA-Bot/internal/config"
	"github.com/joelikes8/Discord-CBA-Bot/internal/detectors"
	"github.com/joelikes8/Discord-CBA-Bot/internal/storage"
)

func newTestHandlers(t *testing.T) (*Handlers, storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewHandlers(store, config.DefaultConfig()), store
}

func TestSettingsDefaultToProtected(t *testing.T) {
	h, _ := newTestHandlers(t)

	settings := h.settings("never-seen-guild")
	if !settings.AntiNuke || !settings.AntiHack || !settings.AntiRaid || !settings.WebsiteFilter {
		t.Errorf("unknown guilds must default to full protection: %+v", settings)
	}
}

func TestSettingsRespectDisabledToggles(t *testing.T) {
	h, store := newTestHandlers(t)

	if err := store.UpsertSecuritySettings(&storage.SecuritySettings{
		ServerID: "guild1",
		AntiNuke: false,
		AntiHack: true,
		AntiRaid: true,
	}); err != nil {
		t.Fatalf("upsert settings: %v", err)
	}

	settings := h.settings("guild1")
	if settings.AntiNuke {
		t.Error("disabled anti-nuke toggle must be honored")
	}
	if !settings.AntiHack {
		t.Error("enabled anti-hack toggle must be honored")
	}
}

func TestLogEventPersists(t *testing.T) {
	h, store := newTestHandlers(t)

	settings := &storage.SecuritySettings{ServerID: "guild1"}
	h.logEvent(settings, "anti-nuke", "Auto-ban", "attacker", "test burst")

	logs, err := store.GetRecentSecurityLogs("guild1", 10)
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("got %d logs, want 1", len(logs))
	}
	if logs[0].Action != "Auto-ban" || logs[0].UserID != "attacker" {
		t.Errorf("log row mismatch: %+v", logs[0])
	}
}

func TestChannelDeleteBurstBansOnce(t *testing.T) {
	h, store := newTestHandlers(t)

	bans := 0
	h.fetchActor = func(_ *discordgo.Session, _ string, _ int) string { return "attacker" }
	h.checkAdmin = func(_ *discordgo.Session, _, _ string) bool { return false }
	h.stripRoles = func(_ *discordgo.Session, _, _ string) error { return nil }
	h.banActor = func(_ *discordgo.Session, _, _, _ string) error { bans++; return nil }

	// Threshold is 3; the fourth delete lands in a fresh window and must
	// not re-trigger.
	for i := 0; i < 4; i++ {
		h.onChannelDelete(nil, &discordgo.ChannelDelete{Channel: &discordgo.Channel{
			ID:      fmt.Sprintf("chan%d", i),
			GuildID: "guild1",
		}})
	}

	if bans != 1 {
		t.Errorf("got %d bans, want exactly 1", bans)
	}

	logs, err := store.GetRecentSecurityLogs("guild1", 10)
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("got %d logs, want exactly 1", len(logs))
	}
	if logs[0].EventType != "anti-nuke" || logs[0].Action != "Auto-ban" || logs[0].UserID != "attacker" {
		t.Errorf("log row mismatch: %+v", logs[0])
	}
}

func TestChannelDeleteBurstByAdminWarnsOnly(t *testing.T) {
	h, store := newTestHandlers(t)

	bans := 0
	strips := 0
	h.fetchActor = func(_ *discordgo.Session, _ string, _ int) string { return "owner" }
	h.checkAdmin = func(_ *discordgo.Session, _, _ string) bool { return true }
	h.stripRoles = func(_ *discordgo.Session, _, _ string) error { strips++; return nil }
	h.banActor = func(_ *discordgo.Session, _, _, _ string) error { bans++; return nil }

	for i := 0; i < 3; i++ {
		h.onChannelDelete(nil, &discordgo.ChannelDelete{Channel: &discordgo.Channel{
			ID:      fmt.Sprintf("chan%d", i),
			GuildID: "guild1",
		}})
	}

	if bans != 0 || strips != 0 {
		t.Errorf("admins must not be punished, got %d bans and %d strips", bans, strips)
	}

	logs, err := store.GetRecentSecurityLogs("guild1", 10)
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "Warning only" {
		t.Fatalf("want a single Warning only log, got %+v", logs)
	}
}

func TestEndRaidWritesLog(t *testing.T) {
	h, store := newTestHandlers(t)

	now := time.Now()
	for i := 0; i < 5; i++ {
		h.raids.RecordJoin("guild1", detectors.Joiner{
			MemberID:  fmt.Sprintf("member%d", i),
			Username:  fmt.Sprintf("user%d", i),
			CreatedAt: now,
		}, now)
	}
	if !h.raids.Active("guild1") {
		t.Fatal("a burst of brand-new accounts should start a raid")
	}

	if !h.EndRaid("guild1", "manually ended") {
		t.Fatal("EndRaid should report true for an active raid")
	}

	logs, err := store.GetRecentSecurityLogs("guild1", 10)
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	ended := 0
	for _, log := range logs {
		if log.EventType == "anti-raid" && log.Action == "Raid mode ended" {
			ended++
		}
	}
	if ended != 1 {
		t.Errorf("got %d raid-ended logs, want exactly 1", ended)
	}

	if h.EndRaid("guild1", "again") {
		t.Error("second EndRaid should report false")
	}
}

func TestRolePermCache(t *testing.T) {
	h, _ := newTestHandlers(t)

	if _, known := h.rolePerms("g1", "r1"); known {
		t.Error("unknown role should not be cached")
	}

	h.rememberRolePerms("g1", "r1", 0x8)
	perms, known := h.rolePerms("g1", "r1")
	if !known || perms != 0x8 {
		t.Errorf("got (%d, %v), want (8, true)", perms, known)
	}

	h.rememberRolePerms("g1", "r1", 0x10)
	perms, _ = h.rolePerms("g1", "r1")
	if perms != 0x10 {
		t.Errorf("cache should update, got %d", perms)
	}
}
