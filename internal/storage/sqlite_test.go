package storage

import (
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSecuritySettingsDefaults(t *testing.T) {
	store := newTestStore(t)

	settings, err := store.GetSecuritySettings("unknown-guild")
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if !settings.AntiNuke || !settings.AntiHack || !settings.AntiRaid || !settings.WebsiteFilter {
		t.Errorf("unknown guilds should default to full protection: %+v", settings)
	}
}

func TestSecuritySettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)

	in := &SecuritySettings{
		ServerID:       "guild1",
		AntiNuke:       true,
		AntiHack:       false,
		AntiRaid:       true,
		WebsiteFilter:  false,
		AllowedDomains: []string{"example.com", "other.net"},
		VerifiedRoleID: "role1",
		LogChannelID:   "chan1",
	}
	if err := store.UpsertSecuritySettings(in); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	out, err := store.GetSecuritySettings("guild1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.AntiHack || out.WebsiteFilter {
		t.Errorf("disabled toggles did not round-trip: %+v", out)
	}
	if len(out.AllowedDomains) != 2 || out.AllowedDomains[0] != "example.com" {
		t.Errorf("allowedDomains: got %v", out.AllowedDomains)
	}
	if out.VerifiedRoleID != "role1" || out.LogChannelID != "chan1" {
		t.Errorf("ids did not round-trip: %+v", out)
	}

	// Upsert overwrites in place.
	in.AntiHack = true
	if err := store.UpsertSecuritySettings(in); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	out, _ = store.GetSecuritySettings("guild1")
	if !out.AntiHack {
		t.Error("second upsert should overwrite antiHack")
	}
}

func TestPendingVerificationReplaced(t *testing.T) {
	store := newTestStore(t)

	first := &PendingVerification{
		DiscordUserID:    "u1",
		VerificationCode: "AAAA2222",
		ServerID:         "guild1",
		RobloxUsername:   "builderman",
		RobloxUserID:     156,
		ExpiresAt:        time.Now().Add(30 * time.Minute),
	}
	if err := store.CreatePendingVerification(first); err != nil {
		t.Fatalf("create first: %v", err)
	}

	second := &PendingVerification{
		DiscordUserID:    "u1",
		VerificationCode: "BBBB3333",
		ServerID:         "guild1",
		RobloxUsername:   "builderman",
		RobloxUserID:     156,
		ExpiresAt:        time.Now().Add(30 * time.Minute),
	}
	if err := store.CreatePendingVerification(second); err != nil {
		t.Fatalf("create second: %v", err)
	}

	pending, err := store.GetPendingVerificationByDiscordID("u1")
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if pending.VerificationCode != "BBBB3333" {
		t.Errorf("second verify should replace the first code, got %q", pending.VerificationCode)
	}
}

func TestRobloxVerificationLifecycle(t *testing.T) {
	store := newTestStore(t)

	v := &RobloxVerification{
		DiscordUserID:  "u1",
		RobloxUserID:   156,
		RobloxUsername: "builderman",
		ServerID:       "guild1",
	}
	if err := store.CreateRobloxVerification(v); err != nil {
		t.Fatalf("create: %v", err)
	}
	if v.ID == 0 {
		t.Error("insert should backfill the row id")
	}

	got, err := store.GetRobloxVerificationByDiscordID("u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.RobloxUsername != "builderman" {
		t.Fatalf("got %+v", got)
	}

	list, err := store.GetRobloxVerifications("guild1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("list: got %d entries", len(list))
	}

	if err := store.RemoveRobloxVerification("u1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got, err = store.GetRobloxVerificationByDiscordID("u1")
	if err != nil {
		t.Fatalf("get after remove: %v", err)
	}
	if got != nil {
		t.Errorf("binding should be gone, got %+v", got)
	}
}

func TestRecentSecurityLogsNewestFirst(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := store.CreateSecurityLog(&SecurityLog{
			ServerID:  "guild1",
			EventType: "anti-nuke",
			Action:    "Warning only",
			UserID:    "u1",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("create log %d: %v", i, err)
		}
	}

	logs, err := store.GetRecentSecurityLogs("guild1", 3)
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("got %d logs, want 3", len(logs))
	}
	for i := 1; i < len(logs); i++ {
		if logs[i].Timestamp.After(logs[i-1].Timestamp) {
			t.Errorf("logs out of order at index %d", i)
		}
	}
	if !logs[0].Timestamp.Equal(base.Add(4 * time.Minute)) {
		t.Errorf("newest log first: got %v", logs[0].Timestamp)
	}
}

func TestServerStatsComputed(t *testing.T) {
	store := newTestStore(t)

	if err := store.UpsertDiscordServer(&DiscordServer{ID: "guild1", Name: "Test", OwnerID: "o1", MemberCount: 42}); err != nil {
		t.Fatalf("upsert server: %v", err)
	}

	// Two threats, one warning (warnings do not count).
	for _, action := range []string{"Auto-ban", "URL blocked", "Warning only"} {
		if err := store.CreateSecurityLog(&SecurityLog{
			ServerID: "guild1", EventType: "anti-nuke", Action: action, UserID: "u1", Timestamp: time.Now(),
		}); err != nil {
			t.Fatalf("create log: %v", err)
		}
	}

	if err := store.CreateRobloxVerification(&RobloxVerification{
		DiscordUserID: "u1", RobloxUserID: 156, RobloxUsername: "builderman", ServerID: "guild1",
	}); err != nil {
		t.Fatalf("create verification: %v", err)
	}

	ticket := &Ticket{ServerID: "guild1", ChannelID: "c1", UserID: "u1", Issue: "help", CreatedAt: time.Now()}
	if err := store.CreateTicket(ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	stats, err := store.GetServerStats("guild1")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.ThreatsBlocked != 2 {
		t.Errorf("threatsBlocked: got %d, want 2", stats.ThreatsBlocked)
	}
	if stats.VerifiedMembers != 1 {
		t.Errorf("verifiedMembers: got %d, want 1", stats.VerifiedMembers)
	}
	if stats.OpenTickets != 1 {
		t.Errorf("openTickets: got %d, want 1", stats.OpenTickets)
	}
	if stats.TotalMembers != 42 {
		t.Errorf("totalMembers: got %d, want 42", stats.TotalMembers)
	}
	// All four protections default to enabled.
	if stats.SecurityScore != 100 {
		t.Errorf("securityScore: got %d, want 100", stats.SecurityScore)
	}

	// Closing the ticket drops the open count without touching history.
	if err := store.CloseTicket(ticket.ID, "staff", "resolved", time.Now()); err != nil {
		t.Fatalf("close ticket: %v", err)
	}
	stats, _ = store.GetServerStats("guild1")
	if stats.OpenTickets != 0 {
		t.Errorf("openTickets after close: got %d, want 0", stats.OpenTickets)
	}
}

func TestTicketQueries(t *testing.T) {
	store := newTestStore(t)

	ticket := &Ticket{ServerID: "guild1", ChannelID: "chan9", UserID: "u1", Issue: "help", CreatedAt: time.Now()}
	if err := store.CreateTicket(ticket); err != nil {
		t.Fatalf("create: %v", err)
	}

	byChannel, err := store.GetTicketByChannelID("chan9")
	if err != nil {
		t.Fatalf("by channel: %v", err)
	}
	if byChannel == nil || byChannel.ID != ticket.ID {
		t.Fatalf("by channel: got %+v", byChannel)
	}

	open, err := store.GetOpenTicketByUser("guild1", "u1")
	if err != nil {
		t.Fatalf("open by user: %v", err)
	}
	if open == nil {
		t.Fatal("expected an open ticket")
	}

	if err := store.CloseTicket(ticket.ID, "staff", "done", time.Now()); err != nil {
		t.Fatalf("close: %v", err)
	}

	open, err = store.GetOpenTicketByUser("guild1", "u1")
	if err != nil {
		t.Fatalf("open by user after close: %v", err)
	}
	if open != nil {
		t.Errorf("ticket should no longer count as open: %+v", open)
	}

	closed, err := store.GetTicket(ticket.ID)
	if err != nil {
		t.Fatalf("get closed: %v", err)
	}
	if closed.Status != TicketClosed {
		t.Errorf("status: got %q, want %q", closed.Status, TicketClosed)
	}
	if closed.ClosedAt == nil || closed.ClosedBy != "staff" || closed.ClosedReason != "done" {
		t.Errorf("close metadata missing: %+v", closed)
	}
}
