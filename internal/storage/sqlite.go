package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates and initializes the SQLite database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS discord_servers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		member_count INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS security_settings (
		server_id TEXT PRIMARY KEY,
		anti_nuke INTEGER DEFAULT 1,
		anti_hack INTEGER DEFAULT 1,
		anti_raid INTEGER DEFAULT 1,
		website_filter INTEGER DEFAULT 1,
		allowed_domains TEXT DEFAULT '',
		verified_role_id TEXT DEFAULT '',
		log_channel_id TEXT DEFAULT '',
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS roblox_verifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		discord_user_id TEXT NOT NULL,
		roblox_user_id INTEGER NOT NULL,
		roblox_username TEXT NOT NULL,
		server_id TEXT NOT NULL,
		verified_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_verifications_discord ON roblox_verifications(discord_user_id);
	CREATE INDEX IF NOT EXISTS idx_verifications_server ON roblox_verifications(server_id);

	CREATE TABLE IF NOT EXISTS pending_verifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		discord_user_id TEXT NOT NULL,
		verification_code TEXT NOT NULL,
		server_id TEXT NOT NULL,
		roblox_username TEXT DEFAULT '',
		roblox_user_id INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pending_discord ON pending_verifications(discord_user_id);

	CREATE TABLE IF NOT EXISTS security_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		server_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		action TEXT NOT NULL,
		user_id TEXT DEFAULT '',
		details TEXT DEFAULT '',
		timestamp INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_logs_server ON security_logs(server_id);
	CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON security_logs(timestamp);

	CREATE TABLE IF NOT EXISTS tickets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		server_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		issue TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		created_at INTEGER NOT NULL,
		closed_at INTEGER,
		closed_by TEXT DEFAULT '',
		closed_reason TEXT DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_tickets_server ON tickets(server_id);
	CREATE INDEX IF NOT EXISTS idx_tickets_channel ON tickets(channel_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// ===== Discord servers =====

func (s *SQLiteStore) GetDiscordServer(id string) (*DiscordServer, error) {
	var srv DiscordServer
	var createdAt, updatedAt int64
	err := s.db.QueryRow(
		`SELECT id, name, owner_id, member_count, created_at, updated_at
		 FROM discord_servers WHERE id = ?`,
		id,
	).Scan(&srv.ID, &srv.Name, &srv.OwnerID, &srv.MemberCount, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	srv.CreatedAt = time.Unix(createdAt, 0)
	srv.UpdatedAt = time.Unix(updatedAt, 0)
	return &srv, nil
}

func (s *SQLiteStore) GetAllDiscordServers() ([]*DiscordServer, error) {
	rows, err := s.db.Query(
		`SELECT id, name, owner_id, member_count, created_at, updated_at
		 FROM discord_servers ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []*DiscordServer
	for rows.Next() {
		var srv DiscordServer
		var createdAt, updatedAt int64
		if err := rows.Scan(&srv.ID, &srv.Name, &srv.OwnerID, &srv.MemberCount, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		srv.CreatedAt = time.Unix(createdAt, 0)
		srv.UpdatedAt = time.Unix(updatedAt, 0)
		servers = append(servers, &srv)
	}

	return servers, rows.Err()
}

func (s *SQLiteStore) UpsertDiscordServer(server *DiscordServer) error {
	now := time.Now()
	server.UpdatedAt = now
	if server.CreatedAt.IsZero() {
		server.CreatedAt = now
	}

	_, err := s.db.Exec(
		`INSERT INTO discord_servers (id, name, owner_id, member_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   owner_id = excluded.owner_id,
		   member_count = excluded.member_count,
		   updated_at = excluded.updated_at`,
		server.ID, server.Name, server.OwnerID, server.MemberCount,
		server.CreatedAt.Unix(), server.UpdatedAt.Unix(),
	)
	return err
}

// ===== Security settings =====

// GetSecuritySettings returns the stored settings for a server, or the
// defaults (all features enabled) if none have been saved yet.
func (s *SQLiteStore) GetSecuritySettings(serverID string) (*SecuritySettings, error) {
	var settings SecuritySettings
	var antiNuke, antiHack, antiRaid, websiteFilter int
	var domains string
	var updatedAt int64

	err := s.db.QueryRow(
		`SELECT server_id, anti_nuke, anti_hack, anti_raid, website_filter,
		        allowed_domains, verified_role_id, log_channel_id, updated_at
		 FROM security_settings WHERE server_id = ?`,
		serverID,
	).Scan(&settings.ServerID, &antiNuke, &antiHack, &antiRaid, &websiteFilter,
		&domains, &settings.VerifiedRoleID, &settings.LogChannelID, &updatedAt)

	if err == sql.ErrNoRows {
		return &SecuritySettings{
			ServerID:      serverID,
			AntiNuke:      true,
			AntiHack:      true,
			AntiRaid:      true,
			WebsiteFilter: true,
			UpdatedAt:     time.Now(),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	settings.AntiNuke = antiNuke != 0
	settings.AntiHack = antiHack != 0
	settings.AntiRaid = antiRaid != 0
	settings.WebsiteFilter = websiteFilter != 0
	settings.AllowedDomains = splitDomains(domains)
	settings.UpdatedAt = time.Unix(updatedAt, 0)
	return &settings, nil
}

func (s *SQLiteStore) UpsertSecuritySettings(settings *SecuritySettings) error {
	settings.UpdatedAt = time.Now()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO security_settings
		 (server_id, anti_nuke, anti_hack, anti_raid, website_filter,
		  allowed_domains, verified_role_id, log_channel_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		settings.ServerID, boolInt(settings.AntiNuke), boolInt(settings.AntiHack),
		boolInt(settings.AntiRaid), boolInt(settings.WebsiteFilter),
		joinDomains(settings.AllowedDomains), settings.VerifiedRoleID,
		settings.LogChannelID, settings.UpdatedAt.Unix(),
	)
	return err
}

// ===== Roblox verifications =====

func (s *SQLiteStore) GetRobloxVerificationByDiscordID(discordUserID string) (*RobloxVerification, error) {
	var v RobloxVerification
	var verifiedAt int64
	err := s.db.QueryRow(
		`SELECT id, discord_user_id, roblox_user_id, roblox_username, server_id, verified_at
		 FROM roblox_verifications WHERE discord_user_id = ?`,
		discordUserID,
	).Scan(&v.ID, &v.DiscordUserID, &v.RobloxUserID, &v.RobloxUsername, &v.ServerID, &verifiedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	v.VerifiedAt = time.Unix(verifiedAt, 0)
	return &v, nil
}

func (s *SQLiteStore) GetRobloxVerifications(serverID string) ([]*RobloxVerification, error) {
	rows, err := s.db.Query(
		`SELECT id, discord_user_id, roblox_user_id, roblox_username, server_id, verified_at
		 FROM roblox_verifications WHERE server_id = ? ORDER BY verified_at DESC`,
		serverID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var verifications []*RobloxVerification
	for rows.Next() {
		var v RobloxVerification
		var verifiedAt int64
		if err := rows.Scan(&v.ID, &v.DiscordUserID, &v.RobloxUserID, &v.RobloxUsername, &v.ServerID, &verifiedAt); err != nil {
			return nil, err
		}
		v.VerifiedAt = time.Unix(verifiedAt, 0)
		verifications = append(verifications, &v)
	}

	return verifications, rows.Err()
}

func (s *SQLiteStore) CreateRobloxVerification(v *RobloxVerification) error {
	if v.VerifiedAt.IsZero() {
		v.VerifiedAt = time.Now()
	}

	res, err := s.db.Exec(
		`INSERT INTO roblox_verifications (discord_user_id, roblox_user_id, roblox_username, server_id, verified_at)
		 VALUES (?, ?, ?, ?, ?)`,
		v.DiscordUserID, v.RobloxUserID, v.RobloxUsername, v.ServerID, v.VerifiedAt.Unix(),
	)
	if err != nil {
		return err
	}

	v.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) RemoveRobloxVerification(discordUserID string) error {
	_, err := s.db.Exec(
		`DELETE FROM roblox_verifications WHERE discord_user_id = ?`,
		discordUserID,
	)
	return err
}

// ===== Pending verifications =====

func (s *SQLiteStore) GetPendingVerificationByDiscordID(discordUserID string) (*PendingVerification, error) {
	var p PendingVerification
	var createdAt, expiresAt int64
	err := s.db.QueryRow(
		`SELECT id, discord_user_id, verification_code, server_id, roblox_username, roblox_user_id, created_at, expires_at
		 FROM pending_verifications WHERE discord_user_id = ? ORDER BY created_at DESC LIMIT 1`,
		discordUserID,
	).Scan(&p.ID, &p.DiscordUserID, &p.VerificationCode, &p.ServerID,
		&p.RobloxUsername, &p.RobloxUserID, &createdAt, &expiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.CreatedAt = time.Unix(createdAt, 0)
	p.ExpiresAt = time.Unix(expiresAt, 0)
	return &p, nil
}

// CreatePendingVerification replaces any previous pending record for the
// same Discord user so a repeated /verify always issues a fresh code.
func (s *SQLiteStore) CreatePendingVerification(p *PendingVerification) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	if _, err := s.db.Exec(
		`DELETE FROM pending_verifications WHERE discord_user_id = ?`,
		p.DiscordUserID,
	); err != nil {
		return err
	}

	res, err := s.db.Exec(
		`INSERT INTO pending_verifications
		 (discord_user_id, verification_code, server_id, roblox_username, roblox_user_id, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.DiscordUserID, p.VerificationCode, p.ServerID, p.RobloxUsername,
		p.RobloxUserID, p.CreatedAt.Unix(), p.ExpiresAt.Unix(),
	)
	if err != nil {
		return err
	}

	p.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) RemovePendingVerification(id int64) error {
	_, err := s.db.Exec(`DELETE FROM pending_verifications WHERE id = ?`, id)
	return err
}

// ===== Security logs =====

func (s *SQLiteStore) CreateSecurityLog(log *SecurityLog) error {
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}

	res, err := s.db.Exec(
		`INSERT INTO security_logs (server_id, event_type, action, user_id, details, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		log.ServerID, log.EventType, log.Action, log.UserID, log.Details, log.Timestamp.Unix(),
	)
	if err != nil {
		return err
	}

	log.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) GetRecentSecurityLogs(serverID string, limit int) ([]*SecurityLog, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, server_id, event_type, action, user_id, details, timestamp
		 FROM security_logs WHERE server_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		serverID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*SecurityLog
	for rows.Next() {
		var log SecurityLog
		var ts int64
		if err := rows.Scan(&log.ID, &log.ServerID, &log.EventType, &log.Action, &log.UserID, &log.Details, &ts); err != nil {
			return nil, err
		}
		log.Timestamp = time.Unix(ts, 0)
		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

// ===== Tickets =====

func (s *SQLiteStore) GetTicket(id int64) (*Ticket, error) {
	return s.queryTicket(`SELECT id, server_id, channel_id, user_id, issue, status, created_at, closed_at, closed_by, closed_reason
		 FROM tickets WHERE id = ?`, id)
}

func (s *SQLiteStore) GetTicketByChannelID(channelID string) (*Ticket, error) {
	return s.queryTicket(`SELECT id, server_id, channel_id, user_id, issue, status, created_at, closed_at, closed_by, closed_reason
		 FROM tickets WHERE channel_id = ?`, channelID)
}

func (s *SQLiteStore) GetOpenTicketByUser(serverID, userID string) (*Ticket, error) {
	return s.queryTicket(`SELECT id, server_id, channel_id, user_id, issue, status, created_at, closed_at, closed_by, closed_reason
		 FROM tickets WHERE server_id = ? AND user_id = ? AND status = 'open'
		 ORDER BY created_at DESC LIMIT 1`, serverID, userID)
}

func (s *SQLiteStore) queryTicket(query string, args ...interface{}) (*Ticket, error) {
	var t Ticket
	var createdAt int64
	var closedAt sql.NullInt64
	err := s.db.QueryRow(query, args...).Scan(
		&t.ID, &t.ServerID, &t.ChannelID, &t.UserID, &t.Issue, &t.Status,
		&createdAt, &closedAt, &t.ClosedBy, &t.ClosedReason,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t.CreatedAt = time.Unix(createdAt, 0)
	if closedAt.Valid {
		ts := time.Unix(closedAt.Int64, 0)
		t.ClosedAt = &ts
	}
	return &t, nil
}

func (s *SQLiteStore) GetAllTickets(serverID string) ([]*Ticket, error) {
	return s.queryTickets(
		`SELECT id, server_id, channel_id, user_id, issue, status, created_at, closed_at, closed_by, closed_reason
		 FROM tickets WHERE server_id = ? ORDER BY created_at DESC`,
		serverID,
	)
}

func (s *SQLiteStore) GetOpenTickets(serverID string) ([]*Ticket, error) {
	return s.queryTickets(
		`SELECT id, server_id, channel_id, user_id, issue, status, created_at, closed_at, closed_by, closed_reason
		 FROM tickets WHERE server_id = ? AND status = 'open' ORDER BY created_at DESC`,
		serverID,
	)
}

func (s *SQLiteStore) queryTickets(query string, args ...interface{}) ([]*Ticket, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*Ticket
	for rows.Next() {
		var t Ticket
		var createdAt int64
		var closedAt sql.NullInt64
		if err := rows.Scan(&t.ID, &t.ServerID, &t.ChannelID, &t.UserID, &t.Issue, &t.Status,
			&createdAt, &closedAt, &t.ClosedBy, &t.ClosedReason); err != nil {
			return nil, err
		}
		t.CreatedAt = time.Unix(createdAt, 0)
		if closedAt.Valid {
			ts := time.Unix(closedAt.Int64, 0)
			t.ClosedAt = &ts
		}
		tickets = append(tickets, &t)
	}

	return tickets, rows.Err()
}

func (s *SQLiteStore) CreateTicket(ticket *Ticket) error {
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	if ticket.Status == "" {
		ticket.Status = TicketOpen
	}

	res, err := s.db.Exec(
		`INSERT INTO tickets (server_id, channel_id, user_id, issue, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ticket.ServerID, ticket.ChannelID, ticket.UserID, ticket.Issue,
		ticket.Status, ticket.CreatedAt.Unix(),
	)
	if err != nil {
		return err
	}

	ticket.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) CloseTicket(id int64, closedBy, reason string, closedAt time.Time) error {
	_, err := s.db.Exec(
		`UPDATE tickets SET status = 'closed', closed_at = ?, closed_by = ?, closed_reason = ?
		 WHERE id = ?`,
		closedAt.Unix(), closedBy, reason, id,
	)
	return err
}

// ===== Stats =====

// Enforcement actions that count toward threatsBlocked. Warning-only
// entries and lifecycle events (raid mode ended, lockdowns) do not.
var threatActions = []string{"Auto-ban", "Roles removed", "Raid detected", "URL blocked"}

// GetServerStats derives the dashboard counters from the authoritative
// tables instead of keeping separately incremented counters.
func (s *SQLiteStore) GetServerStats(serverID string) (*ServerStats, error) {
	stats := &ServerStats{ServerID: serverID}

	placeholders := strings.Repeat("?,", len(threatActions))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, 0, len(threatActions)+1)
	args = append(args, serverID)
	for _, a := range threatActions {
		args = append(args, a)
	}

	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM security_logs WHERE server_id = ? AND action IN (`+placeholders+`)`,
		args...,
	).Scan(&stats.ThreatsBlocked)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM roblox_verifications WHERE server_id = ?`,
		serverID,
	).Scan(&stats.VerifiedMembers)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM tickets WHERE server_id = ? AND status = 'open'`,
		serverID,
	).Scan(&stats.OpenTickets)
	if err != nil {
		return nil, err
	}

	if srv, err := s.GetDiscordServer(serverID); err == nil && srv != nil {
		stats.TotalMembers = srv.MemberCount
	}

	settings, err := s.GetSecuritySettings(serverID)
	if err != nil {
		return nil, err
	}
	for _, enabled := range []bool{settings.AntiNuke, settings.AntiHack, settings.AntiRaid, settings.WebsiteFilter} {
		if enabled {
			stats.SecurityScore += 25
		}
	}

	return stats, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func splitDomains(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	domains := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			domains = append(domains, p)
		}
	}
	return domains
}

func joinDomains(domains []string) string {
	return strings.Join(domains, ",")
}
