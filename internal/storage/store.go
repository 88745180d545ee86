package storage

import "time"

// DiscordServer is a guild the bot is a member of.
type DiscordServer struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	OwnerID     string    `json:"ownerId"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SecuritySettings holds the per-server protection toggles. Every event
// handler reads these before acting; a disabled feature makes the handler
// a no-op.
type SecuritySettings struct {
	ServerID       string    `json:"serverId"`
	AntiNuke       bool      `json:"antiNuke"`
	AntiHack       bool      `json:"antiHack"`
	AntiRaid       bool      `json:"antiRaid"`
	WebsiteFilter  bool      `json:"websiteFilter"`
	AllowedDomains []string  `json:"allowedDomains"`
	VerifiedRoleID string    `json:"verifiedRoleId"`
	LogChannelID   string    `json:"logChannelId"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// RobloxVerification links a Discord user to a Roblox account.
// At most one record exists per Discord user.
type RobloxVerification struct {
	ID             int64     `json:"id"`
	DiscordUserID  string    `json:"discordUserId"`
	RobloxUserID   int64     `json:"robloxUserId"`
	RobloxUsername string    `json:"robloxUsername"`
	ServerID       string    `json:"serverId"`
	VerifiedAt     time.Time `json:"verifiedAt"`
}

// PendingVerification is the challenge issued by /verify. It expires 30
// minutes after creation; expiry is checked lazily at lookup time.
type PendingVerification struct {
	ID               int64     `json:"id"`
	DiscordUserID    string    `json:"discordUserId"`
	VerificationCode string    `json:"verificationCode"`
	ServerID         string    `json:"serverId"`
	RobloxUsername   string    `json:"robloxUsername"`
	RobloxUserID     int64     `json:"robloxUserId"`
	CreatedAt        time.Time `json:"createdAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
}

// SecurityLog is an append-only record of an enforcement or audit event.
type SecurityLog struct {
	ID        int64     `json:"id"`
	ServerID  string    `json:"serverId"`
	EventType string    `json:"eventType"`
	Action    string    `json:"action"`
	UserID    string    `json:"userId"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// Ticket statuses.
const (
	TicketOpen       = "open"
	TicketInProgress = "inProgress"
	TicketClosed     = "closed"
)

// Ticket is a support ticket bound to a private channel. Rows are never
// deleted; closing a ticket deletes the channel but keeps the record.
type Ticket struct {
	ID           int64      `json:"id"`
	ServerID     string     `json:"serverId"`
	ChannelID    string     `json:"channelId"`
	UserID       string     `json:"userId"`
	Issue        string     `json:"issue"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	ClosedAt     *time.Time `json:"closedAt,omitempty"`
	ClosedBy     string     `json:"closedBy,omitempty"`
	ClosedReason string     `json:"closedReason,omitempty"`
}

// ServerStats is a computed view over the logs, tickets and verification
// tables. Nothing increments these counters directly, so they cannot
// drift from the underlying data.
type ServerStats struct {
	ServerID        string `json:"serverId"`
	SecurityScore   int    `json:"securityScore"`
	ThreatsBlocked  int    `json:"threatsBlocked"`
	VerifiedMembers int    `json:"verifiedMembers"`
	TotalMembers    int    `json:"totalMembers"`
	OpenTickets     int    `json:"openTickets"`
}

// Store is the repository for all durable bot state. Handlers receive a
// Store instead of reaching for package globals so a different backend
// can sit behind the same interface.
type Store interface {
	// Discord servers
	GetDiscordServer(id string) (*DiscordServer, error)
	GetAllDiscordServers() ([]*DiscordServer, error)
	UpsertDiscordServer(server *DiscordServer) error

	// Security settings
	GetSecuritySettings(serverID string) (*SecuritySettings, error)
	UpsertSecuritySettings(settings *SecuritySettings) error

	// Roblox verifications
	GetRobloxVerificationByDiscordID(discordUserID string) (*RobloxVerification, error)
	GetRobloxVerifications(serverID string) ([]*RobloxVerification, error)
	CreateRobloxVerification(v *RobloxVerification) error
	RemoveRobloxVerification(discordUserID string) error

	// Pending verifications
	GetPendingVerificationByDiscordID(discordUserID string) (*PendingVerification, error)
	CreatePendingVerification(p *PendingVerification) error
	RemovePendingVerification(id int64) error

	// Security logs
	CreateSecurityLog(log *SecurityLog) error
	GetRecentSecurityLogs(serverID string, limit int) ([]*SecurityLog, error)

	// Tickets
	GetTicket(id int64) (*Ticket, error)
	GetTicketByChannelID(channelID string) (*Ticket, error)
	GetOpenTicketByUser(serverID, userID string) (*Ticket, error)
	GetAllTickets(serverID string) ([]*Ticket, error)
	GetOpenTickets(serverID string) ([]*Ticket, error)
	CreateTicket(ticket *Ticket) error
	CloseTicket(id int64, closedBy, reason string, closedAt time.Time) error

	// Stats
	GetServerStats(serverID string) (*ServerStats, error)

	Close() error
}
