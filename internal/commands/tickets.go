package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/joelikes8/Discord-CBA-Bot/internal/logging"
	"github.com/joelikes8/Discord-CBA-Bot/internal/storage"
)

// Closed ticket channels hang around briefly so participants can read
// the closing notice.
const ticketDeleteDelay = 10 * time.Second

func (h *Handler) handleTicket(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	data := i.ApplicationCommandData()
	opts := optionMap(data)
	issue := opts["issue"].StringValue()

	return h.openTicket(s, i, issue)
}

func (h *Handler) handleTicketButton(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return h.openTicket(s, i, "Support request")
}

func (h *Handler) openTicket(s *discordgo.Session, i *discordgo.InteractionCreate, issue string) error {
	userID := i.Member.User.ID

	existing, err := h.store.GetOpenTicketByUser(i.GuildID, userID)
	if err != nil {
		return fmt.Errorf("failed to check open tickets: %w", err)
	}
	if existing != nil {
		return respondEphemeral(s, i, fmt.Sprintf("You already have an open ticket: <#%s>", existing.ChannelID))
	}

	name := fmt.Sprintf("ticket-%s-%d", sanitizeChannelName(i.Member.User.Username), time.Now().Unix()%10000)
	channel, err := s.GuildChannelCreateComplex(i.GuildID, discordgo.GuildChannelCreateData{
		Name: name,
		Type: discordgo.ChannelTypeGuildText,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{
				ID:   i.GuildID, // @everyone
				Type: discordgo.PermissionOverwriteTypeRole,
				Deny: discordgo.PermissionViewChannel,
			},
			{
				ID:    userID,
				Type:  discordgo.PermissionOverwriteTypeMember,
				Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory,
			},
			{
				ID:    h.session.BotID,
				Type:  discordgo.PermissionOverwriteTypeMember,
				Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionManageChannels,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create ticket channel: %w", err)
	}

	ticket := &storage.Ticket{
		ServerID:  i.GuildID,
		ChannelID: channel.ID,
		UserID:    userID,
		Issue:     issue,
		Status:    storage.TicketOpen,
		CreatedAt: time.Now(),
	}
	if err := h.store.CreateTicket(ticket); err != nil {
		// The channel exists but the row does not; remove the channel so
		// state stays consistent.
		s.ChannelDelete(channel.ID)
		return fmt.Errorf("failed to save ticket: %w", err)
	}

	welcome := &discordgo.MessageEmbed{
		Title:       "🎫 Support Ticket",
		Color:       0x5865F2,
		Description: fmt.Sprintf("<@%s>, a staff member will be with you shortly.\n\n**Issue:** %s", userID, issue),
	}
	s.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{welcome},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Close Ticket",
						Style:    discordgo.DangerButton,
						CustomID: "close_ticket",
						Emoji:    &discordgo.ComponentEmoji{Name: "🔒"},
					},
				},
			},
		},
	})

	logging.Info("Ticket #%d opened by %s in guild %s", ticket.ID, userID, i.GuildID)
	return respondEphemeral(s, i, fmt.Sprintf("✅ Your ticket has been created: <#%s>", channel.ID))
}

func (h *Handler) handleCloseTicket(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	data := i.ApplicationCommandData()
	opts := optionMap(data)

	reason := "Resolved"
	if opt, ok := opts["reason"]; ok {
		reason = opt.StringValue()
	}
	return h.closeTicket(s, i, reason)
}

func (h *Handler) handleCloseTicketButton(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return h.closeTicket(s, i, "Closed via button")
}

func (h *Handler) closeTicket(s *discordgo.Session, i *discordgo.InteractionCreate, reason string) error {
	ticket, err := h.store.GetTicketByChannelID(i.ChannelID)
	if err != nil {
		return fmt.Errorf("failed to look up ticket: %w", err)
	}
	if ticket == nil {
		return respondEphemeral(s, i, "This channel is not a ticket.")
	}
	if ticket.Status == storage.TicketClosed {
		return respondEphemeral(s, i, "This ticket is already closed.")
	}

	closerID := i.Member.User.ID
	if closerID != ticket.UserID && !hasPermission(i, discordgo.PermissionManageChannels) {
		return respondEphemeral(s, i, "Only the ticket creator or staff can close this ticket.")
	}

	if err := h.store.CloseTicket(ticket.ID, closerID, reason, time.Now()); err != nil {
		return fmt.Errorf("failed to close ticket: %w", err)
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🔒 Ticket Closed",
		Color:       0xED4245,
		Description: fmt.Sprintf("Closed by <@%s>.\n**Reason:** %s\n\nThis channel will be deleted in a few seconds.", closerID, reason),
	}
	if err := respondEmbed(s, i, embed, false); err != nil {
		logging.Warn("Failed to announce ticket close in %s: %v", i.ChannelID, err)
	}

	channelID := i.ChannelID
	time.AfterFunc(ticketDeleteDelay, func() {
		if _, err := s.ChannelDelete(channelID); err != nil {
			logging.Warn("Failed to delete ticket channel %s: %v", channelID, err)
		}
	})

	logging.Info("Ticket #%d closed by %s in guild %s", ticket.ID, closerID, i.GuildID)
	return nil
}

func (h *Handler) handleTicketPanel(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !hasPermission(i, discordgo.PermissionManageChannels) {
		return respondEphemeral(s, i, "You need the **Manage Channels** permission to use this command.")
	}

	panel := &discordgo.MessageEmbed{
		Title:       "🎫 Need Help?",
		Color:       0x5865F2,
		Description: "Click the button below to open a private support ticket with the staff team.",
	}
	_, err := s.ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{panel},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Create Ticket",
						Style:    discordgo.PrimaryButton,
						CustomID: "create_ticket",
						Emoji:    &discordgo.ComponentEmoji{Name: "🎫"},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to post ticket panel: %w", err)
	}

	return respondEphemeral(s, i, "✅ Ticket panel posted.")
}

// sanitizeChannelName lowercases and strips characters Discord rejects
// in channel names.
func sanitizeChannelName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "member"
	}
	return b.String()
}
