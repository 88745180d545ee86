package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/joelikes8/Discord-CBA-Bot/internal/bot"
	"github.com/joelikes8/Discord-CBA-Bot/internal/logging"
	"github.com/joelikes8/Discord-CBA-Bot/internal/roblox"
	"github.com/joelikes8/Discord-CBA-Bot/internal/storage"
	"github.com/joelikes8/Discord-CBA-Bot/internal/verification"
)

// Handler manages all command interactions
type Handler struct {
	session  *bot.Session
	store    storage.Store
	verifier *verification.Service
	roblox   *roblox.Client
	groupID  int64
	events   *bot.Handlers
}

var globalHandler *Handler

// Initialize creates the command handler, wires it into the session and
// registers the slash commands with Discord.
func Initialize(session *bot.Session, store storage.Store, verifier *verification.Service, rbx *roblox.Client, groupID int64, events *bot.Handlers) error {
	globalHandler = &Handler{
		session:  session,
		store:    store,
		verifier: verifier,
		roblox:   rbx,
		groupID:  groupID,
		events:   events,
	}

	session.AddHandler(globalHandler.handleInteraction)

	commands := GetAllCommands()
	if err := session.RegisterCommands(commands); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	logging.Info("Command handler initialized with %d commands", len(commands))
	return nil
}

// GetHandler returns the global command handler
func GetHandler() *Handler {
	return globalHandler
}

// handleInteraction routes all interactions (commands and buttons)
func (h *Handler) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.handleCommand(s, i)
	case discordgo.InteractionMessageComponent:
		h.handleComponent(s, i)
	}
}

// handleCommand routes slash commands to their handlers. Member is nil
// for DM interactions; commands are registered guild-only but an old
// registration can still deliver one, so refuse rather than panic.
func (h *Handler) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil {
		respondError(s, i, "Commands only work inside a server")
		return
	}

	data := i.ApplicationCommandData()

	var err error
	switch data.Name {
	case "verify":
		err = h.handleVerify(s, i)
	case "checkverify":
		err = h.handleCheckVerify(s, i)
	case "reverify":
		err = h.handleReverify(s, i)
	case "whois":
		err = h.handleWhois(s, i)
	case "promote":
		err = h.handlePromote(s, i)
	case "ticket":
		err = h.handleTicket(s, i)
	case "closeticket":
		err = h.handleCloseTicket(s, i)
	case "ticketpanel":
		err = h.handleTicketPanel(s, i)
	case "securitystats":
		err = h.handleSecurityStats(s, i)
	case "lockdown":
		err = h.handleLockdown(s, i)
	case "endraid":
		err = h.handleEndRaid(s, i)
	case "allowsite":
		err = h.handleAllowSite(s, i)
	case "disallowsite":
		err = h.handleDisallowSite(s, i)
	default:
		err = fmt.Errorf("unknown command: %s", data.Name)
	}

	if err != nil {
		logging.Error("Command error [%s]: %v", data.Name, err)
		respondError(s, i, err.Error())
	}
}

// handleComponent routes button presses
func (h *Handler) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil {
		respondError(s, i, "Buttons only work inside a server")
		return
	}

	data := i.MessageComponentData()

	var err error
	switch data.CustomID {
	case "create_ticket":
		err = h.handleTicketButton(s, i)
	case "close_ticket":
		err = h.handleCloseTicketButton(s, i)
	default:
		err = fmt.Errorf("unknown component: %s", data.CustomID)
	}

	if err != nil {
		logging.Error("Component error [%s]: %v", data.CustomID, err)
		respondError(s, i, err.Error())
	}
}

// respondError sends an ephemeral error message
func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("❌ %s", message),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// respondEphemeral sends a plain ephemeral text response
func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, message string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// respondEmbed sends an embed response, ephemeral when requested
func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// hasPermission checks the invoking member's computed permissions.
func hasPermission(i *discordgo.InteractionCreate, perm int64) bool {
	return i.Member != nil && i.Member.Permissions&(perm|discordgo.PermissionAdministrator) != 0
}

// optionMap flattens command options for lookup by name
func optionMap(data discordgo.ApplicationCommandInteractionData) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		opts[opt.Name] = opt
	}
	return opts
}
