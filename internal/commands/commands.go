package commands

import "github.com/bwmarrin/discordgo"

// GetAllCommands returns all application commands. Every command is
// guild-only; none of them make sense in a DM.
func GetAllCommands() []*discordgo.ApplicationCommand {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "verify",
			Description: "Link your Roblox account to this server",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "username",
					Description: "Your Roblox username",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
				},
			},
		},
		{
			Name:        "checkverify",
			Description: "Confirm your verification after adding the code to your Roblox profile",
		},
		{
			Name:        "reverify",
			Description: "Link a different Roblox account",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "username",
					Description: "Your Roblox username",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
				},
			},
		},
		{
			Name:        "whois",
			Description: "Look up a member's linked Roblox account",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "user",
					Description: "Member to look up (defaults to you)",
					Type:        discordgo.ApplicationCommandOptionUser,
					Required:    false,
				},
			},
		},
		{
			Name:        "promote",
			Description: "Promote a verified member in the Roblox group",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "user",
					Description: "Member to promote",
					Type:        discordgo.ApplicationCommandOptionUser,
					Required:    true,
				},
				{
					Name:        "rank",
					Description: "Group rank name to assign",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
				},
			},
		},
		{
			Name:        "ticket",
			Description: "Open a support ticket",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "issue",
					Description: "What do you need help with?",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
				},
			},
		},
		{
			Name:        "closeticket",
			Description: "Close the ticket in this channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "reason",
					Description: "Why the ticket is being closed",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    false,
				},
			},
		},
		{
			Name:        "ticketpanel",
			Description: "Post the ticket panel in this channel",
		},
		{
			Name:        "securitystats",
			Description: "Show security status and recent activity",
		},
		{
			Name:        "lockdown",
			Description: "Temporarily prevent everyone from sending messages",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "reason",
					Description: "Why the server is being locked",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
				},
				{
					Name:        "duration",
					Description: "Lockdown length in minutes (default 10)",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    false,
				},
			},
		},
		{
			Name:        "endraid",
			Description: "End raid protection mode for this server",
		},
		{
			Name:        "allowsite",
			Description: "Add a domain to the allowed website list",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "domain",
					Description: "Domain to allow, e.g. example.com",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
				},
			},
		},
		{
			Name:        "disallowsite",
			Description: "Remove a domain from the allowed website list",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "domain",
					Description: "Domain to remove",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
				},
			},
		},
	}

	dmPermission := false
	for _, cmd := range commands {
		cmd.DMPermission = &dmPermission
	}
	return commands
}
