package notifier

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

var discordSession *discordgo.Session

// SetSession sets the Discord session for the notifier
func SetSession(session *discordgo.Session) {
	discordSession = session
}

// SendSecurityAlert posts a red alert embed to the server's log channel.
// Send is fire-and-forget; enforcement never waits on the log message.
func SendSecurityAlert(channelID, emoji, eventName, actorID, actionTaken, details string) {
	if discordSession == nil || channelID == "" {
		return
	}

	userValue := fmt.Sprintf("<@%s> (`%s`)", actorID, actorID)
	if actorID == "" {
		userValue = "System"
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s %s", emoji, eventName),
		Color:       0xED4245,
		Description: fmt.Sprintf("**Action Taken:** %s", actionTaken),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "👤 User",
				Value:  userValue,
				Inline: true,
			},
			{
				Name:   "🕐 Timestamp",
				Value:  fmt.Sprintf("<t:%d:F>", time.Now().Unix()),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "CBA Security",
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	if details != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "📋 Details",
			Value: details,
		})
	}

	go discordSession.ChannelMessageSendEmbed(channelID, embed)
}

// SendNotice posts a neutral informational embed to the log channel,
// used for non-enforcement events like raids ending or lockdowns lifting.
func SendNotice(channelID, emoji, title, description string) {
	if discordSession == nil || channelID == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s %s", emoji, title),
		Color:       0x5865F2,
		Description: description,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "CBA Security",
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	go discordSession.ChannelMessageSendEmbed(channelID, embed)
}
