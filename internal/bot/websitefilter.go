package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/joelikes8/Discord-CBA-Bot/internal/detectors"
	"github.com/joelikes8/Discord-CBA-Bot/internal/logging"
)

func (h *Handlers) onMessageCreate(sess *discordgo.Session, e *discordgo.MessageCreate) {
	if e.Author == nil || e.Author.Bot || e.GuildID == "" {
		return
	}
	h.filterMessage(sess, e.GuildID, e.ChannelID, e.ID, e.Author.ID, e.Content)
}

// Edits are re-checked, otherwise a clean message could be edited into
// a scam link after posting.
func (h *Handlers) onMessageUpdate(sess *discordgo.Session, e *discordgo.MessageUpdate) {
	if e.Author == nil || e.Author.Bot || e.GuildID == "" {
		return
	}
	h.filterMessage(sess, e.GuildID, e.ChannelID, e.ID, e.Author.ID, e.Content)
}

func (h *Handlers) filterMessage(sess *discordgo.Session, guildID, channelID, messageID, authorID, content string) {
	if !strings.Contains(content, "http") {
		return
	}

	settings := h.settings(guildID)
	if !settings.WebsiteFilter {
		return
	}

	blocked := detectors.BlockedURLs(content, settings.AllowedDomains)
	if len(blocked) == 0 {
		return
	}

	if err := sess.ChannelMessageDelete(channelID, messageID); err != nil {
		logging.Warn("[WEBSITE-FILTER] Failed to delete message %s in channel %s: %v", messageID, channelID, err)
		return
	}

	// Tell the author privately; a failure here is fine, DMs may be off.
	if dm, err := sess.UserChannelCreate(authorID); err == nil {
		sess.ChannelMessageSend(dm.ID,
			fmt.Sprintf("🔗 Your message in <#%s> was removed because it contained a link that is not on the server's allowed list: %s",
				channelID, strings.Join(blocked, ", ")))
	}

	h.logEvent(settings, "website-filter", "URL blocked", authorID,
		fmt.Sprintf("Removed %d blocked link(s) in <#%s>", len(blocked), channelID))
}
