package commands

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/joelikes8/Discord-CBA-Bot/internal/logging"
	"github.com/joelikes8/Discord-CBA-Bot/internal/verification"
)

func (h *Handler) handleVerify(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	data := i.ApplicationCommandData()
	opts := optionMap(data)
	username := opts["username"].StringValue()

	pending, err := h.verifier.Verify(i.Member.User.ID, i.GuildID, username)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrAlreadyVerified):
			current, whoisErr := h.verifier.Whois(i.Member.User.ID)
			if whoisErr == nil {
				return respondEphemeral(s, i, fmt.Sprintf(
					"You are already verified as **%s**. Use `/reverify` to link a different account.",
					current.RobloxUsername))
			}
			return respondEphemeral(s, i, "You are already verified. Use `/reverify` to link a different account.")
		case errors.Is(err, verification.ErrRobloxUserNotFound):
			return respondEphemeral(s, i, fmt.Sprintf("No Roblox account named **%s** was found. Check the spelling and try again.", username))
		default:
			logging.Error("verify failed for %s: %v", i.Member.User.ID, err)
			return respondEphemeral(s, i, "Something went wrong talking to Roblox. Please try again later.")
		}
	}

	embed := &discordgo.MessageEmbed{
		Title: "🔗 Verify Your Roblox Account",
		Color: 0x5865F2,
		Description: fmt.Sprintf(
			"**Step 1:** Copy this code:\n```%s```\n"+
				"**Step 2:** Paste it anywhere in your Roblox profile **About** section.\n"+
				"**Step 3:** Run `/checkverify` here.\n\n"+
				"Verifying as **%s**. The code expires in 30 minutes.",
			pending.VerificationCode, pending.RobloxUsername),
	}
	return respondEmbed(s, i, embed, true)
}

func (h *Handler) handleCheckVerify(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	v, err := h.verifier.CheckVerify(i.Member.User.ID)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrNoPending):
			return respondEphemeral(s, i, "You have no verification in progress. Run `/verify <username>` first.")
		case errors.Is(err, verification.ErrExpired):
			return respondEphemeral(s, i, "Your verification code expired. Run `/verify` again to get a new one.")
		case errors.Is(err, verification.ErrInsufficientInfo):
			return respondEphemeral(s, i, "Your Roblox profile description is empty. Paste the code into your **About** section and try again.")
		case errors.Is(err, verification.ErrCodeNotFound):
			return respondEphemeral(s, i, "The code was not found in your profile. Make sure you saved your **About** section, then try again.")
		default:
			logging.Error("checkverify failed for %s: %v", i.Member.User.ID, err)
			return respondEphemeral(s, i, "Something went wrong talking to Roblox. Please try again later.")
		}
	}

	// Nickname and role are cosmetics on top of the stored binding, so
	// failures are logged and ignored.
	if _, err := s.GuildMemberEdit(i.GuildID, i.Member.User.ID, &discordgo.GuildMemberParams{Nick: v.RobloxUsername}); err != nil {
		logging.Debug("Could not set nickname for %s: %v", i.Member.User.ID, err)
	}
	if settings, err := h.store.GetSecuritySettings(i.GuildID); err == nil && settings.VerifiedRoleID != "" {
		if err := s.GuildMemberRoleAdd(i.GuildID, i.Member.User.ID, settings.VerifiedRoleID); err != nil {
			logging.Debug("Could not add verified role to %s: %v", i.Member.User.ID, err)
		}
	}

	embed := &discordgo.MessageEmbed{
		Title: "✅ Verification Complete",
		Color: 0x57F287,
		Description: fmt.Sprintf("You are now verified as [%s](https://www.roblox.com/users/%d/profile).",
			v.RobloxUsername, v.RobloxUserID),
	}
	return respondEmbed(s, i, embed, false)
}

func (h *Handler) handleReverify(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	data := i.ApplicationCommandData()
	opts := optionMap(data)
	username := opts["username"].StringValue()

	pending, previous, err := h.verifier.Reverify(i.Member.User.ID, i.GuildID, username)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrRobloxUserNotFound):
			return respondEphemeral(s, i, fmt.Sprintf("No Roblox account named **%s** was found. Check the spelling and try again.", username))
		default:
			logging.Error("reverify failed for %s: %v", i.Member.User.ID, err)
			return respondEphemeral(s, i, "Something went wrong talking to Roblox. Please try again later.")
		}
	}

	description := fmt.Sprintf(
		"**Step 1:** Copy this code:\n```%s```\n"+
			"**Step 2:** Paste it anywhere in your Roblox profile **About** section.\n"+
			"**Step 3:** Run `/checkverify` here.\n\n"+
			"Re-verifying as **%s**. The code expires in 30 minutes.",
		pending.VerificationCode, pending.RobloxUsername)
	if previous != nil {
		description += fmt.Sprintf("\nYour previous link to **%s** has been removed.", previous.RobloxUsername)
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🔗 Re-verify Your Roblox Account",
		Color:       0x5865F2,
		Description: description,
	}
	return respondEmbed(s, i, embed, true)
}

func (h *Handler) handleWhois(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	data := i.ApplicationCommandData()
	opts := optionMap(data)

	target := i.Member.User
	if opt, ok := opts["user"]; ok {
		target = opt.UserValue(s)
	}

	v, err := h.verifier.Whois(target.ID)
	if err != nil {
		if errors.Is(err, verification.ErrNotVerified) {
			return respondEphemeral(s, i, fmt.Sprintf("<@%s> has not linked a Roblox account.", target.ID))
		}
		logging.Error("whois failed for %s: %v", target.ID, err)
		return respondEphemeral(s, i, "Could not look up that member right now.")
	}

	embed := &discordgo.MessageEmbed{
		Title: "🔎 Roblox Account",
		Color: 0x5865F2,
		Description: fmt.Sprintf("<@%s> is verified as [%s](https://www.roblox.com/users/%d/profile).",
			target.ID, v.RobloxUsername, v.RobloxUserID),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Verified",
				Value:  fmt.Sprintf("<t:%d:R>", v.VerifiedAt.Unix()),
				Inline: true,
			},
		},
	}
	return respondEmbed(s, i, embed, false)
}
