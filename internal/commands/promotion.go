package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/joelikes8/Discord-CBA-Bot/internal/logging"
	"github.com/joelikes8/Discord-CBA-Bot/internal/verification"
)

func (h *Handler) handlePromote(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !hasPermission(i, discordgo.PermissionManageRoles) {
		return respondEphemeral(s, i, "You need the **Manage Roles** permission to use this command.")
	}
	if h.groupID == 0 {
		return respondEphemeral(s, i, "No Roblox group is configured for this bot.")
	}

	data := i.ApplicationCommandData()
	opts := optionMap(data)
	target := opts["user"].UserValue(s)
	rankName := opts["rank"].StringValue()

	binding, err := h.verifier.Whois(target.ID)
	if err != nil {
		if errors.Is(err, verification.ErrNotVerified) {
			return respondEphemeral(s, i, fmt.Sprintf("<@%s> must verify with `/verify` before they can be promoted.", target.ID))
		}
		return fmt.Errorf("failed to look up verification: %w", err)
	}

	roles, err := h.roblox.GetGroupRoles(h.groupID)
	if err != nil {
		logging.Error("promote: failed to fetch group roles: %v", err)
		return respondEphemeral(s, i, "Could not reach Roblox. Please try again later.")
	}

	var roleID int64
	var roleName string
	for _, role := range roles {
		if strings.EqualFold(role.Name, rankName) {
			roleID = role.ID
			roleName = role.Name
			break
		}
	}
	if roleID == 0 {
		var names []string
		for _, role := range roles {
			if role.Rank > 0 {
				names = append(names, role.Name)
			}
		}
		return respondEphemeral(s, i, fmt.Sprintf("No rank named **%s** in the group. Available ranks: %s",
			rankName, strings.Join(names, ", ")))
	}

	if err := h.roblox.SetRank(h.groupID, binding.RobloxUserID, roleID); err != nil {
		logging.Error("promote: failed to set rank for %d: %v", binding.RobloxUserID, err)
		return respondEphemeral(s, i, "Roblox rejected the rank change. Check that the bot account outranks the target.")
	}

	embed := &discordgo.MessageEmbed{
		Title: "📈 Promotion",
		Color: 0x57F287,
		Description: fmt.Sprintf("<@%s> (**%s**) has been ranked to **%s** in the group.",
			target.ID, binding.RobloxUsername, roleName),
	}
	return respondEmbed(s, i, embed, false)
}
