package commands

import (
	"fmt"

	"github.com/Elliesaur/DiscordEventLogger/internal/database"
	"github.com/Elliesaur/DiscordEventLogger/internal/logging"

	"github.com/bwmarrin/discordgo"
)

// removeEventLogger deletes every trace of the guild's configuration and
// leaves the guild.
func (h *Handler) removeEventLogger(m *discordgo.MessageCreate) error {
	result, err := database.GetDB().RemoveGuild(m.GuildID)
	if err != nil {
		return fmt.Errorf("failed to remove guild config: %w", err)
	}

	logging.Info("Removed configuration for guild %s (%d rows)", m.GuildID, result.Affected)
	h.reply(m.ChannelID, "Configuration removed. Goodbye!")

	if err := h.session.LeaveGuild(m.GuildID); err != nil {
		return err
	}
	return nil
}
