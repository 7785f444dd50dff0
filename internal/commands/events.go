package commands

import (
	"fmt"
	"strings"

	"github.com/Elliesaur/DiscordEventLogger/internal/database"

	"github.com/bwmarrin/discordgo"
)

// addEvents enables one or more events for the guild. Names are validated
// against the catalog before anything is written.
func (h *Handler) addEvents(m *discordgo.MessageCreate, rest string) error {
	names := strings.Fields(rest)
	if len(names) == 0 {
		h.reply(m.ChannelID, "Usage: "+h.prefix+"addevents <event> [event ...]")
		return nil
	}

	canonical, err := h.validateEvents(names)
	if err != nil {
		h.reply(m.ChannelID, fmt.Sprintf("%v. Use %slistevents to see what is available.", err, h.prefix))
		return nil
	}

	result, err := database.GetDB().AddGuildEvents(m.GuildID, canonical)
	if err != nil {
		return fmt.Errorf("failed to add events: %w", err)
	}

	h.reply(m.ChannelID, fmt.Sprintf("Enabled %d event(s).", result.Affected))
	return nil
}

// removeEvents disables one or more events for the guild.
func (h *Handler) removeEvents(m *discordgo.MessageCreate, rest string) error {
	names := strings.Fields(rest)
	if len(names) == 0 {
		h.reply(m.ChannelID, "Usage: "+h.prefix+"removeevents <event> [event ...]")
		return nil
	}

	canonical, err := h.validateEvents(names)
	if err != nil {
		h.reply(m.ChannelID, fmt.Sprintf("%v. Use %slistevents to see what is available.", err, h.prefix))
		return nil
	}

	result, err := database.GetDB().RemoveGuildEvents(m.GuildID, canonical)
	if err != nil {
		return fmt.Errorf("failed to remove events: %w", err)
	}

	h.reply(m.ChannelID, fmt.Sprintf("Disabled %d event(s).", result.Affected))
	return nil
}

// listEvents shows the guild's enabled events and the full recognized set.
func (h *Handler) listEvents(m *discordgo.MessageCreate) error {
	enabled, err := database.GetDB().GetGuildEvents(m.GuildID)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	var b strings.Builder
	if len(enabled) == 0 {
		b.WriteString("No events enabled.\n")
	} else {
		b.WriteString(fmt.Sprintf("Enabled events (%d):\n```\n%s\n```\n", len(enabled), strings.Join(enabled, "\n")))
	}
	b.WriteString(fmt.Sprintf("Available events:\n```\n%s\n```", strings.Join(h.catalog.Names(), "\n")))

	h.reply(m.ChannelID, b.String())
	return nil
}
