package commands

import (
	"fmt"
	"strings"

	"github.com/Elliesaur/DiscordEventLogger/internal/database"
	"github.com/Elliesaur/DiscordEventLogger/pkg/util"

	"github.com/bwmarrin/discordgo"
)

// setLogChannel sets the guild's default log channel. With no argument the
// invoking channel becomes the target.
func (h *Handler) setLogChannel(m *discordgo.MessageCreate, rest string) error {
	channelID := m.ChannelID
	if rest != "" {
		id, ok := util.ParseChannelMention(strings.Fields(rest)[0])
		if !ok {
			h.reply(m.ChannelID, "That does not look like a channel. Mention it like <#1234>.")
			return nil
		}
		channelID = id
	}

	if _, err := database.GetDB().SetLogChannel(m.GuildID, channelID); err != nil {
		return fmt.Errorf("failed to set log channel: %w", err)
	}

	h.reply(m.ChannelID, fmt.Sprintf("Default log channel is now <#%s>.", channelID))
	return nil
}

// addLogChannels binds override channels to an event: occurrences of the
// event go to these channels instead of the default.
func (h *Handler) addLogChannels(m *discordgo.MessageCreate, rest string) error {
	args := strings.Fields(rest)
	if len(args) < 2 {
		h.reply(m.ChannelID, "Usage: "+h.prefix+"addlogchannels <event> <#channel> [#channel ...]")
		return nil
	}

	canonical, err := h.validateEvents(args[:1])
	if err != nil {
		h.reply(m.ChannelID, fmt.Sprintf("%v. Use %slistevents to see what is available.", err, h.prefix))
		return nil
	}
	event := canonical[0]

	var channels []database.LogChannel
	for _, arg := range args[1:] {
		id, ok := util.ParseChannelMention(arg)
		if !ok {
			h.reply(m.ChannelID, fmt.Sprintf("%q does not look like a channel.", arg))
			return nil
		}
		channels = append(channels, database.LogChannel{Event: event, ChannelID: id})
	}

	ids, _, err := database.GetDB().AddLogChannels(m.GuildID, channels)
	if err != nil {
		return fmt.Errorf("failed to add log channels: %w", err)
	}

	h.reply(m.ChannelID, fmt.Sprintf("Added %d log channel(s) for %s:\n```\n%s\n```",
		len(ids), event, strings.Join(ids, "\n")))
	return nil
}

// removeLogChannels deletes override bindings by id.
func (h *Handler) removeLogChannels(m *discordgo.MessageCreate, rest string) error {
	ids := strings.Fields(rest)
	if len(ids) == 0 {
		h.reply(m.ChannelID, "Usage: "+h.prefix+"removelogchannels <id> [id ...]")
		return nil
	}

	result, err := database.GetDB().RemoveLogChannelsByIDs(m.GuildID, ids)
	if err != nil {
		return fmt.Errorf("failed to remove log channels: %w", err)
	}

	h.reply(m.ChannelID, fmt.Sprintf("Removed %d log channel(s).", result.Affected))
	return nil
}

// listLogChannels shows every override binding with its id.
func (h *Handler) listLogChannels(m *discordgo.MessageCreate) error {
	channels, err := database.GetDB().GetLogChannels(m.GuildID)
	if err != nil {
		return fmt.Errorf("failed to list log channels: %w", err)
	}
	if len(channels) == 0 {
		h.reply(m.ChannelID, "No log channel overrides configured.")
		return nil
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Log channel overrides (%d):\n", len(channels)))
	for _, lc := range channels {
		b.WriteString(fmt.Sprintf("`%s` %s -> <#%s>\n", lc.ID, lc.Event, lc.ChannelID))
	}

	h.reply(m.ChannelID, b.String())
	return nil
}
