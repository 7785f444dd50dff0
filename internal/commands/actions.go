package commands

import (
	"fmt"
	"strings"

	"github.com/Elliesaur/DiscordEventLogger/internal/database"
	"github.com/Elliesaur/DiscordEventLogger/internal/script"
	"github.com/Elliesaur/DiscordEventLogger/pkg/util"

	"github.com/bwmarrin/discordgo"
)

// addEventAction binds an action script to an event. The script is parsed
// and validated before it is stored, so a broken script is rejected here
// rather than failing silently at event time.
func (h *Handler) addEventAction(m *discordgo.MessageCreate, rest string) error {
	eventName, code, _ := strings.Cut(rest, " ")
	code = strings.TrimSpace(util.Safe(code))
	if eventName == "" || code == "" {
		h.reply(m.ChannelID, "Usage: "+h.prefix+"addeventaction <event> <script>")
		return nil
	}

	canonical, err := h.validateEvents([]string{eventName})
	if err != nil {
		h.reply(m.ChannelID, fmt.Sprintf("%v. Use %slistevents to see what is available.", err, h.prefix))
		return nil
	}

	calls, err := script.Parse(code)
	if err != nil {
		h.reply(m.ChannelID, fmt.Sprintf("Script does not parse: %v", err))
		return nil
	}
	if err := script.Validate(calls); err != nil {
		h.reply(m.ChannelID, fmt.Sprintf("Script rejected: %v", err))
		return nil
	}

	ids, _, err := database.GetDB().AddEventActions(m.GuildID, []database.EventAction{
		{Event: canonical[0], ActionCode: code},
	})
	if err != nil {
		return fmt.Errorf("failed to add event action: %w", err)
	}

	h.reply(m.ChannelID, fmt.Sprintf("Added action `%s` for %s.", ids[0], canonical[0]))
	return nil
}

// removeEventActions deletes action bindings by id.
func (h *Handler) removeEventActions(m *discordgo.MessageCreate, rest string) error {
	ids := strings.Fields(rest)
	if len(ids) == 0 {
		h.reply(m.ChannelID, "Usage: "+h.prefix+"removeeventaction <id> [id ...]")
		return nil
	}

	result, err := database.GetDB().RemoveEventActionsByIDs(m.GuildID, ids)
	if err != nil {
		return fmt.Errorf("failed to remove event actions: %w", err)
	}

	h.reply(m.ChannelID, fmt.Sprintf("Removed %d action(s).", result.Affected))
	return nil
}

// listEventActions shows every action binding with its id and script.
func (h *Handler) listEventActions(m *discordgo.MessageCreate) error {
	actions, err := database.GetDB().GetEventActions(m.GuildID)
	if err != nil {
		return fmt.Errorf("failed to list event actions: %w", err)
	}
	if len(actions) == 0 {
		h.reply(m.ChannelID, "No event actions configured.")
		return nil
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Event actions (%d):\n", len(actions)))
	for _, action := range actions {
		b.WriteString(fmt.Sprintf("`%s` %s: ```%s```\n", action.ID, action.Event, util.Safe(action.ActionCode)))
	}

	h.reply(m.ChannelID, b.String())
	return nil
}
