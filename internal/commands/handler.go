package commands

import (
	"fmt"
	"strings"

	"github.com/Elliesaur/DiscordEventLogger/internal/bot"
	"github.com/Elliesaur/DiscordEventLogger/internal/config"
	"github.com/Elliesaur/DiscordEventLogger/internal/database"
	"github.com/Elliesaur/DiscordEventLogger/internal/events"
	"github.com/Elliesaur/DiscordEventLogger/internal/logging"
	"github.com/Elliesaur/DiscordEventLogger/pkg/util"

	"github.com/bwmarrin/discordgo"
)

// Discord rejects messages over 2000 characters; leave headroom for the
// code fences replies get wrapped in.
const replyChunkLimit = 1800

// Handler processes prefix commands from guild administrators.
type Handler struct {
	session *bot.Session
	catalog *events.Catalog
	prefix  string
}

// Initialize creates the command handler and registers it on the session
func Initialize(session *bot.Session, catalog *events.Catalog) error {
	h := &Handler{
		session: session,
		catalog: catalog,
		prefix:  config.Get().Bot.CommandPrefix,
	}

	session.AddHandler(h.handleMessage)

	logging.Info("Command handler initialized with prefix %q", h.prefix)
	return nil
}

func (h *Handler) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	if !strings.HasPrefix(m.Content, h.prefix) {
		return
	}

	body := strings.TrimSpace(strings.TrimPrefix(m.Content, h.prefix))
	name, rest, _ := strings.Cut(body, " ")
	name = strings.ToLower(name)
	rest = strings.TrimSpace(rest)
	if name == "" {
		return
	}

	ok, err := h.checkAdmin(s, m)
	if err != nil {
		logging.Warn("command %s: permission check failed in guild %s: %v", name, m.GuildID, err)
		return
	}
	if !ok {
		return
	}

	// Configuration commands only answer inside a configured log channel,
	// so the bot stays silent in regular conversation. Bootstrapping and
	// teardown are exempt.
	if name != "setlogchannel" && name != "removeeventlogger" {
		if !h.inLogChannel(m) {
			return
		}
	}

	switch name {
	case "setlogchannel":
		err = h.setLogChannel(m, rest)
	case "addevents":
		err = h.addEvents(m, rest)
	case "removeevents", "deleteevents":
		err = h.removeEvents(m, rest)
	case "events", "listevents":
		err = h.listEvents(m)
	case "addeventaction":
		err = h.addEventAction(m, rest)
	case "removeeventaction", "deleteeventaction":
		err = h.removeEventActions(m, rest)
	case "listeventactions", "eventactions":
		err = h.listEventActions(m)
	case "addlogchannels":
		err = h.addLogChannels(m, rest)
	case "removelogchannels", "deletelogchannels":
		err = h.removeLogChannels(m, rest)
	case "listlogchannels", "logchannels":
		err = h.listLogChannels(m)
	case "removeeventlogger":
		err = h.removeEventLogger(m)
	case "status":
		err = h.status(s, m)
	default:
		return
	}

	if err != nil {
		logging.Warn("command %s failed in guild %s: %v", name, m.GuildID, err)
		h.reply(m.ChannelID, "Something went wrong running that command.")
	}
}

// checkAdmin reports whether the author may configure the bot: the guild
// owner or any member holding Administrator.
func (h *Handler) checkAdmin(s *discordgo.Session, m *discordgo.MessageCreate) (bool, error) {
	guild, err := s.State.Guild(m.GuildID)
	if err != nil {
		guild, err = s.Guild(m.GuildID)
		if err != nil {
			return false, fmt.Errorf("failed to get guild: %w", err)
		}
	}

	if m.Author.ID == guild.OwnerID {
		return true, nil
	}

	permissions, err := s.State.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		permissions, err = s.UserChannelPermissions(m.Author.ID, m.ChannelID)
		if err != nil {
			return false, fmt.Errorf("failed to get permissions: %w", err)
		}
	}

	return permissions&discordgo.PermissionAdministrator != 0, nil
}

// inLogChannel reports whether the message arrived in the guild's default
// log channel or any override channel. A guild with no log channel yet
// accepts commands anywhere.
func (h *Handler) inLogChannel(m *discordgo.MessageCreate) bool {
	cfg, err := database.GetDB().GetOrCreateGuildConfig(m.GuildID)
	if err != nil {
		logging.Warn("failed to load config for guild %s: %v", m.GuildID, err)
		return false
	}

	if cfg.LogChannelID == "" && len(cfg.LogChannels) == 0 {
		return true
	}
	if cfg.LogChannelID == m.ChannelID {
		return true
	}
	for _, lc := range cfg.LogChannels {
		if lc.ChannelID == m.ChannelID {
			return true
		}
	}
	return false
}

// reply sends a response, splitting anything too long for one message.
func (h *Handler) reply(channelID, content string) {
	for _, chunk := range util.ChunkMessage(content, replyChunkLimit) {
		if _, err := h.session.GetDiscord().ChannelMessageSend(channelID, chunk); err != nil {
			logging.Warn("failed to send reply to channel %s: %v", channelID, err)
			return
		}
	}
}

// validateEvents folds aliases and rejects unknown names, returning the
// canonical spellings.
func (h *Handler) validateEvents(names []string) ([]string, error) {
	canonical := make([]string, 0, len(names))
	for _, name := range names {
		folded, ok := h.catalog.Canonical(name)
		if !ok {
			return nil, fmt.Errorf("unknown event %q", name)
		}
		canonical = append(canonical, folded)
	}
	return canonical, nil
}
