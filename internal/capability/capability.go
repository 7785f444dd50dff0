package capability

import (
	"sync"

	"github.com/Elliesaur/DiscordEventLogger/internal/events"
	"github.com/Elliesaur/DiscordEventLogger/internal/logging"

	"github.com/bwmarrin/discordgo"
)

// Platform is the narrow surface of live platform state the capability set
// touches. Implemented over the Discord session by the bot package and by
// fakes in tests. Every lookup resolves ids at call time, never against a
// stale snapshot.
type Platform interface {
	GuildMember(guildID, userID string) (*discordgo.Member, error)
	GuildRoles(guildID string) ([]*discordgo.Role, error)
	GuildMemberRoleAdd(guildID, userID, roleID string) error
	GuildMemberRoleRemove(guildID, userID, roleID string) error
	GuildChannels(guildID string) ([]*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string) error
	ChannelMessage(channelID, messageID string) (*discordgo.Message, error)
	MessageReactionRemove(channelID, messageID, emojiAPIName, userID string) error
}

// Set binds the whitelisted native operations to one event occurrence.
// Reads come from the snapshot bound alongside it; everything here performs
// validated side effects against live platform state.
type Set struct {
	platform Platform
	guildID  string

	// Acting user, when the event carries one.
	userID string

	// Reaction context, when the event carries one.
	reactionUserID string
	messageID      string
	channelID      string

	wg sync.WaitGroup
}

// NewSet derives a capability binding from an event context.
func NewSet(platform Platform, ctx *events.Context) *Set {
	s := &Set{
		platform: platform,
		guildID:  ctx.GuildID,
	}
	if u := ctx.ActingUser(); u != nil {
		s.userID = u.ID
	}
	if ctx.Message != nil {
		s.messageID = ctx.Message.ID
		s.channelID = ctx.Message.ChannelID
	}
	if ctx.Reaction != nil {
		s.reactionUserID = ctx.Reaction.UserID
	}
	return s
}

// Flush waits for outstanding fire-and-forget mutations. Called on
// shutdown and by tests; scripts never block on it.
func (s *Set) Flush() {
	s.wg.Wait()
}

func (s *Set) resolveRole(roleID string) *discordgo.Role {
	roles, err := s.platform.GuildRoles(s.guildID)
	if err != nil {
		logging.Warn("capability: failed to fetch roles for guild %s: %v", s.guildID, err)
		return nil
	}
	for _, role := range roles {
		if role.ID == roleID {
			return role
		}
	}
	return nil
}

// HasRoleByID reports whether the bound member currently holds the role,
// checked against live membership.
func (s *Set) HasRoleByID(roleID string) bool {
	if s.userID == "" {
		return false
	}
	member, err := s.platform.GuildMember(s.guildID, s.userID)
	if err != nil || member == nil {
		return false
	}
	for _, id := range member.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

// AddRoleByID adds the role to the bound member, fire-and-forget.
func (s *Set) AddRoleByID(roleID string) {
	s.mutateRole(roleID, true)
}

// RemoveRoleByID removes the role from the bound member, fire-and-forget.
func (s *Set) RemoveRoleByID(roleID string) {
	s.mutateRole(roleID, false)
}

// ToggleRoleByID adds the role if the member lacks it and removes it
// otherwise, evaluated against current live membership at call time.
func (s *Set) ToggleRoleByID(roleID string) {
	s.mutateRole(roleID, !s.HasRoleByID(roleID))
}

func (s *Set) mutateRole(roleID string, add bool) {
	if s.userID == "" {
		logging.Debug("capability: role mutation with no bound member in guild %s", s.guildID)
		return
	}
	role := s.resolveRole(roleID)
	if role == nil {
		logging.Warn("capability: no role %s in guild %s", roleID, s.guildID)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		var err error
		if add {
			err = s.platform.GuildMemberRoleAdd(s.guildID, s.userID, role.ID)
		} else {
			err = s.platform.GuildMemberRoleRemove(s.guildID, s.userID, role.ID)
		}
		if err != nil {
			logging.Warn("capability: role mutation failed for user %s role %s in guild %s: %v",
				s.userID, role.ID, s.guildID, err)
		}
	}()
}

// MessageChannelByID sends a plain-text message to a channel resolved from
// the guild's live channel set. Unresolvable channel ids are a silent
// no-op.
func (s *Set) MessageChannelByID(channelID, message string) {
	channels, err := s.platform.GuildChannels(s.guildID)
	if err != nil {
		logging.Warn("capability: failed to fetch channels for guild %s: %v", s.guildID, err)
		return
	}
	for _, ch := range channels {
		if ch.ID == channelID {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				if err := s.platform.ChannelMessageSend(channelID, message); err != nil {
					logging.Warn("capability: failed to message channel %s: %v", channelID, err)
				}
			}()
			return
		}
	}
	logging.Debug("capability: no channel %s in guild %s", channelID, s.guildID)
}

// RemoveReactionByEmojiName removes the acting user's reaction matching
// the given emoji name or character from the bound message. Returns false
// when there is no reaction context, no message, or no matching reaction.
func (s *Set) RemoveReactionByEmojiName(name string) bool {
	if s.reactionUserID == "" || s.messageID == "" {
		return false
	}

	message, err := s.platform.ChannelMessage(s.channelID, s.messageID)
	if err != nil || message == nil {
		logging.Debug("capability: failed to fetch message %s: %v", s.messageID, err)
		return false
	}

	removed := false
	for _, reaction := range message.Reactions {
		if reaction.Emoji == nil || reaction.Emoji.Name != name {
			continue
		}
		if err := s.platform.MessageReactionRemove(s.channelID, s.messageID, reaction.Emoji.APIName(), s.reactionUserID); err != nil {
			logging.Warn("capability: failed to remove reaction %s from message %s: %v", name, s.messageID, err)
			continue
		}
		removed = true
	}
	return removed
}
