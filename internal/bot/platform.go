package bot

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Platform adapts the Discord session to the narrow surfaces the rest of
// the bot depends on: live entity lookups and mutations for action
// capabilities, membership queries for user-scoped event fan-out, and
// plain message delivery for the router. Reads prefer the gateway state
// cache and fall back to the REST API.
type Platform struct {
	session *Session
}

func NewPlatform(session *Session) *Platform {
	return &Platform{session: session}
}

func (p *Platform) GuildMember(guildID, userID string) (*discordgo.Member, error) {
	s := p.session.GetDiscord()
	if member, err := s.State.Member(guildID, userID); err == nil && member != nil {
		return member, nil
	}
	member, err := s.GuildMember(guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member %s in guild %s: %w", userID, guildID, err)
	}
	return member, nil
}

func (p *Platform) GuildRoles(guildID string) ([]*discordgo.Role, error) {
	s := p.session.GetDiscord()
	if guild, err := s.State.Guild(guildID); err == nil && guild != nil && len(guild.Roles) > 0 {
		return guild.Roles, nil
	}
	roles, err := s.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles for guild %s: %w", guildID, err)
	}
	return roles, nil
}

func (p *Platform) GuildMemberRoleAdd(guildID, userID, roleID string) error {
	return p.session.GetDiscord().GuildMemberRoleAdd(guildID, userID, roleID)
}

func (p *Platform) GuildMemberRoleRemove(guildID, userID, roleID string) error {
	return p.session.GetDiscord().GuildMemberRoleRemove(guildID, userID, roleID)
}

func (p *Platform) GuildChannels(guildID string) ([]*discordgo.Channel, error) {
	s := p.session.GetDiscord()
	if guild, err := s.State.Guild(guildID); err == nil && guild != nil && len(guild.Channels) > 0 {
		return guild.Channels, nil
	}
	channels, err := s.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channels for guild %s: %w", guildID, err)
	}
	return channels, nil
}

func (p *Platform) ChannelMessageSend(channelID, content string) error {
	_, err := p.session.GetDiscord().ChannelMessageSend(channelID, content)
	return err
}

func (p *Platform) ChannelMessage(channelID, messageID string) (*discordgo.Message, error) {
	return p.session.GetDiscord().ChannelMessage(channelID, messageID)
}

func (p *Platform) MessageReactionRemove(channelID, messageID, emojiAPIName, userID string) error {
	return p.session.GetDiscord().MessageReactionRemove(channelID, messageID, emojiAPIName, userID)
}

// Send delivers one log line to a channel for the router.
func (p *Platform) Send(channelID, message string) error {
	return p.ChannelMessageSend(channelID, message)
}

// GuildIDs lists every guild the bot is currently connected to.
func (p *Platform) GuildIDs() []string {
	guilds := p.session.GetDiscord().State.Guilds
	ids := make([]string, 0, len(guilds))
	for _, guild := range guilds {
		ids = append(ids, guild.ID)
	}
	return ids
}

// IsMember reports whether the user belongs to the guild. An unknown
// member is a definitive no, not an error.
func (p *Platform) IsMember(guildID, userID string) (bool, error) {
	s := p.session.GetDiscord()
	if member, err := s.State.Member(guildID, userID); err == nil && member != nil {
		return true, nil
	}

	_, err := s.GuildMember(guildID, userID)
	if err == nil {
		return true, nil
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMember {
		return false, nil
	}
	return false, fmt.Errorf("failed to look up member %s in guild %s: %w", userID, guildID, err)
}
