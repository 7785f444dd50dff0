package events

import "github.com/bwmarrin/discordgo"

// Context carries the entities relevant to one event occurrence. It is
// built fresh per occurrence and discarded after routing and action
// execution complete; nothing retains it across invocations.
type Context struct {
	GuildID   string
	GuildName string

	Member   *discordgo.Member
	User     *discordgo.User
	Channel  *discordgo.Channel
	Role     *discordgo.Role
	Message  *discordgo.Message
	Reaction *discordgo.MessageReaction
	Emoji    *discordgo.Emoji

	// Extra holds event-specific scalar details (old/new values) consumed
	// by log templates.
	Extra map[string]string
}

// ForGuild returns a copy of the context re-homed to another guild. Used
// when a user-scoped event fans out across every guild the user belongs to.
func (c *Context) ForGuild(guildID, guildName string) *Context {
	dup := *c
	dup.GuildID = guildID
	dup.GuildName = guildName
	return &dup
}

// WithDetail returns a copy of the context carrying an extra detail. The
// receiver's detail map is never mutated, so one base context can seed
// several differently detailed occurrences.
func (c *Context) WithDetail(key, value string) *Context {
	dup := *c
	dup.Extra = make(map[string]string, len(c.Extra)+1)
	for k, v := range c.Extra {
		dup.Extra[k] = v
	}
	dup.Extra[key] = value
	return &dup
}

// Detail returns an event-specific extra value, or "" when absent.
func (c *Context) Detail(key string) string {
	if c.Extra == nil {
		return ""
	}
	return c.Extra[key]
}

// ActingUser resolves the acting user identity: the member's underlying
// user when a member is bound, otherwise the bare user.
func (c *Context) ActingUser() *discordgo.User {
	if c.Member != nil && c.Member.User != nil {
		return c.Member.User
	}
	return c.User
}
