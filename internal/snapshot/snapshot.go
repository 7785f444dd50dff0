package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Elliesaur/DiscordEventLogger/internal/events"

	"github.com/bwmarrin/discordgo"
)

// Snapshot is a shallow, read-only copy of one platform entity containing
// only scalar fields. Scripts receive snapshots instead of live entities so
// they cannot reach mutable host state through a reference chain.
type Snapshot map[string]interface{}

// Field returns a named scalar, or nil when absent.
func (s Snapshot) Field(name string) interface{} {
	return s[name]
}

// String renders the snapshot as sorted key=value pairs for script log()
// output.
func (s Snapshot) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, s[k])
	}
	return b.String()
}

// Guild snapshots the tenant identity carried by every event context.
func Guild(id, name string) Snapshot {
	return Snapshot{
		"id":   id,
		"name": name,
	}
}

// User snapshots a bare user identity.
func User(u *discordgo.User) Snapshot {
	if u == nil {
		return nil
	}
	return Snapshot{
		"id":            u.ID,
		"username":      u.Username,
		"discriminator": u.Discriminator,
		"tag":           u.String(),
		"bot":           u.Bot,
		"avatar":        u.Avatar,
	}
}

// Member snapshots a guild member. The underlying user's scalars are
// flattened in; the user identity is additionally bound on its own via
// Bind.
func Member(m *discordgo.Member) Snapshot {
	if m == nil {
		return nil
	}
	s := Snapshot{
		"nick":     m.Nick,
		"guildId":  m.GuildID,
		"boosting": m.PremiumSince != nil,
	}
	if !m.JoinedAt.IsZero() {
		s["joinedAt"] = m.JoinedAt.Unix()
	}
	if m.User != nil {
		s["id"] = m.User.ID
		s["username"] = m.User.Username
		s["discriminator"] = m.User.Discriminator
		s["tag"] = m.User.String()
		s["bot"] = m.User.Bot
	}
	return s
}

// Channel snapshots a guild channel.
func Channel(ch *discordgo.Channel) Snapshot {
	if ch == nil {
		return nil
	}
	return Snapshot{
		"id":      ch.ID,
		"guildId": ch.GuildID,
		"name":    ch.Name,
		"type":    int64(ch.Type),
		"topic":   ch.Topic,
		"nsfw":    ch.NSFW,
	}
}

// Role snapshots a guild role.
func Role(r *discordgo.Role) Snapshot {
	if r == nil {
		return nil
	}
	return Snapshot{
		"id":          r.ID,
		"name":        r.Name,
		"color":       int64(r.Color),
		"position":    int64(r.Position),
		"managed":     r.Managed,
		"mentionable": r.Mentionable,
		"hoist":       r.Hoist,
	}
}

// Message snapshots a message.
func Message(m *discordgo.Message) Snapshot {
	if m == nil {
		return nil
	}
	s := Snapshot{
		"id":        m.ID,
		"channelId": m.ChannelID,
		"content":   m.Content,
		"pinned":    m.Pinned,
	}
	if m.Author != nil {
		s["authorId"] = m.Author.ID
		s["authorTag"] = m.Author.String()
	}
	return s
}

// Reaction snapshots a message reaction.
func Reaction(r *discordgo.MessageReaction) Snapshot {
	if r == nil {
		return nil
	}
	return Snapshot{
		"userId":    r.UserID,
		"messageId": r.MessageID,
		"channelId": r.ChannelID,
		"emojiName": r.Emoji.Name,
		"emojiId":   r.Emoji.ID,
	}
}

// Emoji snapshots an emoji.
func Emoji(e *discordgo.Emoji) Snapshot {
	if e == nil {
		return nil
	}
	return Snapshot{
		"id":       e.ID,
		"name":     e.Name,
		"animated": e.Animated,
		"managed":  e.Managed,
	}
}

// Bind builds the name -> Snapshot map exposed to one script invocation.
// guild is always bound. member and user are bound together when a member
// identity exists; a bare user binds user alone. Every other entity is
// bound only when the firing event carries it.
func Bind(ctx *events.Context) map[string]Snapshot {
	bound := map[string]Snapshot{
		"guild": Guild(ctx.GuildID, ctx.GuildName),
	}

	if ctx.Member != nil {
		bound["member"] = Member(ctx.Member)
		if ctx.Member.User != nil {
			bound["user"] = User(ctx.Member.User)
		}
	} else if ctx.User != nil {
		bound["user"] = User(ctx.User)
	}

	if ctx.Channel != nil {
		bound["channel"] = Channel(ctx.Channel)
	}
	if ctx.Role != nil {
		bound["role"] = Role(ctx.Role)
	}
	if ctx.Message != nil {
		bound["message"] = Message(ctx.Message)
	}
	if ctx.Reaction != nil {
		bound["reaction"] = Reaction(ctx.Reaction)
	}
	if ctx.Emoji != nil {
		bound["emoji"] = Emoji(ctx.Emoji)
	}

	return bound
}
