package events

import (
	"fmt"
	"sort"

	"github.com/Elliesaur/DiscordEventLogger/pkg/util"

	"github.com/bwmarrin/discordgo"
)

// Presence declares which context entities an event carries. It drives
// which snapshots get bound for action scripts.
type Presence struct {
	Member   bool
	User     bool
	Channel  bool
	Role     bool
	Message  bool
	Reaction bool
	Emoji    bool
}

// Definition describes one recognized event: its canonical name, whether it
// is scoped to a user rather than a guild, the entities it carries, and the
// template producing its log line.
type Definition struct {
	Name       string
	UserScoped bool
	Carries    Presence
	Template   func(*Context) string
}

// Catalog is the set of recognized events. Event names are configuration
// data: the catalog is built once at startup and validated before use.
type Catalog struct {
	defs    map[string]Definition
	aliases map[string]string
	names   []string
}

// NewCatalog builds a catalog from definitions and an alias table mapping
// legacy spellings to canonical names.
func NewCatalog(defs []Definition, aliases map[string]string) (*Catalog, error) {
	c := &Catalog{
		defs:    make(map[string]Definition, len(defs)),
		aliases: aliases,
	}
	for _, def := range defs {
		c.defs[def.Name] = def
		c.names = append(c.names, def.Name)
	}
	sort.Strings(c.names)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the catalog for duplicate or empty names, missing
// templates, and aliases that shadow or dangle.
func (c *Catalog) Validate() error {
	if len(c.defs) != len(c.names) {
		return fmt.Errorf("catalog contains duplicate event names")
	}
	for name, def := range c.defs {
		if name == "" {
			return fmt.Errorf("catalog contains an empty event name")
		}
		if def.Template == nil {
			return fmt.Errorf("event %q has no log template", name)
		}
	}
	for alias, target := range c.aliases {
		if _, shadowed := c.defs[alias]; shadowed {
			return fmt.Errorf("alias %q shadows a canonical event", alias)
		}
		if _, ok := c.defs[target]; !ok {
			return fmt.Errorf("alias %q points at unknown event %q", alias, target)
		}
	}
	return nil
}

// Canonical folds aliases and reports whether the name is recognized.
func (c *Catalog) Canonical(name string) (string, bool) {
	if target, ok := c.aliases[name]; ok {
		name = target
	}
	_, ok := c.defs[name]
	return name, ok
}

// Get returns the definition for a recognized (canonical or alias) name.
func (c *Catalog) Get(name string) (Definition, bool) {
	canonical, ok := c.Canonical(name)
	if !ok {
		return Definition{}, false
	}
	return c.defs[canonical], true
}

// Names returns all canonical event names, sorted.
func (c *Catalog) Names() []string {
	return c.names
}

func userRef(u *discordgo.User) string {
	if u == nil {
		return "an unknown user"
	}
	return fmt.Sprintf("<@%s> (%s)", u.ID, util.Safe(u.String()))
}

func actorRef(c *Context) string {
	return userRef(c.ActingUser())
}

func messageLink(c *Context) string {
	if c.Message == nil {
		return "an unknown message"
	}
	return fmt.Sprintf("https://discordapp.com/channels/%s/%s/%s", c.GuildID, c.Message.ChannelID, c.Message.ID)
}

func messageContent(c *Context) string {
	if c.Message == nil {
		return ""
	}
	return util.Safe(c.Message.Content)
}

func channelName(c *Context) string {
	if c.Channel == nil {
		return "an unknown channel"
	}
	return util.Safe(c.Channel.Name)
}

func roleName(c *Context) string {
	if c.Role == nil {
		return "an unknown role"
	}
	return util.Safe(c.Role.Name)
}

func guildName(c *Context) string {
	return util.Safe(c.GuildName)
}

func emojiName(c *Context) string {
	if c.Emoji == nil {
		return ""
	}
	return c.Emoji.Name
}

var memberOnly = Presence{Member: true, User: true}
var memberAndChannel = Presence{Member: true, User: true, Channel: true}
var memberAndRole = Presence{Member: true, User: true, Role: true}
var messageCarried = Presence{Member: true, User: true, Channel: true, Message: true}
var reactionCarried = Presence{Member: true, User: true, Message: true, Reaction: true, Emoji: true}

// DefaultCatalog returns the full recognized event set with the log line
// templates the bot ships with.
func DefaultCatalog() (*Catalog, error) {
	defs := []Definition{
		{
			Name:    "guildChannelPermissionsUpdate",
			Carries: Presence{Channel: true},
			Template: func(c *Context) string {
				return channelName(c) + "'s permissions changed!"
			},
		},
		{
			Name:    "unhandledGuildChannelUpdate",
			Carries: Presence{Channel: true},
			Template: func(c *Context) string {
				id := ""
				if c.Channel != nil {
					id = c.Channel.ID
				}
				return "Channel '" + id + "' was edited but the update was not known"
			},
		},
		{
			Name:    "guildMemberBoost",
			Carries: memberOnly,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s has started boosting %s", actorRef(c), guildName(c))
			},
		},
		{
			Name:    "guildMemberUnboost",
			Carries: memberOnly,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s has stopped boosting %s...", actorRef(c), guildName(c))
			},
		},
		{
			Name:    "guildMemberRoleAdd",
			Carries: memberAndRole,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s acquired the role: %s", actorRef(c), roleName(c))
			},
		},
		{
			Name:    "guildMemberRoleRemove",
			Carries: memberAndRole,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s lost the role: %s", actorRef(c), roleName(c))
			},
		},
		{
			Name:    "guildMemberNicknameUpdate",
			Carries: memberOnly,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s's nickname was `%s` and is now `%s`",
					actorRef(c), util.Safe(c.Detail("oldNickname")), util.Safe(c.Detail("newNickname")))
			},
		},
		{
			Name:    "unhandledGuildMemberUpdate",
			Carries: memberOnly,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s was edited but the update was not known", actorRef(c))
			},
		},
		{
			Name: "guildBoostLevelUp",
			Template: func(c *Context) string {
				return guildName(c) + " reaches the boost level: " + c.Detail("newLevel")
			},
		},
		{
			Name: "guildBoostLevelDown",
			Template: func(c *Context) string {
				return guildName(c) + " returned to the boost level: " + c.Detail("newLevel")
			},
		},
		{
			Name: "guildRegionUpdate",
			Template: func(c *Context) string {
				return guildName(c) + " region is now " + c.Detail("newRegion")
			},
		},
		{
			Name: "guildBannerAdd",
			Template: func(c *Context) string {
				return guildName(c) + " has a banner now!"
			},
		},
		{
			Name: "guildAfkChannelAdd",
			Template: func(c *Context) string {
				return guildName(c) + " has an AFK channel now!"
			},
		},
		{
			Name: "guildVanityURLAdd",
			Template: func(c *Context) string {
				return guildName(c) + " has added a vanity url : " + c.Detail("vanityURL")
			},
		},
		{
			Name: "unhandledGuildUpdate",
			Template: func(c *Context) string {
				return "Guild '" + guildName(c) + "' was edited but the changes were not known"
			},
		},
		{
			Name:    "messagePinned",
			Carries: messageCarried,
			Template: func(c *Context) string {
				return fmt.Sprintf("Message %s has been pinned to %s: ```%s```",
					messageLink(c), channelName(c), messageContent(c))
			},
		},
		{
			Name:    "messageContentEdited",
			Carries: messageCarried,
			Template: func(c *Context) string {
				return fmt.Sprintf("Message %s has been edited from ```%s``` to ```%s```",
					messageLink(c), util.Safe(c.Detail("oldContent")), util.Safe(c.Detail("newContent")))
			},
		},
		{
			Name:    "unhandledMessageUpdate",
			Carries: messageCarried,
			Template: func(c *Context) string {
				return fmt.Sprintf("Message %s was updated but the changes were not known", messageLink(c))
			},
		},
		{
			Name:    "guildMemberOffline",
			Carries: memberOnly,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s became offline", actorRef(c))
			},
		},
		{
			Name:    "guildMemberOnline",
			Carries: memberOnly,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s was offline and is now %s", actorRef(c), c.Detail("newStatus"))
			},
		},
		{
			Name:    "unhandledPresenceUpdate",
			Carries: memberOnly,
			Template: func(c *Context) string {
				return fmt.Sprintf("Presence for member %s was updated but the changes were not known", actorRef(c))
			},
		},
		{
			Name:    "rolePositionUpdate",
			Carries: Presence{Role: true},
			Template: func(c *Context) string {
				return fmt.Sprintf("%s was at position %s and now is at position %s",
					roleName(c), c.Detail("oldPosition"), c.Detail("newPosition"))
			},
		},
		{
			Name:    "unhandledRoleUpdate",
			Carries: Presence{Role: true},
			Template: func(c *Context) string {
				return "Role '" + roleName(c) + "' was updated but the changes were not known"
			},
		},
		{
			Name:       "userAvatarUpdate",
			UserScoped: true,
			Carries:    Presence{User: true},
			Template: func(c *Context) string {
				return fmt.Sprintf("%s avatar changed from %s to %s",
					actorRef(c), c.Detail("oldAvatarURL"), c.Detail("newAvatarURL"))
			},
		},
		{
			Name:       "userUsernameUpdate",
			UserScoped: true,
			Carries:    Presence{User: true},
			Template: func(c *Context) string {
				return fmt.Sprintf("%s username changed from '%s' to '%s'",
					actorRef(c), util.Safe(c.Detail("oldUsername")), util.Safe(c.Detail("newUsername")))
			},
		},
		{
			Name:       "unhandledUserUpdate",
			UserScoped: true,
			Carries:    Presence{User: true},
			Template: func(c *Context) string {
				return fmt.Sprintf("User %s was updated but the changes were not known", actorRef(c))
			},
		},
		{
			Name:    "voiceChannelJoin",
			Carries: memberAndChannel,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s joined voice channel '%s'", actorRef(c), channelName(c))
			},
		},
		{
			Name:    "voiceChannelLeave",
			Carries: memberAndChannel,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s left voice channel '%s'", actorRef(c), channelName(c))
			},
		},
		{
			Name:    "voiceChannelSwitch",
			Carries: memberAndChannel,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s left voice channel '%s' and joined voice channel '%s'",
					actorRef(c), util.Safe(c.Detail("oldChannelName")), channelName(c))
			},
		},
		{
			Name:    "voiceChannelMute",
			Carries: memberOnly,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s is now %s", actorRef(c), c.Detail("muteType"))
			},
		},
		{
			Name:    "voiceChannelDeaf",
			Carries: memberOnly,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s is now %s", actorRef(c), c.Detail("deafType"))
			},
		},
		{
			Name:    "voiceChannelUnmute",
			Carries: memberOnly,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s is now unmuted", actorRef(c))
			},
		},
		{
			Name:    "voiceChannelUndeaf",
			Carries: memberOnly,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s is now undeafened", actorRef(c))
			},
		},
		{
			Name:    "voiceStreamingStart",
			Carries: memberAndChannel,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s started streaming in %s", actorRef(c), channelName(c))
			},
		},
		{
			Name:    "voiceStreamingStop",
			Carries: memberAndChannel,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s stopped streaming", actorRef(c))
			},
		},
		{
			Name:    "unhandledVoiceStateUpdate",
			Carries: memberOnly,
			Template: func(c *Context) string {
				return fmt.Sprintf("Voice state for member %s was updated but the changes were not known", actorRef(c))
			},
		},
		{
			Name:    "guildMemberAdd",
			Carries: memberOnly,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s has joined", actorRef(c))
			},
		},
		{
			Name:    "guildMemberRemove",
			Carries: memberOnly,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s has left/been kicked or banned", actorRef(c))
			},
		},
		{
			Name:    "messageReactionAdd",
			Carries: reactionCarried,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s has reacted with %s to message %s", actorRef(c), emojiName(c), messageLink(c))
			},
		},
		{
			Name:    "messageReactionRemove",
			Carries: reactionCarried,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s has removed reaction %s to message %s", actorRef(c), emojiName(c), messageLink(c))
			},
		},
		{
			Name:    "messageReactionRemoveAll",
			Carries: Presence{Member: true, User: true, Message: true},
			Template: func(c *Context) string {
				return fmt.Sprintf("Message %s has had all reactions removed", messageLink(c))
			},
		},
		{
			Name:    "messageDelete",
			Carries: messageCarried,
			Template: func(c *Context) string {
				attachment := ""
				if url := c.Detail("attachmentURL"); url != "" {
					attachment = " with attachment " + url
				}
				return fmt.Sprintf("%s's message ```%s```%s from %s was deleted",
					actorRef(c), messageContent(c), attachment, channelName(c))
			},
		},
		{
			Name: "messageDeleteBulk",
			Template: func(c *Context) string {
				return c.Detail("count") + " messages were deleted."
			},
		},
		{
			Name:    "message",
			Carries: messageCarried,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s posted message: ```%s```", actorRef(c), messageContent(c))
			},
		},
		{
			Name:    "messageCreated",
			Carries: messageCarried,
			Template: func(c *Context) string {
				return fmt.Sprintf("%s posted message: ```%s```", actorRef(c), messageContent(c))
			},
		},
	}

	aliases := map[string]string{
		// Legacy spelling kept for configurations written by old revisions.
		"guildChannelPermissionsChanged": "guildChannelPermissionsUpdate",
		"unhandledVoiceUpdate":           "unhandledVoiceStateUpdate",
	}

	return NewCatalog(defs, aliases)
}
