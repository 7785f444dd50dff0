package bot

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// stateCache remembers the last observed shape of entities the gateway
// does not replay old values for, so update events can be diffed into
// specific occurrences.
type stateCache struct {
	mu        sync.Mutex
	users     map[string]*discordgo.User
	guilds    map[string]*discordgo.Guild
	presences map[string]discordgo.Status
	rolePos   map[string]int
	chanPerms map[string][]discordgo.PermissionOverwrite
}

func newStateCache() *stateCache {
	return &stateCache{
		users:     make(map[string]*discordgo.User),
		guilds:    make(map[string]*discordgo.Guild),
		presences: make(map[string]discordgo.Status),
		rolePos:   make(map[string]int),
		chanPerms: make(map[string][]discordgo.PermissionOverwrite),
	}
}

// observeUser records a user sighting without returning the old value.
func (c *stateCache) observeUser(u *discordgo.User) {
	if u == nil || u.ID == "" {
		return
	}
	dup := *u
	c.mu.Lock()
	c.users[u.ID] = &dup
	c.mu.Unlock()
}

// swapUser stores the new shape and returns the previously observed one.
func (c *stateCache) swapUser(u *discordgo.User) (*discordgo.User, bool) {
	if u == nil || u.ID == "" {
		return nil, false
	}
	dup := *u
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok := c.users[u.ID]
	c.users[u.ID] = &dup
	return old, ok
}

func (c *stateCache) swapGuild(g *discordgo.Guild) (*discordgo.Guild, bool) {
	if g == nil || g.ID == "" {
		return nil, false
	}
	dup := *g
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok := c.guilds[g.ID]
	c.guilds[g.ID] = &dup
	return old, ok
}

func (c *stateCache) swapPresence(guildID, userID string, status discordgo.Status) (discordgo.Status, bool) {
	key := guildID + ":" + userID
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok := c.presences[key]
	c.presences[key] = status
	return old, ok
}

func (c *stateCache) swapRolePosition(guildID, roleID string, position int) (int, bool) {
	key := guildID + ":" + roleID
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok := c.rolePos[key]
	c.rolePos[key] = position
	return old, ok
}

func (c *stateCache) forgetRole(guildID, roleID string) {
	c.mu.Lock()
	delete(c.rolePos, guildID+":"+roleID)
	c.mu.Unlock()
}

// swapChannelPermissions stores a value copy of the channel's overwrites
// and returns the previously cached set. The gateway does not replay a
// channel's old shape on CHANNEL_UPDATE, so this copy is the only way to
// tell a permission change apart from any other edit.
func (c *stateCache) swapChannelPermissions(channelID string, perms []*discordgo.PermissionOverwrite) ([]discordgo.PermissionOverwrite, bool) {
	dup := make([]discordgo.PermissionOverwrite, 0, len(perms))
	for _, p := range perms {
		if p != nil {
			dup = append(dup, *p)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok := c.chanPerms[channelID]
	c.chanPerms[channelID] = dup
	return old, ok
}

func (c *stateCache) forgetChannel(channelID string) {
	c.mu.Lock()
	delete(c.chanPerms, channelID)
	c.mu.Unlock()
}
