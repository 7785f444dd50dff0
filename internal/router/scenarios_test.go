package router

import (
	"sync"
	"testing"
	"time"

	"github.com/Elliesaur/DiscordEventLogger/internal/database"
	"github.com/Elliesaur/DiscordEventLogger/internal/events"
	"github.com/Elliesaur/DiscordEventLogger/internal/script"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioPlatform backs end-to-end routing runs: a guild with one member
// and no roles.
type scenarioPlatform struct {
	mu       sync.Mutex
	roleAdds []string
}

func (p *scenarioPlatform) GuildMember(guildID, userID string) (*discordgo.Member, error) {
	return &discordgo.Member{User: &discordgo.User{ID: userID}}, nil
}

func (p *scenarioPlatform) GuildRoles(guildID string) ([]*discordgo.Role, error) {
	return nil, nil
}

func (p *scenarioPlatform) GuildMemberRoleAdd(guildID, userID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roleAdds = append(p.roleAdds, roleID)
	return nil
}

func (p *scenarioPlatform) GuildMemberRoleRemove(guildID, userID, roleID string) error { return nil }

func (p *scenarioPlatform) GuildChannels(guildID string) ([]*discordgo.Channel, error) {
	return nil, nil
}

func (p *scenarioPlatform) ChannelMessageSend(channelID, content string) error { return nil }

func (p *scenarioPlatform) ChannelMessage(channelID, messageID string) (*discordgo.Message, error) {
	return nil, nil
}

func (p *scenarioPlatform) MessageReactionRemove(channelID, messageID, emojiAPIName, userID string) error {
	return nil
}

func joinCtx() *events.Context {
	return &events.Context{
		GuildID:   "g1",
		GuildName: "Test",
		Member: &discordgo.Member{
			User: &discordgo.User{ID: "u1", Username: "alice"},
		},
	}
}

func TestScenarioDefaultDelivery(t *testing.T) {
	sender := &fakeSender{}
	actions := &fakeActions{}
	store := &fakeStore{configs: map[string]*database.GuildConfig{
		"g1": guildConfig([]string{"guildMemberAdd"}, "c1", nil, nil),
	}}

	r := newTestRouter(t, store, sender, actions, nil)
	r.Route("guildMemberAdd", joinCtx())

	require.Len(t, sender.sent, 1, "exactly one delivery")
	assert.Contains(t, sender.sent[0], "c1:")
	assert.Contains(t, sender.sent[0], "<@u1>", "log line carries the acting user's identifier")
	assert.Empty(t, actions.ran, "no bindings, no script invocations")
}

func TestScenarioOverrideRedirectsDelivery(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStore{configs: map[string]*database.GuildConfig{
		"g1": guildConfig([]string{"guildMemberAdd"}, "c1",
			[]database.LogChannel{{Event: "guildMemberAdd", ChannelID: "c2"}}, nil),
	}}

	r := newTestRouter(t, store, sender, nil, nil)
	r.Route("guildMemberAdd", joinCtx())

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "c2:")
}

func TestScenarioUnresolvableRoleMutatesNothing(t *testing.T) {
	platform := &scenarioPlatform{}
	engine := script.NewEngine(time.Second, 1, 16)
	engine.Start()

	catalog, err := events.DefaultCatalog()
	require.NoError(t, err)
	store := &fakeStore{configs: map[string]*database.GuildConfig{
		"g1": guildConfig([]string{"guildMemberAdd"}, "", nil,
			[]database.EventAction{{ID: "a1", Event: "guildMemberAdd", ActionCode: `addRoleById("r1")`}}),
	}}

	r := New(catalog, store, &fakeSender{}, NewScriptActions(engine, platform), &fakeResolver{})
	r.Route("guildMemberAdd", joinCtx())

	engine.Stop()

	assert.Empty(t, platform.roleAdds, "an unresolvable role performs no mutation")
}
