package router

import (
	"errors"
	"sync"
	"testing"

	"github.com/Elliesaur/DiscordEventLogger/internal/database"
	"github.com/Elliesaur/DiscordEventLogger/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	configs map[string]*database.GuildConfig
	err     error
}

func (f *fakeStore) GetOrCreateGuildConfig(guildID string) (*database.GuildConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	if cfg, ok := f.configs[guildID]; ok {
		return cfg, nil
	}
	return &database.GuildConfig{GuildID: guildID}, nil
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []string // "channel:message"
	failing map[string]bool
}

func (f *fakeSender) Send(channelID, message string) error {
	if f.failing[channelID] {
		return errors.New("send failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, channelID+":"+message)
	return nil
}

type fakeActions struct {
	mu      sync.Mutex
	ran     []string
	failing map[string]bool
}

func (f *fakeActions) Run(ctx *events.Context, source string) error {
	if f.failing[source] {
		return errors.New("action rejected")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, source)
	return nil
}

type fakeResolver struct {
	guilds []string
}

func (f *fakeResolver) Resolve(userID string) []string {
	return f.guilds
}

func newTestRouter(t *testing.T, store *fakeStore, sender *fakeSender, actions *fakeActions, res *fakeResolver) *Router {
	t.Helper()
	catalog, err := events.DefaultCatalog()
	require.NoError(t, err)
	if sender == nil {
		sender = &fakeSender{}
	}
	if actions == nil {
		actions = &fakeActions{}
	}
	if res == nil {
		res = &fakeResolver{}
	}
	return New(catalog, store, sender, actions, res)
}

func guildConfig(enabled []string, defaultChannel string, overrides []database.LogChannel, actions []database.EventAction) *database.GuildConfig {
	return &database.GuildConfig{
		GuildID:      "g1",
		LogChannelID: defaultChannel,
		Events:       enabled,
		LogChannels:  overrides,
		EventActions: actions,
	}
}

func memberCtx() *events.Context {
	return &events.Context{GuildID: "g1", GuildName: "Test"}
}

func TestDisabledEventIsHardGate(t *testing.T) {
	sender := &fakeSender{}
	actions := &fakeActions{}
	store := &fakeStore{configs: map[string]*database.GuildConfig{
		"g1": guildConfig(nil, "chan-default",
			[]database.LogChannel{{Event: "guildMemberAdd", ChannelID: "chan-override"}},
			[]database.EventAction{{ID: "a1", Event: "guildMemberAdd", ActionCode: "log(guild)"}}),
	}}

	r := newTestRouter(t, store, sender, actions, nil)
	r.Route("guildMemberAdd", memberCtx())

	assert.Empty(t, sender.sent, "disabled event must not log")
	assert.Empty(t, actions.ran, "disabled event must not run actions")
}

func TestOverridesBeatDefaultChannel(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStore{configs: map[string]*database.GuildConfig{
		"g1": guildConfig([]string{"guildMemberAdd"}, "chan-default",
			[]database.LogChannel{
				{Event: "guildMemberAdd", ChannelID: "chan-a"},
				{Event: "guildMemberAdd", ChannelID: "chan-b"},
				{Event: "messageDelete", ChannelID: "chan-other"},
			}, nil),
	}}

	r := newTestRouter(t, store, sender, nil, nil)
	r.Route("guildMemberAdd", memberCtx())

	require.Len(t, sender.sent, 2)
	for _, entry := range sender.sent {
		assert.NotContains(t, entry, "chan-default:", "default channel must be skipped when overrides exist")
		assert.NotContains(t, entry, "chan-other:", "other events' overrides must not receive the log")
	}
}

func TestDefaultChannelFallback(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStore{configs: map[string]*database.GuildConfig{
		"g1": guildConfig([]string{"guildMemberAdd"}, "chan-default",
			[]database.LogChannel{{Event: "messageDelete", ChannelID: "chan-other"}}, nil),
	}}

	r := newTestRouter(t, store, sender, nil, nil)
	r.Route("guildMemberAdd", memberCtx())

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "chan-default:")
}

func TestNoTargetChannelSkipsDelivery(t *testing.T) {
	sender := &fakeSender{}
	actions := &fakeActions{}
	store := &fakeStore{configs: map[string]*database.GuildConfig{
		"g1": guildConfig([]string{"guildMemberAdd"}, "", nil,
			[]database.EventAction{{ID: "a1", Event: "guildMemberAdd", ActionCode: "log(guild)"}}),
	}}

	r := newTestRouter(t, store, sender, actions, nil)
	r.Route("guildMemberAdd", memberCtx())

	assert.Empty(t, sender.sent)
	assert.Equal(t, []string{"log(guild)"}, actions.ran, "actions still run without a log channel")
}

func TestUnknownEventDroppedSilently(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStore{configs: map[string]*database.GuildConfig{}}

	r := newTestRouter(t, store, sender, nil, nil)
	r.Route("notAnEvent", memberCtx())

	assert.Empty(t, sender.sent)
}

func TestAliasRoutesToCanonicalConfig(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStore{configs: map[string]*database.GuildConfig{
		"g1": guildConfig([]string{"unhandledVoiceStateUpdate"}, "chan-default", nil, nil),
	}}

	r := newTestRouter(t, store, sender, nil, nil)
	r.Route("unhandledVoiceUpdate", memberCtx())

	assert.Len(t, sender.sent, 1, "legacy spelling must reach the canonical event's config")
}

func TestDeliveryFailureIsIndependent(t *testing.T) {
	sender := &fakeSender{failing: map[string]bool{"chan-a": true}}
	store := &fakeStore{configs: map[string]*database.GuildConfig{
		"g1": guildConfig([]string{"guildMemberAdd"}, "",
			[]database.LogChannel{
				{Event: "guildMemberAdd", ChannelID: "chan-a"},
				{Event: "guildMemberAdd", ChannelID: "chan-b"},
			}, nil),
	}}

	r := newTestRouter(t, store, sender, nil, nil)
	r.Route("guildMemberAdd", memberCtx())

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "chan-b:")
}

func TestActionFailureDoesNotStopOthers(t *testing.T) {
	actions := &fakeActions{failing: map[string]bool{"boom()": true}}
	store := &fakeStore{configs: map[string]*database.GuildConfig{
		"g1": guildConfig([]string{"guildMemberAdd"}, "", nil,
			[]database.EventAction{
				{ID: "a1", Event: "guildMemberAdd", ActionCode: "boom()"},
				{ID: "a2", Event: "guildMemberAdd", ActionCode: "log(guild)"},
				{ID: "a3", Event: "messageDelete", ActionCode: "log(message)"},
			}),
	}}

	r := newTestRouter(t, store, nil, actions, nil)
	r.Route("guildMemberAdd", memberCtx())

	assert.Equal(t, []string{"log(guild)"}, actions.ran)
}

func TestStoreErrorAbortsRouting(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStore{err: errors.New("db down")}

	r := newTestRouter(t, store, sender, nil, nil)
	r.Route("guildMemberAdd", memberCtx())

	assert.Empty(t, sender.sent)
}

func TestRouteUserEventFansOut(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStore{configs: map[string]*database.GuildConfig{
		"g1": guildConfig([]string{"unhandledUserUpdate"}, "chan-1", nil, nil),
		"g2": guildConfig([]string{}, "chan-2", nil, nil),
		"g3": guildConfig([]string{"unhandledUserUpdate"}, "chan-3", nil, nil),
	}}
	res := &fakeResolver{guilds: []string{"g1", "g2", "g3", "g4"}}

	r := newTestRouter(t, store, sender, nil, res)
	r.RouteUserEvent("unhandledUserUpdate", "u1", func(guildID string) *events.Context {
		if guildID == "g4" {
			return nil // context could not be resolved for this guild
		}
		return &events.Context{GuildID: guildID, GuildName: guildID}
	})

	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0], "chan-1:")
	assert.Contains(t, sender.sent[1], "chan-3:")
}

func TestRouteUserEventUnknownName(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStore{configs: map[string]*database.GuildConfig{}}
	res := &fakeResolver{guilds: []string{"g1"}}

	r := newTestRouter(t, store, sender, nil, res)
	called := false
	r.RouteUserEvent("bogusEvent", "u1", func(guildID string) *events.Context {
		called = true
		return nil
	})

	assert.False(t, called, "unknown events must not trigger resolution")
	assert.Empty(t, sender.sent)
}
