package script

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Elliesaur/DiscordEventLogger/internal/capability"
	"github.com/Elliesaur/DiscordEventLogger/internal/events"
	"github.com/Elliesaur/DiscordEventLogger/internal/snapshot"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowPlatform serves one channel and can delay lookups to simulate a
// busy host.
type slowPlatform struct {
	mu          sync.Mutex
	lookupDelay time.Duration
	sent        []string
}

func (p *slowPlatform) GuildMember(guildID, userID string) (*discordgo.Member, error) {
	return &discordgo.Member{User: &discordgo.User{ID: userID}}, nil
}

func (p *slowPlatform) GuildRoles(guildID string) ([]*discordgo.Role, error) {
	return nil, nil
}

func (p *slowPlatform) GuildMemberRoleAdd(guildID, userID, roleID string) error    { return nil }
func (p *slowPlatform) GuildMemberRoleRemove(guildID, userID, roleID string) error { return nil }

func (p *slowPlatform) GuildChannels(guildID string) ([]*discordgo.Channel, error) {
	if p.lookupDelay > 0 {
		time.Sleep(p.lookupDelay)
	}
	return []*discordgo.Channel{{ID: "c1"}}, nil
}

func (p *slowPlatform) ChannelMessageSend(channelID, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, content)
	return nil
}

func (p *slowPlatform) ChannelMessage(channelID, messageID string) (*discordgo.Message, error) {
	return nil, nil
}

func (p *slowPlatform) MessageReactionRemove(channelID, messageID, emojiAPIName, userID string) error {
	return nil
}

func (p *slowPlatform) sentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func testBinding(platform capability.Platform) Binding {
	ctx := &events.Context{
		GuildID:   "guild-1",
		GuildName: "Test",
		Member: &discordgo.Member{
			User: &discordgo.User{ID: "u1", Username: "alice"},
		},
	}
	return Binding{
		GuildID: ctx.GuildID,
		Caps:    capability.NewSet(platform, ctx),
		Vars:    snapshot.Bind(ctx),
	}
}

func TestExecuteRunsScriptToCompletion(t *testing.T) {
	platform := &slowPlatform{}
	engine := NewEngine(3*time.Second, 1, 16)
	engine.Start()

	b := testBinding(platform)
	err := engine.Execute(`messageChannelById("c1", "hello"); messageChannelById("c1", "again")`, b)
	require.NoError(t, err)

	engine.Stop()
	b.Caps.Flush()

	assert.ElementsMatch(t, []string{"hello", "again"}, platform.sent)
}

func TestExecuteRejectsBadScripts(t *testing.T) {
	engine := NewEngine(time.Second, 1, 16)
	engine.Start()
	defer engine.Stop()

	platform := &slowPlatform{}

	err := engine.Execute(`log("unterminated`, testBinding(platform))
	assert.Error(t, err)

	err = engine.Execute(`banEveryone()`, testBinding(platform))
	assert.Error(t, err)
}

func TestBudgetCancelsLongScript(t *testing.T) {
	platform := &slowPlatform{lookupDelay: 20 * time.Millisecond}
	engine := NewEngine(50*time.Millisecond, 1, 64)
	engine.Start()

	// Each call pays the lookup delay, so only the first few steps fit
	// inside the budget.
	source := strings.TrimSuffix(strings.Repeat(`messageChannelById("c1", "tick");`, 30), ";")

	b := testBinding(platform)
	require.NoError(t, engine.Execute(source, b))

	engine.Stop()
	b.Caps.Flush()

	count := platform.sentCount()
	assert.Greater(t, count, 0, "some steps must run before the deadline")
	assert.Less(t, count, 30, "cancellation must stop the remaining steps")
}

func TestRuntimeErrorAbortsRestOfInvocation(t *testing.T) {
	platform := &slowPlatform{}
	engine := NewEngine(time.Second, 1, 16)
	engine.Start()

	b := testBinding(platform)
	err := engine.Execute(`log(nothing.here); messageChannelById("c1", "never")`, b)
	require.NoError(t, err, "runtime errors surface in logs, not to the caller")

	engine.Stop()
	b.Caps.Flush()

	assert.Zero(t, platform.sentCount(), "calls after a failed step must not run")
}

func TestFailedInvocationDoesNotAffectOthers(t *testing.T) {
	platform := &slowPlatform{}
	engine := NewEngine(time.Second, 2, 16)
	engine.Start()

	bad := testBinding(platform)
	good := testBinding(platform)
	require.NoError(t, engine.Execute(`log(nothing.here)`, bad))
	require.NoError(t, engine.Execute(`messageChannelById("c1", "fine")`, good))

	engine.Stop()
	good.Caps.Flush()

	assert.Equal(t, 1, platform.sentCount())
}

func TestInvocationStep(t *testing.T) {
	calls, err := Parse(`log("one"); log("two")`)
	require.NoError(t, err)

	inv := &Invocation{
		guildID:  "guild-1",
		calls:    calls,
		deadline: time.Now().Add(time.Second),
		budget:   time.Second,
	}

	assert.True(t, inv.Step(), "work remains after the first call")
	assert.False(t, inv.Step(), "no work remains after the last call")
	assert.False(t, inv.Step(), "stepping a finished invocation is a no-op")
	assert.False(t, inv.failed)
}

func TestInvocationIdentResolution(t *testing.T) {
	platform := &slowPlatform{}
	b := testBinding(platform)

	calls, err := Parse(`log(member.username)`)
	require.NoError(t, err)

	inv := &Invocation{
		guildID:  b.GuildID,
		calls:    calls,
		caps:     b.Caps,
		vars:     b.Vars,
		deadline: time.Now().Add(time.Second),
	}

	value, err := inv.argValue(calls[0].Args[0])
	require.NoError(t, err)
	assert.Equal(t, "alice", value)

	badCalls, err := Parse(`log(member.nonexistent)`)
	require.NoError(t, err)
	_, err = inv.argValue(badCalls[0].Args[0])
	assert.Error(t, err)

	snapCalls, err := Parse(`log(member)`)
	require.NoError(t, err)
	whole, err := inv.argValue(snapCalls[0].Args[0])
	require.NoError(t, err)
	assert.IsType(t, snapshot.Snapshot{}, whole)
}
