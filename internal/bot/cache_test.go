package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overwrite(id string, allow, deny int64) *discordgo.PermissionOverwrite {
	return &discordgo.PermissionOverwrite{
		ID:    id,
		Type:  discordgo.PermissionOverwriteTypeRole,
		Allow: allow,
		Deny:  deny,
	}
}

func TestSwapChannelPermissionsReturnsPreviousSet(t *testing.T) {
	cache := newStateCache()

	_, known := cache.swapChannelPermissions("c1", []*discordgo.PermissionOverwrite{overwrite("r1", 1024, 0)})
	assert.False(t, known, "first sighting has no previous set")

	old, known := cache.swapChannelPermissions("c1", []*discordgo.PermissionOverwrite{overwrite("r1", 0, 1024)})
	require.True(t, known)
	require.Len(t, old, 1)
	assert.Equal(t, int64(1024), old[0].Allow)
	assert.Equal(t, int64(0), old[0].Deny)
}

func TestSwapChannelPermissionsCopiesValues(t *testing.T) {
	cache := newStateCache()

	live := overwrite("r1", 1024, 0)
	cache.swapChannelPermissions("c1", []*discordgo.PermissionOverwrite{live})

	// Mutating the payload after caching must not rewrite the cached copy,
	// or every diff would compare the new shape against itself.
	live.Deny = 2048

	old, known := cache.swapChannelPermissions("c1", []*discordgo.PermissionOverwrite{live})
	require.True(t, known)
	require.Len(t, old, 1)
	assert.Equal(t, int64(0), old[0].Deny)
}

func TestForgetChannelDropsCachedSet(t *testing.T) {
	cache := newStateCache()

	cache.swapChannelPermissions("c1", []*discordgo.PermissionOverwrite{overwrite("r1", 1024, 0)})
	cache.forgetChannel("c1")

	_, known := cache.swapChannelPermissions("c1", nil)
	assert.False(t, known)
}

func TestOverwritesChanged(t *testing.T) {
	old := []discordgo.PermissionOverwrite{*overwrite("r1", 1024, 0)}

	assert.False(t, overwritesChanged(old, []*discordgo.PermissionOverwrite{overwrite("r1", 1024, 0)}),
		"identical sets are not a change")
	assert.True(t, overwritesChanged(old, []*discordgo.PermissionOverwrite{overwrite("r1", 1024, 2048)}),
		"deny bit change detected")
	assert.True(t, overwritesChanged(old, []*discordgo.PermissionOverwrite{overwrite("r1", 1024, 0), overwrite("r2", 0, 0)}),
		"added overwrite detected")
	assert.True(t, overwritesChanged(old, nil), "removed overwrite detected")
	assert.True(t, overwritesChanged(old, []*discordgo.PermissionOverwrite{nil}))
}

// A channel update only counts as a permission change when the cached
// shape differs; repeated identical payloads stay unhandled.
func TestCachedDiffDetectsPermissionEdit(t *testing.T) {
	cache := newStateCache()

	first := []*discordgo.PermissionOverwrite{overwrite("r1", 1024, 0)}
	cache.swapChannelPermissions("c1", first)

	same := []*discordgo.PermissionOverwrite{overwrite("r1", 1024, 0)}
	old, known := cache.swapChannelPermissions("c1", same)
	require.True(t, known)
	assert.False(t, overwritesChanged(old, same))

	edited := []*discordgo.PermissionOverwrite{overwrite("r1", 1024, 2048)}
	old, known = cache.swapChannelPermissions("c1", edited)
	require.True(t, known)
	assert.True(t, overwritesChanged(old, edited))
}
