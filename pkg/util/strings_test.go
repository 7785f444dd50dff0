package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafe(t *testing.T) {
	assert.Equal(t, "plain", Safe("plain"))
	assert.Equal(t, "no fences here", Safe("no `fences` here`"))
	assert.Equal(t, "", Safe("```"))
}

func TestChunkMessageShortInput(t *testing.T) {
	chunks := ChunkMessage("short", 1800)
	assert.Equal(t, []string{"short"}, chunks)
}

func TestChunkMessageBreaksOnNewlines(t *testing.T) {
	input := strings.Repeat("0123456789\n", 30)
	chunks := ChunkMessage(input, 100)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 100)
		assert.False(t, strings.HasPrefix(chunk, "\n"))
	}
	assert.Equal(t, strings.Count(input, "0123456789"), strings.Count(strings.Join(chunks, "\n"), "0123456789"),
		"no content may be lost")
}

func TestChunkMessageWithoutNewlines(t *testing.T) {
	input := strings.Repeat("x", 250)
	chunks := ChunkMessage(input, 100)

	require.Len(t, chunks, 3)
	assert.Equal(t, 100, len(chunks[0]))
	assert.Equal(t, 100, len(chunks[1]))
	assert.Equal(t, 50, len(chunks[2]))
}

func TestParseChannelMention(t *testing.T) {
	id, ok := ParseChannelMention("<#123456789>")
	require.True(t, ok)
	assert.Equal(t, "123456789", id)

	id, ok = ParseChannelMention("987654321")
	require.True(t, ok)
	assert.Equal(t, "987654321", id)

	for _, bad := range []string{"", "<#>", "<#abc>", "general", "<@123>"} {
		_, ok := ParseChannelMention(bad)
		assert.False(t, ok, "input %q", bad)
	}
}
