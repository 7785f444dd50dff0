package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleCall(t *testing.T) {
	calls, err := Parse(`toggleRoleById("123456789")`)
	require.NoError(t, err)
	require.Len(t, calls, 1)

	assert.Equal(t, "toggleRoleById", calls[0].Name)
	require.Len(t, calls[0].Args, 1)
	assert.Equal(t, ArgString, calls[0].Args[0].Kind)
	assert.Equal(t, "123456789", calls[0].Args[0].Str)
}

func TestParseCallSequence(t *testing.T) {
	calls, err := Parse(`log(member.tag); messageChannelById("987", "hello world")
		removeRoleById("55")`)
	require.NoError(t, err)
	require.Len(t, calls, 3)

	assert.Equal(t, "log", calls[0].Name)
	assert.Equal(t, ArgIdent, calls[0].Args[0].Kind)
	assert.Equal(t, "member.tag", calls[0].Args[0].Ident)

	assert.Equal(t, "messageChannelById", calls[1].Name)
	require.Len(t, calls[1].Args, 2)
	assert.Equal(t, "hello world", calls[1].Args[1].Str)

	assert.Equal(t, "removeRoleById", calls[2].Name)
}

func TestParseArgumentKinds(t *testing.T) {
	calls, err := Parse(`log("text", 42, -7, true, false, guild, member.nick)`)
	require.NoError(t, err)
	require.Len(t, calls, 1)

	args := calls[0].Args
	require.Len(t, args, 7)
	assert.Equal(t, ArgString, args[0].Kind)
	assert.Equal(t, int64(42), args[1].Int)
	assert.Equal(t, int64(-7), args[2].Int)
	assert.Equal(t, ArgBool, args[3].Kind)
	assert.True(t, args[3].Bool)
	assert.False(t, args[4].Bool)
	assert.Equal(t, "guild", args[5].Ident)
	assert.Equal(t, "member.nick", args[6].Ident)
}

func TestParseStringEscapes(t *testing.T) {
	calls, err := Parse(`log("line1\nline2\t\"quoted\"")`)
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\t\"quoted\"", calls[0].Args[0].Str)
}

func TestParseEmptySource(t *testing.T) {
	calls, err := Parse("   \n;  ")
	require.NoError(t, err)
	assert.Empty(t, calls)
}

func TestParseErrors(t *testing.T) {
	for _, source := range []string{
		`log`,
		`log(`,
		`log("unterminated)`,
		`log("a" "b")`,
		`(orphan)`,
		`log(member.)`,
		`log(@bad)`,
	} {
		_, err := Parse(source)
		assert.Error(t, err, "source %q must not parse", source)
	}
}

func TestValidateWhitelist(t *testing.T) {
	calls, err := Parse(`log(user.tag); addRoleById("1")`)
	require.NoError(t, err)
	assert.NoError(t, Validate(calls))

	calls, err = Parse(`deleteGuild("1")`)
	require.NoError(t, err)
	assert.Error(t, Validate(calls), "unknown function must be rejected")

	calls, err = Parse(`messageChannelById("only-one-arg")`)
	require.NoError(t, err)
	assert.Error(t, Validate(calls), "arity must be enforced")
}
