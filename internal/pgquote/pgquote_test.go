package pgquote_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuku/pgdb/internal/pgquote"
)

func TestEscapeIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "users", `"users"`},
		{"empty", "", `""`},
		{"embedded double quote", `we"ird`, `"we""ird"`},
		{"only quotes", `""`, `""""""`},
		{"single quote untouched", "it's", `"it's"`},
		{"backslash untouched", `a\b`, `"a\b"`},
		{"injection attempt", `x"; DROP TABLE users; --`, `"x""; DROP TABLE users; --"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pgquote.EscapeIdentifier(tt.input))
		})
	}
}

func TestEscapeLiteral(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hunter2", `'hunter2'`},
		{"empty", "", `''`},
		{"embedded single quote", "it's", `'it''s'`},
		{"double quote untouched", `we"ird`, `'we"ird'`},
		{"injection attempt", `'; DROP ROLE admin; --`, `'''; DROP ROLE admin; --'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pgquote.EscapeLiteral(tt.input))
		})
	}
}

// unquote reverses the quoting transform: strips the outer quote pair and
// un-doubles embedded quote characters. It fails the test on malformed
// input, e.g. a lone quote character that would terminate the quoted region
// early and leave a statement tail behind.
func unquote(t *testing.T, quoteChar byte, quoted string) string {
	t.Helper()

	require.GreaterOrEqual(t, len(quoted), 2)
	require.Equal(t, quoteChar, quoted[0])
	require.Equal(t, quoteChar, quoted[len(quoted)-1])

	inner := quoted[1 : len(quoted)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] == quoteChar {
			require.Less(t, i+1, len(inner), "quote character not doubled; quoted region ends early")
			require.Equal(t, quoteChar, inner[i+1], "quote character not doubled; quoted region ends early")
			i++
		}
		b.WriteByte(inner[i])
	}
	return b.String()
}

func TestQuoteRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"simple",
		`"`,
		`""`,
		"'",
		"''",
		`a"b'c`,
		`fixture_db_0123456789abcdef`,
		"sp ace and\ttab",
		"uni·code ✓",
		`"; SELECT pg_sleep(10); --`,
	}

	for _, input := range inputs {
		assert.Equal(t, input, unquote(t, '"', pgquote.EscapeIdentifier(input)), "identifier round-trip for %q", input)
		assert.Equal(t, input, unquote(t, '\'', pgquote.EscapeLiteral(input)), "literal round-trip for %q", input)
	}
}

func TestIsValidIdentifier(t *testing.T) {
	assert.True(t, pgquote.IsValidIdentifier("users"))
	assert.True(t, pgquote.IsValidIdentifier("_private"))
	assert.True(t, pgquote.IsValidIdentifier("table1$x"))
	assert.True(t, pgquote.IsValidIdentifier(strings.Repeat("a", 63)))

	assert.False(t, pgquote.IsValidIdentifier(""))
	assert.False(t, pgquote.IsValidIdentifier("1starts_with_digit"))
	assert.False(t, pgquote.IsValidIdentifier("has space"))
	assert.False(t, pgquote.IsValidIdentifier(`has"quote`))
	assert.False(t, pgquote.IsValidIdentifier(strings.Repeat("a", 64)))
}
