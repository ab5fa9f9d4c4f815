// Package pgquote provides quoting helpers for PostgreSQL identifiers and
// string literals.
//
// Quoting is the sole injection defense in this module: every identifier or
// literal interpolated into a SQL statement must be routed through
// EscapeIdentifier or EscapeLiteral.
package pgquote

import (
	"regexp"
	"strings"
)

const (
	// MaxIdentifierLength is the maximum length of a PostgreSQL identifier.
	MaxIdentifierLength = 63
)

// identifierRegex matches unquoted PostgreSQL identifiers: a letter or
// underscore followed by letters, digits, underscores, or dollar signs.
var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_$]*$`)

// quote wraps unescaped in quoteChar, doubling every embedded occurrence of
// quoteChar. No other character is altered.
func quote(quoteChar byte, unescaped string) string {
	var b strings.Builder
	b.Grow(len(unescaped) + 2)

	b.WriteByte(quoteChar)
	for i := 0; i < len(unescaped); i++ {
		c := unescaped[i]
		if c == quoteChar {
			b.WriteByte(quoteChar)
		}
		b.WriteByte(c)
	}
	b.WriteByte(quoteChar)

	return b.String()
}

// EscapeIdentifier quotes a SQL identifier (table, database, role name).
func EscapeIdentifier(unescaped string) string {
	return quote('"', unescaped)
}

// EscapeLiteral quotes a SQL string literal.
func EscapeLiteral(unescaped string) string {
	return quote('\'', unescaped)
}

// IsValidIdentifier reports whether the given string is a valid PostgreSQL
// identifier without quoting: starts with a letter or underscore, contains
// only letters, digits, underscores, or dollar signs, and does not exceed
// 63 characters.
func IsValidIdentifier(identifier string) bool {
	if len(identifier) == 0 || len(identifier) > MaxIdentifierLength {
		return false
	}
	return identifierRegex.MatchString(identifier)
}
