package token_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/its-hmny/hrlc/pkg/token"
)

func TestKeywordsTable(t *testing.T) {
	cases := map[string]token.Kind{
		"let":      token.LET,
		"function": token.FUNCTION,
		"sub":      token.SUBWORD,
		"while":    token.WHILE,
		"true":     token.BOOLEAN,
		"false":    token.BOOLEAN,
	}
	for text, want := range cases {
		got, ok := token.Keywords[text]
		require.True(t, ok, "expected %q to be a keyword", text)
		require.Equal(t, want, got)
	}

	_, ok := token.Keywords["total"]
	require.False(t, ok, "ordinary identifiers must not be in the keyword table")
}

func TestPositionString(t *testing.T) {
	p := token.Position{Line: 3, Column: 7}
	require.Equal(t, "3:7", p.String())
}

func TestUnknownPosition(t *testing.T) {
	require.Equal(t, -1, token.UnknownPosition.Line)
	require.Equal(t, -1, token.UnknownPosition.Column)
}

func TestTokenString(t *testing.T) {
	tok := token.Token{Kind: token.IDENTIFIER, Text: "total", Pos: token.Position{Line: 1, Column: 1}}
	require.Contains(t, tok.String(), "identifier")
	require.Contains(t, tok.String(), "total")
}
