package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/its-hmny/hrlc/pkg/lexer"
	"github.com/its-hmny/hrlc/pkg/token"
)

func kinds(t *testing.T, tokens []token.Token) []token.Kind {
	t.Helper()
	out := make([]token.Kind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestTokenizeKeywordsAndPunctuation(t *testing.T) {
	tokens, err := lexer.New().Tokenize([]byte(`sub main() { let x = 1; }`))
	require.NoError(t, err)

	require.Equal(t, []token.Kind{
		token.SUBWORD, token.IDENTIFIER, token.LPAREN, token.RPAREN,
		token.LBRACE, token.LET, token.IDENTIFIER, token.EQ, token.INTEGER,
		token.SEMI, token.RBRACE, token.END,
	}, kinds(t, tokens))
}

func TestTokenizeTwoCharacterOperators(t *testing.T) {
	tokens, err := lexer.New().Tokenize([]byte(`x++ y-- a==b a!=b a<=b a>=b`))
	require.NoError(t, err)

	require.Equal(t, []token.Kind{
		token.IDENTIFIER, token.INC,
		token.IDENTIFIER, token.DEC,
		token.IDENTIFIER, token.EQ_EQ, token.IDENTIFIER,
		token.IDENTIFIER, token.NOT_EQ, token.IDENTIFIER,
		token.IDENTIFIER, token.LT_EQ, token.IDENTIFIER,
		token.IDENTIFIER, token.GT_EQ, token.IDENTIFIER,
		token.END,
	}, kinds(t, tokens))
}

func TestTokenizeBooleanLiteralsAreKeywords(t *testing.T) {
	tokens, err := lexer.New().Tokenize([]byte(`true false`))
	require.NoError(t, err)
	require.Equal(t, []token.Kind{token.BOOLEAN, token.BOOLEAN, token.END}, kinds(t, tokens))
}

func TestTokenizePositionsAdvanceAcrossLines(t *testing.T) {
	tokens, err := lexer.New().Tokenize([]byte("let x = 1;\nlet y = 2;"))
	require.NoError(t, err)

	require.Equal(t, 1, tokens[0].Pos.Line)
	// "let" on the second source line must report Line == 2.
	var secondLet token.Token
	seen := 0
	for _, tok := range tokens {
		if tok.Kind == token.LET {
			seen++
			if seen == 2 {
				secondLet = tok
			}
		}
	}
	require.Equal(t, 2, secondLet.Pos.Line)
}

func TestTokenizeLineCommentBecomesTrivia(t *testing.T) {
	tokens, err := lexer.New().Tokenize([]byte("// a note\nlet x = 1;"))
	require.NoError(t, err)

	require.Equal(t, token.LET, tokens[0].Kind)
	require.NotEmpty(t, tokens[0].Trivia)
	require.Contains(t, tokens[0].Trivia[0].Comment, "a note")
}

func TestTokenizeEndsWithEndToken(t *testing.T) {
	tokens, err := lexer.New().Tokenize([]byte(``))
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.Equal(t, token.END, tokens[0].Kind)
}
