// Package lexer turns HRL source bytes into the token.Token stream the
// parser consumes. Token *recognition* is delegated to goparsec combinators
// (one small regex/atom combinator per token class, exactly like the
// teacher's pkg/jack/parsing.go and pkg/vm/parsing.go); this package then
// walks the resulting parse forest in source order to attach 1-based
// line/column positions and leading trivia, since goparsec itself is a
// byte-oriented recognizer and does not track those for us.
package lexer

import (
	"bytes"

	"github.com/pkg/errors"
	pc "github.com/prataprc/goparsec"

	"github.com/its-hmny/hrlc/pkg/token"
)

var grammar = pc.NewAST("hrl_tokens", 100)

var (
	pProgram = grammar.ManyUntil("program", nil, pItem, pc.End())

	pItem = grammar.OrdChoice("item", nil,
		pComment,
		// Two-character operators must be tried before their one-character prefixes.
		pc.Atom("++", "INC"), pc.Atom("--", "DEC"),
		pc.Atom("==", "EQ_EQ"), pc.Atom("!=", "NOT_EQ"),
		pc.Atom("<=", "LT_EQ"), pc.Atom(">=", "GT_EQ"),
		pc.Atom("+", "PLUS"), pc.Atom("-", "MINUS"),
		pc.Atom("*", "STAR"), pc.Atom("/", "SLASH"), pc.Atom("%", "PERCENT"),
		pc.Atom("&", "AMP"), pc.Atom("|", "PIPE"), pc.Atom("!", "BANG"),
		pc.Atom("=", "EQ"), pc.Atom("<", "LT"), pc.Atom(">", "GT"),
		pc.Atom("(", "LPAREN"), pc.Atom(")", "RPAREN"),
		pc.Atom("{", "LBRACE"), pc.Atom("}", "RBRACE"),
		pc.Atom("[", "LBRACKET"), pc.Atom("]", "RBRACKET"),
		pc.Atom(",", "COMMA"), pc.Atom(";", "SEMI"),
		pInteger, pIdentOrKeyword,
	)

	pComment = grammar.OrdChoice("comment", nil,
		grammar.And("sl_comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT")),
		grammar.And("ml_comment", nil, pc.Token(`/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`, "COMMENT")),
	)

	pInteger        = pc.Token(`[0-9]+`, "INTEGER")
	pIdentOrKeyword = pc.Token(`[A-Za-z_][0-9a-zA-Z_]*`, "IDENTIFIER")
)

// terminalKinds maps the goparsec terminal name assigned above to its
// token.Kind, for every class that is not context-sensitive (IDENTIFIER is
// handled separately since it may resolve to a keyword).
var terminalKinds = map[string]token.Kind{
	"INC": token.INC, "DEC": token.DEC,
	"EQ_EQ": token.EQ_EQ, "NOT_EQ": token.NOT_EQ,
	"LT_EQ": token.LT_EQ, "GT_EQ": token.GT_EQ,
	"PLUS": token.PLUS, "MINUS": token.MINUS,
	"STAR": token.STAR, "SLASH": token.SLASH, "PERCENT": token.PERCENT,
	"AMP": token.AMP, "PIPE": token.PIPE, "BANG": token.BANG,
	"EQ": token.EQ, "LT": token.LT, "GT": token.GT,
	"LPAREN": token.LPAREN, "RPAREN": token.RPAREN,
	"LBRACE": token.LBRACE, "RBRACE": token.RBRACE,
	"LBRACKET": token.LBRACKET, "RBRACKET": token.RBRACKET,
	"COMMA": token.COMMA, "SEMI": token.SEMI,
	"INTEGER": token.INTEGER,
}

// Lexer scans HRL source into a flat token stream.
type Lexer struct{}

// New returns a ready-to-use Lexer; it carries no state between calls.
func New() *Lexer { return &Lexer{} }

// Tokenize scans source and returns the token stream terminated by a
// synthetic token.END token.
func (l *Lexer) Tokenize(source []byte) ([]token.Token, error) {
	root, success := grammar.Parsewith(pProgram, pc.NewScanner(source))
	if !success || root == nil {
		return nil, errors.New("lexer: unable to tokenize input, no terminal matched at some offset")
	}
	if root.GetName() != "program" {
		return nil, errors.Errorf("lexer: expected root node 'program', got %q", root.GetName())
	}

	finder := newCursor(source)
	tokens := make([]token.Token, 0, len(root.GetChildren()))
	var pendingTrivia []token.Trivia

	for _, child := range root.GetChildren() {
		switch child.GetName() {
		case "sl_comment", "ml_comment":
			text, newlines := finder.advance(commentText(child))
			pendingTrivia = append(pendingTrivia, token.Trivia{NewlineCount: newlines, Comment: text})
			continue
		default:
			kind, ok := resolveKind(child)
			if !ok {
				return nil, errors.Errorf("lexer: unrecognized terminal %q", child.GetName())
			}
			text, newlines := finder.advance(child.GetValue())
			if newlines > 0 && len(pendingTrivia) > 0 {
				pendingTrivia[0].NewlineCount += newlines
			}
			tokens = append(tokens, token.Token{
				Kind:   kind,
				Text:   text,
				Pos:    finder.lastPos,
				Trivia: pendingTrivia,
			})
			pendingTrivia = nil
		}
	}

	tokens = append(tokens, token.Token{Kind: token.END, Pos: finder.lastPos})
	return tokens, nil
}

// commentText strips the leading comment-marker node that "sl_comment" and
// "ml_comment" wrap their COMMENT terminal with.
func commentText(node pc.Queryable) string {
	for _, child := range node.GetChildren() {
		if child.GetName() == "COMMENT" {
			return child.GetValue()
		}
	}
	return node.GetValue()
}

// resolveKind maps a matched terminal node to its token.Kind, resolving
// IDENTIFIER against the keyword table.
func resolveKind(node pc.Queryable) (token.Kind, bool) {
	if node.GetName() == "IDENTIFIER" {
		if kw, ok := token.Keywords[node.GetValue()]; ok {
			return kw, true
		}
		return token.IDENTIFIER, true
	}
	kind, ok := terminalKinds[node.GetName()]
	return kind, ok
}

// cursor tracks the byte offset we've consumed so far so that repeated
// identical lexemes (e.g. two occurrences of "x") resolve to their correct,
// distinct source positions rather than always the first occurrence.
type cursor struct {
	source  []byte
	offset  int
	lastPos token.Position
	line    int
	col     int
}

func newCursor(source []byte) *cursor {
	return &cursor{source: source, line: 1, col: 1}
}

// advance finds the next occurrence of text at or after the current
// offset, updates line/column bookkeeping for the span skipped over
// (whitespace and already-consumed trivia), and returns the text together
// with the number of newlines skipped to reach it.
func (c *cursor) advance(text string) (string, int) {
	idx := bytes.Index(c.source[c.offset:], []byte(text))
	if idx < 0 {
		idx = 0
	}
	skipped := c.source[c.offset : c.offset+idx]
	newlines := bytes.Count(skipped, []byte("\n"))

	for _, b := range skipped {
		if b == '\n' {
			c.line++
			c.col = 1
		} else {
			c.col++
		}
	}

	startLine, startCol := c.line, c.col
	for _, b := range []byte(text) {
		if b == '\n' {
			c.line++
			c.col = 1
		} else {
			c.col++
		}
	}

	c.offset += idx + len(text)
	c.lastPos = token.Position{
		Line: startLine, Column: startCol,
		LastLine: c.line, LastColumn: c.col,
		Width: len(text),
	}
	return text, newlines
}
