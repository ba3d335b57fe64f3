package ast

import "github.com/its-hmny/hrlc/pkg/token"

// Builder is the seam pkg/parser calls into to turn a span of consumed
// tokens into a positioned node header. It exists so that a future change
// reintroducing a distinct parse-tree layer only has to touch this file.
type Builder struct{}

// NewBuilder returns a ready-to-use Builder; it carries no state of its
// own (position bookkeeping is purely a function of the tokens handed in).
func NewBuilder() *Builder { return &Builder{} }

// Header builds a Node from the span of tokens the parser consumed to
// produce one AST node, merging their positions into a single span.
func (b *Builder) Header(tokens ...token.Token) Node {
	if len(tokens) == 0 {
		return Node{Pos: token.UnknownPosition}
	}

	first, last := tokens[0], tokens[len(tokens)-1]
	pos := token.Position{
		Line:       first.Pos.Line,
		Column:     first.Pos.Column,
		LastLine:   last.Pos.LastLine,
		LastColumn: last.Pos.LastColumn,
		Width:      last.Pos.Column + last.Pos.Width - first.Pos.Column,
	}
	return Node{Pos: pos, Tokens: tokens}
}

// Synthesize builds a Node with no originating tokens, used when a pass
// (constant folding, in practice) manufactures a brand-new node such as a
// folded literal. It inherits the position (not the tokens) of the node
// it replaces so diagnostics still point somewhere sensible.
func (b *Builder) Synthesize(from HasAttributes, pos token.Position) Node {
	n := Node{Pos: pos}
	if p, ok := from.(Positioned); ok {
		n.Pos = p.Position()
	}
	return n
}
