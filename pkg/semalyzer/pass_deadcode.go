package semalyzer

import (
	"fmt"

	"github.com/its-hmny/hrlc/pkg/ast"
)

// DeadCodeEliminationPass rewrites statement lists in place: empty
// statements are dropped, `if`/`while` with a constant-folded condition
// collapse to whichever branch (if any) is actually reachable (with a
// warning for whatever got discarded), a `while(true)` is tracked as an
// infinite loop so anything after it in the same block is unreachable, and
// any statement following an unconditional return/break/continue within
// the same block is unreachable and gets stripped, once, with a warning.
// Grounded on original_source/compiler/semanalyzer/src/DeadCodeEliminationPass.cpp.
type DeadCodeEliminationPass struct {
	root     *ast.CompilationUnit
	filename string
	errors   *ErrorManager
	status   int
}

func NewDeadCodeEliminationPass(root *ast.CompilationUnit, filename string, em *ErrorManager) *DeadCodeEliminationPass {
	return &DeadCodeEliminationPass{root: root, filename: filename, errors: em}
}

func (p *DeadCodeEliminationPass) fail(id int) {
	if p.status == 0 {
		p.status = id
	}
}

func (p *DeadCodeEliminationPass) loc(n ast.Positioned) Location { return locationOf(p.filename, n.Position()) }

func (p *DeadCodeEliminationPass) Run() int {
	p.status = 0
	for _, stmt := range p.root.Subroutines {
		p.rewriteStatement(stmt)
	}
	return p.status
}

func isTerminator(s ast.Statement) bool {
	switch s.(type) {
	case *ast.ReturnStatement, *ast.BreakStatement, *ast.ContinueStatement:
		return true
	default:
		return false
	}
}

// isInfiniteLoop reports whether s is a while loop whose condition folded
// down to the constant `true` — such a loop never falls through, so
// whatever follows it in the same block can never run either.
func isInfiniteLoop(s ast.Statement) bool {
	w, ok := s.(*ast.WhileStatement)
	if !ok {
		return false
	}
	val := foldedConstOf(w.Cond)
	return val != nil && val.IsBool && val.Bool
}

// reportDeadCode emits W_SEMA_DEAD_CODE at the position of at (falling back
// to fallback when at has no position of its own, e.g. an empty branch).
func (p *DeadCodeEliminationPass) reportDeadCode(at ast.Positioned, fallback ast.Positioned, reason string) {
	if at == nil {
		at = fallback
	}
	p.errors.Report(W_SEMA_DEAD_CODE, SeverityWarning, p.loc(at), fmt.Sprintf("unreachable code: %s", reason), "")
}

func firstPositioned(stmts []ast.Statement) ast.Positioned {
	if len(stmts) == 0 {
		return nil
	}
	pos, _ := stmts[0].(ast.Positioned)
	return pos
}

// rewriteBlock filters stmts into a new slice: empty statements vanish, and
// once a terminator or an infinite loop is seen every following statement
// is reported as dead code and dropped.
func (p *DeadCodeEliminationPass) rewriteBlock(stmts []ast.Statement) []ast.Statement {
	out := make([]ast.Statement, 0, len(stmts))
	terminated := false
	reason := ""
	warned := false

	for _, s := range stmts {
		if terminated {
			if !warned {
				pos, _ := s.(ast.Positioned)
				p.reportDeadCode(pos, firstPositioned(stmts), reason)
				warned = true
			}
			continue
		}

		rewritten := p.rewriteStatement(s)
		out = append(out, rewritten...)
		if len(rewritten) == 0 {
			continue
		}
		last := rewritten[len(rewritten)-1]
		switch {
		case isTerminator(last):
			terminated, reason = true, "end of control flow"
		case isInfiniteLoop(last):
			terminated, reason = true, "after infinite loop"
		}
	}
	return out
}

// rewriteStatement returns the replacement for s: nil if it is removed
// entirely, one element if it survives (possibly mutated), or several
// elements when an `if` with a constant condition splices in a branch.
func (p *DeadCodeEliminationPass) rewriteStatement(stmt ast.Statement) []ast.Statement {
	switch node := stmt.(type) {
	case nil:
		return nil

	case *ast.EmptyStatement:
		return nil

	case *ast.VariableDeclaration, *ast.VariableAssignment, *ast.FloorAssignment,
		*ast.Increment, *ast.Decrement, *ast.Invocation,
		*ast.ReturnStatement, *ast.BreakStatement, *ast.ContinueStatement:
		return []ast.Statement{stmt}

	case *ast.StatementBlock:
		node.Stmts = p.rewriteBlock(node.Stmts)
		return []ast.Statement{node}

	case *ast.IfStatement:
		if val := foldedConstOf(node.Cond); val != nil && val.IsBool {
			if val.Bool {
				if len(node.Else) > 0 {
					p.reportDeadCode(firstPositioned(node.Else), node, "constant true condition")
				}
				node.Then = p.rewriteBlock(node.Then)
				return node.Then
			}
			p.reportDeadCode(firstPositioned(node.Then), node, "constant false condition")
			node.Else = p.rewriteBlock(node.Else)
			return node.Else
		}
		node.Then = p.rewriteBlock(node.Then)
		node.Else = p.rewriteBlock(node.Else)
		return []ast.Statement{node}

	case *ast.WhileStatement:
		if val := foldedConstOf(node.Cond); val != nil && val.IsBool && !val.Bool {
			p.reportDeadCode(firstPositioned(node.Body), node, "constant false condition")
			return nil // the loop never runs
		}
		node.Body = p.rewriteBlock(node.Body)
		return []ast.Statement{node}

	case *ast.ForStatement:
		if node.Init != nil {
			if rewritten := p.rewriteStatement(node.Init); len(rewritten) > 0 {
				node.Init = rewritten[0]
			} else {
				node.Init = nil
			}
		}
		node.Body = p.rewriteBlock(node.Body)
		return []ast.Statement{node}

	case *ast.Subprocedure:
		node.Body = p.rewriteBlock(node.Body)
		return []ast.Statement{node}

	case *ast.Function:
		node.Body = p.rewriteBlock(node.Body)
		return []ast.Statement{node}

	default:
		panic(fmt.Sprintf("semalyzer: unhandled statement type %T", node))
	}
}
