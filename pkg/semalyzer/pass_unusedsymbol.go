package semalyzer

import (
	"fmt"

	"github.com/its-hmny/hrlc/pkg/ast"
)

// UnusedSymbolPass runs in two passes over the tree (spec.md §4.7): first
// it collects every variable symbol actually read anywhere, then it walks
// the tree again dropping local declarations that were never read, each
// with a warning. Global (compilation-unit-level) declarations are never
// candidates — only the loop over Subroutines below ever removes anything.
// Grounded on original_source/compiler/semanalyzer/src/UnusedSymbolPass.cpp.
type UnusedSymbolPass struct {
	root     *ast.CompilationUnit
	filename string
	errors   *ErrorManager
	table    *SymbolTable
	used     map[*Symbol]bool
	status   int
}

func NewUnusedSymbolPass(root *ast.CompilationUnit, filename string, em *ErrorManager) *UnusedSymbolPass {
	return &UnusedSymbolPass{root: root, filename: filename, errors: em}
}

func (p *UnusedSymbolPass) SetSymbolTable(table *SymbolTable) { p.table = table }

func (p *UnusedSymbolPass) loc(n ast.Positioned) Location { return locationOf(p.filename, n.Position()) }

func (p *UnusedSymbolPass) symbolOf(n ast.HasAttributes) *Symbol {
	v, ok := n.AttributesBag().Get(ast.AttrSymbol)
	if !ok {
		return nil
	}
	sym, _ := v.(*Symbol)
	return sym
}

func (p *UnusedSymbolPass) Run() int {
	p.used = make(map[*Symbol]bool)
	p.status = 0

	for _, fb := range p.root.FloorInits {
		p.collectExpr(fb.Assignment.Index)
		p.collectExpr(fb.Assignment.Value)
	}
	for _, vd := range p.root.VarDecls {
		p.collectExpr(vd.Assignment)
	}
	for _, sub := range p.root.Subroutines {
		p.collectStmt(sub)
	}

	for _, sub := range p.root.Subroutines {
		p.rewriteStatement(sub)
	}
	return p.status
}

// collectStmt/collectExpr mark every symbol read anywhere in the tree.
// A VariableAssignment's target is a write, not a read, and does not by
// itself mark the symbol as used.
func (p *UnusedSymbolPass) collectStmt(stmt ast.Statement) {
	switch node := stmt.(type) {
	case nil:
		return
	case *ast.VariableDeclaration:
		p.collectExpr(node.Assignment)
	case *ast.VariableAssignment:
		p.collectExpr(node.Value)
	case *ast.FloorAssignment:
		p.collectExpr(node.Index)
		p.collectExpr(node.Value)
	case *ast.Increment:
		p.used[p.symbolOf(node)] = true
	case *ast.Decrement:
		p.used[p.symbolOf(node)] = true
	case *ast.Invocation:
		p.collectExpr(node.Argument)
	case *ast.StatementBlock:
		for _, s := range node.Stmts {
			p.collectStmt(s)
		}
	case *ast.IfStatement:
		p.collectExpr(node.Cond)
		for _, s := range node.Then {
			p.collectStmt(s)
		}
		for _, s := range node.Else {
			p.collectStmt(s)
		}
	case *ast.WhileStatement:
		p.collectExpr(node.Cond)
		for _, s := range node.Body {
			p.collectStmt(s)
		}
	case *ast.ForStatement:
		p.collectStmt(node.Init)
		p.collectExpr(node.Cond)
		p.collectStmt(node.Update)
		for _, s := range node.Body {
			p.collectStmt(s)
		}
	case *ast.ReturnStatement:
		p.collectExpr(node.Expr)
	case *ast.BreakStatement, *ast.ContinueStatement, *ast.EmptyStatement:
		// nothing to collect
	case *ast.Subprocedure:
		for _, s := range node.Body {
			p.collectStmt(s)
		}
	case *ast.Function:
		for _, s := range node.Body {
			p.collectStmt(s)
		}
	default:
		panic(fmt.Sprintf("semalyzer: unhandled statement type %T", node))
	}
}

func (p *UnusedSymbolPass) collectExpr(expr ast.Expression) {
	switch node := expr.(type) {
	case nil:
		return
	case *ast.Integer, *ast.Boolean:
	case *ast.VariableAccess:
		p.used[p.symbolOf(node)] = true
	case *ast.Increment:
		p.used[p.symbolOf(node)] = true
	case *ast.Decrement:
		p.used[p.symbolOf(node)] = true
	case *ast.FloorAccess:
		p.collectExpr(node.Index)
	case *ast.Negative:
		p.collectExpr(node.Operand)
	case *ast.Not:
		p.collectExpr(node.Operand)
	case *ast.Binary:
		p.collectExpr(node.Left)
		p.collectExpr(node.Right)
	case *ast.Invocation:
		p.collectExpr(node.Argument)
	default:
		panic(fmt.Sprintf("semalyzer: unhandled expression type %T", node))
	}
}

func (p *UnusedSymbolPass) rewriteStatement(stmt ast.Statement) {
	switch node := stmt.(type) {
	case nil:
		return
	case *ast.StatementBlock:
		node.Stmts = p.rewriteBlock(node.Stmts)
	case *ast.IfStatement:
		node.Then = p.rewriteBlock(node.Then)
		node.Else = p.rewriteBlock(node.Else)
	case *ast.WhileStatement:
		node.Body = p.rewriteBlock(node.Body)
	case *ast.ForStatement:
		// the induction variable declared in Init is left alone: it is
		// always read by Cond/Update, and removing it would orphan them.
		node.Body = p.rewriteBlock(node.Body)
	case *ast.Subprocedure:
		node.Body = p.rewriteBlock(node.Body)
	case *ast.Function:
		node.Body = p.rewriteBlock(node.Body)
	}
}

func (p *UnusedSymbolPass) rewriteBlock(stmts []ast.Statement) []ast.Statement {
	out := make([]ast.Statement, 0, len(stmts))
	for _, s := range stmts {
		if vd, ok := s.(*ast.VariableDeclaration); ok {
			sym := p.symbolOf(vd)
			if sym != nil && !p.used[sym] {
				p.errors.Report(W_SEMA_VAR_DEFINED_BUT_UNUSED, SeverityWarning, p.loc(vd),
					fmt.Sprintf("variable %q is declared but never read", vd.Name), "")
				continue
			}
		}
		p.rewriteStatement(s)
		out = append(out, s)
	}
	return out
}
