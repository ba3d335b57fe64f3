package semalyzer

import (
	"fmt"

	"github.com/its-hmny/hrlc/pkg/ast"
)

// ClearSymbolTablePass empties the shared symbol table of every
// user-declared binding (but keeps the library symbols) between the
// optimistic and final phases of the default pipeline, so Symbol Analysis
// Pass #2 rebinds everything from scratch against the tree the optimizing
// passes rewrote (spec.md §4.9).
type ClearSymbolTablePass struct {
	table *SymbolTable
}

func NewClearSymbolTablePass() *ClearSymbolTablePass { return &ClearSymbolTablePass{} }

func (p *ClearSymbolTablePass) SetSymbolTable(table *SymbolTable) { p.table = table }

func (p *ClearSymbolTablePass) Run() int {
	if p.table != nil {
		p.table.Clear()
	}
	return 0
}

// StripAttributePass walks the whole tree clearing the given attribute
// kinds from every node, used between phases to drop attributes whose
// values no longer apply to the rewritten tree (spec.md §4.9). Unlike
// every other pass, it has to visit every node regardless of concrete
// type, so it is the one place a plain recursive walk replaces the usual
// type-switch-per-concern style.
type StripAttributePass struct {
	root  *ast.CompilationUnit
	kinds []ast.AttrKind
}

func NewStripAttributePass(root *ast.CompilationUnit, kinds ...ast.AttrKind) *StripAttributePass {
	return &StripAttributePass{root: root, kinds: kinds}
}

func (p *StripAttributePass) Run() int {
	cu := p.root
	p.strip(cu)

	for _, imp := range cu.Imports {
		p.strip(imp)
	}
	for _, fb := range cu.FloorInits {
		p.strip(fb)
		p.strip(fb.Assignment)
		p.stripExpr(fb.Assignment.Index)
		p.stripExpr(fb.Assignment.Value)
	}
	for _, vd := range cu.VarDecls {
		p.stripStmt(vd)
	}
	for _, sub := range cu.Subroutines {
		p.stripStmt(sub)
	}
	return 0
}

func (p *StripAttributePass) strip(n ast.HasAttributes) { n.AttributesBag().Clear(p.kinds...) }

func (p *StripAttributePass) stripStmt(stmt ast.Statement) {
	switch node := stmt.(type) {
	case nil:
		return

	case *ast.VariableDeclaration:
		p.strip(node)
		p.stripExpr(node.Assignment)

	case *ast.VariableAssignment:
		p.strip(node)
		p.stripExpr(node.Value)

	case *ast.FloorAssignment:
		p.strip(node)
		p.stripExpr(node.Index)
		p.stripExpr(node.Value)

	case *ast.Increment:
		p.strip(node)
	case *ast.Decrement:
		p.strip(node)

	case *ast.Invocation:
		p.strip(node)
		p.stripExpr(node.Argument)

	case *ast.StatementBlock:
		p.strip(node)
		for _, s := range node.Stmts {
			p.stripStmt(s)
		}

	case *ast.EmptyStatement:
		p.strip(node)

	case *ast.IfStatement:
		p.strip(node)
		p.stripExpr(node.Cond)
		for _, s := range node.Then {
			p.stripStmt(s)
		}
		for _, s := range node.Else {
			p.stripStmt(s)
		}

	case *ast.WhileStatement:
		p.strip(node)
		p.stripExpr(node.Cond)
		for _, s := range node.Body {
			p.stripStmt(s)
		}

	case *ast.ForStatement:
		p.strip(node)
		p.stripStmt(node.Init)
		p.stripExpr(node.Cond)
		p.stripStmt(node.Update)
		for _, s := range node.Body {
			p.stripStmt(s)
		}

	case *ast.ReturnStatement:
		p.strip(node)
		p.stripExpr(node.Expr)

	case *ast.BreakStatement:
		p.strip(node)
	case *ast.ContinueStatement:
		p.strip(node)

	case *ast.Subprocedure:
		p.strip(node)
		for _, s := range node.Body {
			p.stripStmt(s)
		}

	case *ast.Function:
		p.strip(node)
		for _, s := range node.Body {
			p.stripStmt(s)
		}

	default:
		panic(fmt.Sprintf("semalyzer: unhandled statement type %T", node))
	}
}

func (p *StripAttributePass) stripExpr(expr ast.Expression) {
	switch node := expr.(type) {
	case nil:
		return
	case *ast.Integer:
		p.strip(node)
	case *ast.Boolean:
		p.strip(node)
	case *ast.VariableAccess:
		p.strip(node)
	case *ast.Increment:
		p.strip(node)
	case *ast.Decrement:
		p.strip(node)
	case *ast.FloorAccess:
		p.strip(node)
		p.stripExpr(node.Index)
	case *ast.Negative:
		p.strip(node)
		p.stripExpr(node.Operand)
	case *ast.Not:
		p.strip(node)
		p.stripExpr(node.Operand)
	case *ast.Binary:
		p.strip(node)
		p.stripExpr(node.Left)
		p.stripExpr(node.Right)
	case *ast.Invocation:
		p.strip(node)
		p.stripExpr(node.Argument)
	default:
		panic(fmt.Sprintf("semalyzer: unhandled expression type %T", node))
	}
}
