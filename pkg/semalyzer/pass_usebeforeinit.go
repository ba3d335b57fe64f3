package semalyzer

import (
	"fmt"

	"github.com/its-hmny/hrlc/pkg/ast"
	"github.com/its-hmny/hrlc/pkg/utils"
)

// UseBeforeInitPass is a per-variable forward data-flow analysis
// implemented as a tree walk (spec.md §4.4). It reuses the Symbol
// attributes the Symbol Analysis Pass already attached rather than
// re-resolving names itself, and reuses the teacher's generic
// utils.Stack[T] for the per-symbol "definitely assigned" flag stacks —
// exactly the stack-of-flags structure spec.md §4.4 describes.
type UseBeforeInitPass struct {
	root     *ast.CompilationUnit
	filename string
	errors   *ErrorManager
	table    *SymbolTable
	status   int
	stacks   map[*Symbol]*utils.Stack[int]
}

func NewUseBeforeInitPass(root *ast.CompilationUnit, filename string, em *ErrorManager) *UseBeforeInitPass {
	return &UseBeforeInitPass{root: root, filename: filename, errors: em}
}

func (p *UseBeforeInitPass) SetSymbolTable(table *SymbolTable) { p.table = table }

func (p *UseBeforeInitPass) fail(id int) {
	if p.status == 0 {
		p.status = id
	}
}

func (p *UseBeforeInitPass) loc(n ast.Positioned) Location { return locationOf(p.filename, n.Position()) }

func (p *UseBeforeInitPass) Run() int {
	p.stacks = make(map[*Symbol]*utils.Stack[int])
	p.status = 0

	for _, vd := range p.root.VarDecls {
		p.declareFromNode(vd)
		if vd.Assignment != nil {
			p.visitExpression(vd.Assignment)
			p.writeFromNode(vd)
		}
	}
	for _, fb := range p.root.FloorInits {
		p.visitExpression(fb.Assignment.Index)
		p.visitExpression(fb.Assignment.Value)
	}
	for _, sub := range p.root.Subroutines {
		p.visitStatement(sub)
	}
	return p.status
}

func (p *UseBeforeInitPass) symbolOf(n ast.HasAttributes) *Symbol {
	v, ok := n.AttributesBag().Get(ast.AttrSymbol)
	if !ok {
		return nil
	}
	sym, _ := v.(*Symbol)
	return sym
}

func (p *UseBeforeInitPass) scopeOf(n ast.HasAttributes) string {
	v, ok := n.AttributesBag().Get(ast.AttrScopeInfo)
	if !ok {
		return ""
	}
	info, _ := v.(*ScopeInfo)
	if info == nil {
		return ""
	}
	return info.ScopeID
}

func (p *UseBeforeInitPass) declareFromNode(n ast.HasAttributes) {
	sym := p.symbolOf(n)
	if sym == nil {
		return // redefinition: symbol analysis already failed to bind it
	}
	st := utils.NewStack[int](0)
	p.stacks[sym] = &st
}

func (p *UseBeforeInitPass) writeFromNode(n ast.HasAttributes) {
	sym := p.symbolOf(n)
	p.write(sym)
}

func (p *UseBeforeInitPass) write(sym *Symbol) {
	st := p.stacks[sym]
	if st == nil {
		return
	}
	st.Pop()
	st.Push(1)
}

func (p *UseBeforeInitPass) read(n ast.Positioned, sym *Symbol, name string) {
	st := p.stacks[sym]
	if st == nil {
		return
	}
	top, _ := st.Top()
	if top != 0 {
		return
	}
	p.errors.Report(E_SEMA_VAR_USE_BEFORE_INIT, SeverityError, p.loc(n),
		fmt.Sprintf("use of %q before it is definitely assigned on every path", name), "")
	p.errors.ReportContinued(SeverityNote, locationOf(sym.Filename, positionOf(sym)), "original defined in")
	p.fail(E_SEMA_VAR_USE_BEFORE_INIT)
}

// existingKeys / pruneNewSince implement the "entries that belong to
// scopes strictly inside the exiting scope are stripped" rule: any symbol
// whose stack was created during a nested block goes out of scope when
// that block's statements finish visiting.
func (p *UseBeforeInitPass) existingKeys() map[*Symbol]bool {
	keys := make(map[*Symbol]bool, len(p.stacks))
	for sym := range p.stacks {
		keys[sym] = true
	}
	return keys
}

func (p *UseBeforeInitPass) pruneNewSince(before map[*Symbol]bool) {
	for sym := range p.stacks {
		if !before[sym] {
			delete(p.stacks, sym)
		}
	}
}

func (p *UseBeforeInitPass) snapshotAll() map[*Symbol]int {
	snap := make(map[*Symbol]int, len(p.stacks))
	for sym, st := range p.stacks {
		top, _ := st.Top()
		snap[sym] = top
	}
	return snap
}

func (p *UseBeforeInitPass) restoreAll(snap map[*Symbol]int) {
	for sym, val := range snap {
		st := p.stacks[sym]
		if st == nil {
			continue
		}
		st.Pop()
		st.Push(val)
	}
}

func (p *UseBeforeInitPass) mergeAndRestore(a, b map[*Symbol]int) {
	merged := make(map[*Symbol]int, len(a))
	for sym, va := range a {
		vb, ok := b[sym]
		if !ok {
			vb = va
		}
		if va == 1 && vb == 1 {
			merged[sym] = 1
		} else {
			merged[sym] = 0
		}
	}
	p.restoreAll(merged)
}

func (p *UseBeforeInitPass) visitBlock(stmts []ast.Statement) {
	before := p.existingKeys()
	for _, s := range stmts {
		p.visitStatement(s)
	}
	p.pruneNewSince(before)
}

func (p *UseBeforeInitPass) visitStatement(stmt ast.Statement) {
	switch node := stmt.(type) {
	case nil:
		return

	case *ast.VariableDeclaration:
		p.declareFromNode(node)
		if node.Assignment != nil {
			p.visitExpression(node.Assignment)
			p.writeFromNode(node)
		}

	case *ast.VariableAssignment:
		p.visitExpression(node.Value)
		p.write(p.symbolOf(node))

	case *ast.FloorAssignment:
		p.visitExpression(node.Index)
		p.visitExpression(node.Value)

	case *ast.Increment:
		p.read(node, p.symbolOf(node), node.Name)
		p.write(p.symbolOf(node))

	case *ast.Decrement:
		p.read(node, p.symbolOf(node), node.Name)
		p.write(p.symbolOf(node))

	case *ast.Invocation:
		if node.Argument != nil {
			p.visitExpression(node.Argument)
		}

	case *ast.StatementBlock:
		p.visitBlock(node.Stmts)

	case *ast.EmptyStatement:
		// nothing to track

	case *ast.IfStatement:
		p.visitExpression(node.Cond)
		snapshot := p.snapshotAll()

		p.visitBlock(node.Then)
		thenPost := p.snapshotAll()
		p.restoreAll(snapshot)

		var elsePost map[*Symbol]int
		if node.Else != nil {
			p.visitBlock(node.Else)
			elsePost = p.snapshotAll()
			p.restoreAll(snapshot)
		} else {
			elsePost = snapshot
		}
		p.mergeAndRestore(thenPost, elsePost)

	case *ast.WhileStatement:
		p.visitExpression(node.Cond)
		snapshot := p.snapshotAll()
		p.visitBlock(node.Body)
		p.restoreAll(snapshot) // a while loop may execute zero times

	case *ast.ForStatement:
		before := p.existingKeys()
		if node.Init != nil {
			p.visitStatement(node.Init)
		}
		if node.Cond != nil {
			p.visitExpression(node.Cond)
		}
		snapshot := p.snapshotAll()
		for _, s := range node.Body {
			p.visitStatement(s)
		}
		if node.Update != nil {
			p.visitStatement(node.Update)
		}
		p.restoreAll(snapshot) // a for loop may execute zero times
		p.pruneNewSince(before)

	case *ast.ReturnStatement:
		if node.Expr != nil {
			p.visitExpression(node.Expr)
		}

	case *ast.BreakStatement, *ast.ContinueStatement:
		// no assignments to track

	case *ast.Subprocedure:
		p.visitSubroutine(p.scopeOf(node), node.Name, node.Param, node.Body)

	case *ast.Function:
		p.visitSubroutine(p.scopeOf(node), node.Name, node.Param, node.Body)

	default:
		panic(fmt.Sprintf("semalyzer: unhandled statement type %T", node))
	}
}

func (p *UseBeforeInitPass) visitSubroutine(outerScope, name string, param *string, body []ast.Statement) {
	before := p.existingKeys()

	if param != nil && p.table != nil {
		bodyScope := outerScope + "." + name
		if paramSym, _, found := p.table.LookupSymbol(nil, bodyScope, *param, false); found {
			st := utils.NewStack[int](1) // parameters are definitely assigned on entry
			p.stacks[paramSym] = &st
		}
	}

	for _, s := range body {
		p.visitStatement(s)
	}
	p.pruneNewSince(before)
}

func (p *UseBeforeInitPass) visitExpression(expr ast.Expression) {
	switch node := expr.(type) {
	case nil:
		return
	case *ast.Integer, *ast.Boolean:
		// literals carry no symbol
	case *ast.VariableAccess:
		p.read(node, p.symbolOf(node), node.Name)
	case *ast.Increment:
		p.read(node, p.symbolOf(node), node.Name)
		p.write(p.symbolOf(node))
	case *ast.Decrement:
		p.read(node, p.symbolOf(node), node.Name)
		p.write(p.symbolOf(node))
	case *ast.FloorAccess:
		p.visitExpression(node.Index)
	case *ast.Negative:
		p.visitExpression(node.Operand)
	case *ast.Not:
		p.visitExpression(node.Operand)
	case *ast.Binary:
		p.visitExpression(node.Left)
		p.visitExpression(node.Right)
	case *ast.Invocation:
		if node.Argument != nil {
			p.visitExpression(node.Argument)
		}
	default:
		panic(fmt.Sprintf("semalyzer: unhandled expression type %T", node))
	}
}
