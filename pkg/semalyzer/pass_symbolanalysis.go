package semalyzer

import (
	"fmt"

	"github.com/its-hmny/hrlc/pkg/ast"
	"github.com/its-hmny/hrlc/pkg/token"
)

// pendingInvocation remembers where in the scope tree an Invocation was
// encountered, so the second drain pass can still resolve it correctly
// even though the ScopeManager has long since unwound past that point —
// this is what lets a call reference a subroutine declared later in the
// file (spec.md §4.3).
type pendingInvocation struct {
	node    *ast.Invocation
	scopeID string
}

// SymbolAnalysisPass binds identifiers to symbols, builds the symbol
// table, and attaches Symbol/ScopeInfo attributes. Grounded on
// original_source/compiler/semanalyzer/src/SymbolAnalysisPass.{cpp,Utils.cpp,Visits.cpp}.
type SymbolAnalysisPass struct {
	root     *ast.CompilationUnit
	filename string
	errors   *ErrorManager
	table    *SymbolTable
	scopes   *ScopeManager
	status   int
	pending  []pendingInvocation
}

func NewSymbolAnalysisPass(root *ast.CompilationUnit, filename string, em *ErrorManager) *SymbolAnalysisPass {
	return &SymbolAnalysisPass{root: root, filename: filename, errors: em}
}

func (p *SymbolAnalysisPass) SetSymbolTable(table *SymbolTable) { p.table = table }

func (p *SymbolAnalysisPass) fail(id int) {
	if p.status == 0 {
		p.status = id
	}
}

func (p *SymbolAnalysisPass) loc(n ast.Positioned) Location { return locationOf(p.filename, n.Position()) }

// ScopeInfo is the attribute value stored under ast.AttrScopeInfo.
type ScopeInfo struct {
	ScopeID string
}

func (p *SymbolAnalysisPass) attachScope(n ast.HasAttributes, scopeID string) {
	n.AttributesBag().Set(ast.AttrScopeInfo, &ScopeInfo{ScopeID: scopeID})
}

func (p *SymbolAnalysisPass) attachSymbol(n ast.HasAttributes, sym *Symbol) {
	n.AttributesBag().Set(ast.AttrSymbol, sym)
}

// Run walks the whole tree once, then drains the pending invocation queue
// for signature checking.
func (p *SymbolAnalysisPass) Run() int {
	if p.table == nil {
		p.table = NewSymbolTable()
	}
	p.scopes = NewScopeManager()
	p.status = 0
	p.pending = nil

	p.visitCompilationUnit(p.root)
	p.drainPending()
	return p.status
}

func (p *SymbolAnalysisPass) visitCompilationUnit(cu *ast.CompilationUnit) {
	scopeID := p.scopes.CurrentID()
	p.attachScope(cu, scopeID)

	for _, fb := range cu.FloorInits {
		p.attachScope(fb, scopeID)
		p.visitExpression(fb.Assignment.Index)
		p.visitExpression(fb.Assignment.Value)
		p.attachScope(fb.Assignment, scopeID)
	}
	for _, vd := range cu.VarDecls {
		p.visitVariableDeclaration(vd)
	}
	for _, sub := range cu.Subroutines {
		p.visitStatement(sub)
	}
}

// visitStatement dispatches on the concrete statement type, mirroring the
// teacher's type-switch dispatch style (pkg/vm/codegen.go).
func (p *SymbolAnalysisPass) visitStatement(stmt ast.Statement) {
	scopeID := p.scopes.CurrentID()

	switch node := stmt.(type) {
	case nil:
		return

	case *ast.VariableDeclaration:
		p.visitVariableDeclaration(node)

	case *ast.VariableAssignment:
		p.attachScope(node, scopeID)
		p.visitExpression(node.Value)
		p.resolveVariableUse(node, node.Name)

	case *ast.FloorAssignment:
		p.attachScope(node, scopeID)
		p.visitExpression(node.Index)
		p.visitExpression(node.Value)

	case *ast.Increment:
		p.attachScope(node, scopeID)
		p.resolveVariableUse(node, node.Name)

	case *ast.Decrement:
		p.attachScope(node, scopeID)
		p.resolveVariableUse(node, node.Name)

	case *ast.Invocation:
		p.attachScope(node, scopeID)
		p.pending = append(p.pending, pendingInvocation{node: node, scopeID: scopeID})
		if node.Argument != nil {
			p.visitExpression(node.Argument)
		}

	case *ast.StatementBlock:
		p.attachScope(node, scopeID)
		for _, s := range node.Stmts {
			p.visitStatement(s)
		}

	case *ast.EmptyStatement:
		p.attachScope(node, scopeID)

	case *ast.IfStatement:
		p.attachScope(node, scopeID)
		p.visitExpression(node.Cond)

		p.scopes.EnterAnonymous()
		for _, s := range node.Then {
			p.visitStatement(s)
		}
		p.scopes.Exit()

		if node.Else != nil {
			p.scopes.EnterAnonymous()
			for _, s := range node.Else {
				p.visitStatement(s)
			}
			p.scopes.Exit()
		}

	case *ast.WhileStatement:
		p.attachScope(node, scopeID)
		p.visitExpression(node.Cond)
		p.scopes.EnterAnonymous()
		for _, s := range node.Body {
			p.visitStatement(s)
		}
		p.scopes.Exit()

	case *ast.ForStatement:
		p.attachScope(node, scopeID)
		p.scopes.EnterAnonymous() // init, cond, update and body all share one scope
		if node.Init != nil {
			p.visitStatement(node.Init)
		}
		if node.Cond != nil {
			p.visitExpression(node.Cond)
		}
		if node.Update != nil {
			p.visitStatement(node.Update)
		}
		for _, s := range node.Body {
			p.visitStatement(s)
		}
		p.scopes.Exit()

	case *ast.ReturnStatement:
		p.attachScope(node, scopeID)
		if node.Expr != nil {
			p.visitExpression(node.Expr)
		}

	case *ast.BreakStatement:
		p.attachScope(node, scopeID)

	case *ast.ContinueStatement:
		p.attachScope(node, scopeID)

	case *ast.Subprocedure:
		p.visitSubroutine(node.Name, node.Param, node.Body, node, false, false)

	case *ast.Function:
		p.visitSubroutine(node.Name, node.Param, node.Body, node, true, true)

	default:
		panic(fmt.Sprintf("semalyzer: unhandled statement type %T", node))
	}
}

func (p *SymbolAnalysisPass) visitSubroutine(name string, param *string, body []ast.Statement, node ast.HasAttributes, hasParam, hasReturn bool) {
	outerScope := p.scopes.CurrentID()
	p.attachScope(node, outerScope)

	sym := &Symbol{Kind: SymbolSubroutine, Name: name, Filename: p.filename, DefinitionSite: node.(ast.Positioned), HasParam: param != nil, HasReturn: hasReturn}
	if !p.table.AddSymbol(outerScope, sym) {
		p.reportRedefinition(node.(ast.Positioned), outerScope, name)
	}

	scopeID := p.scopes.EnterNamed(name)
	if param != nil {
		paramSym := &Symbol{Kind: SymbolVariable, Name: *param, Filename: p.filename, DefinitionSite: node.(ast.Positioned)}
		p.table.AddSymbol(scopeID, paramSym)
	}
	for _, s := range body {
		p.visitStatement(s)
	}
	p.scopes.Exit()
}

func (p *SymbolAnalysisPass) visitVariableDeclaration(vd *ast.VariableDeclaration) {
	scopeID := p.scopes.CurrentID()
	p.attachScope(vd, scopeID)

	sym := &Symbol{Kind: SymbolVariable, Name: vd.Name, Filename: p.filename, DefinitionSite: vd}
	if !p.table.AddSymbol(scopeID, sym) {
		p.reportRedefinition(vd, scopeID, vd.Name)
	} else {
		p.attachSymbol(vd, sym)
		if outer, outerScope, found := p.table.LookupSymbol(p.scopes, p.parentScope(scopeID), vd.Name, true); found && outer.Kind == SymbolVariable {
			p.errors.Report(W_SEMA_VAR_SHADOW_OUTER, SeverityWarning, p.loc(vd),
				fmt.Sprintf("variable %q shadows a variable of the same name declared in an outer scope", vd.Name), "")
			p.errors.ReportContinued(SeverityNote, locationOf(outer.Filename, positionOf(outer)), fmt.Sprintf("originally declared in scope %q", outerScope))
		}
	}

	if vd.Assignment != nil {
		p.visitExpression(vd.Assignment)
	}
}

// parentScope returns the immediate ancestor of id, or id itself if id is
// already the library super-root (shadow checking only ever walks strictly
// outer scopes).
func (p *SymbolAnalysisPass) parentScope(id string) string {
	ancestors := p.scopes.AncestorIDs(id)
	if len(ancestors) < 2 {
		return id
	}
	return ancestors[1]
}

func (p *SymbolAnalysisPass) reportRedefinition(n ast.Positioned, scopeID, name string) {
	p.errors.Report(E_SEMA_SYM_REDEF, SeverityError, p.loc(n), fmt.Sprintf("redefinition of %q in the same scope", name), "")
	if original, _, found := p.table.LookupSymbol(p.scopes, scopeID, name, false); found {
		p.errors.ReportContinued(SeverityNote, locationOf(original.Filename, positionOf(original)), "original defined here")
	}
	p.fail(E_SEMA_SYM_REDEF)
}

func positionOf(sym *Symbol) token.Position {
	if sym.DefinitionSite == nil {
		return token.UnknownPosition
	}
	return sym.DefinitionSite.Position()
}

// resolveVariableUse looks up name (with ancestors) for a variable use
// (access, assignment, increment, decrement) and attaches its Symbol, or
// reports E_SEMA_SYM_UNDEFINED and leaves the Symbol attribute unset.
func (p *SymbolAnalysisPass) resolveVariableUse(n ast.HasAttributes, name string) {
	scopeID := p.scopes.CurrentID()
	sym, _, found := p.table.LookupSymbol(p.scopes, scopeID, name, true)
	if !found {
		p.errors.Report(E_SEMA_SYM_UNDEFINED, SeverityError, p.loc(n.(ast.Positioned)), fmt.Sprintf("use of undefined identifier %q", name), "")
		p.fail(E_SEMA_SYM_UNDEFINED)
		return
	}
	p.attachSymbol(n, sym)
}

func (p *SymbolAnalysisPass) visitExpression(expr ast.Expression) {
	scopeID := p.scopes.CurrentID()

	switch node := expr.(type) {
	case nil:
		return
	case *ast.Integer:
		p.attachScope(node, scopeID)
	case *ast.Boolean:
		p.attachScope(node, scopeID)
	case *ast.VariableAccess:
		p.attachScope(node, scopeID)
		p.resolveVariableUse(node, node.Name)
	case *ast.Increment:
		p.attachScope(node, scopeID)
		p.resolveVariableUse(node, node.Name)
	case *ast.Decrement:
		p.attachScope(node, scopeID)
		p.resolveVariableUse(node, node.Name)
	case *ast.FloorAccess:
		p.attachScope(node, scopeID)
		p.visitExpression(node.Index)
	case *ast.Negative:
		p.attachScope(node, scopeID)
		p.visitExpression(node.Operand)
	case *ast.Not:
		p.attachScope(node, scopeID)
		p.visitExpression(node.Operand)
	case *ast.Binary:
		p.attachScope(node, scopeID)
		p.visitExpression(node.Left)
		p.visitExpression(node.Right)
	case *ast.Invocation:
		p.attachScope(node, scopeID)
		p.pending = append(p.pending, pendingInvocation{node: node, scopeID: scopeID})
		if node.Argument != nil {
			p.visitExpression(node.Argument)
		}
	default:
		panic(fmt.Sprintf("semalyzer: unhandled expression type %T", node))
	}
}

// drainPending resolves every enqueued invocation against the symbol
// table and checks the parameter-count signature, now that the whole tree
// (and therefore every subroutine declaration, including forward
// references) has been walked.
func (p *SymbolAnalysisPass) drainPending() {
	for _, inv := range p.pending {
		sym, _, found := p.table.LookupSymbol(p.scopes, inv.scopeID, inv.node.FuncName, true)
		if !found {
			p.errors.Report(E_SEMA_SYM_UNDEFINED, SeverityError, p.loc(inv.node), fmt.Sprintf("call to undefined subroutine %q", inv.node.FuncName), "")
			p.fail(E_SEMA_SYM_UNDEFINED)
			continue
		}
		p.attachSymbol(inv.node, sym)

		nodeHasParam := inv.node.Argument != nil
		if sym.HasParam != nodeHasParam {
			p.errors.Report(E_SEMA_SUBROUTINE_SIGNATURE_MISMATCH, SeverityError, p.loc(inv.node),
				fmt.Sprintf("call to %q does not match its declared signature", inv.node.FuncName), "")
			p.errors.ReportContinued(SeverityNote, locationOf(sym.Filename, positionOf(sym)), "originally defined as")
			p.fail(E_SEMA_SUBROUTINE_SIGNATURE_MISMATCH)
		}
	}
}
