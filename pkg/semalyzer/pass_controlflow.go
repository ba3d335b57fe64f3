package semalyzer

import (
	"fmt"

	"github.com/its-hmny/hrlc/pkg/ast"
)

// ControlContext is the attribute value stored under ast.AttrControlContext
// on every break/continue/return node: which construct it targets.
type ControlContext struct {
	InLoop              bool
	SubroutineName      string
	SubroutineHasReturn bool
}

// ControlFlowVerificationPass checks that break/continue only appear
// inside a loop, that return statements match their enclosing
// subroutine's shape (a Function must return a value, a Subprocedure must
// not), and that every path through a Function's body returns. Grounded
// on original_source/compiler/semanalyzer/src/ControlFlowVerificationPass.cpp.
type ControlFlowVerificationPass struct {
	root     *ast.CompilationUnit
	filename string
	errors   *ErrorManager
	status   int

	loopDepth   int
	subName     string
	subHasRet   bool
	inSubroutine bool
}

func NewControlFlowVerificationPass(root *ast.CompilationUnit, filename string, em *ErrorManager) *ControlFlowVerificationPass {
	return &ControlFlowVerificationPass{root: root, filename: filename, errors: em}
}

func (p *ControlFlowVerificationPass) fail(id int) {
	if p.status == 0 {
		p.status = id
	}
}

func (p *ControlFlowVerificationPass) loc(n ast.Positioned) Location { return locationOf(p.filename, n.Position()) }

func (p *ControlFlowVerificationPass) Run() int {
	p.status = 0
	for _, stmt := range p.root.Subroutines {
		p.visitStatement(stmt)
	}
	return p.status
}

func (p *ControlFlowVerificationPass) visitBlock(stmts []ast.Statement) {
	for _, s := range stmts {
		p.visitStatement(s)
	}
}

func (p *ControlFlowVerificationPass) visitStatement(stmt ast.Statement) {
	switch node := stmt.(type) {
	case nil:
		return

	case *ast.StatementBlock:
		p.visitBlock(node.Stmts)

	case *ast.IfStatement:
		p.visitBlock(node.Then)
		p.visitBlock(node.Else)

	case *ast.WhileStatement:
		p.loopDepth++
		p.visitBlock(node.Body)
		p.loopDepth--

	case *ast.ForStatement:
		p.loopDepth++
		p.visitBlock(node.Body)
		p.loopDepth--

	case *ast.BreakStatement:
		p.checkLoopControl(node)
	case *ast.ContinueStatement:
		p.checkLoopControl(node)

	case *ast.ReturnStatement:
		p.checkReturn(node)

	case *ast.Subprocedure:
		p.visitSubroutine(node.Name, false, node.Body, node)
	case *ast.Function:
		p.visitSubroutine(node.Name, true, node.Body, node)

	case *ast.VariableDeclaration, *ast.VariableAssignment, *ast.FloorAssignment,
		*ast.Increment, *ast.Decrement, *ast.Invocation, *ast.EmptyStatement:
		// no control-flow concerns

	default:
		panic(fmt.Sprintf("semalyzer: unhandled statement type %T", node))
	}
}

func (p *ControlFlowVerificationPass) visitSubroutine(name string, hasReturn bool, body []ast.Statement, node ast.HasAttributes) {
	outerInSub, outerName, outerHasRet, outerDepth := p.inSubroutine, p.subName, p.subHasRet, p.loopDepth
	p.inSubroutine, p.subName, p.subHasRet, p.loopDepth = true, name, hasReturn, 0

	p.visitBlock(body)

	if hasReturn && !allPathsReturn(body) {
		p.errors.Report(E_SEMA_NOT_ALL_PATH_RETURN_VALUE, SeverityError, p.loc(node.(ast.Positioned)),
			fmt.Sprintf("function %q does not return a value on every path", name), "")
		p.fail(E_SEMA_NOT_ALL_PATH_RETURN_VALUE)
	}

	p.inSubroutine, p.subName, p.subHasRet, p.loopDepth = outerInSub, outerName, outerHasRet, outerDepth
}

func (p *ControlFlowVerificationPass) checkLoopControl(node ast.Statement) {
	pos, _ := node.(ast.Positioned)
	attrs, _ := node.(ast.HasAttributes)

	if p.loopDepth == 0 {
		p.errors.Report(E_SEMA_INVALID_LOOP_CONTROL_CONTEXT, SeverityError, p.loc(pos),
			"break/continue used outside of any loop", "")
		p.fail(E_SEMA_INVALID_LOOP_CONTROL_CONTEXT)
		return
	}
	if attrs != nil {
		attrs.AttributesBag().Set(ast.AttrControlContext, &ControlContext{InLoop: true})
	}
}

func (p *ControlFlowVerificationPass) checkReturn(node *ast.ReturnStatement) {
	if !p.inSubroutine {
		p.errors.Report(E_SEMA_INVALID_RETURN_CONTEXT, SeverityError, p.loc(node),
			"return used outside of any subroutine", "")
		p.fail(E_SEMA_INVALID_RETURN_CONTEXT)
		return
	}

	switch {
	case p.subHasRet && node.Expr == nil:
		p.errors.Report(E_SEMA_EXPECT_RETURN_VALUE_BUT_NO, SeverityError, p.loc(node),
			fmt.Sprintf("function %q must return a value", p.subName), "")
		p.fail(E_SEMA_EXPECT_RETURN_VALUE_BUT_NO)
	case !p.subHasRet && node.Expr != nil:
		p.errors.Report(E_SEMA_EXPECT_RETURN_NO_VAL_BUT_GIVEN, SeverityError, p.loc(node),
			fmt.Sprintf("subprocedure %q must not return a value", p.subName), "")
		p.fail(E_SEMA_EXPECT_RETURN_NO_VAL_BUT_GIVEN)
	}

	node.AttributesBag().Set(ast.AttrControlContext, &ControlContext{SubroutineName: p.subName, SubroutineHasReturn: p.subHasRet})
}

// allPathsReturn reports whether every path through stmts is guaranteed to
// hit a return. A sequence guarantees return iff ANY of its statements
// does — once one statement in the block unconditionally returns, the
// statements after it (reachable or not) can't undo that guarantee. Loops
// are never considered guaranteed to execute at all.
func allPathsReturn(stmts []ast.Statement) bool {
	for _, s := range stmts {
		if statementGuaranteesReturn(s) {
			return true
		}
	}
	return false
}

func statementGuaranteesReturn(stmt ast.Statement) bool {
	switch node := stmt.(type) {
	case *ast.ReturnStatement:
		return true
	case *ast.StatementBlock:
		return allPathsReturn(node.Stmts)
	case *ast.IfStatement:
		return len(node.Else) > 0 && allPathsReturn(node.Then) && allPathsReturn(node.Else)
	default:
		return false
	}
}
