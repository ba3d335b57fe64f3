package semalyzer

import (
	"fmt"

	"github.com/its-hmny/hrlc/pkg/ast"
)

// Integer range a floor box (and therefore any expression that can end up
// written into one) can hold, per spec.md §4.5.
const (
	minFoldedInt int32 = -999
	maxFoldedInt int32 = 999
)

// FoldedValue is the attribute value stored under ast.AttrConstantFoldingValue:
// the statically-known value of an expression, if any. Later passes (dead
// code elimination) read this back rather than re-evaluating the subtree.
// IsChar mirrors the literal's own is_char flag; two folded int operands
// only ever combine when their IsChar flags agree (spec.md §4.5).
type FoldedValue struct {
	IsBool bool
	Int    int32
	IsChar bool
	Bool   bool
}

// ConstantFoldingPass evaluates literal-only subexpressions bottom-up,
// replacing them with a single synthesized literal node, applies the
// handful of algebraic simplifications that need only one constant
// operand, and reports integer overflow and division/modulo-by-zero as
// fatal diagnostics. Grounded on
// original_source/compiler/semanalyzer/src/ConstantFoldingPass.cpp.
type ConstantFoldingPass struct {
	root     *ast.CompilationUnit
	filename string
	errors   *ErrorManager
	builder  *ast.Builder
	status   int
}

func NewConstantFoldingPass(root *ast.CompilationUnit, filename string, em *ErrorManager) *ConstantFoldingPass {
	return &ConstantFoldingPass{root: root, filename: filename, errors: em, builder: ast.NewBuilder()}
}

func (p *ConstantFoldingPass) fail(id int) {
	if p.status == 0 {
		p.status = id
	}
}

func (p *ConstantFoldingPass) loc(n ast.Positioned) Location { return locationOf(p.filename, n.Position()) }

func (p *ConstantFoldingPass) Run() int {
	p.status = 0

	for _, vd := range p.root.VarDecls {
		if vd.Assignment != nil {
			vd.Assignment = p.fold(vd.Assignment)
		}
	}
	for _, fb := range p.root.FloorInits {
		fb.Assignment.Index = p.fold(fb.Assignment.Index)
		fb.Assignment.Value = p.fold(fb.Assignment.Value)
	}
	for _, sub := range p.root.Subroutines {
		p.foldStatement(sub)
	}
	return p.status
}

func (p *ConstantFoldingPass) foldStatements(stmts []ast.Statement) {
	for _, s := range stmts {
		p.foldStatement(s)
	}
}

func (p *ConstantFoldingPass) foldStatement(stmt ast.Statement) {
	switch node := stmt.(type) {
	case nil:
		return

	case *ast.VariableDeclaration:
		if node.Assignment != nil {
			node.Assignment = p.fold(node.Assignment)
		}

	case *ast.VariableAssignment:
		node.Value = p.fold(node.Value)

	case *ast.FloorAssignment:
		node.Index = p.fold(node.Index)
		node.Value = p.fold(node.Value)

	case *ast.Invocation:
		if node.Argument != nil {
			node.Argument = p.fold(node.Argument)
		}

	case *ast.StatementBlock:
		p.foldStatements(node.Stmts)

	case *ast.IfStatement:
		node.Cond = p.fold(node.Cond)
		p.foldStatements(node.Then)
		p.foldStatements(node.Else)

	case *ast.WhileStatement:
		node.Cond = p.fold(node.Cond)
		p.foldStatements(node.Body)

	case *ast.ForStatement:
		if node.Init != nil {
			p.foldStatement(node.Init)
		}
		if node.Cond != nil {
			node.Cond = p.fold(node.Cond)
		}
		if node.Update != nil {
			p.foldStatement(node.Update)
		}
		p.foldStatements(node.Body)

	case *ast.ReturnStatement:
		if node.Expr != nil {
			node.Expr = p.fold(node.Expr)
		}

	case *ast.Subprocedure:
		p.foldStatements(node.Body)

	case *ast.Function:
		p.foldStatements(node.Body)

	case *ast.Increment, *ast.Decrement, *ast.EmptyStatement, *ast.BreakStatement, *ast.ContinueStatement:
		// no subexpressions to fold

	default:
		panic(fmt.Sprintf("semalyzer: unhandled statement type %T", node))
	}
}

// fold recursively folds expr's subexpressions in place (mutating the
// struct fields), and returns a replacement node when expr itself turns
// out to be a compile-time constant: either expr unchanged, or a freshly
// synthesized *ast.Integer / *ast.Boolean carrying the folded value.
func (p *ConstantFoldingPass) fold(expr ast.Expression) ast.Expression {
	switch node := expr.(type) {
	case nil:
		return nil

	case *ast.Integer:
		node.AttributesBag().Set(ast.AttrConstantFoldingValue, &FoldedValue{Int: node.Value, IsChar: node.IsChar})
		return node

	case *ast.Boolean:
		node.AttributesBag().Set(ast.AttrConstantFoldingValue, &FoldedValue{IsBool: true, Bool: node.Value})
		return node

	case *ast.VariableAccess:
		return node // no constant propagation across variables

	case *ast.Increment:
		return node
	case *ast.Decrement:
		return node

	case *ast.FloorAccess:
		node.Index = p.fold(node.Index)
		return node

	case *ast.Invocation:
		if node.Argument != nil {
			node.Argument = p.fold(node.Argument)
		}
		return node

	case *ast.Negative:
		node.Operand = p.fold(node.Operand)
		if val := p.constOf(node.Operand); val != nil && !val.IsBool {
			return p.synthInt(node, -val.Int, val.IsChar)
		}
		return node

	case *ast.Not:
		node.Operand = p.fold(node.Operand)
		if val := p.constOf(node.Operand); val != nil && val.IsBool {
			return p.synthBool(node, !val.Bool)
		}
		return node

	case *ast.Binary:
		node.Left = p.fold(node.Left)
		node.Right = p.fold(node.Right)
		return p.foldBinary(node)

	default:
		panic(fmt.Sprintf("semalyzer: unhandled expression type %T", node))
	}
}

func (p *ConstantFoldingPass) constOf(expr ast.Expression) *FoldedValue {
	return foldedConstOf(expr)
}

// foldedConstOf reads back the ast.AttrConstantFoldingValue attribute this
// pass attaches, shared with the Dead Code Elimination Pass so it can
// recognize `if`/`while` conditions that folded down to a literal.
func foldedConstOf(expr ast.Expression) *FoldedValue {
	n, ok := expr.(ast.HasAttributes)
	if !ok {
		return nil
	}
	v, ok := n.AttributesBag().Get(ast.AttrConstantFoldingValue)
	if !ok {
		return nil
	}
	fv, _ := v.(*FoldedValue)
	return fv
}

func (p *ConstantFoldingPass) synthInt(from ast.Positioned, value int32, isChar bool) ast.Expression {
	clamped := p.checkIntRange(from, value)
	n := &ast.Integer{Node: p.builder.Synthesize(from.(ast.HasAttributes), from.Position()), Value: clamped, IsChar: isChar}
	n.AttributesBag().Set(ast.AttrConstantFoldingValue, &FoldedValue{Int: clamped, IsChar: isChar})
	return n
}

func (p *ConstantFoldingPass) synthBool(from ast.Positioned, value bool) ast.Expression {
	n := &ast.Boolean{Node: p.builder.Synthesize(from.(ast.HasAttributes), from.Position()), Value: value}
	n.AttributesBag().Set(ast.AttrConstantFoldingValue, &FoldedValue{IsBool: true, Bool: value})
	return n
}

// synthNegative wraps operand (which does not itself fold to a constant —
// otherwise the caller would have folded directly) in a freshly synthesized
// Negative node, for the `0 - x` -> `-x` algebraic simplification.
func (p *ConstantFoldingPass) synthNegative(from ast.Positioned, operand ast.Expression) ast.Expression {
	return &ast.Negative{Node: p.builder.Synthesize(from.(ast.HasAttributes), from.Position()), Operand: operand}
}

// checkIntRange reports E_SEMA_INT_OVERFLOW when a folded value falls
// outside what a floor box can hold, but still returns a value (clamped to
// the nearer bound) so the rest of the pipeline keeps a well-formed tree to
// walk — the diagnostic is what actually fails the build.
func (p *ConstantFoldingPass) checkIntRange(at ast.Positioned, value int32) int32 {
	if value >= minFoldedInt && value <= maxFoldedInt {
		return value
	}
	p.errors.Report(E_SEMA_INT_OVERFLOW, SeverityError, p.loc(at),
		fmt.Sprintf("constant-folded value %d is outside the representable range [%d, %d]", value, minFoldedInt, maxFoldedInt), "")
	p.fail(E_SEMA_INT_OVERFLOW)
	if value < minFoldedInt {
		return minFoldedInt
	}
	return maxFoldedInt
}

// compatibleInts reports whether two folded operands are both integers
// (not booleans) carrying the same is_char flag — the gate spec.md §4.5
// requires before any binary operator actually combines two folded values.
func compatibleInts(left, right *FoldedValue) bool {
	return !left.IsBool && !right.IsBool && left.IsChar == right.IsChar
}

func (p *ConstantFoldingPass) reportDivModZero(node *ast.Binary) {
	reason := "division"
	if node.Op == ast.MOD {
		reason = "modulo"
	}
	p.errors.Report(E_SEMA_DIV_MOD_0, SeverityError, p.loc(node), fmt.Sprintf("%s by a constant zero", reason), "")
	p.fail(E_SEMA_DIV_MOD_0)
}

func (p *ConstantFoldingPass) foldBinary(node *ast.Binary) ast.Expression {
	left := p.constOf(node.Left)
	right := p.constOf(node.Right)

	// A constant-zero divisor is always an error, whether or not the
	// dividend itself folds down to a constant.
	if (node.Op == ast.DIV || node.Op == ast.MOD) && right != nil && !right.IsBool && right.Int == 0 {
		p.reportDivModZero(node)
		return node
	}

	if left != nil && right != nil {
		if folded := p.foldBothConstant(node, left, right); folded != nil {
			return folded
		}
		return node
	}

	if left != nil && right == nil {
		if simplified := p.simplifyLeftConstant(node, left); simplified != nil {
			return simplified
		}
	}
	if right != nil && left == nil {
		if simplified := p.simplifyRightConstant(node, right); simplified != nil {
			return simplified
		}
	}

	return node
}

// foldBothConstant applies node.Op to two folded operands, returning the
// freshly synthesized replacement literal, or nil when the operator isn't
// applicable to this pair (wrong kind, or mismatched is_char flags).
func (p *ConstantFoldingPass) foldBothConstant(node *ast.Binary, left, right *FoldedValue) ast.Expression {
	switch node.Op {
	case ast.ADD:
		if !compatibleInts(left, right) {
			return nil
		}
		return p.synthInt(node, left.Int+right.Int, left.IsChar)
	case ast.SUB:
		if !compatibleInts(left, right) {
			return nil
		}
		return p.synthInt(node, left.Int-right.Int, left.IsChar)
	case ast.MUL:
		if !compatibleInts(left, right) {
			return nil
		}
		return p.synthInt(node, left.Int*right.Int, left.IsChar)
	case ast.DIV:
		if !compatibleInts(left, right) {
			return nil
		}
		// right == 0 was already reported and returned by foldBinary above.
		return p.synthInt(node, left.Int/right.Int, left.IsChar)
	case ast.MOD:
		if !compatibleInts(left, right) {
			return nil
		}
		return p.synthInt(node, left.Int%right.Int, left.IsChar)

	case ast.AND:
		if !left.IsBool || !right.IsBool {
			return nil
		}
		return p.synthBool(node, left.Bool && right.Bool)
	case ast.OR:
		if !left.IsBool || !right.IsBool {
			return nil
		}
		return p.synthBool(node, left.Bool || right.Bool)

	case ast.EQ:
		return p.foldComparison(node, left, right, func(a, b int32) bool { return a == b }, func(a, b bool) bool { return a == b })
	case ast.NE:
		return p.foldComparison(node, left, right, func(a, b int32) bool { return a != b }, func(a, b bool) bool { return a != b })

	case ast.GT:
		if !compatibleInts(left, right) {
			return nil
		}
		return p.synthBool(node, left.Int > right.Int)
	case ast.GE:
		if !compatibleInts(left, right) {
			return nil
		}
		return p.synthBool(node, left.Int >= right.Int)
	case ast.LT:
		if !compatibleInts(left, right) {
			return nil
		}
		return p.synthBool(node, left.Int < right.Int)
	case ast.LE:
		if !compatibleInts(left, right) {
			return nil
		}
		return p.synthBool(node, left.Int <= right.Int)

	default:
		return nil
	}
}

// foldComparison handles EQ/NE, which fold either two booleans or two
// is_char-compatible integers; every other pairing is left unfolded.
func (p *ConstantFoldingPass) foldComparison(node *ast.Binary, left, right *FoldedValue, intCmp func(a, b int32) bool, boolCmp func(a, b bool) bool) ast.Expression {
	if left.IsBool != right.IsBool {
		return nil
	}
	if left.IsBool {
		return p.synthBool(node, boolCmp(left.Bool, right.Bool))
	}
	if left.IsChar != right.IsChar {
		return nil
	}
	return p.synthBool(node, intCmp(left.Int, right.Int))
}

// simplifyLeftConstant applies the algebraic identities that need only the
// left operand to be a folded (non-boolean) integer constant (spec.md §4.5).
func (p *ConstantFoldingPass) simplifyLeftConstant(node *ast.Binary, left *FoldedValue) ast.Expression {
	if left.IsBool {
		return nil
	}
	switch node.Op {
	case ast.ADD:
		if left.Int == 0 {
			return node.Right // 0 + x = x
		}
	case ast.SUB:
		if left.Int == 0 {
			return p.synthNegative(node, node.Right) // 0 - x = -x
		}
	case ast.MUL:
		switch left.Int {
		case 0:
			return p.synthInt(node, 0, false) // 0 * x = 0
		case 1:
			return node.Right // 1 * x = x
		}
	case ast.DIV:
		if left.Int == 0 {
			return p.synthInt(node, 0, false) // 0 / x = 0
		}
	case ast.MOD:
		if left.Int == 0 {
			return p.synthInt(node, 0, false) // 0 % x = 0
		}
	}
	return nil
}

// simplifyRightConstant applies the algebraic identities that need only
// the right operand to be a folded (non-boolean) integer constant.
func (p *ConstantFoldingPass) simplifyRightConstant(node *ast.Binary, right *FoldedValue) ast.Expression {
	if right.IsBool {
		return nil
	}
	switch node.Op {
	case ast.ADD:
		if right.Int == 0 {
			return node.Left // x + 0 = x
		}
	case ast.SUB:
		if right.Int == 0 {
			return node.Left // x - 0 = x
		}
	case ast.MUL:
		switch right.Int {
		case 0:
			return p.synthInt(node, 0, false) // x * 0 = 0
		case 1:
			return node.Left // x * 1 = x
		}
	case ast.DIV:
		if right.Int == 1 {
			return node.Left // x / 1 = x
		}
	case ast.MOD:
		if right.Int == 1 {
			return p.synthInt(node, 0, false) // x % 1 = 0
		}
	}
	return nil
}
