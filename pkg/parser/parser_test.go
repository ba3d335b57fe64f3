package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/its-hmny/hrlc/pkg/ast"
	"github.com/its-hmny/hrlc/pkg/lexer"
	"github.com/its-hmny/hrlc/pkg/parser"
)

func parse(t *testing.T, src string) *ast.CompilationUnit {
	t.Helper()
	tokens, err := lexer.New().Tokenize([]byte(src))
	require.NoError(t, err)
	unit, err := parser.New(tokens).Parse()
	require.NoError(t, err)
	return unit
}

func TestParseTopLevelDecls(t *testing.T) {
	unit := parse(t, `
		init floor_max = 10;
		init floor[0] = 1;
		let total = 0;
		sub main() {}
	`)

	require.Equal(t, 10, *unit.FloorMax)
	require.Len(t, unit.FloorInits, 1)
	require.Len(t, unit.VarDecls, 1)
	require.Equal(t, "total", unit.VarDecls[0].Name)
	require.Len(t, unit.Subroutines, 1)
	require.IsType(t, &ast.Subprocedure{}, unit.Subroutines[0])
}

func TestParseExpressionPrecedence(t *testing.T) {
	unit := parse(t, `
		sub main() {
			let x = 1 + 2 * 3;
		}
	`)

	sub := unit.Subroutines[0].(*ast.Subprocedure)
	vd := sub.Body[0].(*ast.VariableDeclaration)
	bin := vd.Assignment.(*ast.Binary)

	require.Equal(t, ast.ADD, bin.Op)
	require.IsType(t, &ast.Integer{}, bin.Left)
	mul := bin.Right.(*ast.Binary)
	require.Equal(t, ast.MUL, mul.Op)
}

func TestParseForLoopWithBareInit(t *testing.T) {
	unit := parse(t, `
		sub main() {
			let i = 0;
			for (i = 0; i < 10; i++) {
				outbox(i);
			}
		}
	`)

	sub := unit.Subroutines[0].(*ast.Subprocedure)
	forStmt := sub.Body[1].(*ast.ForStatement)
	require.IsType(t, &ast.VariableAssignment{}, forStmt.Init)
	require.NotNil(t, forStmt.Cond)
	require.IsType(t, &ast.Increment{}, forStmt.Update)
	require.Len(t, forStmt.Body, 1)
}

func TestParseIfElseIfChain(t *testing.T) {
	unit := parse(t, `
		sub main() {
			if (true) {
				outbox(1);
			} else if (false) {
				outbox(2);
			} else {
				outbox(3);
			}
		}
	`)

	sub := unit.Subroutines[0].(*ast.Subprocedure)
	ifStmt := sub.Body[0].(*ast.IfStatement)
	require.Len(t, ifStmt.Else, 1)
	require.IsType(t, &ast.IfStatement{}, ifStmt.Else[0])
}

func TestParseFunctionReturningValue(t *testing.T) {
	unit := parse(t, `
		function double(n) {
			return n * 2;
		}
	`)

	fn := unit.Subroutines[0].(*ast.Function)
	require.Equal(t, "double", fn.Name)
	require.NotNil(t, fn.Param)
	require.Equal(t, "n", *fn.Param)
	ret := fn.Body[0].(*ast.ReturnStatement)
	require.NotNil(t, ret.Expr)
}
