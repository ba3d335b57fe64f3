package semalyzer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/its-hmny/hrlc/pkg/lexer"
	"github.com/its-hmny/hrlc/pkg/parser"
	"github.com/its-hmny/hrlc/pkg/semalyzer"
)

// analyze lexes, parses and runs the default pipeline over src, returning
// every diagnostic the run produced.
func analyze(t *testing.T, src string, optimize bool) []semalyzer.Diagnostic {
	t.Helper()

	tokens, err := lexer.New().Tokenize([]byte(src))
	require.NoError(t, err)

	root, err := parser.New(tokens).Parse()
	require.NoError(t, err)

	em := semalyzer.NewErrorManager()
	pipeline := semalyzer.BuildDefaultPipeline(root, "test.hrl", em, optimize)
	pipeline.Run(false)

	return em.All()
}

func hasErrorID(diags []semalyzer.Diagnostic, id int) bool {
	for _, d := range diags {
		if d.ErrorID == id && d.Severity == semalyzer.SeverityError {
			return true
		}
	}
	return false
}

func hasWarningID(diags []semalyzer.Diagnostic, id int) bool {
	for _, d := range diags {
		if d.ErrorID == id && d.Severity == semalyzer.SeverityWarning {
			return true
		}
	}
	return false
}

func TestSymbolRedefinition(t *testing.T) {
	src := `
		sub main() {
			let x = 1;
			let x = 2;
		}
	`
	diags := analyze(t, src, true)
	require.True(t, hasErrorID(diags, semalyzer.E_SEMA_SYM_REDEF))
}

func TestConstantFoldingOverflow(t *testing.T) {
	src := `
		sub main() {
			let x = 900 + 900;
		}
	`
	diags := analyze(t, src, true)
	require.True(t, hasErrorID(diags, semalyzer.E_SEMA_INT_OVERFLOW))
}

func TestDivisionByConstantZero(t *testing.T) {
	src := `
		sub main() {
			let x = 10 / 0;
		}
	`
	diags := analyze(t, src, true)
	require.True(t, hasErrorID(diags, semalyzer.E_SEMA_DIV_MOD_0))
}

func TestDeadCodeAfterReturn(t *testing.T) {
	src := `
		function main() {
			return 1;
			let x = 2;
		}
	`
	diags := analyze(t, src, true)
	require.True(t, hasWarningID(diags, semalyzer.W_SEMA_DEAD_CODE))
}

func TestUseBeforeInitThroughIfMerge(t *testing.T) {
	src := `
		sub main() {
			let x;
			if (true) {
				x = 1;
			}
			outbox(x);
		}
	`
	diags := analyze(t, src, false)
	require.True(t, hasErrorID(diags, semalyzer.E_SEMA_VAR_USE_BEFORE_INIT))
}

func TestUseAfterInitOnBothBranchesIsFine(t *testing.T) {
	src := `
		sub main() {
			let x;
			if (true) {
				x = 1;
			} else {
				x = 2;
			}
			outbox(x);
		}
	`
	diags := analyze(t, src, false)
	require.False(t, hasErrorID(diags, semalyzer.E_SEMA_VAR_USE_BEFORE_INIT))
}

func TestNotAllPathsReturnValue(t *testing.T) {
	src := `
		function pick() {
			if (true) {
				return 1;
			}
		}
	`
	diags := analyze(t, src, false)
	require.True(t, hasErrorID(diags, semalyzer.E_SEMA_NOT_ALL_PATH_RETURN_VALUE))
}

func TestBreakOutsideLoopIsInvalid(t *testing.T) {
	src := `
		sub main() {
			break;
		}
	`
	diags := analyze(t, src, false)
	require.True(t, hasErrorID(diags, semalyzer.E_SEMA_INVALID_LOOP_CONTROL_CONTEXT))
}

func TestUndefinedIdentifier(t *testing.T) {
	src := `
		sub main() {
			outbox(y);
		}
	`
	diags := analyze(t, src, false)
	require.True(t, hasErrorID(diags, semalyzer.E_SEMA_SYM_UNDEFINED))
}

func TestShadowOuterVariableWarns(t *testing.T) {
	src := `
		let x = 1;
		sub main() {
			let x = 2;
			outbox(x);
		}
	`
	diags := analyze(t, src, false)
	require.True(t, hasWarningID(diags, semalyzer.W_SEMA_VAR_SHADOW_OUTER))
}

func TestUnusedLocalVariableWarns(t *testing.T) {
	src := `
		sub main() {
			let unused = 1;
		}
	`
	diags := analyze(t, src, true)
	require.True(t, hasWarningID(diags, semalyzer.W_SEMA_VAR_DEFINED_BUT_UNUSED))
}

func TestSubroutineSignatureMismatch(t *testing.T) {
	src := `
		sub greet(name) {
			outbox(name);
		}
		sub main() {
			greet();
		}
	`
	diags := analyze(t, src, false)
	require.True(t, hasErrorID(diags, semalyzer.E_SEMA_SUBROUTINE_SIGNATURE_MISMATCH))
}

func TestDivisionByConstantZeroWithNonFoldingDividend(t *testing.T) {
	src := `
		sub main() {
			let y = inbox();
			let x = y / 0;
			outbox(x);
		}
	`
	diags := analyze(t, src, true)
	require.True(t, hasErrorID(diags, semalyzer.E_SEMA_DIV_MOD_0))
}

func TestDeadCodeInDiscardedIfElseBranch(t *testing.T) {
	src := `
		sub main() {
			if (true) {
				outbox(1);
			} else {
				outbox(2);
			}
		}
	`
	diags := analyze(t, src, true)
	require.True(t, hasWarningID(diags, semalyzer.W_SEMA_DEAD_CODE))
}

func TestDeadCodeInWhileFalseBody(t *testing.T) {
	src := `
		sub main() {
			while (false) {
				outbox(1);
			}
		}
	`
	diags := analyze(t, src, true)
	require.True(t, hasWarningID(diags, semalyzer.W_SEMA_DEAD_CODE))
}

func TestDeadCodeAfterInfiniteLoop(t *testing.T) {
	src := `
		sub main() {
			while (true) {
				outbox(1);
			}
			outbox(2);
		}
	`
	diags := analyze(t, src, true)
	require.True(t, hasWarningID(diags, semalyzer.W_SEMA_DEAD_CODE))
}

func TestAllPathsReturnIgnoresDeadTrailingCodeUnderNoOptimize(t *testing.T) {
	src := `
		function pick() {
			if (true) {
				return 1;
			} else {
				return 2;
			}
			let unreachable = 3;
		}
	`
	diags := analyze(t, src, false)
	require.False(t, hasErrorID(diags, semalyzer.E_SEMA_NOT_ALL_PATH_RETURN_VALUE))
}

func TestWellFormedProgramHasNoErrors(t *testing.T) {
	src := `
		init floor[0] = 1;
		let total = 0;

		function sum(n) {
			let acc = 0;
			let i = 0;
			while (i < n) {
				acc = acc + i;
				i++;
			}
			return acc;
		}

		sub main() {
			let x = inbox();
			total = sum(x);
			outbox(total);
		}
	`
	diags := analyze(t, src, true)
	for _, d := range diags {
		require.NotEqual(t, semalyzer.SeverityError, d.Severity, "unexpected error diagnostic: %+v", d)
	}
}
