// Package semalyzer implements the semantic analysis pipeline: the error
// manager, scope manager, symbol table, pass manager, and the eight pass
// types of the default pipeline. It is grounded on original_source's
// compiler/semanalyzer tree, file for file.
package semalyzer

import "github.com/its-hmny/hrlc/pkg/ast"

// Pass is implemented by every pass in the pipeline. Run returns 0 on
// success or the id of the first fatal diagnostic it emitted.
type Pass interface {
	Run() int
}

// withSymbolTable is the "with symbol table" capability spec.md §4.2
// refers to: passes that need the shared table implement it, and
// PassManager.AddPass wires the table in automatically.
type withSymbolTable interface {
	SetSymbolTable(*SymbolTable)
}

type passEntry struct {
	Name string
	Pass Pass
}

// PassManager owns the AST root, an optional shared symbol table, and the
// ordered pipeline of passes (spec.md §4.2).
type PassManager struct {
	root     *ast.CompilationUnit
	filename string
	errors   *ErrorManager
	table    *SymbolTable
	passes   []passEntry
}

// NewPassManager returns an empty pipeline over root, reporting through em.
func NewPassManager(root *ast.CompilationUnit, filename string, em *ErrorManager) *PassManager {
	return &PassManager{root: root, filename: filename, errors: em}
}

// SetSymbolTable installs the table every subsequently-added
// with-symbol-table pass will receive.
func (pm *PassManager) SetSymbolTable(table *SymbolTable) { pm.table = table }

// SymbolTable returns the table shared across passes, or nil if none was set.
func (pm *PassManager) SymbolTable() *SymbolTable { return pm.table }

// AddPass appends pass to the pipeline under name, wiring in the shared
// symbol table if the pass opts into that capability.
func (pm *PassManager) AddPass(name string, pass Pass) {
	if pm.table != nil {
		if wants, ok := pass.(withSymbolTable); ok {
			wants.SetSymbolTable(pm.table)
		}
	}
	pm.passes = append(pm.passes, passEntry{Name: name, Pass: pass})
}

// Run executes every pass in insertion order. In fail-fast mode it returns
// as soon as a pass reports a non-zero status; otherwise it runs every
// pass and returns the first non-zero status seen (spec.md §4.2's "worst
// status" — since every fatal status is a 3xxx error id, "first" and
// "worst" coincide here, there is no severity ranking between error ids).
func (pm *PassManager) Run(failFast bool) int {
	worst := 0
	for _, entry := range pm.passes {
		status := entry.Pass.Run()
		if status != 0 {
			if worst == 0 {
				worst = status
			}
			if failFast {
				return worst
			}
		}
	}
	return worst
}

// BuildDefaultPipeline wires up the default pipeline from spec.md §4.2:
// with optimize=true, the five-pass "optimistic" phase runs, followed by
// the clear/strip administrative pair, followed by the three-pass "final"
// phase; with optimize=false only the final phase runs.
func BuildDefaultPipeline(root *ast.CompilationUnit, filename string, em *ErrorManager, optimize bool) *PassManager {
	pm := NewPassManager(root, filename, em)
	pm.SetSymbolTable(NewSymbolTable())

	if optimize {
		pm.AddPass("symbol-analysis#1", NewSymbolAnalysisPass(root, filename, em))
		pm.AddPass("use-before-init#1", NewUseBeforeInitPass(root, filename, em))
		pm.AddPass("constant-folding", NewConstantFoldingPass(root, filename, em))
		pm.AddPass("dead-code-elimination", NewDeadCodeEliminationPass(root, filename, em))
		pm.AddPass("unused-symbol-elimination", NewUnusedSymbolPass(root, filename, em))
		pm.AddPass("clear-symbol-table", NewClearSymbolTablePass())
		pm.AddPass("strip-attributes", NewStripAttributePass(root, ast.AttrSymbol, ast.AttrScopeInfo))
	}

	pm.AddPass("symbol-analysis#2", NewSymbolAnalysisPass(root, filename, em))
	pm.AddPass("use-before-init#2", NewUseBeforeInitPass(root, filename, em))
	pm.AddPass("control-flow-verification", NewControlFlowVerificationPass(root, filename, em))

	return pm
}
