package semalyzer

import (
	"fmt"
	"io"
	"sort"

	"github.com/its-hmny/hrlc/pkg/token"
)

// Severity classifies a Diagnostic. Only Error severity affects a pass's
// returned status; Warning and Note never do.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	default:
		return "unknown"
	}
}

// Error identifiers, stable contract (spec.md §6).
const (
	E_SEMA_SYM_REDEF                       = 3001
	E_SEMA_SYM_UNDEFINED                    = 3002
	E_SEMA_INT_OVERFLOW                     = 3003
	E_SEMA_DIV_MOD_0                        = 3004
	E_SEMA_SUBROUTINE_SIGNATURE_MISMATCH    = 3005
	W_SEMA_VAR_SHADOW_OUTER                 = 3006
	E_SEMA_VAR_USE_BEFORE_INIT              = 3007
	W_SEMA_DEAD_CODE                        = 3008
	E_SEMA_INVALID_LOOP_CONTROL_CONTEXT     = 3009
	E_SEMA_INVALID_RETURN_CONTEXT           = 3010
	E_SEMA_NOT_ALL_PATH_RETURN_VALUE        = 3011
	E_SEMA_EXPECT_RETURN_VALUE_BUT_NO       = 3012
	E_SEMA_EXPECT_RETURN_NO_VAL_BUT_GIVEN   = 3013
	W_SEMA_VAR_DEFINED_BUT_UNUSED           = 3014
)

// Location pinpoints a diagnostic in a source file.
type Location struct {
	File   string
	Line   int
	Col    int
	Width  int
}

func locationOf(file string, pos token.Position) Location {
	return Location{File: file, Line: pos.Line, Col: pos.Column, Width: pos.Width}
}

// Diagnostic is one reported message, possibly chained to earlier ones
// that share the same ErrorID (report_continued notes).
type Diagnostic struct {
	ErrorID    int
	Severity   Severity
	Location   Location
	Message    string
	Suggestion string
	order      int // global append order, used to merge the three sequences deterministically
}

// ErrorManager aggregates diagnostics across the whole pipeline run. It is
// owned by the Pass Manager and shared by every pass (spec.md §4.1): every
// pass may append to it, but it never fails its own operations.
type ErrorManager struct {
	errors   []Diagnostic
	warnings []Diagnostic
	notes    []Diagnostic

	order      int
	lastID     int
	suppressed map[int]bool
}

// NewErrorManager returns a ready-to-use, empty ErrorManager.
func NewErrorManager() *ErrorManager {
	return &ErrorManager{suppressed: make(map[int]bool)}
}

// Suppress registers error ids whose diagnostics should be dropped by
// Report (the CLI's --suppress flag wires into this).
func (em *ErrorManager) Suppress(ids ...int) {
	for _, id := range ids {
		em.suppressed[id] = true
	}
}

// Report appends a new diagnostic and advances the global order counter.
func (em *ErrorManager) Report(id int, sev Severity, loc Location, message string, suggestion string) {
	if em.suppressed[id] {
		em.lastID = id
		return
	}

	em.order++
	d := Diagnostic{ErrorID: id, Severity: sev, Location: loc, Message: message, Suggestion: suggestion, order: em.order}
	switch sev {
	case SeverityError:
		em.errors = append(em.errors, d)
	case SeverityWarning:
		em.warnings = append(em.warnings, d)
	default:
		em.notes = append(em.notes, d)
	}
	em.lastID = id
}

// ReportContinued appends a chained note sharing the id of the last Report
// call, representing e.g. "original defined here".
func (em *ErrorManager) ReportContinued(sev Severity, loc Location, message string) {
	em.Report(em.lastID, sev, loc, message, "")
}

// HasErrors reports whether any Error-severity diagnostic was recorded.
func (em *ErrorManager) HasErrors() bool { return len(em.errors) > 0 }

// Clear drops all recorded diagnostics and resets the order counter, but
// preserves suppression registrations (they are a CLI-level setting, not
// per-run state).
func (em *ErrorManager) Clear() {
	em.errors, em.warnings, em.notes = nil, nil, nil
	em.order, em.lastID = 0, 0
}

// All returns every recorded diagnostic in deterministic append order
// across the three sequences (spec.md's "Diagnostic ordering is global").
func (em *ErrorManager) All() []Diagnostic {
	merged := make([]Diagnostic, 0, len(em.errors)+len(em.warnings)+len(em.notes))
	merged = append(merged, em.errors...)
	merged = append(merged, em.warnings...)
	merged = append(merged, em.notes...)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].order < merged[j].order })
	return merged
}

// PrintAll renders every diagnostic to w in append order. Like the
// teacher's own CLI, this uses fmt.Fprintf directly rather than a
// structured logging library (see DESIGN.md).
func (em *ErrorManager) PrintAll(w io.Writer) {
	for _, d := range em.All() {
		fmt.Fprintf(w, "%s: [E%d] %s:%d:%d: %s\n", d.Severity, d.ErrorID, d.Location.File, d.Location.Line, d.Location.Col, d.Message)
		if d.Suggestion != "" {
			fmt.Fprintf(w, "    suggestion: %s\n", d.Suggestion)
		}
	}
}
