package semalyzer

import "github.com/its-hmny/hrlc/pkg/ast"

// SymbolKind distinguishes the two symbol classes the frontend binds.
type SymbolKind int

const (
	SymbolVariable SymbolKind = iota
	SymbolSubroutine
)

// stdlibFilename tags every built-in symbol, mirroring original_source's
// "@stdlib" sentinel.
const stdlibFilename = "@stdlib"

// librarySuperRoot is the scope id the built-in inbox/outbox bindings are
// attached to. See DESIGN.md's "Open Question resolution" entry: this
// matches original_source's SymbolTable::create_library_symbols, which
// attaches them at "" rather than at "glb".
const librarySuperRoot = ""

// Symbol is a bound name: a variable or a subroutine. DefinitionSite is a
// weak reference in the sense described by spec.md §9 — a plain Go pointer
// that is never dereferenced once the symbol table that owns the Symbol
// outlives the AST it points into (both live inside the Pass Manager's
// owning scope for the whole pipeline run, so no arena/index indirection
// is needed here).
type Symbol struct {
	Kind           SymbolKind
	Name           string
	Filename       string
	DefinitionSite ast.Positioned
	HasParam       bool
	HasReturn      bool
}

// SymbolTable maps scope id -> name -> Symbol. It is shared across every
// pass that opts into the "with symbol table" capability (spec.md §4.2).
type SymbolTable struct {
	scopes map[string]map[string]*Symbol
}

// NewSymbolTable returns a table preloaded with the inbox/outbox library
// bindings.
func NewSymbolTable() *SymbolTable {
	st := &SymbolTable{scopes: make(map[string]map[string]*Symbol)}
	st.createLibrarySymbols()
	return st
}

func (st *SymbolTable) createLibrarySymbols() {
	st.AddFunctionSymbol(librarySuperRoot, "outbox", true, false, stdlibFilename, nil)
	st.AddFunctionSymbol(librarySuperRoot, "inbox", false, true, stdlibFilename, nil)
}

func (st *SymbolTable) scope(id string) map[string]*Symbol {
	scope, ok := st.scopes[id]
	if !ok {
		scope = make(map[string]*Symbol)
		st.scopes[id] = scope
	}
	return scope
}

// AddSymbol inserts symbol into scopeID's bindings. It fails (returns
// false) if the scope already binds that name — the caller is responsible
// for turning that into an E_SEMA_SYM_REDEF diagnostic.
func (st *SymbolTable) AddSymbol(scopeID string, symbol *Symbol) bool {
	scope := st.scope(scopeID)
	if _, exists := scope[symbol.Name]; exists {
		return false
	}
	scope[symbol.Name] = symbol
	return true
}

func (st *SymbolTable) AddFunctionSymbol(scopeID, name string, hasParam, hasReturn bool, filename string, def ast.Positioned) bool {
	return st.AddSymbol(scopeID, &Symbol{
		Kind: SymbolSubroutine, Name: name, Filename: filename,
		DefinitionSite: def, HasParam: hasParam, HasReturn: hasReturn,
	})
}

func (st *SymbolTable) AddVariableSymbol(scopeID, name, filename string, def ast.Positioned) bool {
	return st.AddSymbol(scopeID, &Symbol{Kind: SymbolVariable, Name: name, Filename: filename, DefinitionSite: def})
}

// LookupSymbol looks up name in scopeID. If lookupAncestors is true it
// walks scopeID's ancestor chain (longest prefix first, via sm) and
// returns the first hit, also reporting which scope id it was found in.
func (st *SymbolTable) LookupSymbol(sm *ScopeManager, scopeID, name string, lookupAncestors bool) (*Symbol, string, bool) {
	if !lookupAncestors {
		if sym, ok := st.scope(scopeID)[name]; ok {
			return sym, scopeID, true
		}
		return nil, "", false
	}

	for _, ancestor := range sm.AncestorIDs(scopeID) {
		if sym, ok := st.scopes[ancestor][name]; ok {
			return sym, ancestor, true
		}
	}
	return nil, "", false
}

// GetSymbolsExcludeAncestors returns every symbol bound directly in
// scopeID (not in any ancestor), in no particular order.
func (st *SymbolTable) GetSymbolsExcludeAncestors(scopeID string) []*Symbol {
	scope := st.scopes[scopeID]
	out := make([]*Symbol, 0, len(scope))
	for _, sym := range scope {
		out = append(out, sym)
	}
	return out
}

// Clear empties every user-declared binding but preserves the built-in
// library symbols, per spec.md §4.9's Clear Symbol Table pass.
func (st *SymbolTable) Clear() {
	st.scopes = make(map[string]map[string]*Symbol)
	st.createLibrarySymbols()
}
