package semalyzer

import "fmt"

// ScopeManager produces hierarchical scope identifiers during traversal
// (spec.md §3, §4). It is a thin stack machine: EnterNamed/EnterAnonymous
// push a new dotted-path id, Exit pops back to the parent. AncestorIDs
// walks a parent-pointer map rather than re-splitting the id string on
// every call, keeping it O(depth) (spec.md §9's "Design Notes" caveat).
type ScopeManager struct {
	stack        []string
	parentOf     map[string]string
	anonCounters map[string]int
}

// NewScopeManager returns a ScopeManager already positioned at the global
// scope "glb", matching original_source's ScopeManager constructor.
func NewScopeManager() *ScopeManager {
	sm := &ScopeManager{parentOf: map[string]string{"glb": librarySuperRoot}, anonCounters: map[string]int{}}
	sm.stack = []string{"glb"}
	return sm
}

// CurrentID returns the scope id of the innermost currently-open scope.
func (sm *ScopeManager) CurrentID() string {
	return sm.stack[len(sm.stack)-1]
}

// EnterNamed opens a new scope named after a subroutine and returns its id.
func (sm *ScopeManager) EnterNamed(name string) string {
	id := sm.CurrentID() + "." + name
	sm.parentOf[id] = sm.CurrentID()
	sm.stack = append(sm.stack, id)
	return id
}

// EnterAnonymous opens a new scope with an integer name minted per parent
// scope (the counter is keyed by the parent, so sibling blocks inside
// different subroutines don't race each other's numbering).
func (sm *ScopeManager) EnterAnonymous() string {
	parent := sm.CurrentID()
	n := sm.anonCounters[parent]
	sm.anonCounters[parent] = n + 1
	id := fmt.Sprintf("%s.%d", parent, n)
	sm.parentOf[id] = parent
	sm.stack = append(sm.stack, id)
	return id
}

// Exit closes the current scope and returns its id.
func (sm *ScopeManager) Exit() string {
	id := sm.stack[len(sm.stack)-1]
	sm.stack = sm.stack[:len(sm.stack)-1]
	return id
}

// AncestorIDs returns the chain from id to the absolute root, longest
// prefix first, always terminating at the library super-root so a lookup
// walk can always reach inbox/outbox.
func (sm *ScopeManager) AncestorIDs(id string) []string {
	ids := []string{id}
	cur := id
	for cur != librarySuperRoot {
		parent, ok := sm.parentOf[cur]
		if !ok {
			break
		}
		ids = append(ids, parent)
		cur = parent
	}
	return ids
}
