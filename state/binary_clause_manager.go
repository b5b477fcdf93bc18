package state

import "github.com/latticeforge/bop/core"

// clauseKey canonicalizes a binary clause (a OR b) as the ordered pair
// with the smaller literal first, so (a,b) and (b,a) dedupe to the same
// key.
type clauseKey struct{ a, b core.Lit }

func canon(a, b core.Lit) clauseKey {
	if a > b {
		a, b = b, a
	}
	return clauseKey{a, b}
}

// BinaryClauseManager deduplicates (a OR b) clauses learned by any
// optimizer and tracks which ones are new since the last
// ClearNewlyAdded, so LoadStateProblemToSatSolver-style callers can
// replay only the delta. Grounded on the teacher's CNF dedup-by-scan
// idiom (sat/types.go's containsVariable), replaced here with a map for
// O(1) membership since clause volume can be large.
type BinaryClauseManager struct {
	seen       map[clauseKey]bool
	all        []clauseKey
	newlyAdded []clauseKey
}

// NewBinaryClauseManager builds an empty manager.
func NewBinaryClauseManager() *BinaryClauseManager {
	return &BinaryClauseManager{seen: make(map[clauseKey]bool)}
}

// Add inserts (a OR b) if not already present. Idempotent.
func (m *BinaryClauseManager) Add(a, b core.Lit) {
	k := canon(a, b)
	if m.seen[k] {
		return
	}
	m.seen[k] = true
	m.all = append(m.all, k)
	m.newlyAdded = append(m.newlyAdded, k)
}

// NewlyAdded returns the clauses added since the last ClearNewlyAdded
// call, as (a,b) pairs.
func (m *BinaryClauseManager) NewlyAdded() [][2]core.Lit {
	out := make([][2]core.Lit, len(m.newlyAdded))
	for i, k := range m.newlyAdded {
		out[i] = [2]core.Lit{k.a, k.b}
	}
	return out
}

// ClearNewlyAdded resets the "newly added since last sync" window
// (spec.md SS8: NewlyAddedBinaryClauses() is empty immediately after).
func (m *BinaryClauseManager) ClearNewlyAdded() { m.newlyAdded = nil }

// All returns every clause ever added.
func (m *BinaryClauseManager) All() [][2]core.Lit {
	out := make([][2]core.Lit, len(m.all))
	for i, k := range m.all {
		out[i] = [2]core.Lit{k.a, k.b}
	}
	return out
}

// Len returns the total number of distinct clauses held.
func (m *BinaryClauseManager) Len() int { return len(m.all) }
