package sat

// Unlike the teacher's SATPool, which pools roughly a dozen sync.Pool
// instances around a string-keyed representation (map[string]bool
// scratch sets, []TrailEntry buffers, clause-pointer slices, etc.),
// the int32-indexed representation here needs only a mark/seen bitset
// for conflict analysis and a handful of reusable scratch slices. Both
// are owned per-Solver rather than pooled globally: a Solver's search
// loop is the only caller of its own arena, and BOP never runs two
// CDCL solvers concurrently within one process (spec.md SS5,
// "single-threaded cooperative"), so a sync.Pool would add
// synchronization overhead for zero cross-solver reuse.
//
// litArena hands out a scratch bitset sized to the solver's variable
// count, reused across conflict-analysis calls instead of reallocating
// on every conflict — the same "pre-allocate, clear in place" idiom
// the teacher's pool.go applies to its trailEntryPool/literalSlicePool.
type litArena struct {
	seen []uint32 // one bit per variable, cleared lazily after each use
}

func newLitArena(numVars int) *litArena {
	return &litArena{seen: make([]uint32, (numVars+31)/32+1)}
}

func (a *litArena) grow(numVars int) {
	need := (numVars+31)/32 + 1
	if need > len(a.seen) {
		grown := make([]uint32, need)
		copy(grown, a.seen)
		a.seen = grown
	}
}

func (a *litArena) mark(v int)        { a.seen[v/32] |= 1 << uint(v%32) }
func (a *litArena) marked(v int) bool { return a.seen[v/32]&(1<<uint(v%32)) != 0 }
func (a *litArena) clear(v int)       { a.seen[v/32] &^= 1 << uint(v%32) }
