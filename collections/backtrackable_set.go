// Package collections holds the two small backtrackable data structures
// the local-search subsystem relies on: a set over [0,n) that can be
// snapshotted and rolled back in O(1) per undone Add/Remove, and a
// random-tag hasher for sets of (constraint, direction) pairs. Grounded
// on the teacher's sat/trail.go push/pop-by-level idiom and
// classical/bitvector.go's XOR-of-tags approach to order-independent
// hashing.
package collections

// undoOp records one Add or Remove so BacktrackOneLevel can replay the
// level's operations in reverse, regardless of how Add/Remove interleave
// within it — a plain member-count snapshot isn't enough once Remove can
// appear mid-level, since Remove's swap-to-last bookkeeping moves
// unrelated members around.
type undoOp struct {
	i          int
	wasPresent bool // true: this op was a Remove (undo restores membership); false: an Add (undo clears it)
}

// BacktrackableIntegerSet is a set over [0,n) that remembers, per pushed
// level, every Add/Remove applied since the matching push, and which
// elements were ever touched since creation (Superset). Popping one
// level undoes exactly those operations in reverse, restoring present
// membership exactly, per spec.md SS3/SS8's round-trip law.
type BacktrackableIntegerSet struct {
	n       int
	present []bool
	members []int // current members, in unspecified order
	pos     []int // members[pos[i]] == i, for O(1) removal
	touched []bool
	superset []int // every element ever inserted since creation

	undoLog    []undoOp
	undoLevels []int // undoLog-length snapshot at each push
}

// NewBacktrackableIntegerSet allocates a set over [0,n).
func NewBacktrackableIntegerSet(n int) *BacktrackableIntegerSet {
	return &BacktrackableIntegerSet{
		n:       n,
		present: make([]bool, n),
		pos:     make([]int, n),
		touched: make([]bool, n),
	}
}

// Size returns the number of elements currently in the set.
func (s *BacktrackableIntegerSet) Size() int { return len(s.members) }

// Contains reports whether i is currently a member.
func (s *BacktrackableIntegerSet) Contains(i int) bool { return s.present[i] }

func (s *BacktrackableIntegerSet) rawAdd(i int) {
	s.present[i] = true
	s.pos[i] = len(s.members)
	s.members = append(s.members, i)
}

func (s *BacktrackableIntegerSet) rawRemove(i int) {
	s.present[i] = false
	last := len(s.members) - 1
	p := s.pos[i]
	moved := s.members[last]
	s.members[p] = moved
	s.pos[moved] = p
	s.members = s.members[:last]
}

// Add inserts i if absent. A no-op if i is already present.
func (s *BacktrackableIntegerSet) Add(i int) {
	if s.present[i] {
		return
	}
	s.rawAdd(i)
	s.undoLog = append(s.undoLog, undoOp{i: i, wasPresent: false})
	if !s.touched[i] {
		s.touched[i] = true
		s.superset = append(s.superset, i)
	}
}

// Remove deletes i if present. A no-op if i is absent.
func (s *BacktrackableIntegerSet) Remove(i int) {
	if !s.present[i] {
		return
	}
	s.rawRemove(i)
	s.undoLog = append(s.undoLog, undoOp{i: i, wasPresent: true})
}

// AddBacktrackingLevel pushes a restore point.
func (s *BacktrackableIntegerSet) AddBacktrackingLevel() {
	s.undoLevels = append(s.undoLevels, len(s.undoLog))
}

// BacktrackOneLevel undoes, in reverse order, every Add/Remove applied
// since the matching AddBacktrackingLevel. A no-op past the initial
// (un-pushed) level.
func (s *BacktrackableIntegerSet) BacktrackOneLevel() {
	if len(s.undoLevels) == 0 {
		return
	}
	target := s.undoLevels[len(s.undoLevels)-1]
	s.undoLevels = s.undoLevels[:len(s.undoLevels)-1]
	for len(s.undoLog) > target {
		op := s.undoLog[len(s.undoLog)-1]
		s.undoLog = s.undoLog[:len(s.undoLog)-1]
		if op.wasPresent {
			if !s.present[op.i] {
				s.rawAdd(op.i)
			}
		} else {
			if s.present[op.i] {
				s.rawRemove(op.i)
			}
		}
	}
}

// BacktrackAll pops every pushed level back to the initial state.
func (s *BacktrackableIntegerSet) BacktrackAll() {
	for len(s.undoLevels) > 0 {
		s.BacktrackOneLevel()
	}
}

// Superset returns a superset of the currently-set elements: every
// element that has ever been inserted since this set was created. It is
// cheap to iterate and is what lets callers scan "possibly infeasible
// constraints" without tracking exact membership history; callers must
// re-check Contains defensively (spec.md SS4.4).
func (s *BacktrackableIntegerSet) Superset() []int { return s.superset }

// Members returns the current exact membership, in unspecified order.
func (s *BacktrackableIntegerSet) Members() []int { return s.members }
