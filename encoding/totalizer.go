package encoding

import (
	"container/heap"

	"github.com/latticeforge/bop/core"
)

// FullMerge builds a fresh node representing child_a + child_b, fully
// materialized up to min(a.Size()+b.Size(), upperBound) literals, per
// spec.md §4.8. Both merge clause families are posted in full (not just
// the propagation direction lazy merges use), since a fully merged node
// is never grown further.
//
// The clause families are derived from the standard totalizer encoding
// rather than copied verbatim from spec.md's index arithmetic, extending
// i and j one step past each child's real range so the vacuous "this
// child contributes nothing" (i = -1 / j = -1) and "this child is
// already exhausted" (i = a.Size() / j = b.Size()) boundaries are
// covered; both extensions drop an always-false disjunct, so the result
// is sound either way.
func FullMerge(p *Pool, solver core.SatSolver, a, b core.NodeIndex, upperBound int64) (core.NodeIndex, error) {
	an, bn := p.Get(a), p.Get(b)
	size := an.Size() + bn.Size()
	if size > upperBound {
		size = upperBound
	}
	if size < 0 {
		size = 0
	}

	idx, z := p.alloc()
	z.childA, z.childB = a, b
	z.lb = an.lb + bn.lb
	z.ub = an.ub + bn.ub
	z.weight = 1
	z.depth = maxInt(an.depth, bn.depth) + 1
	z.sortVar = minInt64(an.sortVar, bn.sortVar)

	if size > 0 {
		first := solver.NewVariables(int(size))
		z.literals = make([]core.Lit, size)
		for i := int64(0); i < size; i++ {
			z.literals[i] = core.NewLit(first+core.VariableIndex(i), true)
		}
		for i := int64(1); i < size; i++ {
			if err := solver.AddBinaryClause(z.literals[i].Negation(), z.literals[i-1]); err != nil {
				return core.InvalidNode, err
			}
		}
	}

	// a_i and b_j together force z_{i+j+1}.
	for i := int64(-1); i < an.Size(); i++ {
		for j := int64(-1); j < bn.Size(); j++ {
			k := i + j + 1
			if k < 0 || k >= size {
				continue
			}
			clause := make([]core.Lit, 0, 3)
			if lit, ok := at(an, i); ok {
				clause = append(clause, lit.Negation())
			}
			if lit, ok := at(bn, j); ok {
				clause = append(clause, lit.Negation())
			}
			clause = append(clause, z.literals[k])
			if err := solver.AddClause(clause...); err != nil {
				return core.InvalidNode, err
			}
		}
	}

	// z_{i+j} forces a_i or b_j (one of the children must have reached its
	// share of the sum).
	for i := int64(0); i <= an.Size(); i++ {
		for j := int64(0); j <= bn.Size(); j++ {
			k := i + j
			if k >= size {
				continue
			}
			clause := []core.Lit{z.literals[k].Negation()}
			if lit, ok := at(an, i); ok {
				clause = append(clause, lit)
			}
			if lit, ok := at(bn, j); ok {
				clause = append(clause, lit)
			}
			if err := solver.AddClause(clause...); err != nil {
				return core.InvalidNode, err
			}
		}
	}

	for i := size; i < an.Size(); i++ {
		if err := solver.AddUnitClause(an.literals[i].Negation()); err != nil {
			return core.InvalidNode, err
		}
	}
	for j := size; j < bn.Size(); j++ {
		if err := solver.AddUnitClause(bn.literals[j].Negation()); err != nil {
			return core.InvalidNode, err
		}
	}

	return idx, nil
}

// LazyMerge builds a node representing child_a + child_b with only
// literal(0) materialized; IncreaseNodeSize grows it further on demand.
func LazyMerge(p *Pool, solver core.SatSolver, a, b core.NodeIndex) (core.NodeIndex, error) {
	an, bn := p.Get(a), p.Get(b)
	idx, z := p.alloc()
	z.childA, z.childB = a, b
	z.lb = an.lb + bn.lb
	z.ub = an.ub + bn.ub
	z.weight = 1
	z.depth = maxInt(an.depth, bn.depth) + 1
	z.sortVar = minInt64(an.sortVar, bn.sortVar)

	if an.Size() == 0 || bn.Size() == 0 {
		// Neither child has a materialized literal(0) yet; leave z equally
		// lazy until IncreaseNodeSize is asked to grow it.
		return idx, nil
	}

	v := solver.NewVariables(1)
	z0 := core.NewLit(v, true)
	z.literals = []core.Lit{z0}

	a0, b0 := an.literals[0], bn.literals[0]
	if err := solver.AddBinaryClause(a0.Negation(), z0); err != nil {
		return core.InvalidNode, err
	}
	if err := solver.AddBinaryClause(b0.Negation(), z0); err != nil {
		return core.InvalidNode, err
	}
	if err := solver.AddClause(z0.Negation(), a0, b0); err != nil {
		return core.InvalidNode, err
	}
	return idx, nil
}

// IncreaseNodeSize materializes exactly one more literal of a lazily
// merged node (and, if necessary, of each child), posting only the
// propagation-direction linking clauses: spec.md §4.8 notes the downward
// side is "optional and empirically harmful" for a node that keeps
// growing, unlike a FullMerge node which never grows again.
//
// Children are grown eagerly by at most one literal each rather than
// computing the minimal decomposition that could support the new index;
// this costs at most one extra auxiliary variable per growth step and
// keeps the recursion simple, at the cost of occasionally allocating a
// child literal slightly before it is strictly required.
func IncreaseNodeSize(p *Pool, solver core.SatSolver, idx core.NodeIndex) error {
	n := p.Get(idx)
	if n.IsLeaf() {
		return nil
	}
	target := n.Size()
	if n.lb+target >= n.ub {
		return nil // already at the node's true maximum
	}

	a, b := p.Get(n.childA), p.Get(n.childB)
	if a.CurrentUB() < a.ub && a.Size() < target+1 {
		if err := IncreaseNodeSize(p, solver, n.childA); err != nil {
			return err
		}
	}
	if b.CurrentUB() < b.ub && b.Size() < target+1 {
		if err := IncreaseNodeSize(p, solver, n.childB); err != nil {
			return err
		}
	}

	v := solver.NewVariables(1)
	newLit := core.NewLit(v, true)
	if target > 0 {
		if err := solver.AddBinaryClause(newLit.Negation(), n.literals[target-1]); err != nil {
			return err
		}
	}
	n.literals = append(n.literals, newLit)

	for i := int64(-1); i <= target; i++ {
		j := target - i - 1
		litA, okA := at(a, i)
		litB, okB := at(b, j)
		if !okA && !okB {
			continue
		}
		clause := make([]core.Lit, 0, 3)
		if okA {
			clause = append(clause, litA.Negation())
		}
		if okB {
			clause = append(clause, litB.Negation())
		}
		clause = append(clause, newLit)
		if err := solver.AddClause(clause...); err != nil {
			return err
		}
	}
	return nil
}

// Reduce pops every leading literal already forced true (each pop raises
// lb by one and counts toward the caller's accumulated lower bound) and
// every trailing literal already forced false (each pop tightens ub by
// one), returning the number of leading pops.
func Reduce(p *Pool, solver core.SatSolver, idx core.NodeIndex) int64 {
	n := p.Get(idx)
	var pops int64
	for len(n.literals) > 0 {
		lit := n.literals[0]
		v, assigned := solver.Value(lit.Var())
		if !assigned || v != lit.IsPositive() {
			break
		}
		n.literals = n.literals[1:]
		n.lb++
		pops++
	}
	for len(n.literals) > 0 {
		lit := n.literals[len(n.literals)-1]
		v, assigned := solver.Value(lit.Var())
		if !assigned || v == lit.IsPositive() {
			break
		}
		n.literals = n.literals[:len(n.literals)-1]
		n.ub--
	}
	return pops
}

// ApplyWeightUpperBound force-falses every literal beyond index
// gap/weight (integer division, clamping the node's contribution to
// gap), per spec.md §4.8 and §9 ("this is integer division and is
// intentional, not a truncation bug").
func ApplyWeightUpperBound(p *Pool, solver core.SatSolver, idx core.NodeIndex, gap int64) error {
	n := p.Get(idx)
	if n.weight <= 0 {
		return nil
	}
	keep := gap / n.weight
	if keep < 0 {
		keep = 0
	}
	if int64(len(n.literals)) <= keep {
		return nil
	}
	for i := keep; i < int64(len(n.literals)); i++ {
		if err := solver.AddUnitClause(n.literals[i].Negation()); err != nil {
			return err
		}
	}
	n.literals = n.literals[:keep]
	if n.ub > n.lb+keep {
		n.ub = n.lb + keep
	}
	return nil
}

// GetAssumption returns the next currently-unfixed literal(i) starting
// from weight_lb - lb, lazily growing the node first if it hasn't
// reached its true maximum and that starting index isn't materialized
// yet. ok is false once every literal from that point on is already
// assigned (the node has nothing left to assume).
func GetAssumption(p *Pool, solver core.SatSolver, idx core.NodeIndex) (lit core.Lit, ok bool, err error) {
	n := p.Get(idx)
	start := n.weightLB - n.lb
	if start < 0 {
		start = 0
	}
	if n.CurrentUB() < n.ub && start >= n.Size() {
		if err := IncreaseNodeSize(p, solver, idx); err != nil {
			return 0, false, err
		}
		n = p.Get(idx)
	}
	for i := start; i < n.Size(); i++ {
		l := n.literals[i]
		if _, assigned := solver.Value(l.Var()); !assigned {
			return l, true, nil
		}
	}
	return 0, false, nil
}

// ForceAtLeastOne asserts literal(0) (growing the node first if it is
// still fully lazy), used by coreguided's ProcessCore to record that a
// freshly merged core node's represented sum is at least 1.
func ForceAtLeastOne(p *Pool, solver core.SatSolver, idx core.NodeIndex) error {
	n := p.Get(idx)
	if n.Size() == 0 {
		if err := IncreaseNodeSize(p, solver, idx); err != nil {
			return err
		}
		n = p.Get(idx)
	}
	if n.Size() == 0 {
		return core.NewError("encoding.ForceAtLeastOne", "node has no literal(0) to force")
	}
	return solver.AddUnitClause(n.literals[0])
}

// MaxWeightBelow returns the largest node weight strictly below
// threshold among nodes, or 0 if none qualifies — coreguided's
// MaxNodeWeightSmallerThan(stratified_lower_bound) step.
func MaxWeightBelow(p *Pool, nodes []core.NodeIndex, threshold int64) int64 {
	var best int64
	for _, idx := range nodes {
		w := p.Get(idx).weight
		if w < threshold && w > best {
			best = w
		}
	}
	return best
}

// nodeHeap orders nodes for Huffman-style pairing: deeper-first, then
// larger sortVar first, so the next two popped are the pair spec.md
// §4.8 calls "short nodes merged first".
type nodeHeap struct {
	pool *Pool
	ids  []core.NodeIndex
}

func (h *nodeHeap) Len() int { return len(h.ids) }
func (h *nodeHeap) Less(i, j int) bool {
	a, b := h.pool.Get(h.ids[i]), h.pool.Get(h.ids[j])
	if a.depth != b.depth {
		return a.depth > b.depth
	}
	return a.sortVar > b.sortVar
}
func (h *nodeHeap) Swap(i, j int)      { h.ids[i], h.ids[j] = h.ids[j], h.ids[i] }
func (h *nodeHeap) Push(x interface{}) { h.ids = append(h.ids, x.(core.NodeIndex)) }
func (h *nodeHeap) Pop() interface{} {
	n := len(h.ids)
	v := h.ids[n-1]
	h.ids = h.ids[:n-1]
	return v
}

// BuildTotalizer merges leaves pairwise (Huffman order) into a single
// root node via FullMerge, materializing the whole tree up front.
func BuildTotalizer(p *Pool, solver core.SatSolver, leaves []core.NodeIndex, upperBound int64) (core.NodeIndex, error) {
	if len(leaves) == 0 {
		return core.InvalidNode, nil
	}
	h := &nodeHeap{pool: p, ids: append([]core.NodeIndex(nil), leaves...)}
	heap.Init(h)
	for h.Len() > 1 {
		a := heap.Pop(h).(core.NodeIndex)
		b := heap.Pop(h).(core.NodeIndex)
		merged, err := FullMerge(p, solver, a, b, upperBound)
		if err != nil {
			return core.InvalidNode, err
		}
		heap.Push(h, merged)
	}
	return h.ids[0], nil
}

// MergeCoreLazy merges the nodes implicated by an unsat core pairwise via
// LazyMerge (Huffman order), per spec.md §4.9's ProcessCore step
// ("lazy merge via a depth priority queue").
func MergeCoreLazy(p *Pool, solver core.SatSolver, nodes []core.NodeIndex) (core.NodeIndex, error) {
	if len(nodes) == 0 {
		return core.InvalidNode, nil
	}
	h := &nodeHeap{pool: p, ids: append([]core.NodeIndex(nil), nodes...)}
	heap.Init(h)
	for h.Len() > 1 {
		a := heap.Pop(h).(core.NodeIndex)
		b := heap.Pop(h).(core.NodeIndex)
		merged, err := LazyMerge(p, solver, a, b)
		if err != nil {
			return core.InvalidNode, err
		}
		heap.Push(h, merged)
	}
	return h.ids[0], nil
}
