// Package encoding builds and maintains totalizer trees: a lazily
// materialized, monotone binary encoding of "at least k" over a set of
// objective literals, used by package coreguided to turn unsat cores into
// a strictly improving lower bound (spec.md §4.8/§4.9).
package encoding

import (
	"sync"

	"github.com/latticeforge/bop/core"
)

// EncodingNode represents an integer in [lb, lb+len(literals)] (and, in
// the limit, [lb, ub]) via a monotone chain of literals where literal(i)
// means "the represented number is > lb+i". Leaves wrap a single
// objective literal; internal nodes are the sum of child_a and child_b.
type EncodingNode struct {
	literals []core.Lit
	lb       int64
	ub       int64 // the node's true maximum, independent of how much is materialized
	weight   int64
	weightLB int64

	childA, childB core.NodeIndex
	depth          int   // 0 for leaves, max(childA.depth, childB.depth)+1 for merges
	sortVar        int64 // tie-break for merge ordering, see Pool's nodeHeap
}

// Size returns the number of currently materialized literals.
func (n *EncodingNode) Size() int64 { return int64(len(n.literals)) }

// Lb returns the node's lower bound: the count already proven by Reduce.
func (n *EncodingNode) Lb() int64 { return n.lb }

// Ub returns the node's true maximum value, whether or not every literal
// up to it has been materialized yet.
func (n *EncodingNode) Ub() int64 { return n.ub }

// CurrentUB returns lb + the number of materialized literals.
func (n *EncodingNode) CurrentUB() int64 { return n.lb + n.Size() }

func (n *EncodingNode) Weight() int64     { return n.weight }
func (n *EncodingNode) SetWeight(w int64) { n.weight = w }
func (n *EncodingNode) WeightLB() int64   { return n.weightLB }
func (n *EncodingNode) SetWeightLB(lb int64) { n.weightLB = lb }

// Literal returns literal(i), 0-indexed.
func (n *EncodingNode) Literal(i int64) core.Lit { return n.literals[i] }

// IsLeaf reports whether this node wraps a single objective literal
// rather than merging two children.
func (n *EncodingNode) IsLeaf() bool { return n.childA == core.InvalidNode }

func (n *EncodingNode) ChildA() core.NodeIndex { return n.childA }
func (n *EncodingNode) ChildB() core.NodeIndex { return n.childB }

// at returns n's literal(i) and true, or (0, false) if i falls outside
// the currently materialized range — i < 0 (the vacuously-true "more
// than lb-1" boundary) or i >= Size() (not yet materialized, or beyond
// the node's true maximum). Both merge clause families (FullMerge) treat
// an out-of-range index as a disjunct to omit, which is sound in both
// directions: omitting literal(-1) drops an always-false negated
// disjunct, and omitting literal(Size()) drops an always-false positive
// one.
func at(n *EncodingNode, i int64) (core.Lit, bool) {
	if i < 0 || i >= int64(len(n.literals)) {
		return 0, false
	}
	return n.literals[i], true
}

// Pool is an arena of EncodingNodes addressed by core.NodeIndex, built on
// a sync.Pool of node structs the way sat/pool.go collapses the
// teacher's dozen per-purpose pools into one reusable arena — here for
// the totalizer tree's allocation-heavy merge loop instead of conflict
// analysis. Reset recycles every node into the backing sync.Pool so a
// later totalizer build on the same Pool can reuse the EncodingNode
// structs instead of allocating new ones.
type Pool struct {
	nodes []*EncodingNode
	free  *sync.Pool
}

// NewPool returns an empty node arena.
func NewPool() *Pool {
	return &Pool{free: &sync.Pool{New: func() any { return new(EncodingNode) }}}
}

// Get returns the node at idx.
func (p *Pool) Get(idx core.NodeIndex) *EncodingNode { return p.nodes[idx] }

// Len returns the number of nodes allocated since the last Reset.
func (p *Pool) Len() int { return len(p.nodes) }

func (p *Pool) alloc() (core.NodeIndex, *EncodingNode) {
	n := p.free.Get().(*EncodingNode)
	*n = EncodingNode{childA: core.InvalidNode, childB: core.InvalidNode}
	idx := core.NodeIndex(len(p.nodes))
	p.nodes = append(p.nodes, n)
	return idx, n
}

// Reset returns every allocated node to the backing sync.Pool and clears
// the arena, ready for a fresh totalizer build.
func (p *Pool) Reset() {
	for _, n := range p.nodes {
		p.free.Put(n)
	}
	p.nodes = p.nodes[:0]
}

// NewLeaf wraps a single objective literal as a depth-0 node of weight
// weight; its one literal means "lit is true", i.e. the represented
// number is in {0, 1}.
func NewLeaf(p *Pool, lit core.Lit, weight int64) core.NodeIndex {
	idx, n := p.alloc()
	n.literals = []core.Lit{lit}
	n.lb = 0
	n.ub = 1
	n.weight = weight
	n.sortVar = int64(lit.Var())
	return idx
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
