package sat

import "github.com/latticeforge/bop/core"

// watchedAt returns the per-literal watch-list index for lit: literals
// range over [-n, -1] union [1, n], so the offset maps them onto a
// dense [0, 2n) slice the way the teacher's map[Literal][]*Clause
// watchLists would, but without hashing on every lookup.
func watchedAt(lit core.Lit, numVars int) int {
	v := int(lit.Var())
	if lit.IsPositive() {
		return 2*v + 1
	}
	return 2 * v
}

// propagator owns the watch lists and binary-clause fast path and
// performs unit propagation to a fixed point.
type propagator struct {
	watches    [][]watchRef // indexed by watchedAt(watched literal)
	binaries   [][]core.Lit // binaries[watchedAt(a)] = list of b such that (a ∨ b) is a clause
	pbs        []*pbConstraint
	pbWatchers [][]int // indexed by watchedAt(lit): indices into pbs that mention lit

	propagateQueue []core.Lit
	numVars        int
}

func newPropagator(numVars int) *propagator {
	p := &propagator{numVars: numVars}
	p.growTo(numVars)
	return p
}

func (p *propagator) growTo(numVars int) {
	need := 2 * numVars
	for len(p.watches) < need {
		p.watches = append(p.watches, nil)
		p.binaries = append(p.binaries, nil)
		p.pbWatchers = append(p.pbWatchers, nil)
	}
	p.numVars = numVars
}

// watch registers cl to be notified when watched becomes false. The
// index is keyed by watched itself (not its negation): propagate()
// computes "falsified" as the literal that just became false and looks
// it up directly, so the store side must use the same literal, not its
// complement.
func (p *propagator) watch(watched, other core.Lit, cl *clause) {
	idx := watchedAt(watched, p.numVars)
	p.watches[idx] = append(p.watches[idx], watchRef{cl: cl, other: other})
}

func (p *propagator) watchBinary(a, b core.Lit) {
	p.binaries[watchedAt(a, p.numVars)] = append(p.binaries[watchedAt(a, p.numVars)], b)
	p.binaries[watchedAt(b, p.numVars)] = append(p.binaries[watchedAt(b, p.numVars)], a)
}

func (p *propagator) addClauseWatches(cl *clause) {
	if len(cl.lits) == 2 {
		p.watchBinary(cl.lits[0], cl.lits[1])
		return
	}
	p.watch(cl.lits[0], cl.lits[1], cl)
	p.watch(cl.lits[1], cl.lits[0], cl)
}

func (p *propagator) addPB(pb *pbConstraint) {
	idx := len(p.pbs)
	p.pbs = append(p.pbs, pb)
	for _, l := range pb.lits {
		for _, signedLit := range [2]core.Lit{l, l.Negation()} {
			at := watchedAt(signedLit, p.numVars)
			p.pbWatchers[at] = append(p.pbWatchers[at], idx)
		}
	}
}

// conflict records the falsified clause found during the last
// propagate() call. A pbConstraint conflict is translated into an
// equivalent explanatory clause on the spot (see explainPB) so conflict
// analysis never needs to special-case its source.
type conflict struct {
	cl *clause
}

// propagate drains the BCP queue, asserting forced literals on t and
// returning a non-nil *conflict the first time some clause or
// pbConstraint is falsified.
func (p *propagator) propagate(t *trail, stats *SolverStatistics) *conflict {
	for len(p.propagateQueue) > 0 {
		lit := p.propagateQueue[0]
		p.propagateQueue = p.propagateQueue[1:]
		stats.Propagations++

		falsified := lit.Negation()

		// Binary clauses: (falsified ∨ other) forces other.
		for _, other := range p.binaries[watchedAt(falsified, p.numVars)] {
			switch t.valueOf(other) {
			case assignedTrue:
				continue
			case assignedFalse:
				return &conflict{cl: &clause{lits: []core.Lit{falsified.Negation(), other}}}
			default:
				p.enqueue(t, other, nil)
			}
		}

		// Long clauses via the two-watch scheme.
		idx := watchedAt(falsified, p.numVars)
		refs := p.watches[idx]
		kept := refs[:0]
		for i := 0; i < len(refs); i++ {
			ref := refs[i]
			if t.valueOf(ref.other) == assignedTrue {
				kept = append(kept, ref)
				continue
			}
			moved := false
			for _, cand := range ref.cl.lits {
				if cand == ref.other || cand == falsified {
					continue
				}
				if t.valueOf(cand) != assignedFalse {
					p.watch(cand, ref.other, ref.cl)
					moved = true
					break
				}
			}
			if moved {
				continue
			}
			if t.valueOf(ref.other) == assignedFalse {
				kept = append(kept, refs[i:]...)
				p.watches[idx] = kept
				p.propagateQueue = p.propagateQueue[:0]
				return &conflict{cl: ref.cl}
			}
			p.enqueue(t, ref.other, ref.cl)
			kept = append(kept, ref)
		}
		p.watches[idx] = kept

		if c := p.propagatePB(t, lit); c != nil {
			return c
		}
	}
	return nil
}

// propagatePB re-scans the pbConstraints touching the just-assigned
// literal and forces any literal whose remaining slack can no longer
// accommodate both its values, or reports a conflict when even the
// best-case assignment of the remaining literals can't reach the
// bounds. Re-scanning (rather than incrementally tracked slack) trades
// some propagation speed for a much simpler, clearly-correct
// implementation; BOP's PB constraints come overwhelmingly from the
// encoding package's totalizer trees, which are already small
// sorted-literal chains.
func (p *propagator) propagatePB(t *trail, justAssigned core.Lit) *conflict {
	idx := watchedAt(justAssigned, p.numVars)
	for _, pbi := range p.pbWatchers[idx] {
		pb := p.pbs[pbi]
		minSum, maxSum := int64(0), int64(0)
		var unassignedIdx []int
		for i, l := range pb.lits {
			c := pb.coefs[i]
			switch t.valueOf(l) {
			case assignedTrue:
				minSum += c
				maxSum += c
			case assignedFalse:
				// contributes 0 either way
			default:
				unassignedIdx = append(unassignedIdx, i)
				if c > 0 {
					maxSum += c
				} else {
					minSum += c
				}
			}
		}
		if pb.ub != nil && minSum > *pb.ub {
			return &conflict{cl: explainPB(t, pb, core.InvalidVariable, false)}
		}
		if pb.lb != nil && maxSum < *pb.lb {
			return &conflict{cl: explainPB(t, pb, core.InvalidVariable, false)}
		}
		for _, i := range unassignedIdx {
			l := pb.lits[i]
			c := pb.coefs[i]

			// baseMin/baseMax are minSum/maxSum with literal i's own
			// pessimistic/optimistic contribution removed, i.e. the
			// achievable range contributed by every *other* literal.
			baseMin, baseMax := minSum, maxSum
			if c > 0 {
				baseMax -= c
			} else {
				baseMin -= c
			}

			if pb.ub != nil && baseMin+c > *pb.ub {
				// Forcing l true is infeasible under any completion of the
				// rest: l must be false.
				p.enqueue(t, l.Negation(), explainPB(t, pb, l.Var(), false))
				continue
			}
			if pb.lb != nil && baseMax < *pb.lb {
				// Forcing l false is infeasible under any completion of the
				// rest (it caps the sum below lb even in the best case):
				// l must be true.
				p.enqueue(t, l, explainPB(t, pb, l.Var(), true))
			}
		}
	}
	return nil
}

// explainPB builds the clause (¬assigned_lits ∨ forced_lit) that
// justifies a pbConstraint-driven propagation or conflict: the
// negation of every currently-assigned literal the constraint mentions
// (other than the variable being forced), plus the forced literal
// itself (omitted entirely for a root conflict, where forcedVar is
// core.InvalidVariable). The clause is sound — if those assigned
// literals hold, the bound forces the conclusion — even though it is
// not the tightest possible reason.
func explainPB(t *trail, pb *pbConstraint, forcedVar core.VariableIndex, forcedValue bool) *clause {
	var lits []core.Lit
	for _, l := range pb.lits {
		if l.Var() == forcedVar {
			continue
		}
		switch t.valueOf(l) {
		case assignedTrue:
			lits = append(lits, l.Negation())
		case assignedFalse:
			lits = append(lits, l)
		}
	}
	if forcedVar != core.InvalidVariable {
		lits = append(lits, core.NewLit(forcedVar, forcedValue))
	}
	return &clause{lits: lits}
}

// enqueue asserts lit (reason nil for a decision) and queues it for
// propagation; it is a no-op if lit is already true.
func (p *propagator) enqueue(t *trail, lit core.Lit, reason *clause) {
	if t.valueOf(lit) == assignedTrue {
		return
	}
	t.assign(lit, reason)
	p.propagateQueue = append(p.propagateQueue, lit)
}

func (p *propagator) resetQueue() { p.propagateQueue = p.propagateQueue[:0] }
