package sat

import "github.com/latticeforge/bop/core"

// analyzer performs first-UIP conflict analysis, generalized from the
// teacher's FirstUIPAnalyzer (sat/conflict_analysis.go) to walk the
// trail backwards by index rather than by a seen-variables map keyed
// on strings.
type analyzer struct {
	seen *litArena
}

func newAnalyzer(numVars int) *analyzer {
	return &analyzer{seen: newLitArena(numVars)}
}

func (a *analyzer) grow(numVars int) { a.seen.grow(numVars) }

// learn walks the implication graph from confl back to its first
// unique implication point at the trail's current conflict level,
// returning the learned clause (first literal is the asserting UIP
// literal, negated) and the backjump level to resume at. A nil
// learnedClause with level -1 means the conflict is at level 0: the
// formula is unsatisfiable under the current assumptions/clauses.
func (a *analyzer) learn(t *trail, confl *clause) (learned []core.Lit, backjumpLevel int, lbd int) {
	level := t.currentLevel()
	if level == 0 {
		return nil, -1, 0
	}

	var out []core.Lit
	var marked []int
	levelsSeen := make(map[int]bool)
	pending := 0
	idx := len(t.lits) - 1

	cur := confl
	var resolveOn core.Lit // the literal whose reason we resolve on next; zero value on first iteration

	for {
		for _, lit := range cur.lits {
			v := lit.Var()
			if resolveOn != 0 && lit == resolveOn {
				continue
			}
			if a.seen.marked(int(v)) {
				continue
			}
			a.seen.mark(int(v))
			marked = append(marked, int(v))
			lvl := t.levelOf(v)
			if lvl == level {
				pending++
				continue
			}
			if lvl > 0 {
				out = append(out, lit)
				levelsSeen[lvl] = true
			}
			// lvl == 0: root-forced literals never need to appear in the
			// learned clause, they're permanently true/false.
		}

		// Walk backwards to the next literal at the conflict level that
		// participated in the conflict.
		for idx >= 0 && !a.seen.marked(int(t.lits[idx].Var())) {
			idx--
		}
		if idx < 0 {
			break
		}
		uipCandidate := t.lits[idx]
		pending--
		idx--
		if pending == 0 {
			// uipCandidate is the first UIP: the learned clause asserts its
			// negation.
			out = append([]core.Lit{uipCandidate.Negation()}, out...)
			break
		}
		reason := t.reason[uipCandidate.Var()]
		if reason == nil {
			// Shouldn't happen for a non-decision literal at the conflict
			// level, but guard rather than index out of range.
			out = append([]core.Lit{uipCandidate.Negation()}, out...)
			break
		}
		cur = reason
		resolveOn = uipCandidate
	}

	for _, v := range marked {
		a.seen.clear(v)
	}

	backjump := 0
	for lvl := range levelsSeen {
		if lvl > backjump && lvl < level {
			backjump = lvl
		}
	}
	return out, backjump, len(levelsSeen)
}
