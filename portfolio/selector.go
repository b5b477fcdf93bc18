// Package portfolio implements PortfolioOptimizer and OptimizerSelector
// (spec.md §4.11): an adaptive scheduler that picks one concrete
// optimizer per call based on past successes and time spent, with
// round-robin fallback and time-since-last-solution fairness.
package portfolio

import (
	"math"
	"sort"
)

const (
	erosionRate = 0.2
	minScore    = 1e-6

	// InvalidOptimizer is returned by SelectOptimizer when no optimizer
	// is currently runnable and selectable.
	InvalidOptimizer = -1
)

// RunInfo tracks one optimizer's call history and score, per spec.md
// §4.11's OptimizerSelector::RunInfo.
type RunInfo struct {
	Name                       string
	NumCalls                   int
	NumSuccesses               int
	TotalGain                  int64
	TimeSpent                  float64
	TimeSpentSinceLastSolution float64
	Runnable                   bool
	Selectable                 bool
	Score                      float64
}

func (r RunInfo) runnableAndSelectable() bool { return r.Runnable && r.Selectable }

// OptimizerSelector holds one RunInfo per optimizer, reordered by score
// whenever a new solution is found; originalIndex/infoPositions track the
// mapping between an optimizer's fixed external index and its current
// position in the reordered slice.
type OptimizerSelector struct {
	runInfos      []RunInfo
	originalIndex []int
	infoPositions []int
	selectedIndex int
}

// NewOptimizerSelector builds a selector over len(names) optimizers, all
// initially runnable, selectable, and unscored.
func NewOptimizerSelector(names []string) *OptimizerSelector {
	n := len(names)
	s := &OptimizerSelector{
		runInfos:      make([]RunInfo, n),
		originalIndex: make([]int, n),
		infoPositions: make([]int, n),
		selectedIndex: n,
	}
	for i, name := range names {
		s.runInfos[i] = RunInfo{Name: name, Runnable: true, Selectable: true}
		s.originalIndex[i] = i
		s.infoPositions[i] = i
	}
	return s
}

// SelectOptimizer advances past the previously selected optimizer and
// returns the original index of the next one to run, per spec.md §4.11's
// fairness rule: a runnable-and-selectable optimizer is skipped in favor
// of an earlier one that has spent strictly less time since its last
// solution. Returns InvalidOptimizer if none qualifies anywhere.
func (s *OptimizerSelector) SelectOptimizer() int {
	n := len(s.runInfos)
	s.selectedIndex++
	for s.selectedIndex < n && !s.runInfos[s.selectedIndex].runnableAndSelectable() {
		s.selectedIndex++
	}

	if s.selectedIndex >= n {
		s.selectedIndex = -1
		for i := 0; i < n; i++ {
			if s.runInfos[i].runnableAndSelectable() {
				s.selectedIndex = i
				break
			}
		}
		if s.selectedIndex == -1 {
			return InvalidOptimizer
		}
	} else {
		timeSpent := s.runInfos[s.selectedIndex].TimeSpentSinceLastSolution
		tooMuchTimeSpent := false
		for i := 0; i < s.selectedIndex; i++ {
			info := s.runInfos[i]
			if info.runnableAndSelectable() && info.TimeSpentSinceLastSolution < timeSpent {
				tooMuchTimeSpent = true
				break
			}
		}
		if tooMuchTimeSpent {
			return s.SelectOptimizer()
		}
	}

	s.runInfos[s.selectedIndex].NumCalls++
	return s.originalIndex[s.selectedIndex]
}

// UpdateScore folds gain and timeSpent (the reward and time cost of the
// call just made to the last-selected optimizer, per spec.md §4.11) into
// its EWMA score, and on gain > 0 resets everyone's fairness clock and
// re-sorts the list by score.
func (s *OptimizerSelector) UpdateScore(gain int64, timeSpent float64) {
	newSolutionFound := gain > 0
	if newSolutionFound {
		s.newSolutionFound(gain)
	}
	s.updateDeterministicTime(timeSpent)

	var newScore float64
	if timeSpent != 0 {
		newScore = float64(gain) / timeSpent
	}
	info := &s.runInfos[s.selectedIndex]
	info.Score = math.Max(minScore, info.Score*(1-erosionRate)+erosionRate*newScore)

	if newSolutionFound {
		s.updateOrder()
		s.selectedIndex = len(s.runInfos)
	}
}

func (s *OptimizerSelector) newSolutionFound(gain int64) {
	info := &s.runInfos[s.selectedIndex]
	info.NumSuccesses++
	info.TotalGain += gain
	for i := range s.runInfos {
		s.runInfos[i].TimeSpentSinceLastSolution = 0
		s.runInfos[i].Selectable = true
	}
}

func (s *OptimizerSelector) updateDeterministicTime(timeSpent float64) {
	info := &s.runInfos[s.selectedIndex]
	info.TimeSpent += timeSpent
	info.TimeSpentSinceLastSolution += timeSpent
}

// updateOrder stable-sorts run_infos_ by descending score, breaking ties
// between two zero-gain optimizers by ascending time spent, exactly as
// spec.md §4.11 describes.
func (s *OptimizerSelector) updateOrder() {
	n := len(s.runInfos)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := s.runInfos[order[i]], s.runInfos[order[j]]
		if a.TotalGain == 0 && b.TotalGain == 0 {
			return a.TimeSpent < b.TimeSpent
		}
		return a.Score > b.Score
	})

	newInfos := make([]RunInfo, n)
	newOriginal := make([]int, n)
	for pos, idx := range order {
		newInfos[pos] = s.runInfos[idx]
		newOriginal[pos] = s.originalIndex[idx]
	}
	s.runInfos = newInfos
	s.originalIndex = newOriginal
	for pos, optimizerIndex := range s.originalIndex {
		s.infoPositions[optimizerIndex] = pos
	}
}

// MarkUnselectable clears the optimizer's selectable flag until the next
// UpdateScore call restores everyone's selectability (spec.md §4.11: an
// ABORT return means "can't be run until a new solution is found").
func (s *OptimizerSelector) MarkUnselectable(optimizerIndex int) {
	s.runInfos[s.infoPositions[optimizerIndex]].Selectable = false
}

// SetRunnable updates whether optimizerIndex currently qualifies to run.
func (s *OptimizerSelector) SetRunnable(optimizerIndex int, runnable bool) {
	s.runInfos[s.infoPositions[optimizerIndex]].Runnable = runnable
}

// Stats returns a snapshot of every RunInfo in current (score-sorted)
// order, for run-summary logging.
func (s *OptimizerSelector) Stats() []RunInfo {
	return append([]RunInfo(nil), s.runInfos...)
}
