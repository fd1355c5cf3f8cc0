package retrieval

import (
	"slices"

	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
)

// Strategy names the rule that decided the gap filter's cut.
type Strategy string

// Strategy values.
const (
	StrategyEmpty       Strategy = "empty"
	StrategyPassthrough Strategy = "passthrough"
	StrategyGap         Strategy = "gap"
	StrategyThreshold   Strategy = "threshold"
)

type filterParams struct {
	gapThreshold   float64
	distanceMargin float64
	minResults     int
	maxResults     int
}

type filterOutcome struct {
	kept      []candidate.Candidate
	gaps      []float64
	cutIndex  int // -1 when no gap cut happened
	threshold float64
	strategy  Strategy
	forced    []candidate.Candidate
}

// gapFilter trims a prioritized candidate sequence to the relevant head.
//
// The largest non-negative gap in the window [1, L-3] is the cut candidate;
// gap 0 and the final gap are never selected. If that gap clears
// gapThreshold the sequence is cut after it. Otherwise every candidate within
// distanceMargin of the first one survives. Survivors are clamped to
// [minResults, maxResults], then any entity representative in reps that fell
// out is appended back.
func gapFilter(cands []candidate.Candidate, p filterParams, reps []candidate.Candidate) filterOutcome {
	out := filterOutcome{cutIndex: -1}
	n := len(cands)
	if n == 0 {
		out.strategy = StrategyEmpty
		return out
	}

	minResults, maxResults := p.minResults, p.maxResults
	if maxResults < 1 {
		maxResults = n
	}
	if minResults > maxResults {
		minResults = maxResults
	}

	out.gaps = make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		out.gaps[i] = cands[i+1].Distance() - cands[i].Distance()
	}

	if n <= minResults {
		out.strategy = StrategyPassthrough
		out.kept = slices.Clone(cands)
		return out
	}

	keep := make([]bool, n)
	best := -1
	for i := 1; i <= n-3; i++ {
		g := out.gaps[i]
		if g < 0 {
			continue
		}
		if best < 0 || g > out.gaps[best] {
			best = i
		}
	}

	if best >= 0 && out.gaps[best] >= p.gapThreshold {
		out.strategy = StrategyGap
		out.cutIndex = best
		for i := 0; i <= best; i++ {
			keep[i] = true
		}
	} else {
		out.strategy = StrategyThreshold
		out.threshold = cands[0].Distance() + p.distanceMargin
		for i := range cands {
			if cands[i].Distance() <= out.threshold {
				keep[i] = true
			}
		}
	}

	clamp(cands, keep, minResults, maxResults)

	out.kept = make([]candidate.Candidate, 0, maxResults)
	for i := range cands {
		if keep[i] {
			out.kept = append(out.kept, cands[i])
		}
	}

	for _, r := range reps {
		if !containsID(out.kept, r.ID()) {
			out.kept = append(out.kept, r)
			out.forced = append(out.forced, r)
		}
	}
	return out
}

// clamp grows keep with the closest excluded candidates up to lo, then
// shrinks it to the closest hi. Ties on distance go to the earlier position.
func clamp(cands []candidate.Candidate, keep []bool, lo, hi int) {
	byDistance := make([]int, len(cands))
	for i := range byDistance {
		byDistance[i] = i
	}
	slices.SortStableFunc(byDistance, func(a, b int) int {
		da, db := cands[a].Distance(), cands[b].Distance()
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})

	count := 0
	for _, k := range keep {
		if k {
			count++
		}
	}

	for _, i := range byDistance {
		if count >= lo {
			break
		}
		if !keep[i] {
			keep[i] = true
			count++
		}
	}

	if count <= hi {
		return
	}
	seen := 0
	for _, i := range byDistance {
		if !keep[i] {
			continue
		}
		seen++
		if seen > hi {
			keep[i] = false
		}
	}
}

func containsID(cands []candidate.Candidate, id string) bool {
	for i := range cands {
		if cands[i].ID() == id {
			return true
		}
	}
	return false
}
