package retrieval

import (
	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
	"github.com/kailas-cloud/rulesage/internal/domain/query"
)

// matchEntities returns, per entity, the index of the first candidate whose
// normalized title equals it, or -1. Matching is exact: "dragon" never
// matches "black dragon".
func matchEntities(cands []candidate.Candidate, entities []string) []int {
	idx := make([]int, len(entities))
	for e, name := range entities {
		idx[e] = -1
		for i := range cands {
			if query.NormalizeTitle(cands[i].Title()) == name {
				idx[e] = i
				break
			}
		}
	}
	return idx
}

// prioritize moves each entity's representative to the front in extraction
// order; everything else keeps its relative order. reps lists the
// representatives that were found, deduplicated.
func prioritize(cands []candidate.Candidate, entities []string) (ordered, reps []candidate.Candidate) {
	if len(entities) == 0 || len(cands) == 0 {
		return cands, nil
	}

	front := make(map[int]bool, len(entities))
	for _, i := range matchEntities(cands, entities) {
		if i < 0 || front[i] {
			continue
		}
		front[i] = true
		reps = append(reps, cands[i])
	}
	if len(reps) == 0 {
		return cands, nil
	}

	ordered = make([]candidate.Candidate, 0, len(cands))
	ordered = append(ordered, reps...)
	for i := range cands {
		if !front[i] {
			ordered = append(ordered, cands[i])
		}
	}
	return ordered, reps
}
