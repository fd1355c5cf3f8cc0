package retrieval

import "github.com/kailas-cloud/rulesage/internal/domain/query"

// expandedK is the neighbor count to request from the index. Comparison
// queries widen the pool so both entities have a chance to surface; the cap
// never shrinks it below k.
func expandedK(intent query.Intent, k, factor, limit int) int {
	if intent != query.Comparison {
		return k
	}
	n := k * factor
	if n > limit {
		n = limit
	}
	if n < k {
		n = k
	}
	return n
}
