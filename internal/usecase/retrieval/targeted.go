package retrieval

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
)

// searchMissingEntities runs a 1-NN search for every entity without an exact
// title match in the pool and appends hits that are not already present.
// Failures are logged and skipped; the primary pool always stands.
func (s *Service) searchMissingEntities(
	ctx context.Context, log *zap.Logger, entities []string, pool []candidate.Candidate,
) ([]candidate.Candidate, []string) {
	var missing []string
	for e, idx := range matchEntities(pool, entities) {
		if idx < 0 {
			missing = append(missing, entities[e])
		}
	}
	if len(missing) == 0 {
		return pool, nil
	}

	hits := make([][]candidate.Candidate, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range missing {
		g.Go(func() error {
			found, err := s.search.Search(gctx, name, 1)
			if err != nil {
				log.Warn("Targeted entity search failed",
					zap.String("entity", name), zap.Error(err))
				return nil
			}
			hits[i] = found
			return nil
		})
	}
	_ = g.Wait()

	var added []string
	for _, found := range hits {
		for j := range found {
			if containsID(pool, found[j].ID()) {
				continue
			}
			pool = append(pool, found[j])
			added = append(added, found[j].ID())
		}
	}
	return pool, added
}
