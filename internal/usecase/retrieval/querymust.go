package retrieval

import (
	"go.uber.org/zap"

	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
	"github.com/kailas-cloud/rulesage/internal/domain/query"
	"github.com/kailas-cloud/rulesage/internal/domain/querymust"
)

// referenceType chunks (explanatory notes) are never filtered by query_must.
const referenceType = "reference"

// applyQueryMust drops candidates whose query_must requirement the query does
// not meet. Entity representatives and reference chunks always pass, and an
// unparsable requirement passes too.
func (s *Service) applyQueryMust(
	log *zap.Logger, raw string, entities []string, cands []candidate.Candidate,
) (kept []candidate.Candidate, dropped []string) {
	protected := make(map[string]bool, len(entities))
	for _, e := range entities {
		protected[e] = true
	}

	kept = make([]candidate.Candidate, 0, len(cands))
	for i := range cands {
		c := cands[i]
		decl := c.Meta(candidate.MetaQueryMust)
		if decl == "" || c.Meta(candidate.MetaType) == referenceType ||
			protected[query.NormalizeTitle(c.Title())] {
			kept = append(kept, c)
			continue
		}

		req, err := querymust.Parse(decl)
		if err != nil {
			log.Warn("Ignoring malformed query_must",
				zap.String("id", c.ID()), zap.Error(err))
			kept = append(kept, c)
			continue
		}
		if failed, ok := req.Check(raw); !ok {
			log.Debug("Candidate dropped by query_must",
				zap.String("id", c.ID()), zap.String("operator", failed))
			dropped = append(dropped, c.ID())
			continue
		}
		kept = append(kept, c)
	}
	return kept, dropped
}
