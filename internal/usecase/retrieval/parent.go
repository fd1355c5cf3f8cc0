package retrieval

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rulesage/internal/domain"
	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
)

// insertParentCategory places the top candidate's parent category chunk at
// position 1, scored just behind the top candidate. Lookup failures leave the
// sequence unchanged.
func (s *Service) insertParentCategory(
	ctx context.Context, log *zap.Logger, cands []candidate.Candidate,
) ([]candidate.Candidate, string) {
	if s.docs == nil || len(cands) == 0 {
		return cands, ""
	}
	parentID := cands[0].Meta(candidate.MetaParentCategoryID)
	if parentID == "" || containsID(cands, parentID) {
		return cands, ""
	}

	parent, err := s.docs.Get(ctx, parentID)
	if err != nil {
		level := zap.WarnLevel
		if errors.Is(err, domain.ErrNotFound) {
			level = zap.DebugLevel
		}
		log.Log(level, "Parent category lookup failed",
			zap.String("parent_id", parentID), zap.Error(err))
		return cands, ""
	}

	parent = parent.WithDistance(cands[0].Distance() + s.cfg.ParentCategoryOffset)
	out := make([]candidate.Candidate, 0, len(cands)+1)
	out = append(out, cands[0], parent)
	out = append(out, cands[1:]...)
	return out, parentID
}
