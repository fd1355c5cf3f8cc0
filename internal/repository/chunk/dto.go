package chunk

import (
	"github.com/kailas-cloud/rulesage/internal/db"
	"github.com/kailas-cloud/rulesage/internal/domain/candidate"
)

// Reserved hash fields. Vector blobs are never returned as metadata.
const (
	FieldContent = "__content"
	FieldVector  = "__vector"
	FieldScore   = "__vector_score"
)

// FromHash builds a candidate from flat hash fields.
// Title comes from "name", then "title", then the id.
func FromHash(id string, fields map[string]string, distance float64) candidate.Candidate {
	var content string
	meta := make(map[string]string, len(fields))

	for k, v := range fields {
		switch k {
		case FieldContent:
			content = v
		case FieldVector, FieldScore, db.DefaultVectorField:
		default:
			meta[k] = v
		}
	}

	title := meta[candidate.MetaName]
	if title == "" {
		title = meta[candidate.MetaTitle]
	}
	if title == "" {
		title = id
	}

	return candidate.New(id, title, distance, content, meta)
}
