package candidate

// Metadata keys the engine reads from corpus chunks.
const (
	MetaName             = "name"
	MetaTitle            = "title"
	MetaType             = "type"
	MetaSpellSchool      = "spell_school"
	MetaParentCategoryID = "parent_category_id"
	MetaQueryMust        = "query_must"
)

// Candidate is one retrieved corpus chunk with its distance to the query.
// Lower distance means more similar. Values are immutable once built.
type Candidate struct {
	id       string
	title    string
	distance float64
	document string
	metadata map[string]string
}

// New creates a candidate. Negative distances are clamped to zero.
func New(id, title string, distance float64, document string, metadata map[string]string) Candidate {
	if distance < 0 {
		distance = 0
	}
	return Candidate{
		id: id, title: title, distance: distance,
		document: document, metadata: metadata,
	}
}

// ID returns the chunk identifier.
func (c *Candidate) ID() string { return c.id }

// Title returns the chunk title (entity name for monsters, spells, tables).
func (c *Candidate) Title() string { return c.title }

// Distance returns the dissimilarity score.
func (c *Candidate) Distance() float64 { return c.distance }

// Document returns the chunk text.
func (c *Candidate) Document() string { return c.document }

// Metadata returns a copy of the chunk metadata.
func (c *Candidate) Metadata() map[string]string {
	if c.metadata == nil {
		return nil
	}
	out := make(map[string]string, len(c.metadata))
	for k, v := range c.metadata {
		out[k] = v
	}
	return out
}

// Meta returns a single metadata value, or "" when absent.
func (c *Candidate) Meta(key string) string { return c.metadata[key] }

// WithDistance returns a copy of the candidate with a different distance.
func (c *Candidate) WithDistance(d float64) Candidate {
	return New(c.id, c.title, d, c.document, c.metadata)
}

// IDs returns the identifiers of cands in order.
func IDs(cands []Candidate) []string {
	ids := make([]string, len(cands))
	for i := range cands {
		ids[i] = cands[i].id
	}
	return ids
}

// Distances returns the distances of cands in order.
func Distances(cands []Candidate) []float64 {
	ds := make([]float64, len(cands))
	for i := range cands {
		ds[i] = cands[i].distance
	}
	return ds
}
