package db

// DefaultVectorField is the KNN vector attribute used when a query names none.
const DefaultVectorField = "vector"

// KNNQuery is a nearest-neighbor lookup against an FT index.
type KNNQuery struct {
	IndexName   string
	VectorField string
	Vector      []float32
	K           int
	// ReturnFields limits the hash fields returned. Empty returns every field.
	ReturnFields []string
}

// SearchResult holds KNN hits, closest first.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is one hit. Distance is the index's cosine distance (lower is closer).
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
