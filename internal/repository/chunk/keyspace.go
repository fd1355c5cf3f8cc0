package chunk

import "strings"

// Keyspace names the index and hash keys of one corpus collection.
type Keyspace struct {
	Prefix     string
	Collection string
	// VectorField is the KNN attribute of the index; empty means db.DefaultVectorField.
	VectorField string
}

// IndexName returns the FT index name, e.g. "rulesage:chunks:idx".
func (k Keyspace) IndexName() string {
	return k.Prefix + k.Collection + ":idx"
}

// Key returns the hash key of chunk id.
func (k Keyspace) Key(id string) string {
	return k.keyPrefix() + id
}

// ID strips the collection prefix from a hash key.
func (k Keyspace) ID(key string) string {
	return strings.TrimPrefix(key, k.keyPrefix())
}

func (k Keyspace) keyPrefix() string {
	return k.Prefix + k.Collection + ":"
}
