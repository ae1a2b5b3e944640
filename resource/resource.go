package resource

// Resource is a handle to a storable unit of data.
type Resource interface {
	// Key identifies the underlying location. Two resources are equal iff
	// their keys are equal.
	Key() string
	// Name is the short location name (table name or object path).
	Name() string
	// Schema returns the resource schema, or nil when it is schemaless.
	Schema() *Schema
	// Relocate returns a handle of the same kind at another location.
	Relocate(name string) Resource
}

// Equal reports whether a and b denote the same location. Nil handles are
// equal only to each other.
func Equal(a, b Resource) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

// Names returns the names of rs in order.
func Names(rs []Resource) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name()
	}
	return out
}
