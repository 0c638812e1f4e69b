package requestlog

// Logger is the minimal interface for recording entries.
type Logger interface {
	Log(entry *Entry)
}

// Store defines the interface for request history storage.
// Store embeds Logger, so any Store implementation can be used where Logger is expected.
type Store interface {
	Logger

	// Get retrieves an entry by ID, or nil.
	Get(id string) *Entry

	// List returns entries newest first, optionally filtered.
	List(filter *Filter) []*Entry

	// Clear removes all entries.
	Clear()

	// Count returns the number of entries.
	Count() int
}

// Filter defines criteria for filtering request logs.
type Filter struct {
	Protocol string
	Method   string
	// Path filters by path prefix.
	Path    string
	Outcome string
	// ResourceID filters by matched stub when non-nil.
	ResourceID *int
	StatusCode int

	// Limit is the maximum number of entries to return.
	Limit int
	// Offset is the number of entries to skip.
	Offset int
}

func (f *Filter) matches(e *Entry) bool {
	if f.Protocol != "" && e.Protocol != f.Protocol {
		return false
	}
	if f.Method != "" && e.Method != f.Method {
		return false
	}
	if f.Path != "" && !hasPathPrefix(e.Path, f.Path) {
		return false
	}
	if f.Outcome != "" && e.Outcome != f.Outcome {
		return false
	}
	if f.ResourceID != nil && e.ResourceID != *f.ResourceID {
		return false
	}
	if f.StatusCode != 0 && e.ResponseStatus != f.StatusCode {
		return false
	}
	return true
}

func hasPathPrefix(path, prefix string) bool {
	return len(path) >= len(prefix) && path[:len(prefix)] == prefix
}
