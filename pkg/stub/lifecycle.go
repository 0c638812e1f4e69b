package stub

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Lifecycle pairs a Request with one response or an ordered sequence of them.
type Lifecycle struct {
	UUID        string
	Description string
	Request     *Request
	Responses   []*Response
	ResourceID  int
	// Source is the YAML block the lifecycle was loaded from.
	Source *yaml.Node
}

// NewLifecycle validates l and stamps resourceID on it and all its responses.
func NewLifecycle(l Lifecycle, resourceID int) (*Lifecycle, error) {
	if l.Request == nil {
		return nil, fmt.Errorf("lifecycle %q: request must be configured", l.UUID)
	}
	if len(l.Responses) == 0 {
		return nil, fmt.Errorf("lifecycle %q: %w", l.UUID, ErrNoResponses)
	}

	out := l
	out.ResourceID = resourceID
	for _, r := range out.Responses {
		r.ResourceID = resourceID
	}
	return &out, nil
}

// IsSequenced reports whether the lifecycle cycles through several responses.
func (l *Lifecycle) IsSequenced() bool {
	return len(l.Responses) > 1
}
