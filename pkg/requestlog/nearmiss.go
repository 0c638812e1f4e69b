package requestlog

// NearMissInfo is a log-friendly summary of the closest stub for an
// unmatched request.
type NearMissInfo struct {
	ResourceID int    `json:"resourceId"`
	UUID       string `json:"uuid,omitempty"`
	URL        string `json:"url"`
	// Reason is a human-readable explanation of why it didn't fully match.
	Reason string `json:"reason"`
}
