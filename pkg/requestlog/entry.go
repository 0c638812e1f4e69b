package requestlog

import "time"

// Protocol constants for request logging.
const (
	ProtocolHTTP      = "http"
	ProtocolWebSocket = "websocket"
)

// Outcome constants describe how a request was answered.
const (
	OutcomeMatched  = "matched"
	OutcomeProxied  = "proxied"
	OutcomeNotFound = "not_found"
	OutcomeUpgraded = "upgraded"
	OutcomeError    = "error"
)

// MaxBodySize is how much of a request body an entry keeps.
const MaxBodySize = 10 << 10

// Entry captures one request and how it was answered.
type Entry struct {
	// ID is the request id (X-Request-Id) or a generated one.
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Protocol  string    `json:"protocol"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`

	QueryString string              `json:"queryString,omitempty"`
	Headers     map[string][]string `json:"headers,omitempty"`

	// Body is the request body, truncated to MaxBodySize.
	Body string `json:"body,omitempty"`
	// BodySize is the original body size in bytes.
	BodySize   int    `json:"bodySize"`
	RemoteAddr string `json:"remoteAddr"`

	Outcome string `json:"outcome"`
	// ResourceID is the matched stub, or -1.
	ResourceID  int    `json:"resourceId"`
	ProxyConfig string `json:"proxyConfig,omitempty"`

	ResponseStatus int   `json:"responseStatus"`
	DurationMs     int64 `json:"durationMs"`

	Error string `json:"error,omitempty"`
	// NearMiss is set on unmatched requests when some stub came close.
	NearMiss *NearMissInfo `json:"nearMiss,omitempty"`
}

// TruncateBody returns body cut to MaxBodySize.
func TruncateBody(body []byte) string {
	if len(body) > MaxBodySize {
		return string(body[:MaxBodySize])
	}
	return string(body)
}
