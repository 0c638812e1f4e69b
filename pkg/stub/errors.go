package stub

import "errors"

// Sentinel errors returned by the validating constructors.
var (
	// ErrInvalidValue indicates an enum literal that is not recognized.
	ErrInvalidValue = errors.New("invalid value")
	// ErrMissingEndpoint indicates a proxy config without an endpoint property.
	ErrMissingEndpoint = errors.New("proxy config must define the 'endpoint' property")
	// ErrInvalidEndpoint indicates a proxy endpoint that is not an absolute http(s) URL.
	ErrInvalidEndpoint = errors.New("proxy config 'endpoint' must be an absolute http or https URL")
	// ErrMissingURL indicates a web socket config without a url.
	ErrMissingURL = errors.New("web socket config must define the 'url' property")
	// ErrNoWebSocketHandlers indicates a web socket config with neither on-open nor on-message.
	ErrNoWebSocketHandlers = errors.New("web socket config must have at least one of the two 'on-open' or 'on-message' defined")
	// ErrDuplicateClientRequestText indicates two on-message entries expecting the same text.
	ErrDuplicateClientRequestText = errors.New("web socket on-message contains multiple client-request with the same body text")
	// ErrDuplicateClientRequestBytes indicates two on-message entries expecting the same bytes.
	ErrDuplicateClientRequestBytes = errors.New("web socket on-message contains multiple client-request with the same body bytes")
	// ErrNoResponses indicates a lifecycle or on-message entry without a response.
	ErrNoResponses = errors.New("at least one response must be configured")
)

// InvalidValueError reports an enum literal that failed lookup. Its message is
// the offending literal itself so callers can surface it verbatim.
type InvalidValueError struct {
	Kind  string
	Value string
}

func (e *InvalidValueError) Error() string {
	return e.Value
}

// Unwrap allows errors.Is(err, ErrInvalidValue).
func (e *InvalidValueError) Unwrap() error {
	return ErrInvalidValue
}
