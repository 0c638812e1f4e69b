package stub

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientRequest is the message a client must send to trigger an on-message entry.
type ClientRequest struct {
	MessageType MessageType
	Body        []byte
	File        string
}

// ServerResponse is a message the server emits on open or in reply to a client message.
type ServerResponse struct {
	Policy      Policy
	MessageType MessageType
	Body        []byte
	File        string
	Delay       time.Duration
	Source      *yaml.Node
}

// OnMessage pairs a ClientRequest with one server response or a sequence of them.
type OnMessage struct {
	ClientRequest   *ClientRequest
	ServerResponses []*ServerResponse
	Source          *yaml.Node
}

// IsSequenced reports whether the entry cycles through several responses.
func (o *OnMessage) IsSequenced() bool {
	return len(o.ServerResponses) > 1
}

// WebSocketConfig scripts the exchange on one web socket URL.
type WebSocketConfig struct {
	URL          string
	UUID         string
	Description  string
	SubProtocols []string
	OnOpen       *ServerResponse
	OnMessage    []*OnMessage
	Source       *yaml.Node
}

// NewServerResponse applies the once/text defaults.
func NewServerResponse(r ServerResponse) *ServerResponse {
	out := r
	if out.Policy == "" {
		out.Policy = PolicyOnce
	}
	if out.MessageType == "" {
		out.MessageType = MessageText
	}
	return &out
}

// NewClientRequest applies the text default.
func NewClientRequest(r ClientRequest) *ClientRequest {
	out := r
	if out.MessageType == "" {
		out.MessageType = MessageText
	}
	return &out
}

// NewWebSocketConfig validates c: the url is required, at least one of
// on-open or on-message must be present, and no two on-message entries may
// expect the same client message.
func NewWebSocketConfig(c WebSocketConfig) (*WebSocketConfig, error) {
	if c.URL == "" {
		return nil, ErrMissingURL
	}
	if c.OnOpen == nil && len(c.OnMessage) == 0 {
		return nil, fmt.Errorf("%s: %w", c.URL, ErrNoWebSocketHandlers)
	}

	texts := make(map[string]struct{}, len(c.OnMessage))
	binaries := make(map[string]struct{}, len(c.OnMessage))
	for _, om := range c.OnMessage {
		if om.ClientRequest == nil || len(om.ServerResponses) == 0 {
			return nil, fmt.Errorf("%s: on-message: %w", c.URL, ErrNoResponses)
		}
		key := string(om.ClientRequest.Body)
		if om.ClientRequest.MessageType == MessageBinary {
			if _, dup := binaries[key]; dup {
				return nil, ErrDuplicateClientRequestBytes
			}
			binaries[key] = struct{}{}
			continue
		}
		if _, dup := texts[key]; dup {
			return nil, ErrDuplicateClientRequestText
		}
		texts[key] = struct{}{}
	}

	out := c
	return &out, nil
}

// SupportsSubProtocol reports whether p is among the configured sub-protocols.
func (c *WebSocketConfig) SupportsSubProtocol(p string) bool {
	for _, sp := range c.SubProtocols {
		if sp == p {
			return true
		}
	}
	return false
}
