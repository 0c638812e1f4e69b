package config

import (
	"gopkg.in/yaml.v3"

	"github.com/getmockd/stubby/pkg/stub"
)

func (l *loader) parseLifecycle(b block, resourceID int) (*stub.Lifecycle, error) {
	es, err := entries(b.node, objStub)
	if err != nil {
		return nil, err
	}

	lc := stub.Lifecycle{Source: b.node}
	for _, e := range es {
		switch e.key {
		case propUUID:
			lc.UUID, err = l.str(e.value, e.key)
		case propDescription:
			lc.Description, err = l.str(e.value, e.key)
		case propRequest:
			lc.Request, err = l.parseRequest(e.value, b.baseDir)
		case propResponse:
			lc.Responses, err = l.parseResponses(e.value, b.baseDir)
		}
		if err != nil {
			return nil, err
		}
	}

	if lc.Request == nil {
		return nil, invalid(ErrMissingProperty, "stub must define the '%s' property", propRequest)
	}
	if lc.Responses == nil {
		lc.Responses = []*stub.Response{stub.NewResponse(stub.Response{})}
	}

	out, err := stub.NewLifecycle(lc, resourceID)
	if err != nil {
		return nil, asValidation(err)
	}
	return out, nil
}

func (l *loader) parseRequest(n *yaml.Node, baseDir string) (*stub.Request, error) {
	es, err := entries(n, objRequest)
	if err != nil {
		return nil, err
	}

	var r stub.Request
	for _, e := range es {
		switch e.key {
		case propMethod:
			r.Methods, err = l.strList(e.value, e.key)
		case propURL:
			r.URL, err = l.str(e.value, e.key)
		case propQuery:
			r.Query, err = l.strMap(e.value, e.key)
		case propHeaders:
			r.Headers, err = l.strMap(e.value, e.key)
		case propPost:
			r.Post, err = l.str(e.value, e.key)
		case propFile:
			r.RawFile, err = l.str(e.value, e.key)
			if err == nil && r.RawFile != "" {
				data, ok := l.readRef(r.RawFile, baseDir)
				if !ok {
					data = []byte{}
				}
				r.File = data
			}
		}
		if err != nil {
			return nil, err
		}
	}

	if r.URL == "" {
		return nil, invalid(ErrMissingProperty, "request must define the '%s' property", propURL)
	}
	return stub.NewRequest(r), nil
}

// parseResponses accepts a single response mapping or a sequence of them.
func (l *loader) parseResponses(n *yaml.Node, baseDir string) ([]*stub.Response, error) {
	n = deref(n)
	if n != nil && n.Kind == yaml.SequenceNode {
		if len(n.Content) == 0 {
			return nil, asValidation(stub.ErrNoResponses)
		}
		out := make([]*stub.Response, 0, len(n.Content))
		for _, item := range n.Content {
			r, err := l.parseResponse(item, baseDir)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, nil
	}

	r, err := l.parseResponse(n, baseDir)
	if err != nil {
		return nil, err
	}
	return []*stub.Response{r}, nil
}

func (l *loader) parseResponse(n *yaml.Node, baseDir string) (*stub.Response, error) {
	es, err := entries(n, objResponse)
	if err != nil {
		return nil, err
	}

	var r stub.Response
	for _, e := range es {
		switch e.key {
		case propStatus:
			r.Status, err = l.integer(e.value, e.key)
		case propHeaders:
			r.Headers, err = l.strMap(e.value, e.key)
		case propBody:
			var body string
			body, err = l.str(e.value, e.key)
			if err == nil && r.File == "" {
				r.Body = []byte(body)
			}
		case propFile:
			r.File, err = l.str(e.value, e.key)
			if err == nil && r.File != "" {
				r.Body = l.responseFile(r.File, baseDir)
			}
		case propLatency:
			r.Latency, err = l.millis(e.value, e.key)
		}
		if err != nil {
			return nil, err
		}
	}
	return stub.NewResponse(r), nil
}

// responseFile loads a response body reference, substituting the failure
// marker when it cannot be read.
func (l *loader) responseFile(ref, baseDir string) []byte {
	data, ok := l.readRef(ref, baseDir)
	if !ok {
		return []byte(stub.FailedToLoadFileMessage)
	}
	return data
}

func (l *loader) parseProxyBlock(b block) (*stub.ProxyConfig, error) {
	wrapper, err := entries(b.node, objRoot)
	if err != nil {
		return nil, err
	}
	if len(wrapper) != 1 {
		return nil, invalid(ErrMisplacedProperty,
			"invalid property '%s' configured, it does not belong in object '%s'", otherKey(wrapper, propProxyConfig), objRoot)
	}
	es, err := entries(wrapper[0].value, objProxyConfig)
	if err != nil {
		return nil, err
	}

	p := stub.ProxyConfig{Source: b.node}
	for _, e := range es {
		switch e.key {
		case propUUID:
			p.UUID, err = l.str(e.value, e.key)
		case propDescription:
			p.Description, err = l.str(e.value, e.key)
		case propStrategy:
			var s string
			if s, err = l.str(e.value, e.key); err == nil {
				p.Strategy, err = stub.ParseProxyStrategy(s)
			}
		case propProperties:
			p.Properties, err = l.strMap(e.value, e.key)
		case propHeaders:
			p.Headers, err = l.strMap(e.value, e.key)
		}
		if err != nil {
			return nil, asValidation(err)
		}
	}

	out, err := stub.NewProxyConfig(p)
	if err != nil {
		return nil, asValidation(err)
	}
	return out, nil
}

func (l *loader) parseWebSocketBlock(b block) (*stub.WebSocketConfig, error) {
	wrapper, err := entries(b.node, objRoot)
	if err != nil {
		return nil, err
	}
	if len(wrapper) != 1 {
		return nil, invalid(ErrMisplacedProperty,
			"invalid property '%s' configured, it does not belong in object '%s'", otherKey(wrapper, propWebSocket), objRoot)
	}
	es, err := entries(wrapper[0].value, objWebSocket)
	if err != nil {
		return nil, err
	}

	c := stub.WebSocketConfig{Source: b.node}
	for _, e := range es {
		switch e.key {
		case propUUID:
			c.UUID, err = l.str(e.value, e.key)
		case propDescription:
			c.Description, err = l.str(e.value, e.key)
		case propURL:
			c.URL, err = l.str(e.value, e.key)
		case propSubProtocols:
			c.SubProtocols, err = l.strList(e.value, e.key)
		case propOnOpen:
			c.OnOpen, err = l.parseServerResponse(e.value, b.baseDir)
		case propOnMessage:
			c.OnMessage, err = l.parseOnMessages(e.value, b.baseDir)
		}
		if err != nil {
			return nil, asValidation(err)
		}
	}

	out, err := stub.NewWebSocketConfig(c)
	if err != nil {
		return nil, asValidation(err)
	}
	return out, nil
}

func (l *loader) parseOnMessages(n *yaml.Node, baseDir string) ([]*stub.OnMessage, error) {
	n = deref(n)
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, invalid(ErrInvalidType, "property '%s' must be a list", propOnMessage)
	}

	out := make([]*stub.OnMessage, 0, len(n.Content))
	for _, item := range n.Content {
		es, err := entries(item, objOnMessage)
		if err != nil {
			return nil, err
		}
		om := &stub.OnMessage{Source: deref(item)}
		for _, e := range es {
			switch e.key {
			case propClientReq:
				om.ClientRequest, err = l.parseClientRequest(e.value, baseDir)
			case propServerResp:
				om.ServerResponses, err = l.parseServerResponses(e.value, baseDir)
			}
			if err != nil {
				return nil, err
			}
		}
		if om.ClientRequest == nil {
			return nil, invalid(ErrMissingProperty, "on-message must define the '%s' property", propClientReq)
		}
		out = append(out, om)
	}
	return out, nil
}

func (l *loader) parseClientRequest(n *yaml.Node, baseDir string) (*stub.ClientRequest, error) {
	es, err := entries(n, objClientRequest)
	if err != nil {
		return nil, err
	}

	var r stub.ClientRequest
	for _, e := range es {
		switch e.key {
		case propMessageType:
			var s string
			if s, err = l.str(e.value, e.key); err == nil {
				r.MessageType, err = stub.ParseMessageType(s)
			}
		case propBody:
			var body string
			body, err = l.str(e.value, e.key)
			if err == nil && r.File == "" {
				r.Body = []byte(body)
			}
		case propFile:
			r.File, err = l.str(e.value, e.key)
			if err == nil && r.File != "" {
				data, _ := l.readRef(r.File, baseDir)
				r.Body = data
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return stub.NewClientRequest(r), nil
}

func (l *loader) parseServerResponses(n *yaml.Node, baseDir string) ([]*stub.ServerResponse, error) {
	n = deref(n)
	if n != nil && n.Kind == yaml.SequenceNode {
		out := make([]*stub.ServerResponse, 0, len(n.Content))
		for _, item := range n.Content {
			r, err := l.parseServerResponse(item, baseDir)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, nil
	}

	r, err := l.parseServerResponse(n, baseDir)
	if err != nil {
		return nil, err
	}
	return []*stub.ServerResponse{r}, nil
}

func (l *loader) parseServerResponse(n *yaml.Node, baseDir string) (*stub.ServerResponse, error) {
	es, err := entries(n, objServerResponse)
	if err != nil {
		return nil, err
	}

	r := stub.ServerResponse{Source: deref(n)}
	for _, e := range es {
		switch e.key {
		case propPolicy:
			var s string
			if s, err = l.str(e.value, e.key); err == nil {
				r.Policy, err = stub.ParsePolicy(s)
			}
		case propMessageType:
			var s string
			if s, err = l.str(e.value, e.key); err == nil {
				r.MessageType, err = stub.ParseMessageType(s)
			}
		case propBody:
			var body string
			body, err = l.str(e.value, e.key)
			if err == nil && r.File == "" {
				r.Body = []byte(body)
			}
		case propFile:
			r.File, err = l.str(e.value, e.key)
			if err == nil && r.File != "" {
				r.Body = l.responseFile(r.File, baseDir)
			}
		case propDelay:
			r.Delay, err = l.millis(e.value, e.key)
		}
		if err != nil {
			return nil, err
		}
	}
	return stub.NewServerResponse(r), nil
}

// otherKey returns the first key of es that is not want.
func otherKey(es []entry, want string) string {
	for _, e := range es {
		if e.key != want {
			return e.key
		}
	}
	return want
}
