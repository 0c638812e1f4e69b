package config

// Property names recognized in stubs YAML.
const (
	propUUID         = "uuid"
	propDescription  = "description"
	propRequest      = "request"
	propResponse     = "response"
	propMethod       = "method"
	propURL          = "url"
	propQuery        = "query"
	propHeaders      = "headers"
	propPost         = "post"
	propFile         = "file"
	propStatus       = "status"
	propBody         = "body"
	propLatency      = "latency"
	propProxyConfig  = "proxy-config"
	propStrategy     = "strategy"
	propProperties   = "properties"
	propWebSocket    = "web-socket"
	propSubProtocols = "sub-protocols"
	propOnOpen       = "on-open"
	propOnMessage    = "on-message"
	propClientReq    = "client-request"
	propServerResp   = "server-response"
	propMessageType  = "message-type"
	propPolicy       = "policy"
	propDelay        = "delay"
	propIncludes     = "includes"
)

// Containers a property can appear in. The names double as the object names
// reported in validation errors.
const (
	objRoot           = "root"
	objStub           = "stub"
	objRequest        = propRequest
	objResponse       = propResponse
	objProxyConfig    = propProxyConfig
	objWebSocket      = propWebSocket
	objOnMessage      = propOnMessage
	objClientRequest  = propClientReq
	objServerResponse = propServerResp
	objIncludes       = "includes-root"
)

// propertyOrder lists each container's properties in canonical order, the
// order blocks are rendered in.
var propertyOrder = map[string][]string{
	objRoot:           {propProxyConfig, propWebSocket},
	objStub:           {propUUID, propDescription, propRequest, propResponse},
	objRequest:        {propMethod, propURL, propQuery, propHeaders, propPost, propFile},
	objResponse:       {propStatus, propHeaders, propBody, propFile, propLatency},
	objProxyConfig:    {propUUID, propDescription, propStrategy, propProperties, propHeaders},
	objWebSocket:      {propUUID, propDescription, propURL, propSubProtocols, propOnOpen, propOnMessage},
	objOnMessage:      {propClientReq, propServerResp},
	objClientRequest:  {propMessageType, propBody, propFile},
	objServerResponse: {propPolicy, propMessageType, propBody, propFile, propDelay},
	objIncludes:       {propIncludes},
}

var allowedProperties = func() map[string]map[string]struct{} {
	all := make(map[string]map[string]struct{}, len(propertyOrder))
	for obj, props := range propertyOrder {
		all[obj] = set(props...)
	}
	return all
}()

// knownProperties is the union of every container's properties.
var knownProperties = func() map[string]struct{} {
	all := make(map[string]struct{})
	for _, props := range allowedProperties {
		for p := range props {
			all[p] = struct{}{}
		}
	}
	return all
}()

func set(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

// checkProperty validates that key may appear in container.
func checkProperty(container, key string) error {
	if _, ok := allowedProperties[container][key]; ok {
		return nil
	}
	if _, ok := knownProperties[key]; !ok {
		return invalid(ErrUnknownProperty, "unknown property configured: %s", key)
	}
	if container == objStub {
		if _, ok := allowedProperties[objRequest][key]; ok {
			return invalid(ErrMisplacedProperty,
				"invalid property '%s' configured, it cannot be configured above the '%s'", key, propRequest)
		}
	}
	return invalid(ErrMisplacedProperty,
		"invalid property '%s' configured, it does not belong in object '%s'", key, container)
}
