package stub

import "strings"

// AuthKind is one of the authorization header properties a request may declare.
type AuthKind string

// Authorization properties recognized under request headers.
const (
	AuthBasic  AuthKind = "authorization-basic"
	AuthBearer AuthKind = "authorization-bearer"
	AuthCustom AuthKind = "authorization-custom"
)

// ProxyStrategy controls how a proxied request is rewritten before forwarding.
type ProxyStrategy string

// Proxy strategies.
const (
	StrategyAsIs     ProxyStrategy = "as-is"
	StrategyAdditive ProxyStrategy = "additive"
)

// MessageType is the web socket frame kind of a client request or server response.
type MessageType string

// Web socket message types.
const (
	MessageText   MessageType = "text"
	MessageBinary MessageType = "binary"
)

// Policy controls how a web socket server response is emitted.
type Policy string

// Web socket server response policies.
const (
	PolicyOnce          Policy = "once"
	PolicyPush          Policy = "push"
	PolicyFragmentation Policy = "fragmentation"
	PolicyDisconnect    Policy = "disconnect"
)

var (
	authKinds    = lookupTable(AuthBasic, AuthBearer, AuthCustom)
	strategies   = lookupTable(StrategyAsIs, StrategyAdditive)
	messageTypes = lookupTable(MessageText, MessageBinary)
	policies     = lookupTable(PolicyOnce, PolicyPush, PolicyFragmentation, PolicyDisconnect)
)

func lookupTable[T ~string](values ...T) map[string]T {
	m := make(map[string]T, len(values))
	for _, v := range values {
		m[string(v)] = v
	}
	return m
}

func lookup[T ~string](table map[string]T, kind, s string) (T, error) {
	if v, ok := table[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v, nil
	}
	var zero T
	return zero, &InvalidValueError{Kind: kind, Value: s}
}

// ParseAuthKind looks up an authorization property name, ignoring case.
func ParseAuthKind(s string) (AuthKind, error) {
	return lookup(authKinds, "authorization", s)
}

// IsAuthKind reports whether s names one of the authorization properties.
func IsAuthKind(s string) bool {
	_, err := ParseAuthKind(s)
	return err == nil
}

// ParseProxyStrategy looks up a proxy strategy, ignoring case.
func ParseProxyStrategy(s string) (ProxyStrategy, error) {
	return lookup(strategies, "strategy", s)
}

// ParseMessageType looks up a web socket message type, ignoring case.
func ParseMessageType(s string) (MessageType, error) {
	return lookup(messageTypes, "message-type", s)
}

// ParsePolicy looks up a web socket response policy, ignoring case.
func ParsePolicy(s string) (Policy, error) {
	return lookup(policies, "policy", s)
}
