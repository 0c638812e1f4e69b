package websocket

import (
	ws "github.com/coder/websocket"

	"github.com/getmockd/stubby/pkg/stub"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CloseCode represents a WebSocket close status code per RFC 6455.
type CloseCode int

const (
	// CloseNormalClosure indicates a normal closure.
	CloseNormalClosure CloseCode = 1000
	// CloseGoingAway indicates the endpoint is going away.
	CloseGoingAway CloseCode = 1001
	// ClosePolicyViolation indicates a policy violation.
	ClosePolicyViolation CloseCode = 1008
	// CloseInternalError indicates an internal server error.
	CloseInternalError CloseCode = 1011
)

func toWireType(t stub.MessageType) ws.MessageType {
	if t == stub.MessageBinary {
		return ws.MessageBinary
	}
	return ws.MessageText
}

func fromWireType(t ws.MessageType) stub.MessageType {
	if t == ws.MessageBinary {
		return stub.MessageBinary
	}
	return stub.MessageText
}
