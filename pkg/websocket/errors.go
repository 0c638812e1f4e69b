package websocket

import "errors"

var (
	// ErrConnectionClosed indicates the connection is closed.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSessionClosed indicates the session reached its terminal state.
	ErrSessionClosed = errors.New("session closed")
	// ErrSessionNotOpen indicates a message arrived before the session opened.
	ErrSessionNotOpen = errors.New("session not open")
	// ErrSubprotocolMismatch indicates the requested subprotocol is not supported.
	ErrSubprotocolMismatch = errors.New("subprotocol not supported")
)
