// Package websocket serves scripted web socket exchanges.
//
// Each accepted connection gets its own Session, a small state machine
// (connecting, open, closed) that sends the configured on-open response and
// answers client messages from the on-message entries of the matching
// stub.WebSocketConfig. Sequence cursors live on the Session, so two clients
// replaying the same script never advance each other's position.
//
// Usage:
//
//	h := websocket.NewHandler(websocket.WithLogger(logger))
//
//	// In an HTTP handler, once the config for r.URL.Path is known:
//	err := h.Serve(w, r, cfg)
//
// The package uses github.com/coder/websocket for the protocol.
package websocket
