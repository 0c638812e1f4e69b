package websocket

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/getmockd/stubby/pkg/stub"
)

// Connection wraps an accepted websocket.Conn and implements Sender.
type Connection struct {
	id           string
	url          string
	conn         *ws.Conn
	subprotocol  string
	remoteAddr   string
	connectedAt  time.Time
	messagesSent atomic.Int64
	messagesRecv atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	sendMu sync.RWMutex // Coordinates Send with Close
	closed atomic.Bool
}

var _ Sender = (*Connection)(nil)

// NewConnection creates a new Connection wrapping a websocket.Conn.
func NewConnection(wsConn *ws.Conn, r *http.Request) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		id:          uuid.NewString(),
		url:         r.URL.Path,
		conn:        wsConn,
		subprotocol: wsConn.Subprotocol(),
		remoteAddr:  r.RemoteAddr,
		connectedAt: time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns the unique connection ID.
func (c *Connection) ID() string { return c.id }

// Subprotocol returns the negotiated subprotocol.
func (c *Connection) Subprotocol() string { return c.subprotocol }

// Context is cancelled when the connection closes.
func (c *Connection) Context() context.Context { return c.ctx }

// MessagesSent returns the total messages sent.
func (c *Connection) MessagesSent() int64 { return c.messagesSent.Load() }

// MessagesReceived returns the total messages received.
func (c *Connection) MessagesReceived() int64 { return c.messagesRecv.Load() }

// IsClosed returns whether the connection is closed.
func (c *Connection) IsClosed() bool { return c.closed.Load() }

// Send sends a message to the client.
func (c *Connection) Send(ctx context.Context, t stub.MessageType, data []byte) error {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()

	if c.closed.Load() {
		return ErrConnectionClosed
	}
	if err := c.conn.Write(ctx, toWireType(t), data); err != nil {
		return err
	}
	c.messagesSent.Add(1)
	return nil
}

// SendFragmented sends one message as a run of continuation frames, each
// carrying at most size bytes of payload.
func (c *Connection) SendFragmented(ctx context.Context, t stub.MessageType, data []byte, size int) error {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()

	if c.closed.Load() {
		return ErrConnectionClosed
	}

	w, err := c.conn.Writer(ctx, toWireType(t))
	if err != nil {
		return err
	}
	for _, chunk := range fragments(data, size) {
		if _, err := w.Write(chunk); err != nil {
			_ = w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	c.messagesSent.Add(1)
	return nil
}

// Read reads the next message from the connection.
func (c *Connection) Read() (stub.MessageType, []byte, error) {
	// Close cancels the context, which unblocks Read.
	if c.closed.Load() {
		return "", nil, ErrConnectionClosed
	}
	wsType, data, err := c.conn.Read(c.ctx)
	if err != nil {
		return "", nil, err
	}
	c.messagesRecv.Add(1)
	return fromWireType(wsType), data, nil
}

// Close closes the connection with the given close code and reason.
func (c *Connection) Close(code CloseCode, reason string) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed.Swap(true) {
		return nil
	}
	err := c.conn.Close(ws.StatusCode(code), reason)
	c.cancel()
	return err
}
