package websocket

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/getmockd/stubby/internal/storage"
	"github.com/getmockd/stubby/pkg/logging"
	"github.com/getmockd/stubby/pkg/stub"
)

// Sender is the outbound side of a connection.
type Sender interface {
	// Send writes one complete message.
	Send(ctx context.Context, t stub.MessageType, data []byte) error
	// SendFragmented writes one message split across frames of at most size bytes.
	SendFragmented(ctx context.Context, t stub.MessageType, data []byte, size int) error
	// Close closes the connection.
	Close(code CloseCode, reason string) error
}

// Session runs the scripted exchange for one connection.
type Session struct {
	cfg          *stub.WebSocketConfig
	sender       Sender
	logger       *slog.Logger
	fragmentSize int

	// done is cancelled on close and stops delayed responses still waiting.
	done    context.Context
	stop    context.CancelFunc
	pending sync.WaitGroup

	mu         sync.Mutex
	state      State
	onOpenSent bool
	cursors    []storage.Cursor
	exhausted  []bool
}

// NewSession creates a session in the connecting state.
func NewSession(cfg *stub.WebSocketConfig, sender Sender, logger *slog.Logger) *Session {
	if logger == nil {
		logger = logging.Nop()
	}
	done, stop := context.WithCancel(context.Background())
	return &Session{
		cfg:          cfg,
		done:         done,
		stop:         stop,
		sender:       sender,
		logger:       logger,
		fragmentSize: DefaultFragmentSize,
		state:        StateConnecting,
		cursors:      make([]storage.Cursor, len(cfg.OnMessage)),
		exhausted:    make([]bool, len(cfg.OnMessage)),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open moves the session to open and emits the on-open response, if any.
// Calling Open again never resends it.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateConnecting {
		st := s.state
		s.mu.Unlock()
		if st == StateClosed {
			return ErrSessionClosed
		}
		return nil
	}
	s.state = StateOpen
	resp := s.cfg.OnOpen
	if resp == nil || s.onOpenSent {
		s.mu.Unlock()
		return nil
	}
	s.onOpenSent = true
	delayed := s.reserve(resp)
	s.mu.Unlock()

	return s.dispatch(ctx, resp, delayed)
}

// HandleMessage answers one client message. A message no on-message entry
// expects is ignored. A response with a delay is sent in the background, so
// a reply to a later message can overtake it.
func (s *Session) HandleMessage(ctx context.Context, t stub.MessageType, data []byte) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return ErrSessionClosed
	case StateConnecting:
		s.mu.Unlock()
		return ErrSessionNotOpen
	}

	idx := s.match(t, data)
	if idx < 0 {
		s.mu.Unlock()
		s.logger.Debug("no on-message entry matched", "url", s.cfg.URL, "type", t, "size", len(data))
		return nil
	}
	if s.exhausted[idx] {
		s.mu.Unlock()
		return nil
	}

	om := s.cfg.OnMessage[idx]
	resp := om.ServerResponses[s.cursors[idx].Next(len(om.ServerResponses))]
	if resp.Policy == stub.PolicyOnce {
		s.exhausted[idx] = true
	}
	delayed := s.reserve(resp)
	s.mu.Unlock()

	return s.dispatch(ctx, resp, delayed)
}

// reserve registers a delayed response as pending. It is called with s.mu
// held while the session is open, so Close never races the registration.
func (s *Session) reserve(resp *stub.ServerResponse) bool {
	if resp.Delay <= 0 {
		return false
	}
	s.pending.Add(1)
	return true
}

// dispatch sends an immediate response on the caller's goroutine. A delayed
// response waits on its own goroutine so later messages are answered in the
// meantime; its errors are logged since nobody is left to receive them.
func (s *Session) dispatch(ctx context.Context, resp *stub.ServerResponse, delayed bool) error {
	if !delayed {
		return s.emit(ctx, resp)
	}
	ctx, cancel := context.WithCancel(ctx)
	release := context.AfterFunc(s.done, cancel)
	go func() {
		defer s.pending.Done()
		defer cancel()
		defer release()
		if err := s.emit(ctx, resp); err != nil {
			s.logger.Debug("delayed response not sent", "url", s.cfg.URL, "delay", resp.Delay, "error", err)
		}
	}()
	return nil
}

// match returns the index of the first on-message entry expecting this exact
// message, or -1.
func (s *Session) match(t stub.MessageType, data []byte) int {
	for i, om := range s.cfg.OnMessage {
		cr := om.ClientRequest
		if cr.MessageType == t && bytes.Equal(cr.Body, data) {
			return i
		}
	}
	return -1
}

// emit waits out the response delay without holding the lock, then sends.
func (s *Session) emit(ctx context.Context, resp *stub.ServerResponse) error {
	if resp.Delay > 0 {
		timer := time.NewTimer(resp.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if s.State() == StateClosed {
		return ErrSessionClosed
	}

	switch resp.Policy {
	case stub.PolicyFragmentation:
		return s.sender.SendFragmented(ctx, resp.MessageType, resp.Body, s.fragmentSize)
	case stub.PolicyDisconnect:
		if err := s.sender.Send(ctx, resp.MessageType, resp.Body); err != nil {
			return err
		}
		s.logger.Debug("closing connection after disconnect response", "url", s.cfg.URL)
		if resp.Delay > 0 {
			return s.closeNow(CloseNormalClosure, "disconnect")
		}
		return s.Close(CloseNormalClosure, "disconnect")
	default:
		return s.sender.Send(ctx, resp.MessageType, resp.Body)
	}
}

// Close moves the session to its terminal state, drops its cursors, stops
// delayed responses and waits for them to return, then closes the
// connection. Closing twice is a no-op.
func (s *Session) Close(code CloseCode, reason string) error {
	if !s.markClosed() {
		return nil
	}
	s.pending.Wait()
	return s.sender.Close(code, reason)
}

// closeNow is Close without waiting on pending responses. A delayed
// disconnect response closes through here since it is itself pending.
func (s *Session) closeNow(code CloseCode, reason string) error {
	if !s.markClosed() {
		return nil
	}
	return s.sender.Close(code, reason)
}

func (s *Session) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false
	}
	s.state = StateClosed
	s.cursors = nil
	s.exhausted = nil
	s.stop()
	return true
}
