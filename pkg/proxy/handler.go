package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/getmockd/stubby/pkg/logging"
)

// DefaultMaxBodySize caps upstream response bodies (10MB).
const DefaultMaxBodySize = 10 << 20

// DefaultTimeout bounds a single upstream call.
const DefaultTimeout = 30 * time.Second

// Forwarder performs upstream calls described by a ForwardInstruction.
type Forwarder struct {
	client *http.Client
	logger *slog.Logger
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithClient sets the HTTP client used for upstream calls.
func WithClient(c *http.Client) Option {
	return func(f *Forwarder) {
		if c != nil {
			f.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Forwarder) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewForwarder creates a Forwarder. Redirects are passed back to the client
// untouched rather than followed.
func NewForwarder(opts ...Option) *Forwarder {
	f := &Forwarder{
		client: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Forward sends r (whose body was already read into body) upstream and
// writes the upstream response to w, returning its status. An error means
// nothing was written.
func (f *Forwarder) Forward(ctx context.Context, w http.ResponseWriter, r *http.Request, body []byte, instr *ForwardInstruction) (int, error) {
	start := time.Now()

	resp, err := f.forwardRequest(ctx, r, body, instr)
	if err != nil {
		return 0, fmt.Errorf("forwarding to %s: %w", instr.Target.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBodySize))
	if err != nil {
		return 0, fmt.Errorf("reading upstream response: %w", err)
	}

	removeHopByHopHeaders(resp.Header)
	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(respBody)

	f.logger.Debug("proxied request",
		"config", instr.Config.UUID,
		"strategy", instr.Config.Strategy,
		"target", instr.Target.String(),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp.StatusCode, nil
}

func (f *Forwarder) forwardRequest(ctx context.Context, r *http.Request, body []byte, instr *ForwardInstruction) (*http.Response, error) {
	outReq, err := http.NewRequestWithContext(ctx, r.Method, instr.Target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	copyHeaders(outReq.Header, instr.Header)
	outReq.Header.Set("X-Forwarded-For", r.RemoteAddr)
	outReq.Header.Set("X-Forwarded-Host", r.Host)

	return f.client.Do(outReq)
}

// copyHeaders copies headers from src to dst.
func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// removeHopByHopHeaders removes headers that should not be forwarded.
func removeHopByHopHeaders(h http.Header) {
	hopByHopHeaders := []string{
		"Connection",
		"Keep-Alive",
		"Proxy-Authenticate",
		"Proxy-Authorization",
		"Proxy-Connection",
		"TE",
		"Trailers",
		"Transfer-Encoding",
		"Upgrade",
	}

	for _, header := range hopByHopHeaders {
		h.Del(header)
	}
}
