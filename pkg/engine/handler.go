package engine

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/getmockd/stubby/internal/matching"
	"github.com/getmockd/stubby/internal/storage"
	"github.com/getmockd/stubby/pkg/httputil"
	"github.com/getmockd/stubby/pkg/logging"
	"github.com/getmockd/stubby/pkg/metrics"
	"github.com/getmockd/stubby/pkg/proxy"
	"github.com/getmockd/stubby/pkg/requestlog"
	"github.com/getmockd/stubby/pkg/stub"
	"github.com/getmockd/stubby/pkg/template"
	"github.com/getmockd/stubby/pkg/websocket"
)

// MaxRequestBodySize caps the request body read for matching (10MB).
const MaxRequestBodySize = 10 << 20

// StatusClientClosedRequest is recorded for requests whose client went away
// before the response was written.
const StatusClientClosedRequest = 499

// Handler answers requests from the stubs in a Store.
type Handler struct {
	store     storage.Store
	selector  proxy.Selector
	forwarder *proxy.Forwarder
	ws        *websocket.Handler
	metrics   *metrics.Server
	log       *slog.Logger
	// journal, when set, receives one entry per request.
	journal requestlog.Logger
}

// NewHandler creates a Handler. Nil collaborators get defaults.
func NewHandler(store storage.Store, selector proxy.Selector, forwarder *proxy.Forwarder, ws *websocket.Handler, m *metrics.Server, log *slog.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	if forwarder == nil {
		forwarder = proxy.NewForwarder(proxy.WithLogger(log))
	}
	if ws == nil {
		ws = websocket.NewHandler(websocket.WithLogger(log))
	}
	return &Handler{
		store:     store,
		selector:  selector,
		forwarder: forwarder,
		ws:        ws,
		metrics:   m,
		log:       log,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	// The snapshot is pinned for the whole request so a reload never tears it.
	snap := h.store.Snapshot()

	if websocket.IsUpgradeRequest(r) {
		if cfg, ok := snap.WebSocketConfig(r.URL.Path); ok {
			entry := h.newEntry(r, nil)
			entry.Protocol = requestlog.ProtocolWebSocket
			entry.Outcome = requestlog.OutcomeUpgraded
			entry.ResponseStatus = http.StatusSwitchingProtocols
			h.record(entry, start)
			if err := h.ws.Serve(w, r, cfg); err != nil {
				h.log.Debug("web socket upgrade failed", "url", r.URL.Path, "error", err)
			}
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize))
	if err != nil {
		httputil.WriteError(w, r, http.StatusBadRequest, "bad_request", "failed to read request body")
		h.metrics.ObserveRequest(metrics.OutcomeError, http.StatusBadRequest, time.Since(start))
		entry := h.newEntry(r, body)
		entry.Outcome = requestlog.OutcomeError
		entry.ResponseStatus = http.StatusBadRequest
		entry.Error = err.Error()
		h.record(entry, start)
		return
	}

	req := matching.NewRequest(r, body)
	log := h.log.With("method", r.Method, "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()))
	entry := h.newEntry(r, body)

	if lc := matching.FindMatch(snap.Lifecycles(), req); lc != nil {
		// The cursor advances before the response is written and is not
		// rolled back if the client goes away during latency.
		resp := snap.NextResponse(lc)
		h.metrics.ObserveHit(lc.ResourceID)
		entry.Outcome = requestlog.OutcomeMatched
		entry.ResourceID = lc.ResourceID
		if !h.wait(r, resp.Latency) {
			log.Debug("client went away during latency", "resource_id", lc.ResourceID)
			h.metrics.ObserveRequest(metrics.OutcomeCancelled, StatusClientClosedRequest, time.Since(start))
			entry.Error = r.Context().Err().Error()
			h.record(entry, start)
			return
		}
		writeStubResponse(w, fillTokens(lc, req, resp))
		log.Debug("stub matched", "resource_id", lc.ResourceID, "uuid", lc.UUID, "status", resp.Status)
		h.metrics.ObserveRequest(metrics.OutcomeMatched, resp.Status, time.Since(start))
		entry.ResponseStatus = resp.Status
		h.record(entry, start)
		return
	}

	if instr, ok := h.selector.Resolve(r, snap.ProxyConfigs()); ok {
		h.metrics.ObserveProxy(instr.Config.UUID, string(instr.Config.Strategy))
		entry.ProxyConfig = instr.Config.UUID
		status, err := h.forwarder.Forward(r.Context(), w, r, body, instr)
		if err != nil {
			log.Warn("proxy request failed", "config", instr.Config.UUID, "error", err)
			httputil.WriteBadGateway(w, r, "proxy_failed", err.Error())
			h.metrics.ObserveRequest(metrics.OutcomeError, http.StatusBadGateway, time.Since(start))
			entry.Outcome = requestlog.OutcomeError
			entry.ResponseStatus = http.StatusBadGateway
			entry.Error = err.Error()
			h.record(entry, start)
			return
		}
		h.metrics.ObserveRequest(metrics.OutcomeProxied, status, time.Since(start))
		entry.Outcome = requestlog.OutcomeProxied
		entry.ResponseStatus = status
		h.record(entry, start)
		return
	}

	miss := matching.ClosestMiss(snap.Lifecycles(), req)
	log.Info("no stub matched")
	var details any
	if miss != nil {
		details = map[string]any{"closest": miss}
		entry.NearMiss = &requestlog.NearMissInfo{
			ResourceID: miss.ResourceID,
			UUID:       miss.UUID,
			URL:        miss.URL,
			Reason:     miss.Reason,
		}
	}
	httputil.WriteNotFound(w, r, "stub_not_found", "no stub matched "+r.Method+" "+r.URL.RequestURI(), details)
	h.metrics.ObserveRequest(metrics.OutcomeNotFound, http.StatusNotFound, time.Since(start))
	entry.Outcome = requestlog.OutcomeNotFound
	entry.ResponseStatus = http.StatusNotFound
	h.record(entry, start)
}

func (h *Handler) newEntry(r *http.Request, body []byte) *requestlog.Entry {
	if h.journal == nil {
		return &requestlog.Entry{}
	}
	return &requestlog.Entry{
		ID:          RequestIDFrom(r.Context()),
		Method:      r.Method,
		Path:        r.URL.Path,
		QueryString: r.URL.RawQuery,
		Headers:     r.Header.Clone(),
		Body:        requestlog.TruncateBody(body),
		BodySize:    len(body),
		RemoteAddr:  r.RemoteAddr,
		ResourceID:  -1,
	}
}

func (h *Handler) record(entry *requestlog.Entry, start time.Time) {
	if h.journal == nil {
		return
	}
	entry.Timestamp = start
	entry.DurationMs = time.Since(start).Milliseconds()
	h.journal.Log(entry)
}

// wait sleeps for latency unless the request is cancelled first. It reports
// whether the response should still be written.
func (h *Handler) wait(r *http.Request, latency time.Duration) bool {
	if latency <= 0 {
		return true
	}
	timer := time.NewTimer(latency)
	defer timer.Stop()
	select {
	case <-r.Context().Done():
		return false
	case <-timer.C:
		return true
	}
}

// fillTokens fills response tokens from the capturing groups of the matched
// stub. resp is shared between requests and is never modified.
func fillTokens(lc *stub.Lifecycle, req *matching.Request, resp *stub.Response) *stub.Response {
	if !responseTokenized(resp) {
		return resp
	}
	ctx := template.NewContext(matching.Captures(lc.Request, req))
	out := *resp
	out.Body = template.ProcessBytes(resp.Body, ctx)
	out.Headers = template.ProcessHeaders(resp.Headers, ctx)
	return &out
}

func responseTokenized(resp *stub.Response) bool {
	if template.IsTokenized(string(resp.Body)) {
		return true
	}
	for _, v := range resp.Headers {
		if template.IsTokenized(v) {
			return true
		}
	}
	return false
}

func writeStubResponse(w http.ResponseWriter, resp *stub.Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.Header().Set(stub.ResourceIDHeader, strconv.Itoa(resp.ResourceID))
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}
