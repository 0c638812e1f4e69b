package engine

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/stubby/internal/storage"
	"github.com/getmockd/stubby/pkg/config"
	"github.com/getmockd/stubby/pkg/metrics"
	"github.com/getmockd/stubby/pkg/proxy"
	"github.com/getmockd/stubby/pkg/stub"
	stubtls "github.com/getmockd/stubby/pkg/tls"
)

const stubsYAML = `
- uuid: invoice
  request:
    url: /invoice/[0-9]+
  response:
    status: 200
    headers:
      content-type: application/json
    body: '{"kind":"pattern"}'

- request:
    url: /invoice/42
  response:
    status: 201
    body: exact

- request:
    method: POST
    url: /orders
    post: '{"id":1,"items":["a","b"]}'
  response:
    - status: 200
      body: first
    - status: 202
      body: second
    - status: 500
      body: third

- request:
    url: /slow
  response:
    latency: 3600000
    body: late

- web-socket:
    url: /socket
    on-open:
      body: connected
    on-message:
      - client-request:
          body: ping
        server-response:
          policy: push
          body: pong
`

func loadConfig(t *testing.T, src string) *config.Configuration {
	t.Helper()
	cfg, err := config.LoadBytes([]byte(src), t.TempDir())
	require.NoError(t, err)
	return cfg
}

func newTestServer(t *testing.T, src string, opts ...ServerOption) (*Server, *httptest.Server) {
	t.Helper()
	repo := storage.NewRepository(loadConfig(t, src))
	srv := NewServer(repo, append([]ServerOption{WithMetrics(metrics.NewRegistry()), WithVersion("test")}, opts...)...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func do(t *testing.T, method, url, body string, headers map[string]string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestServer_MatchedStub(t *testing.T) {
	_, ts := newTestServer(t, stubsYAML)

	resp, body := do(t, http.MethodGet, ts.URL+"/invoice/7", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"kind":"pattern"}`, body)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "0", resp.Header.Get(stub.ResourceIDHeader))
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))
}

func TestServer_ExactURLBeatsPattern(t *testing.T) {
	_, ts := newTestServer(t, stubsYAML)

	resp, body := do(t, http.MethodGet, ts.URL+"/invoice/42", "", nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "exact", body)
	assert.Equal(t, "1", resp.Header.Get(stub.ResourceIDHeader))
}

func TestServer_SequencedResponsesWrap(t *testing.T) {
	_, ts := newTestServer(t, stubsYAML)

	want := []struct {
		status int
		body   string
	}{{200, "first"}, {202, "second"}, {500, "third"}, {200, "first"}}

	for i, w := range want {
		resp, body := do(t, http.MethodPost, ts.URL+"/orders", `{"items":["a","b"],"id":1}`,
			map[string]string{"Content-Type": "application/json"})
		assert.Equal(t, w.status, resp.StatusCode, "call %d", i)
		assert.Equal(t, w.body, body, "call %d", i)
		assert.Equal(t, "2", resp.Header.Get(stub.ResourceIDHeader), "call %d", i)
	}
}

func TestServer_NotFoundNamesClosestStub(t *testing.T) {
	_, ts := newTestServer(t, stubsYAML)

	resp, body := do(t, http.MethodGet, ts.URL+"/orders", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	v, err := oj.ParseString(body)
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, "stub_not_found", m["error"])
	closest := m["details"].(map[string]any)["closest"].(map[string]any)
	assert.Equal(t, "/orders", closest["url"])
}

func TestHandler_LatencyStopsOnCancel(t *testing.T) {
	srv, _ := newTestServer(t, stubsYAML)

	ctx, cancel := context.WithCancel(context.Background())
	r := httptest.NewRequest(http.MethodGet, "/slow", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handler.ServeHTTP(rec, r)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after cancellation")
	}
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, 1.0, srv.metrics.RequestsTotal.Value(metrics.OutcomeCancelled, "499"))
	assert.Equal(t, 0.0, srv.metrics.RequestsTotal.Value(metrics.OutcomeMatched, "200"))
}

func TestServer_ProxiesUnmatched(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Token", r.Header.Get("X-Token"))
		w.Header().Set("X-Seen-Original", r.Header.Get("X-Original"))
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("upstream " + r.URL.Path))
	}))
	defer upstream.Close()

	src := stubsYAML + fmt.Sprintf(`
- proxy-config:
    uuid: default
    strategy: additive
    properties:
      endpoint: %s
    headers:
      x-token: secret
`, upstream.URL)
	srv, ts := newTestServer(t, src, WithProxySelector(proxy.Selector{}))

	resp, body := do(t, http.MethodGet, ts.URL+"/not/stubbed", "", map[string]string{"X-Original": "kept"})
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "upstream /not/stubbed", body)
	assert.Equal(t, "secret", resp.Header.Get("X-Seen-Token"))
	assert.Equal(t, "kept", resp.Header.Get("X-Seen-Original"))

	assert.Equal(t, 1.0, srv.metrics.ProxyRequestsTotal.Value("default", "additive"))
}

func TestServer_ProxyUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	src := fmt.Sprintf(`
- proxy-config:
    properties:
      endpoint: %s
`, url)
	_, ts := newTestServer(t, src)

	resp, _ := do(t, http.MethodGet, ts.URL+"/anything", "", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestServer_AdminEndpoints(t *testing.T) {
	_, ts := newTestServer(t, stubsYAML)
	do(t, http.MethodGet, ts.URL+"/invoice/1", "", nil)

	resp, body := do(t, http.MethodGet, ts.URL+AdminPrefix+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	v, err := oj.ParseString(body)
	require.NoError(t, err)
	health := v.(map[string]any)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "test", health["version"])
	assert.Equal(t, int64(4), health["lifecycles"])
	assert.Equal(t, int64(1), health["webSocketConfigs"])

	_, body = do(t, http.MethodGet, ts.URL+AdminPrefix+"/config", "", nil)
	assert.Contains(t, body, "/invoice/[0-9]+")
	assert.Contains(t, body, "url: /socket")

	resp, body = do(t, http.MethodGet, ts.URL+AdminPrefix+"/config/1", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "url: /invoice/42")
	assert.NotContains(t, body, "/orders")

	resp, _ = do(t, http.MethodGet, ts.URL+AdminPrefix+"/config/99", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, ts.URL+AdminPrefix+"/config/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = do(t, http.MethodGet, ts.URL+AdminPrefix+"/metrics", "", nil)
	assert.Contains(t, body, `stubby_requests_total{outcome="matched",status="200"} 1`)
	assert.Contains(t, body, `stubby_stub_hits_total{resource_id="0"} 1`)
	assert.Contains(t, body, `stubby_configured{kind="lifecycle"} 4`)
}

func TestServer_Reload(t *testing.T) {
	srv, ts := newTestServer(t, stubsYAML)

	srv.Reload(loadConfig(t, `
- request:
    url: /fresh
  response:
    body: new
`))

	resp, body := do(t, http.MethodGet, ts.URL+"/fresh", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "new", body)

	resp, _ = do(t, http.MethodGet, ts.URL+"/invoice/42", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1.0, srv.metrics.ReloadsTotal.Value("ok"))
}

func TestServer_WebSocketRoute(t *testing.T) {
	_, ts := newTestServer(t, stubsYAML)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/socket"
	c, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := c.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "connected", string(msg))

	require.NoError(t, c.WriteMessage(gws.TextMessage, []byte("ping")))
	_, msg, err = c.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(msg))
}

func TestServer_StopClosesWebSockets(t *testing.T) {
	repo := storage.NewRepository(loadConfig(t, stubsYAML))
	srv := NewServer(repo, WithAddr("127.0.0.1:0"))
	require.NoError(t, srv.Start())
	defer func() { _ = srv.Stop() }()

	url := "ws" + strings.TrimPrefix(srv.URL(), "http") + "/socket"
	c, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := c.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "connected", string(msg))

	require.NoError(t, srv.Stop())

	_, _, err = c.ReadMessage()
	require.Error(t, err)
	assert.True(t, gws.IsCloseError(err, gws.CloseGoingAway), "unexpected error: %v", err)
	assert.Eventually(t, func() bool { return srv.ws.Active() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_StartStopTLS(t *testing.T) {
	material, err := stubtls.SelfSigned("localhost")
	require.NoError(t, err)

	repo := storage.NewRepository(loadConfig(t, stubsYAML))
	srv := NewServer(repo, WithAddr("127.0.0.1:0"), WithTLS("127.0.0.1:0", material.ServerConfig()))
	require.NoError(t, srv.Start())
	defer func() { _ = srv.Stop() }()
	assert.ErrorIs(t, srv.Start(), ErrAlreadyRunning)
	assert.True(t, strings.HasPrefix(srv.TLSURL(), "https://127.0.0.1:"))

	resp, err := http.Get(srv.URL() + "/invoice/42")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: material.CertPool()}}}
	resp, err = client.Get(srv.TLSURL() + "/invoice/42")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, srv.Stop())
	require.NoError(t, srv.Stop())
}

func TestServer_RequestJournal(t *testing.T) {
	_, ts := newTestServer(t, stubsYAML)

	do(t, http.MethodGet, ts.URL+"/invoice/42", "", map[string]string{HeaderRequestID: "req-exact"})
	do(t, http.MethodPost, ts.URL+"/orders", `{"id":1,"items":["a","b"]}`, nil)
	do(t, http.MethodGet, ts.URL+"/invoices/7", "", nil)

	resp, body := do(t, http.MethodGet, ts.URL+AdminPrefix+"/requests", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v, err := oj.ParseString(body)
	require.NoError(t, err)
	list := v.(map[string]any)
	assert.Equal(t, int64(3), list["total"])
	requests := list["requests"].([]any)
	require.Len(t, requests, 3)

	newest := requests[0].(map[string]any)
	assert.Equal(t, "/invoices/7", newest["path"])
	assert.Equal(t, "not_found", newest["outcome"])
	assert.Equal(t, int64(-1), newest["resourceId"])
	assert.Equal(t, "/invoice/42", newest["nearMiss"].(map[string]any)["url"])

	orders := requests[1].(map[string]any)
	assert.Equal(t, "matched", orders["outcome"])
	assert.Equal(t, int64(2), orders["resourceId"])
	assert.Equal(t, int64(200), orders["responseStatus"])

	resp, body = do(t, http.MethodGet, ts.URL+AdminPrefix+"/requests/req-exact", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v, err = oj.ParseString(body)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.(map[string]any)["resourceId"])
	assert.Equal(t, int64(201), v.(map[string]any)["responseStatus"])

	_, body = do(t, http.MethodGet, ts.URL+AdminPrefix+"/requests?outcome=matched&limit=1", "", nil)
	v, err = oj.ParseString(body)
	require.NoError(t, err)
	filtered := v.(map[string]any)["requests"].([]any)
	require.Len(t, filtered, 1)
	assert.Equal(t, "/orders", filtered[0].(map[string]any)["path"])

	resp, _ = do(t, http.MethodGet, ts.URL+AdminPrefix+"/requests?limit=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, ts.URL+AdminPrefix+"/requests/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, ts.URL+AdminPrefix+"/requests", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, body = do(t, http.MethodGet, ts.URL+AdminPrefix+"/requests", "", nil)
	v, err = oj.ParseString(body)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.(map[string]any)["total"])
}

func TestServer_TemplatedResponse(t *testing.T) {
	_, ts := newTestServer(t, `
- request:
    url: /account/(\d+)/category/([a-z]+)
    query:
      type: (\w+)
  response:
    headers:
      location: /accounts/<% url.1 %>
    body: 'account <% url.1 %> in <% url.2 %> of type <% query.type.1 %>, missing <% url.7 %>'
`)

	resp, body := do(t, http.MethodGet, ts.URL+"/account/8/category/books?type=hardcover", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "account 8 in books of type hardcover, missing <% url.7 %>", body)
	assert.Equal(t, "/accounts/8", resp.Header.Get("Location"))

	_, body = do(t, http.MethodGet, ts.URL+"/account/9/category/music?type=vinyl", "", nil)
	assert.Equal(t, "account 9 in music of type vinyl, missing <% url.7 %>", body)
}
