package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const renderSource = `
- uuid: 9136d8b7-f7a7-478d-97a5-53292484aaf6
  description: wobble
  request:
    method: [GET]
    url: /some/uri
  response:
    status: 301
    body: >
      folded text
- proxy-config:
    description: upstream
    strategy: as-is
    properties:
      endpoint: https://example.com
- web-socket:
    url: /ws
    on-message:
      - client-request:
          body: ping
        server-response:
          body: pong
`

func TestCompleteYAML_KeyOrder(t *testing.T) {
	cfg := mustLoad(t, renderSource)

	out, err := CompleteYAML(cfg.Lifecycles[0].Source)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "- uuid: 9136d8b7-f7a7-478d-97a5-53292484aaf6"))
	order := []string{"uuid:", "description: wobble", "request:", "url: /some/uri", "response:", "status: 301"}
	last := -1
	for _, key := range order {
		idx := strings.Index(out, key)
		require.GreaterOrEqual(t, idx, 0, key)
		assert.Greater(t, idx, last, key)
		last = idx
	}
	assert.Contains(t, out, "body: >")
}

func TestCompleteYAML_CanonicalOrder(t *testing.T) {
	cfg := mustLoad(t, `
- response:
    latency: 10
    body: ok
    status: 200
  request:
    url: /late
    method: GET
  description: shuffled
  uuid: 5e1b4a0c-2f6d-4c59-9c1a-0d6f1b2e8a11
- web-socket:
    on-message:
      - server-response:
          body: pong
          policy: push
        client-request:
          body: ping
    url: /ws
    description: socket
`)

	tests := []struct {
		name  string
		out   func() (string, error)
		order []string
	}{
		{
			name:  "lifecycle",
			out:   func() (string, error) { return CompleteYAML(cfg.Lifecycles[0].Source) },
			order: []string{"uuid:", "description: shuffled", "request:", "method: GET", "url: /late", "response:", "status: 200", "body: ok", "latency: 10"},
		},
		{
			name:  "web socket",
			out:   func() (string, error) { return CompleteYAML(cfg.WebSocketConfigs[0].Source) },
			order: []string{"web-socket:", "description: socket", "url: /ws", "on-message:", "client-request:", "body: ping", "server-response:", "policy: push", "body: pong"},
		},
		{
			name:  "on-message entry",
			out:   func() (string, error) { return CompleteYAML(cfg.WebSocketConfigs[0].OnMessage[0].Source) },
			order: []string{"- client-request:", "server-response:", "policy: push"},
		},
		{
			name:  "render all",
			out:   func() (string, error) { return RenderAll(cfg) },
			order: []string{"- uuid:", "request:", "response:", "- web-socket:", "description: socket", "url: /ws"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.out()
			require.NoError(t, err)
			last := -1
			for _, key := range tt.order {
				idx := indexAfter(out, key, last)
				require.GreaterOrEqual(t, idx, 0, "%q missing after offset %d in\n%s", key, last, out)
				last = idx
			}
		})
	}

	// Sources keep their loaded order.
	assert.Equal(t, "response", cfg.Lifecycles[0].Source.Content[0].Value)
}

func TestCompleteYAML_RoundTrips(t *testing.T) {
	cfg := mustLoad(t, renderSource)

	out, err := CompleteYAML(cfg.ProxyConfigs[0].Source)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "- proxy-config:"))
	again := mustLoad(t, out)
	require.Len(t, again.ProxyConfigs, 1)
	assert.Equal(t, "https://example.com", again.ProxyConfigs[0].Endpoint())

	out, err = CompleteYAML(cfg.WebSocketConfigs[0].Source)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "- web-socket:"))
	again = mustLoad(t, out)
	require.Len(t, again.WebSocketConfigs, 1)
	assert.Equal(t, "/ws", again.WebSocketConfigs[0].URL)

	again = mustLoad(t, mustRender(t, cfg))
	assert.Len(t, again.Lifecycles, 1)
	assert.Len(t, again.ProxyConfigs, 1)
	assert.Len(t, again.WebSocketConfigs, 1)
	assert.Equal(t, "folded text\n", string(again.Lifecycles[0].Responses[0].Body))
}

func TestCompleteYAML_OnMessage(t *testing.T) {
	cfg := mustLoad(t, renderSource)

	out, err := CompleteYAML(cfg.WebSocketConfigs[0].OnMessage[0].Source)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "- client-request:"))
	assert.Contains(t, out, "server-response:")
}

func TestCompleteYAML_NilSource(t *testing.T) {
	_, err := CompleteYAML(nil)
	assert.ErrorIs(t, err, ErrInvalidType)
}

// indexAfter returns the index of the first key occurrence past offset, or -1.
func indexAfter(s, key string, offset int) int {
	idx := strings.Index(s[offset+1:], key)
	if idx < 0 {
		return -1
	}
	return offset + 1 + idx
}

func mustRender(t *testing.T, cfg *Configuration) string {
	t.Helper()
	out, err := RenderAll(cfg)
	require.NoError(t, err)
	return out
}
