package config

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/stubby/pkg/stub"
)

func load(t *testing.T, src string, opts ...LoadOption) (*Configuration, error) {
	t.Helper()
	return LoadBytes([]byte(src), t.TempDir(), opts...)
}

func mustLoad(t *testing.T, src string, opts ...LoadOption) *Configuration {
	t.Helper()
	cfg, err := load(t, src, opts...)
	require.NoError(t, err)
	return cfg
}

func TestLoad_Lifecycle(t *testing.T) {
	cfg := mustLoad(t, `
- uuid: 9136d8b7-f7a7-478d-97a5-53292484aaf6
  description: wobble
  request:
    method: [GET, head]
    url: /invoice
    query:
      status: active
      type_name: '["apple","orange"]'
    headers:
      Content-Type: application/json
      authorization-bearer: YNZmIzI2Ts0Q==
    post: '{"name":"tod"}'
  response:
    status: 301
    headers:
      location: /elsewhere
    body: moved
    latency: 150
`)

	require.Len(t, cfg.Lifecycles, 1)
	lc := cfg.Lifecycles[0]
	assert.Equal(t, "9136d8b7-f7a7-478d-97a5-53292484aaf6", lc.UUID)
	assert.Equal(t, "wobble", lc.Description)
	assert.Equal(t, 0, lc.ResourceID)

	req := lc.Request
	assert.Equal(t, []string{"GET", "HEAD"}, req.Methods)
	assert.Equal(t, "/invoice", req.URL)
	assert.Equal(t, `["apple","orange"]`, req.Query["type_name"])
	assert.Equal(t, "application/json", req.Headers["content-type"])
	assert.Equal(t, "Bearer YNZmIzI2Ts0Q==", req.Headers["authorization-bearer"])
	assert.Equal(t, `{"name":"tod"}`, req.Body())

	require.Len(t, lc.Responses, 1)
	resp := lc.Responses[0]
	assert.Equal(t, 301, resp.Status)
	assert.Equal(t, "/elsewhere", resp.Headers["location"])
	assert.Equal(t, "moved", string(resp.Body))
	assert.Equal(t, 150*time.Millisecond, resp.Latency)
}

func TestLoad_Defaults(t *testing.T) {
	cfg := mustLoad(t, `
- request:
    url: /plain
`)
	lc := cfg.Lifecycles[0]
	assert.Equal(t, []string{http.MethodGet}, lc.Request.Methods)
	require.Len(t, lc.Responses, 1)
	assert.Equal(t, http.StatusOK, lc.Responses[0].Status)
}

func TestLoad_SequencedResponsesShareResourceID(t *testing.T) {
	cfg := mustLoad(t, `
- request:
    url: /first
- request:
    url: /second
  response:
    - status: 200
      body: one
    - status: 500
      body: two
    - status: 201
`)
	require.Len(t, cfg.Lifecycles, 2)
	lc := cfg.Lifecycles[1]
	assert.True(t, lc.IsSequenced())
	assert.Equal(t, 1, lc.ResourceID)
	for _, r := range lc.Responses {
		assert.Equal(t, 1, r.ResourceID)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr error
		wantMsg string
	}{
		{
			name: "unknown property",
			src: `
- request:
    url: /x
    methodd: GET
`,
			wantErr: ErrUnknownProperty,
			wantMsg: "unknown property configured: methodd",
		},
		{
			name: "response property under request",
			src: `
- request:
    url: /x
    status: 200
`,
			wantErr: ErrMisplacedProperty,
			wantMsg: "invalid property 'status' configured, it does not belong in object 'request'",
		},
		{
			name: "request property above request",
			src: `
- method: GET
  request:
    url: /x
`,
			wantErr: ErrMisplacedProperty,
			wantMsg: "invalid property 'method' configured, it cannot be configured above the 'request'",
		},
		{
			name:    "mapping root",
			src:     "request:\n  url: /x\n",
			wantErr: ErrRootNotSequence,
		},
		{
			name:    "empty document",
			src:     "",
			wantErr: ErrRootNotSequence,
		},
		{
			name: "duplicate stub uuid",
			src: `
- uuid: abc
  request:
    url: /a
- uuid: abc
  request:
    url: /b
`,
			wantErr: ErrDuplicateUUID,
			wantMsg: "stubs YAML contains duplicate UUIDs: abc",
		},
		{
			name: "duplicate proxy uuid",
			src: `
- proxy-config:
    properties:
      endpoint: https://a.example.com
- proxy-config:
    uuid: default
    properties:
      endpoint: https://b.example.com
`,
			wantErr: ErrDuplicateUUID,
			wantMsg: "proxy config YAML contains duplicate UUIDs: default",
		},
		{
			name: "invalid strategy",
			src: `
- proxy-config:
    strategy: invalid-strategy-name
    properties:
      endpoint: https://a.example.com
`,
			wantErr: stub.ErrInvalidValue,
			wantMsg: "invalid-strategy-name",
		},
		{
			name: "duplicate web socket url",
			src: `
- web-socket:
    url: /ws
    on-open:
      body: hi
- web-socket:
    url: /ws
    on-open:
      body: hi
`,
			wantErr: ErrDuplicateURL,
			wantMsg: "web socket config YAML contains duplicate URL: /ws",
		},
		{
			name: "invalid policy",
			src: `
- web-socket:
    url: /ws
    on-open:
      policy: invalid-policy-name
`,
			wantErr: stub.ErrInvalidValue,
			wantMsg: "invalid-policy-name",
		},
		{
			name: "web socket without handlers",
			src: `
- web-socket:
    url: /ws
    description: nothing
`,
			wantErr: stub.ErrNoWebSocketHandlers,
		},
		{
			name: "duplicate client request",
			src: `
- web-socket:
    url: /ws
    on-message:
      - client-request:
          body: ping
        server-response:
          body: pong
      - client-request:
          body: ping
        server-response:
          body: pong again
`,
			wantErr: stub.ErrDuplicateClientRequestText,
			wantMsg: "web socket on-message contains multiple client-request with the same body text",
		},
		{
			name: "json map as post",
			src: `
- request:
    url: /x
    post:
      name: tod
`,
			wantErr: ErrInvalidType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := load(t, tt.src)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			var ve *ValidationError
			assert.True(t, errors.As(err, &ve))
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, err.Error())
			}
		})
	}
}

func TestLoad_ProxyConfig(t *testing.T) {
	cfg := mustLoad(t, `
- proxy-config:
    description: upstream
    strategy: additive
    properties:
      endpoint: https://jsonplaceholder.typicode.com
    headers:
      x-original-stubby4j-custom-header: custom/value
- proxy-config:
    uuid: some-unique-name
    properties:
      endpoint: https://other.example.com
`)
	require.Len(t, cfg.ProxyConfigs, 2)
	def := cfg.ProxyConfigs[0]
	assert.True(t, def.IsDefault())
	assert.Equal(t, stub.StrategyAdditive, def.Strategy)
	assert.Equal(t, "https://jsonplaceholder.typicode.com", def.Endpoint())
	assert.Equal(t, "custom/value", def.Headers["x-original-stubby4j-custom-header"])
	assert.Equal(t, stub.StrategyAsIs, cfg.ProxyConfigs[1].Strategy)
}

func TestLoad_WebSocketConfig(t *testing.T) {
	cfg := mustLoad(t, `
- web-socket:
    uuid: ws-1
    url: /items/furniture
    sub-protocols: echo, mamba, zumba
    on-open:
      policy: once
      message-type: text
      body: You have been successfully connected
      delay: 2000
    on-message:
      - client-request:
          message-type: text
          body: Hey, server, give me fruits
        server-response:
          policy: push
          message-type: text
          body: apple
          delay: 500
      - client-request:
          message-type: binary
          body: Hey, server, send me bytes
        server-response:
          - policy: push
            message-type: binary
            body: one
          - policy: disconnect
            body: bye
`)
	require.Len(t, cfg.WebSocketConfigs, 1)
	ws := cfg.WebSocketConfigs[0]
	assert.Equal(t, "/items/furniture", ws.URL)
	assert.Equal(t, []string{"echo", "mamba", "zumba"}, ws.SubProtocols)

	require.NotNil(t, ws.OnOpen)
	assert.Equal(t, stub.PolicyOnce, ws.OnOpen.Policy)
	assert.Equal(t, 2*time.Second, ws.OnOpen.Delay)

	require.Len(t, ws.OnMessage, 2)
	assert.Equal(t, stub.PolicyPush, ws.OnMessage[0].ServerResponses[0].Policy)
	assert.Equal(t, stub.MessageBinary, ws.OnMessage[1].ClientRequest.MessageType)
	assert.True(t, ws.OnMessage[1].IsSequenced())
	assert.Equal(t, stub.PolicyDisconnect, ws.OnMessage[1].ServerResponses[1].Policy)
	assert.Equal(t, stub.MessageText, ws.OnMessage[1].ServerResponses[1].MessageType)
}

func TestLoad_FileReferences(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "body.json"), []byte(`{"ok":true}`), 0o644))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	cfg, err := LoadBytes([]byte(`
- request:
    url: /exists
  response:
    file: body.json
- request:
    url: /missing
    file: nope/request.txt
    post: fallback
  response:
    file: nope/response.txt
`), dir, WithLogger(logger))
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, string(cfg.Lifecycles[0].Responses[0].Body))
	assert.Equal(t, stub.FailedToLoadFileMessage, string(cfg.Lifecycles[1].Responses[0].Body))
	assert.Equal(t, "fallback", cfg.Lifecycles[1].Request.Body())

	require.Len(t, cfg.Warnings, 2)
	assert.Equal(t, filepath.Join(dir, "nope/request.txt"), cfg.Warnings[0].Path)
	assert.True(t, errors.Is(cfg.Warnings[0].Err, ErrFileNotFound))
	assert.Contains(t, logs.String(), "could not load file from path")
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("STUBBY_TEST_UPSTREAM", "https://env.example.com")
	src := `
- proxy-config:
    properties:
      endpoint: ${STUBBY_TEST_UPSTREAM}
`
	cfg := mustLoad(t, src, WithEnvExpansion(true))
	assert.Equal(t, "https://env.example.com", cfg.ProxyConfigs[0].Endpoint())

	cfg = mustLoad(t, src)
	assert.Equal(t, "${STUBBY_TEST_UPSTREAM}", cfg.ProxyConfigs[0].Endpoint())
}

func TestLoadFile_Includes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "stubs", "nested"), 0o755))
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	main := write("main.yaml", "includes:\n  - stubs/a.yaml\n  - stubs/**/*.yml\n")
	write("stubs/a.yaml", "- request:\n    url: /a\n")
	write("stubs/nested/b.yml", "- request:\n    url: /b\n- request:\n    url: /c\n")

	cfg, err := LoadFile(main)
	require.NoError(t, err)

	require.Len(t, cfg.Lifecycles, 3)
	assert.Equal(t, "/a", cfg.Lifecycles[0].Request.URL)
	assert.Equal(t, "/b", cfg.Lifecycles[1].Request.URL)
	assert.Equal(t, 2, cfg.Lifecycles[2].ResourceID)
	assert.Len(t, cfg.Sources, 3)
	assert.Equal(t, main, cfg.Sources[0])
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrFileNotFound)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = LoadFile(empty)
	assert.ErrorIs(t, err, ErrEmptyFile)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- [unclosed"), 0o644))
	_, err = LoadFile(bad)
	assert.ErrorIs(t, err, ErrInvalidYAML)
	var le *LoadError
	assert.True(t, errors.As(err, &le))
}
