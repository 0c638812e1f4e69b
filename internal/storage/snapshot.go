package storage

import (
	"time"

	"github.com/getmockd/stubby/pkg/config"
	"github.com/getmockd/stubby/pkg/stub"
)

// Snapshot is one loaded configuration and its response cursors.
type Snapshot struct {
	cfg        *config.Configuration
	cursors    []Cursor
	proxies    map[string]*stub.ProxyConfig
	webSockets map[string]*stub.WebSocketConfig
	version    uint64
	loadedAt   time.Time
}

func newSnapshot(cfg *config.Configuration, version uint64) *Snapshot {
	if cfg == nil {
		cfg = &config.Configuration{}
	}
	s := &Snapshot{
		cfg:        cfg,
		cursors:    make([]Cursor, len(cfg.Lifecycles)),
		proxies:    make(map[string]*stub.ProxyConfig, len(cfg.ProxyConfigs)),
		webSockets: make(map[string]*stub.WebSocketConfig, len(cfg.WebSocketConfigs)),
		version:    version,
		loadedAt:   time.Now(),
	}
	for _, p := range cfg.ProxyConfigs {
		s.proxies[p.UUID] = p
	}
	for _, ws := range cfg.WebSocketConfigs {
		s.webSockets[ws.URL] = ws
	}
	return s
}

// Config returns the configuration the snapshot was built from.
func (s *Snapshot) Config() *config.Configuration {
	return s.cfg
}

// Lifecycles returns the lifecycles in declaration order.
func (s *Snapshot) Lifecycles() []*stub.Lifecycle {
	return s.cfg.Lifecycles
}

// Lifecycle returns the lifecycle with the given resource id.
func (s *Snapshot) Lifecycle(resourceID int) (*stub.Lifecycle, bool) {
	if resourceID < 0 || resourceID >= len(s.cfg.Lifecycles) {
		return nil, false
	}
	return s.cfg.Lifecycles[resourceID], true
}

// NextResponse returns the response lc should answer with. Single-response
// lifecycles always return it; sequenced ones advance their cursor and wrap
// around after the last response.
func (s *Snapshot) NextResponse(lc *stub.Lifecycle) *stub.Response {
	if !lc.IsSequenced() {
		return lc.Responses[0]
	}
	owned, ok := s.Lifecycle(lc.ResourceID)
	if !ok || owned != lc {
		// Not part of this snapshot, there is no cursor to advance.
		return lc.Responses[0]
	}
	return lc.Responses[s.cursors[lc.ResourceID].Next(len(lc.Responses))]
}

// ProxyConfig returns the proxy config with the given uuid.
func (s *Snapshot) ProxyConfig(uuid string) (*stub.ProxyConfig, bool) {
	p, ok := s.proxies[uuid]
	return p, ok
}

// ProxyConfigs returns the proxy configs keyed by uuid.
func (s *Snapshot) ProxyConfigs() map[string]*stub.ProxyConfig {
	return s.proxies
}

// WebSocketConfig returns the web socket config registered for url.
func (s *Snapshot) WebSocketConfig(url string) (*stub.WebSocketConfig, bool) {
	ws, ok := s.webSockets[url]
	return ws, ok
}

// Version increases by one with every Replace.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// LoadedAt is when the snapshot was installed.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}
