package stub

import (
	"fmt"
	"net/url"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultProxyUUID designates the catch-all proxy config.
	DefaultProxyUUID = "default"
	// EndpointProperty is the property holding the upstream base URL.
	EndpointProperty = "endpoint"
)

// ProxyConfig describes an upstream that unmatched requests are forwarded to.
type ProxyConfig struct {
	UUID        string
	Description string
	Strategy    ProxyStrategy
	Properties  map[string]string
	// Headers are injected into forwarded requests by the additive strategy.
	Headers map[string]string
	Source  *yaml.Node
}

// NewProxyConfig validates p. The UUID defaults to "default" and the strategy to as-is.
func NewProxyConfig(p ProxyConfig) (*ProxyConfig, error) {
	out := p
	if out.UUID == "" {
		out.UUID = DefaultProxyUUID
	}
	if out.Strategy == "" {
		out.Strategy = StrategyAsIs
	}
	if out.Endpoint() == "" {
		return nil, fmt.Errorf("proxy config %q: %w", out.UUID, ErrMissingEndpoint)
	}
	if u, err := url.Parse(out.Endpoint()); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("proxy config %q: %w: %s", out.UUID, ErrInvalidEndpoint, out.Endpoint())
	}
	if out.Headers == nil {
		out.Headers = map[string]string{}
	}
	return &out, nil
}

// Endpoint returns the upstream base URL.
func (p *ProxyConfig) Endpoint() string {
	return p.Properties[EndpointProperty]
}

// IsDefault reports whether p is the catch-all config.
func (p *ProxyConfig) IsDefault() bool {
	return p.UUID == DefaultProxyUUID
}
