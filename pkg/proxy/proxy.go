// Package proxy decides whether an unmatched request is forwarded upstream
// and performs the forwarding.
//
// Selection is by proxy config uuid: the x-stubby-proxy-config request header
// names one explicitly, otherwise the deployment selected config applies, and
// finally the config named "default". Without any config, nothing is proxied.
package proxy

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/getmockd/stubby/pkg/stub"
)

// HeaderProxyConfig lets a client pick a proxy config by uuid.
const HeaderProxyConfig = "X-Stubby-Proxy-Config"

// ForwardInstruction describes one upstream call.
type ForwardInstruction struct {
	Config *stub.ProxyConfig
	// Target is the upstream URL including the request path and query.
	Target *url.URL
	// Header is the header set to send upstream.
	Header http.Header
}

// Selector picks the proxy config for unmatched requests.
type Selector struct {
	// Active is the uuid selected for this deployment. Empty means "default".
	Active string
}

// Resolve returns the forwarding instruction for r, or false when no proxy
// config applies.
func (s Selector) Resolve(r *http.Request, configs map[string]*stub.ProxyConfig) (*ForwardInstruction, bool) {
	cfg := s.selectConfig(r, configs)
	if cfg == nil {
		return nil, false
	}

	target, err := targetURL(cfg.Endpoint(), r.URL)
	if err != nil {
		return nil, false
	}

	header := r.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Del(HeaderProxyConfig)
	removeHopByHopHeaders(header)

	if cfg.Strategy == stub.StrategyAdditive {
		for k, v := range cfg.Headers {
			header.Set(k, v)
		}
	}

	return &ForwardInstruction{Config: cfg, Target: target, Header: header}, true
}

func (s Selector) selectConfig(r *http.Request, configs map[string]*stub.ProxyConfig) *stub.ProxyConfig {
	if len(configs) == 0 {
		return nil
	}
	for _, uuid := range []string{r.Header.Get(HeaderProxyConfig), s.Active, stub.DefaultProxyUUID} {
		if uuid == "" {
			continue
		}
		if cfg, ok := configs[uuid]; ok {
			return cfg
		}
	}
	return nil
}

// targetURL appends the request path and query to the endpoint.
func targetURL(endpoint string, in *url.URL) (*url.URL, error) {
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}

	out := *base
	out.Path = joinPath(base.Path, in.Path)
	out.RawPath = ""
	switch {
	case base.RawQuery == "":
		out.RawQuery = in.RawQuery
	case in.RawQuery != "":
		out.RawQuery = base.RawQuery + "&" + in.RawQuery
	}
	return &out, nil
}

func joinPath(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return strings.TrimSuffix(a, "/") + "/" + strings.TrimPrefix(b, "/")
}
