package metrics

import (
	"strconv"
	"time"
)

// Request outcomes.
const (
	OutcomeMatched  = "matched"
	OutcomeProxied  = "proxied"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"

	// OutcomeCancelled is a matched request whose client left during latency.
	OutcomeCancelled = "cancelled"
)

// Server is the set of metrics recorded by the stub server.
type Server struct {
	// RequestsTotal counts handled requests. Labels: outcome, status.
	RequestsTotal *Counter
	// RequestDuration tracks response time in seconds, latency included. Labels: outcome.
	RequestDuration *Histogram
	// StubHitsTotal counts matches per stub. Labels: resource_id.
	StubHitsTotal *Counter
	// ProxyRequestsTotal counts forwarded requests. Labels: config, strategy.
	ProxyRequestsTotal *Counter
	// ReloadsTotal counts configuration reloads. Labels: result.
	ReloadsTotal *Counter
	// ConfiguredTotal is the number of configured items. Labels: kind.
	ConfiguredTotal *Gauge
}

// NewServer registers the stub server metrics on reg.
func NewServer(reg *Registry) *Server {
	return &Server{
		RequestsTotal:      reg.NewCounter("stubby_requests_total", "Total HTTP requests handled", "outcome", "status"),
		RequestDuration:    reg.NewHistogram("stubby_request_duration_seconds", "HTTP request duration in seconds", DefaultBuckets, "outcome"),
		StubHitsTotal:      reg.NewCounter("stubby_stub_hits_total", "Requests matched per stub", "resource_id"),
		ProxyRequestsTotal: reg.NewCounter("stubby_proxy_requests_total", "Requests forwarded to a proxy endpoint", "config", "strategy"),
		ReloadsTotal:       reg.NewCounter("stubby_config_reloads_total", "Configuration reloads", "result"),
		ConfiguredTotal:    reg.NewGauge("stubby_configured", "Configured stubs, proxy configs and web socket configs", "kind"),
	}
}

// ObserveRequest records one handled request. A nil receiver is a no-op.
func (m *Server) ObserveRequest(outcome string, status int, d time.Duration) {
	if m == nil {
		return
	}
	_ = m.RequestsTotal.Inc(outcome, strconv.Itoa(status))
	_ = m.RequestDuration.Observe(d.Seconds(), outcome)
}

// ObserveHit records a match against the stub with the given resource id.
func (m *Server) ObserveHit(resourceID int) {
	if m == nil {
		return
	}
	_ = m.StubHitsTotal.Inc(strconv.Itoa(resourceID))
}

// ObserveProxy records a forwarded request.
func (m *Server) ObserveProxy(config, strategy string) {
	if m == nil {
		return
	}
	_ = m.ProxyRequestsTotal.Inc(config, strategy)
}

// ObserveReload records a reload attempt.
func (m *Server) ObserveReload(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	_ = m.ReloadsTotal.Inc(result)
}

// SetConfigured updates the configured item counts.
func (m *Server) SetConfigured(lifecycles, proxies, webSockets int) {
	if m == nil {
		return
	}
	_ = m.ConfiguredTotal.Set(float64(lifecycles), "lifecycle")
	_ = m.ConfiguredTotal.Set(float64(proxies), "proxy_config")
	_ = m.ConfiguredTotal.Set(float64(webSockets), "web_socket")
}
