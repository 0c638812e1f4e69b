// Package metrics exposes Prometheus-compatible metrics for the stub server.
//
// It implements the Prometheus text exposition format (text/plain; version=0.0.4)
// for counters, gauges and histograms. All metrics are safe for concurrent use.
//
// Server groups the metrics the stub server records:
//
//	reg := metrics.NewRegistry()
//	m := metrics.NewServer(reg)
//	m.ObserveRequest("matched", 200, 3*time.Millisecond)
//	http.Handle("/metrics", reg.Handler())
package metrics
