package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrLabelCountMismatch is returned when the number of label values doesn't match the defined labels.
var ErrLabelCountMismatch = errors.New("label count mismatch")

// ErrNegativeCounterValue is returned when attempting to add a negative value to a counter.
var ErrNegativeCounterValue = errors.New("counter cannot be decreased")

// ErrDuplicateMetric is returned when registering a metric with a name that is already registered.
var ErrDuplicateMetric = errors.New("duplicate metric name")

// atomicFloat64 stores float64 bits for atomic access.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (a *atomicFloat64) Load() float64 {
	return math.Float64frombits(a.bits.Load())
}

func (a *atomicFloat64) Store(v float64) {
	a.bits.Store(math.Float64bits(v))
}

func (a *atomicFloat64) Add(delta float64) {
	for {
		old := a.bits.Load()
		if a.bits.CompareAndSwap(old, math.Float64bits(math.Float64frombits(old)+delta)) {
			return
		}
	}
}

// MetricType represents the type of a metric.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// Metric is the interface implemented by all metric types.
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	// Collect returns all samples for exposition.
	Collect() []Sample
}

// Sample represents a single metric sample with labels.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// family holds one value per label combination.
type family[V any] struct {
	name       string
	help       string
	labelNames []string
	newValue   func() *V

	mu     sync.RWMutex
	values map[string]*labelled[V]
	order  []string
}

type labelled[V any] struct {
	labels map[string]string
	value  *V
}

func newFamily[V any](name, help string, labelNames []string, newValue func() *V) *family[V] {
	return &family[V]{
		name:       name,
		help:       help,
		labelNames: labelNames,
		newValue:   newValue,
		values:     make(map[string]*labelled[V]),
	}
}

func (f *family[V]) Name() string { return f.name }
func (f *family[V]) Help() string { return f.help }

func (f *family[V]) get(values []string) (*V, error) {
	if len(values) != len(f.labelNames) {
		return nil, fmt.Errorf("%w: %s expected %d labels, got %d", ErrLabelCountMismatch, f.name, len(f.labelNames), len(values))
	}
	key := strings.Join(values, "\x00")

	f.mu.RLock()
	lv, ok := f.values[key]
	f.mu.RUnlock()
	if ok {
		return lv.value, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if lv, ok = f.values[key]; ok {
		return lv.value, nil
	}
	labels := make(map[string]string, len(values))
	for i, n := range f.labelNames {
		labels[n] = values[i]
	}
	lv = &labelled[V]{labels: labels, value: f.newValue()}
	f.values[key] = lv
	f.order = append(f.order, key)
	return lv.value, nil
}

// peek returns the value for the label values without creating it.
func (f *family[V]) peek(values []string) (*V, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	lv, ok := f.values[strings.Join(values, "\x00")]
	if !ok {
		return nil, false
	}
	return lv.value, true
}

// each visits values in creation order.
func (f *family[V]) each(fn func(labels map[string]string, v *V)) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, key := range f.order {
		lv := f.values[key]
		fn(lv.labels, lv.value)
	}
}

// Counter is a monotonically increasing metric.
type Counter struct {
	*family[atomicFloat64]
}

func newCounter(name, help string, labelNames []string) *Counter {
	return &Counter{newFamily(name, help, labelNames, func() *atomicFloat64 { return &atomicFloat64{} })}
}

// Type returns the metric type.
func (c *Counter) Type() MetricType { return MetricTypeCounter }

// Add adds delta to the counter for the given label values.
func (c *Counter) Add(delta float64, labelValues ...string) error {
	if delta < 0 {
		return fmt.Errorf("%w: counter %s", ErrNegativeCounterValue, c.name)
	}
	v, err := c.get(labelValues)
	if err != nil {
		return err
	}
	v.Add(delta)
	return nil
}

// Inc increments the counter for the given label values.
func (c *Counter) Inc(labelValues ...string) error {
	return c.Add(1, labelValues...)
}

// Value returns the current value for the given label values.
func (c *Counter) Value(labelValues ...string) float64 {
	v, ok := c.peek(labelValues)
	if !ok {
		return 0
	}
	return v.Load()
}

// Collect returns all metric samples.
func (c *Counter) Collect() []Sample {
	var out []Sample
	c.each(func(labels map[string]string, v *atomicFloat64) {
		out = append(out, Sample{Name: c.name, Labels: labels, Value: v.Load()})
	})
	return out
}

// Gauge is a metric that can go up and down.
type Gauge struct {
	*family[atomicFloat64]
}

func newGauge(name, help string, labelNames []string) *Gauge {
	return &Gauge{newFamily(name, help, labelNames, func() *atomicFloat64 { return &atomicFloat64{} })}
}

// Type returns the metric type.
func (g *Gauge) Type() MetricType { return MetricTypeGauge }

// Set sets the gauge for the given label values.
func (g *Gauge) Set(value float64, labelValues ...string) error {
	v, err := g.get(labelValues)
	if err != nil {
		return err
	}
	v.Store(value)
	return nil
}

// Add adds delta (which may be negative) to the gauge.
func (g *Gauge) Add(delta float64, labelValues ...string) error {
	v, err := g.get(labelValues)
	if err != nil {
		return err
	}
	v.Add(delta)
	return nil
}

// Value returns the current value for the given label values.
func (g *Gauge) Value(labelValues ...string) float64 {
	v, ok := g.peek(labelValues)
	if !ok {
		return 0
	}
	return v.Load()
}

// Collect returns all metric samples.
func (g *Gauge) Collect() []Sample {
	var out []Sample
	g.each(func(labels map[string]string, v *atomicFloat64) {
		out = append(out, Sample{Name: g.name, Labels: labels, Value: v.Load()})
	})
	return out
}

// GaugeFunc reports a value computed at collection time.
type GaugeFunc struct {
	name string
	help string
	fn   func() float64
}

func (g *GaugeFunc) Name() string     { return g.name }
func (g *GaugeFunc) Help() string     { return g.help }
func (g *GaugeFunc) Type() MetricType { return MetricTypeGauge }

// Collect returns the single sample.
func (g *GaugeFunc) Collect() []Sample {
	return []Sample{{Name: g.name, Value: g.fn()}}
}

// DefaultBuckets are the default histogram buckets for request durations (in seconds).
var DefaultBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

type histogramValue struct {
	mu     sync.Mutex
	counts []uint64
	sum    float64
	count  uint64
}

// Histogram tracks the distribution of observed values.
type Histogram struct {
	*family[histogramValue]
	buckets []float64
}

func newHistogram(name, help string, buckets []float64, labelNames []string) *Histogram {
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	b := append([]float64(nil), buckets...)
	sort.Float64s(b)
	return &Histogram{
		family:  newFamily(name, help, labelNames, func() *histogramValue { return &histogramValue{counts: make([]uint64, len(b))} }),
		buckets: b,
	}
}

// Type returns the metric type.
func (h *Histogram) Type() MetricType { return MetricTypeHistogram }

// Observe records one value for the given label values.
func (h *Histogram) Observe(value float64, labelValues ...string) error {
	v, err := h.get(labelValues)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, upper := range h.buckets {
		if value <= upper {
			v.counts[i]++
		}
	}
	v.sum += value
	v.count++
	return nil
}

// Collect returns cumulative bucket, sum and count samples.
func (h *Histogram) Collect() []Sample {
	var out []Sample
	h.each(func(labels map[string]string, v *histogramValue) {
		v.mu.Lock()
		defer v.mu.Unlock()
		for i, upper := range h.buckets {
			out = append(out, Sample{Name: h.name + "_bucket", Labels: withLabel(labels, "le", formatFloat(upper)), Value: float64(v.counts[i])})
		}
		out = append(out,
			Sample{Name: h.name + "_bucket", Labels: withLabel(labels, "le", "+Inf"), Value: float64(v.count)},
			Sample{Name: h.name + "_sum", Labels: labels, Value: v.sum},
			Sample{Name: h.name + "_count", Labels: labels, Value: float64(v.count)},
		)
	})
	return out
}

func withLabel(labels map[string]string, k, v string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for lk, lv := range labels {
		out[lk] = lv
	}
	out[k] = v
	return out
}
