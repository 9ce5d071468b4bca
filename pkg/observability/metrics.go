package observability

import (
	"strings"
	"sync"
	"time"
)

// Metrics is the sink the engine, cache, and publisher report into. The
// default binary wires NoopMetrics; tests wire InMemoryMetrics and read
// the counters back.
type Metrics interface {
	Counter(name string, value int64, tags ...Tag)
	Gauge(name string, value float64, tags ...Tag)
	Histogram(name string, value float64, tags ...Tag)
	Timing(name string, duration time.Duration, tags ...Tag)
}

// Tag labels a metric sample.
type Tag struct {
	Key   string
	Value string
}

// T is shorthand for building a Tag inline.
func T(key, value string) Tag {
	return Tag{Key: key, Value: value}
}

// Metric names. Dotted, prefixed with the binary name, tags carry the
// dimensions.
const (
	MetricOperationTotal    = "takt.operation.total"
	MetricOperationDuration = "takt.operation.duration"
	MetricOperationErrors   = "takt.operation.errors"

	MetricEngineRuns           = "takt.engine.runs"
	MetricEngineDuration       = "takt.engine.duration"
	MetricEngineErrors         = "takt.engine.errors"
	MetricEngineTasksScheduled = "takt.engine.tasks_scheduled"
	MetricEngineRetries        = "takt.engine.placement_retries"
	MetricEngineStarvations    = "takt.engine.starvations"

	MetricProjectsImported = "takt.projects.imported"

	MetricCacheHits   = "takt.cache.hits"
	MetricCacheMisses = "takt.cache.misses"

	MetricPublishUpserts     = "takt.publish.upserts"
	MetricPublishBreakerOpen = "takt.publish.breaker_open"
)

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) Counter(string, int64, ...Tag)        {}
func (NoopMetrics) Gauge(string, float64, ...Tag)        {}
func (NoopMetrics) Histogram(string, float64, ...Tag)    {}
func (NoopMetrics) Timing(string, time.Duration, ...Tag) {}

// InMemoryMetrics accumulates samples in maps keyed by name and tags.
// It backs tests and the development binaries; nothing about it is
// meant to survive a restart.
type InMemoryMetrics struct {
	mu         sync.RWMutex
	counters   map[string]int64
	gauges     map[string]float64
	histograms map[string][]float64
	timings    map[string][]time.Duration
}

// NewInMemoryMetrics returns an empty collector.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		counters:   map[string]int64{},
		gauges:     map[string]float64{},
		histograms: map[string][]float64{},
		timings:    map[string][]time.Duration{},
	}
}

func (m *InMemoryMetrics) Counter(name string, value int64, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[taggedKey(name, tags)] += value
}

func (m *InMemoryMetrics) Gauge(name string, value float64, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[taggedKey(name, tags)] = value
}

func (m *InMemoryMetrics) Histogram(name string, value float64, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := taggedKey(name, tags)
	m.histograms[key] = append(m.histograms[key], value)
}

func (m *InMemoryMetrics) Timing(name string, duration time.Duration, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := taggedKey(name, tags)
	m.timings[key] = append(m.timings[key], duration)
}

// GetCounter reads a counter back. Tags must match the recording call.
func (m *InMemoryMetrics) GetCounter(name string, tags ...Tag) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[taggedKey(name, tags)]
}

// GetGauge reads the last recorded gauge value back.
func (m *InMemoryMetrics) GetGauge(name string, tags ...Tag) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gauges[taggedKey(name, tags)]
}

// GetHistogram returns every recorded sample in order.
func (m *InMemoryMetrics) GetHistogram(name string, tags ...Tag) []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.histograms[taggedKey(name, tags)]
}

// GetTimings returns every recorded duration in order.
func (m *InMemoryMetrics) GetTimings(name string, tags ...Tag) []time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timings[taggedKey(name, tags)]
}

// Reset drops all recorded samples.
func (m *InMemoryMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = map[string]int64{}
	m.gauges = map[string]float64{}
	m.histograms = map[string][]float64{}
	m.timings = map[string][]time.Duration{}
}

func taggedKey(name string, tags []Tag) string {
	if len(tags) == 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	for _, t := range tags {
		b.WriteByte(':')
		b.WriteString(t.Key)
		b.WriteByte('=')
		b.WriteString(t.Value)
	}
	return b.String()
}
