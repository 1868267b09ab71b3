package metrics

import (
	"maps"
	"slices"
	"strings"
	"sync"
)

// Collector captures counters, gauges and histograms.
type Collector interface {
	IncCounter(name string, labels map[string]string, delta float64)
	SetGauge(name string, labels map[string]string, value float64)
	ObserveHistogram(name string, labels map[string]string, value float64)
}

// Names of the statistics recorded by this module.
const (
	MergeOperationTotalTime = "merge_operation_time_nanos"
	MergeOperations         = "merge_operations_total"
	MergeFailures           = "merge_failures_total"
	NumberKeysRead          = "batch_keys_read_total"
	NumberKeysWritten       = "batch_keys_written_total"
	IndexRebuilds           = "batch_index_rebuilds_total"
)

// Noop drops everything.
type Noop struct{}

func (Noop) IncCounter(string, map[string]string, float64)       {}
func (Noop) SetGauge(string, map[string]string, float64)         {}
func (Noop) ObserveHistogram(string, map[string]string, float64) {}

// Memory keeps values in process, mostly for tests and the CLI summary.
type Memory struct {
	mu         sync.Mutex
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string][]float64
}

func NewMemory() *Memory {
	return &Memory{
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func (m *Memory) IncCounter(name string, labels map[string]string, delta float64) {
	m.mu.Lock()
	m.counters[seriesKey(name, labels)] += delta
	m.mu.Unlock()
}

func (m *Memory) SetGauge(name string, labels map[string]string, value float64) {
	m.mu.Lock()
	m.gauges[seriesKey(name, labels)] = value
	m.mu.Unlock()
}

func (m *Memory) ObserveHistogram(name string, labels map[string]string, value float64) {
	m.mu.Lock()
	k := seriesKey(name, labels)
	m.histograms[k] = append(m.histograms[k], value)
	m.mu.Unlock()
}

func (m *Memory) Counter(name string, labels map[string]string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[seriesKey(name, labels)]
}

func (m *Memory) Gauge(name string, labels map[string]string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[seriesKey(name, labels)]
}

// Observations returns a copy of the values observed for a histogram.
func (m *Memory) Observations(name string, labels map[string]string) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.histograms[seriesKey(name, labels)])
}

// Series lists every recorded counter as "name{k=v,...}" keys.
func (m *Memory) Series() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.counters))
}

// Snapshot copies every counter keyed the way Series names them.
func (m *Memory) Snapshot() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.counters)
}

func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('{')
	for i, k := range slices.Sorted(maps.Keys(labels)) {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(labels[k])
	}
	sb.WriteByte('}')
	return sb.String()
}
