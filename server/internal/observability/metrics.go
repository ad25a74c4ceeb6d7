package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics counts handled messages per outcome ("sleep_start", "summary",
// "conversational", ...).
type Metrics struct {
	mu       sync.Mutex
	total    atomic.Int64
	failed   atomic.Int64
	commands map[string]*CommandMetrics
}

// CommandMetrics holds the counters of one outcome.
type CommandMetrics struct {
	count         atomic.Int64
	errors        atomic.Int64
	totalDuration atomic.Int64 // milliseconds
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{commands: make(map[string]*CommandMetrics)}
}

var globalMetrics = NewMetrics()

// GlobalMetrics returns the global metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// Record records one handled message.
func (m *Metrics) Record(command string, duration time.Duration, err error) {
	m.total.Add(1)
	cm := m.command(command)
	cm.count.Add(1)
	cm.totalDuration.Add(duration.Milliseconds())
	if err != nil {
		m.failed.Add(1)
		cm.errors.Add(1)
	}
}

func (m *Metrics) command(name string) *CommandMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	cm, ok := m.commands[name]
	if !ok {
		cm = &CommandMetrics{}
		m.commands[name] = cm
	}
	return cm
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	m.total.Store(0)
	m.failed.Store(0)
	m.mu.Lock()
	m.commands = make(map[string]*CommandMetrics)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	commands := make(map[string]CommandSnapshot, len(m.commands))
	for name, cm := range m.commands {
		snap := CommandSnapshot{
			Count:  cm.count.Load(),
			Errors: cm.errors.Load(),
		}
		if snap.Count > 0 {
			snap.AverageDurationMs = cm.totalDuration.Load() / snap.Count
		}
		commands[name] = snap
	}
	return &MetricsSnapshot{
		RequestTotal:  m.total.Load(),
		RequestFailed: m.failed.Load(),
		Commands:      commands,
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64                      `json:"request_total"`
	RequestFailed int64                      `json:"request_failed"`
	Commands      map[string]CommandSnapshot `json:"commands"`
}

// CommandSnapshot represents metrics for one outcome.
type CommandSnapshot struct {
	Count             int64 `json:"count"`
	Errors            int64 `json:"errors"`
	AverageDurationMs int64 `json:"average_duration_ms"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
