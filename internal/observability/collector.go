// Package observability provides metrics collection and tracing for CLI operations.
package observability

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RequestInfo describes a control-plane HTTP request about to be sent.
type RequestInfo struct {
	Method string
	URL    string
}

// RequestResult describes the outcome of a control-plane HTTP request.
type RequestResult struct {
	StatusCode int
	Duration   time.Duration
	Error      error
}

// OperationInfo describes one authoring-plane call made while building a page.
type OperationInfo struct {
	Operation string // e.g. "CreateVisual", "AddDataField"
	Target    string // e.g. "Overview/2"
}

// SessionMetrics aggregates metrics for an entire CLI session.
type SessionMetrics struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalRequests   int
	FailedRequests  int
	TotalOperations int
	FailedOps       int
	TotalLatency    time.Duration
}

// SessionCollector accumulates metrics across a CLI session.
// It is safe for concurrent use and keeps counters only.
type SessionCollector struct {
	mu sync.Mutex

	startTime       time.Time
	totalRequests   int
	failedRequests  int
	totalOperations int
	failedOps       int
	totalLatency    time.Duration
}

// NewSessionCollector creates a new SessionCollector.
func NewSessionCollector() *SessionCollector {
	return &SessionCollector{
		startTime: time.Now(),
	}
}

// RecordRequest records the outcome of an HTTP request.
func (c *SessionCollector) RecordRequest(_ RequestInfo, result RequestResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
	c.totalLatency += result.Duration
	if result.Error != nil || result.StatusCode >= 400 {
		c.failedRequests++
	}
}

// RecordOperation records the outcome of an authoring operation.
func (c *SessionCollector) RecordOperation(_ OperationInfo, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalOperations++
	if err != nil {
		c.failedOps++
	}
}

// Summary returns aggregated metrics for the session.
func (c *SessionCollector) Summary() SessionMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	return SessionMetrics{
		StartTime:       c.startTime,
		EndTime:         time.Now(),
		TotalRequests:   c.totalRequests,
		FailedRequests:  c.failedRequests,
		TotalOperations: c.totalOperations,
		FailedOps:       c.failedOps,
		TotalLatency:    c.totalLatency,
	}
}

// Reset clears all collected metrics and resets the start time.
func (c *SessionCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTime = time.Now()
	c.totalRequests = 0
	c.failedRequests = 0
	c.totalOperations = 0
	c.failedOps = 0
	c.totalLatency = 0
}

// ToMap converts metrics to the shape stored under meta.stats.
func (m *SessionMetrics) ToMap() map[string]any {
	if m == nil {
		return nil
	}
	out := map[string]any{
		"requests":    m.TotalRequests,
		"operations":  m.TotalOperations,
		"latency_ms":  m.TotalLatency.Milliseconds(),
		"duration_ms": m.EndTime.Sub(m.StartTime).Milliseconds(),
	}
	if m.FailedRequests > 0 {
		out["failed_requests"] = m.FailedRequests
	}
	if m.FailedOps > 0 {
		out["failed_operations"] = m.FailedOps
	}
	return out
}

// SessionMetricsFromMap rebuilds metrics from a meta.stats map. Values may be
// ints (in-process) or float64 (after a JSON round trip).
func SessionMetricsFromMap(m map[string]any) *SessionMetrics {
	out := &SessionMetrics{
		TotalRequests:   intFrom(m["requests"]),
		FailedRequests:  intFrom(m["failed_requests"]),
		TotalOperations: intFrom(m["operations"]),
		FailedOps:       intFrom(m["failed_operations"]),
		TotalLatency:    time.Duration(intFrom(m["latency_ms"])) * time.Millisecond,
	}
	out.EndTime = out.StartTime.Add(time.Duration(intFrom(m["duration_ms"])) * time.Millisecond)
	return out
}

func intFrom(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

var printer = message.NewPrinter(language.English)

// FormatParts returns human-readable stat fragments, omitting zero counters.
func (m *SessionMetrics) FormatParts() []string {
	var parts []string
	if m.TotalRequests > 0 {
		s := printer.Sprintf("%d requests", m.TotalRequests)
		if m.FailedRequests > 0 {
			s += printer.Sprintf(" (%d failed)", m.FailedRequests)
		}
		parts = append(parts, s)
	}
	if m.TotalOperations > 0 {
		s := printer.Sprintf("%d operations", m.TotalOperations)
		if m.FailedOps > 0 {
			s += printer.Sprintf(" (%d failed)", m.FailedOps)
		}
		parts = append(parts, s)
	}
	if m.TotalLatency > 0 {
		parts = append(parts, printer.Sprintf("%dms api", m.TotalLatency.Milliseconds()))
	}
	if d := m.EndTime.Sub(m.StartTime); d > 0 {
		parts = append(parts, fmt.Sprintf("%.1fs total", d.Seconds()))
	}
	return parts
}
