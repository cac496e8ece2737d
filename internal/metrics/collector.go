// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	Errors    int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Name      string
	Count     int64
	Errors    int64
	AvgTimeMs float64
	MinTimeMs int64
	MaxTimeMs int64
}

// Snapshot represents the console statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	Operations    []OperationSnapshot
	Counters      map[string]int64
}

// Operation names for the collector.
const (
	OpListConversations = "list_conversations"
	OpHistory           = "history"
	OpControlStatus     = "control_status"
	OpSetControl        = "set_control"
	OpReply             = "reply"
)

// Counter names for the collector.
const (
	CounterStreamConnects = "stream_connects"
	CounterStreamDrops    = "stream_drops"
	CounterStreamEvents   = "stream_events"
	CounterStaleResults   = "stale_results"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
	counters  map[string]int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
		counters:  make(map[string]int64),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation. A nil collector is a no-op.
func (c *Collector) RecordTiming(op string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration
	if err != nil {
		m.Errors++
	}

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// Inc bumps a named counter. A nil collector is a no-op.
func (c *Collector) Inc(name string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name]++
}

// Counter returns the current value of a named counter.
func (c *Collector) Counter(name string) int64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[name]
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(name string, m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	return &OperationSnapshot{
		Name:      name,
		Count:     m.Count,
		Errors:    m.Errors,
		AvgTimeMs: float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs: m.MinTime.Milliseconds(),
		MaxTimeMs: m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics,
// operations sorted by name.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{Counters: map[string]int64{}}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Counters:      make(map[string]int64, len(c.counters)),
	}
	for name, m := range c.ops {
		if s := snapshotOp(name, m); s != nil {
			snap.Operations = append(snap.Operations, *s)
		}
	}
	sort.Slice(snap.Operations, func(i, j int) bool {
		return snap.Operations[i].Name < snap.Operations[j].Name
	})
	for name, v := range c.counters {
		snap.Counters[name] = v
	}
	return snap
}
