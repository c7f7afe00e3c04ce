package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	ordersPlaced   atomic.Uint64
	ordersFilled   atomic.Uint64
	ordersRejected atomic.Uint64
	tradesExecuted atomic.Uint64

	// Latency tracking (submission to result)
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeClients atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordOrder records one placed order with its match latency.
func (m *Metrics) RecordOrder(latencyNs int64) {
	m.ordersPlaced.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordFill records a fully filled order.
func (m *Metrics) RecordFill() {
	m.ordersFilled.Add(1)
}

// RecordRejection records an order that ended rejected.
func (m *Metrics) RecordRejection() {
	m.ordersRejected.Add(1)
}

// RecordTrades adds executed trades to the counter.
func (m *Metrics) RecordTrades(n int) {
	if n > 0 {
		m.tradesExecuted.Add(uint64(n))
	}
}

// IncrementClients increments connected gateway clients by 1.
func (m *Metrics) IncrementClients() {
	m.activeClients.Add(1)
}

// DecrementClients decrements connected gateway clients by 1.
func (m *Metrics) DecrementClients() {
	m.activeClients.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	OrdersPlaced   uint64
	OrdersFilled   uint64
	OrdersRejected uint64
	TradesExecuted uint64
	AvgLatencyNs   int64
	ActiveClients  int32
	Timestamp      time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avg int64
	if count := m.latencyCount.Load(); count > 0 {
		avg = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		OrdersPlaced:   m.ordersPlaced.Load(),
		OrdersFilled:   m.ordersFilled.Load(),
		OrdersRejected: m.ordersRejected.Load(),
		TradesExecuted: m.tradesExecuted.Load(),
		AvgLatencyNs:   avg,
		ActiveClients:  m.activeClients.Load(),
		Timestamp:      time.Now(),
	}
}

// Reset zeroes all counters. Intended for tests.
func (m *Metrics) Reset() {
	m.ordersPlaced.Store(0)
	m.ordersFilled.Store(0)
	m.ordersRejected.Store(0)
	m.tradesExecuted.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeClients.Store(0)
}
