package infra

import (
	"sync"
	"testing"
)

func TestMetrics_Counters(t *testing.T) {
	m := &Metrics{}

	m.RecordOrder(1000)
	m.RecordOrder(3000)
	m.RecordFill()
	m.RecordRejection()
	m.RecordTrades(3)
	m.RecordTrades(0) // no-op
	m.IncrementClients()

	snap := m.Snapshot()
	if snap.OrdersPlaced != 2 {
		t.Errorf("expected 2 orders placed, got %d", snap.OrdersPlaced)
	}
	if snap.OrdersFilled != 1 || snap.OrdersRejected != 1 {
		t.Errorf("fill/reject counters wrong: %+v", snap)
	}
	if snap.TradesExecuted != 3 {
		t.Errorf("expected 3 trades, got %d", snap.TradesExecuted)
	}
	if snap.AvgLatencyNs != 2000 {
		t.Errorf("expected avg latency 2000ns, got %d", snap.AvgLatencyNs)
	}
	if snap.ActiveClients != 1 {
		t.Errorf("expected 1 active client, got %d", snap.ActiveClients)
	}
}

func TestMetrics_ConcurrentUpdates(t *testing.T) {
	m := &Metrics{}
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordOrder(100)
				m.RecordTrades(1)
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.OrdersPlaced != 1000 || snap.TradesExecuted != 1000 {
		t.Errorf("lost updates under concurrency: %+v", snap)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}
	m.RecordOrder(100)
	m.RecordFill()
	m.Reset()

	snap := m.Snapshot()
	if snap.OrdersPlaced != 0 || snap.OrdersFilled != 0 || snap.AvgLatencyNs != 0 {
		t.Errorf("reset left residue: %+v", snap)
	}
}
