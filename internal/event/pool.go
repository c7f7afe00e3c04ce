package event

import (
	"sync"
)

// Submit events are pooled to reduce GC pressure at high submission rates.
//
// Usage:
//
//	ev := AcquireOrderSubmitEvent()
//	ev.Seq = seq
//	ev.Order = order
//	// ... send to sequencer, wait on Done ...
//	ReleaseOrderSubmitEvent(ev)
var orderSubmitPool = sync.Pool{
	New: func() interface{} {
		return &OrderSubmitEvent{}
	},
}

// AcquireOrderSubmitEvent gets an OrderSubmitEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireOrderSubmitEvent() *OrderSubmitEvent {
	return orderSubmitPool.Get().(*OrderSubmitEvent)
}

// ReleaseOrderSubmitEvent returns an OrderSubmitEvent to the pool.
// Only release after the sequencer has delivered on Done.
func ReleaseOrderSubmitEvent(ev *OrderSubmitEvent) {
	if ev == nil {
		return
	}
	ev.Seq = 0
	ev.Ts = 0
	ev.Order = nil
	ev.Done = nil

	orderSubmitPool.Put(ev)
}

// Warmup pre-allocates a batch of submit events so the first burst of
// traffic does not pay the allocation cost.
func Warmup() {
	const batchSize = 1000

	evs := make([]*OrderSubmitEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		evs = append(evs, AcquireOrderSubmitEvent())
	}
	for _, ev := range evs {
		ReleaseOrderSubmitEvent(ev)
	}
}
