package event

import (
	"match_go/internal/domain"
)

// EventType identifies the kind of an event.
type EventType string

const (
	TypeOrderSubmit EventType = "ORDER_SUBMIT"
)

// Event is the unit of work flowing into the sequencer inbox. Every event
// carries a strictly increasing sequence number; a gap halts the system.
type Event interface {
	GetSeq() uint64
	GetType() EventType
}

// BaseEvent carries the fields common to all events.
type BaseEvent struct {
	Seq uint64
	Ts  int64 // unix microseconds at ingress
}

func (e *BaseEvent) GetSeq() uint64 {
	return e.Seq
}

// OrderSubmitEvent asks the sequencer to run one order through the
// matching engine. Done, when non-nil, receives the result exactly once;
// it must be buffered so the sequencer never blocks on a slow caller.
type OrderSubmitEvent struct {
	BaseEvent
	Order *domain.Order
	Done  chan *domain.MatchResult
}

func (e *OrderSubmitEvent) GetType() EventType {
	return TypeOrderSubmit
}
