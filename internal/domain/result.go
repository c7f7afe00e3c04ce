package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the final disposition of a processed order.
type OrderStatus string

const (
	// StatusPending means the result has not been finalised yet.
	StatusPending OrderStatus = "PENDING"
	// StatusFilled means the full original volume was matched.
	StatusFilled OrderStatus = "FILLED"
	// StatusAllRejected means no volume matched and nothing rests.
	StatusAllRejected OrderStatus = "ALL_REJECTED"
	// StatusPartialRejection means some volume matched and the remainder
	// was discarded (market/IOC semantics).
	StatusPartialRejection OrderStatus = "PARTIAL_REJECTION"
	// StatusAllResting means no volume matched and the full order rests.
	StatusAllResting OrderStatus = "ALL_RESTING"
	// StatusPartialResting means some volume matched and the remainder rests.
	StatusPartialResting OrderStatus = "PARTIAL_RESTING"
)

// maxNoteLen caps the diagnostic note on a match result.
const maxNoteLen = 250

// MatchResult is the engine's return contract for one placed order.
// Trades are in execution order.
type MatchResult struct {
	OrderID         uuid.UUID
	Side            Side
	OrderType       OrderType
	Note            string
	FilledVolume    int64
	RemainingVolume int64
	AvgMatchPrice   decimal.Decimal
	Status          OrderStatus
	Timestamp       time.Time
	Trades          []Trade
}

// NewMatchResult seeds a result with everything known before matching runs.
func NewMatchResult(order *Order, now time.Time) *MatchResult {
	return &MatchResult{
		OrderID:         order.ID,
		Side:            order.Side,
		OrderType:       order.Type,
		FilledVolume:    0,
		RemainingVolume: order.Volume,
		AvgMatchPrice:   NoMatch,
		Status:          StatusPending,
		Timestamp:       now,
	}
}

// AttachNote sets the diagnostic note. Notes longer than 250 characters
// indicate a programmer error.
func (r *MatchResult) AttachNote(note string) {
	if len(note) > maxNoteLen {
		panic(fmt.Sprintf("MATCH_NOTE_TOO_LONG: %d chars", len(note)))
	}
	r.Note = note
}

// Finalise fills in the result fields that depend on the outcome of
// matching. The incoming order must already carry its final remaining
// volume. Finalise is pure in (order type, remaining volume, trades):
// recomputing from the same inputs yields the same status and price.
func (r *MatchResult) Finalise(incoming *Order, trades []Trade) {
	r.Status = deriveStatus(incoming.Type, incoming.Volume, trades)
	r.FilledVolume = r.RemainingVolume - incoming.Volume
	r.RemainingVolume = incoming.Volume
	r.AvgMatchPrice = AvgTradePrice(trades)
	r.Trades = append(r.Trades, trades...)
}

// deriveStatus maps (type, final remaining volume, trades) to a status.
func deriveStatus(typ OrderType, remaining int64, trades []Trade) OrderStatus {
	if remaining == 0 {
		return StatusFilled
	}

	switch typ {
	case OrderTypeMarket, OrderTypeIOC:
		if len(trades) > 0 {
			return StatusPartialRejection
		}
		return StatusAllRejected
	case OrderTypeFOK:
		// FOK never partially commits.
		return StatusAllRejected
	default:
		if len(trades) > 0 {
			return StatusPartialResting
		}
		return StatusAllResting
	}
}

func (r *MatchResult) String() string {
	return fmt.Sprintf(
		"MatchResult(Side: %s, Type: %s, Filled: %d, Remaining: %d, AvgPrice: %s, Status: %s)",
		r.Side, r.OrderType, r.FilledVolume, r.RemainingVolume, r.AvgMatchPrice, r.Status,
	)
}
