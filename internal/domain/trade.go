package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NoMatch is the sentinel average price for a result with zero trades.
var NoMatch = decimal.NewFromInt(-1)

// Trade records one completed exchange between a resting order and an
// aggressor. The price is always the resting order's price; the aggressor
// takes any price improvement. Immutable once created.
type Trade struct {
	OffererID uuid.UUID
	BidderID  uuid.UUID
	Price     decimal.Decimal
	Volume    int64
	Timestamp time.Time
}

// AvgTradePrice returns the volume-weighted mean price over a list of
// trades, or NoMatch if the list is empty.
func AvgTradePrice(trades []Trade) decimal.Decimal {
	var totalVolume int64
	totalCost := decimal.Zero

	for _, t := range trades {
		totalVolume += t.Volume
		totalCost = totalCost.Add(t.Price.Mul(decimal.NewFromInt(t.Volume)))
	}

	if totalVolume == 0 {
		return NoMatch
	}
	return totalCost.Div(decimal.NewFromInt(totalVolume))
}
