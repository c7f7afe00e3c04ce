package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubmissionRecord is the journaled form of an order submission. It is
// written WAL-first by the sequencer and is sufficient to rebuild the book
// by replay. Prices are stored as decimal strings.
type SubmissionRecord struct {
	Seq         uint64 `gorm:"primaryKey"`
	OrderID     string `gorm:"index"`
	TraderID    string
	Side        string
	OrderType   string
	Price       string
	Volume      int64
	SubmittedAt time.Time
}

// NewSubmissionRecord flattens an order for journaling.
func NewSubmissionRecord(seq uint64, order *Order) *SubmissionRecord {
	return &SubmissionRecord{
		Seq:         seq,
		OrderID:     order.ID.String(),
		TraderID:    order.TraderID.String(),
		Side:        string(order.Side),
		OrderType:   string(order.Type),
		Price:       order.Price.String(),
		Volume:      order.Volume,
		SubmittedAt: order.SubmittedAt,
	}
}

// ToOrder rebuilds the submitted order, preserving its original identity
// and timestamp so a replay reproduces the same ranking.
func (r *SubmissionRecord) ToOrder() (*Order, error) {
	id, err := uuid.Parse(r.OrderID)
	if err != nil {
		return nil, &ValidationError{Field: "order_id", Reason: err.Error()}
	}
	trader, err := uuid.Parse(r.TraderID)
	if err != nil {
		return nil, &ValidationError{Field: "trader_id", Reason: err.Error()}
	}
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return nil, &ValidationError{Field: "price", Reason: err.Error()}
	}

	order, err := NewOrder(Side(r.Side), OrderType(r.OrderType), trader, r.Volume, price, r.SubmittedAt)
	if err != nil {
		return nil, err
	}
	order.ID = id
	return order, nil
}

// MatchRecord is the persisted summary of a match result.
type MatchRecord struct {
	OrderID         string `gorm:"primaryKey"`
	Side            string
	OrderType       string
	Status          string `gorm:"index"`
	Note            string
	FilledVolume    int64
	RemainingVolume int64
	AvgMatchPrice   string
	CreatedAt       time.Time
}

// TradeRecord is one persisted trade row of the audit log.
type TradeRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	OffererID  string `gorm:"index"`
	BidderID   string `gorm:"index"`
	Price      string
	Volume     int64
	ExecutedAt time.Time
}
