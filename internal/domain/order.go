package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NoPrice is the sentinel price carried by market orders. It is never a
// legal price for a resting order.
var NoPrice = decimal.NewFromInt(-1)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether the side is one of the two known directions.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Inverse returns the side an order of side s trades against.
// An unknown side is a programmer error and halts the engine.
func (s Side) Inverse() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		panic(fmt.Sprintf("ORDER_SIDE_INVALID: %q", string(s)))
	}
}

// OrderType selects one of the four matching algorithms.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeFOK    OrderType = "FOK"
	OrderTypeIOC    OrderType = "IOC"
)

// Valid reports whether the order type is a member of the closed set.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeFOK, OrderTypeIOC:
		return true
	default:
		return false
	}
}

// Order is a single buy/sell instruction. Volume is the remaining unmatched
// volume: the engine decrements it in place while the order is being
// processed, and ownership passes to the book if the order rests.
type Order struct {
	ID          uuid.UUID
	Side        Side
	Type        OrderType
	Price       decimal.Decimal // NoPrice for market orders
	Volume      int64
	TraderID    uuid.UUID
	SubmittedAt time.Time
}

// NewOrder validates and builds an order. The timestamp must come from the
// caller's monotonic clock; it is used only for tie-breaking.
func NewOrder(side Side, typ OrderType, trader uuid.UUID, volume int64, price decimal.Decimal, submittedAt time.Time) (*Order, error) {
	if !side.Valid() {
		return nil, &ValidationError{Field: "side", Reason: fmt.Sprintf("unknown side %q", string(side))}
	}
	if !typ.Valid() {
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown order type %q", string(typ))}
	}
	if err := ValidateVolume(volume); err != nil {
		return nil, err
	}
	if err := ValidatePrice(price); err != nil {
		return nil, err
	}
	if typ != OrderTypeMarket && price.Equal(NoPrice) {
		return nil, &ValidationError{Field: "price", Reason: "non-market order must carry a price"}
	}

	return &Order{
		ID:          uuid.New(),
		Side:        side,
		Type:        typ,
		Price:       price,
		Volume:      volume,
		TraderID:    trader,
		SubmittedAt: submittedAt,
	}, nil
}

// ValidatePrice rejects any price that is neither the NoPrice sentinel nor
// strictly positive.
func ValidatePrice(price decimal.Decimal) error {
	if !price.Equal(NoPrice) && price.Sign() <= 0 {
		return &ValidationError{Field: "price", Reason: fmt.Sprintf("price %s must be greater than 0", price)}
	}
	return nil
}

// ValidateVolume rejects non-positive volumes.
func ValidateVolume(volume int64) error {
	if volume <= 0 {
		return &ValidationError{Field: "volume", Reason: fmt.Sprintf("volume %d must be greater than 0", volume)}
	}
	return nil
}

// HasPrice reports whether the order carries a real price.
func (o *Order) HasPrice() bool {
	return !o.Price.Equal(NoPrice)
}

// IsPriceInLimit is the crossing test: whether a counterparty price is
// acceptable to this order. Market orders accept any price.
func (o *Order) IsPriceInLimit(price decimal.Decimal) bool {
	if !o.HasPrice() {
		return true
	}
	if o.Side == SideBuy {
		return o.Price.GreaterThanOrEqual(price)
	}
	return o.Price.LessThanOrEqual(price)
}

// Better reports whether o outranks other under price-time priority:
// the better price wins, equal prices fall back to the earlier submission.
// Comparing orders of different sides is a programmer error.
func (o *Order) Better(other *Order) bool {
	if o.Side != other.Side {
		panic(fmt.Sprintf("ORDER_SIDE_MISMATCH: cannot compare %s with %s", o.Side, other.Side))
	}
	if c := o.Price.Cmp(other.Price); c != 0 {
		if o.Side == SideBuy {
			return c > 0
		}
		return c < 0
	}
	return o.SubmittedAt.Before(other.SubmittedAt)
}
