package book

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"match_go/internal/domain"
)

// OrderBook holds the resting orders of a single market as two price-time
// heaps plus an id index for O(log n) cancel and amend. It is not safe for
// concurrent use: every mutation must come from the single matching
// goroutine.
type OrderBook struct {
	bids   priceTimeQueue
	offers priceTimeQueue
	index  map[uuid.UUID]*entry
	seq    int64
	now    func() time.Time
}

// TopOfBook is a copied view of the best order on each side.
type TopOfBook struct {
	BestBid   *domain.Order
	BestOffer *domain.Order
}

// NewOrderBook builds an empty book.
func NewOrderBook() *OrderBook {
	b := &OrderBook{
		index: make(map[uuid.UUID]*entry),
		now:   time.Now,
	}
	heap.Init(&b.bids)
	heap.Init(&b.offers)
	return b
}

// SetClock swaps the trade timestamp source. Intended for tests.
func (b *OrderBook) SetClock(now func() time.Time) {
	b.now = now
}

func (b *OrderBook) queueFor(side domain.Side) *priceTimeQueue {
	if side == domain.SideBuy {
		return &b.bids
	}
	return &b.offers
}

// BestBid returns the highest-priority resting buy order, or nil.
func (b *OrderBook) BestBid() *domain.Order {
	if e := b.bids.peek(); e != nil {
		return e.order
	}
	return nil
}

// BestOffer returns the highest-priority resting sell order, or nil.
func (b *OrderBook) BestOffer() *domain.Order {
	if e := b.offers.peek(); e != nil {
		return e.order
	}
	return nil
}

// BestOrder takes an incoming order's own side and returns the best resting
// order it could trade with: buys see the best offer, sells the best bid.
func (b *OrderBook) BestOrder(side domain.Side) *domain.Order {
	if side.Inverse() == domain.SideBuy {
		return b.BestBid()
	}
	return b.BestOffer()
}

// InsertRestingOrder places an order on its side of the book. Orders
// without a real price never rest.
func (b *OrderBook) InsertRestingOrder(order *domain.Order) error {
	if !order.HasPrice() {
		return &domain.ValidationError{Field: "price", Reason: "cannot place a resting order with no price"}
	}
	if _, exists := b.index[order.ID]; exists {
		return &domain.ValidationError{Field: "order_id", Reason: fmt.Sprintf("order %s already resting", order.ID)}
	}

	b.seq++
	e := &entry{order: order, seq: b.seq}
	heap.Push(b.queueFor(order.Side), e)
	b.index[order.ID] = e
	return nil
}

// lookup resolves an order id on the named side.
func (b *OrderBook) lookup(orderID uuid.UUID, side domain.Side) (*entry, error) {
	e, ok := b.index[orderID]
	if !ok || e.order.Side != side {
		return nil, fmt.Errorf("%w: order %s on side %s", domain.ErrOrderNotFound, orderID, side)
	}
	return e, nil
}

// CancelOrder removes a resting order entirely.
func (b *OrderBook) CancelOrder(orderID uuid.UUID, side domain.Side) error {
	e, err := b.lookup(orderID, side)
	if err != nil {
		return err
	}
	heap.Remove(b.queueFor(side), e.index)
	delete(b.index, orderID)
	return nil
}

// AmendOrder mutates volume and/or price of a resting order in place.
// A price change re-establishes the ranking; a pure volume change leaves
// the ranking untouched, since ranking never depends on volume.
func (b *OrderBook) AmendOrder(orderID uuid.UUID, side domain.Side, newVolume *int64, newPrice *decimal.Decimal) error {
	if newVolume != nil {
		if err := domain.ValidateVolume(*newVolume); err != nil {
			return err
		}
	}
	if newPrice != nil {
		if newPrice.Equal(domain.NoPrice) {
			return &domain.ValidationError{Field: "price", Reason: "resting order cannot lose its price"}
		}
		if err := domain.ValidatePrice(*newPrice); err != nil {
			return err
		}
	}

	e, err := b.lookup(orderID, side)
	if err != nil {
		return err
	}

	if newVolume != nil {
		e.order.Volume = *newVolume
	}
	if newPrice != nil {
		e.order.Price = *newPrice
		heap.Fix(b.queueFor(side), e.index)
	}
	return nil
}

// TradeTop consumes volumeToTrade units of the best resting order opposite
// the aggressor: a full consumption cancels it, a partial one reduces its
// volume in place. The returned trade is priced at the resting order's
// price, so the aggressor receives any price improvement.
func (b *OrderBook) TradeTop(aggressor *domain.Order, volumeToTrade int64) (domain.Trade, error) {
	best := b.BestOrder(aggressor.Side)
	if best == nil {
		return domain.Trade{}, fmt.Errorf("%w: no resting order to trade with on side %s", domain.ErrOrderNotFound, aggressor.Side.Inverse())
	}
	if volumeToTrade <= 0 || volumeToTrade > best.Volume {
		return domain.Trade{}, &domain.ValidationError{Field: "volume", Reason: fmt.Sprintf("cannot trade %d of %d resting", volumeToTrade, best.Volume)}
	}

	if volumeToTrade == best.Volume {
		if err := b.CancelOrder(best.ID, best.Side); err != nil {
			return domain.Trade{}, err
		}
	} else {
		remaining := best.Volume - volumeToTrade
		if err := b.AmendOrder(best.ID, best.Side, &remaining, nil); err != nil {
			return domain.Trade{}, err
		}
	}

	offerer, bidder := aggressor.TraderID, best.TraderID
	if aggressor.Side == domain.SideBuy {
		offerer, bidder = best.TraderID, aggressor.TraderID
	}

	return domain.Trade{
		OffererID: offerer,
		BidderID:  bidder,
		Price:     best.Price,
		Volume:    volumeToTrade,
		Timestamp: b.now(),
	}, nil
}

// AvailableVolume sums the resting volume an incoming order of the given
// side and limit could legally cross with. A NoPrice limit counts the whole
// opposing side. Used for the fill-or-kill pre-flight check; a plain scan,
// no mutation.
func (b *OrderBook) AvailableVolume(side domain.Side, limit decimal.Decimal) int64 {
	opposing := b.queueFor(side.Inverse())
	market := limit.Equal(domain.NoPrice)

	var total int64
	for _, e := range opposing.entries {
		if market {
			total += e.order.Volume
			continue
		}
		inLimit := limit.GreaterThanOrEqual(e.order.Price)
		if side == domain.SideSell {
			inLimit = limit.LessThanOrEqual(e.order.Price)
		}
		if inLimit {
			total += e.order.Volume
		}
	}
	return total
}

// Depth returns the number of resting orders on the named side.
func (b *OrderBook) Depth(side domain.Side) int {
	return b.queueFor(side).Len()
}

// Top returns copies of the best order on each side.
func (b *OrderBook) Top() TopOfBook {
	var top TopOfBook
	if best := b.BestBid(); best != nil {
		cp := *best
		top.BestBid = &cp
	}
	if best := b.BestOffer(); best != nil {
		cp := *best
		top.BestOffer = &cp
	}
	return top
}

// SideOrders returns copies of one side's resting orders in priority order.
// O(n log n); meant for snapshots, dumps and tests, not the hot path.
func (b *OrderBook) SideOrders(side domain.Side) []domain.Order {
	src := b.queueFor(side)
	clone := priceTimeQueue{entries: make([]*entry, len(src.entries))}
	for i, e := range src.entries {
		cp := *e
		clone.entries[i] = &cp
	}

	orders := make([]domain.Order, 0, clone.Len())
	for clone.Len() > 0 {
		e := heap.Pop(&clone).(*entry)
		orders = append(orders, *e.order)
	}
	return orders
}
