package engine

import (
	"fmt"
	"time"

	"match_go/internal/book"
	"match_go/internal/domain"
)

// noteInsufficientLiquidity is attached to any result that could not fill
// for lack of eligible opposing volume.
const noteInsufficientLiquidity = "Insufficient liquidity to match order fully"

// noteResting is attached when unmatched limit volume is left on the book.
const noteResting = "Unmatched volume resting on the book"

// MatchingEngine drives the four order-type algorithms against a single
// order book. All methods must be called from one goroutine: price-time
// priority is only meaningful when orders hit the book strictly one at a
// time.
type MatchingEngine struct {
	book *book.OrderBook
	now  func() time.Time
}

// Quote is a linked buy+sell pair. The two legs are matched fully
// independently; there is no atomicity between them.
type Quote struct {
	Bid   *domain.Order
	Offer *domain.Order
}

// NewMatchingEngine builds an engine over the given book.
func NewMatchingEngine(b *book.OrderBook) *MatchingEngine {
	return &MatchingEngine{book: b, now: time.Now}
}

// SetClock swaps the result timestamp source. Intended for tests.
func (e *MatchingEngine) SetClock(now func() time.Time) {
	e.now = now
}

// Book exposes the underlying order book for snapshots and dumps.
func (e *MatchingEngine) Book() *book.OrderBook {
	return e.book
}

// PlaceOrder runs one order through its type-specific algorithm and
// returns the outcome. Liquidity shortfalls are statuses, never errors;
// an order type outside the closed set is a programmer error.
func (e *MatchingEngine) PlaceOrder(order *domain.Order) *domain.MatchResult {
	switch order.Type {
	case domain.OrderTypeMarket:
		return e.processMarketOrder(order)
	case domain.OrderTypeLimit:
		return e.processLimitOrder(order)
	case domain.OrderTypeFOK:
		return e.processFOKOrder(order)
	case domain.OrderTypeIOC:
		return e.processIOCOrder(order)
	default:
		panic(fmt.Sprintf("ORDER_TYPE_UNSUPPORTED: %q", string(order.Type)))
	}
}

// PlaceOrders applies PlaceOrder to each order strictly in sequence and
// returns the results in the same order.
func (e *MatchingEngine) PlaceOrders(orders []*domain.Order) []*domain.MatchResult {
	results := make([]*domain.MatchResult, 0, len(orders))
	for _, o := range orders {
		results = append(results, e.PlaceOrder(o))
	}
	return results
}

// PlaceQuote submits the two legs of a quote as two independent orders.
func (e *MatchingEngine) PlaceQuote(q Quote) (bid, offer *domain.MatchResult) {
	return e.PlaceOrder(q.Bid), e.PlaceOrder(q.Offer)
}

// processMarketOrder matches against the best opposing order regardless of
// price until the order fills or liquidity runs out. A market order never
// rests: any remainder is discarded and reported.
func (e *MatchingEngine) processMarketOrder(incoming *domain.Order) *domain.MatchResult {
	res := domain.NewMatchResult(incoming, e.now())
	var trades []domain.Trade

	for incoming.Volume > 0 {
		best := e.book.BestOrder(incoming.Side)
		if best == nil {
			res.AttachNote(noteInsufficientLiquidity)
			break
		}
		trades = append(trades, e.crossingStep(incoming, best))
	}

	res.Finalise(incoming, trades)
	return res
}

// processLimitOrder matches against eligible opposing orders and rests the
// remainder on the book. A limit order always ends fully filled or resting.
func (e *MatchingEngine) processLimitOrder(incoming *domain.Order) *domain.MatchResult {
	res := domain.NewMatchResult(incoming, e.now())
	var trades []domain.Trade

	for incoming.Volume > 0 {
		best := e.book.BestOrder(incoming.Side)
		if best == nil || !incoming.IsPriceInLimit(best.Price) {
			if err := e.book.InsertRestingOrder(incoming); err != nil {
				panic(fmt.Sprintf("BOOK_INSERT_FAILED: %v", err))
			}
			res.AttachNote(noteResting)
			break
		}
		trades = append(trades, e.crossingStep(incoming, best))
	}

	res.Finalise(incoming, trades)
	return res
}

// processFOKOrder fills the entire volume immediately or has zero effect.
// Fillability is proven up front against the opposing queue, so the commit
// loop below can never run out of liquidity and no rollback path exists:
// on rejection the book was simply never touched.
func (e *MatchingEngine) processFOKOrder(incoming *domain.Order) *domain.MatchResult {
	res := domain.NewMatchResult(incoming, e.now())

	if e.book.AvailableVolume(incoming.Side, incoming.Price) < incoming.Volume {
		res.AttachNote(noteInsufficientLiquidity)
		res.Finalise(incoming, nil)
		return res
	}

	var trades []domain.Trade
	for incoming.Volume > 0 {
		best := e.book.BestOrder(incoming.Side)
		if best == nil || !incoming.IsPriceInLimit(best.Price) {
			panic("FOK_PREFLIGHT_BROKEN: eligible volume vanished mid-fill")
		}
		trades = append(trades, e.crossingStep(incoming, best))
	}

	res.Finalise(incoming, trades)
	return res
}

// processIOCOrder matches like a limit order but discards the remainder
// instead of resting it. Trades executed before the stop are kept.
func (e *MatchingEngine) processIOCOrder(incoming *domain.Order) *domain.MatchResult {
	res := domain.NewMatchResult(incoming, e.now())
	var trades []domain.Trade

	for incoming.Volume > 0 {
		best := e.book.BestOrder(incoming.Side)
		if best == nil || !incoming.IsPriceInLimit(best.Price) {
			res.AttachNote(noteInsufficientLiquidity)
			break
		}
		trades = append(trades, e.crossingStep(incoming, best))
	}

	res.Finalise(incoming, trades)
	return res
}

// crossingStep resolves one crossing between the incoming order and the
// confirmed-eligible best opposing order: min(incoming, best) units trade
// via the book and the incoming volume is reduced in place. The incoming
// order itself never enters or leaves the book here.
func (e *MatchingEngine) crossingStep(incoming, best *domain.Order) domain.Trade {
	volume := min(incoming.Volume, best.Volume)

	trade, err := e.book.TradeTop(incoming, volume)
	if err != nil {
		// The caller checked BestOrder and the crossing test; a failure
		// here means the book and engine disagree. Halt.
		panic(fmt.Sprintf("BOOK_TRADE_FAILED: %v", err))
	}

	incoming.Volume -= volume
	return trade
}
