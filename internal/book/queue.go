package book

import (
	"match_go/internal/domain"
)

// entry wraps a resting order for heap operations. seq is a book-assigned
// monotonic number that makes the ranking total even when two orders carry
// the same price and timestamp.
type entry struct {
	order *domain.Order
	index int
	seq   int64
}

// priceTimeQueue is a price-time priority heap over one side of the book.
// The best order (highest bid / lowest offer, earliest submission) is at
// the root.
type priceTimeQueue struct {
	entries []*entry
}

func (q *priceTimeQueue) Len() int { return len(q.entries) }

func (q *priceTimeQueue) Less(i, j int) bool {
	a, b := q.entries[i], q.entries[j]
	if a.order.Better(b.order) {
		return true
	}
	if b.order.Better(a.order) {
		return false
	}
	return a.seq < b.seq
}

func (q *priceTimeQueue) Swap(i, j int) {
	q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
	q.entries[i].index = i
	q.entries[j].index = j
}

func (q *priceTimeQueue) Push(x any) {
	e := x.(*entry)
	e.index = len(q.entries)
	q.entries = append(q.entries, e)
}

func (q *priceTimeQueue) Pop() any {
	old := q.entries
	n := len(old)
	e := old[n-1]
	e.index = -1
	old[n-1] = nil
	q.entries = old[:n-1]
	return e
}

func (q *priceTimeQueue) peek() *entry {
	if len(q.entries) == 0 {
		return nil
	}
	return q.entries[0]
}
