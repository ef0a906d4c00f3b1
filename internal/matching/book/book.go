// Package book implements the Order Book component of spec.md §4.2: two
// doubly linked lists (bids, asks) of order ids, sorted by price-time
// priority, circular via a single sentinel node at key 0.
package book

import (
	"sync"

	"github.com/Aidin1998/ratiomatch/internal/matching/model"
	"github.com/holiman/uint256"
)

// Side selects which of the two book lists an operation applies to.
type Side int

const (
	Bid Side = iota
	Ask
)

// sellingA reports whether an order resting on this side is selling asset A:
// asks sell A for B, bids sell B for A.
func (s Side) sellingA() bool { return s == Ask }

type node struct {
	prev, next uint64
}

// Quote is the minimal (ratio, bigger_token) view the book needs
// to order an id against the orders already resting. Matching/admission
// code builds this from a model.Order or from an incoming intent.
type Quote struct {
	Ratio  *uint256.Int
	Bigger model.Asset
}

// OrderQuote is implemented by anything the book can look up a Quote for;
// in practice this is store.Store.Get narrowed to the fields the book needs.
type OrderQuote interface {
	QuoteOf(id uint64) (Quote, error)
}

// Book holds the bid and ask linked lists. It stores only order ids and
// defers to an OrderQuote lookup for price comparisons, per spec.md §9:
// "there are no self-referential owning pointers."
type Book struct {
	mu    sync.Mutex
	bids  map[uint64]*node
	asks  map[uint64]*node
	quote OrderQuote
}

// New returns an empty Book. quote is used to resolve an order id's price
// for comparison purposes; typically the engine's order Store.
func New(quote OrderQuote) *Book {
	b := &Book{
		bids:  map[uint64]*node{0: {}},
		asks:  map[uint64]*node{0: {}},
		quote: quote,
	}
	return b
}

func (b *Book) list(side Side) map[uint64]*node {
	if side == Bid {
		return b.bids
	}
	return b.asks
}

// Front returns the best (first) order id on side, or 0 if the side is empty.
func (b *Book) Front(side Side) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.list(side)[0].next
}

// Back returns the worst (last) order id on side, or 0 if the side is empty.
func (b *Book) Back(side Side) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.list(side)[0].prev
}

// NextOf returns the order id that follows id on side, or 0 at the tail.
func (b *Book) NextOf(id uint64, side Side) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.list(side)[id]
	if !ok {
		return 0
	}
	return n.next
}

// PrevOf returns the order id that precedes id on side, or 0 at the head.
func (b *Book) PrevOf(id uint64, side Side) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.list(side)[id]
	if !ok {
		return 0
	}
	return n.prev
}

// InsertFirst links id as the new front of side.
func (b *Book) InsertFirst(id uint64, side Side) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.linkBefore(id, b.list(side)[0].next, side)
}

// InsertBefore links id immediately before pivot on side. pivot == 0 means
// insert at the back (immediately before the sentinel, i.e. at the tail).
func (b *Book) InsertBefore(id uint64, pivot uint64, side Side) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.linkBefore(id, pivot, side)
}

// linkBefore splices id into side immediately before pivot (0 == sentinel).
// Caller holds b.mu.
func (b *Book) linkBefore(id uint64, pivot uint64, side Side) {
	l := b.list(side)
	prev := l[pivot].prev
	l[id] = &node{prev: prev, next: pivot}
	l[prev].next = id
	l[pivot].prev = id
}

// Unlink removes id from side. It is a no-op if id is not present.
func (b *Book) Unlink(id uint64, side Side) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l := b.list(side)
	n, ok := l[id]
	if !ok {
		return
	}
	l[n.prev].next = n.next
	l[n.next].prev = n.prev
	delete(l, id)
}

// Better reports whether quote x is at least as good (or, if strict, is
// strictly better than) an order resting on side under the ratio order of
// spec.md §4.2.
func Better(x Quote, side Side, y Quote, strict bool) bool {
	return model.Better(x.Ratio, x.Bigger, y.Ratio, y.Bigger, side.sellingA(), strict)
}

// FindInsertPosition performs the linear scan of spec.md §4.5: starting
// from the front of side, it returns the first resting order id against
// which q is strictly better (i.e. q must be inserted before it), or 0 if
// q is not strictly better than anything resting (append at the back).
func (b *Book) FindInsertPosition(q Quote, side Side) (uint64, error) {
	cur := b.Front(side)
	for cur != 0 {
		rq, err := b.quote.QuoteOf(cur)
		if err != nil {
			return 0, err
		}
		if Better(q, side, rq, true) {
			return cur, nil
		}
		cur = b.NextOf(cur, side)
	}
	return 0, nil
}

// ValidateHint checks whether hint is still a correct insertion point for q
// on side, per spec.md §4.5's hint-validation rules, and returns the id to
// insert before (0 meaning "at the back"). If the hint is stale it falls
// back to FindInsertPosition.
func (b *Book) ValidateHint(hint uint64, q Quote, side Side) (uint64, error) {
	switch {
	case hint == model.SentinelFront || b.PrevOf(hint, side) == 0:
		front := b.Front(side)
		if front == 0 {
			return 0, nil
		}
		fq, err := b.quote.QuoteOf(front)
		if err != nil {
			return 0, err
		}
		if Better(q, side, fq, false) {
			return front, nil
		}
		return b.FindInsertPosition(q, side)

	case hint == model.SentinelBack:
		back := b.Back(side)
		if back == 0 {
			return 0, nil
		}
		bq, err := b.quote.QuoteOf(back)
		if err != nil {
			return 0, err
		}
		if Better(bq, side, q, true) {
			return 0, nil
		}
		return b.FindInsertPosition(q, side)

	default:
		prev := b.PrevOf(hint, side)
		prevQ, err := b.quote.QuoteOf(prev)
		if err != nil {
			return 0, err
		}
		hintQ, err := b.quote.QuoteOf(hint)
		if err != nil {
			return 0, err
		}
		if Better(q, side, prevQ, true) && Better(hintQ, side, q, true) {
			return hint, nil
		}
		return b.FindInsertPosition(q, side)
	}
}
