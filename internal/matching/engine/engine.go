// Package engine implements the Matching Engine and Order Admission
// components of spec.md §4.3/§4.5: the ratio-based crossing loop and the
// public make_order / take / immediate_or_cancel / fill_or_kill / cancel
// surface that drives it.
package engine

import (
	"sync"
	"sync/atomic"

	"github.com/Aidin1998/ratiomatch/internal/matching/book"
	"github.com/Aidin1998/ratiomatch/internal/matching/errs"
	"github.com/Aidin1998/ratiomatch/internal/matching/events"
	"github.com/Aidin1998/ratiomatch/internal/matching/ledger"
	"github.com/Aidin1998/ratiomatch/internal/matching/metrics"
	"github.com/Aidin1998/ratiomatch/internal/matching/model"
	"github.com/Aidin1998/ratiomatch/internal/matching/settlement"
	"github.com/Aidin1998/ratiomatch/internal/matching/store"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Engine is the single-pair matching engine. Every public method runs
// under mu, giving the "single-threaded serialized execution model" of
// spec.md §5; a reentrancy latch rejects any nested call, including one
// arriving synchronously from inside a Ledger callback.
type Engine struct {
	mu       sync.Mutex
	entered  atomic.Bool
	store    *store.Store
	bids     *book.Book
	asks     *book.Book
	settle   *settlement.Engine
	bus      events.Bus
	metrics  *metrics.Counters
	logger   *zap.Logger
	escrowID uuid.UUID

	feesMu sync.RWMutex
	fees   settlement.Fees
	admin  uuid.UUID
}

// Config bootstraps an Engine.
type Config struct {
	Ledgers      ledger.Pair
	EscrowID     uuid.UUID
	Admin        uuid.UUID
	TakerFeeBPS  uint64
	MakerFeeBPS  uint64
	FeeRecipient uuid.UUID
	Bus          events.Bus
	Logger       *zap.Logger
}

// New constructs an Engine with an empty book and order store.
func New(cfg Config) (*Engine, error) {
	if cfg.TakerFeeBPS > model.FeeBPSMax || cfg.MakerFeeBPS > model.FeeBPSMax {
		return nil, errs.ErrInvalidFeeValue
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bus := cfg.Bus
	if bus == nil {
		bus = events.NewInMemoryBus(logger)
	}

	s := store.New()
	e := &Engine{
		store:    s,
		settle:   settlement.New(cfg.Ledgers, cfg.EscrowID, logger),
		bus:      bus,
		metrics:  metrics.New(),
		logger:   logger,
		escrowID: cfg.EscrowID,
		admin:    cfg.Admin,
		fees: settlement.Fees{
			TakerBPS:     cfg.TakerFeeBPS,
			MakerBPS:     cfg.MakerFeeBPS,
			FeeRecipient: cfg.FeeRecipient,
		},
	}
	adapter := storeQuote{s: s}
	e.bids = book.New(adapter)
	e.asks = book.New(adapter)
	return e, nil
}

// Metrics exposes the engine's operator-facing counters.
func (e *Engine) Metrics() metrics.Snapshot {
	return e.metrics.Snapshot()
}

// enter acquires the coarse lock and the reentrancy latch together. It
// must be paired with a deferred call to e.exit(). Any call made while the
// latch is held returns ErrReentrantCall without blocking on mu: this covers
// a nested call on the same goroutine and equally a concurrent call from
// another goroutine, which is rejected rather than queued.
func (e *Engine) enter() error {
	if !e.entered.CompareAndSwap(false, true) {
		return errs.ErrReentrantCall
	}
	e.mu.Lock()
	return nil
}

func (e *Engine) exit() {
	e.mu.Unlock()
	e.entered.Store(false)
}

func (e *Engine) bookSide(sellingA bool) (*book.Book, book.Side) {
	if sellingA {
		return e.asks, book.Ask
	}
	return e.bids, book.Bid
}

func (e *Engine) oppositeBookSide(sellingA bool) (*book.Book, book.Side) {
	if sellingA {
		return e.bids, book.Bid
	}
	return e.asks, book.Ask
}

func (e *Engine) currentFees() settlement.Fees {
	e.feesMu.RLock()
	defer e.feesMu.RUnlock()
	return e.fees
}

// storeQuote adapts store.Store to book.OrderQuote for price comparisons
// during insertion and crossing tests.
type storeQuote struct {
	s *store.Store
}

func (q storeQuote) QuoteOf(id uint64) (book.Quote, error) {
	o, err := q.s.Get(id)
	if err != nil {
		return book.Quote{}, err
	}
	return book.Quote{Ratio: o.PriceRatio, Bigger: o.Bigger}, nil
}

func validateAmounts(aAmt, bAmt *uint256.Int) error {
	if aAmt == nil || bAmt == nil || aAmt.IsZero() || bAmt.IsZero() {
		return errs.ErrZeroTokenAmount
	}
	return nil
}
