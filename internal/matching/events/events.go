// Package events is a small in-process publish/subscribe bus used by the
// matching engine to fan out per-call events to observers (audit log,
// metrics, API gateways). It mirrors the shape of a production event bus
// without taking on any external transport: delivery is synchronous and
// in-memory, and a panicking handler is recovered and logged rather than
// allowed to unwind into the matching call.
package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Event is the envelope published for every observable state change listed
// in spec.md §6's event tables.
type Event struct {
	Name    string
	Payload interface{}
}

// Handler receives published events. Handlers must not block and must not
// call back into the matching engine's public surface.
type Handler func(Event)

// Bus publishes events to subscribed handlers.
type Bus interface {
	Publish(ctx context.Context, ev Event)
	Subscribe(name string, h Handler)
}

// InMemoryBus is the default Bus implementation: a map of topic to handler
// slice guarded by an RWMutex, fanning out synchronously on Publish.
type InMemoryBus struct {
	logger *zap.Logger
	mu     sync.RWMutex
	subs   map[string][]Handler
}

// NewInMemoryBus constructs a bus. A nil logger falls back to zap.NewNop().
func NewInMemoryBus(logger *zap.Logger) *InMemoryBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryBus{logger: logger, subs: make(map[string][]Handler)}
}

// Subscribe registers h to receive every Event named name.
func (b *InMemoryBus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = append(b.subs[name], h)
}

// Publish fans ev out to every handler subscribed to ev.Name.
func (b *InMemoryBus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subs[ev.Name]...)
	b.mu.RUnlock()
	for _, h := range handlers {
		b.safeInvoke(h, ev)
	}
}

func (b *InMemoryBus) safeInvoke(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", zap.String("event", ev.Name), zap.Any("recover", r))
		}
	}()
	h(ev)
}

// Event names, matching spec.md §6's per-call and per-fill event tables.
const (
	MakerOrderCreated  = "MakerOrderCreated"
	TakerOrder         = "TakerOrder"
	IoCOrder           = "IoCOrder"
	FoKOrder           = "FoKOrder"
	OrderCancelled     = "OrderCancelled"
	DeleteOffer        = "DeleteOffer"
	OfferCreate        = "OfferCreate"
	OfferTake          = "OfferTake"
	OfferUpdate        = "OfferUpdate"
	TakerFeePaid       = "TakerFeePaid"
	MakerFeePaid       = "MakerFeePaid"
)

// MakerOrderCreatedPayload is the payload for MakerOrderCreated.
type MakerOrderCreatedPayload struct {
	ID       uint64
	Position uint64
}

// TakerOrderPayload is the payload for TakerOrder.
type TakerOrderPayload struct {
	RemainingAmt *uint256.Int
	SpendingA    bool
}

// IoCOrderPayload is the payload for IoCOrder / FoKOrder (same shape).
type IoCOrderPayload struct {
	AUsed    *uint256.Int
	BUsed    *uint256.Int
	SellingA bool
}

// OrderCancelledPayload is the payload for OrderCancelled.
type OrderCancelledPayload struct {
	ID    uint64
	Owner uuid.UUID
}

// DeleteOfferPayload is the payload for DeleteOffer.
type DeleteOfferPayload struct {
	ID uint64
}

// OfferCreatePayload is the payload for OfferCreate.
type OfferCreatePayload struct {
	ID uint64
}

// OfferTakePayload is the payload for OfferTake.
type OfferTakePayload struct {
	ID      uint64
	FillQty *uint256.Int
	Cost    *uint256.Int
	Retired bool
}

// OfferUpdatePayload is the payload for OfferUpdate.
type OfferUpdatePayload struct {
	ID         uint64
	SellingAmt *uint256.Int
	BuyingAmt  *uint256.Int
}

// TakerFeePaidPayload is the payload for TakerFeePaid.
type TakerFeePaidPayload struct {
	OrderID uint64
	Amount  *uint256.Int
}

// MakerFeePaidPayload is the payload for MakerFeePaid.
type MakerFeePaidPayload struct {
	OrderID uint64
	Amount  *uint256.Int
}
