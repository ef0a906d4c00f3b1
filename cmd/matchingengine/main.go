// Command matchingengine is a local demo that wires the matching engine to
// an in-memory ledger and event bus, places a resting ask, crosses it with
// a taker bid, and prints the resulting fill.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	engconfig "github.com/Aidin1998/ratiomatch/internal/matching/config"
	"github.com/Aidin1998/ratiomatch/internal/matching/engine"
	"github.com/Aidin1998/ratiomatch/internal/matching/events"
	"github.com/Aidin1998/ratiomatch/internal/matching/ledger"
	"github.com/Aidin1998/ratiomatch/internal/matching/model"
)

func main() {
	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	cfg, err := engconfig.Load()
	if err != nil {
		zapLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	ledgerA := ledger.NewInMemory(cfg.EscrowID)
	ledgerB := ledger.NewInMemory(cfg.EscrowID)
	bus := events.NewInMemoryBus(zapLogger)
	bus.Subscribe(events.OfferTake, func(ev events.Event) {
		p := ev.Payload.(events.OfferTakePayload)
		fmt.Printf("fill: order=%d qty=%s cost=%s retired=%v\n", p.ID, humanAmount(p.FillQty), humanAmount(p.Cost), p.Retired)
	})

	eng, err := engine.New(engine.Config{
		Ledgers:      ledger.Pair{A: ledgerA, B: ledgerB},
		EscrowID:     cfg.EscrowID,
		Admin:        cfg.Admin,
		TakerFeeBPS:  cfg.TakerFeeBPS,
		MakerFeeBPS:  cfg.MakerFeeBPS,
		FeeRecipient: cfg.FeeRecipient,
		Bus:          bus,
		Logger:       zapLogger,
	})
	if err != nil {
		zapLogger.Fatal("failed to construct engine", zap.Error(err))
	}

	maker := uuid.New()
	taker := uuid.New()
	ledgerA.Credit(maker, uint256.NewInt(5))
	ledgerB.Credit(taker, uint256.NewInt(10))

	ctx := context.Background()
	id, err := eng.MakeOrder(ctx, maker, uint256.NewInt(5), uint256.NewInt(1), true, model.SentinelBack)
	if err != nil {
		zapLogger.Fatal("make_order failed", zap.Error(err))
	}
	fmt.Printf("resting ask id=%d\n", id)

	aUsed, bUsed, err := eng.ImmediateOrCancel(ctx, taker, uint256.NewInt(1), uint256.NewInt(1), false)
	if err != nil {
		zapLogger.Fatal("immediate_or_cancel failed", zap.Error(err))
	}
	fmt.Printf("taker used a=%s b=%s\n", humanAmount(aUsed), humanAmount(bUsed))
}

// humanAmount renders a uint256.Int as a decimal.Decimal purely for
// console output; all engine-internal math stays integer.
func humanAmount(v *uint256.Int) string {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return v.String()
	}
	return d.String()
}
