// Package settlement implements the Settlement Engine component of
// spec.md §4.4 (the "_buy" operation): it executes a partial or full fill
// against a single resting order, collects maker/taker fees, drives the
// Asset Ledger, and reports whether the resting order is now exhausted.
package settlement

import (
	"context"
	"fmt"

	"github.com/Aidin1998/ratiomatch/internal/matching/errs"
	"github.com/Aidin1998/ratiomatch/internal/matching/ledger"
	"github.com/Aidin1998/ratiomatch/internal/matching/model"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Fees holds the current maker/taker fee schedule, in basis points of the
// traded amount (spec.md §6: denominator 10000, max 5000 each).
type Fees struct {
	TakerBPS     uint64
	MakerBPS     uint64
	FeeRecipient uuid.UUID
}

// Result is the outcome of a single Settle call.
type Result struct {
	Cost      *uint256.Int // amount of the resting order's buying asset paid by the taker
	TakerFee  *uint256.Int
	MakerFee  *uint256.Int
	Retired   bool // true once r.SellingAmt has reached zero
}

// Engine executes fills against resting orders via the Asset Ledger.
type Engine struct {
	ledgers ledger.Pair
	escrow  uuid.UUID // the matching engine's own escrow account
	logger  *zap.Logger
}

// New returns a settlement Engine. escrow is the account id the engine
// holds maker inventory under; ledgers are the two per-asset adapters.
func New(ledgers ledger.Pair, escrow uuid.UUID, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{ledgers: ledgers, escrow: escrow, logger: logger}
}

// LedgerFor exposes the underlying per-asset ledger so Admission can escrow
// a maker's selling amount and return a canceled order's remainder without
// duplicating the ledger wiring settlement already holds.
func (e *Engine) LedgerFor(asset model.Asset) ledger.Ledger {
	return e.ledgers.For(asset)
}

// Settle executes spec.md §4.4's "_buy(rid, q)": it fills q units of r's
// selling asset against taker, paid for out of taker's balance in r's
// buying asset, less fees, with the receive leg delivered out of escrow.
// r is mutated in place (SellingAmt/BuyingAmt decremented, Active cleared
// if exhausted); on any ledger failure r is left completely untouched.
func (e *Engine) Settle(ctx context.Context, r *model.Order, taker uuid.UUID, q *uint256.Int, fees Fees) (Result, error) {
	if !r.Active {
		return Result{}, fmt.Errorf("%w: id=%d", errs.ErrInactiveOrder, r.ID)
	}
	if q.IsZero() {
		return Result{}, errs.ErrZeroBuyQuantity
	}
	if q.Gt(r.SellingAmt) {
		return Result{}, fmt.Errorf("%w: id=%d q=%s available=%s", errs.ErrQuantityExceedsOrderAmt, r.ID, q, r.SellingAmt)
	}

	cost := new(uint256.Int)
	if _, overflow := cost.MulDivOverflow(r.BuyingAmt, q, r.SellingAmt); overflow {
		return Result{}, fmt.Errorf("settlement: cost computation overflowed for order %d", r.ID)
	}
	takerFee := new(uint256.Int)
	if _, overflow := takerFee.MulDivOverflow(cost, uint256.NewInt(fees.TakerBPS), uint256.NewInt(model.FeeBPSDenominator)); overflow {
		return Result{}, fmt.Errorf("settlement: taker fee computation overflowed for order %d", r.ID)
	}
	makerFee := new(uint256.Int)
	if _, overflow := makerFee.MulDivOverflow(cost, uint256.NewInt(fees.MakerBPS), uint256.NewInt(model.FeeBPSDenominator)); overflow {
		return Result{}, fmt.Errorf("settlement: maker fee computation overflowed for order %d", r.ID)
	}

	// Maker sells r's "selling" asset and buys r's "buying" asset; the
	// taker pays in the buying asset and receives the selling asset.
	var payAsset, receiveAsset model.Asset
	if r.SellingA {
		payAsset, receiveAsset = model.AssetB, model.AssetA
	} else {
		payAsset, receiveAsset = model.AssetA, model.AssetB
	}
	payLedger := e.ledgers.For(payAsset)
	receiveLedger := e.ledgers.For(receiveAsset)

	totalFee := new(uint256.Int).Add(takerFee, makerFee)
	if !totalFee.IsZero() {
		ok, err := payLedger.TransferFrom(ctx, taker, fees.FeeRecipient, totalFee)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", errs.ErrLackingFundsForFees, err)
		}
		if !ok {
			return Result{}, fmt.Errorf("%w: order=%d", errs.ErrLackingFundsForFees, r.ID)
		}
	}

	makerProceeds := new(uint256.Int).Sub(cost, makerFee)
	if !makerProceeds.IsZero() {
		ok, err := payLedger.TransferFrom(ctx, taker, r.Owner, makerProceeds)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", errs.ErrLackingFundsForTransaction, err)
		}
		if !ok {
			return Result{}, fmt.Errorf("%w: order=%d", errs.ErrLackingFundsForTransaction, r.ID)
		}
	}

	ok, err := receiveLedger.Transfer(ctx, taker, q)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", errs.ErrEscrowToBuyerError, err)
	}
	if !ok {
		return Result{}, fmt.Errorf("%w: order=%d", errs.ErrEscrowToBuyerError, r.ID)
	}

	r.SellingAmt = new(uint256.Int).Sub(r.SellingAmt, q)
	r.BuyingAmt = new(uint256.Int).Sub(r.BuyingAmt, cost)
	retired := r.SellingAmt.IsZero()
	if retired {
		r.Active = false
	}

	e.logger.Debug("settlement.settle",
		zap.Uint64("order_id", r.ID),
		zap.String("q", q.String()),
		zap.String("cost", cost.String()),
		zap.String("taker_fee", takerFee.String()),
		zap.String("maker_fee", makerFee.String()),
		zap.Bool("retired", retired),
	)

	return Result{Cost: cost, TakerFee: takerFee, MakerFee: makerFee, Retired: retired}, nil
}
