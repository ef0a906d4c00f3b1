package engine

import (
	"context"
	"errors"

	"github.com/Aidin1998/ratiomatch/internal/matching/events"
	"github.com/Aidin1998/ratiomatch/internal/matching/model"
	"github.com/Aidin1998/ratiomatch/internal/matching/settlement"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

var errOverflow = errors.New("matching: ratio arithmetic overflowed 256 bits")

// matchResult is the bookkeeping accumulated by matchCrossing: the
// incoming order's remaining selling amount and total buying amount
// received, mapped onto (a_amt, b_amt) by joinBySellingSide, and the totals
// used for the taker-facing events (IoCOrder/FoKOrder).
type matchResult struct {
	ARem, BRem   *uint256.Int
	SellingUsed  *uint256.Int // total of the incoming's selling asset spent
	BuyingUsed   *uint256.Int // total of the incoming's buying asset received
}

// matchCrossing implements spec.md §4.3: it walks the opposite-side book
// from the front, filling against every resting order whose price is at
// least as good as the incoming intent, until the incoming's selling side
// is exhausted or no crossing order remains.
//
// priceRatio/bigger describe the incoming intent's limit price and are
// fixed for the duration of the walk; only the remaining selling amount
// changes as fills are applied.
func (e *Engine) matchCrossing(ctx context.Context, taker uuid.UUID, priceRatio *uint256.Int, bigger model.Asset, sellingA bool, aAmt, bAmt *uint256.Int) (matchResult, error) {
	sellingRemaining, _ := splitBySellingSide(sellingA, aAmt, bAmt)
	buyingReceived := uint256.NewInt(0)

	walkBook, walkSide := e.oppositeBookSide(sellingA)
	fees := e.currentFees()

	// The asset the incoming order is itself selling; used to select which
	// branch of the "want" formula (spec.md §4.3 step 2) applies.
	sellingAsset := model.AssetB
	if sellingA {
		sellingAsset = model.AssetA
	}

	for sellingRemaining.Sign() > 0 {
		cur := walkBook.Front(walkSide)
		if cur == 0 {
			break
		}
		r, err := e.store.Get(cur)
		if err != nil {
			return matchResult{}, err
		}

		if !model.Better(r.PriceRatio, r.Bigger, priceRatio, bigger, sellingA, false) {
			break
		}

		want := new(uint256.Int)
		if r.Bigger == sellingAsset {
			if _, overflow := want.MulDivOverflow(sellingRemaining, model.Scale, r.PriceRatio); overflow {
				return matchResult{}, errOverflow
			}
		} else {
			if _, overflow := want.MulDivOverflow(sellingRemaining, r.PriceRatio, model.Scale); overflow {
				return matchResult{}, errOverflow
			}
		}

		budgetBound := want.Lt(r.SellingAmt)
		fillQty := want
		if r.SellingAmt.Lt(want) {
			fillQty = r.SellingAmt.Clone()
		}

		res, err := e.settle.Settle(ctx, r, taker, fillQty, fees)
		if err != nil {
			return matchResult{}, err
		}
		e.publishFillEvents(ctx, r, fillQty, res)

		if res.Retired {
			walkBook.Unlink(cur, walkSide)
			e.store.SetActive(cur, false)
			e.store.Remove(cur)
			e.bus.Publish(ctx, events.Event{Name: events.DeleteOffer, Payload: events.DeleteOfferPayload{ID: cur}})
		}

		cost := res.Cost
		if cost.Gt(sellingRemaining) {
			// Integer-truncation drift (spec.md §9(d)) can make the cost
			// Settle already charged exceed the remaining budget; clamp
			// the bookkeeping so sellingRemaining does not underflow.
			cost = sellingRemaining.Clone()
		}
		sellingRemaining = new(uint256.Int).Sub(sellingRemaining, cost)
		buyingReceived = new(uint256.Int).Add(buyingReceived, fillQty)

		e.logger.Debug("matching.cross",
			zap.Uint64("resting_id", cur),
			zap.String("fill_qty", fillQty.String()),
			zap.String("cost", cost.String()),
			zap.String("selling_remaining", sellingRemaining.String()),
		)

		if budgetBound {
			// The taker's own remaining budget, not the resting order's
			// capacity, was the binding constraint on this fill. Truncation
			// in the "want" division can leave sellingRemaining at a
			// positive dust value even though the taker has nothing left
			// it could spend at this price: re-entering the loop would walk
			// back into the same still-resting front order and, because
			// cost = r.BuyingAmt*fillQty/r.SellingAmt truncates towards
			// zero for a small enough fillQty, could deliver further
			// fillQty for zero additional cost. Stop as soon as the fill
			// was budget-bound rather than waiting for sellingRemaining to
			// reach exactly zero.
			break
		}
	}

	aRem, bRem := joinBySellingSide(sellingA, sellingRemaining, buyingReceived)
	return matchResult{
		ARem:        aRem,
		BRem:        bRem,
		SellingUsed: sub(initialSelling(sellingA, aAmt, bAmt), sellingRemaining),
		BuyingUsed:  buyingReceived,
	}, nil
}

// publishFillEvents emits the per-fill events of spec.md §6: OfferTake,
// then OfferUpdate if the order was not retired, then the fee events when
// non-zero. It does not emit DeleteOffer; for a retired order the caller
// publishes DeleteOffer after these, once the order is unlinked.
func (e *Engine) publishFillEvents(ctx context.Context, r *model.Order, fillQty *uint256.Int, res settlement.Result) {
	e.bus.Publish(ctx, events.Event{Name: events.OfferTake, Payload: events.OfferTakePayload{
		ID: r.ID, FillQty: fillQty, Cost: res.Cost, Retired: res.Retired,
	}})
	if !res.Retired {
		e.bus.Publish(ctx, events.Event{Name: events.OfferUpdate, Payload: events.OfferUpdatePayload{
			ID: r.ID, SellingAmt: r.SellingAmt, BuyingAmt: r.BuyingAmt,
		}})
	}
	if !res.TakerFee.IsZero() {
		e.bus.Publish(ctx, events.Event{Name: events.TakerFeePaid, Payload: events.TakerFeePaidPayload{OrderID: r.ID, Amount: res.TakerFee}})
	}
	if !res.MakerFee.IsZero() {
		e.bus.Publish(ctx, events.Event{Name: events.MakerFeePaid, Payload: events.MakerFeePaidPayload{OrderID: r.ID, Amount: res.MakerFee}})
	}
	e.metrics.RecordFill(fillQty, res.Cost)
}

// splitBySellingSide returns (sellingAmt, buyingAmt) for an intent encoded
// as (aAmt, bAmt) plus its direction flag.
func splitBySellingSide(sellingA bool, aAmt, bAmt *uint256.Int) (*uint256.Int, *uint256.Int) {
	if sellingA {
		return aAmt.Clone(), bAmt.Clone()
	}
	return bAmt.Clone(), aAmt.Clone()
}

func initialSelling(sellingA bool, aAmt, bAmt *uint256.Int) *uint256.Int {
	if sellingA {
		return aAmt
	}
	return bAmt
}

// joinBySellingSide maps the post-walk (sellingRemaining, buyingReceived)
// pair back onto (a_amt, b_amt): the walk's own accounting replaces both
// the original selling and buying sides, since buyingReceived can legally
// exceed the original target when fills land at a better resting price.
func joinBySellingSide(sellingA bool, sellingRemaining, buyingReceived *uint256.Int) (aRem, bRem *uint256.Int) {
	if sellingA {
		return sellingRemaining, buyingReceived
	}
	return buyingReceived, sellingRemaining
}

func sub(x, y *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sub(x, y)
}

// projectSellingRemainder re-runs matchCrossing's walk-and-fill arithmetic
// read-only, against the book as it stands, without calling Settle or
// mutating anything. fillOrKill uses it to decide up front whether a full
// fill is possible, so that on "not fully fillable" it can report
// ErrFillOrKillNotFilled having made zero ledger calls and zero book
// mutations — the "discarding all prior effects" requirement of spec.md
// §4.5 without needing a transactional ledger to unwind.
func (e *Engine) projectSellingRemainder(priceRatio *uint256.Int, bigger model.Asset, sellingA bool, aAmt, bAmt *uint256.Int) (*uint256.Int, error) {
	sellingRemaining, _ := splitBySellingSide(sellingA, aAmt, bAmt)
	walkBook, walkSide := e.oppositeBookSide(sellingA)

	sellingAsset := model.AssetB
	if sellingA {
		sellingAsset = model.AssetA
	}

	cur := walkBook.Front(walkSide)
	for sellingRemaining.Sign() > 0 && cur != 0 {
		r, err := e.store.Get(cur)
		if err != nil {
			return nil, err
		}
		if !model.Better(r.PriceRatio, r.Bigger, priceRatio, bigger, sellingA, false) {
			break
		}

		want := new(uint256.Int)
		if r.Bigger == sellingAsset {
			if _, overflow := want.MulDivOverflow(sellingRemaining, model.Scale, r.PriceRatio); overflow {
				return nil, errOverflow
			}
		} else {
			if _, overflow := want.MulDivOverflow(sellingRemaining, r.PriceRatio, model.Scale); overflow {
				return nil, errOverflow
			}
		}

		budgetBound := want.Lt(r.SellingAmt)
		fillQty := want
		if r.SellingAmt.Lt(want) {
			fillQty = r.SellingAmt.Clone()
		}
		cost := new(uint256.Int)
		if _, overflow := cost.MulDivOverflow(r.BuyingAmt, fillQty, r.SellingAmt); overflow {
			return nil, errOverflow
		}
		if cost.Gt(sellingRemaining) {
			cost = sellingRemaining.Clone()
		}
		sellingRemaining = new(uint256.Int).Sub(sellingRemaining, cost)

		if budgetBound {
			// Mirrors matchCrossing: the taker's own budget bound this
			// fill, so the walk stops here rather than continuing into the
			// next resting order on truncation dust.
			break
		}
		cur = walkBook.NextOf(cur, walkSide)
	}
	return sellingRemaining, nil
}

// matchTake implements spec.md §4.5's take(amt, spending_a): it walks the
// opposite-side book with no price limit, fully consuming each resting
// order's capacity until the pay-token budget amt is exhausted.
func (e *Engine) matchTake(ctx context.Context, taker uuid.UUID, spendingA bool, amt *uint256.Int) (remaining *uint256.Int, err error) {
	remaining = amt.Clone()
	walkBook, walkSide := e.oppositeBookSide(spendingA)
	fees := e.currentFees()

	for remaining.Sign() > 0 {
		cur := walkBook.Front(walkSide)
		if cur == 0 {
			break
		}
		r, err := e.store.Get(cur)
		if err != nil {
			return nil, err
		}

		budgetBound := r.BuyingAmt.Gt(remaining)
		fillQty := r.SellingAmt.Clone()
		if budgetBound {
			if _, overflow := fillQty.MulDivOverflow(remaining, r.SellingAmt, r.BuyingAmt); overflow {
				return nil, errOverflow
			}
		}
		if fillQty.IsZero() {
			break
		}

		res, err := e.settle.Settle(ctx, r, taker, fillQty, fees)
		if err != nil {
			return nil, err
		}
		e.publishFillEvents(ctx, r, fillQty, res)

		if res.Retired {
			walkBook.Unlink(cur, walkSide)
			e.store.SetActive(cur, false)
			e.store.Remove(cur)
			e.bus.Publish(ctx, events.Event{Name: events.DeleteOffer, Payload: events.DeleteOfferPayload{ID: cur}})
		}

		cost := res.Cost
		if cost.Gt(remaining) {
			cost = remaining.Clone()
		}
		remaining = new(uint256.Int).Sub(remaining, cost)

		if budgetBound {
			// Same truncation hazard as matchCrossing: a partial fill
			// bound by the taker's own remaining budget must not re-enter
			// the loop against the same still-resting order on leftover
			// dust.
			break
		}
	}
	return remaining, nil
}
