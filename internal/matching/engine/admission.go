package engine

import (
	"context"
	"fmt"

	"github.com/Aidin1998/ratiomatch/internal/matching/book"
	"github.com/Aidin1998/ratiomatch/internal/matching/errs"
	"github.com/Aidin1998/ratiomatch/internal/matching/events"
	"github.com/Aidin1998/ratiomatch/internal/matching/model"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// MakeOrder implements spec.md §4.5: it matches the incoming intent as a
// taker against the opposite book, and rests any unfilled remainder as a
// new maker order at positionHint (0 = back, 1 = front, else an order id
// to insert before).
func (e *Engine) MakeOrder(ctx context.Context, owner uuid.UUID, aAmt, bAmt *uint256.Int, sellingA bool, positionHint uint64) (id uint64, err error) {
	if err := e.enter(); err != nil {
		return 0, err
	}
	defer e.exit()

	if err := validateAmounts(aAmt, bAmt); err != nil {
		e.metrics.RecordRejection()
		return 0, err
	}
	priceRatio, bigger, err := model.Ratio(aAmt, bAmt)
	if err != nil {
		e.metrics.RecordRejection()
		return 0, err
	}

	res, err := e.matchCrossing(ctx, owner, priceRatio, bigger, sellingA, aAmt, bAmt)
	if err != nil {
		e.metrics.RecordRejection()
		return 0, err
	}

	sellingRem, _ := splitBySellingSide(sellingA, res.ARem, res.BRem)
	if sellingRem.IsZero() {
		// Fully filled as a taker; nothing to rest.
		return 0, nil
	}

	sellingAsset := model.AssetB
	if sellingA {
		sellingAsset = model.AssetA
	}
	buyingRem, err := model.Counterpart(sellingRem, priceRatio, bigger, sellingAsset)
	if err != nil {
		return 0, err
	}

	newID := e.store.AllocateID()
	o := &model.Order{
		ID:         newID,
		Owner:      owner,
		SellingA:   sellingA,
		SellingAmt: sellingRem,
		BuyingAmt:  buyingRem,
		PriceRatio: priceRatio,
		Bigger:     bigger,
	}

	payLedger := e.settle.LedgerFor(sellingAsset)
	ok, lerr := payLedger.TransferFrom(ctx, owner, e.escrowID, sellingRem)
	if lerr != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrTransferToEscrowError, lerr)
	}
	if !ok {
		return 0, fmt.Errorf("%w: owner=%s", errs.ErrTransferToEscrowError, owner)
	}

	e.store.Put(o)
	restBook, side := e.bookSide(sellingA)
	position, err := e.insertResting(restBook, side, newID, o, positionHint)
	if err != nil {
		return 0, err
	}

	e.metrics.RecordOrderPlaced()
	e.bus.Publish(ctx, events.Event{Name: events.OfferCreate, Payload: events.OfferCreatePayload{ID: newID}})
	e.bus.Publish(ctx, events.Event{Name: events.MakerOrderCreated, Payload: events.MakerOrderCreatedPayload{ID: newID, Position: position}})
	e.logger.Debug("admission.make_order", zap.Uint64("id", newID), zap.Bool("selling_a", sellingA))
	return newID, nil
}

// insertResting validates/repairs positionHint via book.ValidateHint and
// links o into restBook, returning the position reported in
// MakerOrderCreated (spec.md §9(b): a front insertion always reports 1,
// even though model.SentinelFront and the literal position-hint value
// happen to coincide here).
func (e *Engine) insertResting(restBook *book.Book, side book.Side, id uint64, o *model.Order, positionHint uint64) (uint64, error) {
	q := book.Quote{Ratio: o.PriceRatio, Bigger: o.Bigger}
	pivot, err := restBook.ValidateHint(positionHint, q, side)
	if err != nil {
		return 0, err
	}
	front := restBook.Front(side)
	restBook.InsertBefore(id, pivot, side)
	switch {
	case pivot == 0:
		return model.SentinelBack, nil
	case pivot == front:
		return model.SentinelFront, nil
	default:
		return pivot, nil
	}
}

// Take implements spec.md §4.5's take(amt, spending_a): an unconditional
// sweep of the opposite book with no price limit, spending up to amt of
// the pay token.
func (e *Engine) Take(ctx context.Context, taker uuid.UUID, amt *uint256.Int, spendingA bool) (remaining *uint256.Int, err error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.exit()

	if amt == nil || amt.IsZero() {
		e.metrics.RecordRejection()
		return nil, errs.ErrZeroTokenAmount
	}

	remaining, err = e.matchTake(ctx, taker, spendingA, amt)
	if err != nil {
		e.metrics.RecordRejection()
		return nil, err
	}
	e.bus.Publish(ctx, events.Event{Name: events.TakerOrder, Payload: events.TakerOrderPayload{RemainingAmt: remaining, SpendingA: spendingA}})
	return remaining, nil
}

// ImmediateOrCancel implements spec.md §4.5: matches as a taker only,
// never rests any remainder.
func (e *Engine) ImmediateOrCancel(ctx context.Context, taker uuid.UUID, aAmt, bAmt *uint256.Int, sellingA bool) (aUsed, bUsed *uint256.Int, err error) {
	if err := e.enter(); err != nil {
		return nil, nil, err
	}
	defer e.exit()

	if err := validateAmounts(aAmt, bAmt); err != nil {
		e.metrics.RecordRejection()
		return nil, nil, err
	}
	priceRatio, bigger, err := model.Ratio(aAmt, bAmt)
	if err != nil {
		e.metrics.RecordRejection()
		return nil, nil, err
	}
	res, err := e.matchCrossing(ctx, taker, priceRatio, bigger, sellingA, aAmt, bAmt)
	if err != nil {
		e.metrics.RecordRejection()
		return nil, nil, err
	}
	aUsed, bUsed, _ = unSwapUsed(sellingA, res)
	e.bus.Publish(ctx, events.Event{Name: events.IoCOrder, Payload: events.IoCOrderPayload{AUsed: aUsed, BUsed: bUsed, SellingA: sellingA}})
	return aUsed, bUsed, nil
}

// FillOrKill implements spec.md §4.5: identical to ImmediateOrCancel, but
// aborts with ErrFillOrKillNotFilled and has zero observable effect unless
// the incoming selling side can be fully exhausted. projectSellingRemainder
// decides this up front, before any ledger call or book mutation is made.
func (e *Engine) FillOrKill(ctx context.Context, taker uuid.UUID, aAmt, bAmt *uint256.Int, sellingA bool) (aUsed, bUsed *uint256.Int, err error) {
	if err := e.enter(); err != nil {
		return nil, nil, err
	}
	defer e.exit()

	if err := validateAmounts(aAmt, bAmt); err != nil {
		e.metrics.RecordRejection()
		return nil, nil, err
	}
	priceRatio, bigger, err := model.Ratio(aAmt, bAmt)
	if err != nil {
		e.metrics.RecordRejection()
		return nil, nil, err
	}

	projected, err := e.projectSellingRemainder(priceRatio, bigger, sellingA, aAmt, bAmt)
	if err != nil {
		e.metrics.RecordRejection()
		return nil, nil, err
	}
	if !projected.IsZero() {
		e.metrics.RecordRejection()
		return nil, nil, errs.ErrFillOrKillNotFilled
	}

	res, err := e.matchCrossing(ctx, taker, priceRatio, bigger, sellingA, aAmt, bAmt)
	if err != nil {
		return nil, nil, err
	}
	aUsed, bUsed, _ = unSwapUsed(sellingA, res)
	e.bus.Publish(ctx, events.Event{Name: events.FoKOrder, Payload: events.IoCOrderPayload{AUsed: aUsed, BUsed: bUsed, SellingA: sellingA}})
	return aUsed, bUsed, nil
}

func unSwapUsed(sellingA bool, res matchResult) (aUsed, bUsed *uint256.Int, err error) {
	if sellingA {
		return res.SellingUsed, res.BuyingUsed, nil
	}
	return res.BuyingUsed, res.SellingUsed, nil
}

// Cancel implements spec.md §4.5: only the owner may cancel; the unsold
// remainder is returned from escrow, and the order is unlinked and
// retired. The owner is captured before the store record is deleted
// (spec.md §9(c) flags the opposite order as a defect in the source).
func (e *Engine) Cancel(ctx context.Context, caller uuid.UUID, id uint64) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()

	o, err := e.store.Get(id)
	if err != nil {
		return err
	}
	if o.Owner != caller {
		return errs.ErrNonOwnerCantCancelOrder
	}

	sellingAsset := model.AssetB
	if o.SellingA {
		sellingAsset = model.AssetA
	}
	owner := o.Owner
	remainder := o.SellingAmt.Clone()

	restBook, side := e.bookSide(o.SellingA)

	ok, lerr := e.settle.LedgerFor(sellingAsset).Transfer(ctx, owner, remainder)
	if lerr != nil {
		return fmt.Errorf("%w: %v", errs.ErrEscrowToBuyerError, lerr)
	}
	if !ok {
		return fmt.Errorf("%w: order=%d", errs.ErrEscrowToBuyerError, id)
	}

	restBook.Unlink(id, side)
	e.store.SetActive(id, false)
	e.store.Remove(id)
	e.metrics.RecordOrderCanceled()

	e.bus.Publish(ctx, events.Event{Name: events.OrderCancelled, Payload: events.OrderCancelledPayload{ID: id, Owner: owner}})
	e.bus.Publish(ctx, events.Event{Name: events.DeleteOffer, Payload: events.DeleteOfferPayload{ID: id}})
	return nil
}

// SetTakerFee and SetMakerFee implement spec.md §6's admin-only fee
// setters; both are restricted to the configured administrator identity.
func (e *Engine) SetTakerFee(caller uuid.UUID, bps uint64) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	if caller != e.admin {
		return errs.ErrNotAdmin
	}
	if bps > model.FeeBPSMax {
		return errs.ErrInvalidFeeValue
	}
	e.feesMu.Lock()
	e.fees.TakerBPS = bps
	e.feesMu.Unlock()
	return nil
}

func (e *Engine) SetMakerFee(caller uuid.UUID, bps uint64) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	if caller != e.admin {
		return errs.ErrNotAdmin
	}
	if bps > model.FeeBPSMax {
		return errs.ErrInvalidFeeValue
	}
	e.feesMu.Lock()
	e.fees.MakerBPS = bps
	e.feesMu.Unlock()
	return nil
}
