package engine

import (
	"context"
	"testing"

	"github.com/Aidin1998/ratiomatch/internal/matching/errs"
	"github.com/Aidin1998/ratiomatch/internal/matching/events"
	"github.com/Aidin1998/ratiomatch/internal/matching/ledger"
	"github.com/Aidin1998/ratiomatch/internal/matching/model"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRig struct {
	eng     *Engine
	ledgerA *ledger.InMemory
	ledgerB *ledger.InMemory
	escrow  uuid.UUID
	admin   uuid.UUID
}

func newTestRig(t *testing.T) *testRig {
	escrow := uuid.New()
	admin := uuid.New()
	ledgerA := ledger.NewInMemory(escrow)
	ledgerB := ledger.NewInMemory(escrow)
	eng, err := New(Config{
		Ledgers:  ledger.Pair{A: ledgerA, B: ledgerB},
		EscrowID: escrow,
		Admin:    admin,
	})
	require.NoError(t, err)
	return &testRig{eng: eng, ledgerA: ledgerA, ledgerB: ledgerB, escrow: escrow, admin: admin}
}

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

// TestS1_RestingAskAloneInBook reproduces scenario S1.
func TestS1_RestingAskAloneInBook(t *testing.T) {
	r := newTestRig(t)
	maker := uuid.New()
	r.ledgerA.Credit(maker, u(5))

	id, err := r.eng.MakeOrder(context.Background(), maker, u(5), u(1), true, model.SentinelBack)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)

	o, err := r.eng.store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, model.AssetA, o.Bigger)
	assert.Equal(t, new(uint256.Int).Mul(u(5), model.Scale).String(), o.PriceRatio.String())
}

// TestS2_WorseBidDoesNotCross reproduces scenario S2: a bid worse than the
// resting ask rests untouched, without triggering any fill.
func TestS2_WorseBidDoesNotCross(t *testing.T) {
	r := newTestRig(t)
	maker := uuid.New()
	taker := uuid.New()
	r.ledgerA.Credit(maker, u(5))
	r.ledgerB.Credit(taker, u(1))

	_, err := r.eng.MakeOrder(context.Background(), maker, u(5), u(1), true, model.SentinelBack)
	require.NoError(t, err)

	bidID, err := r.eng.MakeOrder(context.Background(), taker, u(4), u(1), false, model.SentinelBack)
	require.NoError(t, err)
	assert.NotZero(t, bidID)

	o, err := r.eng.store.Get(bidID)
	require.NoError(t, err)
	assert.Equal(t, "4", o.AAmt().String())
	assert.Equal(t, "1", o.BAmt().String())
}

// TestS3_BidCrossesAndConsumesWholeAsk reproduces scenario S3.
func TestS3_BidCrossesAndConsumesWholeAsk(t *testing.T) {
	r := newTestRig(t)
	maker := uuid.New()
	taker := uuid.New()
	r.ledgerA.Credit(maker, u(5))
	r.ledgerB.Credit(taker, u(1))

	askID, err := r.eng.MakeOrder(context.Background(), maker, u(5), u(1), true, model.SentinelBack)
	require.NoError(t, err)

	var captured []events.Event
	r.eng.bus.Subscribe(events.OfferTake, func(ev events.Event) { captured = append(captured, ev) })

	bidID, err := r.eng.MakeOrder(context.Background(), taker, u(1), u(1), false, model.SentinelBack)
	require.NoError(t, err)
	assert.Zero(t, bidID, "bid must be fully filled as a taker and never rest")

	require.Len(t, captured, 1)
	fill := captured[0].Payload.(events.OfferTakePayload)
	assert.Equal(t, askID, fill.ID)
	assert.Equal(t, "5", fill.FillQty.String())
	assert.True(t, fill.Retired)

	assert.False(t, r.eng.store.IsActive(askID))
	assert.Equal(t, "5", r.ledgerA.BalanceOf(taker).String())
}

// TestS4_FillOrKillAbortsOnPartialLiquidity reproduces scenario S4.
func TestS4_FillOrKillAbortsOnPartialLiquidity(t *testing.T) {
	r := newTestRig(t)
	maker := uuid.New()
	taker := uuid.New()
	r.ledgerA.Credit(maker, u(5))
	r.ledgerB.Credit(taker, u(2))

	_, err := r.eng.MakeOrder(context.Background(), maker, u(5), u(1), true, model.SentinelBack)
	require.NoError(t, err)

	takerBalanceBefore := r.ledgerB.BalanceOf(taker).Clone()
	_, _, err = r.eng.FillOrKill(context.Background(), taker, u(10), u(2), false)
	assert.ErrorIs(t, err, errs.ErrFillOrKillNotFilled)

	assert.Equal(t, takerBalanceBefore.String(), r.ledgerB.BalanceOf(taker).String())
	assert.True(t, r.eng.store.IsActive(2))
}

// TestS5_ImmediateOrCancelPartialFill reproduces scenario S5.
func TestS5_ImmediateOrCancelPartialFill(t *testing.T) {
	r := newTestRig(t)
	maker := uuid.New()
	taker := uuid.New()
	r.ledgerA.Credit(maker, u(5))
	r.ledgerB.Credit(taker, u(2))

	_, err := r.eng.MakeOrder(context.Background(), maker, u(5), u(1), true, model.SentinelBack)
	require.NoError(t, err)

	aUsed, bUsed, err := r.eng.ImmediateOrCancel(context.Background(), taker, u(10), u(2), false)
	require.NoError(t, err)
	assert.Equal(t, "5", aUsed.String())
	assert.Equal(t, "1", bUsed.String())
}

// TestS6_TakeSweepsThreeBidsUntilBudgetExhausted reproduces scenario S6.
func TestS6_TakeSweepsThreeBidsUntilBudgetExhausted(t *testing.T) {
	r := newTestRig(t)
	bidders := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	buyingAmts := []uint64{10, 20, 50} // buying_amt in A, descending goodness

	// Each bid sells B for A; selling_amt chosen arbitrarily large enough
	// that buying_amt (A demanded) is the binding constraint.
	for i, amt := range buyingAmts {
		r.ledgerB.Credit(bidders[i], u(1000))
		_, err := r.eng.MakeOrder(context.Background(), bidders[i], u(amt), u(1000-uint64(i)), false, model.SentinelBack)
		require.NoError(t, err)
	}

	taker := uuid.New()
	r.ledgerA.Credit(taker, u(100))

	var captured events.Event
	r.eng.bus.Subscribe(events.TakerOrder, func(ev events.Event) { captured = ev })

	remaining, err := r.eng.Take(context.Background(), taker, u(100), true)
	require.NoError(t, err)
	assert.Equal(t, "20", remaining.String())

	p := captured.Payload.(events.TakerOrderPayload)
	assert.Equal(t, "20", p.RemainingAmt.String())
	assert.True(t, p.SpendingA)
}

func TestCancel_OnlyOwnerMayCancel(t *testing.T) {
	r := newTestRig(t)
	maker := uuid.New()
	stranger := uuid.New()
	r.ledgerA.Credit(maker, u(5))

	id, err := r.eng.MakeOrder(context.Background(), maker, u(5), u(1), true, model.SentinelBack)
	require.NoError(t, err)

	err = r.eng.Cancel(context.Background(), stranger, id)
	assert.ErrorIs(t, err, errs.ErrNonOwnerCantCancelOrder)

	err = r.eng.Cancel(context.Background(), maker, id)
	require.NoError(t, err)
	assert.False(t, r.eng.store.IsActive(id))
	assert.Equal(t, "5", r.ledgerA.BalanceOf(maker).String())
}

func TestSetFees_RejectsNonAdmin(t *testing.T) {
	r := newTestRig(t)
	err := r.eng.SetTakerFee(uuid.New(), 100)
	assert.ErrorIs(t, err, errs.ErrNotAdmin)

	err = r.eng.SetTakerFee(r.admin, 100)
	assert.NoError(t, err)

	err = r.eng.SetMakerFee(r.admin, 10000)
	assert.ErrorIs(t, err, errs.ErrInvalidFeeValue)
}
