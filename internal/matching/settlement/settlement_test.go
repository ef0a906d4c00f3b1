package settlement

import (
	"context"
	"testing"

	"github.com/Aidin1998/ratiomatch/internal/matching/ledger"
	"github.com/Aidin1998/ratiomatch/internal/matching/model"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPair(escrow uuid.UUID) (ledger.Pair, *ledger.InMemory, *ledger.InMemory) {
	a := ledger.NewInMemory(escrow)
	b := ledger.NewInMemory(escrow)
	return ledger.Pair{A: a, B: b}, a, b
}

func TestSettle_FullFillRetiresOrderAndDeliversFromEscrow(t *testing.T) {
	escrow := uuid.New()
	maker := uuid.New()
	taker := uuid.New()
	recipient := uuid.New()
	pair, ledgerA, ledgerB := newTestPair(escrow)

	ledgerA.Credit(escrow, uint256.NewInt(5))
	ledgerB.Credit(taker, uint256.NewInt(10))

	eng := New(pair, escrow, nil)
	order := &model.Order{
		ID: 2, Owner: maker, SellingA: true, Active: true,
		SellingAmt: uint256.NewInt(5), BuyingAmt: uint256.NewInt(1),
		PriceRatio: new(uint256.Int).Mul(uint256.NewInt(5), model.Scale), Bigger: model.AssetA,
	}
	fees := Fees{TakerBPS: 100, MakerBPS: 50, FeeRecipient: recipient}

	res, err := eng.Settle(context.Background(), order, taker, uint256.NewInt(5), fees)
	require.NoError(t, err)
	assert.True(t, res.Retired)
	assert.Equal(t, "1", res.Cost.String())
	assert.True(t, order.SellingAmt.IsZero())
	assert.False(t, order.Active)
	assert.Equal(t, "5", ledgerA.BalanceOf(taker).String())
	assert.Equal(t, "0", ledgerA.BalanceOf(escrow).String())
}

func TestSettle_InsufficientTakerFundsFails(t *testing.T) {
	escrow := uuid.New()
	maker := uuid.New()
	taker := uuid.New()
	pair, ledgerA, _ := newTestPair(escrow)
	ledgerA.Credit(escrow, uint256.NewInt(5))
	// taker has zero B balance

	eng := New(pair, escrow, nil)
	order := &model.Order{
		ID: 2, Owner: maker, SellingA: true, Active: true,
		SellingAmt: uint256.NewInt(5), BuyingAmt: uint256.NewInt(1),
		PriceRatio: new(uint256.Int).Mul(uint256.NewInt(5), model.Scale), Bigger: model.AssetA,
	}
	fees := Fees{}

	_, err := eng.Settle(context.Background(), order, taker, uint256.NewInt(5), fees)
	assert.Error(t, err)
	// Order must be untouched on failure.
	assert.Equal(t, "5", order.SellingAmt.String())
	assert.True(t, order.Active)
}

func TestSettle_RejectsOverQuantity(t *testing.T) {
	escrow := uuid.New()
	pair, _, _ := newTestPair(escrow)
	eng := New(pair, escrow, nil)
	order := &model.Order{
		ID: 2, Active: true,
		SellingAmt: uint256.NewInt(5), BuyingAmt: uint256.NewInt(1),
	}
	_, err := eng.Settle(context.Background(), order, uuid.New(), uint256.NewInt(6), Fees{})
	assert.Error(t, err)
}
