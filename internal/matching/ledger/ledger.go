// Package ledger defines the Asset Ledger Adapter described in spec.md §6:
// an abstract interface onto two fungible-asset ledgers. Custody and
// transfer execution are explicitly out of scope for the matching engine
// (spec.md §1); this package only names the boundary and provides an
// in-memory reference implementation for tests and local demos.
package ledger

import (
	"context"

	"github.com/Aidin1998/ratiomatch/internal/matching/model"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// Ledger is the per-asset transfer surface the matching engine drives. Both
// methods report ok == false (never an error) on insufficient balance or
// policy rejection, matching the boolean-return contract of spec.md §6; a
// non-nil err is reserved for infrastructure failure.
type Ledger interface {
	// TransferFrom moves amount from owner's balance to recipient's balance,
	// subject to owner having pre-approved the engine to move its funds
	// (the ERC-20 "allowance" pattern spec.md §6 alludes to).
	TransferFrom(ctx context.Context, owner, recipient uuid.UUID, amount *uint256.Int) (ok bool, err error)
	// Transfer moves amount out of the engine's own escrow balance to recipient.
	Transfer(ctx context.Context, recipient uuid.UUID, amount *uint256.Int) (ok bool, err error)
}

// InMemory is a reference Ledger backed by a balance map, suitable for unit
// tests and the cmd/matchingengine demo. It is not a production custody
// system: it has no persistence and no allowance semantics beyond a flat
// "owner has enough balance" check.
type InMemory struct {
	engine  uuid.UUID
	balance map[uuid.UUID]*uint256.Int
}

// NewInMemory returns an InMemory ledger whose escrow account is engineID.
func NewInMemory(engineID uuid.UUID) *InMemory {
	return &InMemory{engine: engineID, balance: make(map[uuid.UUID]*uint256.Int)}
}

// Credit adds amount to account's balance; used by tests and the demo to
// fund participants before they submit orders.
func (l *InMemory) Credit(account uuid.UUID, amount *uint256.Int) {
	cur := l.balanceOf(account)
	l.balance[account] = new(uint256.Int).Add(cur, amount)
}

// BalanceOf returns account's current balance.
func (l *InMemory) BalanceOf(account uuid.UUID) *uint256.Int {
	return l.balanceOf(account).Clone()
}

func (l *InMemory) balanceOf(account uuid.UUID) *uint256.Int {
	b, ok := l.balance[account]
	if !ok {
		return uint256.NewInt(0)
	}
	return b
}

// TransferFrom implements Ledger.
func (l *InMemory) TransferFrom(_ context.Context, owner, recipient uuid.UUID, amount *uint256.Int) (bool, error) {
	cur := l.balanceOf(owner)
	if cur.Lt(amount) {
		return false, nil
	}
	l.balance[owner] = new(uint256.Int).Sub(cur, amount)
	rcur := l.balanceOf(recipient)
	l.balance[recipient] = new(uint256.Int).Add(rcur, amount)
	return true, nil
}

// Transfer implements Ledger.
func (l *InMemory) Transfer(ctx context.Context, recipient uuid.UUID, amount *uint256.Int) (bool, error) {
	return l.TransferFrom(ctx, l.engine, recipient, amount)
}

// Pair bundles the two single-asset ledgers the engine operates against.
type Pair struct {
	A Ledger
	B Ledger
}

// For returns the ledger for the given asset.
func (p Pair) For(asset model.Asset) Ledger {
	if asset == model.AssetA {
		return p.A
	}
	return p.B
}
