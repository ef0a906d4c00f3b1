// Package errs collects the sentinel errors returned across the matching
// engine. The public entry points report input, state, ledger and policy
// failures with these, wrapped with fmt.Errorf("%w: ...") when a call site
// needs to attach context. Arithmetic-overflow errors raised in the model,
// settlement and engine packages are not among these sentinels.
package errs

import "errors"

// Input-invalid.
var (
	ErrZeroTokenAmount          = errors.New("matching: token amount must be positive")
	ErrSellingTokenNotBool      = errors.New("matching: selling_a must be 0 or 1")
	ErrZeroBuyQuantity          = errors.New("matching: buy quantity must be positive")
	ErrQuantityExceedsOrderAmt  = errors.New("matching: fill quantity exceeds resting order amount")
	ErrInvalidFeeValue          = errors.New("matching: fee bps exceeds maximum")
)

// State-invalid.
var (
	ErrInactiveOrder           = errors.New("matching: order is not active")
	ErrNonOwnerCantCancelOrder = errors.New("matching: only the owner may cancel this order")
)

// Ledger-failure.
var (
	ErrTransferToEscrowError     = errors.New("matching: transfer into escrow failed")
	ErrLackingFundsForFees       = errors.New("matching: taker lacks funds to cover fees")
	ErrLackingFundsForTransaction = errors.New("matching: taker lacks funds for transaction")
	ErrEscrowToBuyerError         = errors.New("matching: transfer from escrow to buyer failed")
)

// Policy.
var (
	ErrFillOrKillNotFilled = errors.New("matching: fill-or-kill order could not be fully filled")
)

// Ambient: reentrancy (§5).
var (
	ErrReentrantCall = errors.New("matching: reentrant call into engine rejected")
	ErrNotAdmin       = errors.New("matching: caller is not the fee administrator")
)
