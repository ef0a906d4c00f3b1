// Package model defines the resting-order record and the ratio-based price
// encoding shared by the book, settlement and matching packages. All
// arithmetic is exact 256-bit integer arithmetic via github.com/holiman/uint256,
// never floating point, matching the "ratio-based" design described in
// spec.md §3 and §9.
package model

import (
	"errors"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// Asset identifies one side of the traded pair.
type Asset uint8

const (
	AssetA Asset = iota
	AssetB
)

func (a Asset) String() string {
	if a == AssetA {
		return "A"
	}
	return "B"
}

// Sentinel order ids: 0 means "back of list", 1 means "front of list".
// Real order ids are dense positive integers starting at 2.
const (
	SentinelBack  uint64 = 0
	SentinelFront uint64 = 1
	FirstOrderID  uint64 = 2
)

// Scale is the fixed-point denominator used to express price_ratio as an
// integer: price_ratio = max(selling_amt, buying_amt) * Scale / min(selling_amt, buying_amt).
var Scale = uint256.NewInt(1_000_000_000_000_000) // 10^15

// FeeBPSDenominator and FeeBPSMax are the fee constants from spec.md §6.
const (
	FeeBPSDenominator uint64 = 10000
	FeeBPSMax         uint64 = 5000
)

// Order is a resting maker order in the book.
type Order struct {
	ID         uint64
	Owner      uuid.UUID
	SellingA   bool
	SellingAmt *uint256.Int
	BuyingAmt  *uint256.Int
	PriceRatio *uint256.Int
	Bigger     Asset
	Active     bool
}

// AAmt and BAmt return the order's amounts in (A, B) order regardless of
// which side it is selling, for use by ratio-comparison code that is
// direction-agnostic.
func (o *Order) AAmt() *uint256.Int {
	if o.SellingA {
		return o.SellingAmt
	}
	return o.BuyingAmt
}

func (o *Order) BAmt() *uint256.Int {
	if o.SellingA {
		return o.BuyingAmt
	}
	return o.SellingAmt
}

// Ratio computes (price_ratio, bigger_token) for a given (a_amt, b_amt)
// pair, per spec.md §3: price_ratio = max(a,b)*Scale/min(a,b). Both inputs
// must be strictly positive. Ties (a == b) are reported as bigger_token =
// AssetB — see DESIGN.md's tie-break decision.
func Ratio(aAmt, bAmt *uint256.Int) (ratio *uint256.Int, bigger Asset, err error) {
	if aAmt.IsZero() || bAmt.IsZero() {
		return nil, 0, errZeroAmount
	}
	ratio = new(uint256.Int)
	if aAmt.Cmp(bAmt) > 0 {
		if _, overflow := ratio.MulDivOverflow(aAmt, Scale, bAmt); overflow {
			return nil, 0, errRatioOverflow
		}
		return ratio, AssetA, nil
	}
	if _, overflow := ratio.MulDivOverflow(bAmt, Scale, aAmt); overflow {
		return nil, 0, errRatioOverflow
	}
	return ratio, AssetB, nil
}

// Better reports whether x is at least as good as y under the ratio order
// of spec.md §4.2, for the given side ("ask" sells A, "bid" sells B).
// Strict controls whether equal quotes count as "better": pass false to
// test "at least as good as" and true to test "strictly better than".
func Better(xRatio *uint256.Int, xBigger Asset, yRatio *uint256.Int, yBigger Asset, sellingA bool, strict bool) bool {
	cmp := compareAskGoodness(xRatio, xBigger, yRatio, yBigger)
	if !sellingA {
		cmp = -cmp
	}
	if strict {
		return cmp > 0
	}
	return cmp >= 0
}

// compareAskGoodness returns >0 if x is a better ask than y, 0 if equal
// goodness, <0 if x is worse. With equal bigger_token the quote giving more
// A per unit B ranks higher; across bigger_token values, bigger_token = B
// always ranks above bigger_token = A.
func compareAskGoodness(xRatio *uint256.Int, xBigger Asset, yRatio *uint256.Int, yBigger Asset) int {
	if xBigger == yBigger {
		c := xRatio.Cmp(yRatio)
		if xBigger == AssetA {
			// bigger_token = A: larger ratio (more A per B) is better.
			return c
		}
		// bigger_token = B: smaller ratio (less B per A) is better.
		return -c
	}
	// Cross case: bigger_token = B dominates bigger_token = A.
	if xBigger == AssetB {
		return 1
	}
	return -1
}

// Counterpart recomputes the amount of the other asset exactly from
// sellingAmt, price_ratio and bigger_token, per spec.md §4.5 step 5: when
// bigger_token is the selling side, buying_amt = selling_amt * SCALE /
// price_ratio; otherwise buying_amt = selling_amt * price_ratio / SCALE
// (both truncated). sellingAsset is the asset sellingAmt is denominated in.
func Counterpart(sellingAmt, ratio *uint256.Int, bigger, sellingAsset Asset) (*uint256.Int, error) {
	out := new(uint256.Int)
	if bigger == sellingAsset {
		// Selling side is the larger amount; the counterpart is smaller.
		if _, overflow := out.MulDivOverflow(sellingAmt, Scale, ratio); overflow {
			return nil, errRatioOverflow
		}
		return out, nil
	}
	// Selling side is the smaller amount; the counterpart is larger.
	if _, overflow := out.MulDivOverflow(sellingAmt, ratio, Scale); overflow {
		return nil, errRatioOverflow
	}
	return out, nil
}

var (
	errZeroAmount    = errors.New("model: amount must be positive")
	errRatioOverflow = errors.New("model: ratio computation overflowed 256 bits")
)
