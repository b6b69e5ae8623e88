// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stableswap

import (
	"github.com/luxfi/curvemath/fixedpoint"
)

// maxExpansions bounds GetDxExact's exponential-doubling search for an
// upper bound before it gives up and reports the swap as unachievable.
const maxExpansions = 10

// maxBinarySearchRounds bounds GetDxExact's binary search.
const maxBinarySearchRounds = 256

// GetDyExact computes the output amount of swapping dx of coin i for coin
// j, in the exact division order specified for bit-for-bit parity with the
// reference contracts:
//
//  1. xp <- normalized balances
//  2. Ann <- A*A_PRECISION*N
//  3. D <- GetD(xp, Ann)
//  4. x <- xp[i] + dx*rates[i]/PRECISION
//  5. y <- GetY(i, j, x, xp, Ann, D)
//  6. dy_raw <- xp[j] - y - 1, clamped to 0
//  7. fee <- DynamicFee of the pre/post-swap average balances
//  8. dy <- (dy_raw - fee*dy_raw/FEE_DENOMINATOR) * PRECISION / rates[j]
//
// Per §7, an invalid index or a zero dx is not an error here: both return
// a zero amount so callers can compose GetDyExact inside search loops
// (GetDxExact, quoteSwap) without error-checking every call.
func GetDyExact(pool *Pool, i, j int, dx *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	n := pool.N()
	if i < 0 || i >= n || j < 0 || j >= n || i == j {
		return fixedpoint.Zero(), nil
	}
	if dx.IsZero() {
		return fixedpoint.Zero(), nil
	}
	if len(pool.Rates) != n {
		return nil, ErrInvalidCoins
	}

	xp, err := NormalizedBalances(pool)
	if err != nil {
		return nil, err
	}
	ann, err := pool.Ann()
	if err != nil {
		return nil, err
	}
	d, err := GetD(xp, ann)
	if err != nil {
		return nil, err
	}

	dxScaled, err := fixedpoint.MulDiv(dx, pool.Rates[i], fixedpoint.Precision)
	if err != nil {
		return nil, err
	}
	x, err := fixedpoint.CheckedAdd(xp[i], dxScaled)
	if err != nil {
		return nil, err
	}

	y, err := GetY(i, j, x, xp, ann, d)
	if err != nil {
		return nil, err
	}

	dyRaw := fixedpoint.SatSub(fixedpoint.SatSub(xp[j], y), fixedpoint.One())
	if dyRaw.IsZero() {
		return fixedpoint.Zero(), nil
	}

	avgI := new(fixedpoint.Uint).Div(new(fixedpoint.Uint).Add(xp[i], x), fixedpoint.FromUint64(2))
	avgJ := new(fixedpoint.Uint).Div(new(fixedpoint.Uint).Add(xp[j], y), fixedpoint.FromUint64(2))
	fee, err := DynamicFee(avgI, avgJ, pool.Fee, pool.OffpegFeeMultiplier)
	if err != nil {
		return nil, err
	}
	feeAmount, err := fixedpoint.MulDiv(fee, dyRaw, fixedpoint.FeeDenominator)
	if err != nil {
		return nil, err
	}
	dyAfterFee := fixedpoint.SatSub(dyRaw, feeAmount)

	dy, err := fixedpoint.MulDiv(dyAfterFee, fixedpoint.Precision, pool.Rates[j])
	if err != nil {
		return nil, err
	}
	return dy, nil
}

// GetDxExact is the inverse of GetDyExact: the smallest dx (binary search
// narrowed to within one unit) such that GetDyExact(pool,i,j,dx) >= dy.
// Seeds the search with 10*max(balances) and doubles up to maxExpansions
// times if that is still insufficient; returns 0 if the target dy is
// unachievable even at the expanded bound.
func GetDxExact(pool *Pool, i, j int, dy *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	n := pool.N()
	if i < 0 || i >= n || j < 0 || j >= n || i == j {
		return fixedpoint.Zero(), nil
	}
	if dy.IsZero() {
		return fixedpoint.Zero(), nil
	}

	maxBalance := pool.Balances[0]
	for _, b := range pool.Balances[1:] {
		maxBalance = fixedpoint.Max(maxBalance, b)
	}
	high, err := fixedpoint.CheckedMul(fixedpoint.FromUint64(10), maxBalance)
	if err != nil {
		return nil, err
	}

	dyAtHigh, err := GetDyExact(pool, i, j, high)
	if err != nil {
		return nil, err
	}
	for k := 0; k < maxExpansions && dyAtHigh.Cmp(dy) < 0; k++ {
		high, err = fixedpoint.CheckedMul(high, fixedpoint.FromUint64(2))
		if err != nil {
			return nil, err
		}
		dyAtHigh, err = GetDyExact(pool, i, j, high)
		if err != nil {
			return nil, err
		}
	}
	if dyAtHigh.Cmp(dy) < 0 {
		return fixedpoint.Zero(), nil
	}

	low := fixedpoint.Zero()
	two := fixedpoint.FromUint64(2)
	for iter := 0; iter < maxBinarySearchRounds; iter++ {
		width := new(fixedpoint.Uint).Sub(high, low)
		if width.Cmp(fixedpoint.One()) <= 0 {
			break
		}
		mid := new(fixedpoint.Uint).Div(new(fixedpoint.Uint).Add(low, high), two)
		dyMid, err := GetDyExact(pool, i, j, mid)
		if err != nil {
			return nil, err
		}
		if dyMid.Cmp(dy) >= 0 {
			high = mid
		} else {
			low = mid
		}
	}
	return high, nil
}
