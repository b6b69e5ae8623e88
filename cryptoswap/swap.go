// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cryptoswap

import (
	"github.com/luxfi/curvemath/fixedpoint"
)

// maxExpansions bounds GetDx/GetDx3's exponential-doubling search for an
// upper bound.
const maxExpansions = 10

// maxBinarySearchRounds bounds GetDx/GetDx3's binary search.
const maxBinarySearchRounds = 256

// derivativeEpsilon bounds the probe trade size invertSwap uses to take a
// numerical derivative of the swap curve when seeding its search bound.
var derivativeEpsilon = fixedpoint.FromUint64(1_000_000_000_000) // 1e12

// GetDy computes the output amount for swapping dx of coin i into coin j in
// a 2-coin pool: scale balances into the common numéraire, recompute D,
// solve for the post-swap y = xp[j] via NewtonY, take the raw difference,
// apply the K-based dynamic fee, then unscale back into native units. Per
// §7, an invalid index or a zero dx returns a zero amount rather than an
// error, so callers can compose this inside search loops freely.
func GetDy(pool *Pool, i, j int, dx *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	n := pool.N()
	if n != 2 {
		return fixedpoint.Zero(), nil
	}
	if err := checkIndices(i, j, n); err != nil {
		return fixedpoint.Zero(), nil
	}
	if dx.IsZero() {
		return fixedpoint.Zero(), nil
	}

	xp, err := Scale(pool)
	if err != nil {
		return nil, err
	}
	d, err := CalcD(pool.A, pool.Gamma, xp)
	if err != nil {
		return nil, err
	}

	dxScaled, err := scaleOneAmount(pool, i, dx)
	if err != nil {
		return nil, err
	}
	xp[i], err = fixedpoint.CheckedAdd(xp[i], dxScaled)
	if err != nil {
		return nil, err
	}

	y, err := NewtonY(pool.A, pool.Gamma, xp, d, j)
	if err != nil {
		return nil, err
	}
	dyRaw := fixedpoint.SatSub(fixedpoint.SatSub(xp[j], y), fixedpoint.One())
	if dyRaw.IsZero() {
		return fixedpoint.Zero(), nil
	}

	postSwap := make([]*fixedpoint.Uint, n)
	copy(postSwap, xp)
	postSwap[j] = y
	fee, err := DynamicFee(postSwap, pool.MidFee, pool.OutFee, pool.FeeGamma)
	if err != nil {
		return nil, err
	}
	feeAmount, err := fixedpoint.MulDiv(fee, dyRaw, fixedpoint.FeeDenominator)
	if err != nil {
		return nil, err
	}
	dyAfterFee := fixedpoint.SatSub(dyRaw, feeAmount)

	return unscaleOneAmount(pool, j, dyAfterFee)
}

// GetDy3 is GetDy's 3-coin (Tricrypto) counterpart, using NewtonY3.
func GetDy3(pool *Pool, i, j int, dx *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	n := pool.N()
	if n != 3 {
		return fixedpoint.Zero(), nil
	}
	if err := checkIndices(i, j, n); err != nil {
		return fixedpoint.Zero(), nil
	}
	if dx.IsZero() {
		return fixedpoint.Zero(), nil
	}

	xp, err := Scale(pool)
	if err != nil {
		return nil, err
	}
	d, err := CalcD(pool.A, pool.Gamma, xp)
	if err != nil {
		return nil, err
	}

	dxScaled, err := scaleOneAmount(pool, i, dx)
	if err != nil {
		return nil, err
	}
	xp[i], err = fixedpoint.CheckedAdd(xp[i], dxScaled)
	if err != nil {
		return nil, err
	}

	y, err := NewtonY3(pool.A, pool.Gamma, xp, d, j)
	if err != nil {
		return nil, err
	}
	dyRaw := fixedpoint.SatSub(fixedpoint.SatSub(xp[j], y), fixedpoint.One())
	if dyRaw.IsZero() {
		return fixedpoint.Zero(), nil
	}

	postSwap := make([]*fixedpoint.Uint, n)
	copy(postSwap, xp)
	postSwap[j] = y
	fee, err := DynamicFee(postSwap, pool.MidFee, pool.OutFee, pool.FeeGamma)
	if err != nil {
		return nil, err
	}
	feeAmount, err := fixedpoint.MulDiv(fee, dyRaw, fixedpoint.FeeDenominator)
	if err != nil {
		return nil, err
	}
	dyAfterFee := fixedpoint.SatSub(dyRaw, feeAmount)

	return unscaleOneAmount(pool, j, dyAfterFee)
}

// ScaleAmount rescales a single native-unit amount into coin k's numéraire,
// the same rule Scale applies to balances. Exported for reuse by callers
// (e.g. the analytics package) that need to fold an arbitrary deposit or
// withdrawal amount into a pool's internal units.
func ScaleAmount(pool *Pool, k int, amount *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	return scaleOneAmount(pool, k, amount)
}

// UnscaleAmount inverts ScaleAmount.
func UnscaleAmount(pool *Pool, k int, amount *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	return unscaleOneAmount(pool, k, amount)
}

// scaleOneAmount rescales a single native-unit amount into coin k's
// numéraire, the same rule Scale applies to balances.
func scaleOneAmount(pool *Pool, k int, amount *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	scaled, err := fixedpoint.CheckedMul(amount, pool.Precisions[k])
	if err != nil {
		return nil, err
	}
	if k == 0 {
		return scaled, nil
	}
	return fixedpoint.MulDiv(scaled, pool.PriceScales[k-1], fixedpoint.Precision)
}

// unscaleOneAmount inverts scaleOneAmount.
func unscaleOneAmount(pool *Pool, k int, amount *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	v := amount
	var err error
	if k != 0 {
		v, err = fixedpoint.MulDiv(v, fixedpoint.Precision, pool.PriceScales[k-1])
		if err != nil {
			return nil, err
		}
	}
	return new(fixedpoint.Uint).Div(v, pool.Precisions[k]), nil
}

// GetDx is the inverse of GetDy: the smallest dx such that
// GetDy(pool,i,j,dx) >= dy, found by exponential-doubling bound search
// followed by binary search, the same structure as stableswap.GetDxExact.
// Unlike GetDxExact, the starting bound comes from a spot-price probe
// (seedUpperBound), and a dy at or above balances[j] returns 0.
func GetDx(pool *Pool, i, j int, dy *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	return invertSwap(pool, i, j, dy, GetDy)
}

// GetDx3 is GetDx's 3-coin counterpart.
func GetDx3(pool *Pool, i, j int, dy *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	return invertSwap(pool, i, j, dy, GetDy3)
}

func invertSwap(pool *Pool, i, j int, dy *fixedpoint.Uint, quote func(*Pool, int, int, *fixedpoint.Uint) (*fixedpoint.Uint, error)) (*fixedpoint.Uint, error) {
	n := pool.N()
	if i < 0 || i >= n || j < 0 || j >= n || i == j {
		return fixedpoint.Zero(), nil
	}
	if dy.IsZero() {
		return fixedpoint.Zero(), nil
	}
	if dy.Cmp(pool.Balances[j]) >= 0 {
		return fixedpoint.Zero(), nil
	}

	high, err := seedUpperBound(pool, i, j, dy, quote)
	if err != nil {
		return nil, err
	}

	dyAtHigh, err := quote(pool, i, j, high)
	if err != nil {
		return nil, err
	}
	for k := 0; k < maxExpansions && dyAtHigh.Cmp(dy) < 0; k++ {
		high, err = fixedpoint.CheckedMul(high, fixedpoint.FromUint64(2))
		if err != nil {
			return nil, err
		}
		dyAtHigh, err = quote(pool, i, j, high)
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
		dyMid, err := quote(pool, i, j, mid)
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

// seedUpperBound computes invertSwap's search bound per §4.3.7: price a
// small probe trade to estimate the spot rate and set
// high = 2*dy*PRECISION/spot, which lands close to the true answer for a
// curve that is locally linear at that scale. Design note §9 warns
// against seeding purely off balances*10, since that bound can be wildly
// off for skewed pools or extreme dy — the naive bound is only a
// fallback for the degenerate case where the probe prices at 0.
func seedUpperBound(pool *Pool, i, j int, dy *fixedpoint.Uint, quote func(*Pool, int, int, *fixedpoint.Uint) (*fixedpoint.Uint, error)) (*fixedpoint.Uint, error) {
	fallback, err := fixedpoint.CheckedMul(fixedpoint.FromUint64(10), pool.Balances[i])
	if err != nil {
		return nil, err
	}

	probeDx := derivativeProbe(pool, i)
	probeDy, err := quote(pool, i, j, probeDx)
	if err != nil {
		return nil, err
	}
	if probeDy.IsZero() {
		return fallback, nil
	}
	spot, err := fixedpoint.MulDiv(probeDy, fixedpoint.Precision, probeDx)
	if err != nil {
		return nil, err
	}
	if spot.IsZero() {
		return fallback, nil
	}

	twoDy, err := fixedpoint.CheckedMul(dy, fixedpoint.FromUint64(2))
	if err != nil {
		return nil, err
	}
	high, err := fixedpoint.MulDiv(twoDy, fixedpoint.Precision, spot)
	if err != nil {
		return nil, err
	}
	if high.IsZero() {
		return fallback, nil
	}
	return high, nil
}

// derivativeProbe picks a small dx in coin i's native units to take a
// numerical derivative of the swap curve in seedUpperBound, large enough
// not to vanish to 0 after per-coin precision scaling.
func derivativeProbe(pool *Pool, i int) *fixedpoint.Uint {
	precision := pool.Precisions[i]
	if precision.IsZero() {
		return fixedpoint.One()
	}
	probe := new(fixedpoint.Uint).Div(derivativeEpsilon, precision)
	if probe.IsZero() {
		return fixedpoint.One()
	}
	return probe
}
