// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stableswap

import (
	"fmt"

	"github.com/luxfi/curvemath/fixedpoint"
)

// maxIterations bounds every Newton solve in this package, per §4.2.
const maxIterations = 255

// GetD solves the StableSwap invariant
//
//	A*n^n*sum(x) + D = A*D*n^n + D^(n+1)/(n^n*prod(x))
//
// for D given the normalized balance vector xp and Ann = A*A_PRECISION*n.
// Returns 0 if every balance is zero (an empty pool). Fails with
// ErrZeroBalance if some but not all balances are zero, and with
// ErrInvalidA if Ann is zero. The division order in the update step is
// load-bearing for bit-exact parity with the reference contracts and must
// not be reassociated.
func GetD(xp []*fixedpoint.Uint, ann *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	n := len(xp)
	if n < MinCoins || n > MaxCoins {
		return nil, fmt.Errorf("%w: got %d coins, want [%d,%d]", ErrInvalidCoins, n, MinCoins, MaxCoins)
	}

	s, err := fixedpoint.Sum(xp)
	if err != nil {
		return nil, err
	}
	if s.IsZero() {
		return fixedpoint.Zero(), nil
	}
	for i, x := range xp {
		if x.IsZero() {
			return nil, fmt.Errorf("%w: xp[%d]=0 while sum=%s", ErrZeroBalance, i, s.String())
		}
	}
	if ann.IsZero() {
		return nil, ErrInvalidA
	}

	nUint := fixedpoint.FromUint64(uint64(n))
	nPlus1 := fixedpoint.FromUint64(uint64(n + 1))
	annMinusPrecision, err := fixedpoint.CheckedSub(ann, fixedpoint.APrecision)
	if err != nil {
		return nil, fmt.Errorf("%w: Ann=%s below A_PRECISION", ErrInvalidA, ann.String())
	}

	d := new(fixedpoint.Uint).Set(s)
	for iter := 0; iter < maxIterations; iter++ {
		dP := new(fixedpoint.Uint).Set(d)
		for _, x := range xp {
			xTimesN, err := fixedpoint.CheckedMul(x, nUint)
			if err != nil {
				return nil, err
			}
			dP, err = fixedpoint.MulDiv(dP, d, xTimesN)
			if err != nil {
				return nil, err
			}
		}

		dPrev := d

		annSOverAPrecision, err := fixedpoint.MulDiv(ann, s, fixedpoint.APrecision)
		if err != nil {
			return nil, err
		}
		dPTimesN, err := fixedpoint.CheckedMul(dP, nUint)
		if err != nil {
			return nil, err
		}
		numeratorSum, err := fixedpoint.CheckedAdd(annSOverAPrecision, dPTimesN)
		if err != nil {
			return nil, err
		}

		annMinusPrecisionTimesD, err := fixedpoint.MulDiv(annMinusPrecision, d, fixedpoint.APrecision)
		if err != nil {
			return nil, err
		}
		nPlus1TimesDP, err := fixedpoint.CheckedMul(nPlus1, dP)
		if err != nil {
			return nil, err
		}
		denominatorSum, err := fixedpoint.CheckedAdd(annMinusPrecisionTimesD, nPlus1TimesDP)
		if err != nil {
			return nil, err
		}
		if denominatorSum.IsZero() {
			return nil, fmt.Errorf("%w: D update denominator is zero", ErrBadDenom)
		}

		d, err = fixedpoint.MulDiv(numeratorSum, d, denominatorSum)
		if err != nil {
			return nil, err
		}

		if fixedpoint.AbsDiff(d, dPrev).Cmp(fixedpoint.One()) <= 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: GetD exceeded %d iterations", ErrNoConverge, maxIterations)
}

// solveY is the shared Newton iteration behind both GetY and GetYD. It
// sums every xp[k] for k != skip (substituting substituteVal for index
// substituteIdx when substituteIdx >= 0), then iterates
// y <- (y^2+c)/(2y+b-D) from initial guess D.
func solveY(xp []*fixedpoint.Uint, ann, d *fixedpoint.Uint, skip, substituteIdx int, substituteVal *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	n := len(xp)
	nUint := fixedpoint.FromUint64(uint64(n))

	c := new(fixedpoint.Uint).Set(d)
	s := fixedpoint.Zero()
	var err error
	for k := 0; k < n; k++ {
		if k == skip {
			continue
		}
		xk := xp[k]
		if k == substituteIdx {
			xk = substituteVal
		}
		if xk.IsZero() {
			return nil, fmt.Errorf("%w: coin %d is zero", ErrZeroBalance, k)
		}
		s, err = fixedpoint.CheckedAdd(s, xk)
		if err != nil {
			return nil, err
		}
		xkTimesN, err := fixedpoint.CheckedMul(xk, nUint)
		if err != nil {
			return nil, err
		}
		c, err = fixedpoint.MulDiv(c, d, xkTimesN)
		if err != nil {
			return nil, err
		}
	}

	annTimesN, err := fixedpoint.CheckedMul(ann, nUint)
	if err != nil {
		return nil, err
	}
	cTimesD, err := fixedpoint.CheckedMul(c, d)
	if err != nil {
		return nil, err
	}
	c, err = fixedpoint.MulDiv(cTimesD, fixedpoint.APrecision, annTimesN)
	if err != nil {
		return nil, err
	}

	dTimesAPrecisionOverAnn, err := fixedpoint.MulDiv(d, fixedpoint.APrecision, ann)
	if err != nil {
		return nil, err
	}
	b, err := fixedpoint.CheckedAdd(s, dTimesAPrecisionOverAnn)
	if err != nil {
		return nil, err
	}

	y := new(fixedpoint.Uint).Set(d)
	for iter := 0; iter < maxIterations; iter++ {
		yPrev := y

		ySquared, err := fixedpoint.CheckedMul(y, y)
		if err != nil {
			return nil, err
		}
		numerator, err := fixedpoint.CheckedAdd(ySquared, c)
		if err != nil {
			return nil, err
		}

		twoY, err := fixedpoint.CheckedAdd(y, y)
		if err != nil {
			return nil, err
		}
		twoYPlusB, err := fixedpoint.CheckedAdd(twoY, b)
		if err != nil {
			return nil, err
		}
		if twoYPlusB.Cmp(d) <= 0 {
			return nil, fmt.Errorf("%w: 2y+b=%s <= D=%s", ErrBadDenom, twoYPlusB.String(), d.String())
		}
		denominator := new(fixedpoint.Uint).Sub(twoYPlusB, d)

		y = new(fixedpoint.Uint).Div(numerator, denominator)

		if fixedpoint.AbsDiff(y, yPrev).Cmp(fixedpoint.One()) <= 0 {
			return y, nil
		}
	}
	return nil, fmt.Errorf("%w: y-solver exceeded %d iterations", ErrNoConverge, maxIterations)
}

// GetY solves the invariant for y = x_j given every other balance (with
// x_i substituted by newXi) and the target D. Fails with ErrBadDenom if
// the solver's denominator 2y+b-D ever becomes non-positive, and with
// ErrNoConverge past the 255-iteration cap.
func GetY(i, j int, newXi *fixedpoint.Uint, xp []*fixedpoint.Uint, ann, d *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	n := len(xp)
	if err := checkIndices(i, j, n); err != nil {
		return nil, err
	}
	if ann.IsZero() {
		return nil, ErrInvalidA
	}
	return solveY(xp, ann, d, j, i, newXi)
}

// GetYD computes y_i for a new invariant D using the pool's *existing*
// other balances, with no substitution. This is the solver used by the
// single-coin withdrawal path (analytics.CalcWithdrawOneCoin).
func GetYD(i int, xp []*fixedpoint.Uint, ann, d *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	n := len(xp)
	if i < 0 || i >= n {
		return nil, fmt.Errorf("%w: i=%d n=%d", ErrInvalidIndex, i, n)
	}
	if ann.IsZero() {
		return nil, ErrInvalidA
	}
	return solveY(xp, ann, d, i, -1, nil)
}

// DynamicFee returns the swap fee for a pair of (pre/post-swap average)
// balances x_i, x_j. If multiplier <= FEE_DENOMINATOR dynamic scaling is
// disabled and baseFee is returned unchanged. Otherwise the fee equals
// baseFee exactly when x_i, x_j are perfectly balanced and rises toward
// multiplier*baseFee/FEE_DENOMINATOR as the pair skews off peg, so
// arbitrageurs pay more to correct a more-imbalanced pool.
func DynamicFee(xi, xj, baseFee, multiplier *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	if multiplier.Cmp(fixedpoint.FeeDenominator) <= 0 {
		return new(fixedpoint.Uint).Set(baseFee), nil
	}
	s, err := fixedpoint.CheckedAdd(xi, xj)
	if err != nil {
		return nil, err
	}
	if s.IsZero() {
		return new(fixedpoint.Uint).Set(baseFee), nil
	}

	xps2, err := fixedpoint.CheckedMul(s, s)
	if err != nil {
		return nil, err
	}
	multiplierMinusDenom, err := fixedpoint.CheckedSub(multiplier, fixedpoint.FeeDenominator)
	if err != nil {
		return nil, err
	}
	four := fixedpoint.FromUint64(4)
	skew, err := fixedpoint.WideMulDiv(xps2, multiplierMinusDenom, four, xi, xj)
	if err != nil {
		return nil, err
	}
	denominator, err := fixedpoint.CheckedAdd(skew, fixedpoint.FeeDenominator)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(multiplier, baseFee, denominator)
}
