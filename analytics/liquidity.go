// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package analytics

import (
	"fmt"

	"github.com/luxfi/curvemath/fixedpoint"
)

// CalcTokenAmount estimates the LP tokens minted by a deposit of amounts
// into pool, given the current totalSupply. amounts are always added to
// the balances; withdrawals are not computed here. The first deposit into an empty pool (totalSupply == 0)
// mints exactly D1; every later deposit mints
// totalSupply * (D1 - D0) / D0.
func CalcTokenAmount(pool LiquidityPool, amounts []*fixedpoint.Uint, totalSupply *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	n := pool.N()
	if len(amounts) != n {
		return nil, fmt.Errorf("%w: amounts has %d entries, pool has %d coins", ErrInvalidIndex, len(amounts), n)
	}

	xp0, err := pool.NormalizedBalances()
	if err != nil {
		return nil, err
	}
	d0, err := pool.ComputeD(xp0)
	if err != nil {
		return nil, err
	}

	if totalSupply.IsZero() {
		xp1 := make([]*fixedpoint.Uint, n)
		for i := 0; i < n; i++ {
			scaled, err := pool.ScaleAmount(i, amounts[i])
			if err != nil {
				return nil, err
			}
			xp1[i], err = fixedpoint.CheckedAdd(xp0[i], scaled)
			if err != nil {
				return nil, err
			}
		}
		return pool.ComputeD(xp1)
	}

	if d0.IsZero() {
		return nil, fmt.Errorf("%w: D0=0 with totalSupply=%s", ErrSupplyZero, totalSupply.String())
	}

	xp1 := make([]*fixedpoint.Uint, n)
	for i := 0; i < n; i++ {
		scaled, err := pool.ScaleAmount(i, amounts[i])
		if err != nil {
			return nil, err
		}
		xp1[i], err = fixedpoint.CheckedAdd(xp0[i], scaled)
		if err != nil {
			return nil, err
		}
	}
	d1, err := pool.ComputeD(xp1)
	if err != nil {
		return nil, err
	}

	deltaD := fixedpoint.SatSub(d1, d0)
	return fixedpoint.MulDiv(totalSupply, deltaD, d0)
}

// CalcWithdrawOneCoin computes the amount of coin i received for burning lp
// LP tokens against totalSupply, in native decimals, net of the pool's
// swap fee approximating the imbalance the single-coin withdrawal creates.
// A full withdrawal (lp == totalSupply) short-circuits to the coin's whole
// balance, skipping the solver entirely.
func CalcWithdrawOneCoin(pool LiquidityPool, lp *fixedpoint.Uint, i int, totalSupply *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	n := pool.N()
	if i < 0 || i >= n {
		return nil, fmt.Errorf("%w: i=%d n=%d", ErrInvalidIndex, i, n)
	}
	if totalSupply.IsZero() {
		return nil, fmt.Errorf("%w: cannot withdraw against zero supply", ErrSupplyZero)
	}
	if lp.IsZero() {
		return fixedpoint.Zero(), nil
	}
	if lp.Cmp(totalSupply) == 0 {
		return new(fixedpoint.Uint).Set(pool.NativeBalances()[i]), nil
	}

	xp, err := pool.NormalizedBalances()
	if err != nil {
		return nil, err
	}
	d0, err := pool.ComputeD(xp)
	if err != nil {
		return nil, err
	}

	remaining, err := fixedpoint.CheckedSub(totalSupply, lp)
	if err != nil {
		return nil, err
	}
	d1, err := fixedpoint.MulDiv(d0, remaining, totalSupply)
	if err != nil {
		return nil, err
	}

	yi, err := pool.SolveYForD(i, xp, d1)
	if err != nil {
		return nil, err
	}

	dyRaw := fixedpoint.SatSub(xp[i], yi)
	fee := pool.SwapFee()
	feeAmount, err := fixedpoint.MulDiv(fee, dyRaw, fixedpoint.FeeDenominator)
	if err != nil {
		return nil, err
	}
	dy := fixedpoint.SatSub(dyRaw, feeAmount)

	return pool.UnscaleAmount(i, dy)
}

// CalcRemoveLiquidity computes the strictly proportional multi-coin
// withdrawal for burning lp out of totalSupply: balances[k] * lp /
// totalSupply for every coin k, with no solver and no fee (balanced
// withdrawal never skews the pool).
func CalcRemoveLiquidity(pool LiquidityPool, lp, totalSupply *fixedpoint.Uint) ([]*fixedpoint.Uint, error) {
	if totalSupply.IsZero() {
		return nil, fmt.Errorf("%w: cannot withdraw against zero supply", ErrSupplyZero)
	}
	balances := pool.NativeBalances()
	out := make([]*fixedpoint.Uint, len(balances))
	for k, b := range balances {
		amount, err := fixedpoint.MulDiv(b, lp, totalSupply)
		if err != nil {
			return nil, err
		}
		out[k] = amount
	}
	return out, nil
}

// GetVirtualPrice returns D*PRECISION/totalSupply, the LP token's value in
// the pool's numéraire. An empty pool (totalSupply == 0) returns exactly
// PRECISION rather than dividing by zero.
func GetVirtualPrice(pool LiquidityPool, totalSupply *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	if totalSupply.IsZero() {
		return new(fixedpoint.Uint).Set(fixedpoint.Precision), nil
	}
	xp, err := pool.NormalizedBalances()
	if err != nil {
		return nil, err
	}
	d, err := pool.ComputeD(xp)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(d, fixedpoint.Precision, totalSupply)
}

// LpPrice values one LP token in coin-0 terms: the normalized-balance sum
// (coin-0-equivalent pool value) divided by totalSupply. Returns 0 for an
// empty pool or zero supply.
func LpPrice(pool LiquidityPool, totalSupply *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	if totalSupply.IsZero() {
		return fixedpoint.Zero(), nil
	}
	xp, err := pool.NormalizedBalances()
	if err != nil {
		return nil, err
	}
	sum, err := fixedpoint.Sum(xp)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(sum, fixedpoint.Precision, totalSupply)
}
