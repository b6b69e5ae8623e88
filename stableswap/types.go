// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package stableswap reimplements the Curve StableSwap invariant solver
// (the "D" and "y" Newton iterations) and its derived swap/fee formulas,
// off-chain, using exact arbitrary-precision integer arithmetic. Every
// function here is a pure function of its inputs: nothing is cached,
// nothing is mutated, and every call may run concurrently with any other.
package stableswap

import (
	"errors"
	"fmt"

	"github.com/luxfi/curvemath/fixedpoint"
)

// MinCoins and MaxCoins bound the supported pool size, per the data model.
const (
	MinCoins = 2
	MaxCoins = 8
)

// Sentinel errors, one per failure kind in the error taxonomy. Functions in
// this package return them either bare or wrapped with
// fmt.Errorf("%w: ...") when there is context to add (index values, pool
// size), so callers should match them with errors.Is.
var (
	ErrZeroBalance     = errors.New("stableswap: zero balance in non-empty pool")
	ErrInvalidA        = errors.New("stableswap: amplification coefficient is zero")
	ErrNoConverge      = errors.New("stableswap: newton iteration did not converge")
	ErrBadDenom        = errors.New("stableswap: y-solver denominator non-positive")
	ErrInvalidIndex    = errors.New("stableswap: coin index out of range")
	ErrInvalidDecimals = errors.New("stableswap: decimals out of range")
	ErrInvalidCoins    = errors.New("stableswap: coin count out of range")
	ErrSupplyZero      = errors.New("stableswap: total supply is zero but invariant is non-zero")
)

// Pool is a point-in-time snapshot of a StableSwap pool's on-chain state.
// It is consumed, never mutated, by every function in this package.
type Pool struct {
	// Balances holds raw token reserves in native token decimals, length
	// in [MinCoins, MaxCoins].
	Balances []*fixedpoint.Uint

	// Exactly one of Rates or Precisions should be populated: Rates
	// selects "exact mode" (rates[i] = 10^(36-decimals[i])), Precisions
	// selects "normalized mode" (precisions[i] = 10^(18-decimals[i])).
	Rates      []*fixedpoint.Uint
	Precisions []*fixedpoint.Uint

	// A is the raw amplification coefficient.
	A *fixedpoint.Uint

	// Fee is the base swap fee in FeeDenominator units.
	Fee *fixedpoint.Uint
	// OffpegFeeMultiplier scales Fee up as the pool moves off peg; values
	// <= FeeDenominator disable dynamic scaling entirely.
	OffpegFeeMultiplier *fixedpoint.Uint

	// TotalSupply is the LP-token supply, required only by liquidity ops.
	TotalSupply *fixedpoint.Uint
}

// N returns the pool's coin count.
func (p *Pool) N() int { return len(p.Balances) }

// validateCoins checks the pool's coin count is within bounds.
func (p *Pool) validateCoins() error {
	n := p.N()
	if n < MinCoins || n > MaxCoins {
		return fmt.Errorf("%w: got %d coins, want [%d,%d]", ErrInvalidCoins, n, MinCoins, MaxCoins)
	}
	return nil
}

// Ann returns A * A_PRECISION * N, the amplification term the Newton
// solvers operate on.
func (p *Pool) Ann() (*fixedpoint.Uint, error) {
	if err := p.validateCoins(); err != nil {
		return nil, err
	}
	n := fixedpoint.FromUint64(uint64(p.N()))
	aTimesPrecision, err := fixedpoint.CheckedMul(p.A, fixedpoint.APrecision)
	if err != nil {
		return nil, err
	}
	ann, err := fixedpoint.CheckedMul(aTimesPrecision, n)
	if err != nil {
		return nil, err
	}
	return ann, nil
}

// RatesFromDecimals computes rates[i] = 10^(36-decimals[i]) for exact mode.
// decimals must be in [0,36].
func RatesFromDecimals(decimals []uint8) ([]*fixedpoint.Uint, error) {
	rates := make([]*fixedpoint.Uint, len(decimals))
	for i, d := range decimals {
		if d > 36 {
			return nil, fmt.Errorf("%w: decimals[%d]=%d exceeds 36", ErrInvalidDecimals, i, d)
		}
		rates[i] = fixedpoint.Pow10(uint64(36 - d))
	}
	return rates, nil
}

// PrecisionsFromDecimals computes precisions[i] = 10^(18-decimals[i]) for
// normalized mode. decimals must be in [0,18].
func PrecisionsFromDecimals(decimals []uint8) ([]*fixedpoint.Uint, error) {
	precisions := make([]*fixedpoint.Uint, len(decimals))
	for i, d := range decimals {
		if d > 18 {
			return nil, fmt.Errorf("%w: decimals[%d]=%d exceeds 18", ErrInvalidDecimals, i, d)
		}
		precisions[i] = fixedpoint.Pow10(uint64(18 - d))
	}
	return precisions, nil
}

// NormalizedBalances returns xp, the balance vector rescaled into the
// common 18-decimal numéraire, using whichever of Rates/Precisions is
// populated on the pool. xp[i] = rates[i]*balances[i]/PRECISION in exact
// mode, or balances[i]*precisions[i] in normalized mode.
func NormalizedBalances(p *Pool) ([]*fixedpoint.Uint, error) {
	if err := p.validateCoins(); err != nil {
		return nil, err
	}
	n := p.N()
	xp := make([]*fixedpoint.Uint, n)
	switch {
	case len(p.Rates) == n:
		for i := 0; i < n; i++ {
			v, err := fixedpoint.MulDiv(p.Rates[i], p.Balances[i], fixedpoint.Precision)
			if err != nil {
				return nil, err
			}
			xp[i] = v
		}
	case len(p.Precisions) == n:
		for i := 0; i < n; i++ {
			v, err := fixedpoint.CheckedMul(p.Balances[i], p.Precisions[i])
			if err != nil {
				return nil, err
			}
			xp[i] = v
		}
	default:
		return nil, fmt.Errorf("%w: neither Rates nor Precisions has length %d", ErrInvalidCoins, n)
	}
	return xp, nil
}

// checkIndices validates i and j are distinct and within [0, n).
func checkIndices(i, j, n int) error {
	if i < 0 || i >= n || j < 0 || j >= n {
		return fmt.Errorf("%w: i=%d j=%d n=%d", ErrInvalidIndex, i, j, n)
	}
	if i == j {
		return fmt.Errorf("%w: i == j == %d", ErrInvalidIndex, i)
	}
	return nil
}
