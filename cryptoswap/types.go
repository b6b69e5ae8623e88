// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cryptoswap reimplements the Curve CryptoSwap (v2/tricrypto)
// invariant solver and its K0-based dynamic fee, off-chain, using exact
// arbitrary-precision integer arithmetic. Like stableswap, every function
// is a pure, re-entrant function of its inputs.
package cryptoswap

import (
	"errors"
	"fmt"

	"github.com/luxfi/curvemath/fixedpoint"
)

// Sentinel errors, one per failure kind in the error taxonomy.
var (
	ErrInvalidA              = errors.New("cryptoswap: A is zero")
	ErrInvalidGamma          = errors.New("cryptoswap: gamma is zero")
	ErrZeroBalance           = errors.New("cryptoswap: zero balance in non-empty pool")
	ErrInsufficientLiquidity = errors.New("cryptoswap: D^2/PRECISION underflowed to zero")
	ErrNoConverge            = errors.New("cryptoswap: newton iteration did not converge")
	ErrInvalidIndex          = errors.New("cryptoswap: coin index out of range")
	ErrInvalidCoins          = errors.New("cryptoswap: coin count out of range")
)

// Pool is a point-in-time snapshot of a CryptoSwap (2-coin) or Tricrypto
// (3-coin) pool's on-chain state.
type Pool struct {
	// Balances holds raw token reserves, length 2 or 3.
	Balances []*fixedpoint.Uint
	// Precisions holds per-token multipliers, default [1,1,...] for
	// 18-decimal tokens. Same length as Balances.
	Precisions []*fixedpoint.Uint
	// PriceScales holds the internal peg scaling factors for every
	// non-numéraire coin (coin 0 is always the numéraire), length
	// len(Balances)-1.
	PriceScales []*fixedpoint.Uint

	// A and Gamma are the pool's curvature parameters; A is already in
	// "ANN" form (the value the Newton solvers consume directly), Gamma
	// in PRECISION units.
	A, Gamma *fixedpoint.Uint
	// D is the pool's last-cached invariant (callers may recompute it
	// with CalcD instead of trusting a stale snapshot value).
	D *fixedpoint.Uint

	// MidFee, OutFee, FeeGamma parameterize the K-based dynamic fee.
	MidFee, OutFee, FeeGamma *fixedpoint.Uint
}

// N returns the pool's coin count (2 or 3).
func (p *Pool) N() int { return len(p.Balances) }

func (p *Pool) validateCoins() error {
	n := p.N()
	if n != 2 && n != 3 {
		return fmt.Errorf("%w: got %d coins, want 2 or 3", ErrInvalidCoins, n)
	}
	if len(p.Precisions) != n {
		return fmt.Errorf("%w: precisions length %d != %d coins", ErrInvalidCoins, len(p.Precisions), n)
	}
	if len(p.PriceScales) != n-1 {
		return fmt.Errorf("%w: priceScales length %d != %d", ErrInvalidCoins, len(p.PriceScales), n-1)
	}
	return nil
}

// Scale rescales Balances into the common numéraire, per §4.3.1:
// xp[0] = balances[0]*precisions[0] (coin 0 never carries a price scale),
// xp[k] = balances[k]*precisions[k]*priceScales[k-1]/PRECISION for k>0.
func Scale(p *Pool) ([]*fixedpoint.Uint, error) {
	if err := p.validateCoins(); err != nil {
		return nil, err
	}
	n := p.N()
	xp := make([]*fixedpoint.Uint, n)
	base, err := fixedpoint.CheckedMul(p.Balances[0], p.Precisions[0])
	if err != nil {
		return nil, err
	}
	xp[0] = base
	for k := 1; k < n; k++ {
		scaled, err := fixedpoint.CheckedMul(p.Balances[k], p.Precisions[k])
		if err != nil {
			return nil, err
		}
		withPriceScale, err := fixedpoint.MulDiv(scaled, p.PriceScales[k-1], fixedpoint.Precision)
		if err != nil {
			return nil, err
		}
		xp[k] = withPriceScale
	}
	return xp, nil
}

func checkIndices(i, j, n int) error {
	if i < 0 || i >= n || j < 0 || j >= n {
		return fmt.Errorf("%w: i=%d j=%d n=%d", ErrInvalidIndex, i, j, n)
	}
	if i == j {
		return fmt.Errorf("%w: i == j == %d", ErrInvalidIndex, i)
	}
	return nil
}
