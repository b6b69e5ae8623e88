// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package analytics

import (
	"github.com/luxfi/curvemath/fixedpoint"
)

// GetSpotPrice estimates the instantaneous marginal exchange rate of coin i
// into coin j by pricing a probe trade of dx = max(1, DERIVATIVE_EPSILON /
// precisions[i]) and reporting dy*PRECISION/dx. Per §7, an invalid index
// returns 0 rather than an error.
func GetSpotPrice(q Quoter, i, j int) (*fixedpoint.Uint, error) {
	n := q.N()
	if i < 0 || i >= n || j < 0 || j >= n || i == j {
		return fixedpoint.Zero(), nil
	}
	precision := q.CoinPrecision(i)
	dx := fixedpoint.Zero()
	if !precision.IsZero() {
		dx = new(fixedpoint.Uint).Div(derivativeEpsilon, precision)
	}
	if dx.IsZero() {
		dx = fixedpoint.One()
	}
	dy, err := q.GetDy(i, j, dx)
	if err != nil {
		return nil, err
	}
	if dy.IsZero() {
		return fixedpoint.Zero(), nil
	}
	return fixedpoint.MulDiv(dy, fixedpoint.Precision, dx)
}

// GetEffectivePrice returns the realized exchange rate dy*PRECISION/dx for
// an actual trade size, the same ratio GetSpotPrice computes for a
// vanishingly small probe.
func GetEffectivePrice(q Quoter, i, j int, dx *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	n := q.N()
	if i < 0 || i >= n || j < 0 || j >= n || i == j || dx.IsZero() {
		return fixedpoint.Zero(), nil
	}
	dy, err := q.GetDy(i, j, dx)
	if err != nil {
		return nil, err
	}
	if dy.IsZero() {
		return fixedpoint.Zero(), nil
	}
	return fixedpoint.MulDiv(dy, fixedpoint.Precision, dx)
}

// GetPriceImpact returns (spot - effective) * BPS_DENOMINATOR / spot in
// basis points, clamped to 0 for peg-crossing or curve-favorable trades
// where the raw difference would go negative.
func GetPriceImpact(q Quoter, i, j int, dx *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	spot, err := GetSpotPrice(q, i, j)
	if err != nil {
		return nil, err
	}
	if spot.IsZero() {
		return fixedpoint.Zero(), nil
	}
	effective, err := GetEffectivePrice(q, i, j, dx)
	if err != nil {
		return nil, err
	}
	diff := fixedpoint.SatSub(spot, effective)
	if diff.IsZero() {
		return fixedpoint.Zero(), nil
	}
	return fixedpoint.MulDiv(diff, fixedpoint.BpsDenominator, spot)
}

// SwapQuote aggregates every derived quantity a router needs about one
// candidate trade into a single call.
type SwapQuote struct {
	AmountOut      *fixedpoint.Uint
	Fee            *fixedpoint.Uint
	PriceImpact    *fixedpoint.Uint
	EffectivePrice *fixedpoint.Uint
	SpotPrice      *fixedpoint.Uint
}

// QuoteSwap computes AmountOut via GetDy and folds in fee rate, spot price,
// effective price and price impact in one call.
func QuoteSwap(q Quoter, i, j int, dx *fixedpoint.Uint) (*SwapQuote, error) {
	amountOut, err := q.GetDy(i, j, dx)
	if err != nil {
		return nil, err
	}
	fee, err := q.FeeRate(i, j)
	if err != nil {
		return nil, err
	}
	spot, err := GetSpotPrice(q, i, j)
	if err != nil {
		return nil, err
	}
	effective, err := GetEffectivePrice(q, i, j, dx)
	if err != nil {
		return nil, err
	}
	impact, err := GetPriceImpact(q, i, j, dx)
	if err != nil {
		return nil, err
	}
	return &SwapQuote{
		AmountOut:      amountOut,
		Fee:            fee,
		PriceImpact:    impact,
		EffectivePrice: effective,
		SpotPrice:      spot,
	}, nil
}
