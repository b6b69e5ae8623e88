// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package analytics composes the StableSwap and CryptoSwap kernels into
// the derived quantities pools and routers actually care about: deposit
// and withdrawal sizing, virtual price, spot/effective price, price
// impact, parameter ramps, and slippage bounds. Everything here is written
// once against two small adapter interfaces and specialized per pool
// family by a thin wrapper, rather than duplicated per family.
package analytics

import (
	"errors"
	"fmt"

	"github.com/luxfi/curvemath/cryptoswap"
	"github.com/luxfi/curvemath/fixedpoint"
	"github.com/luxfi/curvemath/stableswap"
)

var (
	ErrSupplyZero      = errors.New("analytics: total supply is zero but the pool holds liquidity")
	ErrInvalidRamp     = errors.New("analytics: ramp end time must be after start time")
	ErrInvalidSlippage = errors.New("analytics: slippage bps must be in [0, 10000]")
	ErrInvalidIndex    = errors.New("analytics: coin index out of range")
)

// derivativeEpsilon bounds the probe trade size GetSpotPrice uses to take a
// numerical derivative of the swap curve: small enough to approximate the
// instantaneous rate, large enough not to vanish to 0 after per-coin
// precision scaling.
var derivativeEpsilon = fixedpoint.FromUint64(1_000_000_000_000_000_000) // 1e18

// LiquidityPool is the surface CalcTokenAmount, CalcWithdrawOneCoin,
// CalcRemoveLiquidity, GetVirtualPrice and LpPrice need from either pool
// family's invariant solver.
type LiquidityPool interface {
	N() int
	NativeBalances() []*fixedpoint.Uint
	NormalizedBalances() ([]*fixedpoint.Uint, error)
	ScaleAmount(i int, amount *fixedpoint.Uint) (*fixedpoint.Uint, error)
	UnscaleAmount(i int, amount *fixedpoint.Uint) (*fixedpoint.Uint, error)
	ComputeD(xp []*fixedpoint.Uint) (*fixedpoint.Uint, error)
	SolveYForD(i int, xp []*fixedpoint.Uint, d *fixedpoint.Uint) (*fixedpoint.Uint, error)
	SwapFee() *fixedpoint.Uint
}

// Quoter is the surface GetSpotPrice, GetEffectivePrice, GetPriceImpact and
// QuoteSwap need: just the ability to price a swap and report a coin's
// native-unit granularity.
type Quoter interface {
	N() int
	GetDy(i, j int, dx *fixedpoint.Uint) (*fixedpoint.Uint, error)
	CoinPrecision(i int) *fixedpoint.Uint
	// FeeRate reports the fee rate (FEE_DENOMINATOR units) a swap from i to
	// j would currently be charged, evaluated at the pool's pre-trade
	// balances. QuoteSwap surfaces this alongside the post-fee AmountOut;
	// it is necessarily an approximation of the rate a real swap would see
	// since the dynamic fee in both kernels is a function of the
	// pre/post-swap average, not the pre-trade balance alone.
	FeeRate(i, j int) (*fixedpoint.Uint, error)
}

// StableSwapPool adapts a *stableswap.Pool to LiquidityPool and Quoter.
type StableSwapPool struct {
	Pool *stableswap.Pool
}

func (a StableSwapPool) N() int { return a.Pool.N() }

func (a StableSwapPool) NativeBalances() []*fixedpoint.Uint { return a.Pool.Balances }

func (a StableSwapPool) NormalizedBalances() ([]*fixedpoint.Uint, error) {
	return stableswap.NormalizedBalances(a.Pool)
}

func (a StableSwapPool) ScaleAmount(i int, amount *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	if i < 0 || i >= a.Pool.N() {
		return nil, ErrInvalidIndex
	}
	if len(a.Pool.Rates) == a.Pool.N() {
		return fixedpoint.MulDiv(a.Pool.Rates[i], amount, fixedpoint.Precision)
	}
	return fixedpoint.CheckedMul(amount, a.Pool.Precisions[i])
}

func (a StableSwapPool) UnscaleAmount(i int, amount *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	if i < 0 || i >= a.Pool.N() {
		return nil, ErrInvalidIndex
	}
	if len(a.Pool.Rates) == a.Pool.N() {
		return fixedpoint.MulDiv(amount, fixedpoint.Precision, a.Pool.Rates[i])
	}
	return new(fixedpoint.Uint).Div(amount, a.Pool.Precisions[i]), nil
}

func (a StableSwapPool) ComputeD(xp []*fixedpoint.Uint) (*fixedpoint.Uint, error) {
	ann, err := a.Pool.Ann()
	if err != nil {
		return nil, err
	}
	return stableswap.GetD(xp, ann)
}

func (a StableSwapPool) SolveYForD(i int, xp []*fixedpoint.Uint, d *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	ann, err := a.Pool.Ann()
	if err != nil {
		return nil, err
	}
	return stableswap.GetYD(i, xp, ann, d)
}

func (a StableSwapPool) SwapFee() *fixedpoint.Uint { return a.Pool.Fee }

func (a StableSwapPool) GetDy(i, j int, dx *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	return stableswap.GetDyExact(a.Pool, i, j, dx)
}

func (a StableSwapPool) CoinPrecision(i int) *fixedpoint.Uint {
	if i < 0 || i >= a.Pool.N() {
		return fixedpoint.One()
	}
	if len(a.Pool.Precisions) == a.Pool.N() {
		return a.Pool.Precisions[i]
	}
	if len(a.Pool.Rates) == a.Pool.N() {
		return new(fixedpoint.Uint).Div(a.Pool.Rates[i], fixedpoint.Precision)
	}
	return fixedpoint.One()
}

func (a StableSwapPool) FeeRate(i, j int) (*fixedpoint.Uint, error) {
	if err := checkPair(i, j, a.Pool.N()); err != nil {
		return nil, err
	}
	xp, err := stableswap.NormalizedBalances(a.Pool)
	if err != nil {
		return nil, err
	}
	return stableswap.DynamicFee(xp[i], xp[j], a.Pool.Fee, a.Pool.OffpegFeeMultiplier)
}

// CryptoSwapPool adapts a *cryptoswap.Pool to LiquidityPool and Quoter.
// NewtonY (2-coin) or NewtonY3 (3-coin) is picked per-call based on the
// pool's coin count.
type CryptoSwapPool struct {
	Pool *cryptoswap.Pool
}

func (a CryptoSwapPool) N() int { return a.Pool.N() }

func (a CryptoSwapPool) NativeBalances() []*fixedpoint.Uint { return a.Pool.Balances }

func (a CryptoSwapPool) NormalizedBalances() ([]*fixedpoint.Uint, error) {
	return cryptoswap.Scale(a.Pool)
}

func (a CryptoSwapPool) ScaleAmount(i int, amount *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	if i < 0 || i >= a.Pool.N() {
		return nil, ErrInvalidIndex
	}
	return cryptoswap.ScaleAmount(a.Pool, i, amount)
}

func (a CryptoSwapPool) UnscaleAmount(i int, amount *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	if i < 0 || i >= a.Pool.N() {
		return nil, ErrInvalidIndex
	}
	return cryptoswap.UnscaleAmount(a.Pool, i, amount)
}

func (a CryptoSwapPool) ComputeD(xp []*fixedpoint.Uint) (*fixedpoint.Uint, error) {
	return cryptoswap.CalcD(a.Pool.A, a.Pool.Gamma, xp)
}

func (a CryptoSwapPool) SolveYForD(i int, xp []*fixedpoint.Uint, d *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	if a.Pool.N() == 2 {
		return cryptoswap.NewtonY(a.Pool.A, a.Pool.Gamma, xp, d, i)
	}
	return cryptoswap.NewtonY3(a.Pool.A, a.Pool.Gamma, xp, d, i)
}

func (a CryptoSwapPool) SwapFee() *fixedpoint.Uint { return a.Pool.MidFee }

func (a CryptoSwapPool) GetDy(i, j int, dx *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	if a.Pool.N() == 2 {
		return cryptoswap.GetDy(a.Pool, i, j, dx)
	}
	return cryptoswap.GetDy3(a.Pool, i, j, dx)
}

func (a CryptoSwapPool) CoinPrecision(i int) *fixedpoint.Uint {
	if i < 0 || i >= a.Pool.N() {
		return fixedpoint.One()
	}
	return a.Pool.Precisions[i]
}

func (a CryptoSwapPool) FeeRate(i, j int) (*fixedpoint.Uint, error) {
	if err := checkPair(i, j, a.Pool.N()); err != nil {
		return nil, err
	}
	xp, err := cryptoswap.Scale(a.Pool)
	if err != nil {
		return nil, err
	}
	return cryptoswap.DynamicFee(xp, a.Pool.MidFee, a.Pool.OutFee, a.Pool.FeeGamma)
}

func checkPair(i, j, n int) error {
	if i < 0 || i >= n || j < 0 || j >= n || i == j {
		return fmt.Errorf("%w: i=%d j=%d n=%d", ErrInvalidIndex, i, j, n)
	}
	return nil
}
