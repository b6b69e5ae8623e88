// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package analytics

import (
	"testing"

	"github.com/luxfi/curvemath/fixedpoint"
	"github.com/luxfi/curvemath/stableswap"
)

func daiUsdcPool() *stableswap.Pool {
	rates, _ := stableswap.RatesFromDecimals([]uint8{18, 6})
	return &stableswap.Pool{
		Balances: []*fixedpoint.Uint{
			fixedpoint.MustFromDecimal("1000000000000000000000000"),
			fixedpoint.MustFromDecimal("1000000000000"),
		},
		Rates:               rates,
		A:                   fixedpoint.FromUint64(100),
		Fee:                 fixedpoint.FromUint64(4_000_000),
		OffpegFeeMultiplier: fixedpoint.Zero(),
		TotalSupply:         fixedpoint.MustFromDecimal("2000000000000000000000000"),
	}
}

// =========================================================================
// Liquidity
// =========================================================================

func TestCalcTokenAmount_FirstDepositMintsD1(t *testing.T) {
	pool := daiUsdcPool()
	adapter := StableSwapPool{Pool: pool}
	amounts := []*fixedpoint.Uint{fixedpoint.MustFromDecimal("1000000000000000000000"), fixedpoint.MustFromDecimal("1000000000")}

	minted, err := CalcTokenAmount(adapter, amounts, fixedpoint.Zero())
	if err != nil {
		t.Fatalf("CalcTokenAmount: %v", err)
	}
	if minted.Sign() <= 0 {
		t.Fatalf("expected minted > 0, got %s", minted.String())
	}
	// Both coins end at 1,001,000 in normalized units; a balanced pool's D
	// is exactly sum(xp), so D1 = 2,002,000 * 10^18.
	d1 := fixedpoint.MustFromDecimal("2002000000000000000000000")
	if minted.Cmp(d1) != 0 {
		t.Errorf("expected first deposit to mint D1=%s, got %s", d1.String(), minted.String())
	}
}

func TestCalcTokenAmount_SubsequentDepositScalesWithSupply(t *testing.T) {
	pool := daiUsdcPool()
	adapter := StableSwapPool{Pool: pool}
	amounts := []*fixedpoint.Uint{fixedpoint.MustFromDecimal("1000000000000000000000"), fixedpoint.MustFromDecimal("1000000000")}

	minted, err := CalcTokenAmount(adapter, amounts, pool.TotalSupply)
	if err != nil {
		t.Fatalf("CalcTokenAmount: %v", err)
	}
	if minted.Sign() <= 0 {
		t.Fatalf("expected minted > 0, got %s", minted.String())
	}
	// A 0.1% deposit into a balanced 2M-supply pool should mint roughly
	// 0.1% of supply, give or take curve/fee effects.
	upper := new(fixedpoint.Uint).Div(pool.TotalSupply, fixedpoint.FromUint64(500))
	if minted.Cmp(upper) > 0 {
		t.Errorf("minted=%s implausibly large relative to upper=%s", minted.String(), upper.String())
	}
}

func TestCalcWithdrawOneCoin_FullWithdrawalReturnsBalance(t *testing.T) {
	pool := daiUsdcPool()
	adapter := StableSwapPool{Pool: pool}

	amount, err := CalcWithdrawOneCoin(adapter, pool.TotalSupply, 0, pool.TotalSupply)
	if err != nil {
		t.Fatalf("CalcWithdrawOneCoin: %v", err)
	}
	if amount.Cmp(pool.Balances[0]) != 0 {
		t.Errorf("expected full withdrawal to equal balances[0]=%s, got %s", pool.Balances[0].String(), amount.String())
	}
}

func TestCalcWithdrawOneCoin_PartialWithdrawalBelowBalance(t *testing.T) {
	pool := daiUsdcPool()
	adapter := StableSwapPool{Pool: pool}
	lp := new(fixedpoint.Uint).Div(pool.TotalSupply, fixedpoint.FromUint64(10))

	amount, err := CalcWithdrawOneCoin(adapter, lp, 0, pool.TotalSupply)
	if err != nil {
		t.Fatalf("CalcWithdrawOneCoin: %v", err)
	}
	if amount.Sign() <= 0 {
		t.Fatalf("expected amount > 0, got %s", amount.String())
	}
	if amount.Cmp(pool.Balances[0]) >= 0 {
		t.Errorf("expected partial withdrawal to stay below full balance=%s, got %s", pool.Balances[0].String(), amount.String())
	}
}

func TestCalcWithdrawOneCoin_ZeroSupplyFails(t *testing.T) {
	pool := daiUsdcPool()
	adapter := StableSwapPool{Pool: pool}
	_, err := CalcWithdrawOneCoin(adapter, fixedpoint.Zero(), 0, fixedpoint.Zero())
	if err == nil {
		t.Fatal("expected ErrSupplyZero, got nil")
	}
}

func TestCalcRemoveLiquidity_ExactlyProportional(t *testing.T) {
	pool := daiUsdcPool()
	adapter := StableSwapPool{Pool: pool}
	lp := new(fixedpoint.Uint).Div(pool.TotalSupply, fixedpoint.FromUint64(4))

	out, err := CalcRemoveLiquidity(adapter, lp, pool.TotalSupply)
	if err != nil {
		t.Fatalf("CalcRemoveLiquidity: %v", err)
	}
	for k, b := range pool.Balances {
		expected, _ := fixedpoint.MulDiv(b, lp, pool.TotalSupply)
		if out[k].Cmp(expected) != 0 {
			t.Errorf("coin %d: expected %s, got %s", k, expected.String(), out[k].String())
		}
	}
}

func TestGetVirtualPrice_EmptyPoolReturnsPrecision(t *testing.T) {
	pool := daiUsdcPool()
	adapter := StableSwapPool{Pool: pool}
	vp, err := GetVirtualPrice(adapter, fixedpoint.Zero())
	if err != nil {
		t.Fatalf("GetVirtualPrice: %v", err)
	}
	if vp.Cmp(fixedpoint.Precision) != 0 {
		t.Errorf("expected PRECISION for empty pool, got %s", vp.String())
	}
}

func TestGetVirtualPrice_HealthyPoolAtOrAbovePrecision(t *testing.T) {
	pool := daiUsdcPool()
	adapter := StableSwapPool{Pool: pool}
	vp, err := GetVirtualPrice(adapter, pool.TotalSupply)
	if err != nil {
		t.Fatalf("GetVirtualPrice: %v", err)
	}
	floor := fixedpoint.SatSub(fixedpoint.Precision, fixedpoint.FromUint64(2))
	if vp.Cmp(floor) < 0 {
		t.Errorf("expected virtual price >= PRECISION (within O(1) rounding), got %s", vp.String())
	}
}

// =========================================================================
// Quote helpers
// =========================================================================

func TestGetSpotPrice_BalancedPoolNearParity(t *testing.T) {
	pool := daiUsdcPool()
	adapter := StableSwapPool{Pool: pool}
	price, err := GetSpotPrice(adapter, 0, 1)
	if err != nil {
		t.Fatalf("GetSpotPrice: %v", err)
	}
	if price.Sign() <= 0 {
		t.Fatalf("expected price > 0, got %s", price.String())
	}
	// The price is dy*PRECISION/dx in native units, so 1 DAI (18 decimals)
	// ~ 1 USDC (6 decimals) prices near PRECISION/10^12 = 10^6, within 1%
	// for fee/curve drift.
	parity := new(fixedpoint.Uint).Div(fixedpoint.Precision, fixedpoint.FromUint64(1_000_000_000_000))
	diff := fixedpoint.AbsDiff(price, parity)
	tolerance := new(fixedpoint.Uint).Div(parity, fixedpoint.FromUint64(100))
	if diff.Cmp(tolerance) > 0 {
		t.Errorf("expected spot price near %s, got %s (diff %s)", parity.String(), price.String(), diff.String())
	}
}

func TestGetPriceImpact_LargerTradeHigherImpact(t *testing.T) {
	pool := daiUsdcPool()
	adapter := StableSwapPool{Pool: pool}

	small := fixedpoint.MustFromDecimal("1000000000000000000000") // 1000 DAI
	large := fixedpoint.MustFromDecimal("400000000000000000000000") // 400,000 DAI

	smallImpact, err := GetPriceImpact(adapter, 0, 1, small)
	if err != nil {
		t.Fatalf("GetPriceImpact (small): %v", err)
	}
	largeImpact, err := GetPriceImpact(adapter, 0, 1, large)
	if err != nil {
		t.Fatalf("GetPriceImpact (large): %v", err)
	}
	if largeImpact.Cmp(smallImpact) < 0 {
		t.Errorf("expected larger trade to have >= price impact: small=%s large=%s", smallImpact.String(), largeImpact.String())
	}
}

func TestQuoteSwap_AggregatesFields(t *testing.T) {
	pool := daiUsdcPool()
	adapter := StableSwapPool{Pool: pool}
	dx := fixedpoint.MustFromDecimal("1000000000000000000000")

	quote, err := QuoteSwap(adapter, 0, 1, dx)
	if err != nil {
		t.Fatalf("QuoteSwap: %v", err)
	}
	if quote.AmountOut.Sign() <= 0 {
		t.Errorf("expected AmountOut > 0, got %s", quote.AmountOut.String())
	}
	if quote.Fee.Sign() <= 0 {
		t.Errorf("expected Fee > 0, got %s", quote.Fee.String())
	}
	if quote.SpotPrice.Sign() <= 0 {
		t.Errorf("expected SpotPrice > 0, got %s", quote.SpotPrice.String())
	}
	if quote.EffectivePrice.Sign() <= 0 {
		t.Errorf("expected EffectivePrice > 0, got %s", quote.EffectivePrice.String())
	}
}

// =========================================================================
// Ramp interpolation (spec §8 scenario 5)
// =========================================================================

func TestGetAGammaAtTime_HalfwayInterpolation(t *testing.T) {
	a, gamma, err := GetAGammaAtTime(
		fixedpoint.FromUint64(100), fixedpoint.FromUint64(200),
		fixedpoint.FromUint64(1000), fixedpoint.FromUint64(2000),
		1000, 2000, 1500,
	)
	if err != nil {
		t.Fatalf("GetAGammaAtTime: %v", err)
	}
	if a.Cmp(fixedpoint.FromUint64(150)) != 0 {
		t.Errorf("expected A=150, got %s", a.String())
	}
	if gamma.Cmp(fixedpoint.FromUint64(1500)) != 0 {
		t.Errorf("expected gamma=1500, got %s", gamma.String())
	}
}

func TestGetAGammaAtTime_BeforeStartReturnsA0(t *testing.T) {
	a, gamma, err := GetAGammaAtTime(
		fixedpoint.FromUint64(100), fixedpoint.FromUint64(200),
		fixedpoint.FromUint64(1000), fixedpoint.FromUint64(2000),
		1000, 2000, 500,
	)
	if err != nil {
		t.Fatalf("GetAGammaAtTime: %v", err)
	}
	if a.Cmp(fixedpoint.FromUint64(100)) != 0 || gamma.Cmp(fixedpoint.FromUint64(1000)) != 0 {
		t.Errorf("expected (A0,gamma0) before t0, got (%s,%s)", a.String(), gamma.String())
	}
}

func TestGetAGammaAtTime_AfterEndReturnsA1(t *testing.T) {
	a, gamma, err := GetAGammaAtTime(
		fixedpoint.FromUint64(100), fixedpoint.FromUint64(200),
		fixedpoint.FromUint64(1000), fixedpoint.FromUint64(2000),
		1000, 2000, 5000,
	)
	if err != nil {
		t.Fatalf("GetAGammaAtTime: %v", err)
	}
	if a.Cmp(fixedpoint.FromUint64(200)) != 0 || gamma.Cmp(fixedpoint.FromUint64(2000)) != 0 {
		t.Errorf("expected (A1,gamma1) at/after t1, got (%s,%s)", a.String(), gamma.String())
	}
}

func TestGetAGammaAtTime_InvalidRampFails(t *testing.T) {
	_, _, err := GetAGammaAtTime(
		fixedpoint.FromUint64(100), fixedpoint.FromUint64(200),
		fixedpoint.FromUint64(1000), fixedpoint.FromUint64(2000),
		2000, 1000, 1500,
	)
	if err == nil {
		t.Fatal("expected ErrInvalidRamp, got nil")
	}
}

// =========================================================================
// Slippage helpers (spec §8 scenario 6)
// =========================================================================

func TestMinAmountOut_HundredBps(t *testing.T) {
	out, err := MinAmountOut(fixedpoint.MustFromDecimal("1000000000000000000000"), 100)
	if err != nil {
		t.Fatalf("MinAmountOut: %v", err)
	}
	expected := fixedpoint.MustFromDecimal("990000000000000000000")
	if out.Cmp(expected) != 0 {
		t.Errorf("expected %s, got %s", expected.String(), out.String())
	}
}

func TestMaxAmountIn_HundredBps(t *testing.T) {
	in, err := MaxAmountIn(fixedpoint.MustFromDecimal("1000000000000000000000"), 100)
	if err != nil {
		t.Fatalf("MaxAmountIn: %v", err)
	}
	expected := fixedpoint.MustFromDecimal("1010000000000000000000")
	if in.Cmp(expected) != 0 {
		t.Errorf("expected %s, got %s", expected.String(), in.String())
	}
}

func TestMinAmountOut_InvalidBpsFails(t *testing.T) {
	_, err := MinAmountOut(fixedpoint.FromUint64(1000), 10001)
	if err == nil {
		t.Fatal("expected ErrInvalidSlippage, got nil")
	}
}
