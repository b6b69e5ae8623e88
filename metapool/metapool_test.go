// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metapool

import (
	"testing"

	"github.com/luxfi/curvemath/fixedpoint"
	"github.com/luxfi/curvemath/stableswap"
)

// threePool models a DAI/USDC/USDT base pool, mirroring Curve's 3pool.
func threePool() *stableswap.Pool {
	rates, _ := stableswap.RatesFromDecimals([]uint8{18, 6, 6})
	return &stableswap.Pool{
		Balances: []*fixedpoint.Uint{
			fixedpoint.MustFromDecimal("10000000000000000000000000"), // 10M DAI
			fixedpoint.MustFromDecimal("10000000000000"),              // 10M USDC
			fixedpoint.MustFromDecimal("10000000000000"),              // 10M USDT
		},
		Rates:               rates,
		A:                   fixedpoint.FromUint64(200),
		Fee:                 fixedpoint.FromUint64(1_000_000),
		OffpegFeeMultiplier: fixedpoint.Zero(),
		TotalSupply:         fixedpoint.MustFromDecimal("30000000000000000000000000"),
	}
}

// metaCrvPool models a METATOKEN/3CRV metapool: coin 0 is the metapool's
// own token (18 decimals), coin 1 is the base pool's LP token (18
// decimals, "exact mode" rate of PRECISION*PRECISION/10^18).
func metaCrvPool() *stableswap.Pool {
	rates, _ := stableswap.RatesFromDecimals([]uint8{18, 18})
	return &stableswap.Pool{
		Balances: []*fixedpoint.Uint{
			fixedpoint.MustFromDecimal("1000000000000000000000000"),
			fixedpoint.MustFromDecimal("1000000000000000000000000"),
		},
		Rates:               rates,
		A:                   fixedpoint.FromUint64(100),
		Fee:                 fixedpoint.FromUint64(4_000_000),
		OffpegFeeMultiplier: fixedpoint.Zero(),
		TotalSupply:         fixedpoint.MustFromDecimal("2000000000000000000000000"),
	}
}

func TestSwapThroughBase_MetaCoinToUnderlying(t *testing.T) {
	meta := metaCrvPool()
	base := threePool()
	dx := fixedpoint.MustFromDecimal("1000000000000000000000") // 1000 meta tokens

	out, err := SwapThroughBase(meta, base, 0, 1, dx, 1) // -> USDC (base coin index 1)
	if err != nil {
		t.Fatalf("SwapThroughBase: %v", err)
	}
	if out.Sign() <= 0 {
		t.Fatalf("expected out > 0, got %s", out.String())
	}
	// USDC has 6 decimals; 1000 metatokens in should yield an amount in
	// the thousands of USDC units (6-decimal), not an 18-decimal-sized
	// number.
	upper := fixedpoint.MustFromDecimal("2000000000")
	if out.Cmp(upper) > 0 {
		t.Errorf("expected a 6-decimal-scale USDC amount, got %s", out.String())
	}
}

func TestSwapThroughBase_UnderlyingToMetaCoin(t *testing.T) {
	meta := metaCrvPool()
	base := threePool()
	dx := fixedpoint.MustFromDecimal("1000000000") // 1000 USDC (6 decimals)

	out, err := SwapThroughBase(meta, base, 1, 0, dx, 1) // USDC -> meta coin 0
	if err != nil {
		t.Fatalf("SwapThroughBase: %v", err)
	}
	if out.Sign() <= 0 {
		t.Fatalf("expected out > 0, got %s", out.String())
	}
}

// threeCoinMetaPool has a third top-level coin alongside the base-pool LP
// slot, so a swap between its first two coins never touches the base
// pool at all.
func threeCoinMetaPool() *stableswap.Pool {
	rates, _ := stableswap.RatesFromDecimals([]uint8{18, 18, 18})
	return &stableswap.Pool{
		Balances: []*fixedpoint.Uint{
			fixedpoint.MustFromDecimal("1000000000000000000000000"),
			fixedpoint.MustFromDecimal("1000000000000000000000000"),
			fixedpoint.MustFromDecimal("1000000000000000000000000"),
		},
		Rates:               rates,
		A:                   fixedpoint.FromUint64(100),
		Fee:                 fixedpoint.FromUint64(4_000_000),
		OffpegFeeMultiplier: fixedpoint.Zero(),
		TotalSupply:         fixedpoint.MustFromDecimal("3000000000000000000000000"),
	}
}

func TestSwapThroughBase_PlainMetaSwapFallsBackDirectly(t *testing.T) {
	meta := threeCoinMetaPool() // lpSlot = 2
	base := threePool()
	dx := fixedpoint.MustFromDecimal("1000000000000000000000")

	viaCompose, err := SwapThroughBase(meta, base, 0, 1, dx, 1)
	if err != nil {
		t.Fatalf("SwapThroughBase: %v", err)
	}
	direct, err := stableswap.GetDyExact(meta, 0, 1, dx)
	if err != nil {
		t.Fatalf("GetDyExact: %v", err)
	}
	if viaCompose.Cmp(direct) != 0 {
		t.Errorf("expected fallback to equal a direct metapool swap: compose=%s direct=%s", viaCompose.String(), direct.String())
	}
}
