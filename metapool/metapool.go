// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metapool expresses a metapool swap through an underlying
// base-pool coin as the composition of one StableSwap swap on the
// metapool's own coins with one base-pool liquidity operation. It adds
// no new invariant solver: the metapool's own "coin" at index N()-1 is
// always the base pool's LP token, and trading into or out of one of the
// base pool's underlying coins is just a single-sided deposit or
// withdrawal on that LP-token leg.
package metapool

import (
	"github.com/luxfi/curvemath/analytics"
	"github.com/luxfi/curvemath/fixedpoint"
	"github.com/luxfi/curvemath/stableswap"
)

// SwapThroughBase quotes a trade between coin i and coin j of a metapool,
// where exactly one of i or j is the metapool's base-pool-LP slot
// (meta.N()-1) and baseCoinIndex names which of the base pool's
// underlying coins that leg actually represents. If neither i nor j is
// the LP slot, the trade never touches the base pool and this falls back
// to a plain metapool swap.
func SwapThroughBase(meta, base *stableswap.Pool, i, j int, dx *fixedpoint.Uint, baseCoinIndex int) (*fixedpoint.Uint, error) {
	lpSlot := meta.N() - 1
	baseAdapter := analytics.StableSwapPool{Pool: base}

	switch lpSlot {
	case i:
		// Underlying base coin -> metapool coin j: deposit dx of
		// baseCoinIndex into the base pool to mint its LP token, then
		// swap that LP amount through the metapool.
		amounts := make([]*fixedpoint.Uint, base.N())
		for k := range amounts {
			amounts[k] = fixedpoint.Zero()
		}
		if baseCoinIndex < 0 || baseCoinIndex >= base.N() {
			return nil, stableswap.ErrInvalidIndex
		}
		amounts[baseCoinIndex] = dx
		lpMinted, err := analytics.CalcTokenAmount(baseAdapter, amounts, base.TotalSupply)
		if err != nil {
			return nil, err
		}
		return stableswap.GetDyExact(meta, lpSlot, j, lpMinted)

	case j:
		// Metapool coin i -> underlying base coin: swap i for the
		// base-pool LP leg within the metapool, then withdraw that LP
		// amount as a single base-pool coin.
		lpOut, err := stableswap.GetDyExact(meta, i, lpSlot, dx)
		if err != nil {
			return nil, err
		}
		return analytics.CalcWithdrawOneCoin(baseAdapter, lpOut, baseCoinIndex, base.TotalSupply)

	default:
		// Neither leg touches the base pool: a plain metapool swap.
		return stableswap.GetDyExact(meta, i, j, dx)
	}
}
