// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package analytics

import (
	"fmt"

	"github.com/luxfi/curvemath/fixedpoint"
)

// MinAmountOut returns amount*(10000-bps)/10000, the minimum acceptable
// output a caller should pass to a swap given a slippage tolerance of bps
// basis points.
func MinAmountOut(amount *fixedpoint.Uint, bps uint64) (*fixedpoint.Uint, error) {
	if bps > 10000 {
		return nil, fmt.Errorf("%w: bps=%d", ErrInvalidSlippage, bps)
	}
	factor := fixedpoint.FromUint64(10000 - bps)
	return fixedpoint.MulDiv(amount, factor, fixedpoint.BpsDenominator)
}

// MaxAmountIn returns amount*(10000+bps)/10000, the maximum acceptable
// input a caller should pass to a swap given a slippage tolerance of bps
// basis points.
func MaxAmountIn(amount *fixedpoint.Uint, bps uint64) (*fixedpoint.Uint, error) {
	if bps > 10000 {
		return nil, fmt.Errorf("%w: bps=%d", ErrInvalidSlippage, bps)
	}
	factor := fixedpoint.FromUint64(10000 + bps)
	return fixedpoint.MulDiv(amount, factor, fixedpoint.BpsDenominator)
}
