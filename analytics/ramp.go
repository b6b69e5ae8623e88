// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package analytics

import (
	"fmt"

	"github.com/luxfi/curvemath/fixedpoint"
)

// GetAGammaAtTime piecewise-linearly interpolates the A/gamma ramp a pool
// runs between (a0,gamma0) at t0 and (a1,gamma1) at t1: it returns the
// start endpoint strictly before t0, the end endpoint at or after t1, and
// the linear blend in between. t1 must be strictly after t0.
func GetAGammaAtTime(a0, a1, gamma0, gamma1 *fixedpoint.Uint, t0, t1, tNow uint64) (*fixedpoint.Uint, *fixedpoint.Uint, error) {
	if t1 <= t0 {
		return nil, nil, fmt.Errorf("%w: t1=%d must be after t0=%d", ErrInvalidRamp, t1, t0)
	}
	if tNow < t0 {
		return new(fixedpoint.Uint).Set(a0), new(fixedpoint.Uint).Set(gamma0), nil
	}
	if tNow >= t1 {
		return new(fixedpoint.Uint).Set(a1), new(fixedpoint.Uint).Set(gamma1), nil
	}

	elapsed := fixedpoint.FromUint64(tNow - t0)
	span := fixedpoint.FromUint64(t1 - t0)

	a, err := interpolate(a0, a1, elapsed, span)
	if err != nil {
		return nil, nil, err
	}
	gamma, err := interpolate(gamma0, gamma1, elapsed, span)
	if err != nil {
		return nil, nil, err
	}
	return a, gamma, nil
}

// interpolate computes v0 + (v1-v0)*elapsed/span, handling either
// direction of the ramp (v1 may be below v0).
func interpolate(v0, v1 *fixedpoint.Uint, elapsed, span *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	if v1.Cmp(v0) >= 0 {
		delta := new(fixedpoint.Uint).Sub(v1, v0)
		step, err := fixedpoint.MulDiv(delta, elapsed, span)
		if err != nil {
			return nil, err
		}
		return fixedpoint.CheckedAdd(v0, step)
	}
	delta := new(fixedpoint.Uint).Sub(v0, v1)
	step, err := fixedpoint.MulDiv(delta, elapsed, span)
	if err != nil {
		return nil, err
	}
	return fixedpoint.CheckedSub(v0, step)
}
