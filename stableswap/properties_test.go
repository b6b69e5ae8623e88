// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stableswap

import (
	"testing"

	"github.com/luxfi/curvemath/fixedpoint"
	"pgregory.net/rapid"
)

// TestProperty_GetDyNonNegativeAndBoundedByBalance checks the
// non-negativity and upper-bound universal properties from spec §8:
// getDy(i,j,dx) >= 0 and getDy(i,j,dx) <= balances[j].
func TestProperty_GetDyNonNegativeAndBoundedByBalance(t *testing.T) {
	pool := daiUsdcPool()
	rapid.Check(t, func(t *rapid.T) {
		dxRaw := rapid.Uint64Range(1, 500_000).Draw(t, "dxDAI")
		dx := new(fixedpoint.Uint).Mul(fixedpoint.FromUint64(dxRaw), fixedpoint.Precision)

		dy, err := GetDyExact(pool, 0, 1, dx)
		if err != nil {
			t.Fatalf("GetDyExact: %v", err)
		}
		if dy.Sign() < 0 {
			t.Fatalf("dy is negative: %s", dy.String())
		}
		if dy.Cmp(pool.Balances[1]) > 0 {
			t.Fatalf("dy=%s exceeds balances[1]=%s", dy.String(), pool.Balances[1].String())
		}
	})
}

// TestProperty_GetDyMonotonic checks monotonicity: dx1 < dx2 implies
// getDy(i,j,dx1) <= getDy(i,j,dx2).
func TestProperty_GetDyMonotonic(t *testing.T) {
	pool := daiUsdcPool()
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Uint64Range(1, 400_000).Draw(t, "dx1DAI")
		delta := rapid.Uint64Range(1, 400_000).Draw(t, "deltaDAI")
		b := a + delta

		dx1 := new(fixedpoint.Uint).Mul(fixedpoint.FromUint64(a), fixedpoint.Precision)
		dx2 := new(fixedpoint.Uint).Mul(fixedpoint.FromUint64(b), fixedpoint.Precision)

		dy1, err := GetDyExact(pool, 0, 1, dx1)
		if err != nil {
			t.Fatalf("GetDyExact(dx1): %v", err)
		}
		dy2, err := GetDyExact(pool, 0, 1, dx2)
		if err != nil {
			t.Fatalf("GetDyExact(dx2): %v", err)
		}
		if dy1.Cmp(dy2) > 0 {
			t.Fatalf("monotonicity violated: dx1=%s dy1=%s > dx2=%s dy2=%s", dx1.String(), dy1.String(), dx2.String(), dy2.String())
		}
	})
}

// TestProperty_GetDxRoundtripsWithGetDy checks the roundtrip property:
// for dy = getDy(i,j,dx), |getDx(i,j,dy) - dx| <= max(1, dx/50).
func TestProperty_GetDxRoundtripsWithGetDy(t *testing.T) {
	pool := daiUsdcPool()
	rapid.Check(t, func(t *rapid.T) {
		dxRaw := rapid.Uint64Range(10, 200_000).Draw(t, "dxDAI")
		dx := new(fixedpoint.Uint).Mul(fixedpoint.FromUint64(dxRaw), fixedpoint.Precision)

		dy, err := GetDyExact(pool, 0, 1, dx)
		if err != nil {
			t.Fatalf("GetDyExact: %v", err)
		}
		if dy.IsZero() {
			return
		}
		recovered, err := GetDxExact(pool, 0, 1, dy)
		if err != nil {
			t.Fatalf("GetDxExact: %v", err)
		}
		diff := fixedpoint.AbsDiff(recovered, dx)
		tolerance := new(fixedpoint.Uint).Div(dx, fixedpoint.FromUint64(50))
		if tolerance.Sign() == 0 {
			tolerance = fixedpoint.One()
		}
		if diff.Cmp(tolerance) > 0 {
			t.Fatalf("roundtrip drift too large: dx=%s recovered=%s diff=%s tolerance=%s", dx.String(), recovered.String(), diff.String(), tolerance.String())
		}
	})
}

// TestProperty_DBoundedBySumAndDoublesWithBalances checks the D-bounds
// universal property: D <= sum(xp), D > 0, and doubling every balance
// roughly doubles D.
func TestProperty_DBoundedBySumAndDoublesWithBalances(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b0 := rapid.Uint64Range(1_000, 10_000_000).Draw(t, "b0")
		b1 := rapid.Uint64Range(1_000, 10_000_000).Draw(t, "b1")
		a := rapid.Uint64Range(10, 5_000).Draw(t, "A")

		xp := []*fixedpoint.Uint{
			new(fixedpoint.Uint).Mul(fixedpoint.FromUint64(b0), fixedpoint.Precision),
			new(fixedpoint.Uint).Mul(fixedpoint.FromUint64(b1), fixedpoint.Precision),
		}
		ann, err := computeAnn(fixedpoint.FromUint64(a))
		if err != nil {
			t.Fatalf("computeAnn: %v", err)
		}
		d, err := GetD(xp, ann)
		if err != nil {
			t.Fatalf("GetD: %v", err)
		}
		if d.Sign() <= 0 {
			t.Fatalf("expected D > 0, got %s", d.String())
		}
		sum, _ := fixedpoint.Sum(xp)
		if d.Cmp(sum) > 0 {
			t.Fatalf("expected D <= sum=%s, got %s", sum.String(), d.String())
		}

		doubled := []*fixedpoint.Uint{
			new(fixedpoint.Uint).Mul(xp[0], fixedpoint.FromUint64(2)),
			new(fixedpoint.Uint).Mul(xp[1], fixedpoint.FromUint64(2)),
		}
		d2, err := GetD(doubled, ann)
		if err != nil {
			t.Fatalf("GetD(doubled): %v", err)
		}
		lower := new(fixedpoint.Uint).Mul(d, fixedpoint.FromUint64(19))
		lower.Div(lower, fixedpoint.FromUint64(10))
		upper := new(fixedpoint.Uint).Mul(d, fixedpoint.FromUint64(21))
		upper.Div(upper, fixedpoint.FromUint64(10))
		if d2.Cmp(lower) < 0 || d2.Cmp(upper) > 0 {
			t.Fatalf("expected D(doubled)~2*D: D=%s D2=%s", d.String(), d2.String())
		}
	})
}

// computeAnn mirrors Pool.Ann()'s A*APrecision*N scaling for a bare A
// value, since these tests build xp directly rather than through a Pool.
func computeAnn(a *fixedpoint.Uint) (*fixedpoint.Uint, error) {
	n := fixedpoint.FromUint64(2)
	aTimesPrecision, err := fixedpoint.CheckedMul(a, fixedpoint.APrecision)
	if err != nil {
		return nil, err
	}
	return fixedpoint.CheckedMul(aTimesPrecision, n)
}
