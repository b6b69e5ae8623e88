// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fixedpoint provides the unsigned, arbitrary-precision arithmetic
// primitives the Curve StableSwap and CryptoSwap kernels are built from.
// Every value is a 256-bit unsigned integer (github.com/holiman/uint256),
// matching the word width of the EVM contracts this library reproduces.
// Chained multiply-then-divide expressions route through MulDiv, which
// forms the full 512-bit product before dividing, so a single large
// intermediate never has to be rejected as an overflow just because the
// naive Mul-then-Div order would have clipped it.
//
// All division here truncates toward zero, matching EVM integer division.
// There is no floating point anywhere in this package or its callers.
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Uint is the arbitrary-precision unsigned integer used throughout the
// core. It is a direct alias for uint256.Int so callers never need to
// import holiman/uint256 themselves.
type Uint = uint256.Int

var (
	// ErrDivByZero is returned by any division helper when the divisor is zero.
	ErrDivByZero = errors.New("fixedpoint: division by zero")
	// ErrOverflow is returned when a result does not fit in 256 bits.
	ErrOverflow = errors.New("fixedpoint: result overflows 256 bits")
)

// Named constants shared by the StableSwap and CryptoSwap kernels.
var (
	// Precision is the base of the internal fixed-point representation, 10^18.
	Precision = uint256.NewInt(1_000_000_000_000_000_000)
	// APrecision is the denominator amplification coefficients are expressed in, 100.
	APrecision = uint256.NewInt(100)
	// AMultiplier is the denominator CryptoSwap's A parameter is expressed in, 10000.
	AMultiplier = uint256.NewInt(10000)
	// FeeDenominator is the unit every fee parameter is expressed in, 10^10.
	FeeDenominator = uint256.NewInt(10_000_000_000)
	// BpsDenominator: one basis point is 1/10000 of this.
	BpsDenominator = uint256.NewInt(10000)
	// ConvergenceThreshold is CryptoSwap's relative-tolerance convergence divisor, 10^14.
	ConvergenceThreshold = uint256.NewInt(100_000_000_000_000)
	// MinConvergence is the floor applied to CryptoSwap's convergence limit.
	MinConvergence = uint256.NewInt(100)

	zero = uint256.NewInt(0)
	one  = uint256.NewInt(1)
	two  = uint256.NewInt(2)
)

// Zero returns a fresh zero-valued Uint.
func Zero() *Uint { return new(Uint) }

// One returns a fresh Uint holding 1.
func One() *Uint { return new(Uint).SetUint64(1) }

// FromUint64 constructs a Uint from a native uint64.
func FromUint64(v uint64) *Uint { return new(Uint).SetUint64(v) }

// FromBig constructs a Uint from a *big.Int. It returns ErrOverflow if b
// does not fit in 256 bits or is negative.
func FromBig(b *big.Int) (*Uint, error) {
	if b.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value %s", ErrOverflow, b.String())
	}
	u, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%w: %s exceeds 256 bits", ErrOverflow, b.String())
	}
	return u, nil
}

// MustFromDecimal parses a base-10 string into a Uint, panicking on a
// malformed literal. Intended for constants and test fixtures only.
func MustFromDecimal(s string) *Uint {
	return uint256.MustFromDecimal(s)
}

// Pow10 returns 10^n as a Uint. n must be small enough that the result fits
// in 256 bits (n <= 77); callers in this module never exceed n=36.
func Pow10(n uint64) *Uint {
	return new(Uint).Exp(uint256.NewInt(10), uint256.NewInt(n))
}

// MulDiv computes floor(a*b/c) using a 512-bit intermediate product, so the
// product a*b is never rejected as an overflow before the division that
// brings it back into 256-bit range. Returns ErrDivByZero if c is zero and
// ErrOverflow if the final quotient itself doesn't fit in 256 bits.
func MulDiv(a, b, c *Uint) (*Uint, error) {
	if c.IsZero() {
		return nil, ErrDivByZero
	}
	z := new(Uint)
	_, overflow := z.MulDivOverflow(a, b, c)
	if overflow {
		return nil, fmt.Errorf("%w: (%s * %s) / %s", ErrOverflow, a.String(), b.String(), c.String())
	}
	return z, nil
}

// MustMulDiv is MulDiv for call sites that have already proven c is
// non-zero and the quotient fits (e.g. inside a Newton loop after its own
// zero-checks); it panics instead of threading an error that cannot occur.
func MustMulDiv(a, b, c *Uint) *Uint {
	z, err := MulDiv(a, b, c)
	if err != nil {
		panic(err)
	}
	return z
}

// CheckedAdd returns a+b, or ErrOverflow if the sum does not fit in 256 bits.
func CheckedAdd(a, b *Uint) (*Uint, error) {
	z := new(Uint)
	_, overflow := z.AddOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: %s + %s", ErrOverflow, a.String(), b.String())
	}
	return z, nil
}

// CheckedSub returns a-b, or ErrOverflow if b > a (unsigned underflow).
func CheckedSub(a, b *Uint) (*Uint, error) {
	z := new(Uint)
	_, underflow := z.SubOverflow(a, b)
	if underflow {
		return nil, fmt.Errorf("%w: %s - %s", ErrOverflow, a.String(), b.String())
	}
	return z, nil
}

// SatSub returns a-b, floored at 0 instead of erroring. Used by the many
// "clamp to 0 if the subtraction would go negative" rules in §4.2/§4.4.
func SatSub(a, b *Uint) *Uint {
	if a.Lt(b) {
		return Zero()
	}
	return new(Uint).Sub(a, b)
}

// AbsDiff returns |a-b|, used by every Newton-iteration convergence check.
func AbsDiff(a, b *Uint) *Uint {
	if a.Lt(b) {
		return new(Uint).Sub(b, a)
	}
	return new(Uint).Sub(a, b)
}

// Min returns the smaller of a and b.
func Min(a, b *Uint) *Uint {
	if a.Lt(b) {
		return new(Uint).Set(a)
	}
	return new(Uint).Set(b)
}

// Max returns the larger of a and b.
func Max(a, b *Uint) *Uint {
	if a.Gt(b) {
		return new(Uint).Set(a)
	}
	return new(Uint).Set(b)
}

// Sum returns the sum of xs. Returns ErrOverflow if the running total
// overflows 256 bits.
func Sum(xs []*Uint) (*Uint, error) {
	total := Zero()
	var err error
	for _, x := range xs {
		total, err = CheckedAdd(total, x)
		if err != nil {
			return nil, err
		}
	}
	return total, nil
}

// CheckedMul returns a*b, or ErrOverflow if the product does not fit in 256 bits.
func CheckedMul(a, b *Uint) (*Uint, error) {
	z := new(Uint)
	_, overflow := z.MulOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s", ErrOverflow, a.String(), b.String())
	}
	return z, nil
}

// ToBig returns u as an unbounded *big.Int.
func ToBig(u *Uint) *big.Int { return u.ToBig() }

// WideMulDiv computes floor(terms[0]*terms[1]*...*terms[n-1] / divisor)
// using unbounded math/big intermediates, then asserts the floored result
// fits back in 256 bits. This is the second strategy endorsed by the
// design notes (§9: "a general big-integer type with explicit bit-cap
// assertions at conversion") for the handful of StableSwap/CryptoSwap
// expressions that chain three or more multiplications ahead of a single
// division (e.g. the dynamic-fee skew term, CryptoSwap's K0 products):
// MulDiv's 512-bit intermediate is sufficient for a single a*b/c, but not
// guaranteed for a*b*c*d/e, and real pool states (100000:1 imbalance, 36
// decimal tokens) can legitimately produce such a product.
func WideMulDiv(divisor *Uint, terms ...*Uint) (*Uint, error) {
	if divisor.IsZero() {
		return nil, ErrDivByZero
	}
	product := new(big.Int).SetUint64(1)
	for _, t := range terms {
		product.Mul(product, t.ToBig())
	}
	quotient := new(big.Int).Quo(product, divisor.ToBig())
	return FromBig(quotient)
}

// Product returns the product of xs computed by repeated overflow-checked
// multiplication, returning ErrOverflow the moment the running product
// would not fit in 256 bits. The kernels in this module do not call it;
// they divide as they multiply instead.
func Product(xs []*Uint) (*Uint, error) {
	total := One()
	for _, x := range xs {
		z, overflow := new(Uint).MulOverflow(total, x)
		if overflow {
			return nil, fmt.Errorf("%w: product of %d terms", ErrOverflow, len(xs))
		}
		total = z
	}
	return total, nil
}
