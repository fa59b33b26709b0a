// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
package ring

import (
	"fmt"
	"math/bits"

	"github.com/moirai-mpc/moirai/pkg/types"
)

// Ring is the ring of integers modulo a fixed modulus. Elements are uint64
// values in [0, modulus). All operations expect canonical elements and return
// canonical elements, there is no hidden reduction of out-of-range inputs.
type Ring struct {
	modulus uint64
}

// New returns a ring modulo the given modulus. Any modulus greater than 1 is
// supported, it does not have to be prime.
func New(modulus uint64) (*Ring, error) {
	if modulus < 2 {
		return nil, fmt.Errorf("modulus must be greater than 1: %w", types.ErrConfiguration)
	}
	return &Ring{modulus: modulus}, nil
}

// Modulus returns the modulus of the ring.
func (r *Ring) Modulus() uint64 {
	return r.modulus
}

// Contains reports whether v is a canonical element of the ring.
func (r *Ring) Contains(v uint64) bool {
	return v < r.modulus
}

// Add returns x + y mod m. The intermediate sum is tracked with its carry bit
// so that moduli close to 2^64 do not overflow.
func (r *Ring) Add(x, y uint64) uint64 {
	sum, carry := bits.Add64(x, y, 0)
	_, rem := bits.Div64(carry, sum, r.modulus)
	return rem
}

// Sub returns x - y mod m.
func (r *Ring) Sub(x, y uint64) uint64 {
	if x >= y {
		return x - y
	}
	return r.modulus - (y - x)
}

// Neg returns -x mod m.
func (r *Ring) Neg(x uint64) uint64 {
	if x == 0 {
		return 0
	}
	return r.modulus - x
}

// Mul returns x * y mod m. The product is computed in 128 bits before the
// reduction, the high word is always below the modulus for canonical inputs.
func (r *Ring) Mul(x, y uint64) uint64 {
	hi, lo := bits.Mul64(x, y)
	_, rem := bits.Div64(hi, lo, r.modulus)
	return rem
}

// PowerOfTwoExponent returns k such that the modulus equals 1<<k. The second
// return value is false when the modulus is not a power of two.
func (r *Ring) PowerOfTwoExponent() (uint, bool) {
	if r.modulus&(r.modulus-1) != 0 {
		return 0, false
	}
	return uint(bits.TrailingZeros64(r.modulus)), true
}
