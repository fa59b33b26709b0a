// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
package ring

import (
	"crypto/rand"
	"io"
	"math/big"
)

var two = big.NewInt(2)

// Sampler draws uniformly distributed ring elements from a randomness source.
// Masks and shares must be sampled freshly on every use, a sampler never
// caches or re-issues values.
type Sampler struct {
	ring *Ring
	max  *big.Int
	src  io.Reader
}

// NewSampler returns a sampler for the given ring. The source is used for all
// draws and may be deterministic in tests. crypto/rand is used when src is nil.
func NewSampler(r *Ring, src io.Reader) *Sampler {
	if src == nil {
		src = rand.Reader
	}
	return &Sampler{
		ring: r,
		max:  new(big.Int).SetUint64(r.Modulus()),
		src:  src,
	}
}

// Element returns a fresh uniform element of the ring.
func (s *Sampler) Element() (uint64, error) {
	n, err := rand.Int(s.src, s.max)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// Bit returns a fresh uniform value in {0, 1}.
func (s *Sampler) Bit() (uint64, error) {
	n, err := rand.Int(s.src, two)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}
