// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
package engine

import (
	"fmt"

	"github.com/moirai-mpc/moirai/pkg/transport"
	"github.com/moirai-mpc/moirai/pkg/types"
)

// Comparisons work on the binary representation of the difference of the
// operands. The difference is blinded by a random value that is shared bit by
// bit, opened in blinded form and re-added bit-wise with a carry-lookahead
// adder, so the parties end up with shares of every bit of the difference
// without anyone seeing it. Operands must stay below half the modulus, then
// the top bit of the difference is exactly the comparison sign.

// GTE writes the shared bit x >= y into out.
func (e *Engine) GTE(out, x, y types.WireID) error {
	d := e.tempWire()
	if err := e.Sub(d, x, y); err != nil {
		return err
	}
	bits, err := e.bitDecompose(d)
	if err != nil {
		return err
	}
	return e.notWire(out, bits[len(bits)-1])
}

// GT writes the shared bit x > y into out.
func (e *Engine) GT(out, x, y types.WireID) error {
	gte := e.tempWire()
	if err := e.GTE(gte, y, x); err != nil {
		return err
	}
	return e.notWire(out, gte)
}

// EQ writes the shared bit x == y into out. The difference is zero exactly
// when none of its bits is set, the negated bits are multiplied together in a
// balanced tree.
func (e *Engine) EQ(out, x, y types.WireID) error {
	d := e.tempWire()
	if err := e.Sub(d, x, y); err != nil {
		return err
	}
	bits, err := e.bitDecompose(d)
	if err != nil {
		return err
	}
	terms := make([]types.WireID, len(bits))
	for t, b := range bits {
		nw := e.tempWire()
		if err := e.notWire(nw, b); err != nil {
			return err
		}
		terms[t] = nw
	}
	for len(terms) > 1 {
		next := []types.WireID{}
		for i := 0; i+1 < len(terms); i += 2 {
			prod := e.tempWire()
			if err := e.Mul(prod, terms[i], terms[i+1]); err != nil {
				return err
			}
			next = append(next, prod)
		}
		if len(terms)%2 == 1 {
			next = append(next, terms[len(terms)-1])
		}
		terms = next
	}
	return e.copyWire(out, terms[0])
}

// bitDecompose turns the shared value on w into k shared bits, k being the
// modulus exponent. The value is blinded with a fresh bitwise-shared random
// r, w - r is opened, and the public difference is added back onto the shared
// bits of r. Only the blinded difference ever becomes public.
func (e *Engine) bitDecompose(w types.WireID) ([]types.WireID, error) {
	k, ok := e.ring.PowerOfTwoExponent()
	if !ok || k < 2 {
		return nil, fmt.Errorf("bit extraction needs a power of two modulus of at least 4, got %d: %w", e.ring.Modulus(), types.ErrConfiguration)
	}
	rBits, err := e.randomSharedBits(int(k))
	if err != nil {
		return nil, err
	}

	// r = sum 2^t * bit_t, locally combined from the shared bits.
	r := e.tempWire()
	for _, p := range e.parties {
		acc := uint64(0)
		for t, bw := range rBits {
			v, err := e.shareOf(p, bw)
			if err != nil {
				return nil, err
			}
			acc = e.ring.Add(acc, e.ring.Mul(uint64(1)<<uint(t), v))
		}
		p.SetShare(r, acc)
	}

	// The difference w - r is uniform, opening it reveals nothing about w.
	d := e.tempWire()
	if err := e.Sub(d, w, r); err != nil {
		return nil, err
	}
	a, err := e.open(d)
	if err != nil {
		return nil, err
	}
	return e.addPublic(a, rBits)
}

// randomSharedBits produces k shared uniform bits unknown to every party.
// Each party deals an additive sharing of a private random bit, the dealt
// bits are folded with exclusive or. One round of fanout plus the folding
// multiplications.
func (e *Engine) randomSharedBits(k int) ([]types.WireID, error) {
	n := len(e.parties)
	type kept struct {
		party int
		wire  types.WireID
		value uint64
	}
	var keeps []kept
	dealt := make([][]types.WireID, k)
	dealRound := e.nextRound()
	for t := 0; t < k; t++ {
		dealt[t] = make([]types.WireID, n)
		for i := range e.parties {
			w := e.tempWire()
			dealt[t][i] = w
			bit, err := e.sampler.Bit()
			if err != nil {
				return nil, e.abort(dealRound.number, err)
			}
			shares, err := e.scheme.Split(bit)
			if err != nil {
				return nil, e.abort(dealRound.number, err)
			}
			for _, sh := range shares {
				if int(sh.Party) == i {
					keeps = append(keeps, kept{party: i, wire: w, value: sh.Value})
					continue
				}
				dealRound.stage(transport.Message{
					Kind:        transport.KindShare,
					Sender:      types.PartyIndex(i),
					Recipient:   sh.Party,
					Counterpart: sh.Party,
					Wire:        w,
					Payload:     sh.Value,
				})
			}
		}
	}
	received, err := dealRound.run()
	if err != nil {
		return nil, err
	}
	for _, keep := range keeps {
		e.parties[keep.party].SetShare(keep.wire, keep.value)
	}
	for _, m := range received {
		e.parties[m.Recipient].SetShare(m.Wire, m.Payload)
	}

	bits := make([]types.WireID, k)
	for t := 0; t < k; t++ {
		acc := dealt[t][0]
		for i := 1; i < n; i++ {
			folded := e.tempWire()
			if err := e.xorWires(folded, acc, dealt[t][i]); err != nil {
				return nil, err
			}
			acc = folded
		}
		bits[t] = acc
	}
	return bits, nil
}

// addPublic adds the public bits of a onto the shared bits and returns the
// shared sum bits modulo 2^k. Carries are resolved with a Kogge-Stone prefix,
// log k levels of secure multiplications instead of a linear ripple.
func (e *Engine) addPublic(a uint64, shared []types.WireID) ([]types.WireID, error) {
	k := len(shared)
	propagate := make([]types.WireID, k)
	generate := make([]types.WireID, k)
	for t := 0; t < k; t++ {
		aBit := (a >> uint(t)) & 1
		pw := e.tempWire()
		gw := e.tempWire()
		if aBit == 1 {
			if err := e.notWire(pw, shared[t]); err != nil {
				return nil, err
			}
			if err := e.copyWire(gw, shared[t]); err != nil {
				return nil, err
			}
		} else {
			if err := e.copyWire(pw, shared[t]); err != nil {
				return nil, err
			}
			e.zeroWire(gw)
		}
		propagate[t] = pw
		generate[t] = gw
	}

	// Prefix combine. A span generates a carry when its upper half does, or
	// when the upper half propagates one generated below. Propagate and
	// generate of a span are never set at once, so plain addition is exact.
	spanG := append([]types.WireID{}, generate...)
	spanP := append([]types.WireID{}, propagate...)
	for d := 1; d < k; d *= 2 {
		nextG := append([]types.WireID{}, spanG...)
		nextP := append([]types.WireID{}, spanP...)
		for t := k - 1; t >= d; t-- {
			lifted := e.tempWire()
			if err := e.Mul(lifted, spanP[t], spanG[t-d]); err != nil {
				return nil, err
			}
			ng := e.tempWire()
			if err := e.Add(ng, spanG[t], lifted); err != nil {
				return nil, err
			}
			np := e.tempWire()
			if err := e.Mul(np, spanP[t], spanP[t-d]); err != nil {
				return nil, err
			}
			nextG[t] = ng
			nextP[t] = np
		}
		spanG = nextG
		spanP = nextP
	}

	// Sum bits. The carry into position t is the generate of [0..t-1], the
	// carry out of the top position is dropped by the modulus.
	sum := make([]types.WireID, k)
	sum[0] = propagate[0]
	for t := 1; t < k; t++ {
		sw := e.tempWire()
		if err := e.xorWires(sw, propagate[t], spanG[t-1]); err != nil {
			return nil, err
		}
		sum[t] = sw
	}
	return sum, nil
}

// xorWires writes x ^ y into out for shared bits: x + y - 2xy.
func (e *Engine) xorWires(out, x, y types.WireID) error {
	prod := e.tempWire()
	if err := e.Mul(prod, x, y); err != nil {
		return err
	}
	for _, p := range e.parties {
		a, err := e.shareOf(p, x)
		if err != nil {
			return err
		}
		b, err := e.shareOf(p, y)
		if err != nil {
			return err
		}
		t, err := e.shareOf(p, prod)
		if err != nil {
			return err
		}
		p.SetShare(out, e.ring.Sub(e.ring.Add(a, b), e.ring.Add(t, t)))
	}
	return nil
}

// notWire writes 1 - x into out for a shared bit x. Party 0 absorbs the
// public one.
func (e *Engine) notWire(out, x types.WireID) error {
	for _, p := range e.parties {
		v, err := e.shareOf(p, x)
		if err != nil {
			return err
		}
		if p.Index() == 0 {
			p.SetShare(out, e.ring.Sub(1, v))
		} else {
			p.SetShare(out, e.ring.Neg(v))
		}
	}
	return nil
}

func (e *Engine) copyWire(out, src types.WireID) error {
	for _, p := range e.parties {
		v, err := e.shareOf(p, src)
		if err != nil {
			return err
		}
		p.SetShare(out, v)
	}
	return nil
}

func (e *Engine) zeroWire(w types.WireID) {
	for _, p := range e.parties {
		p.SetShare(w, 0)
	}
}
