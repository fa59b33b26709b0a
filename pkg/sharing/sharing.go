// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
package sharing

import (
	"fmt"

	"github.com/moirai-mpc/moirai/pkg/ring"
	"github.com/moirai-mpc/moirai/pkg/types"
)

// Share is one party's additive share of a secret. The party index is carried
// explicitly so that a set of shares stays reconstructible independently of
// its ordering.
type Share struct {
	Party types.PartyIndex
	Value uint64
}

// Scheme is an additive secret sharing scheme over a ring for a fixed number
// of parties. The threshold equals the party count, reconstruction needs every
// single share.
type Scheme struct {
	ring    *ring.Ring
	sampler *ring.Sampler
	parties int
}

// NewScheme returns a scheme splitting secrets among the given number of parties.
func NewScheme(r *ring.Ring, sampler *ring.Sampler, parties int) (*Scheme, error) {
	if parties < 2 {
		return nil, fmt.Errorf("at least 2 parties are required, got %d: %w", parties, types.ErrConfiguration)
	}
	return &Scheme{ring: r, sampler: sampler, parties: parties}, nil
}

// Parties returns the number of parties the scheme splits for.
func (s *Scheme) Parties() int {
	return s.parties
}

// Split shares a secret. The first n-1 shares are fresh uniform elements, the
// last one is the remainder, so the share values sum up to the secret.
func (s *Scheme) Split(secret uint64) ([]Share, error) {
	if !s.ring.Contains(secret) {
		return nil, fmt.Errorf("secret %d is not an element of the ring: %w", secret, types.ErrValueOutOfRange)
	}
	shares := make([]Share, s.parties)
	rest := secret
	for i := 0; i < s.parties-1; i++ {
		v, err := s.sampler.Element()
		if err != nil {
			return nil, err
		}
		shares[i] = Share{Party: types.PartyIndex(i), Value: v}
		rest = s.ring.Sub(rest, v)
	}
	shares[s.parties-1] = Share{Party: types.PartyIndex(s.parties - 1), Value: rest}
	return shares, nil
}

// ZeroShares returns one fresh random offset per party for a share refresh.
// Party i adds the offset of its left cyclic neighbour and subtracts its own,
// which applies a sharing of zero: the share values are re-randomized while
// their sum stays untouched. Used to make product shares uniform again after
// a multiplication.
func (s *Scheme) ZeroShares() ([]uint64, error) {
	offsets := make([]uint64, s.parties)
	for i := range offsets {
		v, err := s.sampler.Element()
		if err != nil {
			return nil, err
		}
		offsets[i] = v
	}
	return offsets, nil
}

// Combine reconstructs the secret from a complete share set. Shares may come
// in any order, but every party index must be present exactly once.
func (s *Scheme) Combine(shares []Share) (uint64, error) {
	if len(shares) != s.parties {
		return 0, fmt.Errorf("got %d shares, want %d: %w", len(shares), s.parties, types.ErrIncompleteShareSet)
	}
	seen := make(map[types.PartyIndex]bool, len(shares))
	secret := uint64(0)
	for _, sh := range shares {
		if sh.Party < 0 || int(sh.Party) >= s.parties {
			return 0, fmt.Errorf("share of unknown party %d: %w", sh.Party, types.ErrIncompleteShareSet)
		}
		if seen[sh.Party] {
			return 0, fmt.Errorf("duplicated share of party %d: %w", sh.Party, types.ErrIncompleteShareSet)
		}
		if !s.ring.Contains(sh.Value) {
			return 0, fmt.Errorf("share of party %d is not an element of the ring: %w", sh.Party, types.ErrValueOutOfRange)
		}
		seen[sh.Party] = true
		secret = s.ring.Add(secret, sh.Value)
	}
	return secret, nil
}
