// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
package engine

import (
	"github.com/moirai-mpc/moirai/pkg/transport"
	"github.com/moirai-mpc/moirai/pkg/types"
)

// Party is one simulated protocol participant. It owns its per-wire share
// store and its endpoint of the transport. Only the engine mutates the store,
// and share data crosses party boundaries exclusively inside messages.
type Party struct {
	index  types.PartyIndex
	router transport.AbstractRouter
	shares map[types.WireID]uint64
}

// NewParty returns a party with an empty share store.
func NewParty(index types.PartyIndex, router transport.AbstractRouter) *Party {
	return &Party{
		index:  index,
		router: router,
		shares: map[types.WireID]uint64{},
	}
}

// Index returns the party's position in the session.
func (p *Party) Index() types.PartyIndex {
	return p.index
}

// Send transmits a message authored by this party.
func (p *Party) Send(m transport.Message) error {
	m.Sender = p.index
	return p.router.Send(m)
}

// Receive fetches the next pending message the given party sent to this one.
func (p *Party) Receive(from types.PartyIndex) (transport.Message, error) {
	return p.router.Receive(from, p.index)
}

// Share returns the party's share of the given wire.
func (p *Party) Share(w types.WireID) (uint64, bool) {
	v, ok := p.shares[w]
	return v, ok
}

// SetShare records the party's share of the given wire.
func (p *Party) SetShare(w types.WireID, v uint64) {
	p.shares[w] = v
}

// Snapshot returns a copy of the share store.
func (p *Party) Snapshot() map[types.WireID]uint64 {
	snapshot := make(map[types.WireID]uint64, len(p.shares))
	for w, v := range p.shares {
		snapshot[w] = v
	}
	return snapshot
}

// Restore replaces the share store with a previously taken snapshot.
func (p *Party) Restore(snapshot map[types.WireID]uint64) {
	shares := make(map[types.WireID]uint64, len(snapshot))
	for w, v := range snapshot {
		shares[w] = v
	}
	p.shares = shares
}
