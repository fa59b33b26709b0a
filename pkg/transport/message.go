// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
package transport

import (
	"github.com/google/uuid"

	"github.com/moirai-mpc/moirai/pkg/types"
)

// Kind classifies protocol messages.
type Kind uint8

const (
	// KindShare carries one share of a fanned out private value, e.g. a random bit.
	KindShare Kind = iota + 1
	// KindLeftMask carries the mask a helper sends to the left operand holder of an ordered pair.
	KindLeftMask
	// KindRightMask carries the mask a helper sends to the right operand holder of an ordered pair.
	KindRightMask
	// KindLeftMasked carries a left operand share blinded by its mask.
	KindLeftMasked
	// KindRightMasked carries a right operand share blinded by its mask.
	KindRightMasked
	// KindReshare carries a share refresh offset for the cyclic neighbour.
	KindReshare
	// KindOpen carries one share of a value that is being publicly reconstructed.
	KindOpen
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindShare:
		return "Share"
	case KindLeftMask:
		return "LeftMask"
	case KindRightMask:
		return "RightMask"
	case KindLeftMasked:
		return "LeftMasked"
	case KindRightMasked:
		return "RightMasked"
	case KindReshare:
		return "Reshare"
	case KindOpen:
		return "Open"
	}
	return "Unknown"
}

// Message is a single protocol message between two parties. All cross-party
// data movement goes through messages, parties never read each other's state.
type Message struct {
	// EvaluationID ties the message to one evaluation run.
	EvaluationID uuid.UUID
	// Round is the protocol round the message belongs to.
	Round uint64
	// Kind classifies the payload.
	Kind Kind
	// Sender and Recipient are the endpoints of the ordered channel.
	Sender    types.PartyIndex
	Recipient types.PartyIndex
	// Counterpart is the other end of the ordered operand pair for the mask
	// and masked kinds. It equals the recipient for kinds without pair scope.
	Counterpart types.PartyIndex
	// Wire is the output wire the message contributes to.
	Wire types.WireID
	// Payload is the transported ring element.
	Payload uint64
}
