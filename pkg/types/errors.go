// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
package types

import "errors"

// The errors below classify every failure surfaced by the public API.
// They are meant to be matched with errors.Is, concrete causes are wrapped around them.
var (
	// ErrConfiguration indicates an invalid session or component setup, e.g. a bad modulus or party count.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrValueOutOfRange indicates a plaintext or constant outside of [0, modulus).
	ErrValueOutOfRange = errors.New("value out of range")
	// ErrUnknownWire indicates a wire handle that does not belong to the session.
	ErrUnknownWire = errors.New("unknown wire")
	// ErrInvalidSessionState indicates an operation that is not permitted in the current lifecycle state.
	ErrInvalidSessionState = errors.New("invalid session state")
	// ErrIncompleteShareSet indicates a reconstruction attempt with shares missing or duplicated.
	ErrIncompleteShareSet = errors.New("incomplete share set")
	// ErrProtocolAbort indicates a failed protocol round. No share updates of the round are committed.
	ErrProtocolAbort = errors.New("protocol aborted")
)
