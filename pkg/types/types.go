// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
package types

import (
	"io"

	mb "github.com/vardius/message-bus"
	"go.uber.org/zap"
)

// PartyIndex identifies a simulated party. Parties are numbered 0..n-1.
type PartyIndex int32

// WireID identifies a wire of the circuit within a single session.
type WireID uint32

// WithBus is a type that contains a message bus.
type WithBus interface {
	Bus() mb.MessageBus
}

// SessionConfig is the session configuration as read from a JSON config file.
type SessionConfig struct {
	PlayerCount int    `json:"playerCount"`
	Modulus     string `json:"modulus"`
	BusSize     int    `json:"busSize"`
}

// SessionTypedConfig reflects SessionConfig, but it contains the real property types.
// We need this type, since the default json decoder cannot represent a full uint64 modulus.
type SessionTypedConfig struct {
	PlayerCount int
	Modulus     uint64
	BusSize     int
	// Rand is the randomness source for share sampling. crypto/rand is used when nil.
	Rand io.Reader
	// Logger is used for the session and all its components. A no-op logger is used when nil.
	Logger *zap.SugaredLogger
}

// EngineEvent is published on the message bus as an evaluation progresses.
type EngineEvent struct {
	Name      string
	SessionID string
	Round     uint64
	Wire      WireID
}

// SessionEvent is published on the session events topic when the lifecycle
// enters a new state.
type SessionEvent struct {
	Name      string
	SessionID string
	State     string
}
