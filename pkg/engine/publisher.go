//
// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
//
package engine

import (
	mb "github.com/vardius/message-bus"

	"github.com/moirai-mpc/moirai/pkg/types"
)

// NewPublisher returns a publisher for one session's engine events.
func NewPublisher(bus mb.MessageBus, sessionID string) *Publisher {
	return &Publisher{
		Bus:       bus,
		SessionID: sessionID,
	}
}

// Publisher sends engine progress events to the message bus.
type Publisher struct {
	Bus       mb.MessageBus
	SessionID string
}

// Publish sends a named progress event to the engine events topic.
func (p *Publisher) Publish(name string, round uint64, wire types.WireID) {
	p.Bus.Publish(types.EngineEventsTopic, &types.EngineEvent{
		Name:      name,
		SessionID: p.SessionID,
		Round:     round,
		Wire:      wire,
	})
}

// RoundCompleted signals that all messages of a round were delivered and validated.
func (p *Publisher) RoundCompleted(round uint64) {
	p.Publish(types.RoundCompleted, round, 0)
}

// WireEvaluated signals that a circuit wire received its output shares.
func (p *Publisher) WireEvaluated(wire types.WireID) {
	p.Publish(types.WireEvaluated, 0, wire)
}

// Completed signals a successful evaluation.
func (p *Publisher) Completed(rounds uint64) {
	p.Publish(types.EvaluationCompleted, rounds, 0)
}

// Aborted signals a failed round.
func (p *Publisher) Aborted(round uint64) {
	p.Publish(types.EvaluationAborted, round, 0)
}
