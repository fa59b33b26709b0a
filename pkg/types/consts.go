//
// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
//
package types

const (
	// States of the session lifecycle.
	Building   = "Building"
	Evaluating = "Evaluating"
	Revealed   = "Revealed"
	Aborted    = "Aborted"

	// Events driving the session state machine.
	SecretSubmitted     = "SecretSubmitted"
	WireAdded           = "WireAdded"
	EvaluationStarted   = "EvaluationStarted"
	EvaluationSucceeded = "EvaluationSucceeded"
	EvaluationFailed    = "EvaluationFailed"
	ResultRevealed      = "ResultRevealed"

	// SessionEventsTopic carries session lifecycle events.
	SessionEventsTopic = "sessionEvents"
	// EngineEventsTopic carries engine progress events.
	EngineEventsTopic = "engineEvents"

	// Engine progress events published on EngineEventsTopic.
	RoundCompleted      = "RoundCompleted"
	WireEvaluated       = "WireEvaluated"
	EvaluationCompleted = "EvaluationCompleted"
	EvaluationAborted   = "EvaluationAborted"

	// DefaultBusSize is the size of the in-memory message bus used for session and engine events.
	DefaultBusSize = 10000
)
