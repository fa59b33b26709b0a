// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	mb "github.com/vardius/message-bus"
	"go.uber.org/zap"

	"github.com/moirai-mpc/moirai/pkg/engine"
	"github.com/moirai-mpc/moirai/pkg/ring"
	"github.com/moirai-mpc/moirai/pkg/sharing"
	"github.com/moirai-mpc/moirai/pkg/transport"
	"github.com/moirai-mpc/moirai/pkg/types"
)

// LifecycleWithBus is a session lifecycle coupled with a message bus.
type LifecycleWithBus interface {
	types.WithBus
	History() *History
}

// Session is the coordinating context of one joint computation. The caller
// submits secrets and composes the expression graph while the session is
// building, has it evaluated by the protocol engine, and reveals results
// afterwards. All parties are simulated in the caller's goroutine, a session
// must not be used concurrently.
type Session struct {
	id        uuid.UUID
	ring      *ring.Ring
	sampler   *ring.Sampler
	scheme    *sharing.Scheme
	router    *transport.Router
	parties   []*engine.Party
	engine    *engine.Engine
	publisher *engine.Publisher
	bus       mb.MessageBus
	lifecycle *Lifecycle
	circuit   circuit
	logger    *zap.SugaredLogger
}

// New returns a session for the given configuration. The modulus and the
// party count are fixed for the session's lifetime. Sessions with two parties
// support linear circuits only, multiplications and comparisons need a third
// party to mask the pairwise operand exchange.
func New(conf *types.SessionTypedConfig) (*Session, error) {
	if conf == nil {
		return nil, fmt.Errorf("a session config is required: %w", types.ErrConfiguration)
	}
	logger := conf.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	rng, err := ring.New(conf.Modulus)
	if err != nil {
		return nil, err
	}
	sampler := ring.NewSampler(rng, conf.Rand)
	scheme, err := sharing.NewScheme(rng, sampler, conf.PlayerCount)
	if err != nil {
		return nil, err
	}
	router, err := transport.NewRouter(conf.PlayerCount, 0, logger)
	if err != nil {
		return nil, err
	}
	parties := make([]*engine.Party, conf.PlayerCount)
	for i := range parties {
		parties[i] = engine.NewParty(types.PartyIndex(i), router)
	}
	busSize := conf.BusSize
	if busSize <= 0 {
		busSize = types.DefaultBusSize
	}
	id := uuid.New()
	bus := mb.New(busSize)
	publisher := engine.NewPublisher(bus, id.String())
	s := &Session{
		id:        id,
		ring:      rng,
		sampler:   sampler,
		scheme:    scheme,
		router:    router,
		parties:   parties,
		engine:    engine.New(rng, sampler, scheme, parties, publisher, logger),
		publisher: publisher,
		bus:       bus,
		logger:    logger.With("sessionID", id.String()),
	}
	cbs := []*Callback{
		AfterEnter(types.Evaluating).Do(s.announce(types.Evaluating)),
		AfterEnter(types.Revealed).Do(s.announce(types.Revealed)),
		AfterEnter(types.Aborted).Do(s.announce(types.Aborted)),
	}
	trs := []*Transition{
		WhenIn(types.Building).GotEvent(types.SecretSubmitted).Stay(),
		WhenIn(types.Building).GotEvent(types.WireAdded).Stay(),
		WhenIn(types.Building).GotEvent(types.EvaluationStarted).GoTo(types.Evaluating),
		WhenIn(types.Evaluating).GotEvent(types.EvaluationSucceeded).GoTo(types.Revealed),
		WhenIn(types.Revealed).GotEvent(types.ResultRevealed).Stay(),
		WhenInAnyState().GotEvent(types.EvaluationFailed).GoTo(types.Aborted),
	}
	callbacks, transitions := InitCallbacksAndTransitions(cbs, trs)
	lifecycle, err := NewLifecycle(types.Building, transitions, callbacks, s.logger)
	if err != nil {
		return nil, err
	}
	s.lifecycle = lifecycle
	s.logger.Debugw("Session created", "parties", conf.PlayerCount, "modulus", conf.Modulus)
	return s, nil
}

// announce publishes the entered lifecycle state to the session events topic.
func (s *Session) announce(state string) Action {
	return func(e *Event) error {
		s.bus.Publish(types.SessionEventsTopic, &types.SessionEvent{
			Name:      e.Name,
			SessionID: s.id.String(),
			State:     state,
		})
		return nil
	}
}

// ID returns the session identity. Wire handles are scoped by it.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() string {
	return s.lifecycle.Current()
}

// History returns the lifecycle history of states and events, including
// rejected ones.
func (s *Session) History() *History {
	return s.lifecycle.History()
}

// Bus returns the session's message bus carrying lifecycle and engine events.
func (s *Session) Bus() mb.MessageBus {
	return s.bus
}

// PartyCount returns the number of simulated parties.
func (s *Session) PartyCount() int {
	return s.scheme.Parties()
}

// Modulus returns the ring modulus all values live in.
func (s *Session) Modulus() uint64 {
	return s.ring.Modulus()
}

func (s *Session) handle(w types.WireID) WireHandle {
	return WireHandle{Session: s.id, ID: w}
}

// wireOf resolves a handle back to the session's wire.
func (s *Session) wireOf(h WireHandle) (types.WireID, error) {
	if h.Session != s.id || !s.circuit.defined(h.ID) {
		return 0, fmt.Errorf("wire handle %d does not belong to session %s: %w", h.ID, s.id, types.ErrUnknownWire)
	}
	return h.ID, nil
}

// SubmitSecret splits a plaintext into fresh shares and hands one to every
// party. The plaintext itself is dropped, only the returned handle refers to
// the value from here on.
func (s *Session) SubmitSecret(value uint64) (WireHandle, error) {
	if !s.ring.Contains(value) {
		return WireHandle{}, fmt.Errorf("secret is outside of [0, %d): %w", s.ring.Modulus(), types.ErrValueOutOfRange)
	}
	if err := s.fire(types.SecretSubmitted, s.circuit.next); err != nil {
		return WireHandle{}, err
	}
	shares, err := s.scheme.Split(value)
	if err != nil {
		return WireHandle{}, err
	}
	w := s.circuit.addNode(NodeInput, 0, 0, 0)
	for i, p := range s.parties {
		p.SetShare(w, shares[i].Value)
	}
	s.logger.Debugw("Secret submitted", "wire", w)
	return s.handle(w), nil
}

// Add appends a wire carrying left + right.
func (s *Session) Add(left, right WireHandle) (WireHandle, error) {
	return s.binary(NodeAdd, left, right)
}

// Sub appends a wire carrying left - right.
func (s *Session) Sub(left, right WireHandle) (WireHandle, error) {
	return s.binary(NodeSub, left, right)
}

// Mul appends a wire carrying left * right. Needs at least 3 parties.
func (s *Session) Mul(left, right WireHandle) (WireHandle, error) {
	return s.binary(NodeMul, left, right)
}

// CompareGT appends a wire carrying the bit left > right. Needs at least 3
// parties and a power of two modulus 2^k with k >= 2; both operands are
// interpreted in [0, 2^(k-1)).
func (s *Session) CompareGT(left, right WireHandle) (WireHandle, error) {
	return s.binary(NodeCmpGT, left, right)
}

// CompareGTE appends a wire carrying the bit left >= right. Same constraints
// as CompareGT.
func (s *Session) CompareGTE(left, right WireHandle) (WireHandle, error) {
	return s.binary(NodeCmpGTE, left, right)
}

// CompareEQ appends a wire carrying the bit left == right. Same constraints
// as CompareGT.
func (s *Session) CompareEQ(left, right WireHandle) (WireHandle, error) {
	return s.binary(NodeCmpEQ, left, right)
}

// AddConstant appends a wire carrying w + c for a public constant c.
func (s *Session) AddConstant(w WireHandle, c uint64) (WireHandle, error) {
	return s.withConstant(NodeAddConst, w, c)
}

// SubConstant appends a wire carrying w - c for a public constant c.
func (s *Session) SubConstant(w WireHandle, c uint64) (WireHandle, error) {
	return s.withConstant(NodeSubConst, w, c)
}

// MulConstant appends a wire carrying w * c for a public constant c.
func (s *Session) MulConstant(w WireHandle, c uint64) (WireHandle, error) {
	return s.withConstant(NodeMulConst, w, c)
}

func (s *Session) binary(kind NodeKind, left, right WireHandle) (WireHandle, error) {
	l, err := s.wireOf(left)
	if err != nil {
		return WireHandle{}, err
	}
	r, err := s.wireOf(right)
	if err != nil {
		return WireHandle{}, err
	}
	if err := s.checkInteractive(kind); err != nil {
		return WireHandle{}, err
	}
	if err := s.fire(types.WireAdded, s.circuit.next); err != nil {
		return WireHandle{}, err
	}
	w := s.circuit.addNode(kind, l, r, 0)
	s.logger.Debugw("Wire added", "kind", kind.String(), "wire", w)
	return s.handle(w), nil
}

func (s *Session) withConstant(kind NodeKind, operand WireHandle, c uint64) (WireHandle, error) {
	l, err := s.wireOf(operand)
	if err != nil {
		return WireHandle{}, err
	}
	if !s.ring.Contains(c) {
		return WireHandle{}, fmt.Errorf("constant %d is outside of [0, %d): %w", c, s.ring.Modulus(), types.ErrValueOutOfRange)
	}
	if err := s.fire(types.WireAdded, s.circuit.next); err != nil {
		return WireHandle{}, err
	}
	w := s.circuit.addNode(kind, l, 0, c)
	s.logger.Debugw("Wire added", "kind", kind.String(), "wire", w)
	return s.handle(w), nil
}

// checkInteractive rejects nodes whose sub-protocol the session cannot run.
// The checks happen at build time so that a caller never gets an evaluation
// abort for a circuit that could not possibly run.
func (s *Session) checkInteractive(kind NodeKind) error {
	switch kind {
	case NodeMul, NodeCmpGT, NodeCmpGTE, NodeCmpEQ:
		if s.scheme.Parties() < 3 {
			return fmt.Errorf("%s needs at least 3 parties, got %d: %w", kind, s.scheme.Parties(), types.ErrConfiguration)
		}
	}
	switch kind {
	case NodeCmpGT, NodeCmpGTE, NodeCmpEQ:
		if k, ok := s.ring.PowerOfTwoExponent(); !ok || k < 2 {
			return fmt.Errorf("%s needs a power of two modulus of at least 4, got %d: %w", kind, s.ring.Modulus(), types.ErrConfiguration)
		}
	}
	return nil
}

func (s *Session) fire(name string, wire types.WireID) error {
	return s.lifecycle.Fire(&Event{Name: name, SessionID: s.id.String(), Wire: wire})
}

// Evaluate runs the protocol for the whole expression graph. Each node is
// evaluated exactly once in topological order, wires consumed by several
// nodes reuse the stored shares. On any protocol failure all party stores are
// rolled back to their pre-evaluation content, the session enters Aborted and
// cannot be used again: retrying with partially consumed randomness would
// break the secrecy of the inputs, a fresh session must be started instead.
func (s *Session) Evaluate(ctx context.Context) error {
	if s.circuit.size() == 0 {
		return fmt.Errorf("the session has no wires to evaluate: %w", types.ErrInvalidSessionState)
	}
	if err := s.fire(types.EvaluationStarted, 0); err != nil {
		return err
	}
	evaluationID := uuid.New()
	s.logger.Infow("Evaluation started", "evaluationID", evaluationID, "nodes", s.circuit.size())
	snapshots := make([]map[types.WireID]uint64, len(s.parties))
	for i, p := range s.parties {
		snapshots[i] = p.Snapshot()
	}
	// Scratch wires of the engine start above the circuit's wire range.
	s.engine.Begin(evaluationID, s.circuit.next)
	if err := s.runCircuit(ctx); err != nil {
		for i, p := range s.parties {
			p.Restore(snapshots[i])
		}
		s.logger.Errorw("Evaluation failed", "evaluationID", evaluationID, "cause", err)
		if fireErr := s.lifecycle.Fire(&Event{Name: types.EvaluationFailed, SessionID: s.id.String(), Cause: err}); fireErr != nil {
			s.logger.Errorw("Lifecycle rejected the abort", "cause", fireErr)
		}
		return err
	}
	s.publisher.Completed(s.engine.Rounds())
	s.logger.Infow("Evaluation succeeded", "evaluationID", evaluationID, "rounds", s.engine.Rounds())
	return s.fire(types.EvaluationSucceeded, 0)
}

// runCircuit walks the node list and dispatches every node to its
// sub-protocol. Cancellation is only honored between nodes, a started round
// either completes or aborts as a whole.
func (s *Session) runCircuit(ctx context.Context) error {
	for _, nd := range s.circuit.nodes {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("evaluation cancelled: %v: %w", err, types.ErrProtocolAbort)
		}
		if err := s.evalNode(nd); err != nil {
			return err
		}
		s.publisher.WireEvaluated(nd.out)
	}
	return nil
}

func (s *Session) evalNode(nd node) error {
	switch nd.kind {
	case NodeInput:
		// Shares are placed at submission time.
		return nil
	case NodeAdd:
		return s.engine.Add(nd.out, nd.left, nd.right)
	case NodeSub:
		return s.engine.Sub(nd.out, nd.left, nd.right)
	case NodeMul:
		return s.engine.Mul(nd.out, nd.left, nd.right)
	case NodeAddConst:
		return s.engine.AddConst(nd.out, nd.left, nd.constant)
	case NodeSubConst:
		return s.engine.SubConst(nd.out, nd.left, nd.constant)
	case NodeMulConst:
		return s.engine.MulConst(nd.out, nd.left, nd.constant)
	case NodeCmpGT:
		return s.engine.GT(nd.out, nd.left, nd.right)
	case NodeCmpGTE:
		return s.engine.GTE(nd.out, nd.left, nd.right)
	case NodeCmpEQ:
		return s.engine.EQ(nd.out, nd.left, nd.right)
	}
	return fmt.Errorf("unhandled node kind %d: %w", nd.kind, types.ErrProtocolAbort)
}

// Reveal reconstructs the plaintext on the given wire from all parties'
// shares. Only permitted after a successful evaluation, and repeatable for
// any evaluated wire.
func (s *Session) Reveal(w WireHandle) (uint64, error) {
	wire, err := s.wireOf(w)
	if err != nil {
		return 0, err
	}
	if err := s.fire(types.ResultRevealed, wire); err != nil {
		return 0, err
	}
	shares := make([]sharing.Share, 0, len(s.parties))
	for _, p := range s.parties {
		v, ok := p.Share(wire)
		if !ok {
			return 0, fmt.Errorf("party %d holds no share of wire %d: %w", p.Index(), wire, types.ErrIncompleteShareSet)
		}
		shares = append(shares, sharing.Share{Party: p.Index(), Value: v})
	}
	value, err := s.scheme.Combine(shares)
	if err != nil {
		return 0, err
	}
	s.logger.Debugw("Wire revealed", "wire", wire)
	return value, nil
}
