// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moirai-mpc/moirai/pkg/ring"
	"github.com/moirai-mpc/moirai/pkg/sharing"
	"github.com/moirai-mpc/moirai/pkg/transport"
	"github.com/moirai-mpc/moirai/pkg/types"
)

// ErrPlanMismatch is thrown when a received message does not match the round plan.
const ErrPlanMismatch = "message does not match the round plan"

// ErrForeignEvaluation is thrown when a message belongs to another evaluation run.
const ErrForeignEvaluation = "message belongs to another evaluation"

// ErrPayloadOutOfRing is thrown when a payload is not a canonical ring element.
const ErrPayloadOutOfRing = "payload is not an element of the ring"

// Engine drives the protocol for one session. It evaluates circuit operations
// on the parties' shares, one sequential round at a time: all messages of a
// round are sent, then received and validated, and only then are any share
// updates committed. A failed round therefore leaves every store untouched.
type Engine struct {
	ring      *ring.Ring
	sampler   *ring.Sampler
	scheme    *sharing.Scheme
	parties   []*Party
	publisher *Publisher
	logger    *zap.SugaredLogger

	evaluationID uuid.UUID
	round        uint64
	scratch      types.WireID
}

// New returns an engine for the given parties. The sampler provides all mask
// and reshare randomness, the scheme is used when parties deal private values.
func New(r *ring.Ring, sampler *ring.Sampler, scheme *sharing.Scheme, parties []*Party, publisher *Publisher, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		ring:      r,
		sampler:   sampler,
		scheme:    scheme,
		parties:   parties,
		publisher: publisher,
		logger:    logger,
	}
}

// Begin prepares the engine for one evaluation run. Scratch wires for
// intermediate protocol values are allocated above the circuit's wire range.
func (e *Engine) Begin(evaluationID uuid.UUID, firstScratch types.WireID) {
	e.evaluationID = evaluationID
	e.round = 0
	e.scratch = firstScratch
}

// Rounds returns the number of completed protocol rounds of the current run.
func (e *Engine) Rounds() uint64 {
	return e.round
}

func (e *Engine) tempWire() types.WireID {
	w := e.scratch
	e.scratch++
	return w
}

func (e *Engine) shareOf(p *Party, w types.WireID) (uint64, error) {
	v, ok := p.Share(w)
	if !ok {
		return 0, fmt.Errorf("party %d holds no share of wire %d: %w", p.Index(), w, types.ErrUnknownWire)
	}
	return v, nil
}

// abort classifies a failed round. Nothing of the round is committed.
func (e *Engine) abort(round uint64, cause error) error {
	e.logger.Errorw("Protocol round failed", "round", round, "cause", cause)
	e.publisher.Aborted(round)
	return fmt.Errorf("round %d failed: %v: %w", round, cause, types.ErrProtocolAbort)
}

// round is the unit of atomic progress: a plan of messages that is delivered
// and validated as a whole before any of its effects are applied.
type round struct {
	engine  *Engine
	number  uint64
	planned []transport.Message
}

func (e *Engine) nextRound() *round {
	e.round++
	return &round{engine: e, number: e.round}
}

// stage adds a message to the round plan and stamps it with the round context.
func (r *round) stage(m transport.Message) {
	m.EvaluationID = r.engine.evaluationID
	m.Round = r.number
	r.planned = append(r.planned, m)
}

// run delivers the full plan and then drains the mirror set on the receiving
// side. Any missing or malformed message aborts the round.
func (r *round) run() ([]transport.Message, error) {
	e := r.engine
	for _, m := range r.planned {
		if err := e.parties[m.Sender].Send(m); err != nil {
			return nil, e.abort(r.number, err)
		}
	}
	received := make([]transport.Message, len(r.planned))
	for i, m := range r.planned {
		got, err := e.parties[m.Recipient].Receive(m.Sender)
		if err != nil {
			return nil, e.abort(r.number, err)
		}
		if err := r.validate(m, got); err != nil {
			return nil, e.abort(r.number, err)
		}
		received[i] = got
	}
	e.publisher.RoundCompleted(r.number)
	return received, nil
}

// validate checks a received message against the plan. The payload itself is
// only range checked, its value is protocol data the recipient cannot know.
func (r *round) validate(want, got transport.Message) error {
	if got.EvaluationID != want.EvaluationID {
		return errors.New(ErrForeignEvaluation)
	}
	if got.Round != want.Round || got.Kind != want.Kind ||
		got.Sender != want.Sender || got.Recipient != want.Recipient ||
		got.Counterpart != want.Counterpart || got.Wire != want.Wire {
		return errors.New(ErrPlanMismatch)
	}
	if !r.engine.ring.Contains(got.Payload) {
		return errors.New(ErrPayloadOutOfRing)
	}
	return nil
}

// Add writes the share-wise sum of a and b into out. Purely local.
func (e *Engine) Add(out, a, b types.WireID) error {
	for _, p := range e.parties {
		x, err := e.shareOf(p, a)
		if err != nil {
			return err
		}
		y, err := e.shareOf(p, b)
		if err != nil {
			return err
		}
		p.SetShare(out, e.ring.Add(x, y))
	}
	return nil
}

// Sub writes the share-wise difference of a and b into out. Purely local.
func (e *Engine) Sub(out, a, b types.WireID) error {
	for _, p := range e.parties {
		x, err := e.shareOf(p, a)
		if err != nil {
			return err
		}
		y, err := e.shareOf(p, b)
		if err != nil {
			return err
		}
		p.SetShare(out, e.ring.Sub(x, y))
	}
	return nil
}

// AddConst writes a + c into out. Party 0 absorbs the public constant, all
// other shares are copied.
func (e *Engine) AddConst(out, a types.WireID, c uint64) error {
	for _, p := range e.parties {
		x, err := e.shareOf(p, a)
		if err != nil {
			return err
		}
		if p.Index() == 0 {
			x = e.ring.Add(x, c)
		}
		p.SetShare(out, x)
	}
	return nil
}

// SubConst writes a - c into out.
func (e *Engine) SubConst(out, a types.WireID, c uint64) error {
	return e.AddConst(out, a, e.ring.Neg(c))
}

// MulConst writes a * c into out by scaling every share.
func (e *Engine) MulConst(out, a types.WireID, c uint64) error {
	for _, p := range e.parties {
		x, err := e.shareOf(p, a)
		if err != nil {
			return err
		}
		p.SetShare(out, e.ring.Mul(x, c))
	}
	return nil
}

type operandPair struct {
	left  int
	right int
}

// helper returns the lowest party index outside of the pair. It deals the
// masks that blind the pair's operand exchange.
func (e *Engine) helper(left, right int) int {
	for k := range e.parties {
		if k != left && k != right {
			return k
		}
	}
	return -1
}

// Mul writes the product of a and b into out. Every ordered party pair
// exchanges masked operand shares, with a third party dealing the masks, so
// no party learns anything about the peers' operand shares. The fresh product
// shares are biased, a final reshare makes their distribution uniform again.
// Costs three rounds.
func (e *Engine) Mul(out, a, b types.WireID) error {
	n := len(e.parties)
	if n < 3 {
		return fmt.Errorf("multiplication needs at least 3 parties, got %d: %w", n, types.ErrConfiguration)
	}

	// Local diagonal terms. Committed only on success.
	acc := make([]uint64, n)
	for i, p := range e.parties {
		x, err := e.shareOf(p, a)
		if err != nil {
			return err
		}
		y, err := e.shareOf(p, b)
		if err != nil {
			return err
		}
		acc[i] = e.ring.Mul(x, y)
	}

	// Round 1: the helper of every ordered pair deals one mask to each end
	// and keeps the mask product as its own contribution.
	maskRound := e.nextRound()
	helperTerms := make([]uint64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			k := e.helper(i, j)
			alpha, err := e.sampler.Element()
			if err != nil {
				return e.abort(maskRound.number, err)
			}
			beta, err := e.sampler.Element()
			if err != nil {
				return e.abort(maskRound.number, err)
			}
			helperTerms[k] = e.ring.Add(helperTerms[k], e.ring.Mul(alpha, beta))
			maskRound.stage(transport.Message{
				Kind:        transport.KindLeftMask,
				Sender:      types.PartyIndex(k),
				Recipient:   types.PartyIndex(i),
				Counterpart: types.PartyIndex(j),
				Wire:        out,
				Payload:     alpha,
			})
			maskRound.stage(transport.Message{
				Kind:        transport.KindRightMask,
				Sender:      types.PartyIndex(k),
				Recipient:   types.PartyIndex(j),
				Counterpart: types.PartyIndex(i),
				Wire:        out,
				Payload:     beta,
			})
		}
	}
	masks, err := maskRound.run()
	if err != nil {
		return err
	}
	leftMasks := map[operandPair]uint64{}
	rightMasks := map[operandPair]uint64{}
	for _, m := range masks {
		switch m.Kind {
		case transport.KindLeftMask:
			leftMasks[operandPair{left: int(m.Recipient), right: int(m.Counterpart)}] = m.Payload
		case transport.KindRightMask:
			rightMasks[operandPair{left: int(m.Counterpart), right: int(m.Recipient)}] = m.Payload
		}
	}
	for k, term := range helperTerms {
		acc[k] = e.ring.Add(acc[k], term)
	}

	// Round 2: each pair exchanges its masked operand shares.
	exchangeRound := e.nextRound()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			pair := operandPair{left: i, right: j}
			x, err := e.shareOf(e.parties[i], a)
			if err != nil {
				return err
			}
			y, err := e.shareOf(e.parties[j], b)
			if err != nil {
				return err
			}
			exchangeRound.stage(transport.Message{
				Kind:        transport.KindLeftMasked,
				Sender:      types.PartyIndex(i),
				Recipient:   types.PartyIndex(j),
				Counterpart: types.PartyIndex(i),
				Wire:        out,
				Payload:     e.ring.Add(x, leftMasks[pair]),
			})
			exchangeRound.stage(transport.Message{
				Kind:        transport.KindRightMasked,
				Sender:      types.PartyIndex(j),
				Recipient:   types.PartyIndex(i),
				Counterpart: types.PartyIndex(j),
				Wire:        out,
				Payload:     e.ring.Add(y, rightMasks[pair]),
			})
		}
	}
	exchanged, err := exchangeRound.run()
	if err != nil {
		return err
	}
	for _, m := range exchanged {
		switch m.Kind {
		case transport.KindLeftMasked:
			// The right party combines the blinded left operand with its mask.
			pair := operandPair{left: int(m.Counterpart), right: int(m.Recipient)}
			beta := rightMasks[pair]
			acc[m.Recipient] = e.ring.Sub(acc[m.Recipient], e.ring.Mul(beta, m.Payload))
		case transport.KindRightMasked:
			// The left party multiplies its own share into the blinded right operand.
			x, err := e.shareOf(e.parties[m.Recipient], a)
			if err != nil {
				return err
			}
			acc[m.Recipient] = e.ring.Add(acc[m.Recipient], e.ring.Mul(x, m.Payload))
		}
	}

	// Round 3: refresh the product shares with a cyclic zero sharing.
	reshareRound := e.nextRound()
	offsets, err := e.scheme.ZeroShares()
	if err != nil {
		return e.abort(reshareRound.number, err)
	}
	for i := range e.parties {
		next := types.PartyIndex((i + 1) % n)
		reshareRound.stage(transport.Message{
			Kind:        transport.KindReshare,
			Sender:      types.PartyIndex(i),
			Recipient:   next,
			Counterpart: next,
			Wire:        out,
			Payload:     offsets[i],
		})
	}
	refreshed, err := reshareRound.run()
	if err != nil {
		return err
	}
	for _, m := range refreshed {
		acc[m.Recipient] = e.ring.Add(acc[m.Recipient], m.Payload)
	}
	for i := range e.parties {
		acc[i] = e.ring.Sub(acc[i], offsets[i])
	}

	for i, p := range e.parties {
		p.SetShare(out, acc[i])
	}
	return nil
}

// open publicly reconstructs the given wire. Every party broadcasts its share
// to all peers. The engine reads the result from party 0's point of view.
func (e *Engine) open(w types.WireID) (uint64, error) {
	openRound := e.nextRound()
	for i, p := range e.parties {
		x, err := e.shareOf(p, w)
		if err != nil {
			return 0, err
		}
		for j := range e.parties {
			if i == j {
				continue
			}
			openRound.stage(transport.Message{
				Kind:        transport.KindOpen,
				Sender:      types.PartyIndex(i),
				Recipient:   types.PartyIndex(j),
				Counterpart: types.PartyIndex(j),
				Wire:        w,
				Payload:     x,
			})
		}
	}
	received, err := openRound.run()
	if err != nil {
		return 0, err
	}
	value, err := e.shareOf(e.parties[0], w)
	if err != nil {
		return 0, err
	}
	for _, m := range received {
		if m.Recipient == 0 {
			value = e.ring.Add(value, m.Payload)
		}
	}
	return value, nil
}
