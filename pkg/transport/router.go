// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
package transport

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/moirai-mpc/moirai/pkg/types"
)

// ErrUnknownPair is thrown when a message names a party outside of the session.
const ErrUnknownPair = "no channel for the given party pair"

// ErrNoMessage is thrown when a receive finds no pending message for the pair.
const ErrNoMessage = "no message pending for the given party pair"

// ErrChannelFull is thrown when the per pair buffer is exceeded.
const ErrChannelFull = "channel buffer exceeded"

// DefaultBuffer is the per pair channel capacity. It is sized so that all
// messages of a round are deliverable before any receive happens.
const DefaultBuffer = 1024

// AbstractRouter delivers protocol messages between parties.
type AbstractRouter interface {
	Send(Message) error
	Receive(sender, recipient types.PartyIndex) (Message, error)
}

// Interceptor inspects an outgoing frame and may rewrite or suppress it.
// Returning false drops the message, the failure then surfaces at the
// receiving side of the round. Used to inject faults in tests.
type Interceptor func(m Message, frame []byte) ([]byte, bool)

type pairKey struct {
	sender    types.PartyIndex
	recipient types.PartyIndex
}

// Router is an in-memory transport with one buffered channel per ordered
// party pair. Frames are encoded on send and decoded on receive, so malformed
// traffic is an observable failure mode just like on a real wire.
type Router struct {
	parties     int
	channels    map[pairKey]chan []byte
	interceptor Interceptor
	logger      *zap.SugaredLogger
	mux         sync.Mutex
}

// NewRouter returns a router connecting the given number of parties.
func NewRouter(parties int, buffer int, logger *zap.SugaredLogger) (*Router, error) {
	if parties < 2 {
		return nil, fmt.Errorf("a transport needs at least 2 parties, got %d: %w", parties, types.ErrConfiguration)
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	channels := map[pairKey]chan []byte{}
	for i := 0; i < parties; i++ {
		for j := 0; j < parties; j++ {
			if i == j {
				continue
			}
			key := pairKey{sender: types.PartyIndex(i), recipient: types.PartyIndex(j)}
			channels[key] = make(chan []byte, buffer)
		}
	}
	return &Router{
		parties:  parties,
		channels: channels,
		logger:   logger,
	}, nil
}

// SetInterceptor installs a fault injection hook for all subsequent sends.
func (r *Router) SetInterceptor(ic Interceptor) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.interceptor = ic
}

func (r *Router) getInterceptor() Interceptor {
	r.mux.Lock()
	defer r.mux.Unlock()
	return r.interceptor
}

// Send encodes the message and enqueues the frame on the sender to recipient
// channel. Send never blocks, exceeding the buffer is an error.
func (r *Router) Send(m Message) error {
	ch, ok := r.channels[pairKey{sender: m.Sender, recipient: m.Recipient}]
	if !ok {
		return errors.New(ErrUnknownPair)
	}
	frame := Encode(m)
	if ic := r.getInterceptor(); ic != nil {
		rewritten, deliver := ic(m, frame)
		if !deliver {
			r.logger.Debugw("Message dropped by interceptor", "kind", m.Kind.String(), "sender", m.Sender, "recipient", m.Recipient, "round", m.Round)
			return nil
		}
		frame = rewritten
	}
	select {
	case ch <- frame:
		return nil
	default:
		return errors.New(ErrChannelFull)
	}
}

// Receive dequeues and decodes exactly one frame sent from sender to
// recipient. It does not block, a missing message is reported immediately.
func (r *Router) Receive(sender, recipient types.PartyIndex) (Message, error) {
	ch, ok := r.channels[pairKey{sender: sender, recipient: recipient}]
	if !ok {
		return Message{}, errors.New(ErrUnknownPair)
	}
	select {
	case frame := <-ch:
		return Decode(frame)
	default:
		return Message{}, errors.New(ErrNoMessage)
	}
}
