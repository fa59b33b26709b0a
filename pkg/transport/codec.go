//
// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
//
package transport

import (
	"encoding/binary"
	"errors"

	"github.com/moirai-mpc/moirai/pkg/types"
)

// ErrFrameTooShort is thrown when a frame is shorter than its size header declares.
const ErrFrameTooShort = "frame is shorter than its size header declares"

// ErrInvalidBodySize is thrown when a frame body does not have the fixed message size.
const ErrInvalidBodySize = "frame body size must be equal to 49"

// ErrUnknownKind is thrown when a frame carries an unknown message kind.
const ErrUnknownKind = "unknown message kind"

// FrameBodySize is the byte size of an encoded message body.
const FrameBodySize = 49

// FrameHeaderSize is the length of the frame size header in bytes.
const FrameHeaderSize = 4

// Encode serializes a message into a little endian frame. The frame starts
// with a 4 byte size header followed by the fixed size body.
func Encode(m Message) []byte {
	body := make([]byte, FrameBodySize)
	copy(body[0:16], m.EvaluationID[:])
	binary.LittleEndian.PutUint64(body[16:24], m.Round)
	body[24] = byte(m.Kind)
	binary.LittleEndian.PutUint32(body[25:29], uint32(m.Sender))
	binary.LittleEndian.PutUint32(body[29:33], uint32(m.Recipient))
	binary.LittleEndian.PutUint32(body[33:37], uint32(m.Counterpart))
	binary.LittleEndian.PutUint32(body[37:41], uint32(m.Wire))
	binary.LittleEndian.PutUint64(body[41:49], m.Payload)
	frame := make([]byte, FrameHeaderSize, FrameHeaderSize+FrameBodySize)
	binary.LittleEndian.PutUint32(frame, FrameBodySize)
	return append(frame, body...)
}

// Decode parses a frame back into a message. A frame that does not decode is
// treated as malformed round traffic by the engine and aborts the evaluation.
func Decode(frame []byte) (Message, error) {
	var m Message
	if len(frame) < FrameHeaderSize {
		return m, errors.New(ErrFrameTooShort)
	}
	declared := binary.LittleEndian.Uint32(frame[:FrameHeaderSize])
	body := frame[FrameHeaderSize:]
	if uint32(len(body)) < declared {
		return m, errors.New(ErrFrameTooShort)
	}
	if declared != FrameBodySize || len(body) != FrameBodySize {
		return m, errors.New(ErrInvalidBodySize)
	}
	kind := Kind(body[24])
	if kind < KindShare || kind > KindOpen {
		return m, errors.New(ErrUnknownKind)
	}
	copy(m.EvaluationID[:], body[0:16])
	m.Round = binary.LittleEndian.Uint64(body[16:24])
	m.Kind = kind
	m.Sender = types.PartyIndex(binary.LittleEndian.Uint32(body[25:29]))
	m.Recipient = types.PartyIndex(binary.LittleEndian.Uint32(body[29:33]))
	m.Counterpart = types.PartyIndex(binary.LittleEndian.Uint32(body[33:37]))
	m.Wire = types.WireID(binary.LittleEndian.Uint32(body[37:41]))
	m.Payload = binary.LittleEndian.Uint64(body[41:49])
	return m, nil
}
