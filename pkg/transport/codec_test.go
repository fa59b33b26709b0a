// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
package transport_test

import (
	"github.com/google/uuid"

	. "github.com/moirai-mpc/moirai/pkg/transport"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Codec", func() {

	var message Message

	BeforeEach(func() {
		message = Message{
			EvaluationID: uuid.New(),
			Round:        12,
			Kind:         KindLeftMask,
			Sender:       2,
			Recipient:    0,
			Counterpart:  1,
			Wire:         7,
			Payload:      18446744073709551610,
		}
	})

	It("round trips a message through a frame", func() {
		frame := Encode(message)
		Expect(frame).To(HaveLen(FrameHeaderSize + FrameBodySize))
		decoded, err := Decode(frame)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded).To(Equal(message))
	})

	It("rejects a frame without a complete size header", func() {
		_, err := Decode([]byte{1, 2})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(Equal(ErrFrameTooShort))
	})

	It("rejects a truncated body", func() {
		frame := Encode(message)
		_, err := Decode(frame[:FrameHeaderSize+10])
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(Equal(ErrFrameTooShort))
	})

	It("rejects a body of the wrong size", func() {
		frame := Encode(message)
		frame[0] = 10
		_, err := Decode(frame)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(Equal(ErrInvalidBodySize))
	})

	It("rejects an unknown message kind", func() {
		frame := Encode(message)
		frame[FrameHeaderSize+24] = 200
		_, err := Decode(frame)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(Equal(ErrUnknownKind))
	})
})
