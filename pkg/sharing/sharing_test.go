// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
package sharing_test

import (
	"errors"
	mrand "math/rand"

	"github.com/moirai-mpc/moirai/pkg/ring"
	. "github.com/moirai-mpc/moirai/pkg/sharing"
	"github.com/moirai-mpc/moirai/pkg/types"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func newScheme(modulus uint64, parties int, seed int64) *Scheme {
	r, err := ring.New(modulus)
	Expect(err).NotTo(HaveOccurred())
	s, err := NewScheme(r, ring.NewSampler(r, mrand.New(mrand.NewSource(seed))), parties)
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("Scheme", func() {

	It("rejects less than two parties", func() {
		r, _ := ring.New(97)
		_, err := NewScheme(r, ring.NewSampler(r, nil), 1)
		Expect(errors.Is(err, types.ErrConfiguration)).To(BeTrue())
	})

	Context("when splitting and combining", func() {
		It("round trips for various party counts and moduli", func() {
			for _, parties := range []int{2, 3, 5} {
				for _, modulus := range []uint64{2, 97, 1 << 16, 1<<63 + 1} {
					scheme := newScheme(modulus, parties, 7)
					secret := uint64(modulus - 1)
					shares, err := scheme.Split(secret)
					Expect(err).NotTo(HaveOccurred())
					Expect(shares).To(HaveLen(parties))
					value, err := scheme.Combine(shares)
					Expect(err).NotTo(HaveOccurred())
					Expect(value).To(Equal(secret))
				}
			}
		})
		It("round trips independently of the share order", func() {
			scheme := newScheme(97, 3, 7)
			shares, err := scheme.Split(42)
			Expect(err).NotTo(HaveOccurred())
			reordered := []Share{shares[2], shares[0], shares[1]}
			value, err := scheme.Combine(reordered)
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal(uint64(42)))
		})
		It("rejects a secret outside of the ring", func() {
			scheme := newScheme(97, 3, 7)
			_, err := scheme.Split(97)
			Expect(errors.Is(err, types.ErrValueOutOfRange)).To(BeTrue())
		})
	})

	Context("when the share set is incomplete", func() {
		var scheme *Scheme
		var shares []Share
		BeforeEach(func() {
			scheme = newScheme(97, 3, 7)
			var err error
			shares, err = scheme.Split(42)
			Expect(err).NotTo(HaveOccurred())
		})
		It("rejects missing shares", func() {
			_, err := scheme.Combine(shares[:2])
			Expect(errors.Is(err, types.ErrIncompleteShareSet)).To(BeTrue())
		})
		It("rejects duplicated party indices", func() {
			_, err := scheme.Combine([]Share{shares[0], shares[1], shares[1]})
			Expect(errors.Is(err, types.ErrIncompleteShareSet)).To(BeTrue())
		})
		It("rejects shares of unknown parties", func() {
			shares[2].Party = 7
			_, err := scheme.Combine(shares)
			Expect(errors.Is(err, types.ErrIncompleteShareSet)).To(BeTrue())
		})
		It("rejects share values outside of the ring", func() {
			shares[1].Value = 1000
			_, err := scheme.Combine(shares)
			Expect(errors.Is(err, types.ErrValueOutOfRange)).To(BeTrue())
		})
	})

	Context("when refreshing a sharing", func() {
		It("changes the shares but not the secret", func() {
			r, _ := ring.New(97)
			scheme := newScheme(97, 3, 11)
			shares, err := scheme.Split(42)
			Expect(err).NotTo(HaveOccurred())
			offsets, err := scheme.ZeroShares()
			Expect(err).NotTo(HaveOccurred())
			Expect(offsets).To(HaveLen(3))
			refreshed := make([]Share, len(shares))
			for i, sh := range shares {
				left := (i + len(shares) - 1) % len(shares)
				refreshed[i] = Share{
					Party: sh.Party,
					Value: r.Sub(r.Add(sh.Value, offsets[left]), offsets[i]),
				}
			}
			value, err := scheme.Combine(refreshed)
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal(uint64(42)))
		})
	})

	Context("when inspecting the share distribution", func() {
		It("hides the secret in every proper subset", func() {
			// With the same source sequence, all shares but the last are
			// identical for different secrets. Only the remainder share
			// depends on the secret, so any n-1 shares reveal nothing.
			first, err := newScheme(97, 3, 99).Split(5)
			Expect(err).NotTo(HaveOccurred())
			second, err := newScheme(97, 3, 99).Split(80)
			Expect(err).NotTo(HaveOccurred())
			Expect(first[0]).To(Equal(second[0]))
			Expect(first[1]).To(Equal(second[1]))
			Expect(first[2]).NotTo(Equal(second[2]))
		})
	})
})
