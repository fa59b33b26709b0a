// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
package main_test

import (
	"errors"
	"fmt"
	"io/ioutil"
	mrand "math/rand"
	"os"
	"strconv"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	. "github.com/moirai-mpc/moirai/cmd/moirai"
	"github.com/moirai-mpc/moirai/pkg/types"
)

func typedConf(parties int, modulus uint64, seed int64) *types.SessionTypedConfig {
	return &types.SessionTypedConfig{
		PlayerCount: parties,
		Modulus:     modulus,
		Rand:        mrand.New(mrand.NewSource(seed)),
	}
}

var _ = Describe("Main", func() {

	Context("when working with a real config file", func() {
		var path string
		writeConfig := func(data string) {
			file, err := ioutil.TempFile("", "moirai_config_")
			Expect(err).NotTo(HaveOccurred())
			path = file.Name()
			_, err = file.WriteString(data)
			Expect(err).NotTo(HaveOccurred())
			Expect(file.Close()).To(Succeed())
		}
		AfterEach(func() {
			if path != "" {
				Expect(os.Remove(path)).To(Succeed())
				path = ""
			}
		})
		Context("when it succeeds", func() {
			It("initializes the config", func() {
				writeConfig(`{"playerCount":3,"modulus":"97","busSize":100}`)
				conf, err := ParseConfig(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(conf.PlayerCount).To(Equal(3))
				Expect(conf.Modulus).To(Equal("97"))
				Expect(conf.BusSize).To(Equal(100))
			})
		})
		Context("when JSON format is corrupt", func() {
			It("returns an error", func() {
				writeConfig(`abc`)
				conf, err := ParseConfig(path)
				Expect(err).To(HaveOccurred())
				Expect(conf).To(BeNil())
			})
		})
		Context("when the player count is missing", func() {
			It("returns an error", func() {
				writeConfig(`{"modulus":"97"}`)
				conf, err := ParseConfig(path)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(Equal("missing config error, PlayerCount must be defined"))
				Expect(conf).To(BeNil())
			})
		})
		Context("when the player count is too small", func() {
			It("returns an error", func() {
				writeConfig(`{"playerCount":1,"modulus":"97"}`)
				conf, err := ParseConfig(path)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(Equal("invalid config error, PlayerCount must be 2 or higher"))
				Expect(conf).To(BeNil())
			})
		})
		Context("when the modulus is missing", func() {
			It("returns an error", func() {
				writeConfig(`{"playerCount":3}`)
				conf, err := ParseConfig(path)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(Equal("missing config error, Modulus must be defined"))
				Expect(conf).To(BeNil())
			})
		})
	})
	Context("when reading a file fails", func() {
		It("returns an error", func() {
			conf, err := ParseConfig(fmt.Sprintf("/non-existing-location-%d", mrand.Int63()))
			Expect(err).To(HaveOccurred())
			Expect(conf).To(BeNil())
		})
	})

	Context("when resolving the configuration from flags", func() {
		It("derives the modulus from the bit width", func() {
			conf, err := ResolveConfig("", 3, 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(conf.PlayerCount).To(Equal(3))
			Expect(conf.Modulus).To(Equal("256"))
		})
		It("rejects bit widths outside of the element type", func() {
			_, err := ResolveConfig("", 3, 0)
			Expect(err).To(HaveOccurred())
			_, err = ResolveConfig("", 3, 64)
			Expect(err).To(HaveOccurred())
		})
		It("rejects less than two parties", func() {
			_, err := ResolveConfig("", 1, 8)
			Expect(err).To(HaveOccurred())
		})
		It("prefers the config file when a path is given", func() {
			file, err := ioutil.TempFile("", "moirai_config_")
			Expect(err).NotTo(HaveOccurred())
			defer os.Remove(file.Name())
			_, err = file.WriteString(`{"playerCount":5,"modulus":"65536"}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(file.Close()).To(Succeed())
			conf, err := ResolveConfig(file.Name(), 3, 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(conf.PlayerCount).To(Equal(5))
			Expect(conf.Modulus).To(Equal("65536"))
		})
	})

	Context("when initializing the typed config", func() {
		It("succeeds when all parameters are specified", func() {
			conf, err := InitTypedConfig(&types.SessionConfig{PlayerCount: 3, Modulus: "97", BusSize: 50})
			Expect(err).NotTo(HaveOccurred())
			Expect(conf.PlayerCount).To(Equal(3))
			Expect(conf.Modulus).To(Equal(uint64(97)))
			Expect(conf.BusSize).To(Equal(50))
		})
		It("carries a full uint64 modulus", func() {
			conf, err := InitTypedConfig(&types.SessionConfig{PlayerCount: 3, Modulus: "18446744073709551615"})
			Expect(err).NotTo(HaveOccurred())
			Expect(conf.Modulus).To(Equal(uint64(18446744073709551615)))
		})
		Context("when the modulus format is corrupt", func() {
			It("returns an error", func() {
				conf, err := InitTypedConfig(&types.SessionConfig{PlayerCount: 3, Modulus: "abc"})
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(Equal("wrong modulus format"))
				Expect(conf).To(BeNil())
			})
		})
		Context("when the modulus is trivial", func() {
			It("returns an error", func() {
				conf, err := InitTypedConfig(&types.SessionConfig{PlayerCount: 3, Modulus: "1"})
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(Equal("modulus must be greater than 1"))
				Expect(conf).To(BeNil())
			})
		})
	})

	Context("when sharing and reconstructing", func() {
		It("round trips a secret through decimal share values", func() {
			conf := typedConf(3, 97, 1)
			shares, err := ShareSecret(conf, "42")
			Expect(err).NotTo(HaveOccurred())
			Expect(shares).To(HaveLen(3))
			raw := make([]string, len(shares))
			for i, s := range shares {
				raw[i] = strconv.FormatUint(s.Value, 10)
			}
			secret, err := Reconstruct(conf, raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(secret).To(Equal(uint64(42)))
		})
		It("rejects a non-numeric secret", func() {
			_, err := ShareSecret(typedConf(3, 97, 1), "abc")
			Expect(err).To(HaveOccurred())
		})
		It("rejects a secret outside of the ring", func() {
			_, err := ShareSecret(typedConf(3, 97, 1), "100")
			Expect(errors.Is(err, types.ErrValueOutOfRange)).To(BeTrue())
		})
		It("rejects a short share set", func() {
			_, err := Reconstruct(typedConf(3, 97, 1), []string{"1", "2"})
			Expect(err).To(HaveOccurred())
		})
		It("rejects a non-numeric share", func() {
			_, err := Reconstruct(typedConf(3, 97, 1), []string{"1", "2", "x"})
			Expect(err).To(HaveOccurred())
		})
	})

	Context("when running the demo", func() {
		It("walks through sharing, arithmetic and comparison", func() {
			result, err := RunDemo(typedConf(3, 1<<16, 2), "42", "58")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.X).To(Equal(uint64(42)))
			Expect(result.Y).To(Equal(uint64(58)))
			Expect(result.XShares).To(HaveLen(3))
			Expect(result.YShares).To(HaveLen(3))
			Expect(result.Sum).To(Equal(uint64(100)))
			Expect(result.HasProduct).To(BeTrue())
			Expect(result.Product).To(Equal(uint64(2436)))
			Expect(result.HasComparison).To(BeTrue())
			Expect(result.Comparison).To(Equal(uint64(0)))
			Expect(result.Rounds).To(BeNumerically(">", 0))
		})
		It("skips the comparison on a prime modulus", func() {
			result, err := RunDemo(typedConf(3, 97, 3), "42", "58")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Sum).To(Equal(uint64(3)))
			Expect(result.HasProduct).To(BeTrue())
			Expect(result.Product).To(Equal(uint64(11)))
			Expect(result.HasComparison).To(BeFalse())
		})
		It("falls back to the linear walkthrough with two parties", func() {
			result, err := RunDemo(typedConf(2, 97, 4), "42", "58")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Sum).To(Equal(uint64(3)))
			Expect(result.HasProduct).To(BeFalse())
			Expect(result.HasComparison).To(BeFalse())
		})
		It("rejects non-numeric operands", func() {
			_, err := RunDemo(typedConf(3, 97, 5), "forty-two", "58")
			Expect(err).To(HaveOccurred())
		})
	})

	Context("when running the selfcheck", func() {
		It("agrees with plaintext arithmetic", func() {
			results, err := RunSelfcheck(typedConf(3, 97, 6), []int{8}, 5, mrand.New(mrand.NewSource(66)))
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Size).To(Equal(8))
			Expect(results[0].Checks).To(Equal(5))
			Expect(results[0].Failures).To(Equal(0))
		})
		It("rejects two parties", func() {
			_, err := RunSelfcheck(typedConf(2, 97, 6), []int{8}, 5, mrand.New(mrand.NewSource(66)))
			Expect(errors.Is(err, types.ErrConfiguration)).To(BeTrue())
		})
		It("rejects a non-positive check count", func() {
			_, err := RunSelfcheck(typedConf(3, 97, 6), []int{8}, 0, mrand.New(mrand.NewSource(66)))
			Expect(err).To(HaveOccurred())
		})
		It("rejects a bit width without a comparison domain", func() {
			_, err := RunSelfcheck(typedConf(3, 97, 6), []int{1}, 5, mrand.New(mrand.NewSource(66)))
			Expect(err).To(HaveOccurred())
		})
	})
})
