//
// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
//
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	mrand "math/rand"
	"os"
	"strconv"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/spf13/pflag"

	l "github.com/moirai-mpc/moirai/pkg/logger"
	"github.com/moirai-mpc/moirai/pkg/ring"
	"github.com/moirai-mpc/moirai/pkg/session"
	"github.com/moirai-mpc/moirai/pkg/sharing"
	"github.com/moirai-mpc/moirai/pkg/types"
)

const (
	// DefaultSize is the ring bit width used when no config file is given.
	DefaultSize = 32
	// DefaultParties is the number of simulated parties.
	DefaultParties = 3
	// DefaultChecks is the number of random checks per bit width in selfcheck mode.
	DefaultChecks = 100
)

// SelfcheckSizes are the ring bit widths the selfcheck mode sweeps.
var SelfcheckSizes = []int{8, 16, 32}

const usage = `Usage: moirai [flags] <mode> [args]

Modes:
  share NUMBER          split NUMBER into one share per party and print them
  reconstruct SHARE...  combine exactly one share per party into the secret
  demo NUMBER NUMBER    share both numbers and jointly add, multiply and compare them
  selfcheck             verify multiplication and comparison against plaintext arithmetic

Flags:
`

func main() {
	var (
		configPath = pflag.String("config", "", "path to a JSON session config, overrides --size and --parties")
		size       = pflag.Int("size", DefaultSize, "ring bit width, the modulus is 2^size")
		parties    = pflag.Int("parties", DefaultParties, "number of simulated parties")
		checks     = pflag.Int("checks", DefaultChecks, "random checks per bit width in selfcheck mode")
		verbose    = pflag.Bool("verbose", false, "log every protocol step")
	)
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()
	logger, err := l.NewLogger(*verbose)
	if err != nil {
		panic(err)
	}
	conf, err := ResolveConfig(*configPath, *parties, *size)
	if err != nil {
		logger.Fatalw("Invalid configuration", "cause", err)
	}
	typedConf, err := InitTypedConfig(conf)
	if err != nil {
		logger.Fatalw("Invalid configuration", "cause", err)
	}
	typedConf.Logger = logger
	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		os.Exit(2)
	}
	switch mode, rest := args[0], args[1:]; mode {
	case "share":
		if len(rest) != 1 {
			pflag.Usage()
			os.Exit(2)
		}
		shares, err := ShareSecret(typedConf, rest[0])
		if err != nil {
			logger.Fatalw("Sharing failed", "cause", err)
		}
		for _, s := range shares {
			fmt.Printf("party %d: %d\n", s.Party, s.Value)
		}
	case "reconstruct":
		secret, err := Reconstruct(typedConf, rest)
		if err != nil {
			logger.Fatalw("Reconstruction failed", "cause", err)
		}
		fmt.Printf("%d\n", secret)
	case "demo":
		if len(rest) != 2 {
			pflag.Usage()
			os.Exit(2)
		}
		result, err := RunDemo(typedConf, rest[0], rest[1])
		if err != nil {
			logger.Fatalw("Demo failed", "cause", err)
		}
		printDemo(result, typedConf.Modulus)
	case "selfcheck":
		rnd := mrand.New(mrand.NewSource(time.Now().UnixNano()))
		results, err := RunSelfcheck(typedConf, SelfcheckSizes, *checks, rnd)
		if err != nil {
			logger.Fatalw("Selfcheck failed", "cause", err)
		}
		failures := 0
		for _, r := range results {
			fmt.Printf("size %2d: %d checks, %d failures\n", r.Size, r.Checks, r.Failures)
			failures += r.Failures
		}
		if failures > 0 {
			os.Exit(1)
		}
	default:
		pflag.Usage()
		os.Exit(2)
	}
}

func printDemo(r *DemoResult, modulus uint64) {
	fmt.Printf("x = %d, shares %v\n", r.X, shareValues(r.XShares))
	fmt.Printf("y = %d, shares %v\n", r.Y, shareValues(r.YShares))
	fmt.Printf("x + y mod %d = %d\n", modulus, r.Sum)
	if r.HasProduct {
		fmt.Printf("x * y mod %d = %d\n", modulus, r.Product)
	}
	if r.HasComparison {
		fmt.Printf("x >= y = %d\n", r.Comparison)
	}
	fmt.Printf("finished in %d communication rounds\n", r.Rounds)
}

func shareValues(shares []sharing.Share) []uint64 {
	values := make([]uint64, len(shares))
	for i, s := range shares {
		values[i] = s.Value
	}
	return values
}

// ResolveConfig loads the config file when a path is given and derives the
// config from the command line flags otherwise.
func ResolveConfig(path string, parties, size int) (*types.SessionConfig, error) {
	if path != "" {
		return ParseConfig(path)
	}
	if size < 1 || size > 63 {
		return nil, fmt.Errorf("size must be in 1..63, got %d", size)
	}
	if parties < 2 {
		return nil, errors.New("invalid config error, PlayerCount must be 2 or higher")
	}
	return &types.SessionConfig{
		PlayerCount: parties,
		Modulus:     strconv.FormatUint(1<<uint(size), 10),
	}, nil
}

// ParseConfig reads the configuration file content.
func ParseConfig(path string) (*types.SessionConfig, error) {
	bytes, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conf types.SessionConfig
	err = json.Unmarshal(bytes, &conf)
	if err != nil {
		return nil, err
	}
	if conf.PlayerCount == 0 {
		return nil, errors.New("missing config error, PlayerCount must be defined")
	}
	if conf.PlayerCount < 2 {
		return nil, errors.New("invalid config error, PlayerCount must be 2 or higher")
	}
	if conf.Modulus == "" {
		return nil, errors.New("missing config error, Modulus must be defined")
	}
	return &conf, nil
}

// InitTypedConfig converts the string parameters that were parsed by the
// standard json parser to the parameters which are used internally, e.g. the
// decimal modulus string to a full uint64.
func InitTypedConfig(conf *types.SessionConfig) (*types.SessionTypedConfig, error) {
	if !govalidator.IsNumeric(conf.Modulus) {
		return nil, errors.New("wrong modulus format")
	}
	modulus, err := strconv.ParseUint(conf.Modulus, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("wrong modulus format: %v", err)
	}
	if modulus <= 1 {
		return nil, errors.New("modulus must be greater than 1")
	}
	return &types.SessionTypedConfig{
		PlayerCount: conf.PlayerCount,
		Modulus:     modulus,
		BusSize:     conf.BusSize,
	}, nil
}

// ShareSecret splits the given decimal plaintext into one share per party.
func ShareSecret(conf *types.SessionTypedConfig, raw string) ([]sharing.Share, error) {
	value, err := parseValue(raw)
	if err != nil {
		return nil, err
	}
	scheme, err := newScheme(conf)
	if err != nil {
		return nil, err
	}
	return scheme.Split(value)
}

// Reconstruct combines one decimal share value per party, in party order,
// back into the plaintext.
func Reconstruct(conf *types.SessionTypedConfig, raw []string) (uint64, error) {
	if len(raw) != conf.PlayerCount {
		return 0, fmt.Errorf("need exactly %d shares, got %d", conf.PlayerCount, len(raw))
	}
	shares := make([]sharing.Share, len(raw))
	for i, r := range raw {
		value, err := parseValue(r)
		if err != nil {
			return 0, err
		}
		shares[i] = sharing.Share{Party: types.PartyIndex(i), Value: value}
	}
	scheme, err := newScheme(conf)
	if err != nil {
		return 0, err
	}
	return scheme.Combine(shares)
}

// DemoResult carries everything the demo mode prints.
type DemoResult struct {
	X, Y             uint64
	XShares, YShares []sharing.Share
	Sum              uint64
	Product          uint64
	HasProduct       bool
	Comparison       uint64
	HasComparison    bool
	Rounds           uint64
}

// RunDemo shares both operands, prints their shares, and jointly computes
// x + y, x * y and x >= y in one session. Product and comparison are skipped
// when the configuration cannot run them, linear demos work from 2 parties on.
func RunDemo(conf *types.SessionTypedConfig, rawX, rawY string) (*DemoResult, error) {
	x, err := parseValue(rawX)
	if err != nil {
		return nil, err
	}
	y, err := parseValue(rawY)
	if err != nil {
		return nil, err
	}
	// The session keeps its shares to itself, so the sharing walkthrough of
	// the demo output splits the operands once more outside of it.
	scheme, err := newScheme(conf)
	if err != nil {
		return nil, err
	}
	result := &DemoResult{X: x, Y: y}
	result.XShares, err = scheme.Split(x)
	if err != nil {
		return nil, err
	}
	result.YShares, err = scheme.Split(y)
	if err != nil {
		return nil, err
	}
	s, err := session.New(conf)
	if err != nil {
		return nil, err
	}
	wx, err := s.SubmitSecret(x)
	if err != nil {
		return nil, err
	}
	wy, err := s.SubmitSecret(y)
	if err != nil {
		return nil, err
	}
	sum, err := s.Add(wx, wy)
	if err != nil {
		return nil, err
	}
	product, err := s.Mul(wx, wy)
	switch {
	case err == nil:
		result.HasProduct = true
	case !errors.Is(err, types.ErrConfiguration):
		return nil, err
	}
	comparison, err := s.CompareGTE(wx, wy)
	switch {
	case err == nil:
		result.HasComparison = true
	case !errors.Is(err, types.ErrConfiguration):
		return nil, err
	}
	rounds := make(chan uint64, 1)
	err = s.Bus().Subscribe(types.EngineEventsTopic, func(e interface{}) {
		if ev, ok := e.(*types.EngineEvent); ok && ev.Name == types.EvaluationCompleted {
			select {
			case rounds <- ev.Round:
			default:
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if err := s.Evaluate(context.Background()); err != nil {
		return nil, err
	}
	if result.Sum, err = s.Reveal(sum); err != nil {
		return nil, err
	}
	if result.HasProduct {
		if result.Product, err = s.Reveal(product); err != nil {
			return nil, err
		}
	}
	if result.HasComparison {
		if result.Comparison, err = s.Reveal(comparison); err != nil {
			return nil, err
		}
	}
	select {
	case r := <-rounds:
		result.Rounds = r
	case <-time.After(time.Second):
	}
	return result, nil
}

// SelfcheckResult summarizes the sweep over one ring bit width.
type SelfcheckResult struct {
	Size     int
	Checks   int
	Failures int
}

// RunSelfcheck draws random operand pairs per bit width and verifies the
// jointly computed product and comparison against plaintext arithmetic.
func RunSelfcheck(conf *types.SessionTypedConfig, sizes []int, checks int, rnd *mrand.Rand) ([]SelfcheckResult, error) {
	if conf.PlayerCount < 3 {
		return nil, fmt.Errorf("selfcheck multiplies and compares, it needs at least 3 parties, got %d: %w", conf.PlayerCount, types.ErrConfiguration)
	}
	if checks < 1 {
		return nil, fmt.Errorf("checks must be positive, got %d", checks)
	}
	results := make([]SelfcheckResult, 0, len(sizes))
	for _, size := range sizes {
		if size < 2 || size > 63 {
			return nil, fmt.Errorf("selfcheck size must be in 2..63, got %d", size)
		}
		modulus := uint64(1) << uint(size)
		half := int64(1) << uint(size-1)
		result := SelfcheckResult{Size: size, Checks: checks}
		for i := 0; i < checks; i++ {
			x := uint64(rnd.Int63n(half))
			y := uint64(rnd.Int63n(half))
			ok, err := checkPair(conf, modulus, x, y)
			if err != nil {
				return nil, err
			}
			if !ok {
				result.Failures++
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// checkPair runs one joint multiplication and comparison of x and y and
// reports whether both reveal the plaintext truth.
func checkPair(conf *types.SessionTypedConfig, modulus uint64, x, y uint64) (bool, error) {
	s, err := session.New(&types.SessionTypedConfig{
		PlayerCount: conf.PlayerCount,
		Modulus:     modulus,
		BusSize:     conf.BusSize,
		Rand:        conf.Rand,
		Logger:      conf.Logger,
	})
	if err != nil {
		return false, err
	}
	wx, err := s.SubmitSecret(x)
	if err != nil {
		return false, err
	}
	wy, err := s.SubmitSecret(y)
	if err != nil {
		return false, err
	}
	product, err := s.Mul(wx, wy)
	if err != nil {
		return false, err
	}
	comparison, err := s.CompareGTE(wx, wy)
	if err != nil {
		return false, err
	}
	if err := s.Evaluate(context.Background()); err != nil {
		return false, err
	}
	gotProduct, err := s.Reveal(product)
	if err != nil {
		return false, err
	}
	gotComparison, err := s.Reveal(comparison)
	if err != nil {
		return false, err
	}
	wantProduct := x * y % modulus
	var wantComparison uint64
	if x >= y {
		wantComparison = 1
	}
	return gotProduct == wantProduct && gotComparison == wantComparison, nil
}

func parseValue(raw string) (uint64, error) {
	if raw == "" || !govalidator.IsNumeric(raw) {
		return 0, fmt.Errorf("%q is not a decimal number", raw)
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a decimal number: %v", raw, err)
	}
	return value, nil
}

func newScheme(conf *types.SessionTypedConfig) (*sharing.Scheme, error) {
	rng, err := ring.New(conf.Modulus)
	if err != nil {
		return nil, err
	}
	sampler := ring.NewSampler(rng, conf.Rand)
	return sharing.NewScheme(rng, sampler, conf.PlayerCount)
}
