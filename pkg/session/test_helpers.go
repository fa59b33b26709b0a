//
// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
//
package session

import (
	"fmt"
	"time"

	"github.com/moirai-mpc/moirai/pkg/types"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// WaitDoneOrTimeout waits until either something came from the done channel or a timeout occurred.
func WaitDoneOrTimeout(done chan struct{}, t ...time.Duration) {
	var timeout time.Duration
	if t == nil {
		timeout = 1 * time.Second
	} else {
		timeout = t[0]
	}
	select {
	case <-done:
		// the ping is on time, just continue.
	case <-time.After(timeout):
		err := fmt.Sprintf("test timeout, exit after %s", timeout)
		// make the test fail.
		Expect(err).NotTo(Equal(err))
	}
}

// Assert subscribes for a topic on the session's bus, waits until the named
// lifecycle event is received, executes the assertions on the state history
// and signals to the done channel once finished. If no assertions are
// specified, it just verifies that the event was received.
func Assert(event string, s LifecycleWithBus, done chan struct{}, assert func([]string), topic ...string) {
	var t string
	if topic != nil {
		t = topic[0]
	} else {
		t = types.SessionEventsTopic
	}
	s.Bus().Subscribe(t, func(e interface{}) {
		defer GinkgoRecover()
		ev := e.(*types.SessionEvent)
		if ev.Name == event {
			defer func() {
				done <- struct{}{}
			}()
			states := s.History().GetStates()
			assert(states)
		}
	})
}

// StatesAsserter allows checking the recorded lifecycle states one by one.
type StatesAsserter struct {
	states       []string
	currentIndex int
}

// NewStatesAsserter creates a new StatesAsserter over the provided states slice.
func NewStatesAsserter(states []string) *StatesAsserter {
	return &StatesAsserter{
		states: states,
	}
}

// ExpectNext returns an Assertion over the next element of the internal states slice.
// This method does not perform any bounds checking, so calling it one time too many will panic.
func (s *StatesAsserter) ExpectNext() Assertion {
	state := s.states[s.currentIndex]
	s.currentIndex++
	return Expect(state)
}
