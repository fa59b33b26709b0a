// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
package session

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/moirai-mpc/moirai/pkg/types"
)

// Event drives the session lifecycle machine.
type Event struct {
	Name      string
	SessionID string
	// Wire names the wire the event is about, if any.
	Wire types.WireID
	// Cause carries the failure behind an EvaluationFailed event.
	Cause error
}

// Action is a user defined function executed in a callback.
type Action func(e *Event) error

// TransitionID is a tuple containing the triggering event and the source state.
type TransitionID struct {
	Event, Source string
}

// Transition defines a transition between lifecycle states.
type Transition struct {
	ID              TransitionID
	Event, Src, Dst string
}

// WhenIn specifies the source state of the transition.
func WhenIn(state string) *Transition {
	return &Transition{Src: state}
}

// WhenInAnyState targets transitions from all states.
func WhenInAnyState() *Transition {
	return &Transition{Src: "*"}
}

// GotEvent specifies the triggering event for the transition.
func (t *Transition) GotEvent(event string) *Transition {
	t.Event = event
	t.ID = TransitionID{
		Event:  event,
		Source: t.Src,
	}
	return t
}

// GoTo specifies the destination state.
func (t *Transition) GoTo(dst string) *Transition {
	t.Dst = dst
	return t
}

// Stay forces the transition to stay in the source state.
func (t *Transition) Stay() *Transition {
	t.Dst = t.Src
	return t
}

const (
	// CallbackAfterEnter is a callback type triggered when a new state was just entered.
	CallbackAfterEnter = "AfterEnter"
	// CallbackBeforeEnter is a callback type triggered right before a new state is entered.
	CallbackBeforeEnter = "BeforeEnter"
)

// Callback is a function executed as a response to an event during a state transition.
type Callback struct {
	Type   string
	Src    string
	Action Action
}

// AfterEnter defines a callback executed after entering the state.
func AfterEnter(state string) *Callback {
	return &Callback{
		Type: CallbackAfterEnter,
		Src:  state,
	}
}

// BeforeEnter defines a callback executed before entering the state.
func BeforeEnter(state string) *Callback {
	return &Callback{
		Type: CallbackBeforeEnter,
		Src:  state,
	}
}

// Do defines the function to execute in the callback.
func (c *Callback) Do(a Action) *Callback {
	c.Action = a
	return c
}

// InitCallbacksAndTransitions converts slices to the maps the machine indexes by.
func InitCallbacksAndTransitions(cbs []*Callback, trs []*Transition) (map[string][]*Callback, map[TransitionID]*Transition) {
	callbacks := map[string][]*Callback{}
	transitions := map[TransitionID]*Transition{}
	for _, c := range cbs {
		callbacksBySource, ok := callbacks[c.Src]
		if !ok {
			callbacksBySource = []*Callback{}
		}
		callbacks[c.Src] = append(callbacksBySource, c)
	}
	for _, t := range trs {
		transitions[t.ID] = t
	}
	return callbacks, transitions
}

// NewLifecycle returns a new lifecycle machine in the given initial state.
func NewLifecycle(initState string, trn map[TransitionID]*Transition, cb map[string][]*Callback, logger *zap.SugaredLogger) (*Lifecycle, error) {
	beforeCallbacks := make(map[string][]*Callback)
	afterCallbacks := make(map[string][]*Callback)
	for k, c := range cb {
		for _, i := range c {
			switch i.Type {
			case CallbackBeforeEnter:
				appendCallback(beforeCallbacks, k, i)
			case CallbackAfterEnter:
				appendCallback(afterCallbacks, k, i)
			default:
				return nil, errors.New("unsupported callback type")
			}
		}
	}
	history := NewHistory()
	history.AddState(initState)
	return &Lifecycle{
		afterCallbacks:  afterCallbacks,
		beforeCallbacks: beforeCallbacks,
		transitions:     trn,
		current:         initState,
		history:         history,
		logger:          logger,
	}, nil
}

// Lifecycle is a synchronous state machine. Events are processed in the
// caller's goroutine, one at a time: an event either performs a registered
// transition together with its callbacks, or it is rejected as a session
// state violation and the machine stays where it was.
type Lifecycle struct {
	afterCallbacks  map[string][]*Callback
	beforeCallbacks map[string][]*Callback
	transitions     map[TransitionID]*Transition
	current         string
	history         *History
	logger          *zap.SugaredLogger
	mux             sync.Mutex
}

// History returns the state transition history.
func (l *Lifecycle) History() *History {
	return l.history
}

// Current returns the current state of the machine.
func (l *Lifecycle) Current() string {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.current
}

// Fire processes one event. The event is recorded in the history whether it
// is allowed or not, so rejected calls stay visible. An event with no
// registered transition from the current state is the session state failure
// surfaced to the caller.
func (l *Lifecycle) Fire(event *Event) error {
	l.mux.Lock()
	defer l.mux.Unlock()
	l.history.AddEvent(event)
	trID := TransitionID{
		Source: l.current,
		Event:  event.Name,
	}
	// A transition with a specific source state supersedes the general one
	// matching any state "*".
	tr, ok := l.transitions[trID]
	if !ok {
		trID = TransitionID{
			Source: "*",
			Event:  event.Name,
		}
		tr, ok = l.transitions[trID]
		if !ok {
			return fmt.Errorf("event %s is not allowed in state %s: %w", event.Name, l.current, types.ErrInvalidSessionState)
		}
	}
	return l.doTransition(tr, event)
}

// doTransition executes the transition to the next state including the
// before- and after- callbacks.
func (l *Lifecycle) doTransition(tr *Transition, event *Event) error {
	l.logger.Debugw("Lifecycle transition", "from", tr.Src, "event", tr.Event, "to", tr.Dst)
	err := l.runCallbackIfExists(l.beforeCallbacks, tr.Dst, event)
	if err != nil {
		return err
	}
	l.current = tr.Dst
	l.history.AddState(l.current)
	return l.runCallbackIfExists(l.afterCallbacks, l.current, event)
}

// runCallbackIfExists executes the callbacks registered for a given state in
// order, does nothing otherwise.
func (l *Lifecycle) runCallbackIfExists(callbacks map[string][]*Callback, state string, event *Event) error {
	callbacksBySource, ok := callbacks[state]
	if ok {
		for _, cb := range callbacksBySource {
			err := cb.Action(event)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func appendCallback(mp map[string][]*Callback, k string, i *Callback) {
	cb, ok := mp[k]
	if !ok {
		cb = []*Callback{}
	}
	mp[k] = append(cb, i)
}

// NewHistory returns an empty lifecycle history.
func NewHistory() *History {
	return &History{
		received: []*Event{},
		states:   []string{},
	}
}

// History contains all received events and passed states including the current one.
type History struct {
	received  []*Event
	states    []string
	eventLock sync.Mutex
	stateLock sync.Mutex
}

// AddEvent writes a new event to the history.
func (h *History) AddEvent(ev *Event) {
	h.eventLock.Lock()
	defer h.eventLock.Unlock()
	h.received = append(h.received, ev)
}

// GetEvents returns a list of all events.
func (h *History) GetEvents() []*Event {
	h.eventLock.Lock()
	defer h.eventLock.Unlock()
	return h.received
}

// AddState saves the state to the history.
func (h *History) AddState(st string) {
	h.stateLock.Lock()
	defer h.stateLock.Unlock()
	h.states = append(h.states, st)
}

// GetStates returns the passed states including the current one.
func (h *History) GetStates() []string {
	h.stateLock.Lock()
	defer h.stateLock.Unlock()
	return h.states
}
