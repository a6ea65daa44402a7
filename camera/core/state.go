// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Kind identifies an enum type. One State per Kind is held by the AggregateStatus.
type Kind string

// Variant is one value of an enum type.
type Variant interface {
	Kind() Kind
	String() string
}

// Enum constrains the value type of a State.
type Enum interface {
	comparable
	Variant
}

// Observable is the type-erased view of a State held by the AggregateStatus.
type Observable interface {
	Kind() Kind
	Current() Variant
	Matches(v Variant) bool
	LastModified() time.Time
}

// Transition describes one committed state change.
type Transition struct {
	Kind Kind
	Old  Variant
	New  Variant
	At   time.Time
}

// ListenerID identifies a registered listener so it can be removed.
type ListenerID uint64

var lastListenerID uint64

func nextListenerID() ListenerID {
	return ListenerID(atomic.AddUint64(&lastListenerID, 1))
}

// StateListener is called after a State changes value.
type StateListener[T Enum] func(s *State[T], old, current T)

type stateListener[T Enum] struct {
	id ListenerID
	fn StateListener[T]
}

type change[T Enum] struct {
	from, to T
	at       time.Time
}

// State encapsulates a single enum value and generates state change events.
//
// Transitions of a single State are totally ordered. Listeners run on the
// goroutine that committed the transition, after the value has been swapped and
// before Set returns. A transition committed while another goroutine (or a
// listener further up the same stack) is delivering is queued and delivered, in
// commit order, by that delivering goroutine.
// Such a Set returns once its value is committed, possibly before its
// listeners have run; code that depends on a listener's effect waits for it
// with CCS.WaitForStatus.
type State[T Enum] struct {
	ccs  *CCS
	kind Kind

	mu           sync.Mutex
	current      T
	lastModified time.Time
	listeners    []stateListener[T]
	pending      []change[T]
	delivering   bool
}

// NewState creates a state holding initial and registers it with the hub's
// aggregate status, replacing any state previously registered for the same kind.
func NewState[T Enum](ccs *CCS, initial T) *State[T] {
	s := &State[T]{
		ccs:          ccs,
		kind:         initial.Kind(),
		current:      initial,
		lastModified: time.Now(),
	}
	ccs.Status().Register(s)
	return s
}

// Kind returns the kind of the values held.
func (s *State[T]) Kind() Kind {
	return s.kind
}

// Get returns the current value.
func (s *State[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Current returns the current value as a Variant.
func (s *State[T]) Current() Variant {
	return s.Get()
}

// LastModified returns the time of the last committed transition.
func (s *State[T]) LastModified() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastModified
}

// IsIn reports whether the current value is v.
func (s *State[T]) IsIn(v T) bool {
	return s.Get() == v
}

// Matches reports whether v is of this state's type and equals the current value.
func (s *State[T]) Matches(v Variant) bool {
	t, ok := v.(T)
	return ok && s.IsIn(t)
}

// RequireOneOf returns an InvalidStateError unless the current value is one of vs.
func (s *State[T]) RequireOneOf(vs ...T) error {
	current := s.Get()
	for _, v := range vs {
		if v == current {
			return nil
		}
	}
	expected := make([]Variant, len(vs))
	for i, v := range vs {
		expected[i] = v
	}
	return &InvalidStateError{Kind: s.kind, Expected: expected, Actual: current}
}

// Set changes the current value. Setting the current value again is a no-op
// and notifies no one.
func (s *State[T]) Set(v T) {
	s.mu.Lock()
	if s.current == v {
		s.mu.Unlock()
		return
	}
	s.commitUnsafe(v)
	s.deliverAndUnlock()
}

// SwapIf sets v only if the current value is expected, and reports whether it did.
// Timer actions use it so that a late firing cannot overwrite a state that has
// already moved on.
func (s *State[T]) SwapIf(expected, v T) bool {
	s.mu.Lock()
	if s.current != expected {
		s.mu.Unlock()
		return false
	}
	if expected == v {
		s.mu.Unlock()
		return true
	}
	s.commitUnsafe(v)
	s.deliverAndUnlock()
	return true
}

// AddListener registers fn to be called after every transition of this state.
func (s *State[T]) AddListener(fn StateListener[T]) ListenerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := nextListenerID()
	listeners := make([]stateListener[T], len(s.listeners), len(s.listeners)+1)
	copy(listeners, s.listeners)
	s.listeners = append(listeners, stateListener[T]{id: id, fn: fn})
	return id
}

// RemoveListener unregisters a listener. Unknown ids are ignored.
func (s *State[T]) RemoveListener(id ListenerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listeners := make([]stateListener[T], 0, len(s.listeners))
	for _, l := range s.listeners {
		if l.id != id {
			listeners = append(listeners, l)
		}
	}
	s.listeners = listeners
}

func (s *State[T]) commitUnsafe(v T) {
	old := s.current
	s.current = v
	s.lastModified = time.Now()
	s.pending = append(s.pending, change[T]{from: old, to: v, at: s.lastModified})
}

// deliverAndUnlock must be called with s.mu held.
func (s *State[T]) deliverAndUnlock() {
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		c := s.pending[0]
		s.pending = s.pending[1:]
		listeners := s.listeners
		s.mu.Unlock()

		s.deliver(c, listeners)

		s.mu.Lock()
	}
	s.pending = nil
	s.delivering = false
	s.mu.Unlock()
}

func (s *State[T]) deliver(c change[T], listeners []stateListener[T]) {
	log.Infof("State Changed %s: %s->%s", s.kind, c.from, c.to)
	for _, l := range listeners {
		s.callListener(l, c)
	}
	s.ccs.notifyStateChanged(Transition{Kind: s.kind, Old: c.from, New: c.to, At: c.at})
}

func (s *State[T]) callListener(l stateListener[T], c change[T]) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Listener on %s panicked handling %s->%s: %v", s.kind, c.from, c.to, r)
		}
	}()
	l.fn(s, c.from, c.to)
}

func (s *State[T]) String() string {
	return "State{" + string(s.kind) + " = " + s.Get().String() + "}"
}
