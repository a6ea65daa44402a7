// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"strings"
	"sync"
	"time"

	"github.com/tony-johnson/ToyOCSBridge/camera/core/statejson"
)

// AggregateStatus is the collection of all registered states, one per Kind.
type AggregateStatus struct {
	mu     sync.RWMutex
	states map[Kind]Observable
	order  []Kind
}

// NewAggregateStatus returns an empty AggregateStatus.
func NewAggregateStatus() *AggregateStatus {
	return &AggregateStatus{states: make(map[Kind]Observable)}
}

// Register stores state under its kind, replacing any state already registered for that kind.
func (a *AggregateStatus) Register(state Observable) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, found := a.states[state.Kind()]; !found {
		a.order = append(a.order, state.Kind())
	}
	a.states[state.Kind()] = state
}

// Get returns the state registered for kind.
func (a *AggregateStatus) Get(kind Kind) (Observable, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.states[kind]
	return s, ok
}

// HasAll reports whether, for every v, a state of v's kind is registered and currently holds v.
func (a *AggregateStatus) HasAll(vs ...Variant) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, v := range vs {
		s, ok := a.states[v.Kind()]
		if !ok || !s.Matches(v) {
			return false
		}
	}
	return true
}

// States returns the registered states in registration order.
func (a *AggregateStatus) States() []Observable {
	a.mu.RLock()
	defer a.mu.RUnlock()
	states := make([]Observable, 0, len(a.order))
	for _, k := range a.order {
		states = append(states, a.states[k])
	}
	return states
}

// Describe returns a description of every registered state, in registration order.
func (a *AggregateStatus) Describe() []statejson.StateDescription {
	states := a.States()
	descriptions := make([]statejson.StateDescription, 0, len(states))
	for _, s := range states {
		descriptions = append(descriptions, statejson.StateDescription{
			Kind:         string(s.Kind()),
			Name:         s.Current().String(),
			LastModified: s.LastModified().UnixNano() / int64(time.Millisecond),
		})
	}
	return descriptions
}

func (a *AggregateStatus) String() string {
	var b strings.Builder
	b.WriteString("AggregateStatus{")
	for i, s := range a.States() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(s.Kind()))
		b.WriteString("=")
		b.WriteString(s.Current().String())
	}
	b.WriteString("}")
	return b.String()
}
