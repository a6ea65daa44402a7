// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package devices

import (
	"sync"
	"time"

	"github.com/tony-johnson/ToyOCSBridge/camera/core"
)

// RaftsState is the state of the science sensor array.
type RaftsState int

const (
	RaftsClearing RaftsState = iota
	RaftsQuiescent
	RaftsIntegrating
	RaftsReadingOut
	RaftsNeedsClear
)

// RaftsKind ...
const RaftsKind core.Kind = "RaftsState"

var raftsNames = [...]string{"Clearing", "Quiescent", "Integrating", "ReadingOut", "NeedsClear"}

func (RaftsState) Kind() core.Kind  { return RaftsKind }
func (r RaftsState) String() string { return raftsNames[r] }

// Rafts simulates the sensor array. A quiescent array needs a clear once it
// has been idle for IdleBeforeClear.
type Rafts struct {
	ccs    *core.CCS
	timing RaftsTiming
	state  *core.State[RaftsState]

	mu         sync.Mutex
	needsClear *core.ScheduledAction
	sequence   []*core.ScheduledAction
}

// NewRafts returns an array that needs clearing.
func NewRafts(ccs *core.CCS, timing RaftsTiming) *Rafts {
	r := &Rafts{
		ccs:    ccs,
		timing: timing,
		state:  core.NewState(ccs, RaftsNeedsClear),
	}
	r.state.AddListener(func(_ *core.State[RaftsState], _, current RaftsState) {
		if current == RaftsQuiescent {
			r.rearmNeedsClear()
		} else {
			r.cancelNeedsClear()
		}
	})
	return r
}

// State ...
func (r *Rafts) State() *core.State[RaftsState] {
	return r.state
}

// Timing ...
func (r *Rafts) Timing() RaftsTiming {
	return r.timing
}

// Clear clears the array n times, returning it to Quiescent.
func (r *Rafts) Clear(n int) error {
	if err := r.state.RequireOneOf(RaftsQuiescent, RaftsNeedsClear); err != nil {
		return err
	}
	r.replaceSequence()
	r.state.Set(RaftsClearing)
	r.replaceSequence(r.ccs.Schedule(time.Duration(n)*r.timing.Clear, func() {
		r.state.SwapIf(RaftsClearing, RaftsQuiescent)
	}))
	return nil
}

// Expose integrates for integration then reads out.
func (r *Rafts) Expose(integration time.Duration) error {
	if err := r.state.RequireOneOf(RaftsQuiescent); err != nil {
		return err
	}
	r.replaceSequence()
	r.state.Set(RaftsIntegrating)
	r.replaceSequence(
		r.ccs.Schedule(integration, func() { r.state.SwapIf(RaftsIntegrating, RaftsReadingOut) }),
		r.ccs.Schedule(integration+r.timing.Readout, func() { r.state.SwapIf(RaftsReadingOut, RaftsQuiescent) }),
	)
	return nil
}

// StartExposure starts an integration of open-ended length.
func (r *Rafts) StartExposure() error {
	if err := r.state.RequireOneOf(RaftsQuiescent); err != nil {
		return err
	}
	r.replaceSequence()
	r.state.Set(RaftsIntegrating)
	return nil
}

// EndExposure ends the integration, either reading out or discarding the image.
func (r *Rafts) EndExposure(readout bool) error {
	if err := r.state.RequireOneOf(RaftsIntegrating); err != nil {
		return err
	}
	r.replaceSequence()
	if !readout {
		r.state.Set(RaftsNeedsClear)
		return nil
	}
	r.state.Set(RaftsReadingOut)
	r.replaceSequence(r.ccs.Schedule(r.timing.Readout, func() {
		r.state.SwapIf(RaftsReadingOut, RaftsQuiescent)
	}))
	return nil
}

func (r *Rafts) replaceSequence(actions ...*core.ScheduledAction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.sequence {
		a.Cancel()
	}
	r.sequence = actions
}

func (r *Rafts) rearmNeedsClear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.needsClear != nil {
		r.needsClear.Cancel()
	}
	r.needsClear = r.ccs.Schedule(r.timing.IdleBeforeClear, func() {
		r.state.SwapIf(RaftsQuiescent, RaftsNeedsClear)
	})
}

func (r *Rafts) cancelNeedsClear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.needsClear != nil {
		r.needsClear.Cancel()
		r.needsClear = nil
	}
}
