// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package devices

import (
	"sync"
	"time"

	"github.com/tony-johnson/ToyOCSBridge/camera/core"
)

// ShutterReadiness tells whether the shutter motors are powered up and ready to move.
type ShutterReadiness int

const (
	ShutterNotReady ShutterReadiness = iota
	ShutterReady
	ShutterGettingReady
)

// ShutterPosition is where the shutter blades are.
type ShutterPosition int

const (
	ShutterClosed ShutterPosition = iota
	ShutterOpening
	ShutterOpen
	ShutterClosing
)

const (
	ShutterReadinessKind core.Kind = "ShutterReadinessState"
	ShutterPositionKind  core.Kind = "ShutterState"
)

var (
	shutterReadinessNames = [...]string{"NotReady", "Ready", "GettingReady"}
	shutterPositionNames  = [...]string{"Closed", "Opening", "Open", "Closing"}
)

func (ShutterReadiness) Kind() core.Kind  { return ShutterReadinessKind }
func (r ShutterReadiness) String() string { return shutterReadinessNames[r] }
func (ShutterPosition) Kind() core.Kind   { return ShutterPositionKind }
func (p ShutterPosition) String() string  { return shutterPositionNames[p] }

// Shutter simulates a two blade shutter. The motors stay powered for
// ReadyHold after a prepare or after the shutter closes, then drop back to NotReady.
type Shutter struct {
	ccs       *core.CCS
	timing    ShutterTiming
	readiness *core.State[ShutterReadiness]
	position  *core.State[ShutterPosition]

	mu       sync.Mutex
	notReady *core.ScheduledAction
	prep     *core.ScheduledAction
	motion   []*core.ScheduledAction
}

// NewShutter returns a closed, not ready shutter.
func NewShutter(ccs *core.CCS, timing ShutterTiming) *Shutter {
	s := &Shutter{
		ccs:       ccs,
		timing:    timing,
		readiness: core.NewState(ccs, ShutterNotReady),
		position:  core.NewState(ccs, ShutterClosed),
	}
	s.position.AddListener(func(_ *core.State[ShutterPosition], _, current ShutterPosition) {
		if current == ShutterClosed {
			s.rearmNotReady()
		} else {
			s.cancelNotReady()
		}
	})
	return s
}

// Readiness returns whether the shutter motors are powered up.
func (s *Shutter) Readiness() *core.State[ShutterReadiness] {
	return s.readiness
}

// Position ...
func (s *Shutter) Position() *core.State[ShutterPosition] {
	return s.position
}

// Timing ...
func (s *Shutter) Timing() ShutterTiming {
	return s.timing
}

// Prepare powers up the shutter; it becomes Ready after the prep time.
func (s *Shutter) Prepare() {
	s.cancelNotReady()
	s.readiness.Set(ShutterGettingReady)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prep != nil {
		s.prep.Cancel()
	}
	s.prep = s.ccs.Schedule(s.timing.Prep, func() {
		if s.readiness.SwapIf(ShutterGettingReady, ShutterReady) {
			s.rearmNotReady()
		}
	})
}

// Expose opens the shutter, holds it open for exposure, then closes it.
func (s *Shutter) Expose(exposure time.Duration) error {
	if err := s.requireReadyAndClosed(); err != nil {
		return err
	}
	s.position.Set(ShutterOpening)

	move := s.timing.Move
	s.replaceMotion(
		s.ccs.Schedule(move, func() { s.position.SwapIf(ShutterOpening, ShutterOpen) }),
		s.ccs.Schedule(move+exposure, func() { s.position.SwapIf(ShutterOpen, ShutterClosing) }),
		s.ccs.Schedule(2*move+exposure, func() { s.position.SwapIf(ShutterClosing, ShutterClosed) }),
	)
	return nil
}

// Open starts opening the shutter.
func (s *Shutter) Open() error {
	if err := s.requireReadyAndClosed(); err != nil {
		return err
	}
	s.position.Set(ShutterOpening)
	s.replaceMotion(s.ccs.Schedule(s.timing.Move, func() { s.position.SwapIf(ShutterOpening, ShutterOpen) }))
	return nil
}

// Close starts closing an open shutter. Closing a closed shutter does nothing.
func (s *Shutter) Close() error {
	if s.position.IsIn(ShutterClosed) {
		return nil
	}
	if err := s.position.RequireOneOf(ShutterOpen); err != nil {
		return err
	}
	s.replaceMotion()
	s.position.Set(ShutterClosing)
	s.replaceMotion(s.ccs.Schedule(s.timing.Move, func() { s.position.SwapIf(ShutterClosing, ShutterClosed) }))
	return nil
}

func (s *Shutter) requireReadyAndClosed() error {
	if err := s.readiness.RequireOneOf(ShutterReady); err != nil {
		return err
	}
	return s.position.RequireOneOf(ShutterClosed)
}

func (s *Shutter) replaceMotion(actions ...*core.ScheduledAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.motion {
		a.Cancel()
	}
	s.motion = actions
}

func (s *Shutter) rearmNotReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notReady != nil {
		s.notReady.Cancel()
	}
	s.notReady = s.ccs.Schedule(s.timing.ReadyHold, func() {
		s.readiness.SwapIf(ShutterReady, ShutterNotReady)
	})
}

func (s *Shutter) cancelNotReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notReady != nil {
		s.notReady.Cancel()
		s.notReady = nil
	}
}
