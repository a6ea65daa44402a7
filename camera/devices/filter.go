// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package devices

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tony-johnson/ToyOCSBridge/camera/core"
	"github.com/tony-johnson/ToyOCSBridge/camera/core/statejson"
)

// ErrUnknownFilter returned when a filter is not installed in the wheel
var ErrUnknownFilter = errors.New("UnknownFilter")

// FilterState is the state of the filter changer mechanism.
type FilterState int

const (
	FilterUnloading FilterState = iota
	FilterLoading
	FilterLoaded
	FilterUnloaded
	FilterRotating
)

// FilterKind ...
const FilterKind core.Kind = "FilterState"

var filterNames = [...]string{"Unloading", "Loading", "Loaded", "Unloaded", "Rotating"}

func (FilterState) Kind() core.Kind  { return FilterKind }
func (f FilterState) String() string { return filterNames[f] }

// FilterWheel simulates the filter changer: a carousel of filters, one of
// which may be loaded into the beam.
type FilterWheel struct {
	ccs     *core.CCS
	timing  FilterTiming
	filters []string
	state   *core.State[FilterState]

	mu       sync.Mutex
	current  string
	rotation int
}

// NewFilterWheel returns a wheel with nothing loaded, at rotation 0.
func NewFilterWheel(ccs *core.CCS, timing FilterTiming, filters []string) *FilterWheel {
	return &FilterWheel{
		ccs:     ccs,
		timing:  timing,
		filters: append([]string(nil), filters...),
		state:   core.NewState(ccs, FilterUnloaded),
	}
}

// State ...
func (f *FilterWheel) State() *core.State[FilterState] {
	return f.state
}

// Timing ...
func (f *FilterWheel) Timing() FilterTiming {
	return f.timing
}

// Available returns the installed filters in carousel order.
func (f *FilterWheel) Available() []string {
	return append([]string(nil), f.filters...)
}

// IsAvailable reports whether name is installed in the carousel.
func (f *FilterWheel) IsAvailable(name string) bool {
	return f.position(name) >= 0
}

// Current returns the loaded filter, or "" if none is loaded.
func (f *FilterWheel) Current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Rotation returns the carousel rotation in degrees.
func (f *FilterWheel) Rotation() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rotation
}

// Describe returns the loaded filter, rotation and installed filters.
func (f *FilterWheel) Describe() *statejson.FilterDescription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &statejson.FilterDescription{Name: f.current, Rotation: f.rotation, Available: f.Available()}
}

// SetFilter unloads the current filter, rotates the carousel and loads name,
// blocking until the filter is loaded.
func (f *FilterWheel) SetFilter(name string) error {
	position := f.position(name)
	if position < 0 {
		return fmt.Errorf("invalid filter %s: %w", name, ErrUnknownFilter)
	}
	if err := f.state.RequireOneOf(FilterLoaded, FilterUnloaded); err != nil {
		return err
	}

	current := f.Current()
	if current == name {
		log.Debugf("Filter %s already loaded", name)
		return nil
	}

	if current != "" {
		err := f.step(FilterUnloading, FilterUnloaded, f.timing.Unload, func() {
			f.mu.Lock()
			f.current = ""
			f.mu.Unlock()
		})
		if err != nil {
			return fmt.Errorf("unloading %s: %w", current, err)
		}
	}

	target := position * 360 / len(f.filters)
	if rotation := f.Rotation(); rotation != target {
		degrees := abs(rotation-target) % 360
		err := f.step(FilterRotating, FilterUnloaded, time.Duration(degrees)*f.timing.RotationPerDegree, func() {
			f.mu.Lock()
			f.rotation = target
			f.mu.Unlock()
		})
		if err != nil {
			return fmt.Errorf("rotating to %d: %w", target, err)
		}
	}

	err := f.step(FilterLoading, FilterLoaded, f.timing.Load, func() {
		f.mu.Lock()
		f.current = name
		f.mu.Unlock()
	})
	if err != nil {
		return fmt.Errorf("loading %s: %w", name, err)
	}
	return nil
}

// step moves to transient, schedules the move to settled after d and waits for it.
// commit runs just before the move to settled is published.
func (f *FilterWheel) step(transient, settled FilterState, d time.Duration, commit func()) error {
	f.state.Set(transient)
	w := f.ccs.WaitForStatus(settled)
	f.ccs.Schedule(d, func() {
		if f.state.IsIn(transient) {
			commit()
			f.state.SwapIf(transient, settled)
		}
	})
	if err := w.Await(WaitDeadline(d)); err != nil {
		w.Cancel()
		return err
	}
	return nil
}

func (f *FilterWheel) position(name string) int {
	for i, n := range f.filters {
		if n == name {
			return i
		}
	}
	return -1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
