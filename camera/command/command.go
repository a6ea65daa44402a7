// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package command defines the closed set of commands accepted by the camera.
//
// OCS commands are submitted by the supervisory controller, gated by the
// executor and acknowledged. Local commands are administrative transitions
// issued by the operator; they bypass acknowledgement and busy gating.
package command

import (
	"fmt"
	"sort"
	"time"
)

// ID correlates a command with the responses reported for it.
type ID string

// Command is implemented only by the variants declared in this package.
type Command interface {
	CorrelationID() ID
	SetCorrelationID(id ID)
	Name() string
	command()
}

// Local is a Command that bypasses acknowledgement and busy gating.
type Local interface {
	Command
	local()
}

// Base carries the fields common to all commands.
type Base struct {
	ID ID `json:"id,omitempty"`
}

// CorrelationID returns the id responses are reported under.
func (b *Base) CorrelationID() ID {
	return b.ID
}

func (b *Base) SetCorrelationID(id ID) {
	b.ID = id
}

// InitImage prepares the camera to take an image DeltaT seconds from now.
type InitImage struct {
	Base
	DeltaT float64 `json:"deltaT"`
}

// TakeImages takes NImages exposures of Exposure seconds each.
type TakeImages struct {
	Base
	Exposure    float64 `json:"exposure"`
	NImages     int     `json:"nImages"`
	OpenShutter bool    `json:"openShutter"`
	Science     bool    `json:"science"`
	Wavefront   bool    `json:"wavefront"`
	Guider      bool    `json:"guider"`
	VisitName   string  `json:"visitName"`
}

// SetFilter loads the named filter.
type SetFilter struct {
	Base
	Filter string `json:"filter"`
}

// InitGuiders configures the guider regions of interest.
type InitGuiders struct {
	Base
	RoiSpec string `json:"roiSpec"`
}

// Clear clears the sensors NClears times.
type Clear struct {
	Base
	NClears int `json:"nClears"`
}

// StartImage opens an exposure that is ended by EndImage or, after Timeout
// seconds, automatically without readout.
type StartImage struct {
	Base
	VisitName   string  `json:"visitName"`
	OpenShutter bool    `json:"openShutter"`
	Science     bool    `json:"science"`
	Wavefront   bool    `json:"wavefront"`
	Guider      bool    `json:"guider"`
	Timeout     float64 `json:"timeout"`
}

// EndImage ends the exposure opened by StartImage and reads it out.
type EndImage struct {
	Base
}

// DiscardRows discards rows from the exposure in progress.
type DiscardRows struct {
	Base
	NRows int `json:"nRows"`
}

// EnterControl takes control of an available camera, moving it to Standby.
type EnterControl struct {
	Base
}

// ExitControl releases control, returning the camera to OfflinePublishOnly.
type ExitControl struct {
	Base
}

// Start loads Configuration and moves the camera to Disabled.
type Start struct {
	Base
	Configuration string `json:"configuration"`
}

// Standby returns a disabled camera to Standby.
type Standby struct {
	Base
}

// Enable allows imaging commands.
type Enable struct {
	Base
}

// Disable stops accepting imaging commands.
type Disable struct {
	Base
}

// SetAvailable offers the camera for control.
type SetAvailable struct {
	Base
}

// RevokeAvailable withdraws the offer made by SetAvailable.
type RevokeAvailable struct {
	Base
}

// SimulateFault forces the camera into Fault from any state.
type SimulateFault struct {
	Base
}

// ClearFault recovers from Fault to OfflinePublishOnly.
type ClearFault struct {
	Base
}

func (*InitImage) Name() string       { return "initImage" }
func (*TakeImages) Name() string      { return "takeImages" }
func (*SetFilter) Name() string       { return "setFilter" }
func (*InitGuiders) Name() string     { return "initGuiders" }
func (*Clear) Name() string           { return "clear" }
func (*StartImage) Name() string      { return "startImage" }
func (*EndImage) Name() string        { return "endImage" }
func (*DiscardRows) Name() string     { return "discardRows" }
func (*EnterControl) Name() string    { return "enterControl" }
func (*ExitControl) Name() string     { return "exitControl" }
func (*Start) Name() string           { return "start" }
func (*Standby) Name() string         { return "standby" }
func (*Enable) Name() string          { return "enable" }
func (*Disable) Name() string         { return "disable" }
func (*SetAvailable) Name() string    { return "setAvailable" }
func (*RevokeAvailable) Name() string { return "revokeAvailable" }
func (*SimulateFault) Name() string   { return "simulateFault" }
func (*ClearFault) Name() string      { return "clearFault" }

func (*InitImage) command()       {}
func (*TakeImages) command()      {}
func (*SetFilter) command()       {}
func (*InitGuiders) command()     {}
func (*Clear) command()           {}
func (*StartImage) command()      {}
func (*EndImage) command()        {}
func (*DiscardRows) command()     {}
func (*EnterControl) command()    {}
func (*ExitControl) command()     {}
func (*Start) command()           {}
func (*Standby) command()         {}
func (*Enable) command()          {}
func (*Disable) command()         {}
func (*SetAvailable) command()    {}
func (*RevokeAvailable) command() {}
func (*SimulateFault) command()   {}
func (*ClearFault) command()      {}

func (*SetAvailable) local()    {}
func (*RevokeAvailable) local() {}
func (*SimulateFault) local()   {}
func (*ClearFault) local()      {}

var factories = map[string]func() Command{
	"initImage":       func() Command { return &InitImage{} },
	"takeImages":      func() Command { return &TakeImages{} },
	"setFilter":       func() Command { return &SetFilter{} },
	"initGuiders":     func() Command { return &InitGuiders{} },
	"clear":           func() Command { return &Clear{} },
	"startImage":      func() Command { return &StartImage{} },
	"endImage":        func() Command { return &EndImage{} },
	"discardRows":     func() Command { return &DiscardRows{} },
	"enterControl":    func() Command { return &EnterControl{} },
	"exitControl":     func() Command { return &ExitControl{} },
	"start":           func() Command { return &Start{} },
	"standby":         func() Command { return &Standby{} },
	"enable":          func() Command { return &Enable{} },
	"disable":         func() Command { return &Disable{} },
	"setAvailable":    func() Command { return &SetAvailable{} },
	"revokeAvailable": func() Command { return &RevokeAvailable{} },
	"simulateFault":   func() Command { return &SimulateFault{} },
	"clearFault":      func() Command { return &ClearFault{} },
}

// New returns a zero-valued command of the given name, ready to be decoded into.
func New(name string) (Command, bool) {
	f, ok := factories[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Names returns the names of all commands, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsLocal reports whether c bypasses acknowledgement and busy gating.
func IsLocal(c Command) bool {
	_, ok := c.(Local)
	return ok
}

// Describe returns a short human readable form of c for logging.
func Describe(c Command) string {
	return fmt.Sprintf("%s(%s)", c.Name(), c.CorrelationID())
}

// Seconds converts a wire value in seconds to a Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
