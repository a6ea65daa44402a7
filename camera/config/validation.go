// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("InvalidConfig")

// Validate reports every problem with c, not just the first.
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidConfig}, args...)...))
	}
	positive := func(name string, d time.Duration) {
		if d <= 0 {
			fail("%s must be positive, got %s", name, d)
		}
	}

	if c.Workers <= 0 {
		fail("workers must be positive, got %d", c.Workers)
	}
	if c.EventLogSize <= 0 {
		fail("eventLogSize must be positive, got %d", c.EventLogSize)
	}

	if len(c.Filters) == 0 {
		fail("at least one filter is required")
	}
	seen := make(map[string]bool, len(c.Filters))
	for _, f := range c.Filters {
		if f == "" {
			fail("filter names must not be empty")
		} else if seen[f] {
			fail("duplicate filter %s", f)
		}
		seen[f] = true
	}

	positive("shutter.prep", c.Shutter.Prep)
	positive("shutter.readyHold", c.Shutter.ReadyHold)
	positive("shutter.move", c.Shutter.Move)
	positive("rafts.readout", c.Rafts.Readout)
	positive("rafts.clear", c.Rafts.Clear)
	positive("rafts.idleBeforeClear", c.Rafts.IdleBeforeClear)
	positive("filter.load", c.Filter.Load)
	positive("filter.unload", c.Filter.Unload)
	positive("filter.rotationPerDegree", c.Filter.RotationPerDegree)
	positive("limits.readinessWait", c.Limits.ReadinessWait)
	positive("limits.commandWaitMargin", c.Limits.CommandWaitMargin)

	l := c.Limits
	if l.MaxDeltaT <= 0 {
		fail("limits.maxDeltaT must be positive, got %v", l.MaxDeltaT)
	}
	if l.MinExposure < 0 || l.MinExposure > l.MaxExposure {
		fail("limits exposure range [%v, %v] is invalid", l.MinExposure, l.MaxExposure)
	}
	if l.MaxImages < 1 {
		fail("limits.maxImages must be at least 1, got %d", l.MaxImages)
	}
	if l.MaxClears < 1 {
		fail("limits.maxClears must be at least 1, got %d", l.MaxClears)
	}
	if l.MinStartTimeout <= 0 || l.MinStartTimeout > l.MaxStartTimeout {
		fail("limits start timeout range [%v, %v] is invalid", l.MinStartTimeout, l.MaxStartTimeout)
	}

	return errors.Join(errs...)
}
