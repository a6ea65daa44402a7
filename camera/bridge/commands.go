// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tony-johnson/ToyOCSBridge/camera/command"
	"github.com/tony-johnson/ToyOCSBridge/camera/core"
	"github.com/tony-johnson/ToyOCSBridge/camera/devices"
)

// ErrExposureTimedOut returned by EndImage when the exposure timeout fired first
var ErrExposureTimedOut = errors.New("Image exposure already timed out")

// TestPreconditions checks cmd against the current state and estimates its duration.
func (b *Bridge) TestPreconditions(cmd command.Command) (time.Duration, error) {
	l := b.cfg.Limits
	switch c := cmd.(type) {
	case *command.InitImage:
		if err := b.requireLifecycle(Enabled); err != nil {
			return 0, err
		}
		if c.DeltaT <= 0 || c.DeltaT > l.MaxDeltaT {
			return 0, command.Rejectf("Invalid deltaT: %v", c.DeltaT)
		}
		return 0, b.requireNoExposure()

	case *command.TakeImages:
		if err := b.requireLifecycle(Enabled); err != nil {
			return 0, err
		}
		if c.NImages <= 0 || c.NImages > l.MaxImages || c.Exposure < l.MinExposure || c.Exposure > l.MaxExposure {
			return 0, command.Rejectf("Invalid argument")
		}
		if err := b.requireNoExposure(); err != nil {
			return 0, err
		}
		perImage := command.Seconds(c.Exposure) + b.shutter.Timing().Move + b.rafts.Timing().Readout
		return perImage * time.Duration(c.NImages), nil

	case *command.SetFilter:
		if err := b.requireLifecycle(Enabled); err != nil {
			return 0, err
		}
		if err := b.requireNoExposure(); err != nil {
			return 0, err
		}
		if !b.filter.IsAvailable(c.Filter) {
			return 0, command.Rejectf("Invalid filter: %s", c.Filter)
		}
		t := b.filter.Timing()
		return 360*t.RotationPerDegree + t.Load + t.Unload, nil

	case *command.InitGuiders:
		return 0, b.requireLifecycle(Enabled)

	case *command.Clear:
		if err := b.requireLifecycle(Enabled); err != nil {
			return 0, err
		}
		if c.NClears <= 0 || c.NClears > l.MaxClears {
			return 0, command.Rejectf("Invalid nClears: %d", c.NClears)
		}
		return time.Duration(c.NClears) * b.rafts.Timing().Clear, nil

	case *command.StartImage:
		if err := b.requireLifecycle(Enabled); err != nil {
			return 0, err
		}
		if c.Timeout < l.MinStartTimeout || c.Timeout > l.MaxStartTimeout {
			return 0, command.Rejectf("Invalid argument")
		}
		if err := b.requireNoExposure(); err != nil {
			return 0, err
		}
		return time.Second, nil

	case *command.EndImage:
		if err := b.requireLifecycle(Enabled); err != nil {
			return 0, err
		}
		if err := b.requireExposure(); err != nil {
			return 0, err
		}
		return b.shutter.Timing().Move, nil

	case *command.DiscardRows:
		if err := b.requireLifecycle(Enabled); err != nil {
			return 0, err
		}
		return 0, b.requireExposure()

	case *command.EnterControl:
		return 0, b.requireLifecycle(OfflineAvailable)
	case *command.ExitControl:
		return 0, b.requireLifecycle(Standby)
	case *command.Start:
		return 0, b.requireLifecycle(Standby)
	case *command.Standby:
		return 0, b.requireLifecycle(Disabled)
	case *command.Enable:
		return 0, b.requireLifecycle(Disabled)
	case *command.Disable:
		if err := b.requireLifecycle(Enabled); err != nil {
			return 0, err
		}
		// TODO: the controller may require Disable to always be accepted; until
		// that is settled an open exposure still blocks it.
		return 0, b.requireNoExposure()

	case *command.SetAvailable:
		return 0, b.requireLifecycle(OfflinePublishOnly)
	case *command.RevokeAvailable:
		return 0, b.requireLifecycle(OfflineAvailable)
	case *command.SimulateFault:
		return 0, nil
	case *command.ClearFault:
		return 0, b.requireLifecycle(Fault)
	}
	return 0, command.Rejectf("%s: %s", ErrUnknownCommand, cmd.Name())
}

// Execute runs cmd. Its preconditions have already been checked.
func (b *Bridge) Execute(cmd command.Command) error {
	switch c := cmd.(type) {
	case *command.InitImage:
		return b.initImage(c)
	case *command.TakeImages:
		return b.takeImages(c)
	case *command.SetFilter:
		return b.filter.SetFilter(c.Filter)
	case *command.InitGuiders:
		log.Infof("InitGuiders with ROI %q", c.RoiSpec)
	case *command.Clear:
		return b.clear(c)
	case *command.StartImage:
		return b.startImage(c)
	case *command.EndImage:
		return b.endImage()
	case *command.DiscardRows:
		log.Infof("Discarding %d rows", c.NRows)

	case *command.EnterControl:
		b.lifecycle.Set(Standby)
	case *command.ExitControl:
		b.lifecycle.Set(OfflinePublishOnly)
	case *command.Start:
		b.mu.Lock()
		b.configuration = c.Configuration
		b.mu.Unlock()
		b.lifecycle.Set(Disabled)
	case *command.Standby:
		b.lifecycle.Set(Standby)
	case *command.Enable:
		b.lifecycle.Set(Enabled)
	case *command.Disable:
		b.lifecycle.Set(Disabled)

	case *command.SetAvailable:
		b.lifecycle.Set(OfflineAvailable)
	case *command.RevokeAvailable:
		b.lifecycle.Set(OfflinePublishOnly)
	case *command.SimulateFault:
		b.lifecycle.Set(Fault)
	case *command.ClearFault:
		b.lifecycle.Set(OfflinePublishOnly)

	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name())
	}
	return nil
}

func (b *Bridge) requireLifecycle(want Lifecycle) error {
	if current := b.lifecycle.Get(); current != want {
		return command.Rejectf("Command not accepted in: %s", current)
	}
	return nil
}

func (b *Bridge) requireNoExposure() error {
	if b.ExposureInProgress() {
		return command.Rejectf("Exposure in progress")
	}
	return nil
}

func (b *Bridge) requireExposure() error {
	if !b.ExposureInProgress() {
		return command.Rejectf("No exposure in progress")
	}
	return nil
}

func (b *Bridge) initImage(c *command.InitImage) error {
	expected := command.Seconds(c.DeltaT)
	b.readiness.Set(ImageGettingReady)

	actions := []*core.ScheduledAction{
		b.ccs.Schedule(expected-b.rafts.Timing().Clear, func() {
			b.logError("InitImage could not clear", b.rafts.Clear(1))
		}),
		b.ccs.Schedule(expected-b.shutter.Timing().Prep, b.shutter.Prepare),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.preparation {
		a.Cancel()
	}
	b.preparation = actions
	return nil
}

// awaitImageReadiness clears and prepares if nothing is getting the camera
// ready, then waits until an exposure can start.
func (b *Bridge) awaitImageReadiness() error {
	w := b.ccs.WaitForStatus(ImageReady)
	if b.readiness.IsIn(ImageNotReady) {
		if b.ccs.Status().HasAll(devices.RaftsQuiescent) || b.ccs.Status().HasAll(devices.RaftsNeedsClear) {
			if err := b.rafts.Clear(1); err != nil {
				w.Cancel()
				return err
			}
		}
		b.shutter.Prepare()
	}

	deadline := b.cfg.Limits.ReadinessWait
	if b.rafts.State().IsIn(devices.RaftsReadingOut) {
		deadline += b.rafts.Timing().Readout
	}
	return b.await(w, deadline)
}

// takeImages returns once the last image starts reading out.
func (b *Bridge) takeImages(c *command.TakeImages) error {
	exposure := command.Seconds(c.Exposure)
	move := b.shutter.Timing().Move
	readout := b.rafts.Timing().Readout
	deadline := exposure + move + readout + b.cfg.Limits.CommandWaitMargin

	for i := 0; i < c.NImages; i++ {
		if err := b.awaitImageReadiness(); err != nil {
			return fmt.Errorf("image %d of %d not ready: %w", i+1, c.NImages, err)
		}

		readingOut := b.ccs.WaitForStatus(devices.RaftsReadingOut)
		integration := exposure
		if c.OpenShutter {
			if err := b.shutter.Expose(exposure); err != nil {
				readingOut.Cancel()
				return err
			}
			integration += move
		}
		if err := b.rafts.Expose(integration); err != nil {
			readingOut.Cancel()
			return err
		}
		if err := b.await(readingOut, deadline); err != nil {
			return fmt.Errorf("image %d of %d: %w", i+1, c.NImages, err)
		}

		// The shutter may still be closing after the array has read out.
		if i+1 < c.NImages {
			settled := []core.Variant{devices.RaftsQuiescent}
			if c.OpenShutter {
				settled = append(settled, devices.ShutterClosed)
			}
			if err := b.await(b.ccs.WaitForStatus(settled...), readout+move+b.cfg.Limits.CommandWaitMargin); err != nil {
				return fmt.Errorf("image %d of %d readout: %w", i+1, c.NImages, err)
			}
		}
	}
	return nil
}

func (b *Bridge) clear(c *command.Clear) error {
	if err := b.rafts.Clear(c.NClears); err != nil {
		return err
	}
	expected := time.Duration(c.NClears) * b.rafts.Timing().Clear
	return b.await(b.ccs.WaitForStatus(devices.RaftsQuiescent), expected+b.cfg.Limits.CommandWaitMargin)
}

func (b *Bridge) startImage(c *command.StartImage) error {
	if err := b.awaitImageReadiness(); err != nil {
		return err
	}
	if c.OpenShutter {
		if err := b.shutter.Open(); err != nil {
			return err
		}
	}
	if err := b.rafts.StartExposure(); err != nil {
		return err
	}

	timeout := b.ccs.Schedule(command.Seconds(c.Timeout), b.imageTimeout)
	b.mu.Lock()
	b.exposureTimeout = timeout
	b.mu.Unlock()
	return nil
}

func (b *Bridge) imageTimeout() {
	log.Warn("Image exposure timed out, discarding")
	b.logError("Could not close shutter after exposure timeout", b.shutter.Close())
	b.logError("Could not end exposure after exposure timeout", b.rafts.EndExposure(false))
}

func (b *Bridge) endImage() error {
	b.mu.Lock()
	timeout := b.exposureTimeout
	b.mu.Unlock()
	if timeout == nil || !timeout.Cancel() {
		return ErrExposureTimedOut
	}

	closed := b.ccs.WaitForStatus(devices.ShutterClosed)
	if err := b.shutter.Close(); err != nil {
		closed.Cancel()
		return err
	}
	if err := b.await(closed, b.shutter.Timing().Move+b.cfg.Limits.CommandWaitMargin); err != nil {
		return err
	}
	return b.rafts.EndExposure(true)
}

// await waits for w, cancelling it if the wait fails.
func (b *Bridge) await(w *core.Waiter, timeout time.Duration) error {
	if err := w.Await(timeout); err != nil {
		w.Cancel()
		return err
	}
	return nil
}
