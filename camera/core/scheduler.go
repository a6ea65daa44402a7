// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	actionPending int32 = iota
	actionRunning
	actionDone
	actionCancelled
)

// ScheduledAction is a delayed callback created by CCS.Schedule.
type ScheduledAction struct {
	ccs    *CCS
	due    time.Time
	action func()
	state  atomic.Int32
	timer  *time.Timer
}

// Schedule runs action once after delay on one of the hub's workers.
// After Shutdown the returned action is already cancelled.
func (c *CCS) Schedule(delay time.Duration, action func()) *ScheduledAction {
	if delay < 0 {
		delay = 0
	}
	a := &ScheduledAction{ccs: c, due: time.Now().Add(delay), action: action}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		a.state.Store(actionCancelled)
		log.Warnf("Not scheduling action due in %s: %s", delay, ErrSchedulerClosed)
		return a
	}
	c.actions[a] = struct{}{}
	c.running.Add(1)
	a.timer = time.AfterFunc(delay, a.fire)
	c.observer.ActionScheduled()
	return a
}

// Due returns the time the action is (or was) due to run.
func (a *ScheduledAction) Due() time.Time {
	return a.due
}

// Cancel prevents the action from running if it has not started yet, and
// reports whether it did. Cancelling a running, finished or cancelled action is a no-op.
func (a *ScheduledAction) Cancel() bool {
	if !a.state.CompareAndSwap(actionPending, actionCancelled) {
		return false
	}
	a.timer.Stop()
	a.ccs.forget(a)
	a.ccs.running.Done()
	a.ccs.observer.ActionCancelled()
	return true
}

// IsDone reports whether the action has either finished running or been cancelled.
func (a *ScheduledAction) IsDone() bool {
	s := a.state.Load()
	return s == actionDone || s == actionCancelled
}

// IsCancelled reports whether the action was cancelled before it ran.
func (a *ScheduledAction) IsCancelled() bool {
	return a.state.Load() == actionCancelled
}

func (a *ScheduledAction) fire() {
	if !a.state.CompareAndSwap(actionPending, actionRunning) {
		return
	}
	c := a.ccs
	c.forget(a)
	defer c.running.Done()

	// Acquire cannot fail with a background context.
	_ = c.workers.Acquire(context.Background(), 1)
	defer c.workers.Release(1)

	a.run()
	a.state.Store(actionDone)
	c.observer.ActionFired()
}

func (a *ScheduledAction) run() {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Scheduled action due at %s panicked: %v", a.due.Format(time.RFC3339Nano), r)
		}
	}()
	a.action()
}

func (c *CCS) forget(a *ScheduledAction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.actions, a)
}

// PendingActions returns the number of scheduled actions that have neither run nor been cancelled.
func (c *CCS) PendingActions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.actions)
}
