// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestWaitForStatusAlreadySatisfied(t *testing.T) {
	ccs := NewCCS()
	NewState(ccs, doorClosed)

	w := ccs.WaitForStatus(doorClosed)
	assert.True(t, w.Done())
	assert.Equal(t, 0, ccs.PendingWaiters())
	assert.NoError(t, w.Await(time.Millisecond))
}

func TestWaitForStatusReleasedByTransition(t *testing.T) {
	ccs := NewCCS()
	d := NewState(ccs, doorClosed)
	l := NewState(ccs, lampOff)

	w := ccs.WaitForStatus(doorOpen, lampOn)
	assert.Equal(t, 1, ccs.PendingWaiters())

	var errg errgroup.Group
	errg.Go(func() error { return w.Await(time.Second) })

	d.Set(doorOpen)
	assert.False(t, w.Done())
	l.Set(lampOn)

	assert.NoError(t, errg.Wait())
	assert.True(t, w.Done())
	assert.Equal(t, 0, ccs.PendingWaiters())
}

func TestWaiterStaysDoneAfterStateMovesOn(t *testing.T) {
	ccs := NewCCS()
	d := NewState(ccs, doorClosed)

	w := ccs.WaitForStatus(doorOpen)
	d.Set(doorOpen)
	d.Set(doorClosed)

	assert.True(t, w.Done())
	assert.NoError(t, w.Await(time.Millisecond))
}

func TestAwaitTimeoutLeavesWaiterPending(t *testing.T) {
	ccs := NewCCS()
	NewState(ccs, doorClosed)

	w := ccs.WaitForStatus(doorOpen)
	err := w.Await(10 * time.Millisecond)

	var timeout *TimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, 10*time.Millisecond, timeout.Timeout)
	assert.Equal(t, 1, ccs.PendingWaiters())

	w.Cancel()
	assert.Equal(t, 0, ccs.PendingWaiters())
	assert.Equal(t, ErrWaitCancelled, w.Await(time.Millisecond))
}

func TestCancelReleasesBlockedWaiter(t *testing.T) {
	ccs := NewCCS()
	NewState(ccs, doorClosed)
	w := ccs.WaitForStatus(doorOpen)

	var errg errgroup.Group
	errg.Go(func() error { return w.Await(time.Minute) })
	w.Cancel()

	assert.Equal(t, ErrWaitCancelled, errg.Wait())
}

func TestCancelSatisfiedWaiterIsNoop(t *testing.T) {
	ccs := NewCCS()
	d := NewState(ccs, doorClosed)
	w := ccs.WaitForStatus(doorOpen)
	d.Set(doorOpen)

	w.Cancel()
	assert.True(t, w.Done())
	assert.NoError(t, w.Await(time.Millisecond))
}

func TestConcurrentWaitersAreNeverLost(t *testing.T) {
	ccs := NewCCS()
	d := NewState(ccs, doorClosed)

	const n = 50
	var errg errgroup.Group
	for i := 0; i < n; i++ {
		errg.Go(func() error {
			return ccs.WaitForStatus(doorOpen).Await(time.Second)
		})
	}
	d.Set(doorOpen)

	assert.NoError(t, errg.Wait())
	assert.Equal(t, 0, ccs.PendingWaiters())
}

func TestGlobalListenerSeesEveryTransition(t *testing.T) {
	ccs := NewCCS()
	d := NewState(ccs, doorClosed)
	l := NewState(ccs, lampOff)

	var seen []Transition
	id := ccs.AddListener(func(tr Transition) { seen = append(seen, tr) })

	d.Set(doorOpen)
	l.Set(lampOn)
	l.Set(lampOn)

	require.Len(t, seen, 2)
	assert.Equal(t, Kind("Door"), seen[0].Kind)
	assert.Equal(t, doorClosed, seen[0].Old)
	assert.Equal(t, doorOpen, seen[0].New)
	assert.Equal(t, lampOn, seen[1].New)

	ccs.RemoveListener(id)
	d.Set(doorClosed)
	assert.Len(t, seen, 2)
}

func TestScheduleRunsAction(t *testing.T) {
	ccs := NewCCS()
	d := NewState(ccs, doorClosed)

	w := ccs.WaitForStatus(doorOpen)
	a := ccs.Schedule(5*time.Millisecond, func() { d.Set(doorOpen) })

	assert.NoError(t, w.Await(time.Second))
	assert.Eventually(t, a.IsDone, time.Second, time.Millisecond)
	assert.False(t, a.IsCancelled())
	assert.False(t, a.Cancel())
	assert.Equal(t, 0, ccs.PendingActions())
}

func TestCancelBeforeFirePreventsAction(t *testing.T) {
	ccs := NewCCS()

	var ran atomic.Bool
	a := ccs.Schedule(20*time.Millisecond, func() { ran.Store(true) })
	assert.True(t, a.Cancel())
	assert.False(t, a.Cancel())
	assert.True(t, a.IsCancelled())
	assert.True(t, a.IsDone())
	assert.Equal(t, 0, ccs.PendingActions())

	time.Sleep(50 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestScheduledPanicIsRecovered(t *testing.T) {
	ccs := NewCCS()

	a := ccs.Schedule(0, func() { panic("boom") })
	assert.Eventually(t, a.IsDone, time.Second, time.Millisecond)
	assert.NoError(t, ccs.Shutdown(context.Background()))
}

func TestWorkersBoundConcurrency(t *testing.T) {
	ccs := NewCCS(WithWorkers(2))

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		ccs.Schedule(0, func() {
			defer wg.Done()
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		})
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

type countingObserver struct {
	scheduled, fired, cancelled atomic.Int32
	pending                     atomic.Int32
}

func (o *countingObserver) ActionScheduled()     { o.scheduled.Add(1) }
func (o *countingObserver) ActionFired()         { o.fired.Add(1) }
func (o *countingObserver) ActionCancelled()     { o.cancelled.Add(1) }
func (o *countingObserver) WaitersPending(n int) { o.pending.Store(int32(n)) }

func TestObserverCounts(t *testing.T) {
	o := &countingObserver{}
	ccs := NewCCS(WithObserver(o))
	d := NewState(ccs, doorClosed)

	ccs.Schedule(time.Hour, func() {}).Cancel()
	fired := ccs.Schedule(0, func() {})
	assert.Eventually(t, fired.IsDone, time.Second, time.Millisecond)

	ccs.WaitForStatus(doorOpen)
	assert.Equal(t, int32(1), o.pending.Load())
	d.Set(doorOpen)

	assert.Equal(t, int32(2), o.scheduled.Load())
	assert.Equal(t, int32(1), o.cancelled.Load())
	assert.Eventually(t, func() bool { return o.fired.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(0), o.pending.Load())
}

func TestShutdownCancelsEverything(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ccs := NewCCS()
	NewState(ccs, doorClosed)

	var ran atomic.Bool
	a := ccs.Schedule(time.Hour, func() { ran.Store(true) })
	w := ccs.WaitForStatus(doorOpen)

	require.NoError(t, ccs.Shutdown(context.Background()))
	assert.True(t, a.IsCancelled())
	assert.Equal(t, ErrSchedulerClosed, w.Await(time.Millisecond))
	assert.Equal(t, 0, ccs.PendingWaiters())

	late := ccs.Schedule(0, func() { ran.Store(true) })
	assert.True(t, late.IsCancelled())
	assert.Equal(t, ErrSchedulerClosed, ccs.WaitForStatus(doorOpen).Await(time.Millisecond))
	assert.False(t, ran.Load())
}

func TestShutdownWaitsForRunningAction(t *testing.T) {
	ccs := NewCCS()

	started := make(chan struct{})
	release := make(chan struct{})
	a := ccs.Schedule(0, func() {
		close(started)
		<-release
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Equal(t, context.DeadlineExceeded, ccs.Shutdown(ctx))

	close(release)
	assert.NoError(t, ccs.Shutdown(context.Background()))
	assert.True(t, a.IsDone())
}
