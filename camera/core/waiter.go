// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
	"time"
)

// Waiter is an outstanding request to wait until the aggregate status holds
// a set of values. Once complete it stays complete.
type Waiter struct {
	ccs     *CCS
	targets []Variant

	// resolved and err are guarded by ccs.mu; the channels publish the outcome.
	resolved  bool
	err       error
	done      chan struct{}
	cancelled chan struct{}
}

func newWaiter(c *CCS, targets []Variant) *Waiter {
	return &Waiter{
		ccs:       c,
		targets:   targets,
		done:      make(chan struct{}),
		cancelled: make(chan struct{}),
	}
}

// Targets returns the values waited for.
func (w *Waiter) Targets() []Variant {
	return w.targets
}

// Done reports whether the waiter has been satisfied.
func (w *Waiter) Done() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// Cancel removes the waiter from the pending set and releases anyone blocked
// in Await with ErrWaitCancelled. Cancelling a satisfied waiter is a no-op.
func (w *Waiter) Cancel() {
	w.ccs.mu.Lock()
	defer w.ccs.mu.Unlock()
	w.ccs.removeWaiterUnsafe(w)
	w.cancelUnsafe(ErrWaitCancelled)
}

// Await blocks until the waiter is satisfied, cancelled, or timeout elapses.
// A timed out waiter remains pending; callers are expected to Cancel it.
func (w *Waiter) Await(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := w.AwaitContext(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Targets: w.targets, Timeout: timeout}
	}
	return err
}

// AwaitContext blocks until the waiter is satisfied, cancelled, or ctx is done.
func (w *Waiter) AwaitContext(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-w.cancelled:
		return w.err
	case <-ctx.Done():
		if w.Done() {
			return nil
		}
		return ctx.Err()
	}
}

func (w *Waiter) completeUnsafe() {
	if w.resolved {
		return
	}
	w.resolved = true
	close(w.done)
}

func (w *Waiter) cancelUnsafe(err error) {
	if w.resolved {
		return
	}
	w.resolved = true
	w.err = err
	close(w.cancelled)
}
