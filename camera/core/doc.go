// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

/*
Package core provides state objects and synchronization primitives for
simulating the camera control system.

# States

A State holds one discrete value of an enum-like type and notifies listeners
when the value changes. Every enum type used with State implements Variant:

	type Variant interface {
		Kind() Kind
		String() string
	}

The Kind identifies the enum type. Exactly one State per Kind is held by the
AggregateStatus, so a value such as rafts.Quiescent can be tested against the
whole system with AggregateStatus.HasAll.

# CCS

CCS is the hub every State reports to. It owns:

  - delayed actions (Schedule) run on a bounded set of workers, each cancellable
    until it starts running;
  - waiters (WaitForStatus) released when the aggregate status matches a set of
    values;
  - process-wide listeners (AddListener) fired on every committed transition.

A waiter that is already satisfied when it is created completes immediately and
is never added to the pending set. A waiter that times out stays pending until
it is cancelled or satisfied, so callers cancel waiters they no longer need:

	w := ccs.WaitForStatus(rafts.Quiescent)
	defer w.Cancel()
	r.Clear(1)
	if err := w.Await(timeout); err != nil {
		return err
	}
*/
package core
