// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package devices

import "time"

// ShutterTiming holds the simulated shutter durations.
type ShutterTiming struct {
	// Prep is the time needed to get the shutter ready.
	Prep time.Duration
	// ReadyHold is how long the shutter stays ready after prepare or a move.
	ReadyHold time.Duration
	// Move is the time needed to move a shutter blade.
	Move time.Duration
}

// RaftsTiming holds the simulated sensor array durations.
type RaftsTiming struct {
	Readout time.Duration
	// Clear is the duration of a single clear.
	Clear time.Duration
	// IdleBeforeClear is how long the array may stay quiescent before it needs a clear.
	IdleBeforeClear time.Duration
}

// FilterTiming holds the simulated filter changer durations.
type FilterTiming struct {
	Load              time.Duration
	Unload            time.Duration
	RotationPerDegree time.Duration
}

// minWaitSlack is the least extra time allowed on top of an expected duration
// before a wait is declared timed out.
const minWaitSlack = 100 * time.Millisecond

// WaitDeadline returns the time to wait for an action expected to take d.
func WaitDeadline(d time.Duration) time.Duration {
	if d < minWaitSlack {
		return d + minWaitSlack
	}
	return 2 * d
}
