// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocs

import "github.com/tony-johnson/ToyOCSBridge/camera/core"

// ExecutionState is the Idle/Busy state of the command executor.
type ExecutionState int

const (
	Idle ExecutionState = iota
	Busy
)

// ExecutionStateKind ...
const ExecutionStateKind core.Kind = "CommandExecutionState"

func (ExecutionState) Kind() core.Kind { return ExecutionStateKind }

func (s ExecutionState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Busy:
		return "Busy"
	}
	return "Unknown"
}

// Outcome is the final disposition of a submitted command.
type Outcome string

const (
	Rejected  Outcome = "rejected"
	Completed Outcome = "completed"
	Failed    Outcome = "failed"
)
