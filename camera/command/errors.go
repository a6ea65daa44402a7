// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package command

import "fmt"

// PreconditionsNotMet is returned by a precondition check to reject a command.
// Reason is reported to the submitter verbatim.
type PreconditionsNotMet struct {
	Reason string
}

func (e *PreconditionsNotMet) Error() string {
	return e.Reason
}

// Rejectf returns a PreconditionsNotMet with a formatted reason.
func Rejectf(format string, args ...interface{}) error {
	return &PreconditionsNotMet{Reason: fmt.Sprintf(format, args...)}
}
