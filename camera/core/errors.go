// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrWaitCancelled returned by Await when the waiter was cancelled before it was satisfied
var ErrWaitCancelled = errors.New("WaitCancelled")

// ErrSchedulerClosed returned when the hub has been shut down
var ErrSchedulerClosed = errors.New("SchedulerClosed")

// InvalidStateError is returned when an operation is requested while a state
// holds none of the values the operation accepts.
type InvalidStateError struct {
	Kind     Kind
	Expected []Variant
	Actual   Variant
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("State: %s expected %s was %s", e.Kind, variantList(e.Expected), e.Actual)
}

// TimeoutError is returned when a waiter is not satisfied before its deadline.
type TimeoutError struct {
	Targets []Variant
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Timeout waiting for state: %s after %s", variantList(e.Targets), e.Timeout)
}

func variantList(vs []Variant) string {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}
