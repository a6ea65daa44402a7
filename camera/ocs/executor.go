// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocs

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tony-johnson/ToyOCSBridge/camera/command"
	"github.com/tony-johnson/ToyOCSBridge/camera/core"
)

// ErrExecutorBusy is reported when a command arrives while another is executing
var ErrExecutorBusy = errors.New("ExecutorBusy")

const busyReason = "Command state not idle"

// Handler checks and runs commands.
type Handler interface {
	// TestPreconditions returns the estimated duration of cmd, or a
	// *command.PreconditionsNotMet if cmd must be rejected.
	TestPreconditions(cmd command.Command) (time.Duration, error)
	Execute(cmd command.Command) error
}

// Result is the outcome of a single Execute call.
type Result struct {
	Outcome  Outcome
	Reason   string
	Err      error
	Estimate time.Duration
	Duration time.Duration
}

// OutcomeObserver is told about every finished command, e.g. for metrics.
type OutcomeObserver interface {
	CommandFinished(cmd command.Command, result Result)
}

// Option configures an Executor.
type Option func(*Executor)

// WithOutcomeObserver adds an observer told about every finished command.
func WithOutcomeObserver(o OutcomeObserver) Option {
	return func(e *Executor) {
		e.observers = append(e.observers, o)
	}
}

// Executor runs one OCS command at a time.
type Executor struct {
	state     *core.State[ExecutionState]
	handler   Handler
	responder Responder
	observers []OutcomeObserver

	// gate is held from the idle check until the transition to Busy, so two
	// concurrent submissions cannot both pass the idle check.
	gate sync.Mutex
}

// NewExecutor registers the executor's state with ccs.
func NewExecutor(ccs *core.CCS, handler Handler, responder Responder, opts ...Option) *Executor {
	if responder == nil {
		responder = LogResponder{}
	}
	e := &Executor{
		state:     core.NewState(ccs, Idle),
		handler:   handler,
		responder: responder,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current execution state.
func (e *Executor) State() ExecutionState {
	return e.state.Get()
}

// StateHolder returns the observable execution state.
func (e *Executor) StateHolder() *core.State[ExecutionState] {
	return e.state
}

// Execute checks preconditions, acknowledges, runs and reports cmd. It blocks
// until cmd has finished and the executor is Idle again.
func (e *Executor) Execute(cmd command.Command) (result Result) {
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		for _, o := range e.observers {
			o.CommandFinished(cmd, result)
		}
	}()

	e.gate.Lock()
	if !e.state.IsIn(Idle) {
		e.gate.Unlock()
		e.responder.Reject(cmd, busyReason)
		return Result{Outcome: Rejected, Reason: busyReason, Err: ErrExecutorBusy}
	}

	estimate, err := e.testPreconditions(cmd)
	if err != nil {
		e.gate.Unlock()
		var notMet *command.PreconditionsNotMet
		if errors.As(err, &notMet) {
			e.responder.Reject(cmd, notMet.Reason)
			return Result{Outcome: Rejected, Reason: notMet.Reason, Err: err}
		}
		e.responder.Error(cmd, err)
		return Result{Outcome: Failed, Reason: err.Error(), Err: err}
	}

	e.state.Set(Busy)
	e.gate.Unlock()
	defer e.state.Set(Idle)

	if estimate > 0 {
		e.responder.Acknowledge(cmd, estimate)
	}
	if err := e.run(cmd); err != nil {
		e.responder.Error(cmd, err)
		return Result{Outcome: Failed, Reason: err.Error(), Err: err, Estimate: estimate}
	}
	e.responder.Complete(cmd)
	return Result{Outcome: Completed, Estimate: estimate}
}

// ExecuteLocal checks preconditions and runs cmd without acknowledgement or
// busy gating. Failures are logged and returned, never reported upstream.
func (e *Executor) ExecuteLocal(cmd command.Local) error {
	if _, err := e.testPreconditions(cmd); err != nil {
		log.Warnf("Local command %s rejected: %s", command.Describe(cmd), err)
		return err
	}
	if err := e.run(cmd); err != nil {
		log.WithError(err).Warnf("Local command %s failed", command.Describe(cmd))
		return err
	}
	log.Infof("Local command complete: %s", command.Describe(cmd))
	return nil
}

func (e *Executor) testPreconditions(cmd command.Command) (estimate time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("precondition check panicked: %v", r)
		}
	}()
	return e.handler.TestPreconditions(cmd)
}

func (e *Executor) run(cmd command.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command panicked: %v", r)
		}
	}()
	return e.handler.Execute(cmd)
}
