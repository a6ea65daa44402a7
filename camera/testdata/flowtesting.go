// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package testdata

import (
	"sync"
	"time"

	"github.com/tony-johnson/ToyOCSBridge/camera/command"
	"github.com/tony-johnson/ToyOCSBridge/camera/config"
	"github.com/tony-johnson/ToyOCSBridge/camera/core"
)

// FastConfig returns a configuration with millisecond timings and limits
// loose enough for those timings, so scenario tests finish quickly.
func FastConfig() config.Config {
	cfg := config.Default()
	cfg.EventLogSize = 100

	cfg.Shutter.Prep = 10 * time.Millisecond
	cfg.Shutter.ReadyHold = 500 * time.Millisecond
	cfg.Shutter.Move = 10 * time.Millisecond

	cfg.Rafts.Readout = 30 * time.Millisecond
	cfg.Rafts.Clear = 5 * time.Millisecond
	cfg.Rafts.IdleBeforeClear = 500 * time.Millisecond

	cfg.Filter.Load = 20 * time.Millisecond
	cfg.Filter.Unload = 20 * time.Millisecond
	cfg.Filter.RotationPerDegree = 50 * time.Microsecond

	cfg.Limits.MaxDeltaT = 1
	cfg.Limits.MinExposure = 0.01
	cfg.Limits.MaxExposure = 1
	cfg.Limits.MinStartTimeout = 0.05
	cfg.Limits.MaxStartTimeout = 5
	cfg.Limits.ReadinessWait = 500 * time.Millisecond
	cfg.Limits.CommandWaitMargin = 500 * time.Millisecond
	return cfg
}

// TransitionRecorder records the values taken by states of one kind.
type TransitionRecorder struct {
	kind core.Kind
	mu   sync.Mutex
	seen []string
}

// RecordTransitions starts recording transitions of kind on ccs.
func RecordTransitions(ccs *core.CCS, kind core.Kind) *TransitionRecorder {
	r := &TransitionRecorder{kind: kind}
	ccs.AddListener(r.stateChanged)
	return r
}

func (r *TransitionRecorder) stateChanged(t core.Transition) {
	if t.Kind != r.kind {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, t.New.String())
}

// Values returns the recorded values, oldest first.
func (r *TransitionRecorder) Values() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

// Count returns how many times value was entered.
func (r *TransitionRecorder) Count(value string) int {
	n := 0
	for _, v := range r.Values() {
		if v == value {
			n++
		}
	}
	return n
}

// Response is one notification received by a RecordingResponder.
type Response struct {
	Kind     string
	ID       command.ID
	Estimate time.Duration
	Reason   string
	Err      error
}

// RecordingResponder records every notification it receives.
type RecordingResponder struct {
	mu        sync.Mutex
	responses []Response
}

// Acknowledge ...
func (r *RecordingResponder) Acknowledge(cmd command.Command, estimate time.Duration) {
	r.add(Response{Kind: "ack", ID: cmd.CorrelationID(), Estimate: estimate})
}

// Complete ...
func (r *RecordingResponder) Complete(cmd command.Command) {
	r.add(Response{Kind: "complete", ID: cmd.CorrelationID()})
}

// Reject ...
func (r *RecordingResponder) Reject(cmd command.Command, reason string) {
	r.add(Response{Kind: "reject", ID: cmd.CorrelationID(), Reason: reason})
}

// Error ...
func (r *RecordingResponder) Error(cmd command.Command, err error) {
	r.add(Response{Kind: "error", ID: cmd.CorrelationID(), Err: err})
}

func (r *RecordingResponder) add(resp Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
}

// Responses returns the notifications received for id, oldest first.
func (r *RecordingResponder) Responses(id command.ID) []Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Response
	for _, resp := range r.responses {
		if resp.ID == id {
			out = append(out, resp)
		}
	}
	return out
}
