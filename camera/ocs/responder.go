// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocs

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tony-johnson/ToyOCSBridge/camera/command"
)

// Responder receives the outward notifications for OCS commands. Every command
// gets exactly one of Reject, Complete or Error, preceded by Acknowledge when
// the command was accepted with a non-zero estimate.
type Responder interface {
	Acknowledge(cmd command.Command, estimate time.Duration)
	Complete(cmd command.Command)
	Reject(cmd command.Command, reason string)
	Error(cmd command.Command, err error)
}

// LogResponder logs every notification.
type LogResponder struct{}

// Acknowledge ...
func (LogResponder) Acknowledge(cmd command.Command, estimate time.Duration) {
	log.Infof("Acknowledge command: %s estimated duration %s", command.Describe(cmd), estimate)
}

// Complete ...
func (LogResponder) Complete(cmd command.Command) {
	log.Infof("Command complete: %s", command.Describe(cmd))
}

// Reject ...
func (LogResponder) Reject(cmd command.Command, reason string) {
	log.Infof("Reject command: %s because %s", command.Describe(cmd), reason)
}

// Error ...
func (LogResponder) Error(cmd command.Command, err error) {
	log.WithError(err).Warnf("Command failed: %s", command.Describe(cmd))
}

// Responders fans every notification out to each responder in order.
type Responders []Responder

// Acknowledge forwards to every responder in order.
func (rs Responders) Acknowledge(cmd command.Command, estimate time.Duration) {
	for _, r := range rs {
		r.Acknowledge(cmd, estimate)
	}
}

// Complete ...
func (rs Responders) Complete(cmd command.Command) {
	for _, r := range rs {
		r.Complete(cmd)
	}
}

// Reject ...
func (rs Responders) Reject(cmd command.Command, reason string) {
	for _, r := range rs {
		r.Reject(cmd, reason)
	}
}

// Error ...
func (rs Responders) Error(cmd command.Command, err error) {
	for _, r := range rs {
		r.Error(cmd, err)
	}
}
