// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocs

import (
	time "time"

	mock "github.com/stretchr/testify/mock"

	command "github.com/tony-johnson/ToyOCSBridge/camera/command"
)

// MockResponder is a mock implementation of Responder.
type MockResponder struct {
	mock.Mock
}

// Acknowledge provides a mock function with given fields: cmd, estimate
func (_m *MockResponder) Acknowledge(cmd command.Command, estimate time.Duration) {
	_m.Called(cmd, estimate)
}

// Complete provides a mock function with given fields: cmd
func (_m *MockResponder) Complete(cmd command.Command) {
	_m.Called(cmd)
}

// Reject provides a mock function with given fields: cmd, reason
func (_m *MockResponder) Reject(cmd command.Command, reason string) {
	_m.Called(cmd, reason)
}

// Error provides a mock function with given fields: cmd, err
func (_m *MockResponder) Error(cmd command.Command, err error) {
	_m.Called(cmd, err)
}

// NewMockResponder creates a new instance of MockResponder. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockResponder(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockResponder {
	mock := &MockResponder{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
