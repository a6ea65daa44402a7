// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"io"

	"github.com/sirupsen/logrus"
)

var log = getLogger()

func getLogger() *logrus.Logger {
	formatter := logrus.JSONFormatter{}
	formatter.DisableTimestamp = true
	logger := new(logrus.Logger)
	logger.Out = io.Discard
	logger.Formatter = &formatter
	logger.Hooks = make(logrus.LevelHooks)
	logger.Level = logrus.InfoLevel
	return logger
}

// SetStructuredOutput emits every recorded event as a JSON line to w.
// Events are not emitted until this is called.
func SetStructuredOutput(w io.Writer) {
	log.SetOutput(w)
}
