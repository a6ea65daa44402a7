// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package statejson

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"
)

// StateDescription is one registered state; LastModified is in Unix milliseconds.
type StateDescription struct {
	Kind         string `json:"kind"`
	Name         string `json:"name"`
	LastModified int64  `json:"lastModified"`
}

// FilterDescription is the loaded filter and carousel position.
type FilterDescription struct {
	Name      string   `json:"name"`
	Rotation  int      `json:"rotation"`
	Available []string `json:"available"`
}

// InternalStateDescription describes internal state of the camera and its subsystems for debugging purposes
type InternalStateDescription struct {
	States             []StateDescription `json:"states"`
	Filter             *FilterDescription `json:"filter"`
	Configuration      string             `json:"configuration"`
	ExposureInProgress bool               `json:"exposureInProgress"`
	PendingWaiters     int                `json:"pendingWaiters"`
	PendingActions     int                `json:"pendingActions"`
}

func (s *InternalStateDescription) AsJSON() []byte {
	bytes, err := json.Marshal(s)
	if err != nil {
		log.Panicf("Failed to marshall internal states: %s", err)
	}
	return bytes
}
