// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package telemetry keeps a bounded, in-memory log of camera events: state
// transitions and command responses. It is served by the standalone HTTP API.
package telemetry

import (
	"sync"
	"time"

	"github.com/tony-johnson/ToyOCSBridge/camera/command"
	"github.com/tony-johnson/ToyOCSBridge/camera/core"
)

type EventType = string

const (
	StateChanged       = EventType("state.changed")
	CommandAcknowledge = EventType("command.acknowledge")
	CommandComplete    = EventType("command.complete")
	CommandReject      = EventType("command.reject")
	CommandError       = EventType("command.error")
)

const DefaultSize = 1000

/*
CameraEvent is one entry of the event log. For example:

	{
		"time": "2024-03-16T13:10:42.358Z",
		"type": "state.changed",
		"record": { "kind": "RaftsState", "from": "Quiescent", "to": "Integrating" }
	}

Or:

	{
		"time": "2024-03-16T13:10:42.412Z",
		"type": "command.reject",
		"record": { "command": "takeImages", "id": "5e0c...", "reason": "Command not accepted in: Disabled" }
	}
*/
type CameraEvent struct {
	Time   string                 `json:"time"`
	Type   EventType              `json:"type"`
	Record map[string]interface{} `json:"record"`
}

// EventLog is a snapshot of the retained events, oldest first.
type EventLog struct {
	Events  []CameraEvent `json:"events"`
	Dropped uint64        `json:"dropped,omitempty"`
}

// EventsAPI records events in a ring of fixed size. It is both a hub
// listener, through StateChanged, and an ocs.Responder.
type EventsAPI struct {
	lock    sync.Mutex
	events  []CameraEvent
	next    int
	full    bool
	dropped uint64
}

// NewEventsAPI retains at most size events; a non-positive size uses DefaultSize.
func NewEventsAPI(size int) *EventsAPI {
	if size <= 0 {
		size = DefaultSize
	}
	return &EventsAPI{events: make([]CameraEvent, size)}
}

// EventLog returns a copy of the retained events.
func (s *EventsAPI) EventLog() *EventLog {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.full {
		return &EventLog{Events: append([]CameraEvent{}, s.events[:s.next]...), Dropped: s.dropped}
	}
	events := make([]CameraEvent, 0, len(s.events))
	events = append(events, s.events[s.next:]...)
	events = append(events, s.events[:s.next]...)
	return &EventLog{Events: events, Dropped: s.dropped}
}

// StateChanged records a transition. Its signature matches core.Listener.
func (s *EventsAPI) StateChanged(t core.Transition) {
	s.sendEvent(StateChanged, t.At, map[string]interface{}{
		"kind": string(t.Kind),
		"from": t.Old.String(),
		"to":   t.New.String(),
	})
}

func (s *EventsAPI) Acknowledge(cmd command.Command, estimate time.Duration) {
	record := commandRecord(cmd)
	record["estimateMs"] = estimate.Milliseconds()
	s.sendEvent(CommandAcknowledge, time.Now(), record)
}

func (s *EventsAPI) Complete(cmd command.Command) {
	s.sendEvent(CommandComplete, time.Now(), commandRecord(cmd))
}

func (s *EventsAPI) Reject(cmd command.Command, reason string) {
	record := commandRecord(cmd)
	record["reason"] = reason
	s.sendEvent(CommandReject, time.Now(), record)
}

func (s *EventsAPI) Error(cmd command.Command, err error) {
	record := commandRecord(cmd)
	record["error"] = err.Error()
	s.sendEvent(CommandError, time.Now(), record)
}

func commandRecord(cmd command.Command) map[string]interface{} {
	record := map[string]interface{}{"command": cmd.Name()}
	if id := cmd.CorrelationID(); id != "" {
		record["id"] = string(id)
	}
	return record
}

func (s *EventsAPI) sendEvent(eventType EventType, at time.Time, record map[string]interface{}) {
	e := CameraEvent{
		Time:   at.UTC().Format("2006-01-02T15:04:05.000Z"),
		Type:   eventType,
		Record: record,
	}
	s.appendEvent(e)
	s.logEvent(e)
}

func (s *EventsAPI) appendEvent(e CameraEvent) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.full {
		s.dropped++
	}
	s.events[s.next] = e
	s.next++
	if s.next == len(s.events) {
		s.next = 0
		s.full = true
	}
}

func (s *EventsAPI) logEvent(e CameraEvent) {
	log.WithField("event", e).Info("camera event")
}
