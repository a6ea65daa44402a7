// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package metrics exports camera activity as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tony-johnson/ToyOCSBridge/camera/command"
	"github.com/tony-johnson/ToyOCSBridge/camera/core"
	"github.com/tony-johnson/ToyOCSBridge/camera/ocs"
)

const namespace = "toyocs"

// Metrics implements core.Observer and ocs.OutcomeObserver, and its
// StateChanged method is a core.Listener.
type Metrics struct {
	CommandsTotal    *prometheus.CounterVec
	CommandDuration  *prometheus.HistogramVec
	TransitionsTotal *prometheus.CounterVec
	ScheduledActions *prometheus.CounterVec
	PendingWaiters   prometheus.Gauge
	ActionsInFlight  prometheus.Gauge
}

// New registers the camera collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of commands by name and outcome",
		}, []string{"command", "outcome"}),
		CommandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time from submission to completion of accepted commands",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"command"}),
		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Total number of state transitions by kind and entered state",
		}, []string{"kind", "state"}),
		ScheduledActions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_actions_total",
			Help:      "Total number of delayed actions by result",
		}, []string{"result"}),
		PendingWaiters: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_waiters",
			Help:      "Number of unresolved status waiters",
		}),
		ActionsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_actions",
			Help:      "Number of delayed actions that have neither run nor been cancelled",
		}),
	}
}

func (m *Metrics) ActionScheduled() {
	m.ScheduledActions.WithLabelValues("scheduled").Inc()
	m.ActionsInFlight.Inc()
}

func (m *Metrics) ActionFired() {
	m.ScheduledActions.WithLabelValues("fired").Inc()
	m.ActionsInFlight.Dec()
}

func (m *Metrics) ActionCancelled() {
	m.ScheduledActions.WithLabelValues("cancelled").Inc()
	m.ActionsInFlight.Dec()
}

func (m *Metrics) WaitersPending(n int) {
	m.PendingWaiters.Set(float64(n))
}

// CommandFinished counts every command; only accepted ones are timed.
func (m *Metrics) CommandFinished(cmd command.Command, result ocs.Result) {
	m.CommandsTotal.WithLabelValues(cmd.Name(), string(result.Outcome)).Inc()
	if result.Outcome != ocs.Rejected {
		m.CommandDuration.WithLabelValues(cmd.Name()).Observe(result.Duration.Seconds())
	}
}

// StateChanged counts a transition by kind and entered value.
func (m *Metrics) StateChanged(t core.Transition) {
	m.TransitionsTotal.WithLabelValues(string(t.Kind), t.New.String()).Inc()
}
