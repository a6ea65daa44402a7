// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package bridge is the top-level camera orchestrator. It owns the hub, the
// lifecycle state, the devices and the command executor, and implements every
// command in terms of them.
package bridge

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/tony-johnson/ToyOCSBridge/camera/command"
	"github.com/tony-johnson/ToyOCSBridge/camera/config"
	"github.com/tony-johnson/ToyOCSBridge/camera/core"
	"github.com/tony-johnson/ToyOCSBridge/camera/core/statejson"
	"github.com/tony-johnson/ToyOCSBridge/camera/devices"
	"github.com/tony-johnson/ToyOCSBridge/camera/ocs"
)

// ErrUnknownCommand returned for a command the bridge has no handler for
var ErrUnknownCommand = errors.New("UnknownCommand")

// Option configures a Bridge.
type Option func(*options)

type options struct {
	core     []core.Option
	executor []ocs.Option
}

// WithCoreOptions passes options to the hub.
func WithCoreOptions(opts ...core.Option) Option {
	return func(o *options) {
		o.core = append(o.core, opts...)
	}
}

// WithExecutorOptions passes options to the command executor.
func WithExecutorOptions(opts ...ocs.Option) Option {
	return func(o *options) {
		o.executor = append(o.executor, opts...)
	}
}

// Bridge is the camera.
type Bridge struct {
	cfg       config.Config
	ccs       *core.CCS
	lifecycle *core.State[Lifecycle]
	executor  *ocs.Executor
	readiness *core.State[ImageReadiness]
	shutter   *devices.Shutter
	rafts     *devices.Rafts
	filter    *devices.FilterWheel

	readinessListener core.ListenerID

	mu              sync.Mutex
	exposureTimeout *core.ScheduledAction
	preparation     []*core.ScheduledAction
	configuration   string
}

// New builds a camera in OfflinePublishOnly. States are registered in the
// order they are reported.
func New(cfg config.Config, responder ocs.Responder, opts ...Option) *Bridge {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	ccsOptions := append([]core.Option{core.WithWorkers(cfg.Workers)}, o.core...)
	ccs := core.NewCCS(ccsOptions...)

	b := &Bridge{cfg: cfg, ccs: ccs}
	b.lifecycle = core.NewState(ccs, OfflinePublishOnly)
	b.executor = ocs.NewExecutor(ccs, b, responder, o.executor...)
	b.readiness = core.NewState(ccs, ImageNotReady)
	b.shutter = devices.NewShutter(ccs, cfg.ShutterTiming())
	b.rafts = devices.NewRafts(ccs, cfg.RaftsTiming())
	b.filter = devices.NewFilterWheel(ccs, cfg.FilterTiming(), cfg.Filters)

	b.readinessListener = ccs.AddListener(b.deriveReadiness)
	return b
}

// deriveReadiness keeps image readiness in step with the devices: ready once
// the array is quiescent and the shutter is ready, not ready when that breaks
// unless an InitImage is getting things ready.
func (b *Bridge) deriveReadiness(core.Transition) {
	status := b.ccs.Status()
	if status.HasAll(devices.RaftsQuiescent, devices.ShutterReady) {
		b.readiness.Set(ImageReady)
	} else if !status.HasAll(ImageGettingReady) {
		b.readiness.Set(ImageNotReady)
	}
}

// Submit runs cmd to completion. Local commands bypass the executor's busy gate.
func (b *Bridge) Submit(cmd command.Command) ocs.Result {
	local, ok := cmd.(command.Local)
	if !ok {
		return b.executor.Execute(cmd)
	}

	err := b.executor.ExecuteLocal(local)
	var notMet *command.PreconditionsNotMet
	switch {
	case err == nil:
		return ocs.Result{Outcome: ocs.Completed}
	case errors.As(err, &notMet):
		return ocs.Result{Outcome: ocs.Rejected, Reason: notMet.Reason, Err: err}
	default:
		return ocs.Result{Outcome: ocs.Failed, Reason: err.Error(), Err: err}
	}
}

// Shutdown cancels every pending action and waiter and waits for running actions to return.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.ccs.RemoveListener(b.readinessListener)
	b.mu.Lock()
	if b.exposureTimeout != nil {
		b.exposureTimeout.Cancel()
	}
	b.mu.Unlock()
	return b.ccs.Shutdown(ctx)
}

// CCS returns the hub every camera state is registered with.
func (b *Bridge) CCS() *core.CCS {
	return b.ccs
}

func (b *Bridge) Lifecycle() *core.State[Lifecycle] {
	return b.lifecycle
}

// ImageReadiness returns the state derived from the shutter and rafts.
func (b *Bridge) ImageReadiness() *core.State[ImageReadiness] {
	return b.readiness
}

func (b *Bridge) Executor() *ocs.Executor {
	return b.executor
}

// Shutter ...
func (b *Bridge) Shutter() *devices.Shutter {
	return b.shutter
}

// Rafts ...
func (b *Bridge) Rafts() *devices.Rafts {
	return b.rafts
}

// FilterWheel ...
func (b *Bridge) FilterWheel() *devices.FilterWheel {
	return b.filter
}

// Configuration returns the configuration named by the last Start command.
func (b *Bridge) Configuration() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.configuration
}

// ExposureInProgress reports whether a StartImage exposure is open.
func (b *Bridge) ExposureInProgress() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exposureInProgressUnsafe()
}

func (b *Bridge) exposureInProgressUnsafe() bool {
	return b.exposureTimeout != nil && !b.exposureTimeout.IsDone()
}

// InternalState describes every state for debugging.
func (b *Bridge) InternalState() *statejson.InternalStateDescription {
	return &statejson.InternalStateDescription{
		States:             b.ccs.Status().Describe(),
		Filter:             b.filter.Describe(),
		Configuration:      b.Configuration(),
		ExposureInProgress: b.ExposureInProgress(),
		PendingWaiters:     b.ccs.PendingWaiters(),
		PendingActions:     b.ccs.PendingActions(),
	}
}

func (b *Bridge) logError(what string, err error) {
	if err != nil {
		log.WithError(err).Warn(what)
	}
}
