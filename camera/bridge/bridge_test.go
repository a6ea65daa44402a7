// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/tony-johnson/ToyOCSBridge/camera/command"
	"github.com/tony-johnson/ToyOCSBridge/camera/config"
	"github.com/tony-johnson/ToyOCSBridge/camera/devices"
	"github.com/tony-johnson/ToyOCSBridge/camera/ocs"
	"github.com/tony-johnson/ToyOCSBridge/camera/testdata"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newBridge(t *testing.T) (*Bridge, *testdata.RecordingResponder) {
	return newBridgeWithConfig(t, testdata.FastConfig())
}

func newBridgeWithConfig(t *testing.T, cfg config.Config) (*Bridge, *testdata.RecordingResponder) {
	responder := &testdata.RecordingResponder{}
	b := New(cfg, responder)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		assert.NoError(t, b.Shutdown(ctx))
	})
	return b, responder
}

func requireCompleted(t *testing.T, b *Bridge, cmd command.Command) {
	t.Helper()
	result := b.Submit(cmd)
	require.Equal(t, ocs.Completed, result.Outcome, "%s: %s", command.Describe(cmd), result.Reason)
}

func requireRejected(t *testing.T, b *Bridge, cmd command.Command, reason string) {
	t.Helper()
	result := b.Submit(cmd)
	require.Equal(t, ocs.Rejected, result.Outcome, command.Describe(cmd))
	require.Equal(t, reason, result.Reason)
}

func enable(t *testing.T, b *Bridge) {
	t.Helper()
	requireCompleted(t, b, &command.SetAvailable{})
	requireCompleted(t, b, &command.EnterControl{})
	requireCompleted(t, b, &command.Start{Configuration: "Normal"})
	requireCompleted(t, b, &command.Enable{})
	require.Equal(t, Enabled, b.Lifecycle().Get())
}

func TestNewBridgeRegistersStatesInOrder(t *testing.T) {
	b, _ := newBridge(t)

	var kinds []string
	for _, s := range b.CCS().Status().States() {
		kinds = append(kinds, string(s.Kind()))
	}
	assert.Equal(t, []string{
		"LifecycleState",
		"CommandExecutionState",
		"TakeImageReadinessState",
		"ShutterReadinessState",
		"ShutterState",
		"RaftsState",
		"FilterState",
	}, kinds)
	assert.Equal(t, OfflinePublishOnly, b.Lifecycle().Get())
	assert.Equal(t, ImageNotReady, b.ImageReadiness().Get())
}

func TestLifecycleRoundTrip(t *testing.T) {
	b, _ := newBridge(t)
	lifecycle := testdata.RecordTransitions(b.CCS(), LifecycleKind)

	requireRejected(t, b, &command.EnterControl{}, "Command not accepted in: OfflinePublishOnly")
	requireCompleted(t, b, &command.SetAvailable{})
	requireCompleted(t, b, &command.EnterControl{})
	requireCompleted(t, b, &command.Start{Configuration: "Normal"})
	assert.Equal(t, "Normal", b.Configuration())
	requireCompleted(t, b, &command.Enable{})
	requireCompleted(t, b, &command.Disable{})
	requireCompleted(t, b, &command.Standby{})
	requireCompleted(t, b, &command.ExitControl{})

	assert.Equal(t, OfflinePublishOnly, b.Lifecycle().Get())
	assert.Equal(t, []string{"OfflineAvailable", "Standby", "Disabled", "Enabled", "Disabled", "Standby", "OfflinePublishOnly"}, lifecycle.Values())
}

func TestRevokeAvailable(t *testing.T) {
	b, _ := newBridge(t)
	requireRejected(t, b, &command.RevokeAvailable{}, "Command not accepted in: OfflinePublishOnly")
	requireCompleted(t, b, &command.SetAvailable{})
	requireCompleted(t, b, &command.RevokeAvailable{})
	assert.Equal(t, OfflinePublishOnly, b.Lifecycle().Get())
}

func TestTakeImages(t *testing.T) {
	b, responder := newBridge(t)
	enable(t, b)
	rafts := testdata.RecordTransitions(b.CCS(), devices.RaftsKind)
	shutter := testdata.RecordTransitions(b.CCS(), devices.ShutterPositionKind)

	cmd := &command.TakeImages{Exposure: 0.05, NImages: 2, OpenShutter: true, Science: true}
	cmd.SetCorrelationID("take-1")
	result := b.Submit(cmd)
	require.Equal(t, ocs.Completed, result.Outcome, result.Reason)
	assert.Equal(t, 2*(50+10+30)*time.Millisecond, result.Estimate)

	require.Eventually(t, func() bool { return b.Rafts().State().IsIn(devices.RaftsQuiescent) }, waitFor, tick)
	require.Eventually(t, func() bool { return b.Shutter().Position().IsIn(devices.ShutterClosed) }, waitFor, tick)
	assert.Equal(t, 2, rafts.Count("Integrating"))
	assert.Equal(t, 2, rafts.Count("ReadingOut"))
	assert.Equal(t, 2, shutter.Count("Open"))
	assert.Equal(t, ocs.Idle, b.Executor().State())

	responses := responder.Responses("take-1")
	require.Len(t, responses, 2)
	assert.Equal(t, "ack", responses[0].Kind)
	assert.Equal(t, result.Estimate, responses[0].Estimate)
	assert.Equal(t, "complete", responses[1].Kind)

	requireCompleted(t, b, &command.Disable{})
	requireRejected(t, b, &command.TakeImages{Exposure: 0.05, NImages: 1}, "Command not accepted in: Disabled")
}

func TestTakeImagesReadoutShorterThanShutterMove(t *testing.T) {
	cfg := testdata.FastConfig()
	cfg.Shutter.Move = 60 * time.Millisecond
	cfg.Rafts.Readout = 10 * time.Millisecond
	require.NoError(t, cfg.Validate())

	b, _ := newBridgeWithConfig(t, cfg)
	enable(t, b)
	shutter := testdata.RecordTransitions(b.CCS(), devices.ShutterPositionKind)

	requireCompleted(t, b, &command.TakeImages{Exposure: 0.05, NImages: 2, OpenShutter: true})
	require.Eventually(t, func() bool { return b.Shutter().Position().IsIn(devices.ShutterClosed) }, waitFor, tick)
	assert.Equal(t, 2, shutter.Count("Open"))
	assert.Equal(t, 2, shutter.Count("Closed"))
}

func TestTakeImagesWithoutShutter(t *testing.T) {
	b, _ := newBridge(t)
	enable(t, b)
	shutter := testdata.RecordTransitions(b.CCS(), devices.ShutterPositionKind)

	requireCompleted(t, b, &command.TakeImages{Exposure: 0.02, NImages: 1})
	assert.Empty(t, shutter.Values())
}

func TestTakeImagesInvalidArguments(t *testing.T) {
	b, responder := newBridge(t)
	enable(t, b)

	for _, cmd := range []*command.TakeImages{
		{Exposure: 0.05, NImages: 0},
		{Exposure: 0.05, NImages: 11},
		{Exposure: 0.001, NImages: 1},
		{Exposure: 5, NImages: 1},
	} {
		cmd.SetCorrelationID("bad")
		requireRejected(t, b, cmd, "Invalid argument")
	}
	for _, resp := range responder.Responses("bad") {
		assert.Equal(t, "reject", resp.Kind)
	}
}

func TestSetFilter(t *testing.T) {
	b, _ := newBridge(t)
	enable(t, b)
	filter := testdata.RecordTransitions(b.CCS(), devices.FilterKind)

	requireRejected(t, b, &command.SetFilter{Filter: "bogus"}, "Invalid filter: bogus")
	assert.Empty(t, filter.Values())

	requireCompleted(t, b, &command.SetFilter{Filter: "r-1"})
	assert.Equal(t, "r-1", b.FilterWheel().Current())
	assert.Equal(t, 144, b.FilterWheel().Rotation())
	assert.Equal(t, []string{"Rotating", "Unloaded", "Loading", "Loaded"}, filter.Values())

	state := b.InternalState()
	require.NotNil(t, state.Filter)
	assert.Equal(t, "r-1", state.Filter.Name)
	assert.Equal(t, "Normal", state.Configuration)
}

func TestInitImage(t *testing.T) {
	b, _ := newBridge(t)
	enable(t, b)

	requireRejected(t, b, &command.InitImage{DeltaT: 5}, "Invalid deltaT: 5")
	requireCompleted(t, b, &command.InitImage{DeltaT: 0.1})
	assert.Equal(t, ImageGettingReady, b.ImageReadiness().Get())

	require.Eventually(t, func() bool { return b.ImageReadiness().IsIn(ImageReady) }, waitFor, tick)
	assert.True(t, b.Rafts().State().IsIn(devices.RaftsQuiescent))
	assert.True(t, b.Shutter().Readiness().IsIn(devices.ShutterReady))
}

func TestStartAndEndImage(t *testing.T) {
	b, _ := newBridge(t)
	enable(t, b)

	requireRejected(t, b, &command.EndImage{}, "No exposure in progress")
	requireRejected(t, b, &command.DiscardRows{NRows: 10}, "No exposure in progress")

	requireCompleted(t, b, &command.StartImage{VisitName: "v1", OpenShutter: true, Science: true, Timeout: 1})
	assert.True(t, b.ExposureInProgress())
	assert.True(t, b.InternalState().ExposureInProgress)
	assert.True(t, b.Rafts().State().IsIn(devices.RaftsIntegrating))

	requireRejected(t, b, &command.Disable{}, "Exposure in progress")
	requireRejected(t, b, &command.StartImage{Timeout: 1}, "Exposure in progress")
	requireCompleted(t, b, &command.DiscardRows{NRows: 10})

	require.Eventually(t, func() bool { return b.Shutter().Position().IsIn(devices.ShutterOpen) }, waitFor, tick)
	requireCompleted(t, b, &command.EndImage{})
	assert.False(t, b.ExposureInProgress())
	assert.True(t, b.Shutter().Position().IsIn(devices.ShutterClosed))

	require.Eventually(t, func() bool { return b.Rafts().State().IsIn(devices.RaftsQuiescent) }, waitFor, tick)
	requireCompleted(t, b, &command.Disable{})
}

func TestStartImageTimesOut(t *testing.T) {
	b, _ := newBridge(t)
	enable(t, b)

	requireCompleted(t, b, &command.StartImage{Timeout: 0.05})
	require.Eventually(t, func() bool { return b.Rafts().State().IsIn(devices.RaftsNeedsClear) }, waitFor, tick)
	assert.False(t, b.ExposureInProgress())

	requireRejected(t, b, &command.EndImage{}, "No exposure in progress")
}

func TestStartImageInvalidTimeout(t *testing.T) {
	b, _ := newBridge(t)
	enable(t, b)
	requireRejected(t, b, &command.StartImage{Timeout: 0.01}, "Invalid argument")
	requireRejected(t, b, &command.StartImage{Timeout: 50}, "Invalid argument")
}

func TestClear(t *testing.T) {
	b, _ := newBridge(t)
	enable(t, b)

	requireRejected(t, b, &command.Clear{NClears: 0}, "Invalid nClears: 0")
	requireCompleted(t, b, &command.Clear{NClears: 3})
	assert.True(t, b.Rafts().State().IsIn(devices.RaftsQuiescent))
}

func TestInitGuiders(t *testing.T) {
	b, _ := newBridge(t)
	requireRejected(t, b, &command.InitGuiders{RoiSpec: "roi"}, "Command not accepted in: OfflinePublishOnly")
	enable(t, b)
	requireCompleted(t, b, &command.InitGuiders{RoiSpec: "roi"})
}

func TestFaultAndClearFault(t *testing.T) {
	b, _ := newBridge(t)

	requireRejected(t, b, &command.ClearFault{}, "Command not accepted in: OfflinePublishOnly")
	enable(t, b)
	requireCompleted(t, b, &command.SimulateFault{})
	assert.Equal(t, Fault, b.Lifecycle().Get())
	requireRejected(t, b, &command.TakeImages{Exposure: 0.05, NImages: 1}, "Command not accepted in: Fault")

	requireCompleted(t, b, &command.ClearFault{})
	assert.Equal(t, OfflinePublishOnly, b.Lifecycle().Get())
}

func TestBusyCommandRejected(t *testing.T) {
	b, _ := newBridge(t)
	enable(t, b)

	var g errgroup.Group
	g.Go(func() error {
		if result := b.Submit(&command.TakeImages{Exposure: 0.3, NImages: 1}); result.Outcome != ocs.Completed {
			return fmt.Errorf("takeImages %s: %s", result.Outcome, result.Reason)
		}
		return nil
	})

	require.Eventually(t, func() bool { return b.Executor().State() == ocs.Busy }, waitFor, time.Millisecond)
	result := b.Submit(&command.Clear{NClears: 1})
	assert.Equal(t, ocs.Rejected, result.Outcome)
	assert.ErrorIs(t, result.Err, ocs.ErrExecutorBusy)

	// Local commands are not gated by the executor.
	requireCompleted(t, b, &command.SimulateFault{})

	require.NoError(t, g.Wait())
}

func TestShutdownCancelsEverything(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := New(testdata.FastConfig(), &testdata.RecordingResponder{})
	enable(t, b)
	requireCompleted(t, b, &command.InitImage{DeltaT: 0.2})
	requireCompleted(t, b, &command.StartImage{Timeout: 1})
	require.NotZero(t, b.CCS().PendingActions())

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, b.Shutdown(ctx))
	assert.Zero(t, b.CCS().PendingActions())
	assert.Zero(t, b.CCS().PendingWaiters())
}

func TestEnterThenExitControl(t *testing.T) {
	b, _ := newBridge(t)
	initial := b.Lifecycle().Get()

	requireCompleted(t, b, &command.SetAvailable{})
	requireCompleted(t, b, &command.EnterControl{})
	assert.Equal(t, Standby, b.Lifecycle().Get())
	requireCompleted(t, b, &command.ExitControl{})

	assert.Equal(t, initial, b.Lifecycle().Get())
	assert.Equal(t, ocs.Idle, b.Executor().State())
}
