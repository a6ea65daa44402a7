// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package bridge

import "github.com/tony-johnson/ToyOCSBridge/camera/core"

// Lifecycle is the camera's summary state as seen by the supervisory controller.
type Lifecycle int

const (
	OfflinePublishOnly Lifecycle = iota
	OfflineAvailable
	Standby
	Disabled
	Enabled
	Fault
)

// ImageReadiness tells whether an exposure can start immediately.
type ImageReadiness int

const (
	ImageReady ImageReadiness = iota
	ImageNotReady
	ImageGettingReady
)

const (
	LifecycleKind      core.Kind = "LifecycleState"
	ImageReadinessKind core.Kind = "TakeImageReadinessState"
)

var (
	lifecycleNames      = [...]string{"OfflinePublishOnly", "OfflineAvailable", "Standby", "Disabled", "Enabled", "Fault"}
	imageReadinessNames = [...]string{"Ready", "NotReady", "GettingReady"}
)

func (Lifecycle) Kind() core.Kind       { return LifecycleKind }
func (l Lifecycle) String() string      { return lifecycleNames[l] }
func (ImageReadiness) Kind() core.Kind  { return ImageReadinessKind }
func (r ImageReadiness) String() string { return imageReadinessNames[r] }
