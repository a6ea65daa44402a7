// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package standalone

import (
	"net/http"

	"github.com/tony-johnson/ToyOCSBridge/camera/telemetry"
)

func EventLogHandler(w http.ResponseWriter, r *http.Request, eventsAPI *telemetry.EventsAPI) {
	(&SuccessReply{Body: eventsAPI.EventLog()}).Send(w, r)
}
