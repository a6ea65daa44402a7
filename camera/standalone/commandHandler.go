// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package standalone

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tony-johnson/ToyOCSBridge/camera/command"
	"github.com/tony-johnson/ToyOCSBridge/camera/ocs"
)

const (
	RejectedHTTPCode = http.StatusConflict
	FailedHTTPCode   = http.StatusBadGateway
)

// CommandResponse reports the outcome of a submitted command.
type CommandResponse struct {
	ID         command.ID  `json:"id"`
	Command    string      `json:"command"`
	Outcome    ocs.Outcome `json:"outcome"`
	Reason     string      `json:"reason,omitempty"`
	EstimateMs int64       `json:"estimateMs,omitempty"`
	DurationMs int64       `json:"durationMs"`
}

// CommandHandler decodes the command named in the path from the request
// body and runs it to completion. local selects between the OCS command set
// and the local command set; a name from the other set is not found.
func CommandHandler(w http.ResponseWriter, r *http.Request, camera Camera, local bool) {
	name := chi.URLParam(r, "name")
	cmd, found := command.New(name)
	if !found || command.IsLocal(cmd) != local {
		newErrorReply(ClientUnknownCommand, fmt.Sprintf("Unknown command: %s", name)).Send(w, r)
		return
	}

	if reply := readBodyAndUnmarshalJSON(r, cmd); reply != nil {
		reply.Send(w, r)
		return
	}
	if cmd.CorrelationID() == "" {
		cmd.SetCorrelationID(command.ID(uuid.New().String()))
	}

	result := camera.Submit(cmd)
	switch result.Outcome {
	case ocs.Rejected:
		render.Status(r, RejectedHTTPCode)
	case ocs.Failed:
		render.Status(r, FailedHTTPCode)
	}
	render.JSON(w, r, &CommandResponse{
		ID:         cmd.CorrelationID(),
		Command:    cmd.Name(),
		Outcome:    result.Outcome,
		Reason:     result.Reason,
		EstimateMs: result.Estimate.Milliseconds(),
		DurationMs: result.Duration.Milliseconds(),
	})
}
