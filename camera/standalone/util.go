// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package standalone

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/render"
)

type ErrorType int

const (
	ClientInvalidRequest ErrorType = iota
	ClientUnknownCommand
)

func (t ErrorType) String() string {
	switch t {
	case ClientInvalidRequest:
		return "Client.InvalidRequest"
	case ClientUnknownCommand:
		return "Client.UnknownCommand"
	}
	return fmt.Sprintf("Cannot stringify standalone.ErrorType.%d", int(t))
}

// ErrorResponse is the body of every 4xx reply.
type ErrorResponse struct {
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
}

type Reply interface {
	Send(http.ResponseWriter, *http.Request)
}

type ErrorReply struct {
	ErrorResponse
	status int
}

func newErrorReply(errType ErrorType, errMsg string) *ErrorReply {
	status := http.StatusBadRequest
	if errType == ClientUnknownCommand {
		status = http.StatusNotFound
	}
	return &ErrorReply{ErrorResponse: ErrorResponse{ErrorType: errType.String(), ErrorMessage: errMsg}, status: status}
}

func (e *ErrorReply) Send(w http.ResponseWriter, r *http.Request) {
	render.Status(r, e.status)
	render.JSON(w, r, &e.ErrorResponse)
}

// SuccessReply renders Body as JSON with a 200 status.
type SuccessReply struct {
	Body interface{}
}

func (s *SuccessReply) Send(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.Body)
}

// readBodyAndUnmarshalJSON decodes the body into dst. An empty body leaves dst untouched.
func readBodyAndUnmarshalJSON(r *http.Request, dst interface{}) *ErrorReply {
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		return newErrorReply(ClientInvalidRequest, fmt.Sprintf("Failed to read full body: %s", err))
	}
	if len(bodyBytes) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(bodyBytes))
	decoder.DisallowUnknownFields()
	if err = decoder.Decode(dst); err != nil {
		return newErrorReply(ClientInvalidRequest, fmt.Sprintf("Invalid json %s: %s", string(bodyBytes), err))
	}
	return nil
}
