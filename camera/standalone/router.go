// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package standalone serves the camera over HTTP, standing in for the
// observatory control bus in tests and local runs.
package standalone

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tony-johnson/ToyOCSBridge/camera/command"
	"github.com/tony-johnson/ToyOCSBridge/camera/core/statejson"
	"github.com/tony-johnson/ToyOCSBridge/camera/ocs"
	"github.com/tony-johnson/ToyOCSBridge/camera/telemetry"
)

// Camera is the part of the bridge served over HTTP.
type Camera interface {
	Submit(cmd command.Command) ocs.Result
	InternalState() *statejson.InternalStateDescription
}

func NewHTTPRouter(camera Camera, eventsAPI *telemetry.EventsAPI, gatherer prometheus.Gatherer) *chi.Mux {
	r := chi.NewRouter()
	r.Use(standaloneAccessLogDecorator)

	r.Get("/test/ping", func(w http.ResponseWriter, r *http.Request) { PingHandler(w, r) })
	r.Post("/camera/command/{name}", func(w http.ResponseWriter, r *http.Request) { CommandHandler(w, r, camera, false) })
	r.Post("/camera/local/{name}", func(w http.ResponseWriter, r *http.Request) { CommandHandler(w, r, camera, true) })
	r.Get("/camera/state", func(w http.ResponseWriter, r *http.Request) { InternalStateHandler(w, r, camera) })
	r.Get("/camera/eventLog", func(w http.ResponseWriter, r *http.Request) { EventLogHandler(w, r, eventsAPI) })
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
