// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/tony-johnson/ToyOCSBridge/camera/standalone"
	"github.com/tony-johnson/ToyOCSBridge/camera/telemetry"
)

func startHTTPServer(ipport string, camera standalone.Camera, eventsAPI *telemetry.EventsAPI, gatherer prometheus.Gatherer) *http.Server {
	srv := &http.Server{
		Addr:    ipport,
		Handler: standalone.NewHTTPRouter(camera, eventsAPI, gatherer),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panic(err)
		}
	}()

	log.Warnf("Listening on %s", ipport)
	return srv
}

// Block until SIGINT or SIGTERM
func signalHandler() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	sigReceived := <-sig
	log.WithField("signal", sigReceived.String()).Info("Received signal")
}
