// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"github.com/tony-johnson/ToyOCSBridge/camera/bridge"
	"github.com/tony-johnson/ToyOCSBridge/camera/config"
	"github.com/tony-johnson/ToyOCSBridge/camera/core"
	"github.com/tony-johnson/ToyOCSBridge/camera/logging"
	"github.com/tony-johnson/ToyOCSBridge/camera/metrics"
	"github.com/tony-johnson/ToyOCSBridge/camera/ocs"
	"github.com/tony-johnson/ToyOCSBridge/camera/telemetry"
)

const shutdownTimeout = 10 * time.Second

type options struct {
	ConfigFile       string `long:"config" short:"c" description:"YAML configuration file"`
	LogLevel         string `long:"log-level" description:"log level, overrides the configuration"`
	Address          string `long:"address" description:"HTTP listen address, overrides the configuration"`
	Workers          int    `long:"workers" description:"concurrent scheduled actions, overrides the configuration"`
	StructuredEvents bool   `long:"structured-events" description:"write every camera event to stdout as JSON"`
}

func main() {
	opts := getCLIArgs()

	cfg, err := loadConfig(opts)
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if err := logging.SetLogLevel(cfg.LogLevel); err != nil {
		log.WithError(err).Fatal("Invalid log level")
	}
	if opts.StructuredEvents {
		telemetry.SetStructuredOutput(os.Stdout)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	eventsAPI := telemetry.NewEventsAPI(cfg.EventLogSize)

	camera := bridge.New(cfg, ocs.Responders{ocs.LogResponder{}, eventsAPI},
		bridge.WithCoreOptions(core.WithObserver(m)),
		bridge.WithExecutorOptions(ocs.WithOutcomeObserver(m)))
	camera.CCS().AddListener(eventsAPI.StateChanged)
	camera.CCS().AddListener(m.StateChanged)
	log.Infof("Camera ready with filters %v", cfg.Filters)

	srv := startHTTPServer(cfg.Address, camera, eventsAPI, registry)

	signalHandler()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	if err := camera.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("Camera did not shut down cleanly")
	}
	log.Info("Camera shut down")
}

func getCLIArgs() options {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.WithError(err).Fatal("Failed to parse command line arguments:", os.Args)
	}
	return opts
}

// loadConfig applies the command line on top of the configuration file and environment.
func loadConfig(opts options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return config.Config{}, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.Address != "" {
		cfg.Address = opts.Address
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	return cfg, cfg.Validate()
}
