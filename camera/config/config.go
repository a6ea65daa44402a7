// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the camera configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables prefixed with TOYOCS_. Command line flags are applied
// on top by the binary.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/tony-johnson/ToyOCSBridge/camera/devices"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "TOYOCS_"

// Config is the complete camera configuration.
type Config struct {
	LogLevel     string   `yaml:"logLevel" env:"LOG_LEVEL"`
	Address      string   `yaml:"address" env:"ADDRESS"`
	Workers      int      `yaml:"workers" env:"WORKERS"`
	EventLogSize int      `yaml:"eventLogSize" env:"EVENT_LOG_SIZE"`
	Filters      []string `yaml:"filters" env:"FILTERS" envSeparator:","`

	Shutter ShutterConfig `yaml:"shutter" envPrefix:"SHUTTER_"`
	Rafts   RaftsConfig   `yaml:"rafts" envPrefix:"RAFTS_"`
	Filter  FilterConfig  `yaml:"filter" envPrefix:"FILTER_"`
	Limits  Limits        `yaml:"limits" envPrefix:"LIMITS_"`
}

// ShutterConfig holds the simulated shutter durations.
type ShutterConfig struct {
	Prep      time.Duration `yaml:"prep" env:"PREP"`
	ReadyHold time.Duration `yaml:"readyHold" env:"READY_HOLD"`
	Move      time.Duration `yaml:"move" env:"MOVE"`
}

// RaftsConfig holds the simulated sensor array durations.
type RaftsConfig struct {
	Readout         time.Duration `yaml:"readout" env:"READOUT"`
	Clear           time.Duration `yaml:"clear" env:"CLEAR"`
	IdleBeforeClear time.Duration `yaml:"idleBeforeClear" env:"IDLE_BEFORE_CLEAR"`
}

// FilterConfig holds the simulated filter changer durations.
type FilterConfig struct {
	Load              time.Duration `yaml:"load" env:"LOAD"`
	Unload            time.Duration `yaml:"unload" env:"UNLOAD"`
	RotationPerDegree time.Duration `yaml:"rotationPerDegree" env:"ROTATION_PER_DEGREE"`
}

// Limits bound the parameters accepted by imaging commands. Times are in
// seconds, as they arrive on the wire.
type Limits struct {
	MaxDeltaT         float64       `yaml:"maxDeltaT" env:"MAX_DELTA_T"`
	MinExposure       float64       `yaml:"minExposure" env:"MIN_EXPOSURE"`
	MaxExposure       float64       `yaml:"maxExposure" env:"MAX_EXPOSURE"`
	MaxImages         int           `yaml:"maxImages" env:"MAX_IMAGES"`
	MaxClears         int           `yaml:"maxClears" env:"MAX_CLEARS"`
	MinStartTimeout   float64       `yaml:"minStartTimeout" env:"MIN_START_TIMEOUT"`
	MaxStartTimeout   float64       `yaml:"maxStartTimeout" env:"MAX_START_TIMEOUT"`
	ReadinessWait     time.Duration `yaml:"readinessWait" env:"READINESS_WAIT"`
	CommandWaitMargin time.Duration `yaml:"commandWaitMargin" env:"COMMAND_WAIT_MARGIN"`
}

// Default returns the configuration of the simulated camera.
func Default() Config {
	return Config{
		LogLevel:     "info",
		Address:      "0.0.0.0:8080",
		Workers:      4,
		EventLogSize: 1000,
		Filters:      []string{"u-10", "g-9", "r-1", "i-9", "x-100"},
		Shutter: ShutterConfig{
			Prep:      150 * time.Millisecond,
			ReadyHold: 4000 * time.Millisecond,
			Move:      980 * time.Millisecond,
		},
		Rafts: RaftsConfig{
			Readout:         2000 * time.Millisecond,
			Clear:           70 * time.Millisecond,
			IdleBeforeClear: 4000 * time.Millisecond,
		},
		Filter: FilterConfig{
			Load:              15000 * time.Millisecond,
			Unload:            15000 * time.Millisecond,
			RotationPerDegree: 100 * time.Millisecond,
		},
		Limits: Limits{
			MaxDeltaT:         15,
			MinExposure:       1,
			MaxExposure:       30,
			MaxImages:         10,
			MaxClears:         15,
			MinStartTimeout:   1,
			MaxStartTimeout:   120,
			ReadinessWait:     time.Second,
			CommandWaitMargin: time.Second,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path (if path is
// not empty) and the process environment.
func Load(path string) (Config, error) {
	return LoadWithEnvironment(path, nil)
}

// LoadWithEnvironment is Load with an explicit environment. A nil environ
// means the process environment.
func LoadWithEnvironment(path string, environ map[string]string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	return nil
}

// ShutterTiming converts the shutter block for devices.NewShutter.
func (c Config) ShutterTiming() devices.ShutterTiming {
	return devices.ShutterTiming{Prep: c.Shutter.Prep, ReadyHold: c.Shutter.ReadyHold, Move: c.Shutter.Move}
}

// RaftsTiming converts the rafts block for devices.NewRafts.
func (c Config) RaftsTiming() devices.RaftsTiming {
	return devices.RaftsTiming{Readout: c.Rafts.Readout, Clear: c.Rafts.Clear, IdleBeforeClear: c.Rafts.IdleBeforeClear}
}

// FilterTiming converts the filter block for devices.NewFilterWheel.
func (c Config) FilterTiming() devices.FilterTiming {
	return devices.FilterTiming{Load: c.Filter.Load, Unload: c.Filter.Unload, RotationPerDegree: c.Filter.RotationPerDegree}
}
