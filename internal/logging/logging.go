/*
Copyright 2026 The MessageQueue Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logging wires zap into logr.Logger via zapr, the same split the
// teacher uses (zap does the writing, logr is the interface every
// component depends on so none of them import zap directly).
package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// base is the process-wide zap logger. It is built once in New and never
// swapped, matching the teacher's ctrl.SetLogger-at-startup convention.
var base logr.Logger = logr.Discard()

// New builds the process logger. development selects the human-readable
// console encoder (teacher's zap.NewDevelopment equivalent); otherwise the
// JSON production encoder is used.
func New(development bool, levelName string) (logr.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	level, err := parseLevel(levelName)
	if err != nil {
		return logr.Discard(), err
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), err
	}

	base = zapr.NewLogger(zl)
	return base, nil
}

// Named returns the process logger scoped to a component name, mirroring
// the teacher's logf.Log.WithName("component") convention used throughout
// pkg/scalers and pkg/util.
func Named(name string) logr.Logger {
	return base.WithName(name)
}

func parseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.Set(name); err != nil {
		return zapcore.InfoLevel, err
	}
	return lvl, nil
}
