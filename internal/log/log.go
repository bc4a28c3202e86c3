/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package log is a printf-style leveled logging facade backed by zap.
// All packages in this repo log through it; the level is process-global.
package log

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int32

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var level atomic.Int32

var sugar *zap.SugaredLogger

func init() {
	level.Store(int32(InfoLevel))
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.DisableStacktrace = true
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	sugar = l.Sugar()
}

// SetLogLevel sets the process-global log level.
func SetLogLevel(l Level) {
	level.Store(int32(l))
}

// GetLogLevel returns the current process-global log level.
func GetLogLevel() Level {
	return Level(level.Load())
}

func Debug(format string, args ...interface{}) {
	if GetLogLevel() <= DebugLevel {
		sugar.Debugf(format, args...)
	}
}

func Info(format string, args ...interface{}) {
	if GetLogLevel() <= InfoLevel {
		sugar.Infof(format, args...)
	}
}

func Warn(format string, args ...interface{}) {
	if GetLogLevel() <= WarnLevel {
		sugar.Warnf(format, args...)
	}
}

func Error(format string, args ...interface{}) {
	if GetLogLevel() <= ErrorLevel {
		sugar.Errorf(format, args...)
	}
}
