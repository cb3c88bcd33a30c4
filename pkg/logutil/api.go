// Copyright 2026 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logutil

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	globalLogger atomic.Value
	skip1Logger  atomic.Value
	initOnce     sync.Once
)

func replaceGlobalLogger(logger *zap.Logger) {
	globalLogger.Store(logger)
	skip1Logger.Store(logger.WithOptions(zap.AddCallerSkip(1)))
	zap.ReplaceGlobals(logger)
}

// GetGlobalLogger returns the installed logger, setting up a console
// logger at info level on first use.
func GetGlobalLogger() *zap.Logger {
	if l, ok := globalLogger.Load().(*zap.Logger); ok {
		return l
	}
	initOnce.Do(func() {
		if globalLogger.Load() == nil {
			SetupMOLogger(&LogConfig{Level: "info", Format: "console"})
		}
	})
	return globalLogger.Load().(*zap.Logger)
}

// GetLogger returns the global logger with extra options applied.
func GetLogger(options ...zap.Option) *zap.Logger {
	return GetGlobalLogger().WithOptions(options...)
}

// Adjust returns logger unchanged when it is non nil, and the global
// logger otherwise.
func Adjust(logger *zap.Logger, options ...zap.Option) *zap.Logger {
	if logger != nil {
		return logger
	}
	return GetLogger(options...)
}

func getSkip1Logger() *zap.Logger {
	if l, ok := skip1Logger.Load().(*zap.Logger); ok {
		return l
	}
	GetGlobalLogger()
	return skip1Logger.Load().(*zap.Logger)
}

func Debug(msg string, fields ...zap.Field) {
	getSkip1Logger().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	getSkip1Logger().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	getSkip1Logger().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	getSkip1Logger().Error(msg, fields...)
}

func Panic(msg string, fields ...zap.Field) {
	getSkip1Logger().Panic(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	getSkip1Logger().Fatal(msg, fields...)
}

func Debugf(msg string, args ...any) {
	getSkip1Logger().Sugar().Debugf(msg, args...)
}

func Infof(msg string, args ...any) {
	getSkip1Logger().Sugar().Infof(msg, args...)
}

func Warnf(msg string, args ...any) {
	getSkip1Logger().Sugar().Warnf(msg, args...)
}

func Errorf(msg string, args ...any) {
	getSkip1Logger().Sugar().Errorf(msg, args...)
}

func Panicf(msg string, args ...any) {
	getSkip1Logger().Sugar().Panicf(msg, args...)
}

func Fatalf(msg string, args ...any) {
	getSkip1Logger().Sugar().Fatalf(msg, args...)
}
