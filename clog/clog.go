// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package clog provides the internal logging shim shared by the tunnel,
// session, discovery and polling packages.
package clog

import (
	"log/slog"
	"os"
	"sync/atomic"
)

// LogProvider is the interface a caller implements to bridge Clog output
// into its own logging stack (e.g. a smart-home host application).
type LogProvider interface {
	Critical(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Clog is the internal debugging logger embedded by every package in this
// module. It is silent until LogMode(true) is called.
type Clog struct {
	provider LogProvider
	// is log output enabled, 1: enable, 0: disable
	has uint32
}

// NewLogger creates a Clog backed by a slog.Logger with the given component
// name attached to every record as "component".
func NewLogger(component string) Clog {
	return Clog{
		provider: slogProvider{slog.Default().With("component", component)},
	}
}

// LogMode enables or disables log output.
func (sf *Clog) LogMode(enable bool) {
	if enable {
		atomic.StoreUint32(&sf.has, 1)
	} else {
		atomic.StoreUint32(&sf.has, 0)
	}
}

// SetLogProvider overrides the log provider, e.g. to bridge into a host
// application's own logger.
func (sf *Clog) SetLogProvider(p LogProvider) {
	if p != nil {
		sf.provider = p
	}
}

// Critical logs a CRITICAL level message.
func (sf Clog) Critical(msg string, args ...any) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Critical(msg, args...)
	}
}

// Error logs an ERROR level message.
func (sf Clog) Error(msg string, args ...any) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Error(msg, args...)
	}
}

// Warn logs a WARN level message.
func (sf Clog) Warn(msg string, args ...any) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Warn(msg, args...)
	}
}

// Debug logs a DEBUG level message.
func (sf Clog) Debug(msg string, args ...any) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Debug(msg, args...)
	}
}

// slogProvider is the default LogProvider, backed by log/slog.
type slogProvider struct {
	log *slog.Logger
}

var _ LogProvider = slogProvider{}

func (sf slogProvider) Critical(msg string, args ...any) {
	sf.log.Error(msg, append([]any{"level", "critical"}, args...)...)
}

func (sf slogProvider) Error(msg string, args ...any) { sf.log.Error(msg, args...) }
func (sf slogProvider) Warn(msg string, args ...any)  { sf.log.Warn(msg, args...) }
func (sf slogProvider) Debug(msg string, args ...any) { sf.log.Debug(msg, args...) }

// DiscardLogger returns a Clog whose default provider writes nowhere; handy
// for tests that want LogMode(true) without cluttering output.
func DiscardLogger() Clog {
	c := Clog{provider: slogProvider{slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 100}))}}
	return c
}
