// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package session

import (
	"errors"
	"time"

	"github.com/genvex/tunnel/tunnel"
)

// defines the tunnel session configuration range. Mirrors the teacher's
// cs104.Config shape: a plain struct, a Valid() method that fills in
// defaults and rejects out-of-range values, and named Min/Max constants.
const (
	ConnectRetriesMin = 0
	ConnectRetriesMax = 10

	ConnectRetryIntervalMin = 100 * time.Millisecond
	ConnectRetryIntervalMax = 30 * time.Second

	KeepAliveIntervalMin = 1 * time.Second
	KeepAliveIntervalMax = 5 * time.Minute

	RequestTimeoutMin = 500 * time.Millisecond
	RequestTimeoutMax = 60 * time.Second
)

// Config defines a tunnel session's timing and retry behavior. The default
// is applied for each unspecified (zero) value.
type Config struct {
	// Port is the remote UDP port. Defaults to tunnel.DefaultPort.
	Port uint16

	// ConnectRetries is the number of U_CONNECT retransmissions attempted
	// before giving up. "0" default unsets to 3 (spec §4.3).
	ConnectRetries int

	// ConnectRetryInterval spaces consecutive U_CONNECT retransmissions.
	ConnectRetryInterval time.Duration

	// KeepAliveInterval is the period between keep-alive PINGs while
	// CONNECTED. Default 10s (spec §4.3).
	KeepAliveInterval time.Duration

	// RequestTimeout bounds readDatapoints/readSetpoints/writeSetpoints.
	// Default 5s (spec §4.3).
	RequestTimeout time.Duration
}

// Valid applies defaults and validates bounds, mutating sf in place.
func (sf *Config) Valid() error {
	if sf == nil {
		return errors.New("session: invalid pointer")
	}

	if sf.Port == 0 {
		sf.Port = tunnel.DefaultPort
	}

	if sf.ConnectRetries == 0 {
		sf.ConnectRetries = 3
	} else if sf.ConnectRetries < ConnectRetriesMin || sf.ConnectRetries > ConnectRetriesMax {
		return errors.New("session: ConnectRetries not in [0, 10]")
	}

	if sf.ConnectRetryInterval == 0 {
		sf.ConnectRetryInterval = 1 * time.Second
	} else if sf.ConnectRetryInterval < ConnectRetryIntervalMin || sf.ConnectRetryInterval > ConnectRetryIntervalMax {
		return errors.New("session: ConnectRetryInterval not in [100ms, 30s]")
	}

	if sf.KeepAliveInterval == 0 {
		sf.KeepAliveInterval = 10 * time.Second
	} else if sf.KeepAliveInterval < KeepAliveIntervalMin || sf.KeepAliveInterval > KeepAliveIntervalMax {
		return errors.New("session: KeepAliveInterval not in [1s, 5m]")
	}

	if sf.RequestTimeout == 0 {
		sf.RequestTimeout = 5 * time.Second
	} else if sf.RequestTimeout < RequestTimeoutMin || sf.RequestTimeout > RequestTimeoutMax {
		return errors.New("session: RequestTimeout not in [500ms, 60s]")
	}

	return nil
}

// DefaultConfig returns a Config with every field at its documented
// default.
func DefaultConfig() Config {
	cfg := Config{}
	_ = cfg.Valid()
	return cfg
}

// connectGiveUp is the overall deadline for connect(): ConnectRetries *
// ConnectRetryInterval + 2s (spec §4.3).
func (sf Config) connectGiveUp() time.Duration {
	return time.Duration(sf.ConnectRetries)*sf.ConnectRetryInterval + 2*time.Second
}
