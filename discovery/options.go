package discovery

import (
	"errors"
	"time"

	"github.com/genvex/tunnel/tunnel"
)

// Wildcard selects every device on the segment (spec §3).
const Wildcard = tunnel.Wildcard

// Bounds for Options fields (mirrors the teacher's Config/Valid idiom; see
// session.Config).
const (
	TimeoutMin = 1 * time.Second
	TimeoutMax = 60 * time.Second

	RetriesMin = 1
	RetriesMax = 10

	RetryIntervalMin = 100 * time.Millisecond
	RetryIntervalMax = 10 * time.Second
)

// Options bounds one discovery operation (spec §4.2). The default is
// applied for each unspecified (zero) value.
type Options struct {
	// DeviceID filters discovery responses; Wildcard ("*") matches every
	// device. Defaults to Wildcard.
	DeviceID string

	// Timeout bounds the whole collection window. Default 5s.
	Timeout time.Duration

	// Retries is how many times the discovery packet is (re)sent, at
	// RetryInterval·i for i = 0..Retries-1. Default 3.
	Retries int

	// RetryInterval spaces consecutive sends. Default 1s.
	RetryInterval time.Duration
}

// Valid applies defaults and validates bounds, mutating o in place.
func (o *Options) Valid() error {
	if o == nil {
		return errors.New("discovery: invalid pointer")
	}
	if o.DeviceID == "" {
		o.DeviceID = Wildcard
	}
	if o.Timeout == 0 {
		o.Timeout = 5 * time.Second
	} else if o.Timeout < TimeoutMin || o.Timeout > TimeoutMax {
		return errors.New("discovery: Timeout not in [1s, 60s]")
	}
	if o.Retries == 0 {
		o.Retries = 3
	} else if o.Retries < RetriesMin || o.Retries > RetriesMax {
		return errors.New("discovery: Retries not in [1, 10]")
	}
	if o.RetryInterval == 0 {
		o.RetryInterval = 1 * time.Second
	} else if o.RetryInterval < RetryIntervalMin || o.RetryInterval > RetryIntervalMax {
		return errors.New("discovery: RetryInterval not in [100ms, 10s]")
	}
	return nil
}

// DefaultOptions returns Options with every field at its documented default.
func DefaultOptions() Options {
	o := Options{}
	_ = o.Valid()
	return o
}
