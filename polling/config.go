package polling

import (
	"errors"
	"time"
)

// Bounds for Config fields, in the same Config/Valid()/DefaultConfig idiom
// as session.Config (spec §4.4).
const (
	PollIntervalMin = 1 * time.Second
	PollIntervalMax = 10 * time.Minute

	MaxConsecutiveErrorsMin = 1
	MaxConsecutiveErrorsMax = 20

	ReconnectBackoffMaxMin = 1 * time.Second
	ReconnectBackoffMaxMax = 10 * time.Minute
)

// Config defines the polling engine's cadence and failure budget. The
// default is applied for each unspecified (zero) value.
type Config struct {
	// PollInterval spaces consecutive poll cycles. Default 30s (spec §4.4).
	PollInterval time.Duration

	// MaxConsecutiveErrors is the number of consecutive failed polls the
	// engine tolerates before disconnecting itself. Default 3 (spec §4.4).
	MaxConsecutiveErrors int

	// ReconnectBackoffMax caps the exponential reconnect backoff armed
	// after a Disconnected event. Default 60s (spec §7: "typically with a
	// 60-second backoff").
	ReconnectBackoffMax time.Duration
}

// Valid applies defaults and validates bounds, mutating c in place.
func (c *Config) Valid() error {
	if c == nil {
		return errors.New("polling: invalid pointer")
	}
	if c.PollInterval == 0 {
		c.PollInterval = 30 * time.Second
	} else if c.PollInterval < PollIntervalMin || c.PollInterval > PollIntervalMax {
		return errors.New("polling: PollInterval not in [1s, 10m]")
	}
	if c.MaxConsecutiveErrors == 0 {
		c.MaxConsecutiveErrors = 3
	} else if c.MaxConsecutiveErrors < MaxConsecutiveErrorsMin || c.MaxConsecutiveErrors > MaxConsecutiveErrorsMax {
		return errors.New("polling: MaxConsecutiveErrors not in [1, 20]")
	}
	if c.ReconnectBackoffMax == 0 {
		c.ReconnectBackoffMax = 60 * time.Second
	} else if c.ReconnectBackoffMax < ReconnectBackoffMaxMin || c.ReconnectBackoffMax > ReconnectBackoffMaxMax {
		return errors.New("polling: ReconnectBackoffMax not in [1s, 10m]")
	}
	return nil
}

// DefaultConfig returns a Config with every field at its documented default.
func DefaultConfig() Config {
	c := Config{}
	_ = c.Valid()
	return c
}
