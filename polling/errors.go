package polling

import "fmt"

// OutOfRangeError reports a SetValue call whose raw-encoded value falls
// outside the setpoint descriptor's [Min, Max] bounds (spec §4.4, §7).
type OutOfRangeError struct {
	Name     string
	Raw      int32
	Min, Max int32
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("polling: %s raw value %d out of range [%d, %d]", e.Name, e.Raw, e.Min, e.Max)
}

// UnknownSetpointError reports a SetValue call naming a setpoint the
// engine's register.Model does not know.
type UnknownSetpointError struct{ Name string }

func (e *UnknownSetpointError) Error() string {
	return fmt.Sprintf("polling: unknown setpoint %q", e.Name)
}

// ErrNotConnected is returned by SetValue and poll-triggering calls when the
// engine has no connected session.
var ErrNotConnected = fmt.Errorf("polling: not connected")
